package leaderboard

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"tradehub/internal/models"
	hubsolana "tradehub/pkg/solana"
)

const (
	// Push subscriptions cover only a bounded prefix of the field:
	// providers rate-limit by requests per second, so the long tail is
	// served by the periodic resync instead.
	defaultSubscriptionLimit = 12
	defaultStaggerDelay      = 200 * time.Millisecond
)

// BalanceWatcher is the push-subscription side of the chain reader.
// Implemented by pkg/solana.AccountWatcher.
type BalanceWatcher interface {
	Watch(address string, onChange hubsolana.BalanceChangeCallback) (*hubsolana.WatchHandle, error)
	Unwatch(handle *hubsolana.WatchHandle)
}

// ParticipantLoader fetches the current participant set from the store
type ParticipantLoader func(ctx context.Context) ([]models.Participant, error)

// CoordinatorConfig tunes the concurrency policy
type CoordinatorConfig struct {
	SubscriptionLimit int
	StaggerDelay      time.Duration
	// OnRebuilt is invoked with the ranked list after every completed
	// resync, e.g. to write refreshed balances back to the store.
	OnRebuilt func([]Entry)
}

// Coordinator governs when and how often chain reads run for one arena's
// leaderboard: staggered push subscriptions over a bounded prefix, and a
// single-flight guard over full resyncs so user triggers, store change
// events and the periodic timer can all call RequestResync freely.
type Coordinator struct {
	assembler *Assembler
	watcher   BalanceWatcher
	load      ParticipantLoader
	cfg       CoordinatorConfig

	handleMu sync.Mutex
	handles  map[uint]*hubsolana.WatchHandle // participant ID -> handle
	gen      uint64                          // bumped on every stop/resubscribe

	flightMu sync.Mutex
	inFlight bool
}

func NewCoordinator(assembler *Assembler, watcher BalanceWatcher, load ParticipantLoader, cfg CoordinatorConfig) *Coordinator {
	if cfg.SubscriptionLimit <= 0 {
		cfg.SubscriptionLimit = defaultSubscriptionLimit
	}
	if cfg.StaggerDelay <= 0 {
		cfg.StaggerDelay = defaultStaggerDelay
	}
	return &Coordinator{
		assembler: assembler,
		watcher:   watcher,
		load:      load,
		cfg:       cfg,
		handles:   make(map[uint]*hubsolana.WatchHandle),
	}
}

// Assembler exposes the owned snapshot for read paths
func (c *Coordinator) Assembler() *Assembler {
	return c.assembler
}

// RequestResync runs one full resync unless one is already in flight, in
// which case the request is dropped (the in-flight resync reads the same
// store state a moment later anyway, and the periodic timer catches
// anything that slips through). Returns whether a resync actually ran.
func (c *Coordinator) RequestResync(ctx context.Context) bool {
	c.flightMu.Lock()
	if c.inFlight {
		c.flightMu.Unlock()
		log.Debug("> resync already in flight, dropping request")
		return false
	}
	c.inFlight = true
	c.flightMu.Unlock()

	defer func() {
		c.flightMu.Lock()
		c.inFlight = false
		c.flightMu.Unlock()
	}()

	participants, err := c.load(ctx)
	if err != nil {
		log.Errorf("> failed to load participants for resync: %v", err)
		return true
	}

	entries := c.assembler.Rebuild(ctx, participants)
	if c.cfg.OnRebuilt != nil {
		c.cfg.OnRebuilt(entries)
	}

	// Membership changes require a fresh subscription prefix
	if c.membershipChanged(participants) {
		c.resubscribe(participants)
	}
	return true
}

// StartLiveSync establishes push subscriptions for the bounded prefix of
// participants, staggered to stay under provider rate limits.
func (c *Coordinator) StartLiveSync(participants []models.Participant) {
	c.resubscribe(participants)
}

// StopLiveSync tears down all active subscriptions. It also invalidates
// any resubscribe round still sleeping through its stagger delays.
func (c *Coordinator) StopLiveSync() {
	c.handleMu.Lock()
	old := c.handles
	c.handles = make(map[uint]*hubsolana.WatchHandle)
	c.gen++
	c.handleMu.Unlock()

	for _, handle := range old {
		c.watcher.Unwatch(handle)
	}
}

// membershipChanged reports whether the subscribed prefix no longer
// matches the current participant set.
func (c *Coordinator) membershipChanged(participants []models.Participant) bool {
	c.handleMu.Lock()
	defer c.handleMu.Unlock()

	limit := c.cfg.SubscriptionLimit
	if limit > len(participants) {
		limit = len(participants)
	}
	if len(c.handles) != limit {
		return true
	}
	for i := 0; i < limit; i++ {
		if _, ok := c.handles[participants[i].ID]; !ok {
			return true
		}
	}
	return false
}

// resubscribe tears down every existing handle before creating new ones,
// so a recycled address never ends up with duplicate listeners. Stagger
// sleeps run outside the lock so StopLiveSync never waits on them; the
// generation check discards this round's handles if a stop (or a newer
// round) landed mid-stagger.
func (c *Coordinator) resubscribe(participants []models.Participant) {
	c.handleMu.Lock()
	old := c.handles
	c.handles = make(map[uint]*hubsolana.WatchHandle)
	c.gen++
	myGen := c.gen
	c.handleMu.Unlock()

	for _, handle := range old {
		c.watcher.Unwatch(handle)
	}

	limit := c.cfg.SubscriptionLimit
	if limit > len(participants) {
		limit = len(participants)
	}

	fresh := make(map[uint]*hubsolana.WatchHandle, limit)
	for i := 0; i < limit; i++ {
		p := participants[i]
		if i > 0 {
			time.Sleep(c.cfg.StaggerDelay)
		}

		participantID := p.ID
		handle, err := c.watcher.Watch(p.WalletAddress, func(sol float64) {
			c.assembler.ApplyParticipantBalance(participantID, sol)
		})
		if err != nil {
			log.Warnf("> failed to subscribe balance for participant %d (%s): %v", p.ID, p.WalletAddress, err)
			continue
		}
		fresh[participantID] = handle
	}

	c.handleMu.Lock()
	if c.gen != myGen {
		c.handleMu.Unlock()
		log.Debug("> resubscribe round superseded, discarding its handles")
		for _, handle := range fresh {
			c.watcher.Unwatch(handle)
		}
		return
	}
	for id, handle := range fresh {
		c.handles[id] = handle
	}
	c.handleMu.Unlock()

	log.Infof("> live sync active for %d of %d participants", len(fresh), len(participants))
}
