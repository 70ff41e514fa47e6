package leaderboard

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"

	"tradehub/internal/models"
)

// ChainReader reads live balances from the chain. Implemented by
// pkg/solana.BalanceReader; injected so tests can substitute a fake.
type ChainReader interface {
	GetBalance(ctx context.Context, address string) (float64, bool)
	GetBalances(ctx context.Context, addresses []string) []*float64
}

// Entry is one participant's row in the leaderboard snapshot
type Entry struct {
	ID             uint      `json:"id"`
	ArenaID        uint      `json:"arena_id"`
	WalletAddress  string    `json:"wallet_address"`
	InitialBalance float64   `json:"initial_balance"`
	CurrentBalance float64   `json:"current_balance"`
	TotalDeposit   float64   `json:"total_deposit"`
	Profit         float64   `json:"profit"` // clean ROI percent
	Pnl            float64   `json:"pnl"`
	Rank           int       `json:"rank"`
	ObservedAt     time.Time `json:"observed_at"`
}

// recompute refreshes the derived fields from the entry's own state
func (e *Entry) recompute() {
	adjusted := AdjustedBalance(e.CurrentBalance, e.TotalDeposit)
	e.Profit = RoiPercent(e.InitialBalance, adjusted)
	e.Pnl = PnlAbsolute(e.InitialBalance, adjusted)
}

// Assembler owns the shared leaderboard snapshot for one arena. The full
// resync path and the incremental push path both write into it; writes
// are merged per participant by observation recency, so a push that lands
// while a resync is in flight is never clobbered by the older resync
// result.
type Assembler struct {
	chain    ChainReader
	deposits DepositSource

	mu       sync.RWMutex
	entries  map[uint]*Entry
	ranked   []uint // participant IDs in rank order
	degraded bool
}

func NewAssembler(chain ChainReader, deposits DepositSource) *Assembler {
	return &Assembler{
		chain:    chain,
		deposits: deposits,
		entries:  make(map[uint]*Entry),
	}
}

// Rebuild performs a full resync over participants and returns the ranked
// list. Participants keep their stored balance when the chain read fails
// for them; a participant with a malformed wallet address is skipped and
// the rest proceed.
func (a *Assembler) Rebuild(ctx context.Context, participants []models.Participant) []Entry {
	fetchStart := time.Now()

	working := make([]*Entry, 0, len(participants))
	for _, p := range participants {
		if _, err := solana.PublicKeyFromBase58(p.WalletAddress); err != nil {
			log.Errorf("> participant %d has malformed wallet address %q, skipping: %v", p.ID, p.WalletAddress, err)
			continue
		}

		totalDeposit := p.TotalDeposit
		if fresh, err := a.deposits.TotalDeposits(p.ID); err != nil {
			log.Warnf("> deposit aggregate query failed for participant %d, using stored total: %v", p.ID, err)
		} else {
			totalDeposit = fresh
		}

		entry := &Entry{
			ID:             p.ID,
			ArenaID:        p.ArenaID,
			WalletAddress:  p.WalletAddress,
			InitialBalance: p.InitialBalance,
			CurrentBalance: p.CurrentBalance,
			TotalDeposit:   totalDeposit,
			ObservedAt:     fetchStart,
		}
		entry.recompute()
		working = append(working, entry)
	}

	// Live enrichment: one batched chain read for every survivor
	addresses := make([]string, len(working))
	for i, e := range working {
		addresses[i] = e.WalletAddress
	}
	balances := a.chain.GetBalances(ctx, addresses)

	fetched := 0
	for i, balance := range balances {
		if balance == nil {
			// RPC failure for this slot: retain the store-derived value
			continue
		}
		working[i].CurrentBalance = *balance
		working[i].recompute()
		fetched++
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.degraded = len(working) > 0 && fetched == 0
	if a.degraded {
		log.Warn("> leaderboard sync degraded: no live balances could be fetched")
	}

	// Merge with pushes that landed after this resync started. The batch
	// read reflects chain state as of fetchStart, so any push observed
	// after that point is fresher and wins regardless of which call
	// completed last.
	entries := make(map[uint]*Entry, len(working))
	for _, e := range working {
		if prev, ok := a.entries[e.ID]; ok && prev.ObservedAt.After(fetchStart) {
			e.CurrentBalance = prev.CurrentBalance
			e.ObservedAt = prev.ObservedAt
			e.recompute()
		}
		entries[e.ID] = e
	}

	// Deterministic ordering: descending by profit, equal profits keep
	// their input (join) order.
	sort.SliceStable(working, func(i, j int) bool {
		return working[i].Profit > working[j].Profit
	})

	ranked := make([]uint, len(working))
	result := make([]Entry, len(working))
	for i, e := range working {
		e.Rank = i + 1
		ranked[i] = e.ID
		result[i] = *e
	}

	a.entries = entries
	a.ranked = ranked
	return result
}

// ApplyBalanceUpdate merges an incremental push for a wallet address into
// the snapshot. The existing deposit total is reused (the next full
// resync refreshes it) and no re-sort happens here; re-sorting on every
// push causes visual jitter, so the presentation layer re-sorts on its
// own cadence.
func (a *Assembler) ApplyBalanceUpdate(address string, balance float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, e := range a.entries {
		if e.WalletAddress != address {
			continue
		}
		e.CurrentBalance = balance
		e.ObservedAt = time.Now()
		e.recompute()
	}
}

// ApplyParticipantBalance is the push path scoped to one participant row.
// Used by subscription callbacks so a wallet registered in two arenas
// does not fan out ambiguously.
func (a *Assembler) ApplyParticipantBalance(participantID uint, balance float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.entries[participantID]
	if !ok {
		return
	}
	e.CurrentBalance = balance
	e.ObservedAt = time.Now()
	e.recompute()
}

// Ranked returns a copy of the current snapshot in rank order
func (a *Assembler) Ranked() []Entry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make([]Entry, 0, len(a.ranked))
	for _, id := range a.ranked {
		if e, ok := a.entries[id]; ok {
			result = append(result, *e)
		}
	}
	return result
}

// Degraded reports whether the last rebuild observed zero live balances.
// The snapshot still serves stale data; the presentation layer decides
// how to warn.
func (a *Assembler) Degraded() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.degraded
}
