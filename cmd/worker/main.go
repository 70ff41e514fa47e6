package main

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	logrus "github.com/sirupsen/logrus"

	"tradehub/internal/leaderboard"
	"tradehub/internal/models"
	"tradehub/pkg/config"
	hubsolana "tradehub/pkg/solana"
)

// syncManager keeps one coordinator per live arena
type syncManager struct {
	mu           sync.Mutex
	coordinators map[uint]*leaderboard.Coordinator
	watcher      *hubsolana.AccountWatcher
	reader       *hubsolana.BalanceReader
}

func newSyncManager() *syncManager {
	return &syncManager{
		coordinators: make(map[uint]*leaderboard.Coordinator),
		watcher:      hubsolana.NewAccountWatcher(),
		reader:       hubsolana.NewBalanceReader(loadEndpoints(), 0),
	}
}

// loadEndpoints merges the env list with active store-managed rpc
// configs, lowest priority value first
func loadEndpoints() []string {
	endpoints := hubsolana.EndpointsFromEnv()

	var configs []models.RpcConfig
	if err := config.DB.Where("is_active = ?", true).Order("priority asc").Find(&configs).Error; err != nil {
		logrus.Warnf("Failed to load rpc configs from store: %v", err)
	}
	for _, cfg := range configs {
		endpoints = append(endpoints, cfg.Endpoint)
	}
	return endpoints
}

// coordinator returns (creating if needed) the coordinator for an arena
func (m *syncManager) coordinator(arenaID uint) *leaderboard.Coordinator {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.coordinators[arenaID]; ok {
		return c
	}

	assembler := leaderboard.NewAssembler(m.reader, leaderboard.NewGormDepositSource(config.DB))
	coordinator := leaderboard.NewCoordinator(
		assembler,
		m.watcher,
		func(ctx context.Context) ([]models.Participant, error) {
			var participants []models.Participant
			err := config.DB.Where("arena_id = ?", arenaID).
				Order("created_at asc").
				Find(&participants).Error
			return participants, err
		},
		leaderboard.CoordinatorConfig{
			OnRebuilt: func(entries []leaderboard.Entry) {
				persistEntries(arenaID, entries)
			},
		},
	)

	m.coordinators[arenaID] = coordinator
	logrus.Infof("Created leaderboard coordinator for arena %d", arenaID)
	return coordinator
}

// stop tears down the coordinator of an arena
func (m *syncManager) stop(arenaID uint) {
	m.mu.Lock()
	coordinator, ok := m.coordinators[arenaID]
	if ok {
		delete(m.coordinators, arenaID)
	}
	m.mu.Unlock()

	if ok {
		coordinator.StopLiveSync()
		logrus.Infof("Stopped live sync for arena %d", arenaID)
	}
}

// resyncLiveArenas runs a full resync for every arena that has not ended.
// The endpoint list is refreshed first, so rpc-config edits made through
// the API reach the worker within one cycle.
func (m *syncManager) resyncLiveArenas() {
	m.reader.SetEndpoints(loadEndpoints())

	var arenas []models.Arena
	if err := config.DB.Where("end_time > ?", time.Now()).Find(&arenas).Error; err != nil {
		logrus.Errorf("Failed to load live arenas: %v", err)
		return
	}

	for _, arena := range arenas {
		m.coordinator(arena.ID).RequestResync(context.Background())
	}
}

// persistEntries writes refreshed balances, profits and ranks back to the
// store for the presentation layer. The baseline and the deposit total
// are owned by other writers and stay untouched.
func persistEntries(arenaID uint, entries []leaderboard.Entry) {
	for _, entry := range entries {
		err := config.DB.Model(&models.Participant{}).
			Where("id = ?", entry.ID).
			Updates(map[string]interface{}{
				"current_balance": entry.CurrentBalance,
				"profit":          entry.Profit,
				"rank":            entry.Rank,
			}).Error
		if err != nil {
			logrus.Errorf("Failed to persist entry for participant %d: %v", entry.ID, err)
		}
	}
	logrus.Debugf("Persisted %d leaderboard entries for arena %d", len(entries), arenaID)
}

func main() {
	// Initialize logger
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	// Initialize database
	config.InitDB()

	// Initialize RabbitMQ
	config.InitRabbitMQ()
	defer config.RabbitMQ.Close()

	manager := newSyncManager()

	// Bootstrap coordinators for arenas that are already live
	manager.resyncLiveArenas()

	// Periodic full resync as the safety net under the event-driven path
	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc("0 */2 * * * *", func() {
		manager.resyncLiveArenas()
	})
	if err != nil {
		logrus.Fatalf("Failed to add periodic resync job: %v", err)
	}
	c.Start()

	// Create consumer for the arena change-feed
	msgConsumer, err := config.NewConsumer(config.QueueArenaEvents)
	if err != nil {
		logrus.Fatal("Failed to create consumer: ", err)
	}
	defer msgConsumer.Close()

	logrus.Info("TradeHub sync worker started, waiting for arena events...")

	err = msgConsumer.Consume(func(msg []byte) error {
		var event leaderboard.ArenaEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			logrus.Errorf("Failed to unmarshal event: %v", err)
			return err
		}

		logrus.Infof("Received arena event: %+v", event)

		switch event.Action {
		case leaderboard.EventStopSync:
			manager.stop(event.ArenaID)

		case leaderboard.EventStartSync,
			leaderboard.EventParticipantJoined,
			leaderboard.EventDepositDetected,
			leaderboard.EventResyncRequested:
			// All change signals funnel through the same single-flight
			// resync; overlapping requests are dropped there.
			manager.coordinator(event.ArenaID).RequestResync(context.Background())

		default:
			logrus.Warnf("Unknown arena event action: %s", event.Action)
		}

		return nil
	})

	if err != nil {
		log.Fatal("Failed to start consumer: ", err)
	}
}
