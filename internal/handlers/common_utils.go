package handlers

import (
	"errors"
	"net/http"
	"sync"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradehub/internal/leaderboard"
	"tradehub/internal/models"
	dbconfig "tradehub/pkg/config"
	hubsolana "tradehub/pkg/solana"
)

// createStatus maps a store write error to an HTTP status. Unique index
// violations are client conflicts; everything else is a server fault.
func createStatus(err error) int {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

var (
	chainReader *hubsolana.BalanceReader
	readerMu    sync.Mutex

	publisher   *dbconfig.Publisher
	publisherMu sync.Mutex
)

// loadEndpoints merges the env list with the active store-managed
// RpcConfig rows, lowest priority value first; env endpoints are tried
// before store-managed ones.
func loadEndpoints() []string {
	endpoints := hubsolana.EndpointsFromEnv()

	var configs []models.RpcConfig
	if err := dbconfig.DB.Where("is_active = ?", true).Order("priority asc").Find(&configs).Error; err != nil {
		log.Warnf("> failed to load rpc configs from store: %v", err)
	}
	for _, cfg := range configs {
		endpoints = append(endpoints, cfg.Endpoint)
	}
	return endpoints
}

// getChainReader returns the shared balance reader, created on first use
func getChainReader() *hubsolana.BalanceReader {
	readerMu.Lock()
	defer readerMu.Unlock()
	if chainReader == nil {
		chainReader = hubsolana.NewBalanceReader(loadEndpoints(), 0)
	}
	return chainReader
}

// reloadChainReaderEndpoints pushes the current endpoint set into the
// shared reader. Called after rpc-config writes so edits take effect
// without a process restart.
func reloadChainReaderEndpoints() {
	readerMu.Lock()
	reader := chainReader
	readerMu.Unlock()

	if reader == nil {
		return
	}
	reader.SetEndpoints(loadEndpoints())
}

// publishArenaEvent fires a change-feed event toward the sync worker.
// Publishing is best effort: the API keeps working without RabbitMQ and
// the worker's periodic resync covers missed signals.
func publishArenaEvent(event leaderboard.ArenaEvent) {
	if dbconfig.RabbitMQ == nil {
		log.Debugf("> RabbitMQ not configured, skipping event %s for arena %d", event.Action, event.ArenaID)
		return
	}

	publisherMu.Lock()
	defer publisherMu.Unlock()

	if publisher == nil {
		p, err := dbconfig.NewPublisher()
		if err != nil {
			log.Errorf("> failed to create publisher: %v", err)
			return
		}
		publisher = p
	}

	if err := publisher.Publish(dbconfig.QueueArenaEvents, event); err != nil {
		log.Errorf("> failed to publish %s event for arena %d: %v", event.Action, event.ArenaID, err)
		// Channel may be stale after a broker restart; rebuild next time
		publisher = nil
	}
}
