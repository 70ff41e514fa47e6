package solana

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	// Connection states
	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateConnected    = "connected"

	// Reconnect settings
	maxReconnectAttempts = 10
	reconnectDelay       = 5 * time.Second
)

// BalanceChangeCallback is invoked with the new SOL balance whenever the
// watched account changes on chain.
type BalanceChangeCallback func(sol float64)

// WatchHandle identifies one logical subscription. Several handles can
// share one underlying connection when they watch the same address.
type WatchHandle struct {
	Address string
	id      uint64
}

// accountConn represents one WebSocket subscription for a wallet address.
// All handles watching the address share it; their callbacks are fanned
// out per notification.
type accountConn struct {
	Address        string
	Conn           *websocket.Conn
	Status         string
	LastMessage    time.Time
	ReconnectCh    chan bool
	StopCh         chan bool
	stopOnce       sync.Once
	SubscriptionID float64
	callbacks      map[uint64]BalanceChangeCallback
	mu             sync.RWMutex
	wsEndpoint     string
}

func (c *accountConn) addCallback(id uint64, onChange BalanceChangeCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks[id] = onChange
}

// removeCallback detaches one handle and reports how many remain
func (c *accountConn) removeCallback(id uint64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.callbacks, id)
	return len(c.callbacks)
}

func (c *accountConn) notify(sol float64) {
	c.mu.RLock()
	callbacks := make([]BalanceChangeCallback, 0, len(c.callbacks))
	for _, cb := range c.callbacks {
		if cb != nil {
			callbacks = append(callbacks, cb)
		}
	}
	c.mu.RUnlock()

	for _, cb := range callbacks {
		cb(sol)
	}
}

func (c *accountConn) stop() {
	c.stopOnce.Do(func() {
		close(c.StopCh)
	})
}

// AccountWatcher manages WebSocket accountSubscribe connections keyed by
// wallet address. Watching an address that already has a connection
// attaches to it instead of opening a second socket; the socket closes
// only when the last handle unwatches. Unwatch is idempotent.
type AccountWatcher struct {
	mu           sync.Mutex
	connections  map[string]*accountConn
	nextHandleID uint64
	wsEndpoint   string
}

// NewAccountWatcher creates a watcher against the configured WebSocket
// endpoint (DEFAULT_SOLANA_WSS).
func NewAccountWatcher() *AccountWatcher {
	wsEndpoint := os.Getenv("DEFAULT_SOLANA_WSS")
	if wsEndpoint == "" {
		wsEndpoint = "wss://api.mainnet-beta.solana.com"
	}
	return &AccountWatcher{
		connections: make(map[string]*accountConn),
		wsEndpoint:  wsEndpoint,
	}
}

// Watch starts a balance subscription for address and returns its handle.
// A second Watch on the same address shares the existing connection, so
// every subscriber receives every notification.
func (w *AccountWatcher) Watch(address string, onChange BalanceChangeCallback) (*WatchHandle, error) {
	if _, err := solana.PublicKeyFromBase58(address); err != nil {
		return nil, fmt.Errorf("invalid wallet address %s: %w", address, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextHandleID++
	handle := &WatchHandle{Address: address, id: w.nextHandleID}

	if conn, exists := w.connections[address]; exists {
		conn.addCallback(handle.id, onChange)
		log.WithFields(log.Fields{
			"wallet_address": address,
		}).Info("Attached to existing balance subscription")
		return handle, nil
	}

	conn := &accountConn{
		Address:     address,
		Status:      StateDisconnected,
		ReconnectCh: make(chan bool, 1),
		StopCh:      make(chan bool, 1),
		callbacks:   map[uint64]BalanceChangeCallback{handle.id: onChange},
		wsEndpoint:  w.wsEndpoint,
	}
	w.connections[address] = conn

	go w.connectAndWatch(conn)

	log.WithFields(log.Fields{
		"wallet_address": address,
	}).Info("Balance subscription created")
	return handle, nil
}

// Unwatch detaches the handle's callback. The connection stays up while
// other handles still watch the address; the last one out closes it.
// Calling it twice, or with a stale handle, is safe.
func (w *AccountWatcher) Unwatch(handle *WatchHandle) {
	if handle == nil {
		return
	}

	w.mu.Lock()
	conn, exists := w.connections[handle.Address]
	if !exists {
		w.mu.Unlock()
		return
	}
	remaining := conn.removeCallback(handle.id)
	if remaining > 0 {
		w.mu.Unlock()
		log.WithFields(log.Fields{
			"wallet_address": handle.Address,
			"subscribers":    remaining,
		}).Debug("Subscriber detached, connection kept")
		return
	}
	delete(w.connections, handle.Address)
	w.mu.Unlock()

	conn.stop()
	log.WithFields(log.Fields{
		"wallet_address": handle.Address,
	}).Info("Balance subscription stopped")
}

// UnwatchAll stops every active subscription regardless of subscriber count
func (w *AccountWatcher) UnwatchAll() {
	w.mu.Lock()
	conns := make([]*accountConn, 0, len(w.connections))
	for _, conn := range w.connections {
		conns = append(conns, conn)
	}
	w.connections = make(map[string]*accountConn)
	w.mu.Unlock()

	for _, conn := range conns {
		conn.stop()
	}
}

// dropConn force-removes a connection that gave up reconnecting
func (w *AccountWatcher) dropConn(conn *accountConn) {
	w.mu.Lock()
	if current, exists := w.connections[conn.Address]; exists && current == conn {
		delete(w.connections, conn.Address)
	}
	w.mu.Unlock()
	conn.stop()
}

// connectAndWatch handles the WebSocket connection lifecycle for one address
func (w *AccountWatcher) connectAndWatch(conn *accountConn) {
	reconnectAttempts := 0

	for {
		select {
		case <-conn.StopCh:
			w.closeConn(conn)
			return
		default:
			conn.mu.Lock()
			conn.Status = StateConnecting
			conn.mu.Unlock()

			c, _, err := websocket.DefaultDialer.Dial(conn.wsEndpoint, nil)
			if err != nil {
				log.WithFields(log.Fields{
					"wallet_address": conn.Address,
					"error":          err.Error(),
				}).Error("Failed to connect to Solana WebSocket")
				reconnectAttempts++
				if reconnectAttempts >= maxReconnectAttempts {
					log.WithFields(log.Fields{
						"wallet_address":         conn.Address,
						"reconnect_attempts":     reconnectAttempts,
						"max_reconnect_attempts": maxReconnectAttempts,
					}).Error("Max reconnect attempts reached, stopping")
					w.dropConn(conn)
					return
				}
				time.Sleep(reconnectDelay)
				continue
			}

			conn.mu.Lock()
			conn.Conn = c
			conn.Status = StateConnected
			conn.mu.Unlock()

			reconnectAttempts = 0
			log.WithFields(log.Fields{
				"wallet_address": conn.Address,
			}).Info("Connected to Solana WebSocket")

			subscribeMsg := map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      1,
				"method":  "accountSubscribe",
				"params": []interface{}{
					conn.Address,
					map[string]interface{}{
						"encoding":   "base64",
						"commitment": "finalized",
					},
				},
			}

			if err := c.WriteJSON(subscribeMsg); err != nil {
				log.WithFields(log.Fields{
					"wallet_address": conn.Address,
					"error":          err.Error(),
				}).Error("Failed to send subscription message")
				c.Close()
				time.Sleep(reconnectDelay)
				continue
			}

			go w.readMessages(conn)

			select {
			case <-conn.ReconnectCh:
				log.WithFields(log.Fields{
					"wallet_address": conn.Address,
				}).Info("Reconnect requested")
				c.Close()
				time.Sleep(reconnectDelay)
			case <-conn.StopCh:
				w.closeConn(conn)
				return
			}
		}
	}
}

// closeConn unsubscribes (best effort) and closes the socket
func (w *AccountWatcher) closeConn(conn *accountConn) {
	conn.mu.Lock()
	defer conn.mu.Unlock()

	if conn.Conn == nil {
		return
	}
	if conn.SubscriptionID != 0 {
		unsubscribeMsg := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      2,
			"method":  "accountUnsubscribe",
			"params":  []interface{}{conn.SubscriptionID},
		}
		// Connection is going away either way; errors are not actionable
		_ = conn.Conn.WriteJSON(unsubscribeMsg)
	}
	conn.Conn.Close()
	conn.Status = StateDisconnected
}

// accountNotification mirrors the JSON-RPC accountNotification payload
type accountNotification struct {
	Params struct {
		Subscription float64 `json:"subscription"`
		Result       struct {
			Value struct {
				Lamports uint64 `json:"lamports"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

// readMessages reads messages from the WebSocket connection
func (w *AccountWatcher) readMessages(conn *accountConn) {
	defer func() {
		conn.mu.Lock()
		if conn.Conn != nil {
			conn.Conn.Close()
		}
		conn.Status = StateDisconnected
		conn.mu.Unlock()

		// Trigger reconnect unless stopped
		select {
		case conn.ReconnectCh <- true:
		default:
		}
	}()

	for {
		conn.mu.RLock()
		c := conn.Conn
		conn.mu.RUnlock()

		if c == nil {
			return
		}

		_, message, err := c.ReadMessage()
		if err != nil {
			select {
			case <-conn.StopCh:
				// Closed on purpose, not an error
			default:
				log.WithFields(log.Fields{
					"wallet_address": conn.Address,
					"error":          err.Error(),
				}).Error("Error reading message")
			}
			return
		}

		conn.mu.Lock()
		conn.LastMessage = time.Now()
		conn.mu.Unlock()

		var msg map[string]interface{}
		if err := json.Unmarshal(message, &msg); err != nil {
			log.WithFields(log.Fields{
				"wallet_address": conn.Address,
				"error":          err.Error(),
			}).Error("Failed to unmarshal message")
			continue
		}

		// Subscription confirmation: {"jsonrpc":"2.0","result":<subscription_id>,"id":1}
		if id, hasID := msg["id"]; hasID {
			if result, ok := msg["result"].(float64); ok {
				conn.mu.Lock()
				conn.SubscriptionID = result
				conn.mu.Unlock()
				log.WithFields(log.Fields{
					"wallet_address":  conn.Address,
					"subscription_id": result,
					"request_id":      id,
				}).Info("Subscription confirmed")
			}
			continue
		}

		if method, ok := msg["method"].(string); !ok || method != "accountNotification" {
			continue
		}

		var notification accountNotification
		if err := json.Unmarshal(message, &notification); err != nil {
			log.WithFields(log.Fields{
				"wallet_address": conn.Address,
				"error":          err.Error(),
			}).Error("Failed to parse account notification")
			continue
		}

		sol := LamportsToSol(notification.Params.Result.Value.Lamports)
		log.WithFields(log.Fields{
			"wallet_address": conn.Address,
			"balance_sol":    sol,
		}).Debug("Balance change received")

		conn.notify(sol)
	}
}
