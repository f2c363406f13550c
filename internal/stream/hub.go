// Package stream broadcasts attack run events to WebSocket subscribers.
// The server publishes one event per finished run; dashboards and CLI
// watchers subscribe to /ws/attacks to follow the pipeline live.
package stream

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"amm-attack-lab/internal/domain"
)

// HubConfig configures WebSocket hub behavior.
type HubConfig struct {
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SendBuffer is the per-client outbound queue length. Clients that
	// fall further behind are disconnected.
	SendBuffer int
}

// DefaultHubConfig returns default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
		SendBuffer:   64,
	}
}

// AttackEvent is the wire format for one finished attack run.
type AttackEvent struct {
	Type                string              `json:"type"` // "attack"
	AttackID            string              `json:"attack_id"`
	ScenarioID          string              `json:"scenario_id"`
	Status              string              `json:"status"`
	TriggersLiquidation bool                `json:"triggers_liquidation"`
	Records             []AttackEventRecord `json:"records"`
}

// AttackEventRecord is one manipulation step inside an AttackEvent.
type AttackEventRecord struct {
	Seq              int    `json:"seq"`
	Kind             string `json:"kind"`
	TargetAsset      string `json:"target_asset"`
	OriginalPrice    string `json:"original_price"`
	ManipulatedPrice string `json:"manipulated_price"`
	ImpactBps        int64  `json:"impact_bps"`
	Block            uint64 `json:"block"`
	Timestamp        int64  `json:"timestamp"`
}

// Hub fans attack events out to connected WebSocket clients.
type Hub struct {
	config   HubConfig
	upgrader websocket.Upgrader

	clients   map[*hubClient]struct{}
	clientsMu sync.Mutex

	closed atomic.Bool
	logger *log.Logger
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// NewHub creates a hub with the given configuration. A nil config uses
// DefaultHubConfig.
func NewHub(config *HubConfig, logger *log.Logger) *Hub {
	cfg := DefaultHubConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		config: cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*hubClient]struct{}),
		logger:  logger,
	}
}

// Handler upgrades the request and keeps the connection subscribed until
// the peer disconnects or the hub closes.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.closed.Load() {
			http.Error(w, "hub closed", http.StatusServiceUnavailable)
			return
		}

		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the error response
			return
		}

		c := &hubClient{
			conn: conn,
			send: make(chan []byte, h.config.SendBuffer),
			done: make(chan struct{}),
		}

		h.clientsMu.Lock()
		h.clients[c] = struct{}{}
		h.clientsMu.Unlock()

		go h.writeLoop(c)
		h.readLoop(c) // blocks until disconnect
		h.drop(c)
	}
}

// Publish broadcasts one finished attack run to every subscriber. Slow
// clients whose queue is full are disconnected rather than blocking the
// pipeline.
func (h *Hub) Publish(attack *domain.AttackResult) {
	if h.closed.Load() || attack == nil {
		return
	}

	payload, err := json.Marshal(eventFromResult(attack))
	if err != nil {
		h.logger.Printf("[stream] marshal attack event: %v", err)
		return
	}

	h.clientsMu.Lock()
	var slow []*hubClient
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.clientsMu.Unlock()

	for _, c := range slow {
		h.logger.Printf("[stream] dropping slow subscriber")
		h.drop(c)
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	return len(h.clients)
}

// Close disconnects all subscribers. The hub rejects new connections
// afterwards.
func (h *Hub) Close() {
	if h.closed.Swap(true) {
		return
	}

	h.clientsMu.Lock()
	clients := make([]*hubClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.Unlock()

	for _, c := range clients {
		h.drop(c)
	}
}

func eventFromResult(attack *domain.AttackResult) AttackEvent {
	ev := AttackEvent{
		Type:                "attack",
		AttackID:            attack.AttackID,
		ScenarioID:          attack.ScenarioID,
		Status:              attack.Status,
		TriggersLiquidation: attack.TriggersLiquidation,
		Records:             make([]AttackEventRecord, len(attack.Records)),
	}
	for i, r := range attack.Records {
		ev.Records[i] = AttackEventRecord{
			Seq:              r.Seq,
			Kind:             r.Kind,
			TargetAsset:      r.TargetAsset,
			OriginalPrice:    r.OriginalPrice.String(),
			ManipulatedPrice: r.ManipulatedPrice.String(),
			ImpactBps:        r.ImpactBps,
			Block:            r.Block,
			Timestamp:        r.Timestamp,
		}
	}
	return ev
}

// drop removes the client and closes its connection. Safe to call more
// than once per client.
func (h *Hub) drop(c *hubClient) {
	h.clientsMu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	h.clientsMu.Unlock()

	if !ok {
		return
	}

	close(c.done)
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(h.config.WriteTimeout))
	c.conn.Close()
}

// readLoop discards inbound frames; it exists to observe disconnects and
// answer control frames.
func (h *Hub) readLoop(c *hubClient) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop drains the client queue and keeps the connection alive with
// periodic pings.
func (h *Hub) writeLoop(c *hubClient) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.drop(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.drop(c)
				return
			}
		}
	}
}
