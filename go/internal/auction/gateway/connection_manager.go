package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/auctionroom/go/internal/auction/events"
)

// ConnectionManager fans auction events out to websocket subscribers.
type ConnectionManager struct {
	auctionConnections map[uuid.UUID]map[*Connection]bool
	mu                 sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan events.Envelope

	// recently broadcast event ids; redeliveries are dropped
	seen *lru.Cache
}

// Connection is one subscriber socket.
type Connection struct {
	ID        string
	ViewerID  string
	AuctionID uuid.UUID
	Conn      *websocket.Conn
	Send      chan []byte
	Manager   *ConnectionManager

	ConnectedAt time.Time
}

type ConnectionConfig struct {
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	PingInterval    time.Duration `yaml:"ping_interval"`
	MaxMessageSize  int64         `yaml:"max_message_size"`
	ReadBufferSize  int           `yaml:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size"`
	SendBuffer      int           `yaml:"send_buffer"`
	DedupeSize      int           `yaml:"dedupe_size"`

	CheckOrigin func(r *http.Request) bool `yaml:"-"`
}

func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		SendBuffer:      256,
		DedupeSize:      4096,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

func NewConnectionManager(config ConnectionConfig) (*ConnectionManager, error) {
	if config.DedupeSize <= 0 {
		config.DedupeSize = 4096
	}
	if config.SendBuffer <= 0 {
		config.SendBuffer = 256
	}
	seen, err := lru.New(config.DedupeSize)
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}
	return &ConnectionManager{
		auctionConnections: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan events.Envelope, 1000),
		seen:        seen,
	}, nil
}

// Start processes broadcasts until ctx is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")
	for {
		select {
		case <-ctx.Done():
			cm.closeAll()
			log.Info().Msg("connection manager shutting down")
			return
		case env := <-cm.broadcastCh:
			cm.handleBroadcast(env)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a subscriber socket.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, viewerID string, auctionID uuid.UUID) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	c := &Connection{
		ID:          uuid.New().String(),
		ViewerID:    viewerID,
		AuctionID:   auctionID,
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBuffer),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}
	cm.registerConnection(c)

	go c.writePump()
	go c.readPump()

	log.Info().
		Str("connection_id", c.ID).
		Str("viewer_id", viewerID).
		Str("auction_id", auctionID.String()).
		Msg("websocket connection established")
	return nil
}

func (cm *ConnectionManager) registerConnection(c *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.auctionConnections[c.AuctionID] == nil {
		cm.auctionConnections[c.AuctionID] = make(map[*Connection]bool)
	}
	cm.auctionConnections[c.AuctionID][c] = true
}

func (cm *ConnectionManager) unregisterConnection(c *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	conns, ok := cm.auctionConnections[c.AuctionID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	close(c.Send)
	if len(conns) == 0 {
		delete(cm.auctionConnections, c.AuctionID)
	}

	log.Info().
		Str("connection_id", c.ID).
		Str("auction_id", c.AuctionID.String()).
		Msg("connection unregistered")
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.RLock()
	var all []*Connection
	for _, conns := range cm.auctionConnections {
		for c := range conns {
			all = append(all, c)
		}
	}
	cm.mu.RUnlock()

	for _, c := range all {
		cm.unregisterConnection(c)
	}
}

// Broadcast queues an envelope for every subscriber of its auction.
func (cm *ConnectionManager) Broadcast(env events.Envelope) {
	select {
	case cm.broadcastCh <- env:
	default:
		// subscribers recover the dropped event through their next pull
		log.Warn().
			Str("auction_id", env.AuctionID.String()).
			Str("event_id", env.EventID.String()).
			Msg("broadcast channel full, dropping event")
	}
}

func (cm *ConnectionManager) handleBroadcast(env events.Envelope) {
	if dup, _ := cm.seen.ContainsOrAdd(env.EventID, struct{}{}); dup {
		log.Debug().Str("event_id", env.EventID.String()).Msg("skipping duplicate event")
		return
	}

	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	// Send channels are closed under mu.Lock, so sends happen under RLock.
	var slow []*Connection
	cm.mu.RLock()
	conns := cm.auctionConnections[env.AuctionID]
	delivered := len(conns)
	for c := range conns {
		select {
		case c.Send <- data:
		default:
			slow = append(slow, c)
		}
	}
	cm.mu.RUnlock()

	for _, c := range slow {
		log.Warn().
			Str("connection_id", c.ID).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(c)
		if c.Conn != nil {
			c.Conn.Close()
		}
	}
	if delivered == 0 {
		return
	}

	log.Debug().
		Str("event_type", string(env.EventType)).
		Str("auction_id", env.AuctionID.String()).
		Int("connections", delivered-len(slow)).
		Msg("event broadcasted")
}

// ConnectionStats summarizes active subscribers.
type ConnectionStats struct {
	TotalConnections   int            `json:"total_connections"`
	ActiveAuctions     int            `json:"active_auctions"`
	AuctionConnections map[string]int `json:"auction_connections"`
}

func (cm *ConnectionManager) Stats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{
		ActiveAuctions:     len(cm.auctionConnections),
		AuctionConnections: make(map[string]int, len(cm.auctionConnections)),
	}
	for id, conns := range cm.auctionConnections {
		stats.TotalConnections += len(conns)
		stats.AuctionConnections[id.String()] = len(conns)
	}
	return stats
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message to websocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to send ping")
				return
			}
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected websocket close error")
			}
			return
		}
		// subscribers are read-only; anything they send is only logged
		log.Debug().
			Str("connection_id", c.ID).
			Int("bytes", len(message)).
			Msg("received client message")
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
