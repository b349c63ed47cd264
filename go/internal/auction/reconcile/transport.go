package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcdev12/auctionroom/go/internal/auction/apperr"
	"github.com/mcdev12/auctionroom/go/internal/auction/events"
	"github.com/mcdev12/auctionroom/go/internal/auction/state"
)

// SnapshotSource pulls the authoritative state of an auction.
type SnapshotSource interface {
	Snapshot(ctx context.Context, auctionID uuid.UUID) (state.Snapshot, error)
}

// Stream is one live event subscription.
type Stream interface {
	Next(ctx context.Context) (events.Envelope, error)
	Close() error
}

// Transport opens event subscriptions.
type Transport interface {
	Dial(ctx context.Context, auctionID uuid.UUID) (Stream, error)
}

// WebSocketTransport subscribes to the gateway's /ws/auction feed.
type WebSocketTransport struct {
	baseURL  string
	viewerID string
	dialer   *websocket.Dialer
}

// NewWebSocketTransport takes the gateway base URL (http, https, ws or wss).
func NewWebSocketTransport(baseURL, viewerID string) *WebSocketTransport {
	return &WebSocketTransport{
		baseURL:  strings.TrimRight(baseURL, "/"),
		viewerID: viewerID,
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

func (t *WebSocketTransport) url(auctionID uuid.UUID) string {
	base := t.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	q := url.Values{}
	q.Set("auction_id", auctionID.String())
	if t.viewerID != "" {
		q.Set("viewer_id", t.viewerID)
	}
	return base + "/ws/auction?" + q.Encode()
}

func (t *WebSocketTransport) Dial(ctx context.Context, auctionID uuid.UUID) (Stream, error) {
	conn, _, err := t.dialer.DialContext(ctx, t.url(auctionID), nil)
	if err != nil {
		return nil, apperr.Transport(fmt.Errorf("dial event feed: %w", err))
	}
	return &wsStream{conn: conn}, nil
}

type wsStream struct {
	conn *websocket.Conn
}

// Next blocks until an event arrives or the connection drops. Closing the
// stream unblocks it.
func (s *wsStream) Next(ctx context.Context) (events.Envelope, error) {
	for {
		if err := ctx.Err(); err != nil {
			return events.Envelope{}, err
		}
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return events.Envelope{}, apperr.Transport(err)
		}
		env, err := events.Parse(data)
		if err != nil {
			// one bad frame is not worth a reconnect; the next pull heals it
			continue
		}
		return env, nil
	}
}

func (s *wsStream) Close() error {
	return s.conn.Close()
}

// HTTPSnapshotSource pulls from GET /api/auctions/{id}/state.
type HTTPSnapshotSource struct {
	baseURL string
	client  *http.Client
}

func NewHTTPSnapshotSource(baseURL string, client *http.Client) *HTTPSnapshotSource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSnapshotSource{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (s *HTTPSnapshotSource) Snapshot(ctx context.Context, auctionID uuid.UUID) (state.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/auctions/%s/state", s.baseURL, auctionID), nil)
	if err != nil {
		return state.Snapshot{}, apperr.Internal(err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return state.Snapshot{}, apperr.Transport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var p apperr.Payload
		if err := json.NewDecoder(resp.Body).Decode(&p); err == nil && p.Code != "" {
			return state.Snapshot{}, apperr.FromPayload(p)
		}
		return state.Snapshot{}, apperr.Internal(fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	var snap state.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return state.Snapshot{}, apperr.Transport(fmt.Errorf("decode snapshot: %w", err))
	}
	return snap, nil
}
