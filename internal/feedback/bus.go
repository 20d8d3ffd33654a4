package feedback

import (
	"context"
	"encoding/json"
	"errors"
	log "log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"vocaleye/pkg/intent"
)

// Event is one JSON message on the status bus.
type Event struct {
	Type     string    `json:"type"`
	ActionID string    `json:"action_id,omitempty"`
	Kind     string    `json:"kind,omitempty"`
	Status   string    `json:"status,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	State    string    `json:"state,omitempty"`
	Text     string    `json:"text,omitempty"`
	At       time.Time `json:"at"`
}

func TranscriptEvent(t intent.Transcript) Event {
	return Event{Type: "transcript", Text: t.Text, At: t.At}
}

func OutcomeEvent(o intent.Outcome) Event {
	return Event{
		Type:     "outcome",
		ActionID: o.ActionID,
		Kind:     string(o.Kind),
		Status:   string(o.Status),
		Reason:   string(o.Reason),
		Text:     o.Summary,
		At:       o.At,
	}
}

func StateEvent(a intent.Action, state string) Event {
	return Event{Type: "state", ActionID: a.ID, Kind: string(a.Kind), State: state, At: time.Now()}
}

// StatusBus publishes events to a websocket hub. It dials lazily and
// redials once on a broken connection.
type StatusBus struct {
	url     string
	timeout time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewStatusBus(wsURL string, timeout time.Duration) (*StatusBus, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, errors.New("status bus url must be ws:// or wss://")
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &StatusBus{url: u.String(), timeout: timeout}, nil
}

func (b *StatusBus) dial(ctx context.Context) error {
	d := websocket.Dialer{HandshakeTimeout: b.timeout}
	conn, _, err := d.DialContext(ctx, b.url, nil)
	if err != nil {
		return err
	}
	log.Info("Connected to bus", "url", b.url)
	b.conn = conn
	return nil
}

func (b *StatusBus) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for attempt := 0; attempt < 2; attempt++ {
		if b.conn == nil {
			if err = b.dial(ctx); err != nil {
				continue
			}
		}
		_ = b.conn.SetWriteDeadline(time.Now().Add(b.timeout))
		if err = b.conn.WriteMessage(websocket.TextMessage, data); err == nil {
			return nil
		}
		_ = b.conn.Close()
		b.conn = nil
	}
	return err
}

func (b *StatusBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	_ = b.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := b.conn.Close()
	b.conn = nil
	return err
}
