// Package stream owns the live websocket channel bound to one session. It
// translates inbound frames into typed events delivered in arrival order and
// user text into outbound frames carrying the full watch URL.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/chitrank123/TubeMind-Pro/internal/chat"
)

// ErrChannelNotReady means a send was attempted without an open channel.
// Re-selecting the session binds a fresh one.
var ErrChannelNotReady = errors.New("stream channel is not open")

// Event is one decoded inbound frame or a terminal closure notice.
type Event interface {
	streamEvent()
}

// ThoughtEvent is a partial reasoning fragment streamed before the answer.
type ThoughtEvent struct {
	Data string
}

// ResultEvent completes the outstanding turn.
type ResultEvent struct {
	Text        string
	Meta        *chat.Meta
	Suggestions []string
}

// ClosedEvent is delivered once when the channel terminates unexpectedly.
// The channel stays closed; there is no automatic reconnect.
type ClosedEvent struct {
	Err error
}

func (ThoughtEvent) streamEvent() {}
func (ResultEvent) streamEvent()  {}
func (ClosedEvent) streamEvent()  {}

// inboundFrame is the wire shape of backend events, tagged by Type.
type inboundFrame struct {
	Type        string     `json:"type"`
	Data        string     `json:"data"`
	Meta        *chat.Meta `json:"meta,omitempty"`
	Suggestions []string   `json:"suggestions,omitempty"`
}

// outboundFrame is the wire shape of a user message. The url field carries
// the full watch URL, not the bare content ref.
type outboundFrame struct {
	Message string `json:"message"`
	URL     string `json:"url"`
}

// Config describes one channel binding.
type Config struct {
	// BaseURL is the websocket root, eg. ws://localhost:8001.
	BaseURL   string
	Token     string
	SessionID int64
	WatchURL  string
	// Dialer overrides the default websocket dialer, mainly for tests.
	Dialer *websocket.Dialer
}

// Channel is one live bidirectional connection. Create it with Dial; at most
// one channel should be open per client, which the session controller
// enforces.
type Channel struct {
	conn      *websocket.Conn
	events    chan Event
	sessionID int64
	watchURL  string

	mu     sync.Mutex
	closed bool
}

// Dial connects to the chat endpoint with the token and session id carried
// as query parameters and starts the read loop.
func Dial(ctx context.Context, cfg Config) (*Channel, error) {
	endpoint := fmt.Sprintf(
		"%s/ws/chat?token=%s&session_id=%d",
		strings.TrimRight(cfg.BaseURL, "/"),
		url.QueryEscape(cfg.Token),
		cfg.SessionID,
	)
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial chat channel: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("dial chat channel: %w", err)
	}

	ch := &Channel{
		conn:      conn,
		events:    make(chan Event, 16),
		sessionID: cfg.SessionID,
		watchURL:  cfg.WatchURL,
	}
	go ch.readLoop()
	return ch, nil
}

// SessionID reports which session this channel is bound to. Consumers use it
// to discard events that outlive a session switch.
func (c *Channel) SessionID() int64 {
	return c.sessionID
}

// Events returns the inbound event stream. The channel is closed after the
// terminal event.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Send forwards one user message as an outbound frame. It fails with
// ErrChannelNotReady once the channel is closed and chat.ErrEmptyMessage for
// blank text.
func (c *Channel) Send(text string) error {
	if strings.TrimSpace(text) == "" {
		return chat.ErrEmptyMessage
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelNotReady
	}
	if err := c.conn.WriteJSON(outboundFrame{Message: text, URL: c.watchURL}); err != nil {
		return fmt.Errorf("send chat frame: %w", err)
	}
	return nil
}

// Close tears the connection down. Safe to call more than once.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.conn.Close()
}

func (c *Channel) readLoop() {
	defer close(c.events)
	for {
		var frame inboundFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if c.wasClosed() {
				return
			}
			c.mu.Lock()
			c.closed = true
			c.mu.Unlock()
			_ = c.conn.Close()
			c.events <- ClosedEvent{Err: err}
			return
		}
		switch frame.Type {
		case "thought":
			c.events <- ThoughtEvent{Data: frame.Data}
		case "result":
			c.events <- ResultEvent{
				Text:        frame.Data,
				Meta:        frame.Meta,
				Suggestions: frame.Suggestions,
			}
		default:
			// Unknown frame kinds are skipped so protocol additions do not
			// wedge the client.
		}
	}
}

func (c *Channel) wasClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
