// Package session orchestrates session creation and selection: it validates
// content references, sequences the backend calls, keeps the session store
// and conversation reducer consistent, and enforces the one-live-channel
// bind discipline.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chitrank123/TubeMind-Pro/internal/api"
	"github.com/chitrank123/TubeMind-Pro/internal/chat"
	"github.com/chitrank123/TubeMind-Pro/internal/stream"
	"github.com/chitrank123/TubeMind-Pro/internal/videoref"
)

// ErrInvalidReference means no 11-character content id could be extracted
// from the pasted URL. Nothing is mutated and no backend call is made.
var ErrInvalidReference = errors.New("not a recognizable video URL")

// ErrNotLoggedIn guards operations that need credentials.
var ErrNotLoggedIn = errors.New("log in before starting a session")

// defaultTitle labels sessions whose processing call produced no topic.
const defaultTitle = "New Chat"

// Backend is the slice of the REST client the controller depends on.
type Backend interface {
	Sessions(ctx context.Context, username string) ([]api.SessionRecord, error)
	Process(ctx context.Context, videoURL string) (chat.Recommendations, error)
	CreateSession(ctx context.Context, videoID, title, username string) (int64, error)
	History(ctx context.Context, sessionID int64) ([]chat.Message, error)
}

// Conn is the live channel surface the controller manages.
type Conn interface {
	Send(text string) error
	Events() <-chan stream.Event
	Close() error
	SessionID() int64
}

// DialFunc binds a fresh channel to a session, authenticated by the token.
type DialFunc func(ctx context.Context, token string, sessionID int64, videoID string) (Conn, error)

// Snapshot is a point-in-time copy of controller state for rendering.
type Snapshot struct {
	User            api.Credentials
	Sessions        []Session
	ActiveID        int64
	ActiveVideoID   string
	Messages        []chat.Message
	Thoughts        []string
	Thinking        bool
	Recommendations chat.Recommendations
	Connected       bool
}

// Controller owns the session store, the conversation reducer and the single
// live channel. Every mutating entry point serializes through one mutex;
// network awaits happen outside it and completions re-check the active
// session id before applying, so responses that outlive a session switch are
// discarded.
type Controller struct {
	backend Backend
	dial    DialFunc

	mu      sync.Mutex
	user    api.Credentials
	store   Store
	conv    *chat.Conversation
	recs    chat.Recommendations
	channel Conn
	bindGen int64
}

// New wires a controller to its collaborators.
func New(backend Backend, dial DialFunc) *Controller {
	return &Controller{
		backend: backend,
		dial:    dial,
		conv:    chat.NewConversation(),
	}
}

// SetUser installs the logged-in credentials.
func (c *Controller) SetUser(creds api.Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = creds
}

// LoadSessions fetches the user's stored sessions and replaces the list.
func (c *Controller) LoadSessions(ctx context.Context) error {
	c.mu.Lock()
	username := c.user.Username
	c.mu.Unlock()
	if username == "" {
		return ErrNotLoggedIn
	}

	records, err := c.backend.Sessions(ctx, username)
	if err != nil {
		return err
	}

	sessions := make([]Session, 0, len(records))
	for _, rec := range records {
		sessions = append(sessions, Session{ID: rec.ID, Title: rec.Title, VideoID: rec.VideoID})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user.Username != username {
		return nil
	}
	c.store.Replace(sessions)
	return nil
}

// Create resolves the pasted URL, runs the processing and creation calls in
// sequence, then installs the new session: prepended to the store, made
// active, conversation reset, channel rebound. A processing failure aborts
// the whole flow; an unresolvable URL fails before any network call.
func (c *Controller) Create(ctx context.Context, rawURL string) (Session, error) {
	ref := videoref.ExtractContentRef(rawURL)
	if ref == "" {
		return Session{}, ErrInvalidReference
	}

	c.mu.Lock()
	username := c.user.Username
	c.mu.Unlock()
	if username == "" {
		return Session{}, ErrNotLoggedIn
	}

	recs, err := c.backend.Process(ctx, rawURL)
	if err != nil {
		return Session{}, fmt.Errorf("process video: %w", err)
	}

	title := recs.Topic
	if title == "" {
		title = defaultTitle
	}

	id, err := c.backend.CreateSession(ctx, ref, title, username)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}

	sess := Session{ID: id, Title: title, VideoID: ref}

	c.mu.Lock()
	defer c.mu.Unlock()
	// The user may have logged out while the two calls above were in
	// flight; repopulating cleared state with a stale token would be worse
	// than losing the session.
	if c.user.Username != username {
		return Session{}, ErrNotLoggedIn
	}
	c.store.Prepend(sess)
	c.store.SetActive(sess.ID)
	c.recs = recs
	c.conv.Reset()
	c.conv.AppendNotice(fmt.Sprintf("Session Ready! Topic: %s", title))
	if err := c.rebindLocked(ctx, sess); err != nil {
		return sess, err
	}
	return sess, nil
}

// Select activates a stored session: history replaces the conversation log
// wholesale, recommendations refresh best-effort, and the channel rebinds.
// If another session became active while the fetches were in flight the
// completion is discarded.
func (c *Controller) Select(ctx context.Context, sess Session) error {
	c.mu.Lock()
	c.store.SetActive(sess.ID)
	c.mu.Unlock()

	history, err := c.backend.History(ctx, sess.ID)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}

	// Refreshing recommendations is informational; a failure here must not
	// block re-entering the conversation.
	recs, recsErr := c.backend.Process(ctx, videoref.WatchURL(sess.VideoID))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store.ActiveID() != sess.ID {
		return nil
	}
	c.conv.Reset()
	c.conv.LoadHistory(history)
	if recsErr == nil {
		c.recs = recs
	}
	return c.rebindLocked(ctx, sess)
}

// Send forwards one user message over the live channel, appending it to the
// log optimistically. Guards, in order: non-empty text, open channel,
// single outstanding turn.
func (c *Controller) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if text == "" {
		return chat.ErrEmptyMessage
	}
	if c.channel == nil {
		return stream.ErrChannelNotReady
	}
	if err := c.conv.BeginTurn(text); err != nil {
		return err
	}
	if err := c.channel.Send(text); err != nil {
		// The message never reached the wire; leaving the optimistic
		// append would hold the turn slot forever.
		c.conv.FailTurn()
		return err
	}
	return nil
}

// HandleEvent folds one stream event into the conversation. gen is the bind
// generation the event's channel was issued under; events from any earlier
// binding are dropped, so a dead channel draining late can never touch state
// owned by its replacement — even one rebound to the same session.
func (c *Controller) HandleEvent(gen int64, ev stream.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel == nil || gen != c.bindGen {
		return
	}
	switch e := ev.(type) {
	case stream.ThoughtEvent:
		c.conv.ApplyThought(e.Data)
	case stream.ResultEvent:
		c.conv.ApplyResult(e.Text, e.Meta, e.Suggestions)
	case stream.ClosedEvent:
		// Fail closed: conversation state stays as-is and the user
		// re-selects the session to bind a new channel.
		c.channel = nil
	}
}

// ChannelRef identifies one bound channel for event pumping. Gen changes on
// every rebind, including rebinds to the same session.
type ChannelRef struct {
	Events    <-chan stream.Event
	SessionID int64
	Gen       int64
}

// Channel exposes the live channel's event stream, session id and bind
// generation so the caller can pump events. ok is false when no channel is
// bound.
func (c *Controller) Channel() (ChannelRef, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel == nil {
		return ChannelRef{}, false
	}
	return ChannelRef{
		Events:    c.channel.Events(),
		SessionID: c.channel.SessionID(),
		Gen:       c.bindGen,
	}, true
}

// Logout closes the channel and discards user, sessions and conversation.
func (c *Controller) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeChannelLocked()
	c.user = api.Credentials{}
	c.store.Clear()
	c.recs = chat.Recommendations{}
	c.conv.Reset()
}

// Snapshot copies the current state for rendering.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		User:            c.user,
		Sessions:        c.store.All(),
		ActiveID:        c.store.ActiveID(),
		Messages:        c.conv.Messages(),
		Thoughts:        c.conv.Thoughts(),
		Thinking:        c.conv.Thinking(),
		Recommendations: c.recs,
		Connected:       c.channel != nil,
	}
	if active, ok := c.store.Active(); ok {
		snap.ActiveVideoID = active.VideoID
	}
	return snap
}

// rebindLocked closes any prior channel first, synchronously, then dials a
// new one for the given session. Caller holds the lock.
func (c *Controller) rebindLocked(ctx context.Context, sess Session) error {
	c.closeChannelLocked()
	conn, err := c.dial(ctx, c.user.Token, sess.ID, sess.VideoID)
	if err != nil {
		return fmt.Errorf("bind chat channel: %w", err)
	}
	c.bindGen++
	c.channel = conn
	return nil
}

func (c *Controller) closeChannelLocked() {
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
}
