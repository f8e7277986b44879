// Package chat holds the conversation state machine for one video session:
// the ordered message log, the transient thought buffer streamed ahead of
// each answer, and the thinking flag marking an outstanding turn. The
// reducer knows nothing about rendering or transport.
package chat

import "errors"

// Role labels who authored a message.
type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

// Meta carries reasoning details attached to an ai message that completed
// via a streamed result.
type Meta struct {
	Thoughts []string `json:"thoughts,omitempty"`
	Score    float64  `json:"score,omitempty"`
}

// Message is one entry in the conversation log. JSON tags match the backend
// history payload so fetched history decodes straight into the log.
type Message struct {
	Role        Role     `json:"role"`
	Text        string   `json:"text"`
	Meta        *Meta    `json:"meta,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Link is a titled external reference inside a recommendation set.
type Link struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// Recommendations is the related-content set produced by one processing
// call. A new set always replaces the previous one wholesale.
type Recommendations struct {
	Topic  string `json:"topic"`
	Videos []Link `json:"videos"`
	Blogs  []Link `json:"blogs"`
}

// ErrTurnInFlight rejects a new user turn while the previous one is still
// awaiting its result. The client holds a single outstanding request, not a
// queue.
var ErrTurnInFlight = errors.New("a turn is already awaiting its result")

// ErrEmptyMessage rejects blank submissions.
var ErrEmptyMessage = errors.New("message text is empty")

// Conversation folds user actions and stream events into the log. Methods
// must be called from a single goroutine; the session controller serializes
// access.
type Conversation struct {
	messages []Message
	thoughts []string
	thinking bool
}

// NewConversation returns an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// BeginTurn appends the user's message optimistically and marks the turn as
// outstanding. The append happens before any backend acknowledgement, so
// consecutive sends keep their submission order in the log regardless of
// round-trip latency.
func (c *Conversation) BeginTurn(text string) error {
	if text == "" {
		return ErrEmptyMessage
	}
	if c.thinking {
		return ErrTurnInFlight
	}
	c.messages = append(c.messages, Message{Role: RoleUser, Text: text})
	c.thoughts = nil
	c.thinking = true
	return nil
}

// ApplyThought appends one streamed reasoning fragment. Arrival order is
// display order.
func (c *Conversation) ApplyThought(data string) {
	c.thinking = true
	c.thoughts = append(c.thoughts, data)
}

// ApplyResult completes the outstanding turn: the ai message joins the log
// and the thought buffer and thinking flag reset together.
func (c *Conversation) ApplyResult(text string, meta *Meta, suggestions []string) {
	c.thinking = false
	c.thoughts = nil
	c.messages = append(c.messages, Message{
		Role:        RoleAI,
		Text:        text,
		Meta:        meta,
		Suggestions: suggestions,
	})
}

// FailTurn rolls back an optimistic BeginTurn whose transport write failed:
// the appended user message leaves the log and the turn slot frees up. A
// no-op when no turn is outstanding.
func (c *Conversation) FailTurn() {
	if !c.thinking {
		return
	}
	c.thinking = false
	c.thoughts = nil
	if n := len(c.messages); n > 0 && c.messages[n-1].Role == RoleUser {
		c.messages = c.messages[:n-1]
	}
}

// AppendNotice adds a synthetic ai message outside the turn cycle, such as
// the greeting shown right after a session is created.
func (c *Conversation) AppendNotice(text string) {
	c.messages = append(c.messages, Message{Role: RoleAI, Text: text})
}

// LoadHistory replaces the log wholesale with fetched history. The thought
// buffer and thinking flag are left untouched.
func (c *Conversation) LoadHistory(messages []Message) {
	c.messages = append([]Message(nil), messages...)
}

// Reset discards all conversation state when the active session changes.
func (c *Conversation) Reset() {
	c.messages = nil
	c.thoughts = nil
	c.thinking = false
}

// Messages returns a copy of the log in insertion order.
func (c *Conversation) Messages() []Message {
	return append([]Message(nil), c.messages...)
}

// Thoughts returns a copy of the current thought buffer.
func (c *Conversation) Thoughts() []string {
	return append([]string(nil), c.thoughts...)
}

// Thinking reports whether a turn is outstanding.
func (c *Conversation) Thinking() bool {
	return c.thinking
}
