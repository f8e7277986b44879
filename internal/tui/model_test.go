package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chitrank123/TubeMind-Pro/internal/api"
	"github.com/chitrank123/TubeMind-Pro/internal/chat"
	"github.com/chitrank123/TubeMind-Pro/internal/session"
	"github.com/chitrank123/TubeMind-Pro/internal/stream"
)

type fakeAuth struct {
	creds       api.Credentials
	loginErr    error
	registerErr error
}

func (f fakeAuth) Login(_ context.Context, _, _ string) (api.Credentials, error) {
	return f.creds, f.loginErr
}

func (f fakeAuth) Register(_ context.Context, _, _ string) error {
	return f.registerErr
}

type stubBackend struct {
	sessions []api.SessionRecord
	recs     chat.Recommendations
	nextID   int64
	history  []chat.Message
}

func (b *stubBackend) Sessions(_ context.Context, _ string) ([]api.SessionRecord, error) {
	return b.sessions, nil
}

func (b *stubBackend) Process(_ context.Context, _ string) (chat.Recommendations, error) {
	return b.recs, nil
}

func (b *stubBackend) CreateSession(_ context.Context, _, _, _ string) (int64, error) {
	return b.nextID, nil
}

func (b *stubBackend) History(_ context.Context, _ int64) ([]chat.Message, error) {
	return b.history, nil
}

type stubConn struct {
	sessionID int64
	events    chan stream.Event
	sent      []string
	closed    bool
}

func (c *stubConn) Send(text string) error {
	c.sent = append(c.sent, text)
	return nil
}

func (c *stubConn) Events() <-chan stream.Event { return c.events }

func (c *stubConn) Close() error {
	if !c.closed {
		c.closed = true
		close(c.events)
	}
	return nil
}

func (c *stubConn) SessionID() int64 { return c.sessionID }

type testHarness struct {
	model   *model
	backend *stubBackend
	conns   []*stubConn
}

func (h *testHarness) lastConn(t *testing.T) *stubConn {
	t.Helper()
	if len(h.conns) == 0 {
		t.Fatal("no channel was dialed")
	}
	return h.conns[len(h.conns)-1]
}

func newTestModel(t *testing.T) *testHarness {
	t.Helper()
	backend := &stubBackend{
		recs:   chat.Recommendations{Topic: "Go Concurrency"},
		nextID: 41,
	}
	harness := &testHarness{backend: backend}
	dial := func(_ context.Context, _ string, sessionID int64, _ string) (session.Conn, error) {
		conn := &stubConn{sessionID: sessionID, events: make(chan stream.Event, 4)}
		harness.conns = append(harness.conns, conn)
		return conn, nil
	}
	controller := session.New(backend, dial)
	m := New(Config{Auth: fakeAuth{creds: api.Credentials{Username: "alice", Token: "tok"}}, Controller: controller}).(*model)
	harness.model = m
	return harness
}

// enterChat drives the model through a successful login plus one created
// session so chat-stage tests start from a bound channel.
func (h *testHarness) enterChat(t *testing.T) {
	t.Helper()
	m := h.model
	updated, _ := m.Update(authResultMsg{mode: authModeLogin, creds: api.Credentials{Username: "alice", Token: "tok"}})
	if updated.(*model).stage != stageChat {
		t.Fatalf("login result should enter chat stage, got %v", m.stage)
	}
	sess, err := m.config.Controller.Create(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, cmd := m.Update(createResultMsg{sess: sess}); cmd == nil {
		t.Fatal("create result should start the frame pump")
	}
}

func TestAuthSubmitRequiresBothFields(t *testing.T) {
	h := newTestModel(t)
	m := h.model
	m.usernameInput.SetValue("alice")

	if _, cmd := m.submitAuth(); cmd != nil {
		t.Fatalf("submit with empty password should not start a job, got %T", cmd)
	}
	if m.errorMessage == "" {
		t.Fatal("expected a validation message")
	}
	if m.authBusy {
		t.Fatal("authBusy should stay false on validation failure")
	}
}

func TestAuthSubmitStartsJob(t *testing.T) {
	h := newTestModel(t)
	m := h.model
	m.usernameInput.SetValue("alice")
	m.passwordInput.SetValue("secret")

	_, cmd := m.submitAuth()
	if cmd == nil {
		t.Fatal("submit should return the auth job command")
	}
	if !m.authBusy {
		t.Fatal("authBusy should be set while the job runs")
	}
}

func TestLoginResultEntersChatAndLoadsSessions(t *testing.T) {
	h := newTestModel(t)
	m := h.model

	_, cmd := m.Update(authResultMsg{mode: authModeLogin, creds: api.Credentials{Username: "alice", Token: "tok"}})
	if m.stage != stageChat {
		t.Fatalf("stage = %v, want chat", m.stage)
	}
	if m.composerMode != composerModeURL {
		t.Fatalf("composer should open in URL mode, got %v", m.composerMode)
	}
	if !m.loadingSessions {
		t.Fatal("login should kick off the sessions load")
	}
	if cmd == nil {
		t.Fatal("login result should return the sessions job command")
	}
}

func TestLoginFailureSurfacesBackendDetail(t *testing.T) {
	h := newTestModel(t)
	m := h.model

	m.Update(authResultMsg{mode: authModeLogin, err: &api.AuthError{Detail: "Invalid credentials"}})
	if m.stage != stageAuth {
		t.Fatalf("stage = %v, want auth", m.stage)
	}
	if m.errorMessage != "Invalid credentials" {
		t.Fatalf("error = %q, want backend detail verbatim", m.errorMessage)
	}
}

func TestRegisterResultSwitchesToLogin(t *testing.T) {
	h := newTestModel(t)
	m := h.model
	m.authMode = authModeRegister
	m.passwordInput.SetValue("secret")

	m.Update(authResultMsg{mode: authModeRegister})
	if m.authMode != authModeLogin {
		t.Fatalf("authMode = %v, want login after successful registration", m.authMode)
	}
	if m.passwordInput.Value() != "" {
		t.Fatal("password should clear after registration")
	}
	if !strings.Contains(m.infoMessage, "Please login") {
		t.Fatalf("info = %q, want login prompt", m.infoMessage)
	}
}

func TestInvalidURLRejectedBeforeJobStarts(t *testing.T) {
	h := newTestModel(t)
	m := h.model
	m.Update(authResultMsg{mode: authModeLogin, creds: api.Credentials{Username: "alice"}})
	m.composer.SetValue("https://example.com/not-a-video")

	_, cmd := m.submitComposer()
	if cmd != nil {
		t.Fatalf("invalid URL should not start a job, got %T", cmd)
	}
	if m.creatingSession {
		t.Fatal("creatingSession should stay false")
	}
	if m.errorMessage != session.ErrInvalidReference.Error() {
		t.Fatalf("error = %q, want %q", m.errorMessage, session.ErrInvalidReference.Error())
	}
}

func TestCreateResultSwitchesComposerToMessageMode(t *testing.T) {
	h := newTestModel(t)
	h.enterChat(t)
	m := h.model

	if m.composerMode != composerModeMessage {
		t.Fatalf("composer mode = %v, want message after session is ready", m.composerMode)
	}
	if !m.pumping || m.pump.SessionID != 41 {
		t.Fatalf("frame pump not armed for session 41 (id=%d)", m.pump.SessionID)
	}
}

func TestSendWithoutChannelSurfacesNotReady(t *testing.T) {
	h := newTestModel(t)
	m := h.model
	m.Update(authResultMsg{mode: authModeLogin, creds: api.Credentials{Username: "alice"}})
	m.composerMode = composerModeMessage
	m.composer.SetValue("hello?")

	m.submitComposer()
	if m.errorMessage != stream.ErrChannelNotReady.Error() {
		t.Fatalf("error = %q, want %q", m.errorMessage, stream.ErrChannelNotReady.Error())
	}
}

func TestSendForwardsThroughChannel(t *testing.T) {
	h := newTestModel(t)
	h.enterChat(t)
	m := h.model
	m.composer.SetValue("what is a goroutine?")

	m.submitComposer()
	conn := h.lastConn(t)
	if len(conn.sent) != 1 || conn.sent[0] != "what is a goroutine?" {
		t.Fatalf("sent = %v, want the composed question", conn.sent)
	}
	if m.composer.Value() != "" {
		t.Fatal("composer should clear after a successful send")
	}
	if !m.snap.Thinking {
		t.Fatal("snapshot should report the turn in flight")
	}
}

func TestFrameMsgAppliesEventsAndRearms(t *testing.T) {
	h := newTestModel(t)
	h.enterChat(t)
	m := h.model
	m.composer.SetValue("explain channels")
	m.submitComposer()

	_, cmd := m.Update(frameMsg{sessionID: 41, gen: m.pump.Gen, event: stream.ThoughtEvent{Data: "scanning transcript"}, ok: true})
	if cmd == nil {
		t.Fatal("pump should re-arm after a thought frame")
	}
	if len(m.snap.Thoughts) != 1 || m.snap.Thoughts[0] != "scanning transcript" {
		t.Fatalf("thoughts = %v", m.snap.Thoughts)
	}

	m.Update(frameMsg{sessionID: 41, gen: m.pump.Gen, event: stream.ResultEvent{Text: "Channels carry values."}, ok: true})
	if m.snap.Thinking {
		t.Fatal("result frame should clear the thinking flag")
	}

	_, cmd = m.Update(frameMsg{sessionID: 41, gen: m.pump.Gen, ok: false})
	if cmd != nil {
		t.Fatalf("closed pump should not re-arm, got %T", cmd)
	}
	if m.pumping {
		t.Fatal("pump should stop once the stream ends")
	}
}

// Reconnecting rebinds the same session under a new generation; the dying
// pump's late close notice must not silence the fresh pump.
func TestStaleCloseKeepsFreshPump(t *testing.T) {
	h := newTestModel(t)
	h.enterChat(t)
	m := h.model
	oldGen := m.pump.Gen

	sess := session.Session{ID: 41, Title: "Go Concurrency", VideoID: "dQw4w9WgXcQ"}
	if err := m.config.Controller.Select(context.Background(), sess); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if _, cmd := m.Update(selectResultMsg{sessionID: 41}); cmd == nil {
		t.Fatal("select result should re-arm the pump")
	}
	if m.pump.Gen == oldGen {
		t.Fatalf("rebind must advance the pump generation, still %d", m.pump.Gen)
	}

	m.Update(frameMsg{sessionID: 41, gen: oldGen, ok: false})
	if !m.pumping {
		t.Fatal("stale close must not stop the live pump")
	}

	m.composer.SetValue("still there?")
	m.submitComposer()
	_, cmd := m.Update(frameMsg{sessionID: 41, gen: m.pump.Gen, event: stream.ThoughtEvent{Data: "reconnected"}, ok: true})
	if cmd == nil {
		t.Fatal("live pump must keep draining after the stale close")
	}
	if len(m.snap.Thoughts) != 1 || m.snap.Thoughts[0] != "reconnected" {
		t.Fatalf("thoughts = %v", m.snap.Thoughts)
	}
}

func TestClosedEventReportsLostChannel(t *testing.T) {
	h := newTestModel(t)
	h.enterChat(t)
	m := h.model

	m.Update(frameMsg{sessionID: 41, gen: m.pump.Gen, event: stream.ClosedEvent{Err: errors.New("read tcp: reset")}, ok: true})
	if !strings.Contains(m.errorMessage, "chat channel lost") {
		t.Fatalf("error = %q, want lost-channel notice", m.errorMessage)
	}
	if m.snap.Connected {
		t.Fatal("snapshot should report the channel as gone")
	}
}

func TestSuggestionKeySendsNumberedSuggestion(t *testing.T) {
	h := newTestModel(t)
	h.enterChat(t)
	m := h.model
	m.composer.SetValue("explain select")
	m.submitComposer()
	m.Update(frameMsg{
		sessionID: 41,
		gen:       m.pump.Gen,
		event: stream.ResultEvent{
			Text:        "Select waits on multiple channels.",
			Suggestions: []string{"Show an example", "What about default cases?"},
		},
		ok: true,
	})

	m.handleChatKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'2'}})
	conn := h.lastConn(t)
	if got := conn.sent[len(conn.sent)-1]; got != "What about default cases?" {
		t.Fatalf("sent = %q, want the second suggestion", got)
	}
}

func TestRecommendationsRenderTitlesAndLinks(t *testing.T) {
	h := newTestModel(t)
	h.backend.recs = chat.Recommendations{
		Topic:  "Go Concurrency",
		Videos: []chat.Link{{Title: "Concurrency Patterns Talk", Link: "https://youtu.be/f6kdp27TYZs"}},
		Blogs:  []chat.Link{{Title: "Share Memory By Communicating", Link: "https://go.dev/blog/codelab-share"}},
	}
	h.enterChat(t)
	m := h.model

	content := m.buildConversationContent()
	for _, want := range []string{
		"Related Videos",
		"Concurrency Patterns Talk",
		"https://youtu.be/f6kdp27TYZs",
		"Related Articles",
		"https://go.dev/blog/codelab-share",
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("conversation content missing %q:\n%s", want, content)
		}
	}
}

func TestSeekCommandPrintsEmbedLink(t *testing.T) {
	h := newTestModel(t)
	h.enterChat(t)
	m := h.model
	m.composer.SetValue("/seek 01:30")

	m.submitComposer()
	if m.errorMessage != "" {
		t.Fatalf("unexpected error: %q", m.errorMessage)
	}
	if !strings.Contains(m.infoMessage, "embed/dQw4w9WgXcQ?start=90") {
		t.Fatalf("info = %q, want an embed link at 90s", m.infoMessage)
	}
}

func TestSeekCommandRejectsMalformedTimestamp(t *testing.T) {
	h := newTestModel(t)
	h.enterChat(t)
	m := h.model
	m.composer.SetValue("/seek ninety")

	m.submitComposer()
	if m.errorMessage == "" {
		t.Fatal("malformed timestamp should surface an error")
	}
}

func TestCycleSessionStartsSelectJob(t *testing.T) {
	h := newTestModel(t)
	h.enterChat(t)
	m := h.model
	m.snap.Sessions = []session.Session{
		{ID: 41, Title: "Go Concurrency", VideoID: "dQw4w9WgXcQ"},
		{ID: 7, Title: "Earlier Chat", VideoID: "abcdefghijk"},
	}

	_, cmd := m.cycleSession()
	if cmd == nil {
		t.Fatal("cycle should start the select job")
	}
	if !m.selectingSession {
		t.Fatal("selectingSession should be set")
	}
	if !strings.Contains(m.infoMessage, "Earlier Chat") {
		t.Fatalf("info = %q, want the next session title", m.infoMessage)
	}
}

func TestLogoutReturnsToAuthAndClosesChannel(t *testing.T) {
	h := newTestModel(t)
	h.enterChat(t)
	m := h.model

	m.logout()
	if m.stage != stageAuth {
		t.Fatalf("stage = %v, want auth", m.stage)
	}
	if !h.lastConn(t).closed {
		t.Fatal("logout should close the bound channel")
	}
	if m.pumping {
		t.Fatal("pump should be dropped on logout")
	}
	if len(m.snap.Sessions) != 0 || m.snap.ActiveID != 0 {
		t.Fatalf("snapshot should be cleared, got %+v", m.snap)
	}
}
