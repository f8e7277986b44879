package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chitrank123/TubeMind-Pro/internal/chat"
)

type frameServer struct {
	*httptest.Server
	accepted chan *websocket.Conn
	queries  chan map[string]string
}

func newFrameServer(t *testing.T) *frameServer {
	t.Helper()
	fs := &frameServer{
		accepted: make(chan *websocket.Conn, 1),
		queries:  make(chan map[string]string, 1),
	}
	upgrader := websocket.Upgrader{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws/chat" {
			http.NotFound(w, r)
			return
		}
		fs.queries <- map[string]string{
			"token":      r.URL.Query().Get("token"),
			"session_id": r.URL.Query().Get("session_id"),
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		fs.accepted <- conn
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *frameServer) wsURL() string {
	return "ws" + strings.TrimPrefix(fs.URL, "http")
}

func dialTestChannel(t *testing.T, fs *frameServer) (*Channel, *websocket.Conn) {
	t.Helper()
	ch, err := Dial(context.Background(), Config{
		BaseURL:   fs.wsURL(),
		Token:     "tok-123",
		SessionID: 7,
		WatchURL:  "https://www.youtube.com/watch?v=abcdefghijk",
	})
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { _ = ch.Close() })
	select {
	case conn := <-fs.accepted:
		return ch, conn
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted the connection")
		return nil, nil
	}
}

func waitEvent(t *testing.T, ch *Channel) Event {
	t.Helper()
	select {
	case ev, ok := <-ch.Events():
		if !ok {
			t.Fatal("event stream closed unexpectedly")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestDialCarriesTokenAndSessionID(t *testing.T) {
	fs := newFrameServer(t)
	_, serverConn := dialTestChannel(t, fs)
	defer serverConn.Close()

	params := <-fs.queries
	if params["token"] != "tok-123" {
		t.Fatalf("token param = %q", params["token"])
	}
	if params["session_id"] != "7" {
		t.Fatalf("session_id param = %q", params["session_id"])
	}
}

func TestSendWritesOutboundFrame(t *testing.T) {
	fs := newFrameServer(t)
	ch, serverConn := dialTestChannel(t, fs)
	defer serverConn.Close()

	if err := ch.Send("summarize"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	var frame struct {
		Message string `json:"message"`
		URL     string `json:"url"`
	}
	if err := serverConn.ReadJSON(&frame); err != nil {
		t.Fatalf("server read failed: %v", err)
	}
	if frame.Message != "summarize" {
		t.Fatalf("message field = %q", frame.Message)
	}
	if frame.URL != "https://www.youtube.com/watch?v=abcdefghijk" {
		t.Fatalf("url field must carry the full watch URL, got %q", frame.URL)
	}
}

func TestSendRejectsEmptyText(t *testing.T) {
	fs := newFrameServer(t)
	ch, serverConn := dialTestChannel(t, fs)
	defer serverConn.Close()

	if err := ch.Send("  "); !errors.Is(err, chat.ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestInboundFramesBecomeTypedEvents(t *testing.T) {
	fs := newFrameServer(t)
	ch, serverConn := dialTestChannel(t, fs)
	defer serverConn.Close()

	writeFrame := func(payload any) {
		t.Helper()
		buf, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal frame: %v", err)
		}
		if err := serverConn.WriteMessage(websocket.TextMessage, buf); err != nil {
			t.Fatalf("server write failed: %v", err)
		}
	}

	writeFrame(map[string]any{"type": "thought", "data": "searching transcript"})
	writeFrame(map[string]any{
		"type":        "result",
		"data":        "done",
		"meta":        map[string]any{"thoughts": []string{"searching transcript"}, "score": 85},
		"suggestions": []string{"what else?"},
	})

	thought, ok := waitEvent(t, ch).(ThoughtEvent)
	if !ok || thought.Data != "searching transcript" {
		t.Fatalf("expected thought event, got %#v", thought)
	}
	result, ok := waitEvent(t, ch).(ResultEvent)
	if !ok {
		t.Fatalf("expected result event")
	}
	if result.Text != "done" {
		t.Fatalf("result text = %q", result.Text)
	}
	if result.Meta == nil || result.Meta.Score != 85 {
		t.Fatalf("result meta = %+v", result.Meta)
	}
	if len(result.Suggestions) != 1 || result.Suggestions[0] != "what else?" {
		t.Fatalf("result suggestions = %#v", result.Suggestions)
	}
}

func TestServerClosureDeliversClosedEvent(t *testing.T) {
	fs := newFrameServer(t)
	ch, serverConn := dialTestChannel(t, fs)

	serverConn.Close()

	closed, ok := waitEvent(t, ch).(ClosedEvent)
	if !ok {
		t.Fatalf("expected closed event, got %#v", closed)
	}
	if closed.Err == nil {
		t.Fatal("unexpected closure should carry the read error")
	}
	if _, open := <-ch.Events(); open {
		t.Fatal("event stream should close after the terminal event")
	}
	if err := ch.Send("late"); !errors.Is(err, ErrChannelNotReady) {
		t.Fatalf("send after closure should fail closed, got %v", err)
	}
}

func TestSendAfterCloseFailsClosed(t *testing.T) {
	fs := newFrameServer(t)
	ch, serverConn := dialTestChannel(t, fs)
	defer serverConn.Close()

	if err := ch.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := ch.Send("hello"); !errors.Is(err, ErrChannelNotReady) {
		t.Fatalf("expected ErrChannelNotReady, got %v", err)
	}
	if _, open := <-ch.Events(); open {
		t.Fatal("deliberate close should end the event stream without a closed event")
	}
}
