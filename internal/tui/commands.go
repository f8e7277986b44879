package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chitrank123/TubeMind-Pro/internal/session"
)

const (
	authTimeout = 30 * time.Second
	// Creation and selection both run the processing call, which can chunk
	// and embed a full transcript on the backend.
	sessionTimeout = 3 * time.Minute
)

func loginJob(auth AuthClient, username, password string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, authTimeout)
		defer cancel()
		creds, err := auth.Login(ctx, username, password)
		if err != nil {
			return authResultMsg{mode: authModeLogin, err: err}, err
		}
		return authResultMsg{mode: authModeLogin, creds: creds}, nil
	}
}

func registerJob(auth AuthClient, username, password string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, authTimeout)
		defer cancel()
		if err := auth.Register(ctx, username, password); err != nil {
			return authResultMsg{mode: authModeRegister, err: err}, err
		}
		return authResultMsg{mode: authModeRegister}, nil
	}
}

func loadSessionsJob(controller *session.Controller) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, authTimeout)
		defer cancel()
		err := controller.LoadSessions(ctx)
		return sessionsLoadedMsg{err: err}, err
	}
}

func createSessionJob(controller *session.Controller, url string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, sessionTimeout)
		defer cancel()
		sess, err := controller.Create(ctx, url)
		return createResultMsg{sess: sess, err: err}, err
	}
}

func selectSessionJob(controller *session.Controller, sess session.Session) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, sessionTimeout)
		defer cancel()
		err := controller.Select(ctx, sess)
		return selectResultMsg{sessionID: sess.ID, err: err}, err
	}
}

// waitForFrame blocks on the channel's event stream and wraps the next event
// for Update, stamped with the bind generation so frames from a superseded
// channel can be told apart from the live one. ok is false once the stream
// ends, which stops that pump.
func waitForFrame(ref session.ChannelRef) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ref.Events
		return frameMsg{sessionID: ref.SessionID, gen: ref.Gen, event: ev, ok: ok}
	}
}
