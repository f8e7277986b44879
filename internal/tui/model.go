package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/chitrank123/TubeMind-Pro/internal/api"
	"github.com/chitrank123/TubeMind-Pro/internal/chat"
	"github.com/chitrank123/TubeMind-Pro/internal/session"
	"github.com/chitrank123/TubeMind-Pro/internal/stream"
	"github.com/chitrank123/TubeMind-Pro/internal/videoref"
)

// AuthClient is the slice of the backend client the auth screen needs.
type AuthClient interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (api.Credentials, error)
}

// Config wires runtime collaborators into the TUI program.
type Config struct {
	Auth       AuthClient
	Controller *session.Controller
}

type stage int

const (
	stageAuth stage = iota
	stageChat
)

type authMode int

const (
	authModeLogin authMode = iota
	authModeRegister
)

type composerMode int

const (
	composerModeMessage composerMode = iota
	composerModeURL
)

const (
	composerMessagePlaceholder = "Ask a question about the video…"
	composerURLPlaceholder     = "Paste a YouTube URL…"
)

const heroTagline = "Converse with any video, thoughts first."

const (
	minViewportWidth          = 40
	viewportHorizontalPadding = 4
	viewportChromeHeight      = 14
	seekCommandPrefix         = "/seek "
)

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	usernameInput := textinput.New()
	usernameInput.Placeholder = "Username"
	usernameInput.CharLimit = 60
	usernameInput.Width = 40
	usernameInput.Focus()

	passwordInput := textinput.New()
	passwordInput.Placeholder = "Password"
	passwordInput.CharLimit = 120
	passwordInput.Width = 40
	passwordInput.EchoMode = textinput.EchoPassword
	passwordInput.EchoCharacter = '•'

	composer := textinput.New()
	composer.Placeholder = composerURLPlaceholder
	composer.CharLimit = 500
	composer.Width = 70

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	return &model{
		config:        config,
		stage:         stageAuth,
		authMode:      authModeLogin,
		usernameInput: usernameInput,
		passwordInput: passwordInput,
		composer:      composer,
		composerMode:  composerModeURL,
		spinner:       spin,
		viewport:      vp,
		bus:           newJobBus(),
		recentJobs:    map[jobKind]jobSnapshot{},
		viewportDirty: true,
		infoMessage:   "Log in or press Ctrl+T to create an account.",
	}
}

type model struct {
	config Config
	stage  stage

	authMode  authMode
	authFocus int
	authBusy  bool

	usernameInput textinput.Model
	passwordInput textinput.Model
	composer      textinput.Model
	composerMode  composerMode
	spinner       spinner.Model
	viewport      viewport.Model

	snap session.Snapshot

	creatingSession  bool
	selectingSession bool
	loadingSessions  bool

	pump    session.ChannelRef
	pumping bool

	bus        *jobBus
	recentJobs map[jobKind]jobSnapshot

	viewportDirty bool
	infoMessage   string
	errorMessage  string
	helpVisible   bool
}

type authResultMsg struct {
	mode  authMode
	creds api.Credentials
	err   error
}

type sessionsLoadedMsg struct {
	err error
}

type createResultMsg struct {
	sess session.Session
	err  error
}

type selectResultMsg struct {
	sessionID int64
	err       error
}

type frameMsg struct {
	sessionID int64
	gen       int64
	event     stream.Event
	ok        bool
}

func (m *model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) busy() bool {
	return m.authBusy || m.creatingSession || m.selectingSession || m.loadingSessions || m.snap.Thinking
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			m.markViewportDirty()
			return m, cmd
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		if m.stage == stageChat {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		return m, nil
	case tea.WindowSizeMsg:
		newWidth := msg.Width - viewportHorizontalPadding
		if newWidth < minViewportWidth {
			newWidth = minViewportWidth
		}
		m.viewport.Width = newWidth
		newHeight := msg.Height - viewportChromeHeight
		if newHeight < 8 {
			newHeight = 8
		}
		m.viewport.Height = newHeight
		m.markViewportDirty()
		return m, nil
	case jobSignalMsg:
		m.recentJobs[msg.Snapshot.Kind] = msg.Snapshot
		return m, nil
	case jobResultEnvelope:
		m.recentJobs[msg.Snapshot.Kind] = msg.Snapshot
		if msg.Payload == nil {
			return m, nil
		}
		return m.Update(msg.Payload)
	case authResultMsg:
		return m.handleAuthResult(msg)
	case sessionsLoadedMsg:
		m.loadingSessions = false
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("could not load sessions: %v", msg.err)
		}
		m.refreshSnapshot()
		return m, nil
	case createResultMsg:
		return m.handleCreateResult(msg)
	case selectResultMsg:
		return m.handleSelectResult(msg)
	case frameMsg:
		return m.handleFrame(msg)
	}
	return m, nil
}

func (m *model) handleAuthResult(msg authResultMsg) (tea.Model, tea.Cmd) {
	m.authBusy = false
	if msg.err != nil {
		// Backend auth details surface verbatim, matching the web client.
		m.errorMessage = msg.err.Error()
		return m, nil
	}
	if msg.mode == authModeRegister {
		m.authMode = authModeLogin
		m.errorMessage = ""
		m.infoMessage = "Account created! Please login."
		m.passwordInput.SetValue("")
		return m, nil
	}

	m.config.Controller.SetUser(msg.creds)
	m.stage = stageChat
	m.composerMode = composerModeURL
	m.composer.Placeholder = composerURLPlaceholder
	m.composer.Focus()
	m.usernameInput.Blur()
	m.passwordInput.Blur()
	m.errorMessage = ""
	m.infoMessage = "Paste a YouTube URL to start a session, or Ctrl+P to resume one."
	m.loadingSessions = true
	m.refreshSnapshot()
	return m, tea.Batch(
		m.bus.Start(jobKindSessions, loadSessionsJob(m.config.Controller)),
		m.spinner.Tick,
	)
}

func (m *model) handleCreateResult(msg createResultMsg) (tea.Model, tea.Cmd) {
	m.creatingSession = false
	m.refreshSnapshot()
	if msg.err != nil {
		m.errorMessage = msg.err.Error()
		m.infoMessage = "Try another YouTube URL."
		return m, nil
	}
	m.errorMessage = ""
	m.infoMessage = fmt.Sprintf("Session %q ready. Ask away.", msg.sess.Title)
	m.composerMode = composerModeMessage
	m.composer.Placeholder = composerMessagePlaceholder
	m.composer.SetValue("")
	return m, m.startFramePump()
}

func (m *model) handleSelectResult(msg selectResultMsg) (tea.Model, tea.Cmd) {
	m.selectingSession = false
	m.refreshSnapshot()
	if msg.err != nil {
		m.errorMessage = msg.err.Error()
		return m, nil
	}
	if m.snap.ActiveID != msg.sessionID {
		// A newer create or select won the race; its own result drives the UI.
		return m, nil
	}
	m.errorMessage = ""
	m.infoMessage = "Session restored with its full history."
	m.composerMode = composerModeMessage
	m.composer.Placeholder = composerMessagePlaceholder
	return m, m.startFramePump()
}

func (m *model) handleFrame(msg frameMsg) (tea.Model, tea.Cmd) {
	// Frames are matched on bind generation, never session id: a reconnect
	// rebinds the same session under a new generation, and the dying pump's
	// leftovers must not touch the fresh one.
	if !msg.ok {
		if msg.gen == m.pump.Gen {
			m.pumping = false
		}
		return m, nil
	}
	m.config.Controller.HandleEvent(msg.gen, msg.event)
	m.refreshSnapshot()
	if closed, isClosed := msg.event.(stream.ClosedEvent); isClosed {
		if msg.gen == m.pump.Gen {
			m.errorMessage = fmt.Sprintf("chat channel lost (%v); re-select the session to reconnect", closed.Err)
		}
	}
	if msg.gen != m.pump.Gen || !m.pumping {
		return m, nil
	}
	return m, tea.Batch(waitForFrame(m.pump), m.spinner.Tick)
}

// startFramePump begins draining the freshly bound channel. Pumps on stale
// channels starve out naturally once the controller closes them.
func (m *model) startFramePump() tea.Cmd {
	ref, ok := m.config.Controller.Channel()
	if !ok {
		return nil
	}
	m.pump = ref
	m.pumping = true
	return waitForFrame(ref)
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.stage == stageAuth {
		return m.handleAuthKey(msg)
	}
	return m.handleChatKey(msg)
}

func (m *model) handleAuthKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlT:
		if m.authMode == authModeLogin {
			m.authMode = authModeRegister
			m.infoMessage = "Pick a username and password, then press Enter."
		} else {
			m.authMode = authModeLogin
			m.infoMessage = "Log in or press Ctrl+T to create an account."
		}
		m.errorMessage = ""
		return m, nil
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
		m.authFocus = 1 - m.authFocus
		if m.authFocus == 0 {
			m.passwordInput.Blur()
			return m, m.usernameInput.Focus()
		}
		m.usernameInput.Blur()
		return m, m.passwordInput.Focus()
	case tea.KeyEnter:
		return m.submitAuth()
	case tea.KeyEsc:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	if m.authFocus == 0 {
		m.usernameInput, cmd = m.usernameInput.Update(msg)
	} else {
		m.passwordInput, cmd = m.passwordInput.Update(msg)
	}
	return m, cmd
}

func (m *model) submitAuth() (tea.Model, tea.Cmd) {
	if m.authBusy {
		return m, nil
	}
	username := strings.TrimSpace(m.usernameInput.Value())
	password := m.passwordInput.Value()
	if username == "" || password == "" {
		m.errorMessage = "Both username and password are required."
		return m, nil
	}
	m.authBusy = true
	m.errorMessage = ""
	runner := loginJob(m.config.Auth, username, password)
	if m.authMode == authModeRegister {
		runner = registerJob(m.config.Auth, username, password)
	}
	return m, tea.Batch(m.bus.Start(jobKindAuth, runner), m.spinner.Tick)
}

func (m *model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		return m.submitComposer()
	case tea.KeyEsc:
		if m.composer.Value() != "" {
			m.composer.SetValue("")
			return m, nil
		}
		if m.composerMode == composerModeURL && m.snap.ActiveID != 0 {
			m.setComposerMode(composerModeMessage)
			return m, nil
		}
		if m.helpVisible {
			m.helpVisible = false
			return m, nil
		}
		return m, nil
	case tea.KeyCtrlN:
		m.setComposerMode(composerModeURL)
		m.infoMessage = "Paste a YouTube URL and press Enter to start a new session."
		return m, nil
	case tea.KeyCtrlP:
		return m.cycleSession()
	case tea.KeyCtrlO:
		return m.logout()
	case tea.KeyUp, tea.KeyDown, tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.refreshViewportIfDirty()
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.composer.Value() == "" {
		switch key := msg.String(); key {
		case "?":
			m.helpVisible = !m.helpVisible
			return m, nil
		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			return m.sendSuggestion(int(key[0] - '0'))
		}
	}

	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

func (m *model) setComposerMode(mode composerMode) {
	m.composerMode = mode
	m.composer.SetValue("")
	if mode == composerModeURL {
		m.composer.Placeholder = composerURLPlaceholder
	} else {
		m.composer.Placeholder = composerMessagePlaceholder
	}
	m.composer.Focus()
}

func (m *model) submitComposer() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.composer.Value())
	if value == "" {
		return m, nil
	}
	if m.composerMode == composerModeURL {
		return m.startCreateSession(value)
	}
	if strings.HasPrefix(value, seekCommandPrefix) {
		return m.handleSeekCommand(strings.TrimPrefix(value, seekCommandPrefix))
	}
	return m.sendMessage(value)
}

func (m *model) startCreateSession(url string) (tea.Model, tea.Cmd) {
	if m.creatingSession {
		return m, nil
	}
	if videoref.ExtractContentRef(url) == "" {
		// Same check the controller runs, surfaced before any job starts.
		m.errorMessage = session.ErrInvalidReference.Error()
		return m, nil
	}
	m.creatingSession = true
	m.errorMessage = ""
	m.infoMessage = "Processing the video. This can take a moment…"
	m.composer.SetValue("")
	return m, tea.Batch(
		m.bus.Start(jobKindCreate, createSessionJob(m.config.Controller, url)),
		m.spinner.Tick,
	)
}

func (m *model) sendMessage(text string) (tea.Model, tea.Cmd) {
	if err := m.config.Controller.Send(text); err != nil {
		m.errorMessage = err.Error()
		m.refreshSnapshot()
		return m, nil
	}
	m.composer.SetValue("")
	m.errorMessage = ""
	m.refreshSnapshot()
	return m, m.spinner.Tick
}

func (m *model) sendSuggestion(number int) (tea.Model, tea.Cmd) {
	suggestions := m.latestSuggestions()
	if number < 1 || number > len(suggestions) {
		return m, nil
	}
	return m.sendMessage(suggestions[number-1])
}

func (m *model) latestSuggestions() []string {
	for i := len(m.snap.Messages) - 1; i >= 0; i-- {
		msg := m.snap.Messages[i]
		if msg.Role == chat.RoleAI && len(msg.Suggestions) > 0 {
			return msg.Suggestions
		}
	}
	return nil
}

func (m *model) handleSeekCommand(arg string) (tea.Model, tea.Cmd) {
	if m.snap.ActiveVideoID == "" {
		m.errorMessage = "No active video to seek into."
		return m, nil
	}
	seconds, err := videoref.ParseTimestamp(strings.TrimSpace(arg))
	if err != nil {
		m.errorMessage = err.Error()
		return m, nil
	}
	m.composer.SetValue("")
	m.errorMessage = ""
	m.infoMessage = fmt.Sprintf(
		"Jump to %s: %s",
		videoref.FormatTimestamp(seconds),
		videoref.EmbedURL(m.snap.ActiveVideoID, seconds),
	)
	return m, nil
}

func (m *model) cycleSession() (tea.Model, tea.Cmd) {
	if m.selectingSession || len(m.snap.Sessions) == 0 {
		return m, nil
	}
	next := m.snap.Sessions[0]
	if m.snap.ActiveID != 0 {
		for idx, sess := range m.snap.Sessions {
			if sess.ID == m.snap.ActiveID {
				next = m.snap.Sessions[(idx+1)%len(m.snap.Sessions)]
				break
			}
		}
	}
	m.selectingSession = true
	m.errorMessage = ""
	m.infoMessage = fmt.Sprintf("Opening %q…", displayTitle(next.Title))
	return m, tea.Batch(
		m.bus.Start(jobKindSelect, selectSessionJob(m.config.Controller, next)),
		m.spinner.Tick,
	)
}

func (m *model) logout() (tea.Model, tea.Cmd) {
	m.config.Controller.Logout()
	m.stage = stageAuth
	m.authMode = authModeLogin
	m.authFocus = 0
	m.usernameInput.SetValue("")
	m.passwordInput.SetValue("")
	m.composer.SetValue("")
	m.composerMode = composerModeURL
	m.pump = session.ChannelRef{}
	m.pumping = false
	m.helpVisible = false
	m.errorMessage = ""
	m.infoMessage = "Signed out. Log in to continue."
	m.refreshSnapshot()
	return m, m.usernameInput.Focus()
}

func (m *model) refreshSnapshot() {
	m.snap = m.config.Controller.Snapshot()
	m.markViewportDirty()
}

func (m *model) markViewportDirty() {
	m.viewportDirty = true
}

func (m *model) refreshViewportIfDirty() {
	if !m.viewportDirty {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.buildConversationContent())
	if atBottom {
		m.viewport.GotoBottom()
	}
	m.viewportDirty = false
}

func displayTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return "Untitled Chat"
	}
	return title
}

var (
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helperStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	taglineStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	userLabelStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	aiLabelStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("51"))
	thoughtStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	scoreGoodStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	scoreLowStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	suggestionStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("87"))
	activeSessionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("81")).Padding(0, 1)
	sessionStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Padding(0, 1)
	statusBarStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1)
	helpBoxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(1, 2)
)
