package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/chitrank123/TubeMind-Pro/internal/chat"
	"github.com/chitrank123/TubeMind-Pro/internal/guide"
	"github.com/chitrank123/TubeMind-Pro/internal/session"
)

func (m *model) View() string {
	switch m.stage {
	case stageAuth:
		return m.viewAuth()
	case stageChat:
		return m.viewChat()
	default:
		return ""
	}
}

func (m *model) viewAuth() string {
	header := "Sign In"
	action := "log in"
	if m.authMode == authModeRegister {
		header = "Create Account"
		action = "register"
	}

	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render(header))
	b.WriteRune('\n')
	b.WriteString(m.usernameInput.View())
	b.WriteRune('\n')
	b.WriteString(m.passwordInput.View())
	b.WriteRune('\n')
	if m.authBusy {
		b.WriteString(helperStyle.Render(fmt.Sprintf("%s Contacting the backend…", m.spinner.View())))
		b.WriteRune('\n')
	}
	b.WriteString(helperStyle.Render(fmt.Sprintf("Enter: %s • Tab: switch field • Ctrl+T: toggle login/register • Ctrl+C: quit", action)))

	parts := []string{
		lipgloss.JoinVertical(lipgloss.Left, renderLogo(), taglineStyle.Render(heroTagline)),
		b.String(),
	}
	if m.errorMessage != "" {
		parts = append(parts, errorStyle.Render(m.errorMessage))
	}
	if m.infoMessage != "" {
		parts = append(parts, helperStyle.Render(m.infoMessage))
	}
	return joinNonEmpty(parts)
}

func (m *model) viewChat() string {
	m.refreshViewportIfDirty()
	parts := []string{
		m.heroView(),
		m.sessionStripView(),
		m.viewport.View(),
	}
	if m.errorMessage != "" {
		parts = append(parts, errorStyle.Render(m.errorMessage))
	}
	if m.infoMessage != "" {
		message := m.infoMessage
		if m.creatingSession || m.selectingSession || m.loadingSessions {
			message = fmt.Sprintf("%s %s", m.spinner.View(), message)
		}
		parts = append(parts, helperStyle.Render(message))
	}
	if m.helpVisible {
		if legend := m.keyLegendView(); legend != "" {
			parts = append(parts, legend)
		}
		parts = append(parts, m.helpView())
	}
	parts = append(parts, m.composerPanel(), m.statusBarView())
	return joinNonEmpty(parts)
}

func (m *model) heroView() string {
	logo := renderLogo()
	active, ok := m.activeSession()
	if !ok {
		return lipgloss.JoinVertical(
			lipgloss.Left,
			logo,
			taglineStyle.Render(heroTagline),
		)
	}

	title := heroTitleStyle.Render(wordwrap.String(displayTitle(active.Title), 48))
	meta := []string{helperStyle.Render(fmt.Sprintf("Video: %s", active.VideoID))}
	if m.snap.Connected {
		meta = append(meta, helperStyle.Render("Channel: live"))
	} else {
		meta = append(meta, errorStyle.Render("Channel: disconnected"))
	}
	content := strings.Join(append([]string{title}, meta...), "\n")
	summary := heroBoxStyle.Render(content)
	panel := lipgloss.JoinHorizontal(lipgloss.Top, logo, heroSummaryStyle.Render(summary))
	return lipgloss.JoinVertical(lipgloss.Left, panel, taglineStyle.Render(heroTagline))
}

func (m *model) activeSession() (session.Session, bool) {
	if m.snap.ActiveID == 0 {
		return session.Session{}, false
	}
	for _, sess := range m.snap.Sessions {
		if sess.ID == m.snap.ActiveID {
			return sess, true
		}
	}
	return session.Session{ID: m.snap.ActiveID, VideoID: m.snap.ActiveVideoID}, true
}

func (m *model) sessionStripView() string {
	if len(m.snap.Sessions) == 0 {
		return ""
	}
	const maxVisible = 5
	cells := []string{helperStyle.Render("Sessions:")}
	for idx, sess := range m.snap.Sessions {
		if idx == maxVisible {
			cells = append(cells, helperStyle.Render(fmt.Sprintf("+%d more", len(m.snap.Sessions)-maxVisible)))
			break
		}
		label := previewText(displayTitle(sess.Title), 24)
		if sess.ID == m.snap.ActiveID {
			cells = append(cells, activeSessionStyle.Render(label))
		} else {
			cells = append(cells, sessionStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func (m *model) composerPanel() string {
	header := "Ask TubeMind"
	help := "Enter: send • 1-9: pick a suggestion • /seek MM:SS: jump link • Ctrl+N: new video • Ctrl+P: switch session • ?: help"
	if m.composerMode == composerModeURL {
		header = "New Session"
		help = "Enter: process the URL • Esc: back to chat • Ctrl+P: switch session • Ctrl+C: quit"
	}
	return joinNonEmpty([]string{
		sectionHeaderStyle.Render(header),
		m.composer.View(),
		helperStyle.Render(help),
	})
}

func (m *model) statusBarView() string {
	stats := []string{fmt.Sprintf("User %s", m.snap.User.Username)}
	stats = append(stats, fmt.Sprintf("Sessions %d", len(m.snap.Sessions)))
	switch {
	case m.snap.Thinking:
		stats = append(stats, "Thinking…")
	case m.snap.Connected:
		stats = append(stats, "Channel live")
	case m.snap.ActiveID != 0:
		stats = append(stats, "Channel down")
	default:
		stats = append(stats, "No session")
	}
	if badges := m.jobStatusBadges(); len(badges) > 0 {
		stats = append(stats, badges...)
	}
	return statusBarStyle.Render(strings.Join(stats, "  •  "))
}

func (m *model) jobStatusBadges() []string {
	var badges []string
	for _, kind := range []jobKind{jobKindAuth, jobKindSessions, jobKindCreate, jobKindSelect} {
		snapshot, ok := m.recentJobs[kind]
		if !ok || snapshot.Status != jobStatusRunning {
			continue
		}
		badges = append(badges, fmt.Sprintf("%s running", kind))
	}
	return badges
}

func (m *model) buildConversationContent() string {
	var cb strings.Builder
	wrap := m.wrapWidth(4)

	if m.snap.ActiveID == 0 && len(m.snap.Messages) == 0 {
		m.writeChecklist(&cb, wrap)
		return cb.String()
	}

	cb.WriteString(sectionHeaderStyle.Render("Conversation"))
	cb.WriteRune('\n')
	for _, msg := range m.snap.Messages {
		m.writeMessage(&cb, msg, wrap)
	}
	if m.snap.Thinking {
		m.writeThinking(&cb, wrap)
	}
	m.writeRecommendations(&cb, wrap)
	return cb.String()
}

func (m *model) writeChecklist(cb *strings.Builder, wrap int) {
	cb.WriteString(sectionHeaderStyle.Render("Getting Started"))
	cb.WriteRune('\n')
	for idx, step := range guide.Build(guide.Metadata{Username: m.snap.User.Username}) {
		cb.WriteString(suggestionStyle.Render(fmt.Sprintf("%d. %s", idx+1, step.Title)))
		cb.WriteRune('\n')
		cb.WriteString(indentMultiline(helperStyle.Render(wordwrap.String(step.Description, wrap)), "   "))
		cb.WriteRune('\n')
	}
}

func (m *model) writeMessage(cb *strings.Builder, msg chat.Message, wrap int) {
	cb.WriteRune('\n')
	if msg.Role == chat.RoleUser {
		cb.WriteString(userLabelStyle.Render("You"))
	} else {
		cb.WriteString(aiLabelStyle.Render("TubeMind"))
	}
	cb.WriteRune('\n')
	cb.WriteString(indentMultiline(wordwrap.String(msg.Text, wrap), "  "))
	cb.WriteRune('\n')

	if msg.Meta != nil {
		if count := len(msg.Meta.Thoughts); count > 0 {
			cb.WriteString(thoughtStyle.Render(fmt.Sprintf("  reasoned in %d steps", count)))
			cb.WriteRune('\n')
		}
		if msg.Meta.Score > 0 {
			line := fmt.Sprintf("  confidence %.0f%%", msg.Meta.Score)
			if msg.Meta.Score < 70 {
				cb.WriteString(scoreLowStyle.Render(line))
			} else {
				cb.WriteString(scoreGoodStyle.Render(line))
			}
			cb.WriteRune('\n')
		}
	}
	for idx, suggestion := range msg.Suggestions {
		cb.WriteString(suggestionStyle.Render(fmt.Sprintf("  [%d] %s", idx+1, wordwrap.String(suggestion, wrap))))
		cb.WriteRune('\n')
	}
}

func (m *model) writeThinking(cb *strings.Builder, wrap int) {
	cb.WriteRune('\n')
	cb.WriteString(aiLabelStyle.Render("TubeMind"))
	cb.WriteRune('\n')
	for _, thought := range m.snap.Thoughts {
		cb.WriteString(thoughtStyle.Render(indentMultiline(wordwrap.String("∙ "+thought, wrap), "  ")))
		cb.WriteRune('\n')
	}
	cb.WriteString(helperStyle.Render(fmt.Sprintf("  %s Thinking…", m.spinner.View())))
	cb.WriteRune('\n')
}

func (m *model) writeRecommendations(cb *strings.Builder, wrap int) {
	recs := m.snap.Recommendations
	if len(recs.Videos) == 0 && len(recs.Blogs) == 0 {
		return
	}
	cb.WriteRune('\n')
	header := "Related Resources"
	if strings.TrimSpace(recs.Topic) != "" {
		header = fmt.Sprintf("Related Resources: %s", recs.Topic)
	}
	cb.WriteString(sectionHeaderStyle.Render(header))
	cb.WriteRune('\n')
	if len(recs.Videos) > 0 {
		cb.WriteString(suggestionStyle.Render("Related Videos"))
		cb.WriteRune('\n')
		writeLinkList(cb, recs.Videos, wrap)
	}
	if len(recs.Blogs) > 0 {
		cb.WriteString(suggestionStyle.Render("Related Articles"))
		cb.WriteRune('\n')
		writeLinkList(cb, recs.Blogs, wrap)
	}
}

func writeLinkList(cb *strings.Builder, links []chat.Link, wrap int) {
	for _, link := range links {
		cb.WriteString(" • ")
		cb.WriteString(wordwrap.String(link.Title, wrap))
		cb.WriteRune('\n')
		cb.WriteString(helperStyle.Render("   " + link.Link))
		cb.WriteRune('\n')
	}
}

type keyHint struct {
	Key         string
	Description string
}

func (m *model) keyLegendView() string {
	hints := []keyHint{
		{"↑/↓", "Scroll"},
		{"Enter", "Send / process"},
		{"1-9", "Send suggestion"},
		{"Ctrl+N", "New video URL"},
		{"Ctrl+P", "Switch session"},
		{"Ctrl+O", "Log out"},
		{"Esc", "Clear / back"},
		{"?", "Toggle help"},
		{"Ctrl+C", "Quit"},
	}
	rows := []string{sectionHeaderStyle.Render("Navigation Cheatsheet")}
	const columns = 3
	for i := 0; i < len(hints); i += columns {
		end := i + columns
		if end > len(hints) {
			end = len(hints)
		}
		var cells []string
		for _, hint := range hints[i:end] {
			key := keyStyle.Render(hint.Key)
			desc := keyDescStyle.Render(" " + hint.Description)
			cells = append(cells, lipgloss.JoinHorizontal(lipgloss.Top, key, desc))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return legendBoxStyle.Render(strings.Join(rows, "\n"))
}

func (m *model) helpView() string {
	lines := []string{
		sectionHeaderStyle.Render("How it works"),
		helperStyle.Render("• paste a YouTube URL (Ctrl+N) to build a session; the backend reads the transcript and wires up a live chat channel."),
		helperStyle.Render("• type a question and Enter sends it; the thinking panel streams each reasoning step before the answer lands."),
		helperStyle.Render("• answers can carry numbered follow-up suggestions; press the matching digit with an empty composer to send one."),
		helperStyle.Render("• /seek MM:SS prints a deep link into the current video at that timestamp."),
		helperStyle.Render("• Ctrl+P cycles through saved sessions and restores their history; Ctrl+O signs out."),
	}
	return helpBoxStyle.Render(strings.Join(lines, "\n"))
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}

func indentMultiline(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func previewText(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}

func (m *model) wrapWidth(padding int) int {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	if padding < 0 {
		padding = 0
	}
	available := width - padding
	if available < 20 {
		available = 20
	}
	return available
}

func renderLogo() string {
	if len(logoArtLines) == 0 {
		return ""
	}
	width := 0
	lineRunes := make([][]rune, len(logoArtLines))
	for i, line := range logoArtLines {
		runes := []rune(line)
		lineRunes[i] = runes
		if len(runes) > width {
			width = len(runes)
		}
	}
	width += 1
	height := len(logoArtLines) + 1

	type cell struct {
		r     rune
		style lipgloss.Style
	}

	grid := make([][]cell, height)
	for i := range grid {
		grid[i] = make([]cell, width)
	}

	for y, runes := range lineRunes {
		for x, r := range runes {
			if r == ' ' {
				continue
			}
			if y+1 < height && x+1 < width {
				grid[y+1][x+1] = cell{r: r, style: logoShadowStyle}
			}
		}
	}

	for y, runes := range lineRunes {
		for x, r := range runes {
			if r == ' ' {
				continue
			}
			grid[y][x] = cell{r: r, style: logoFaceStyle}
		}
	}

	lines := make([]string, height)
	for y, row := range grid {
		var b strings.Builder
		for _, c := range row {
			if c.r == 0 {
				b.WriteRune(' ')
				continue
			}
			b.WriteString(c.style.Render(string(c.r)))
		}
		lines[y] = b.String()
	}
	return logoContainerStyle.Render(strings.Join(lines, "\n"))
}

var (
	heroAccentColor        = lipgloss.Color("#56cfe1")
	heroTextColor          = lipgloss.Color("#f6fff8")
	heroDeepColor          = lipgloss.Color("#14213d")
	heroSecondaryTextColor = lipgloss.Color("#a9b1d6")

	heroTitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(heroAccentColor)
	heroBoxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(heroAccentColor).Foreground(heroTextColor).Background(heroDeepColor).Padding(1, 2)
	heroSummaryStyle   = lipgloss.NewStyle().PaddingLeft(2)
	keyStyle           = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1)
	keyDescStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0def4"))
	legendBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(1, 2)
	logoFaceStyle      = lipgloss.NewStyle().Bold(true).Foreground(heroTextColor).Background(heroDeepColor)
	logoShadowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#050a14"))
	logoContainerStyle = lipgloss.NewStyle().Padding(0, 1)
	logoArtLines       = []string{
		"████████╗ ██╗   ██╗ ██████╗  ███████╗ ███╗   ███╗ ██╗ ███╗   ██╗ ██████╗ ",
		"╚══██╔══╝ ██║   ██║ ██╔══██╗ ██╔════╝ ████╗ ████║ ██║ ████╗  ██║ ██╔══██╗",
		"   ██║    ██║   ██║ ██████╔╝ █████╗   ██╔████╔██║ ██║ ██╔██╗ ██║ ██║  ██║",
		"   ██║    ██║   ██║ ██╔══██╗ ██╔══╝   ██║╚██╔╝██║ ██║ ██║╚██╗██║ ██║  ██║",
		"   ██║    ╚██████╔╝ ██████╔╝ ███████╗ ██║ ╚═╝ ██║ ██║ ██║ ╚████║ ██████╔╝",
		"   ╚═╝     ╚═════╝  ╚═════╝  ╚══════╝ ╚═╝     ╚═╝ ╚═╝ ╚═╝  ╚═══╝ ╚═════╝ ",
	}
)
