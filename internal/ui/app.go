// Package ui is the terminal front end. It renders engine snapshots and turns
// keystrokes and slash commands into engine requests; it never touches
// debate state directly.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"aidebate/internal/api"
	"aidebate/internal/commands"
	"aidebate/internal/db"
	"aidebate/internal/debate"
	"aidebate/internal/export"
	"aidebate/internal/session"
)

// Engine is the set of debate requests the UI issues.
type Engine interface {
	Initialize(topicID, topic string)
	Start()
	Pause()
	Resume()
	Skip()
	Complete()
	Reset()
	Submit(text string)
	ToggleAudio(messageID string)
	StopAudio()
	SetLanguage(language string)
}

// TopicSource lists debate topics.
type TopicSource interface {
	ListTopics(ctx context.Context, category string) ([]api.Topic, error)
}

type Options struct {
	Engine  Engine
	Topics  TopicSource
	Archive Archive // nil when archiving is disabled
	// TopicID is used by /new without an argument.
	TopicID   string
	ExportDir string
	// MarkdownStyle is a glamour standard style name.
	MarkdownStyle string
	Logger        *slog.Logger
}

// SnapshotMsg carries a new engine snapshot into the program.
type SnapshotMsg debate.Snapshot

type (
	topicsMsg struct {
		topics []api.Topic
		err    error
	}
	historyMsg struct {
		debates []db.Debate
		err     error
	}
	exportedMsg struct {
		path string
		err  error
	}
)

const requestTimeout = 15 * time.Second

type Model struct {
	opts   Options
	logger *slog.Logger

	width, height int
	ready         bool
	view          ViewMode

	snap       debate.Snapshot
	transcript *TranscriptView
	input      textinput.Model
	history    *HistoryState
	topics     *TopicState

	// status is local feedback such as "exported to ..."
	status      string
	statusError bool
}

func New(opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ti := textinput.New()
	ti.Placeholder = "Type /help for commands"
	ti.Prompt = "> "
	ti.CharLimit = 4000
	ti.Focus()

	return Model{
		opts:       opts,
		logger:     logger,
		input:      ti,
		transcript: NewTranscriptView(80, 20, opts.MarkdownStyle),
		history:    NewHistoryState(),
		topics:     &TopicState{},
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.input.Width = max(msg.Width-4, 10)
		m.history.SetMaxHeight(msg.Height)
		m.transcript.Resize(msg.Width, m.transcriptHeight())
		m.transcript.Update(m.snap)
		return m, nil

	case SnapshotMsg:
		m.snap = debate.Snapshot(msg)
		m.transcript.Update(m.snap)
		m.updatePlaceholder()
		return m, nil

	case topicsMsg:
		if msg.err != nil {
			m.logger.Warn("listing topics", "error", msg.err)
			m.setStatus("listing topics: "+msg.err.Error(), true)
			return m, nil
		}
		m.topics.Set(msg.topics)
		m.view = ViewTopics
		return m, nil

	case historyMsg:
		if msg.err != nil {
			m.setStatus("loading history: "+msg.err.Error(), true)
			return m, nil
		}
		m.history.SetDebates(msg.debates)
		m.view = ViewHistory
		return m, nil

	case exportedMsg:
		if msg.err != nil {
			m.logger.Warn("export failed", "error", msg.err)
			m.setStatus("export failed: "+msg.err.Error(), true)
		} else {
			m.setStatus("exported to "+msg.path, false)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.transcript.Viewport, cmd = m.transcript.Viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyF1:
		if m.view == ViewHelp {
			m.view = ViewNormal
		} else {
			m.view = ViewHelp
		}
		return m, nil
	case tea.KeyF2:
		return m, m.loadTopics("")
	case tea.KeyF3:
		return m, m.loadHistory()
	case tea.KeyEsc:
		m.view = ViewNormal
		return m, nil
	}

	switch m.view {
	case ViewHelp:
		return m, nil

	case ViewHistory:
		switch msg.Type {
		case tea.KeyUp:
			m.history.Up()
		case tea.KeyDown:
			m.history.Down()
		case tea.KeyEnter:
			if sel := m.history.Selected(); sel != nil {
				m.view = ViewNormal
				return m, m.exportArchived(sel.ID, "")
			}
		}
		return m, nil

	case ViewTopics:
		switch msg.Type {
		case tea.KeyUp:
			m.topics.Up()
		case tea.KeyDown:
			m.topics.Down()
		case tea.KeyEnter:
			if sel := m.topics.Selected(); sel != nil {
				m.view = ViewNormal
				m.newDebate(sel.ID.String(), sel.Title)
			}
		}
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEnter:
		text := m.input.Value()
		m.input.SetValue("")
		return m.submit(text)
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.transcript.Viewport, cmd = m.transcript.Viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit handles one line of input.
func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	text = strings.TrimSpace(text)
	if text == "" {
		return m, nil
	}
	m.status = ""

	cmd := commands.Parse(text)
	if cmd == nil {
		if m.snap.Mode != debate.Interactive {
			m.setStatus("arguments are only accepted in interactive mode; try /help", true)
			return m, nil
		}
		m.opts.Engine.Submit(text)
		return m, nil
	}

	e := m.opts.Engine
	switch c := cmd.(type) {
	case commands.Help:
		m.view = ViewHelp
	case commands.ListTopics:
		return m, m.loadTopics(c.Category)
	case commands.NewDebate:
		id := c.TopicID
		if id == "" {
			id = m.opts.TopicID
		}
		if id == "" {
			return m, m.loadTopics("")
		}
		title := ""
		if t := m.topics.Find(id); t != nil {
			title = t.Title
		}
		m.newDebate(id, title)
	case commands.Start:
		e.Start()
	case commands.Pause:
		e.Pause()
	case commands.Resume:
		e.Resume()
	case commands.Skip:
		e.Skip()
	case commands.Complete:
		e.Complete()
	case commands.Reset:
		e.Reset()
	case commands.Play:
		if c.Index > len(m.snap.Messages) {
			m.setStatus(fmt.Sprintf("no message #%d", c.Index), true)
			return m, nil
		}
		e.ToggleAudio(m.snap.Messages[c.Index-1].ID)
	case commands.StopAudio:
		e.StopAudio()
	case commands.SetLanguage:
		if !debate.SupportedLanguage(c.Language) {
			m.setStatus("unsupported language "+c.Language, true)
			return m, nil
		}
		e.SetLanguage(c.Language)
		m.setStatus("language set to "+c.Language, false)
	case commands.ShowHistory:
		return m, m.loadHistory()
	case commands.Export:
		return m, m.exportCurrent(c.Dir)
	case commands.Quit:
		return m, tea.Quit
	case commands.ParseError:
		m.setStatus(c.Message, true)
	}
	return m, nil
}

func (m *Model) newDebate(topicID, title string) {
	if m.snap.Status != session.NotStarted {
		m.opts.Engine.Reset()
	}
	m.opts.Engine.Initialize(topicID, title)
}

func (m *Model) setStatus(text string, isError bool) {
	m.status = text
	m.statusError = isError
}

func (m *Model) updatePlaceholder() {
	switch {
	case m.snap.Mode == debate.Interactive && m.snap.InputEnabled:
		m.input.Placeholder = fmt.Sprintf("Your argument for round %d", m.snap.Round)
	case m.snap.Status == session.NotStarted:
		m.input.Placeholder = "Type /topics or /new <id> to set up a debate"
	case m.snap.Status == session.Initialized:
		m.input.Placeholder = "Type /start to begin"
	default:
		m.input.Placeholder = "Type /help for commands"
	}
}

func (m Model) loadTopics(category string) tea.Cmd {
	src := m.opts.Topics
	if src == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		topics, err := src.ListTopics(ctx, category)
		return topicsMsg{topics: topics, err: err}
	}
}

func (m Model) loadHistory() tea.Cmd {
	archive := m.opts.Archive
	return func() tea.Msg {
		if archive == nil {
			return historyMsg{err: errNoArchive}
		}
		debates, err := archive.ListDebates()
		return historyMsg{debates: debates, err: err}
	}
}

func (m Model) exportDir(dir string) string {
	if dir != "" {
		return dir
	}
	if m.opts.ExportDir != "" {
		return m.opts.ExportDir
	}
	return "."
}

func (m Model) exportCurrent(dir string) tea.Cmd {
	if len(m.snap.Messages) == 0 {
		return func() tea.Msg { return exportedMsg{err: fmt.Errorf("nothing to export")} }
	}
	doc := snapshotExport(m.snap)
	dir = m.exportDir(dir)
	return func() tea.Msg {
		path, err := export.WriteDebate(doc, dir)
		return exportedMsg{path: path, err: err}
	}
}

func (m Model) exportArchived(id, dir string) tea.Cmd {
	archive := m.opts.Archive
	dir = m.exportDir(dir)
	return func() tea.Msg {
		doc, err := LoadArchived(archive, id)
		if err != nil {
			return exportedMsg{err: err}
		}
		path, err := export.WriteDebate(doc, dir)
		return exportedMsg{path: path, err: err}
	}
}

func snapshotExport(s debate.Snapshot) *export.DebateExport {
	doc := &export.DebateExport{
		ID:        s.ArchiveID,
		SessionID: s.SessionID,
		Topic:     s.Topic,
		Mode:      string(s.Mode),
		Language:  s.Language,
		CreatedAt: time.Now(),
		MaxRounds: s.MaxRounds,
		Messages:  s.Messages,
		Rounds:    s.Rounds,
		SideA:     s.SideA,
		SideB:     s.SideB,
	}
	if len(s.Messages) > 0 {
		doc.CreatedAt = s.Messages[0].Timestamp
	}
	if r := s.Result; r != nil {
		doc.Winner = r.Winner
		doc.Assessment = r.Assessment
		if r.SideA != nil {
			doc.SideA = *r.SideA
		}
		if r.SideB != nil {
			doc.SideB = *r.SideB
		}
	}
	return doc
}

// transcriptHeight leaves room for the header, notice line and input.
func (m Model) transcriptHeight() int {
	return max(m.height-7, 3)
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	switch m.view {
	case ViewHelp:
		return m.renderHelp()
	case ViewHistory:
		return m.history.Render(m.width, m.height)
	case ViewTopics:
		return m.topics.Render(m.width, m.height)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.transcript.Viewport.View(),
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	s := m.snap
	title := TitleStyle.Render("AI DEBATE")
	if s.Topic != "" {
		title += " " + lipgloss.NewStyle().Foreground(White).Render(s.Topic)
	}

	parts := []string{statusBadge(s.Status)}
	if s.Status != session.NotStarted {
		switch {
		case s.Judging:
			parts = append(parts, "Judging")
		default:
			parts = append(parts, fmt.Sprintf("Round %d/%d", s.Round, s.MaxRounds))
		}
		clock := formatClock(s.Remaining)
		if s.TimerRunning && s.Remaining <= 30*time.Second {
			clock = StatusCrit.Render(clock)
		}
		parts = append(parts, clock)
		parts = append(parts,
			SpeakerStyle("AFFIRMATIVE").Render(fmt.Sprintf("AFF %.1f", s.SideA))+" "+
				SpeakerStyle("NEGATIVE").Render(fmt.Sprintf("NEG %.1f", s.SideB)))
	}
	parts = append(parts, DimStyle.Render(string(s.Mode)+" · "+s.Language))
	if s.Pending != "" {
		parts = append(parts, StatusWarn.Render(string(s.Pending)+"..."))
	}

	line := strings.Join(parts, DimStyle.Render("  │  "))
	return lipgloss.JoinVertical(lipgloss.Left, title, line, DimStyle.Render(strings.Repeat("─", max(m.width, 1))))
}

func (m Model) renderFooter() string {
	var notice string
	switch {
	case m.status != "":
		style := SystemStyle
		if m.statusError {
			style = ErrorStyle
		}
		notice = style.Render(m.status)
	case m.snap.Result != nil && m.snap.Status == session.Completed:
		notice = resultLine(m.snap.Result)
	default:
		if n, ok := m.snap.LastNotice(); ok {
			notice = noticeStyle(n.Level).Render(n.Text)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		DimStyle.Render(strings.Repeat("─", max(m.width, 1))),
		notice,
		m.input.View(),
	)
}

func resultLine(r *debate.Result) string {
	var sb strings.Builder
	sb.WriteString("Winner: ")
	if r.Winner != "" {
		sb.WriteString(r.Winner)
	} else {
		sb.WriteString("undecided")
	}
	if r.SideA != nil && r.SideB != nil {
		sb.WriteString(fmt.Sprintf("  (%.1f - %.1f)", *r.SideA, *r.SideB))
	}
	return StatusOK.Render(sb.String())
}
