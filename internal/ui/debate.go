// internal/ui/debate.go
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"aidebate/internal/debate"
	"aidebate/internal/transcript"
)

// TranscriptView renders finished messages as markdown plus the live
// preview of the turn being streamed.
type TranscriptView struct {
	Viewport viewport.Model

	style    string
	renderer *glamour.TermRenderer
	width    int
	// cache holds rendered markdown per message ID for the current width
	cache map[string]string
}

func NewTranscriptView(width, height int, style string) *TranscriptView {
	vp := viewport.New(width, height)
	vp.Style = lipgloss.NewStyle()
	vp.MouseWheelEnabled = true

	if style == "" {
		style = "dark"
	}
	v := &TranscriptView{Viewport: vp, style: style, cache: make(map[string]string)}
	v.setWidth(width)
	return v
}

// Resize changes the viewport size. Cached markdown is dropped when the
// width changes.
func (v *TranscriptView) Resize(width, height int) {
	v.Viewport.Width = width
	v.Viewport.Height = height
	if width != v.width {
		v.setWidth(width)
	}
}

func (v *TranscriptView) setWidth(width int) {
	v.width = width
	v.cache = make(map[string]string)
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(v.style),
		glamour.WithWordWrap(max(width-4, 20)),
	)
	if err != nil {
		v.renderer = nil
		return
	}
	v.renderer = r
}

// Update re-renders the transcript from snap. The view stays pinned to the
// bottom unless the user scrolled up.
func (v *TranscriptView) Update(snap debate.Snapshot) {
	follow := v.Viewport.AtBottom() || v.Viewport.TotalLineCount() == 0
	v.Viewport.SetContent(v.Render(snap))
	if follow {
		v.Viewport.GotoBottom()
	}
}

func (v *TranscriptView) Render(snap debate.Snapshot) string {
	var sb strings.Builder

	if len(snap.Messages) == 0 && !snap.Preview.Active {
		sb.WriteString(DimStyle.Render("No messages yet."))
		sb.WriteString("\n")
	}

	round := -1
	for i, msg := range snap.Messages {
		if msg.Round != round {
			round = msg.Round
			sb.WriteString(roundDivider(round, snap.MaxRounds, v.width))
			sb.WriteString("\n\n")
		}
		sb.WriteString(messageHeader(i+1, msg, audioIndicator(snap.Audio[msg.ID])))
		sb.WriteString("\n")
		sb.WriteString(v.markdown(msg))
		sb.WriteString("\n")
	}

	if p := snap.Preview; p.Active {
		header := SpeakerStyle(transcript.Speaker(p.Speaker)).Render(p.Speaker) + DimStyle.Render(" is speaking...")
		sb.WriteString(header)
		sb.WriteString("\n")
		sb.WriteString(indent(wordwrap.String(p.Content, max(v.width-4, 20))))
		sb.WriteString("\n")
	}

	return sb.String()
}

func (v *TranscriptView) markdown(msg transcript.Message) string {
	if out, ok := v.cache[msg.ID]; ok {
		return out
	}
	var out string
	if v.renderer != nil {
		if rendered, err := v.renderer.Render(msg.Content); err == nil {
			out = rendered
		}
	}
	if out == "" {
		out = indent(wordwrap.String(msg.Content, max(v.width-4, 20))) + "\n"
	}
	v.cache[msg.ID] = out
	return out
}

func messageHeader(n int, msg transcript.Message, audio string) string {
	ts := msg.Timestamp.Format("15:04")
	header := fmt.Sprintf("#%d [%s] %s", n, ts, speakerName(msg.Speaker))
	out := SpeakerStyle(msg.Speaker).Render(header)
	if msg.Type != "" && msg.Type != transcript.Argument {
		out += " " + DimStyle.Render(strings.ToLower(string(msg.Type)))
	}
	if audio != "" {
		out += " " + audio
	}
	return out
}

func roundDivider(round, maxRounds, width int) string {
	label := fmt.Sprintf(" Round %d ", round)
	switch {
	case round == 0:
		label = " Opening "
	case maxRounds > 0 && round > maxRounds:
		label = " Judging "
	}
	fill := max(width-lipgloss.Width(label), 4)
	left := fill / 2
	return DimStyle.Render(strings.Repeat("─", left) + label + strings.Repeat("─", fill-left))
}

func speakerName(s transcript.Speaker) string {
	switch s {
	case transcript.Affirmative:
		return "Affirmative"
	case transcript.Negative:
		return "Negative"
	case transcript.Moderator:
		return "Moderator"
	case transcript.Organizer:
		return "Organizer"
	case transcript.Judge:
		return "Judge"
	default:
		return string(s)
	}
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}

// formatClock formats the round countdown as m:ss
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
