// internal/ui/help.go
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"aidebate/internal/audio"
	"aidebate/internal/commands"
)

var (
	helpSectionStyle = lipgloss.NewStyle().Bold(true).Foreground(Yellow)
	helpKeyStyle     = lipgloss.NewStyle().Bold(true).Foreground(Green)
	helpCmdStyle     = lipgloss.NewStyle().Foreground(Magenta)
	helpDescStyle    = lipgloss.NewStyle().Foreground(White)
)

type helpRow struct {
	key  string
	desc string
}

type helpSection struct {
	title string
	// keyStyle renders the left column; nil means plain dim text without
	// a key column.
	keyStyle *lipgloss.Style
	keyWidth int
	rows     []helpRow
}

var keybindingRows = []helpRow{
	{"Enter", "Run a command, or submit your argument"},
	{"PgUp / PgDn", "Scroll the transcript"},
	{"F1", "Toggle this help overlay"},
	{"F2", "Browse topics"},
	{"F3", "Browse archived debates"},
	{"Esc", "Close overlay"},
	{"Ctrl+C", "Quit"},
}

var debateFlowRows = []helpRow{
	{"", "1. Pick a topic with /topics or /new <id>"},
	{"", "2. /start begins the debate"},
	{"", "3. Automated: two AI debaters argue every round on their own"},
	{"", "   Interactive: type your argument, the AI answers each round"},
	{"", "4. Scores update after every round"},
	{"", "5. Judges give feedback and a winner is announced"},
	{"", ""},
	{"", "Finished debates are archived; see /history."},
}

func helpSections() []helpSection {
	cmdRows := make([]helpRow, 0, len(commands.Usages))
	for _, u := range commands.Usages {
		cmdRows = append(cmdRows, helpRow{u.Syntax, u.Description})
	}

	audioRows := []helpRow{
		{audioIndicator(audio.Loading), "Loading - speech is being synthesized"},
		{audioIndicator(audio.Playing), "Playing"},
		{audioIndicator(audio.Paused), "Paused - /play again to resume"},
		{audioIndicator(audio.Failed), "Error - playback failed"},
	}

	plain := lipgloss.NewStyle()
	return []helpSection{
		{title: "KEYBINDINGS", keyStyle: &helpKeyStyle, keyWidth: 14, rows: keybindingRows},
		{title: "SLASH COMMANDS", keyStyle: &helpCmdStyle, keyWidth: 22, rows: cmdRows},
		{title: "AUDIO INDICATORS", keyStyle: &plain, keyWidth: 3, rows: audioRows},
		{title: "HOW A DEBATE RUNS", rows: debateFlowRows},
	}
}

func (s helpSection) render(sb *strings.Builder) {
	sb.WriteString(helpSectionStyle.Render(s.title))
	sb.WriteString("\n\n")
	for _, r := range s.rows {
		switch {
		case s.keyStyle != nil:
			sb.WriteString("  " + s.keyStyle.Width(s.keyWidth).Render(r.key) + "  " + helpDescStyle.Render(r.desc))
		case r.desc != "":
			sb.WriteString("  " + DimStyle.Render(r.desc))
		}
		sb.WriteString("\n")
	}
}

// HelpContent returns the help overlay sized for the terminal.
func HelpContent(width, height int) string {
	var content strings.Builder

	content.WriteString(TitleStyle.Render("AI DEBATE HELP"))
	content.WriteString("\n\n")

	for i, s := range helpSections() {
		if i > 0 {
			content.WriteString("\n")
		}
		s.render(&content)
	}

	content.WriteString("\n")
	footer := DimStyle.Render("Press F1 or Esc to close this help")
	content.WriteString(lipgloss.PlaceHorizontal(width-8, lipgloss.Center, footer))

	return overlay(width, height, 3, content.String())
}

func (m Model) renderHelp() string {
	return HelpContent(m.width, m.height)
}
