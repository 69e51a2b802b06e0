// internal/ui/styles.go
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"aidebate/internal/audio"
	"aidebate/internal/debate"
	"aidebate/internal/session"
	"aidebate/internal/transcript"
)

var (
	// Colors
	Cyan    = lipgloss.Color("#00FFFF")
	Green   = lipgloss.Color("#00FF00")
	Yellow  = lipgloss.Color("#FFD700")
	Orange  = lipgloss.Color("#FFA500")
	Red     = lipgloss.Color("#FF6B6B")
	Magenta = lipgloss.Color("#FF00FF")
	SkyBlue = lipgloss.Color("#87CEEB")
	Dim     = lipgloss.Color("#555555")
	White   = lipgloss.Color("#FFFFFF")

	// Speaker colors
	AffirmativeColor = SkyBlue
	NegativeColor    = Orange
	ModeratorColor   = Yellow
	OrganizerColor   = Magenta
	JudgeColor       = Green

	overlayBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Cyan)

	// Text styles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Cyan)

	SystemStyle = lipgloss.NewStyle().
			Foreground(Yellow)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(Dim)

	// Status indicators
	StatusOK   = lipgloss.NewStyle().Foreground(Green).Bold(true)
	StatusWarn = lipgloss.NewStyle().Foreground(Orange).Bold(true)
	StatusCrit = lipgloss.NewStyle().Foreground(Red).Bold(true)
)

// SpeakerColor returns the color for a transcript speaker
func SpeakerColor(speaker transcript.Speaker) lipgloss.Color {
	switch speaker {
	case transcript.Affirmative:
		return AffirmativeColor
	case transcript.Negative:
		return NegativeColor
	case transcript.Moderator:
		return ModeratorColor
	case transcript.Organizer:
		return OrganizerColor
	case transcript.Judge:
		return JudgeColor
	default:
		return White
	}
}

// SpeakerStyle returns the header style for a transcript speaker
func SpeakerStyle(speaker transcript.Speaker) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(SpeakerColor(speaker)).Bold(true)
}

// statusBadge renders the session status
func statusBadge(status session.Status) string {
	switch status {
	case session.InProgress:
		return StatusOK.Render("● LIVE")
	case session.Paused:
		return StatusWarn.Render("❚❚ PAUSED")
	case session.Completed:
		return TitleStyle.Render("✓ FINISHED")
	case session.Initialized:
		return SystemStyle.Render("○ READY")
	default:
		return DimStyle.Render("○ NO DEBATE")
	}
}

// audioIndicator renders the playback state of one message
func audioIndicator(state audio.State) string {
	switch state {
	case audio.Loading:
		return StatusWarn.Render("…")
	case audio.Playing:
		return StatusOK.Render("▶")
	case audio.Paused:
		return StatusWarn.Render("❚❚")
	case audio.Failed:
		return StatusCrit.Render("✗")
	default:
		return ""
	}
}

func noticeStyle(level debate.NoticeLevel) lipgloss.Style {
	switch level {
	case debate.NoticeError:
		return ErrorStyle
	case debate.NoticeWarn:
		return StatusWarn
	default:
		return SystemStyle
	}
}

// overlay centers content in a bordered box filling the screen.
func overlay(width, height, padX int, content string) string {
	box := overlayBox.
		Padding(1, padX).
		MaxWidth(width - 10).
		MaxHeight(height - 4)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box.Render(content))
}
