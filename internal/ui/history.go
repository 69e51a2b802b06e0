// internal/ui/history.go
package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"aidebate/internal/db"
	"aidebate/internal/export"
	"aidebate/internal/scoring"
)

// ViewMode represents the current view state
type ViewMode int

const (
	ViewNormal ViewMode = iota
	ViewHelp
	ViewHistory
	ViewTopics
)

var errNoArchive = errors.New("debate archive not available")

// Archive is the read side of the debate archive.
type Archive interface {
	ListDebates() ([]db.Debate, error)
	GetDebate(id string) (*db.Debate, error)
	GetMessages(debateID string) ([]db.Message, error)
	GetRoundScores(debateID string) ([]scoring.RoundScore, error)
}

// HistoryState holds the state for the history browser
type HistoryState struct {
	debates   []db.Debate
	cursor    int
	scrollTop int
	maxHeight int
}

// NewHistoryState creates a new history state
func NewHistoryState() *HistoryState {
	return &HistoryState{maxHeight: 20}
}

// Up moves the cursor up
func (h *HistoryState) Up() {
	if h.cursor > 0 {
		h.cursor--
		if h.cursor < h.scrollTop {
			h.scrollTop = h.cursor
		}
	}
}

// Down moves the cursor down
func (h *HistoryState) Down() {
	if h.cursor < len(h.debates)-1 {
		h.cursor++
		if h.cursor >= h.scrollTop+h.maxHeight {
			h.scrollTop = h.cursor - h.maxHeight + 1
		}
	}
}

// Selected returns the currently selected debate, or nil if none
func (h *HistoryState) Selected() *db.Debate {
	if h.cursor >= 0 && h.cursor < len(h.debates) {
		return &h.debates[h.cursor]
	}
	return nil
}

// SetDebates replaces the list and moves the cursor to the top
func (h *HistoryState) SetDebates(debates []db.Debate) {
	h.debates = debates
	h.cursor = 0
	h.scrollTop = 0
}

// SetMaxHeight updates the max visible height
func (h *HistoryState) SetMaxHeight(height int) {
	h.maxHeight = max(height-10, 5)
}

// Render renders the history browser overlay
func (h *HistoryState) Render(width, height int) string {
	var content strings.Builder

	content.WriteString(TitleStyle.Render("DEBATE HISTORY"))
	content.WriteString("\n")
	content.WriteString(DimStyle.Render("Finished debates saved on this machine"))
	content.WriteString("\n\n")

	if len(h.debates) == 0 {
		content.WriteString(DimStyle.Render("No archived debates found."))
		content.WriteString("\n\n")
		content.WriteString(DimStyle.Render("Finished debates appear here."))
	} else {
		visibleEnd := min(h.scrollTop+h.maxHeight, len(h.debates))

		header := fmt.Sprintf("  %-8s  %-30s  %-12s  %-11s  %s",
			"ID", "Topic", "Winner", "Score", "Finished")
		content.WriteString(DimStyle.Render(header))
		content.WriteString("\n")
		content.WriteString(DimStyle.Render(strings.Repeat("-", 84)))
		content.WriteString("\n")

		for i := h.scrollTop; i < visibleEnd; i++ {
			d := h.debates[i]

			topic := truncate.StringWithTail(d.Topic, 30, "..")

			timeStr := d.UpdatedAt.Format("2006-01-02 15:04")
			if time.Since(d.UpdatedAt) < 24*time.Hour {
				timeStr = d.UpdatedAt.Format("Today 15:04")
			}

			winnerStyle := DimStyle
			if d.Winner != "" {
				winnerStyle = lipgloss.NewStyle().Foreground(Green)
			}
			winner := d.Winner
			if winner == "" {
				winner = "-"
			}

			cursor := "  "
			lineStyle := DimStyle
			if i == h.cursor {
				cursor = "> "
				lineStyle = lipgloss.NewStyle().Foreground(Cyan)
			}

			id := d.ID
			if len(id) > 8 {
				id = id[:8]
			}
			line := fmt.Sprintf("%-8s  %-30s  %s  %-11s  %s",
				id, topic, winnerStyle.Width(12).Render(winner),
				fmt.Sprintf("%.1f-%.1f", d.SideA, d.SideB), timeStr)

			content.WriteString(cursor)
			content.WriteString(lineStyle.Render(line))
			content.WriteString("\n")
		}

		if len(h.debates) > h.maxHeight {
			content.WriteString("\n")
			content.WriteString(DimStyle.Render(fmt.Sprintf("Showing %d-%d of %d",
				h.scrollTop+1, visibleEnd, len(h.debates))))
		}
	}

	content.WriteString("\n\n")
	content.WriteString(DimStyle.Render("Up/Down: Navigate | Enter: Export | Esc: Close"))

	return overlay(width, height, 2, content.String())
}

// LoadArchived loads an archived debate into an export document
func LoadArchived(archive Archive, debateID string) (*export.DebateExport, error) {
	if archive == nil {
		return nil, errNoArchive
	}

	d, err := archive.GetDebate(debateID)
	if err != nil {
		return nil, fmt.Errorf("failed to get debate: %w", err)
	}
	rows, err := archive.GetMessages(d.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	rounds, err := archive.GetRoundScores(d.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get round scores: %w", err)
	}
	return export.FromArchive(d, db.Transcript(rows), rounds), nil
}
