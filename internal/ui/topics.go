package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"aidebate/internal/api"
)

// TopicState is the topic picker overlay.
type TopicState struct {
	topics []api.Topic
	cursor int
}

func (t *TopicState) Set(topics []api.Topic) {
	t.topics = topics
	t.cursor = 0
}

func (t *TopicState) Up() {
	if t.cursor > 0 {
		t.cursor--
	}
}

func (t *TopicState) Down() {
	if t.cursor < len(t.topics)-1 {
		t.cursor++
	}
}

func (t *TopicState) Selected() *api.Topic {
	if t.cursor >= 0 && t.cursor < len(t.topics) {
		return &t.topics[t.cursor]
	}
	return nil
}

// Find returns the topic with the given ID.
func (t *TopicState) Find(id string) *api.Topic {
	for i := range t.topics {
		if t.topics[i].ID.String() == id {
			return &t.topics[i]
		}
	}
	return nil
}

func (t *TopicState) Render(width, height int) string {
	var content strings.Builder

	content.WriteString(TitleStyle.Render("TOPICS"))
	content.WriteString("\n\n")

	if len(t.topics) == 0 {
		content.WriteString(DimStyle.Render("The server offered no topics."))
	}

	rowWidth := uint(max(width-30, 30))
	for i, topic := range t.topics {
		cursor := "  "
		style := DimStyle
		if i == t.cursor {
			cursor = "> "
			style = lipgloss.NewStyle().Foreground(Cyan)
		}
		line := fmt.Sprintf("%-5s %s", topic.ID, topic.Title)
		if topic.Category != "" {
			line += " [" + topic.Category + "]"
		}
		content.WriteString(cursor)
		content.WriteString(style.Render(truncate.StringWithTail(line, rowWidth, "..")))
		content.WriteString("\n")
	}

	if sel := t.Selected(); sel != nil && sel.Description != "" {
		content.WriteString("\n")
		content.WriteString(DimStyle.Render(truncate.StringWithTail(sel.Description, rowWidth, "..")))
		content.WriteString("\n")
	}

	content.WriteString("\n")
	content.WriteString(DimStyle.Render("Up/Down: Navigate | Enter: New debate | Esc: Close"))

	return overlay(width, height, 2, content.String())
}
