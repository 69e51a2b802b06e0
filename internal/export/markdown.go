// internal/export/markdown.go
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"aidebate/internal/db"
	"aidebate/internal/scoring"
	"aidebate/internal/transcript"
)

// DebateExport contains the data needed to export a debate
type DebateExport struct {
	ID         string
	SessionID  string
	Topic      string
	Mode       string
	Language   string
	CreatedAt  time.Time
	MaxRounds  int
	Messages   []transcript.Message
	Rounds     []scoring.RoundScore
	Winner     string
	SideA      float64
	SideB      float64
	Assessment string
}

// FromArchive builds an export from an archived debate.
func FromArchive(d *db.Debate, msgs []transcript.Message, rounds []scoring.RoundScore) *DebateExport {
	maxRounds := 0
	for _, r := range rounds {
		maxRounds = max(maxRounds, r.Round)
	}
	return &DebateExport{
		ID:         d.ID,
		SessionID:  d.SessionID,
		Topic:      d.Topic,
		Mode:       d.Mode,
		Language:   d.Language,
		CreatedAt:  d.CreatedAt,
		MaxRounds:  maxRounds,
		Messages:   msgs,
		Rounds:     rounds,
		Winner:     d.Winner,
		SideA:      d.SideA,
		SideB:      d.SideB,
		Assessment: d.Assessment,
	}
}

// ExportDebate generates a formatted markdown string from a debate
func ExportDebate(debate *DebateExport) string {
	var sb strings.Builder

	title := debate.Topic
	if title == "" {
		title = "Debate"
	}
	sb.WriteString("# ")
	sb.WriteString(title)
	sb.WriteString("\n\n")

	// Metadata section
	sb.WriteString("---\n\n")
	if debate.SessionID != "" {
		sb.WriteString(fmt.Sprintf("**Session:** `%s`\n\n", debate.SessionID))
	}
	sb.WriteString(fmt.Sprintf("**Created:** %s\n\n", debate.CreatedAt.Format("2006-01-02 15:04:05")))
	if debate.Mode != "" {
		sb.WriteString(fmt.Sprintf("**Mode:** %s\n\n", debate.Mode))
	}
	if debate.Language != "" {
		sb.WriteString(fmt.Sprintf("**Language:** %s\n\n", debate.Language))
	}
	sb.WriteString("---\n\n")

	if debate.Winner != "" || debate.SideA != 0 || debate.SideB != 0 {
		sb.WriteString("## Result\n\n")
		if debate.Winner != "" {
			sb.WriteString(fmt.Sprintf("**Winner:** %s\n\n", formatSpeaker(debate.Winner)))
		}
		sb.WriteString(fmt.Sprintf("**Final score:** Affirmative %.1f, Negative %.1f\n\n", debate.SideA, debate.SideB))
		if a := strings.TrimSpace(debate.Assessment); a != "" {
			sb.WriteString(a)
			sb.WriteString("\n\n")
		}
	}

	if len(debate.Rounds) > 0 {
		sb.WriteString("## Round Scores\n\n")
		sb.WriteString("| Round | Affirmative | Negative |\n")
		sb.WriteString("|------:|------------:|---------:|\n")
		for _, r := range debate.Rounds {
			sb.WriteString(fmt.Sprintf("| %d | %.1f | %.1f |\n", r.Round, r.SideA, r.SideB))
		}
		sb.WriteString("\n")
	}

	// Messages section
	sb.WriteString("## Transcript\n\n")

	section := -1
	for _, msg := range debate.Messages {
		if msg.Round != section {
			section = msg.Round
			sb.WriteString("### ")
			sb.WriteString(roundHeading(msg.Round, debate.MaxRounds))
			sb.WriteString("\n\n")
		}

		ts := msg.Timestamp.Format("15:04:05")
		sb.WriteString(fmt.Sprintf("#### [%s] %s\n\n", ts, formatSpeaker(string(msg.Speaker))))

		// Message content
		content := strings.TrimSpace(msg.Content)
		if containsCodeBlock(content) {
			sb.WriteString(content)
			sb.WriteString("\n")
		} else {
			// Wrap in blockquote for visual distinction
			for _, line := range strings.Split(content, "\n") {
				sb.WriteString("> ")
				sb.WriteString(line)
				sb.WriteString("\n")
			}
		}
		sb.WriteString("\n")
	}

	// Footer
	sb.WriteString("---\n\n")
	sb.WriteString(fmt.Sprintf("*Exported from aidebate on %s*\n", time.Now().Format("2006-01-02 15:04:05")))

	return sb.String()
}

// WriteDebate exports a debate to a markdown file in the debates directory
func WriteDebate(debate *DebateExport, baseDir string) (string, error) {
	// Generate filename: YYYY-MM-DD-name.md
	datePart := debate.CreatedAt.Format("2006-01-02")
	namePart := sanitizeFilename(debate.Topic)
	filename := fmt.Sprintf("%s-%s.md", datePart, namePart)

	debatesDir := filepath.Join(baseDir, "debates")
	if err := os.MkdirAll(debatesDir, 0755); err != nil {
		return "", fmt.Errorf("create debates directory: %w", err)
	}

	path := filepath.Join(debatesDir, filename)
	if err := os.WriteFile(path, []byte(ExportDebate(debate)), 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	return path, nil
}

func roundHeading(round, maxRounds int) string {
	switch {
	case round == 0:
		return "Opening"
	case maxRounds > 0 && round > maxRounds:
		return "Judging"
	default:
		return fmt.Sprintf("Round %d", round)
	}
}

// formatSpeaker returns a display name for a speaker
func formatSpeaker(speaker string) string {
	switch transcript.Speaker(strings.ToUpper(speaker)) {
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
		return speaker
	}
}

// sanitizeFilename removes/replaces characters unsuitable for filenames
func sanitizeFilename(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "-")

	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			sb.WriteRune(r)
		case r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '-' || r == '_':
			sb.WriteRune(r)
		}
	}

	result := sb.String()

	// Collapse multiple hyphens
	for strings.Contains(result, "--") {
		result = strings.ReplaceAll(result, "--", "-")
	}
	result = strings.Trim(result, "-")

	if result == "" {
		result = "debate"
	}
	if len(result) > 50 {
		result = result[:50]
	}

	return result
}

// containsCodeBlock checks if content already has markdown code blocks
func containsCodeBlock(content string) bool {
	return strings.Contains(content, "```")
}
