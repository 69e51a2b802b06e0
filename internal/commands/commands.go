// Package commands handles slash command parsing for the debate TUI.
package commands

import (
	"fmt"
	"strconv"
	"strings"
)

// Command interface for all command types
type Command interface {
	Type() string
}

// Help returns help text
type Help struct{}

func (Help) Type() string { return "help" }

// ListTopics shows the topics offered by the server
type ListTopics struct {
	Category string
}

func (ListTopics) Type() string { return "topics" }

// NewDebate resets and initializes a debate on a topic. An empty TopicID
// means the configured or currently selected topic.
type NewDebate struct {
	TopicID string
}

func (NewDebate) Type() string { return "new" }

// Start starts an initialized debate
type Start struct{}

func (Start) Type() string { return "start" }

// Pause pauses the current debate
type Pause struct{}

func (Pause) Type() string { return "pause" }

// Resume resumes a paused debate
type Resume struct{}

func (Resume) Type() string { return "resume" }

// Skip jumps to the verdict
type Skip struct{}

func (Skip) Type() string { return "skip" }

// Complete asks the server for the final verdict
type Complete struct{}

func (Complete) Type() string { return "complete" }

// Reset abandons the current debate
type Reset struct{}

func (Reset) Type() string { return "reset" }

// Play toggles speech for the Nth transcript message (1-based)
type Play struct {
	Index int
}

func (Play) Type() string { return "play" }

// StopAudio stops any playback
type StopAudio struct{}

func (StopAudio) Type() string { return "stop" }

// SetLanguage switches the debate language
type SetLanguage struct {
	Language string
}

func (SetLanguage) Type() string { return "lang" }

// ShowHistory shows archived debates
type ShowHistory struct{}

func (ShowHistory) Type() string { return "history" }

// Export exports the current debate
type Export struct {
	Dir string
}

func (Export) Type() string { return "export" }

// Quit exits the program
type Quit struct{}

func (Quit) Type() string { return "quit" }

// ParseError represents a command parsing error
type ParseError struct {
	Message string
}

func (ParseError) Type() string { return "error" }

// Parse parses user input and returns the appropriate Command.
// Returns nil if the input is not a slash command.
func Parse(input string) Command {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return nil
	}

	// Split into command and arguments
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "/help", "/?":
		return Help{}

	case "/topics":
		return ListTopics{Category: strings.Join(args, " ")}

	case "/new":
		if len(args) > 1 {
			return ParseError{Message: "/new takes at most one topic id"}
		}
		if len(args) == 1 {
			return NewDebate{TopicID: args[0]}
		}
		return NewDebate{}

	case "/start":
		return Start{}

	case "/pause":
		return Pause{}

	case "/resume":
		return Resume{}

	case "/skip":
		return Skip{}

	case "/complete", "/end":
		return Complete{}

	case "/reset":
		return Reset{}

	case "/play":
		if len(args) != 1 {
			return ParseError{Message: "/play requires a message number"}
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return ParseError{Message: "invalid message number: " + args[0]}
		}
		return Play{Index: n}

	case "/stop":
		return StopAudio{}

	case "/lang":
		if len(args) != 1 {
			return ParseError{Message: "/lang requires a language: en or zh"}
		}
		return SetLanguage{Language: strings.ToLower(args[0])}

	case "/history":
		return ShowHistory{}

	case "/export":
		return Export{Dir: strings.Join(args, " ")}

	case "/quit", "/exit":
		return Quit{}

	default:
		return ParseError{Message: "unknown command: " + cmd}
	}
}

// Usage documents one slash command.
type Usage struct {
	Syntax      string
	Description string
}

// Usages lists every command in the order help shows them.
var Usages = []Usage{
	{"/help", "Show this help"},
	{"/topics [category]", "List debate topics"},
	{"/new [topic-id]", "Set up a new debate"},
	{"/start", "Start the debate"},
	{"/pause", "Pause the current debate"},
	{"/resume", "Resume a paused debate"},
	{"/skip", "Skip to the verdict"},
	{"/complete", "End the debate and request the verdict"},
	{"/reset", "Abandon the current debate"},
	{"/play <n>", "Play, pause or resume speech for message n"},
	{"/stop", "Stop audio playback"},
	{"/lang <en|zh>", "Switch language"},
	{"/history", "Show archived debates"},
	{"/export [dir]", "Export the transcript as markdown"},
	{"/quit", "Exit"},
}

// HelpText returns the help text for all available commands.
func HelpText() string {
	var sb strings.Builder
	sb.WriteString("Available commands:\n")
	for _, u := range Usages {
		fmt.Fprintf(&sb, "  %-22s - %s\n", u.Syntax, u.Description)
	}
	sb.WriteString("\nIn interactive mode, anything that is not a command is sent as your argument.")
	return sb.String()
}
