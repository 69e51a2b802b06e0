package api

import (
	"fmt"

	"aidebate/internal/events"
)

// Topic is a debate motion offered by the server.
type Topic struct {
	ID          events.ID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Difficulty  string    `json:"difficulty,omitempty"`
}

// AIConfig is one AI debater persona.
type AIConfig struct {
	Personality    string `json:"personality"`
	ExpertiseLevel string `json:"expertiseLevel"`
}

// InitRequest creates a session. Automated debates set AIConfigs for both
// sides; interactive debates set UserSide and a single AIConfig.
type InitRequest struct {
	TopicID       events.ID           `json:"topicId"`
	UserID        events.ID           `json:"userId"`
	UserSide      string              `json:"userSide,omitempty"`
	AIConfig      *AIConfig           `json:"aiConfig,omitempty"`
	AIConfigs     map[string]AIConfig `json:"aiConfigs,omitempty"`
	AutoPlaySpeed string              `json:"autoPlaySpeed,omitempty"`
}

type InitResult struct {
	SessionID events.ID `json:"sessionId"`
	Status    string    `json:"status"`
}

// ControlResult is returned by start, pause, resume and skip-to-end.
type ControlResult struct {
	Status          string             `json:"status"`
	Message         string             `json:"message,omitempty"`
	CurrentPosition string             `json:"currentPosition,omitempty"`
	Winner          string             `json:"winner,omitempty"`
	FinalScores     map[string]float64 `json:"finalScores,omitempty"`
}

// CompleteResult carries the verdict. Which score fields are set depends on
// the debate mode.
type CompleteResult struct {
	Winner           string           `json:"winner,omitempty"`
	AffirmativeScore *float64         `json:"affirmativeScore,omitempty"`
	NegativeScore    *float64         `json:"negativeScore,omitempty"`
	FinalScoreUser   *float64         `json:"finalScoreUser,omitempty"`
	FinalScoreAI     *float64         `json:"finalScoreAI,omitempty"`
	Feedback         *events.Feedback `json:"feedback,omitempty"`
}

type ArgumentRequest struct {
	ArgumentText string `json:"argumentText"`
	RoundNumber  int    `json:"roundNumber"`
	Language     string `json:"language"`
}

type SpeechRequest struct {
	Text     string `json:"text"`
	Role     string `json:"role"`
	Language string `json:"language"`
}

// StatusError is a non-2xx response that was not retried.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

// ServerError is a 2xx control response whose status field reports failure.
type ServerError struct {
	Op      string
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return e.Op + " failed"
	}
	return e.Op + " failed: " + e.Message
}
