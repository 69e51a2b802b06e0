// internal/notify/client.go
// Lifecycle webhook for debate sessions.
// Emits fire-and-forget events to a configured HTTP endpoint.
package notify

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	Source = "aidebate"

	// Event types
	EventDebateInitialized = "debate_initialized"
	EventDebateStarted     = "debate_started"
	EventDebatePaused      = "debate_paused"
	EventDebateResumed     = "debate_resumed"
	EventDebateCompleted   = "debate_completed"
)

// Event is the webhook payload
type Event struct {
	Type      string            `json:"type"`
	Source    string            `json:"source"`
	Timestamp int64             `json:"timestamp"`
	Data      map[string]string `json:"data,omitempty"`
}

// Client posts lifecycle events
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger

	mu              sync.Mutex
	enabled         bool
	connErrorLogged bool // Only log connection errors once
}

// NewClient creates a client for endpoint
func NewClient(endpoint string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 2 * time.Second, // Short timeout for fire-and-forget
		},
		logger:  logger,
		enabled: endpoint != "",
	}
}

// SetEnabled enables or disables event emission
func (c *Client) SetEnabled(enabled bool) {
	c.mu.Lock()
	c.enabled = enabled && c.endpoint != ""
	c.mu.Unlock()
}

func (c *Client) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Emit sends an event asynchronously (fire and forget)
func (c *Client) Emit(eventType string, data map[string]string) {
	if !c.Enabled() {
		return
	}

	event := Event{
		Type:      eventType,
		Source:    Source,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}

	go c.send(event)
}

// send performs the actual HTTP POST (runs in goroutine)
func (c *Client) send(event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		c.logger.Warn("notify: failed to marshal event", "error", err)
		return
	}

	resp, err := c.httpClient.Post(c.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		c.mu.Lock()
		first := !c.connErrorLogged
		c.connErrorLogged = true
		c.mu.Unlock()
		if first {
			c.logger.Info("notify: endpoint unreachable", "endpoint", c.endpoint, "error", err)
		}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		c.logger.Warn("notify: event rejected", "type", event.Type, "status", resp.StatusCode)
	}
}

// DebateCompleted emits a debate_completed event
func (c *Client) DebateCompleted(sessionID, topic, winner string, sideA, sideB float64) {
	c.Emit(EventDebateCompleted, map[string]string{
		"session_id": sessionID,
		"topic":      truncate(topic, 200),
		"winner":     winner,
		"side_a":     strconv.FormatFloat(sideA, 'f', 1, 64),
		"side_b":     strconv.FormatFloat(sideB, 'f', 1, 64),
	})
}

// truncate limits a string to maxLen bytes
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
