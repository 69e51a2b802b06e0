// Package sse turns a raw server-sent event byte stream into frames.
//
// The parser is deliberately lenient: malformed data lines are logged and
// dropped so one bad frame never aborts a debate stream.
package sse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"log/slog"
)

// Frame is one data line paired with the event type in effect when it arrived.
type Frame struct {
	Event string
	Data  json.RawMessage
}

var (
	eventPrefix = []byte("event:")
	dataPrefix  = []byte("data:")
)

// Parser holds the rolling line buffer and sticky event type for a single
// connection. The event type persists across frames until the next event:
// line, including across blank lines. A new connection needs a new Parser.
type Parser struct {
	buf       []byte
	eventType string
	logger    *slog.Logger
}

func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// EventType returns the sticky event type currently in effect.
func (p *Parser) EventType() string {
	return p.eventType
}

// Feed appends p to the buffer and returns every frame completed by it.
// A trailing partial line is retained for the next call.
func (p *Parser) Feed(chunk []byte) []Frame {
	p.buf = append(p.buf, chunk...)

	var frames []Frame
	for {
		i := bytes.IndexByte(p.buf, '\n')
		if i < 0 {
			break
		}
		line := p.buf[:i]
		if f, ok := p.line(line); ok {
			frames = append(frames, f)
		}
		p.buf = p.buf[i+1:]
	}

	// Compact so the backing array does not grow without bound on long streams.
	if len(p.buf) == 0 {
		p.buf = p.buf[:0:0]
	}
	return frames
}

// Flush processes a final line that was not terminated by a newline.
func (p *Parser) Flush() []Frame {
	if len(p.buf) == 0 {
		return nil
	}
	line := p.buf
	p.buf = nil
	if f, ok := p.line(line); ok {
		return []Frame{f}
	}
	return nil
}

func (p *Parser) line(line []byte) (Frame, bool) {
	line = bytes.TrimSuffix(line, []byte("\r"))

	switch {
	case bytes.HasPrefix(line, eventPrefix):
		p.eventType = string(bytes.TrimSpace(line[len(eventPrefix):]))
		return Frame{}, false

	case bytes.HasPrefix(line, dataPrefix):
		data := bytes.TrimSpace(line[len(dataPrefix):])
		if len(data) == 0 {
			return Frame{}, false
		}
		if !json.Valid(data) {
			p.logger.Warn("dropping malformed data line", "event", p.eventType, "data", truncate(data, 120))
			return Frame{}, false
		}
		return Frame{Event: p.eventType, Data: json.RawMessage(bytes.Clone(data))}, true
	}

	// comments, id:, retry: and blank lines carry nothing we use
	return Frame{}, false
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

const readSize = 4096

// Frames reads r until EOF and yields frames as they complete. A read error
// other than EOF is yielded once and ends the sequence. Cancelling ctx ends
// the sequence with the context's error once the pending read returns.
func Frames(ctx context.Context, r io.Reader, logger *slog.Logger) iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		p := NewParser(logger)
		buf := make([]byte, readSize)
		for {
			if err := ctx.Err(); err != nil {
				yield(Frame{}, err)
				return
			}

			n, err := r.Read(buf)
			if n > 0 {
				for _, f := range p.Feed(buf[:n]) {
					if !yield(f, nil) {
						return
					}
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					for _, f := range p.Flush() {
						if !yield(f, nil) {
							return
						}
					}
					return
				}
				if ctxErr := ctx.Err(); ctxErr != nil {
					err = ctxErr
				}
				yield(Frame{}, err)
				return
			}
		}
	}
}
