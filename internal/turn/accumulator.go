// Package turn reassembles streamed fragments into complete turns.
package turn

import (
	"strconv"
	"strings"
)

// Buffer is the in-progress turn shown as a live preview.
type Buffer struct {
	Active  bool
	Speaker string
	Content string
}

// Accumulator owns the single streaming buffer of a session. At most one
// turn is in flight at a time; a fragment from a different speaker discards
// whatever was accumulated for the previous one.
type Accumulator struct {
	buf Buffer
}

// SameSpeaker reports whether the active buffer belongs to speaker.
func (a *Accumulator) SameSpeaker(speaker string) bool {
	return a.buf.Active && a.buf.Speaker == speaker
}

// Fragment adds a non-final chunk for speaker.
func (a *Accumulator) Fragment(speaker, chunk string) {
	if !a.SameSpeaker(speaker) {
		a.buf = Buffer{Active: true, Speaker: speaker, Content: chunk}
		return
	}
	a.buf.Content += chunk
}

// Complete finishes the turn for speaker. The buffered content is used when
// it belongs to speaker, otherwise the final chunk stands alone. The buffer
// is always cleared. ok is false when the result is blank.
func (a *Accumulator) Complete(speaker, chunk string) (content string, ok bool) {
	if a.SameSpeaker(speaker) {
		content = a.buf.Content
	} else {
		content = chunk
	}
	a.buf = Buffer{}
	if strings.TrimSpace(content) == "" {
		return "", false
	}
	return content, true
}

// Reset discards any partial turn.
func (a *Accumulator) Reset() {
	a.buf = Buffer{}
}

// Buffer returns a copy of the current buffer.
func (a *Accumulator) Buffer() Buffer {
	return a.buf
}

// JudgeKey is the buffer speaker key for judge n.
func JudgeKey(n int) string {
	return "JUDGE " + strconv.Itoa(n)
}
