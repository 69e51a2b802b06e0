// Package scoring keeps the running score shown during a debate.
package scoring

// RoundScore is one entry of the per-round log.
type RoundScore struct {
	Round int
	SideA float64
	SideB float64
}

// Board holds the authoritative totals pushed by the server plus an
// append-only per-round log. Totals are replaced on every update and are
// never derived from the log.
type Board struct {
	sideA float64
	sideB float64
	log   []RoundScore
}

// Overwrite replaces both totals. Negative values clamp to zero.
func (b *Board) Overwrite(a, c float64) {
	b.sideA = clamp(a)
	b.sideB = clamp(c)
}

// RecordRound appends a round result to the log. Totals are untouched.
func (b *Board) RecordRound(round int, a, c float64) {
	b.log = append(b.log, RoundScore{Round: round, SideA: clamp(a), SideB: clamp(c)})
}

func (b *Board) Totals() (a, c float64) {
	return b.sideA, b.sideB
}

// Rounds returns a copy of the round log.
func (b *Board) Rounds() []RoundScore {
	out := make([]RoundScore, len(b.log))
	copy(out, b.log)
	return out
}

// Leader returns "A", "B", or "" on a tie.
func (b *Board) Leader() string {
	switch {
	case b.sideA > b.sideB:
		return "A"
	case b.sideB > b.sideA:
		return "B"
	}
	return ""
}

func (b *Board) Reset() {
	*b = Board{}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
