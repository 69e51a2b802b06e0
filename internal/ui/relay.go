package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"aidebate/internal/debate"
)

// Relay hands engine snapshots to a running program without ever blocking
// the engine. Only the newest pending snapshot is kept.
type Relay struct {
	latest chan debate.Snapshot
}

func NewRelay() *Relay {
	return &Relay{latest: make(chan debate.Snapshot, 1)}
}

// Publish is suitable as the engine's OnChange callback.
func (r *Relay) Publish(s debate.Snapshot) {
	for {
		select {
		case r.latest <- s:
			return
		default:
		}
		select {
		case <-r.latest:
		default:
		}
	}
}

// Run forwards snapshots to send until ctx is done.
func (r *Relay) Run(ctx context.Context, send func(tea.Msg)) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-r.latest:
			send(SnapshotMsg(s))
		}
	}
}
