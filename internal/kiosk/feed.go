package kiosk

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/roach88/clubfridge/internal/session"
)

// SnapshotMsg delivers a session snapshot to the Model.
type SnapshotMsg session.Snapshot

// Feed passes snapshots from the session to the Model. Only the latest
// undelivered snapshot is kept, so Observe never blocks the session loop.
type Feed struct {
	ch chan session.Snapshot
}

// NewFeed returns an empty Feed.
func NewFeed() *Feed {
	return &Feed{ch: make(chan session.Snapshot, 1)}
}

// Observe is a session.Observer.
func (f *Feed) Observe(s session.Snapshot) {
	for {
		select {
		case f.ch <- s:
			return
		default:
		}
		// Replace the stale snapshot nobody picked up yet.
		select {
		case <-f.ch:
		default:
		}
	}
}

// next waits for the next snapshot.
func (f *Feed) next() tea.Cmd {
	return func() tea.Msg {
		return SnapshotMsg(<-f.ch)
	}
}
