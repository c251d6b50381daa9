package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/roach88/clubfridge/internal/session"
)

type dispatcher interface {
	Dispatch(e session.Event) bool
}

// headless drives the machine from text lines and prints what happens.
// Lines are held back until the machine is in a phase that accepts them.
type headless struct {
	out  io.Writer
	last session.Snapshot

	mu      sync.Mutex
	cond    *sync.Cond
	phase   session.Phase
	stopped bool
}

func newHeadless(out io.Writer) *headless {
	h := &headless{out: out}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// observe is a session.Observer.
func (h *headless) observe(s session.Snapshot) {
	h.print(s)

	h.mu.Lock()
	h.phase = s.Phase
	h.mu.Unlock()
	h.cond.Broadcast()
}

// stop releases a feeder waiting for a phase change.
func (h *headless) stop() {
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()
	h.cond.Broadcast()
}

// await blocks until want accepts the current phase. It returns false once
// start-up failed or the machine stopped.
func (h *headless) await(want func(session.Phase) bool) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for !want(h.phase) {
		if h.stopped || h.phase == session.PhaseFailed {
			return false
		}
		h.cond.Wait()
	}
	return true
}

// feed dispatches one scan or command per line of r and shuts the machine
// down at end of input.
func (h *headless) feed(r io.Reader, m dispatcher) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		events, err := parseLine(sc.Text())
		if err != nil {
			slog.Warn("ignoring input line", "error", err)
			continue
		}
		if len(events) == 0 {
			continue
		}

		want := isRunning
		if _, ok := events[0].(session.SubmitSetup); ok {
			want = isConfigurable
		}
		if _, ok := events[0].(session.Shutdown); ok {
			want = isStarted
		}
		if !h.await(want) {
			return
		}

		for _, e := range events {
			if !m.Dispatch(e) {
				return
			}
		}
	}
	if err := sc.Err(); err != nil {
		slog.Error("failed to read input", "error", err)
	}
	if h.await(isStarted) {
		m.Dispatch(session.Shutdown{})
	}
}

func isRunning(p session.Phase) bool      { return p == session.PhaseRunning }
func isConfigurable(p session.Phase) bool { return p == session.PhaseSetup || p == session.PhaseRunning }
func isStarted(p session.Phase) bool      { return p != session.PhaseStarting }

// parseLine turns one input line into events. A plain line is a scan; a
// line starting with ':' is a command.
func parseLine(line string) ([]session.Event, error) {
	line = strings.TrimRight(line, "\r")
	if line == "" {
		return nil, nil
	}
	if !strings.HasPrefix(line, ":") {
		events := make([]session.Event, 0, len(line)+1)
		for _, r := range line {
			events = append(events, session.KeyChar{Char: r})
		}
		return append(events, session.KeyAccept{}), nil
	}

	fields := strings.Fields(line[1:])
	if len(fields) == 0 {
		return nil, errors.New("empty command")
	}
	switch fields[0] {
	case "pay":
		return []session.Event{session.Pay{}}, nil
	case "cancel":
		return []session.Event{session.Cancel{}}, nil
	case "update":
		return []session.Event{session.ApplyUpdate{}}, nil
	case "quit":
		return []session.Event{session.Shutdown{}}, nil
	case "setup":
		if len(fields) != 5 {
			return nil, errors.New("usage: :setup <club-id> <app-key> <username> <password>")
		}
		return []session.Event{session.SubmitSetup{
			ClubID:   fields[1],
			AppKey:   fields[2],
			Username: fields[3],
			Password: fields[4],
		}}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", fields[0])
	}
}

// print writes phase changes, notices and cart updates.
func (h *headless) print(s session.Snapshot) {
	w, last := h.out, h.last
	if s.Phase != last.Phase {
		fmt.Fprintf(w, "phase: %s\n", s.Phase)
	}
	if s.Failure != "" && s.Failure != last.Failure {
		fmt.Fprintf(w, "failure: %s\n", s.Failure)
	}
	if s.Notice != "" && s.Notice != last.Notice {
		fmt.Fprintf(w, "notice: %s\n", s.Notice)
	}
	if s.Member != "" && (s.Member != last.Member || !s.Total.Equal(last.Total)) {
		fmt.Fprintf(w, "cart: %s, %d lines, total %s\n", s.Member, len(s.Lines), s.Total.StringFixed(2))
	}
	h.last = s
}
