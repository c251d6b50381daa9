package kiosk

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/clubfridge/internal/session"
)

// Dispatcher receives the events produced by key presses. Implemented by
// *session.Machine.
type Dispatcher interface {
	Dispatch(e session.Event) bool
}

// Setup form fields, in tab order.
const (
	fieldClubID = iota
	fieldAppKey
	fieldUsername
	fieldPassword
	fieldCount
)

var fieldLabels = [fieldCount]string{"Club ID", "App key", "Username", "Password"}

// Option configures a Model.
type Option func(*Model)

// WithLanguage sets the language used to format prices. Defaults to German.
func WithLanguage(tag language.Tag) Option {
	return func(m *Model) {
		m.printer = message.NewPrinter(tag)
	}
}

// Model is the bubbletea model of the kiosk.
type Model struct {
	machine Dispatcher
	feed    *Feed
	keys    KeyMap
	theme   Theme
	printer *message.Printer

	snap session.Snapshot

	width  int
	height int

	// Setup form.
	fields [fieldCount][]rune
	focus  int
}

// New returns a Model that sends events to machine and renders the
// snapshots arriving on feed. feed may be nil when snapshots are delivered
// as SnapshotMsg by other means.
func New(machine Dispatcher, feed *Feed, opts ...Option) Model {
	m := Model{
		machine: machine,
		feed:    feed,
		keys:    DefaultKeyMap,
		theme:   DefaultTheme,
		printer: message.NewPrinter(language.German),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.feed == nil {
		return nil
	}
	return m.feed.next()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case SnapshotMsg:
		m.snap = session.Snapshot(msg)
		if m.feed == nil {
			return m, nil
		}
		return m, m.feed.next()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.machine.Dispatch(session.Shutdown{})
		return m, tea.Quit
	}

	switch m.snap.Phase {
	case session.PhaseRunning:
		m.handleRunningKey(msg)
	case session.PhaseSetup:
		m.handleSetupKey(msg)
	}
	return m, nil
}

func (m Model) handleRunningKey(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, m.keys.Accept):
		m.machine.Dispatch(session.KeyAccept{})
	case key.Matches(msg, m.keys.Pay):
		m.machine.Dispatch(session.Pay{})
	case key.Matches(msg, m.keys.Cancel):
		m.machine.Dispatch(session.Cancel{})
	case key.Matches(msg, m.keys.Update):
		m.machine.Dispatch(session.ApplyUpdate{})
	default:
		for _, r := range typed(msg) {
			m.machine.Dispatch(session.KeyChar{Char: r})
		}
	}
}

// handleSetupKey edits the credential form.
func (m *Model) handleSetupKey(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, m.keys.NextField):
		m.focus = (m.focus + 1) % fieldCount
	case key.Matches(msg, m.keys.PrevField):
		m.focus = (m.focus + fieldCount - 1) % fieldCount
	case key.Matches(msg, m.keys.Delete):
		if f := m.fields[m.focus]; len(f) > 0 {
			m.fields[m.focus] = f[:len(f)-1]
		}
	case key.Matches(msg, m.keys.Accept):
		if m.focus < fieldCount-1 {
			m.focus++
			return
		}
		if m.snap.SetupBusy {
			return
		}
		m.machine.Dispatch(session.SubmitSetup{
			ClubID:   string(m.fields[fieldClubID]),
			AppKey:   string(m.fields[fieldAppKey]),
			Username: string(m.fields[fieldUsername]),
			Password: string(m.fields[fieldPassword]),
		})
	default:
		m.fields[m.focus] = append(m.fields[m.focus], typed(msg)...)
	}
}

// typed returns the characters a key press produces.
func typed(msg tea.KeyMsg) []rune {
	switch msg.Type {
	case tea.KeyRunes:
		return msg.Runes
	case tea.KeySpace:
		return []rune{' '}
	}
	return nil
}
