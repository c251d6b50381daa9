package session

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/clubfridge/internal/model"
)

// Phase is the top-level state of the Machine.
type Phase int

const (
	// PhaseStarting opens the store and looks up credentials.
	PhaseStarting Phase = iota
	// PhaseSetup waits for credentials to be entered.
	PhaseSetup
	// PhaseRunning is the scan and checkout loop.
	PhaseRunning
	// PhaseFailed means start-up failed; the process has to be restarted.
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseSetup:
		return "setup"
	case PhaseRunning:
		return "running"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// interaction is the state of the scan loop. A cart only exists together
// with an identified member.
type interaction interface {
	interaction()
}

// idle: no member identified.
type idle struct{}

// active: member identified, scanning articles.
type active struct {
	member model.Member
	cart   *Cart
}

// checkingOut: the cart is being written to the ledger.
type checkingOut struct {
	member model.Member
	cart   *Cart
}

func (idle) interaction()        {}
func (active) interaction()      {}
func (checkingOut) interaction() {}

// Notice texts.
const (
	NoticeStarted              = "clubfridge %s started"
	NoticeMemberNotFound       = "Member not found (%s)"
	NoticeArticleNotFound      = "Article not found (%s)"
	NoticeArticleUnpriced      = "No current price for %s"
	NoticeLookupFailed         = "Lookup failed, please try again"
	NoticeThankYou             = "Thank you for your purchase"
	NoticeSaveFailed           = "Saving the sale failed, please try again"
	NoticeCheckingCredentials  = "Checking credentials…"
	NoticeAuthenticationFailed = "Authentication failed"
	NoticeInvalidClubID        = "Club id must be a positive number"
	NoticeIncompleteSetup      = "Please fill in all fields"
)

// Snapshot is a read-only view of the Machine for rendering.
type Snapshot struct {
	Phase   Phase
	Failure string

	// Member is the display name of the identified member, empty when idle.
	Member   string
	MemberID string
	Input    string
	Lines    []Line
	Total    decimal.Decimal

	// Remaining is the time left until the interaction timeout, zero when
	// the countdown is not armed.
	Remaining   time.Duration
	CheckingOut bool

	Notice string

	// UpdateVersion is the available newer version, if any.
	UpdateVersion string
	SetupBusy     bool
	Offline       bool
}

// Line is one cart line in a Snapshot.
type Line struct {
	ArticleID   string
	Designation string
	Quantity    int
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}

func (m *Machine) snapshot() Snapshot {
	s := Snapshot{
		Phase:         m.phase,
		Input:         string(m.input),
		Total:         decimal.Zero,
		Remaining:     time.Duration(m.remaining) * time.Second,
		Notice:        m.notice,
		UpdateVersion: m.update,
		SetupBusy:     m.setupBusy,
		Offline:       m.phase == PhaseRunning && m.syncer == nil,
	}
	if m.failure != nil {
		s.Failure = m.failure.Error()
	}

	var (
		member model.Member
		cart   *Cart
	)
	switch st := m.state.(type) {
	case active:
		member, cart = st.member, st.cart
	case checkingOut:
		member, cart = st.member, st.cart
		s.CheckingOut = true
	default:
		return s
	}

	s.Member = member.DisplayName()
	s.MemberID = member.ID
	for _, l := range cart.Lines() {
		s.Lines = append(s.Lines, Line{
			ArticleID:   l.Article.ID,
			Designation: l.Article.Designation,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Total:       l.Total(),
		})
	}
	s.Total = cart.Total()
	return s
}

func (m *Machine) publish() {
	s := m.snapshot()

	m.snapMu.Lock()
	m.snap = s
	m.snapMu.Unlock()

	if m.observer != nil {
		m.observer(s)
	}
}
