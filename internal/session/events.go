package session

import (
	"github.com/roach88/clubfridge/internal/model"
	"github.com/roach88/clubfridge/internal/selfupdate"
	"github.com/roach88/clubfridge/internal/syncer"
)

// Event is an input to the Machine. Input surfaces send the exported
// events through Machine.Dispatch.
type Event interface {
	event()
}

// KeyChar is one typed character, usually from the barcode or RFID scanner.
type KeyChar struct{ Char rune }

// KeyAccept ends a scan: the typed characters are looked up.
type KeyAccept struct{}

// Pay checks out the current cart.
type Pay struct{}

// Cancel discards the current cart and member.
type Cancel struct{}

// Shutdown stops the Machine.
type Shutdown struct{}

// ApplyUpdate stops the Machine with ErrRestartRequested when a newer
// release is available.
type ApplyUpdate struct{}

// SubmitSetup submits the credentials entered during setup.
type SubmitSetup struct {
	ClubID   string
	AppKey   string
	Username string
	Password string
}

func (KeyChar) event()     {}
func (KeyAccept) event()   {}
func (Pay) event()         {}
func (Cancel) event()      {}
func (Shutdown) event()    {}
func (ApplyUpdate) event() {}
func (SubmitSetup) event() {}

// Completions of background tasks and timer expiries.
type (
	storeOpened struct {
		store Store
		err   error
	}
	credentialsLoaded struct {
		creds model.Credentials
		found bool
		err   error
	}
	setupFinished struct {
		syncer Syncer
		err    error
	}
	memberLookedUp struct {
		input  string
		member model.Member
		found  bool
		err    error
	}
	articleLookedUp struct {
		input   string
		article model.Article
		found   bool
		err     error
	}
	salesAppended struct {
		count int
		err   error
	}
	catalogPulled struct {
		report syncer.PullReport
		err    error
	}
	salesPushed struct {
		report syncer.PushReport
		ran    bool
		err    error
	}
	updateChecked struct {
		status selfupdate.Status
		err    error
	}

	// scan is accepted input waiting in the backlog; it is never queued.
	scan struct{ input string }

	countdownTick struct{ generation int }
	catalogDue    struct{}
	salesDue      struct{}
	updateDue     struct{}
	noticeExpired struct{ generation int }
)

func (storeOpened) event()       {}
func (credentialsLoaded) event() {}
func (setupFinished) event()     {}
func (memberLookedUp) event()    {}
func (articleLookedUp) event()   {}
func (salesAppended) event()     {}
func (catalogPulled) event()     {}
func (salesPushed) event()       {}
func (updateChecked) event()     {}
func (scan) event()              {}
func (countdownTick) event()     {}
func (catalogDue) event()        {}
func (salesDue) event()          {}
func (updateDue) event()         {}
func (noticeExpired) event()     {}
