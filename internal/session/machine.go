// Package session is the terminal's state machine: start-up, credential
// setup and the scan, cart and checkout loop.
//
// All state lives in one Machine and is mutated only by its Run loop. Input
// surfaces, timers and background tasks talk to the loop by enqueuing
// events, so an event is always handled to completion before the next one.
// Storage and network work runs in background tasks whose results come back
// as events; the loop itself never blocks on them.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/clubfridge/internal/clock"
	"github.com/roach88/clubfridge/internal/model"
	"github.com/roach88/clubfridge/internal/selfupdate"
	"github.com/roach88/clubfridge/internal/syncer"
)

// ErrRestartRequested is returned by Run when the operator asked to apply
// an available update.
var ErrRestartRequested = errors.New("restart requested to apply update")

// Store is the local storage used by the Machine. Implemented by
// *store.Store.
type Store interface {
	FindCredentials(ctx context.Context) (model.Credentials, bool, error)
	SaveCredentials(ctx context.Context, c model.Credentials) error
	FindMemberByKeycode(ctx context.Context, keycode string) (model.Member, bool, error)
	FindArticleByID(ctx context.Context, id string) (model.Article, bool, error)
	AppendSales(ctx context.Context, sales []model.Sale) error
	Close() error
}

// Syncer talks to the accounting service. Implemented by *syncer.Engine.
type Syncer interface {
	Verify(ctx context.Context) error
	PullCatalog(ctx context.Context) (syncer.PullReport, error)
	PushSales(ctx context.Context) (syncer.PushReport, bool, error)
}

// Opener opens the local store. It runs once, while the Machine starts.
type Opener func(ctx context.Context) (Store, error)

// Connector returns a Syncer for the given credentials without contacting
// the service.
type Connector func(creds model.Credentials) Syncer

// Observer receives a Snapshot after every handled event. It is called from
// the Run goroutine and must not block.
type Observer func(Snapshot)

// Timings configures durations used by the Machine.
type Timings struct {
	// Interaction is the idle time after which a cart is checked out (or
	// an empty session cancelled).
	Interaction time.Duration

	// Notice is how long a transient notice stays visible.
	Notice time.Duration

	Catalog    time.Duration
	Sales      time.Duration
	SelfUpdate time.Duration
}

// DefaultTimings returns the production durations.
func DefaultTimings() Timings {
	return Timings{
		Interaction: 60 * time.Second,
		Notice:      3 * time.Second,
		Catalog:     6 * time.Hour,
		Sales:       10 * time.Minute,
		SelfUpdate:  time.Hour,
	}
}

// Option configures a Machine.
type Option func(*Machine)

// WithConnector sets how the Machine reaches the accounting service. Without
// a connector the Machine behaves as in offline mode.
func WithConnector(c Connector) Option {
	return func(m *Machine) {
		m.connect = c
	}
}

// WithOffline skips credential lookup and all syncing.
func WithOffline(offline bool) Option {
	return func(m *Machine) {
		m.offline = offline
	}
}

// WithVersion sets the version shown in the start-up notice.
func WithVersion(v string) Option {
	return func(m *Machine) {
		m.version = v
	}
}

// WithChecker sets the update checker.
func WithChecker(c selfupdate.Checker) Option {
	return func(m *Machine) {
		m.checker = c
	}
}

// WithClock sets the clock driving all timers.
func WithClock(c clock.Clock) Option {
	return func(m *Machine) {
		m.clock = c
	}
}

// WithIDGenerator sets the generator for sale ids.
func WithIDGenerator(g model.IDGenerator) Option {
	return func(m *Machine) {
		m.ids = g
	}
}

// WithTimings overrides DefaultTimings.
func WithTimings(t Timings) Option {
	return func(m *Machine) {
		m.timings = t
	}
}

// WithObserver registers an observer for snapshots.
func WithObserver(o Observer) Option {
	return func(m *Machine) {
		m.observer = o
	}
}

// withInlineTasks runs background tasks synchronously inside the handler.
// Their results are still delivered as queued events.
func withInlineTasks() Option {
	return func(m *Machine) {
		m.inline = true
	}
}

// Machine is the terminal's state machine. Dispatch and Snapshot are safe
// from any goroutine; Run must be called exactly once.
type Machine struct {
	open     Opener
	connect  Connector
	offline  bool
	version  string
	checker  selfupdate.Checker
	clock    clock.Clock
	ids      model.IDGenerator
	timings  Timings
	observer Observer
	inline   bool

	queue *eventQueue

	taskCtx context.Context
	cancel  context.CancelFunc
	tasks   sync.WaitGroup

	// Fields below are owned by the Run goroutine.
	phase   Phase
	failure error
	store   Store
	syncer  Syncer

	state        interaction
	input        []rune
	lookupBusy   bool
	backlog      []Event // scans, Pay, Cancel and Shutdown awaiting their turn
	remaining    int     // countdown seconds; 0 when disarmed
	countdown    *repeating
	countdownGen int
	periodic     []*repeating
	pulling      bool
	setupBusy    bool
	notice       string
	noticeGen    int
	noticeTimer  clock.Timer
	update       string

	done    bool
	exitErr error

	snapMu sync.Mutex
	snap   Snapshot
}

// New returns a Machine that opens its store with open.
func New(open Opener, opts ...Option) *Machine {
	m := &Machine{
		open:    open,
		version: "dev",
		checker: selfupdate.Disabled{},
		clock:   clock.Real(),
		ids:     model.UUIDv7Generator{},
		timings: DefaultTimings(),
		queue:   newEventQueue(),
		phase:   PhaseStarting,
		state:   idle{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.snap = m.snapshot()
	return m
}

// Dispatch submits an input event. Returns false once the Machine stopped.
func (m *Machine) Dispatch(e Event) bool {
	return m.queue.Enqueue(e)
}

// Snapshot returns the state after the most recently handled event.
func (m *Machine) Snapshot() Snapshot {
	m.snapMu.Lock()
	defer m.snapMu.Unlock()
	return m.snap
}

// Run starts the Machine and handles events until Shutdown, ApplyUpdate
// with an available update, a start-up failure, or ctx cancellation.
//
// On return all timers are stopped, background tasks have finished and the
// store is closed.
func (m *Machine) Run(ctx context.Context) error {
	slog.Info("session starting", "version", m.version, "offline", m.offline)
	m.begin(ctx)
	defer m.finish()

	for {
		if e, ok := m.queue.TryDequeue(); ok {
			m.handle(e)
			m.publish()
			if m.done {
				return m.exitErr
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("session stopping: context cancelled")
			return ctx.Err()
		case <-m.queue.Wait():
		}
	}
}

// begin prepares the task context and opens the store.
func (m *Machine) begin(ctx context.Context) {
	m.taskCtx, m.cancel = context.WithCancel(ctx)
	m.spawn(func(ctx context.Context) Event {
		s, err := m.open(ctx)
		return storeOpened{store: s, err: err}
	})
}

// drain handles queued events until the queue is empty or the Machine is
// done. Used with inline tasks.
func (m *Machine) drain() {
	for !m.done {
		e, ok := m.queue.TryDequeue()
		if !ok {
			return
		}
		m.handle(e)
		m.publish()
	}
}

func (m *Machine) finish() {
	m.stopTimers()
	m.cancel()
	m.tasks.Wait()
	m.queue.Close()

	// A store opened after the loop stopped still has to be closed.
	for {
		e, ok := m.queue.TryDequeue()
		if !ok {
			break
		}
		if opened, ok := e.(storeOpened); ok && m.store == nil && opened.store != nil {
			m.store = opened.store
		}
	}
	if m.store != nil {
		if err := m.store.Close(); err != nil {
			slog.Warn("failed to close store", "error", err)
		}
	}
	slog.Info("session stopped")
}

// spawn runs f as a background task and enqueues its result.
func (m *Machine) spawn(f func(ctx context.Context) Event) {
	if m.inline {
		m.queue.Enqueue(f(m.taskCtx))
		return
	}
	m.tasks.Add(1)
	go func() {
		defer m.tasks.Done()
		m.queue.Enqueue(f(m.taskCtx))
	}()
}

func (m *Machine) handle(e Event) {
	switch e := e.(type) {
	case Shutdown:
		if m.phase == PhaseRunning && m.inputPending() {
			m.backlog = append(m.backlog, e)
			return
		}
		m.shutdown()

	case ApplyUpdate:
		if m.update == "" {
			slog.Debug("no update available to apply")
			return
		}
		slog.Info("restarting to apply update", "version", m.update)
		m.done = true
		m.exitErr = ErrRestartRequested

	case storeOpened:
		m.storeOpened(e)
	case credentialsLoaded:
		m.credentialsLoaded(e)
	case SubmitSetup:
		m.submitSetup(e)
	case setupFinished:
		m.setupFinished(e)

	case noticeExpired:
		if e.generation == m.noticeGen {
			m.notice = ""
		}

	default:
		if m.phase == PhaseRunning {
			m.handleRunning(e)
		}
	}
}

func (m *Machine) shutdown() {
	slog.Info("shutdown requested")
	m.done = true
}

func (m *Machine) storeOpened(e storeOpened) {
	if e.err != nil {
		m.fail(fmt.Errorf("open store: %w", e.err))
		return
	}
	slog.Info("store opened")
	m.store = e.store

	if m.offline || m.connect == nil {
		slog.Info("running in offline mode, skipping sync")
		m.enterRunning(nil)
		return
	}

	m.spawn(func(ctx context.Context) Event {
		creds, found, err := m.store.FindCredentials(ctx)
		return credentialsLoaded{creds: creds, found: found, err: err}
	})
}

func (m *Machine) credentialsLoaded(e credentialsLoaded) {
	switch {
	case e.err != nil:
		m.fail(fmt.Errorf("load credentials: %w", e.err))
	case !e.found:
		slog.Info("no credentials stored, entering setup")
		m.phase = PhaseSetup
	default:
		slog.Info("credentials found", "credentials", e.creds)
		m.enterRunning(m.connect(e.creds))
	}
}

func (m *Machine) submitSetup(e SubmitSetup) {
	if m.phase != PhaseSetup || m.setupBusy {
		return
	}

	clubID, err := model.ParseClubID(e.ClubID)
	if err != nil {
		slog.Warn("invalid setup input", "error", err)
		m.showNotice(NoticeInvalidClubID)
		return
	}
	creds := model.Credentials{ClubID: clubID, AppKey: e.AppKey, Username: e.Username, Password: e.Password}
	if err := creds.Validate(); err != nil {
		slog.Warn("invalid setup input", "error", err)
		m.showNotice(NoticeIncompleteSetup)
		return
	}

	slog.Info("checking credentials", "credentials", creds)
	m.setupBusy = true
	m.showPersistentNotice(NoticeCheckingCredentials)

	s := m.connect(creds)
	m.spawn(func(ctx context.Context) Event {
		if err := s.Verify(ctx); err != nil {
			return setupFinished{err: fmt.Errorf("verify credentials: %w", err)}
		}
		if err := m.store.SaveCredentials(ctx, creds); err != nil {
			return setupFinished{err: fmt.Errorf("save credentials: %w", err)}
		}
		return setupFinished{syncer: s}
	})
}

func (m *Machine) setupFinished(e setupFinished) {
	m.setupBusy = false
	if e.err != nil {
		slog.Warn("setup failed", "error", e.err)
		m.showNotice(NoticeAuthenticationFailed)
		return
	}
	slog.Info("credentials verified and saved")
	m.enterRunning(e.syncer)
}

func (m *Machine) fail(err error) {
	slog.Error("start-up failed", "error", err)
	m.phase = PhaseFailed
	m.failure = err
	m.done = true
	m.exitErr = err
}

// enterRunning switches to the scan loop. s is nil in offline mode.
func (m *Machine) enterRunning(s Syncer) {
	m.phase = PhaseRunning
	m.syncer = s
	m.showNotice(fmt.Sprintf(NoticeStarted, m.version))

	m.checkForUpdate()
	m.every(m.timings.SelfUpdate, updateDue{})

	if s != nil {
		m.pullCatalog()
		m.pushSales()
		m.every(m.timings.Catalog, catalogDue{})
		m.every(m.timings.Sales, salesDue{})
	}
}

func (m *Machine) handleRunning(e Event) {
	switch e := e.(type) {
	case KeyChar:
		m.dismissNotice()
		m.input = append(m.input, e.Char)
		m.touch()

	case KeyAccept:
		m.dismissNotice()
		input := string(m.input)
		m.input = m.input[:0]
		m.touch()
		if input == "" {
			return
		}
		m.backlog = append(m.backlog, scan{input: input})
		m.nextInput()

	case memberLookedUp:
		m.lookupBusy = false
		m.memberLookedUp(e)
		m.nextInput()

	case articleLookedUp:
		m.lookupBusy = false
		m.articleLookedUp(e)
		m.nextInput()

	case Pay, Cancel:
		m.dismissNotice()
		m.backlog = append(m.backlog, e)
		m.nextInput()

	case salesAppended:
		m.salesAppended(e)
		m.nextInput()

	case countdownTick:
		if e.generation == m.countdownGen {
			m.tick()
		}

	case catalogDue:
		m.pullCatalog()
	case salesDue:
		m.pushSales()
	case updateDue:
		m.checkForUpdate()

	case catalogPulled:
		m.pulling = false
		if e.err == nil {
			slog.Info("catalog updated",
				"members", e.report.Members,
				"articles", e.report.Articles,
				"dropped_users", e.report.DroppedUsers,
				"dropped_articles", e.report.DroppedArticles,
			)
		}

	case salesPushed:
		if e.err != nil {
			slog.Error("sales push failed", "error", e.err)
		}

	case updateChecked:
		switch {
		case e.err != nil:
			slog.Warn("failed to check for updates", "error", e.err)
		case e.status.Available:
			slog.Info("update available", "version", e.status.Version)
			m.update = e.status.Version
		default:
			slog.Info("already up to date", "latest", e.status.Version)
		}
	}
}

// inputPending reports whether a lookup or checkout is in flight or input
// is still waiting for its turn.
func (m *Machine) inputPending() bool {
	_, saving := m.state.(checkingOut)
	return m.lookupBusy || saving || len(m.backlog) > 0
}

// nextInput works through the backlog in arrival order. It stops at a
// lookup or checkout in flight and resumes once that completes, so a Pay
// typed right after a scan applies to the scanned article.
func (m *Machine) nextInput() {
	for !m.lookupBusy && len(m.backlog) > 0 && !m.done {
		if _, ok := m.state.(checkingOut); ok {
			return
		}

		e := m.backlog[0]
		m.backlog = m.backlog[1:]

		switch e := e.(type) {
		case scan:
			m.lookup(e.input)
		case Pay:
			m.pay()
		case Cancel:
			if _, ok := m.state.(active); ok {
				m.cancelSession()
			}
		case Shutdown:
			m.shutdown()
		}
	}
}

// lookup resolves a scan: a member keycode when idle, an article barcode
// when a member is identified.
func (m *Machine) lookup(input string) {
	switch m.state.(type) {
	case idle:
		keycode, err := model.ParseKeycode(input)
		if err != nil {
			slog.Warn("invalid keycode scanned", "input", input)
			m.showNotice(fmt.Sprintf(NoticeMemberNotFound, input))
			return
		}
		m.lookupBusy = true
		m.spawn(func(ctx context.Context) Event {
			member, found, err := m.store.FindMemberByKeycode(ctx, keycode)
			return memberLookedUp{input: input, member: member, found: found, err: err}
		})

	case active:
		m.lookupBusy = true
		m.spawn(func(ctx context.Context) Event {
			article, found, err := m.store.FindArticleByID(ctx, input)
			return articleLookedUp{input: input, article: article, found: found, err: err}
		})
	}
}

func (m *Machine) memberLookedUp(e memberLookedUp) {
	if _, ok := m.state.(idle); !ok {
		return
	}
	switch {
	case e.err != nil:
		slog.Error("failed to find member", "error", e.err)
		m.showNotice(NoticeLookupFailed)
	case !e.found:
		slog.Warn("no member found for keycode", "input", e.input)
		m.showNotice(fmt.Sprintf(NoticeMemberNotFound, e.input))
	default:
		slog.Info("member identified", "member_id", e.member.ID)
		m.state = active{member: e.member, cart: &Cart{}}
		m.arm()
	}
}

func (m *Machine) articleLookedUp(e articleLookedUp) {
	a, ok := m.state.(active)
	if !ok {
		return
	}
	switch {
	case e.err != nil:
		slog.Error("failed to find article", "error", e.err)
		m.showNotice(NoticeLookupFailed)
		return
	case !e.found:
		slog.Warn("no article found for barcode", "input", e.input)
		m.showNotice(fmt.Sprintf(NoticeArticleNotFound, e.input))
		return
	}

	price, ok := e.article.CurrentPrice(m.clock.Now())
	if !ok {
		slog.Warn("article has no current price", "article_id", e.article.ID)
		m.showNotice(fmt.Sprintf(NoticeArticleUnpriced, e.article.Designation))
		return
	}

	slog.Info("article added", "article_id", e.article.ID, "unit_price", price.UnitPrice)
	a.cart.Add(e.article, price.UnitPrice)
	m.arm()
}

func (m *Machine) pay() {
	a, ok := m.state.(active)
	if !ok {
		return
	}
	if a.cart.Empty() {
		m.cancelSession()
		return
	}
	m.checkout(a)
}

// checkout appends the cart to the ledger as one batch. The cart is kept
// until the append succeeded.
func (m *Machine) checkout(a active) {
	slog.Info("processing sale", "member_id", a.member.ID)
	m.disarm()
	m.state = checkingOut(a)

	sales := a.cart.Sales(m.ids, model.DateOf(m.clock.Now()), a.member.ID)
	m.spawn(func(ctx context.Context) Event {
		return salesAppended{count: len(sales), err: m.store.AppendSales(ctx, sales)}
	})
}

func (m *Machine) salesAppended(e salesAppended) {
	c, ok := m.state.(checkingOut)
	if !ok {
		return
	}
	if e.err != nil {
		slog.Error("failed to save sales", "error", e.err)
		m.state = active(c)
		m.arm()
		m.showNotice(NoticeSaveFailed)
		return
	}

	slog.Info("sales saved", "count", e.count, "member_id", c.member.ID)
	m.state = idle{}
	m.showNotice(NoticeThankYou)
	m.pushSales()
}

func (m *Machine) cancelSession() {
	slog.Info("cancelling sale")
	m.state = idle{}
	m.disarm()
}

func (m *Machine) tick() {
	if m.remaining == 0 {
		return
	}
	m.remaining--
	if m.remaining > 0 {
		return
	}

	slog.Info("interaction timeout reached")
	a, ok := m.state.(active)
	if !ok {
		m.disarm()
		return
	}
	if a.cart.Empty() {
		m.cancelSession()
		return
	}
	m.checkout(a)
}

// arm (re)starts the interaction countdown. The ticker restarts with it so
// the first second is a full one, and ticks already queued are ignored.
func (m *Machine) arm() {
	m.remaining = int(m.timings.Interaction / time.Second)
	if m.remaining < 1 {
		m.remaining = 1
	}
	if m.countdown != nil {
		m.countdown.stop()
	}
	m.countdownGen++
	m.countdown = m.repeat(time.Second, countdownTick{generation: m.countdownGen})
}

// touch re-arms a running countdown on any input.
func (m *Machine) touch() {
	if _, ok := m.state.(active); ok && m.remaining > 0 {
		m.arm()
	}
}

func (m *Machine) disarm() {
	m.remaining = 0
	if m.countdown != nil {
		m.countdown.stop()
		m.countdown = nil
	}
}

func (m *Machine) pullCatalog() {
	if m.syncer == nil || m.pulling {
		return
	}
	m.pulling = true
	s := m.syncer
	m.spawn(func(ctx context.Context) Event {
		report, err := s.PullCatalog(ctx)
		return catalogPulled{report: report, err: err}
	})
}

// pushSales starts a push in the background. The Syncer skips it when
// another push is still running.
func (m *Machine) pushSales() {
	if m.syncer == nil {
		return
	}
	s := m.syncer
	m.spawn(func(ctx context.Context) Event {
		report, ran, err := s.PushSales(ctx)
		return salesPushed{report: report, ran: ran, err: err}
	})
}

func (m *Machine) checkForUpdate() {
	c := m.checker
	m.spawn(func(ctx context.Context) Event {
		status, err := c.Check(ctx)
		return updateChecked{status: status, err: err}
	})
}

func (m *Machine) showNotice(text string) {
	m.setNotice(text)
	gen := m.noticeGen
	m.noticeTimer = m.clock.AfterFunc(m.timings.Notice, func() {
		m.queue.Enqueue(noticeExpired{generation: gen})
	})
}

// showPersistentNotice shows text until it is replaced or dismissed.
func (m *Machine) showPersistentNotice(text string) {
	m.setNotice(text)
}

func (m *Machine) setNotice(text string) {
	slog.Debug("showing notice", "text", text)
	m.dismissNotice()
	m.notice = text
}

func (m *Machine) dismissNotice() {
	m.noticeGen++
	m.notice = ""
	if m.noticeTimer != nil {
		m.noticeTimer.Stop()
		m.noticeTimer = nil
	}
}

// every enqueues e each time d elapses until the Machine stops.
func (m *Machine) every(d time.Duration, e Event) {
	m.periodic = append(m.periodic, m.repeat(d, e))
}

func (m *Machine) stopTimers() {
	for _, r := range m.periodic {
		r.stop()
	}
	m.periodic = nil
	m.disarm()
	if m.noticeTimer != nil {
		m.noticeTimer.Stop()
	}
}

// repeating re-arms a one-shot timer after every expiry.
type repeating struct {
	mu      sync.Mutex
	timer   clock.Timer
	stopped bool
}

func (m *Machine) repeat(d time.Duration, e Event) *repeating {
	r := &repeating{}
	var fire func()
	fire = func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.stopped {
			return
		}
		m.queue.Enqueue(e)
		r.timer = m.clock.AfterFunc(d, fire)
	}

	r.mu.Lock()
	r.timer = m.clock.AfterFunc(d, fire)
	r.mu.Unlock()
	return r
}

func (r *repeating) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	r.timer.Stop()
}
