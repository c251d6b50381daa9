package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/roach88/clubfridge/internal/clock"
	"github.com/roach88/clubfridge/internal/model"
	"github.com/roach88/clubfridge/internal/remote"
)

// DefaultWarnAfter is the number of failed uploads after which a sale is
// reported as stuck.
const DefaultWarnAfter = 10

// PushLeaseTTL bounds how long a crashed process can block uploads. The
// lease is renewed before every sale.
const PushLeaseTTL = 5 * time.Minute

// DefaultUploadTimeout bounds one sale upload, including a token refresh and
// rate limiter waits. It must stay below PushLeaseTTL: the lease is renewed
// right before the upload, so it cannot expire while the sale is in flight.
const DefaultUploadTimeout = PushLeaseTTL / 2

// Remote is the token managed accounting service. Implemented by
// *remote.Client.
type Remote interface {
	Verify(ctx context.Context) error
	ListUsers(ctx context.Context) ([]remote.User, error)
	ListArticles(ctx context.Context) ([]remote.Article, error)
	AddSale(ctx context.Context, sale remote.NewSale) error
}

// Store is the part of the local store used for syncing. Implemented by
// *store.Store.
type Store interface {
	ReplaceMembers(ctx context.Context, members []model.Member) (int, error)
	ReplaceArticles(ctx context.Context, articles []model.Article) (int, error)
	LoadSales(ctx context.Context) ([]model.Sale, error)
	DeleteSale(ctx context.Context, id string) error
	RecordSaleFailure(ctx context.Context, id string, cause error, at time.Time) (int, error)
	AcquirePushLease(ctx context.Context, holder string, now time.Time, ttl time.Duration) (bool, error)
	ReleasePushLease(ctx context.Context, holder string) error
}

// PullReport summarizes one catalog pull.
type PullReport struct {
	Members         int `json:"members"`
	Articles        int `json:"articles"`
	DroppedUsers    int `json:"dropped_users"`
	DroppedArticles int `json:"dropped_articles"`
}

// PushReport summarizes one push cycle.
type PushReport struct {
	Attempted int `json:"attempted"`
	Uploaded  int `json:"uploaded"`
	Failed    int `json:"failed"`
}

// Engine runs catalog pulls and sale pushes. Safe for concurrent use; at
// most one push runs at a time, across all engines sharing a database.
type Engine struct {
	store     Store
	remote    Remote
	clock     clock.Clock
	push      *semaphore.Weighted
	holder    string
	warnAfter int

	uploadTimeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used to timestamp failed uploads.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithWarnAfter sets the failed upload count at which a sale is reported
// as stuck.
func WithWarnAfter(n int) Option {
	return func(e *Engine) {
		e.warnAfter = n
	}
}

// WithUploadTimeout sets the deadline of a single sale upload. Values that
// are not positive or not below PushLeaseTTL are ignored.
func WithUploadTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 && d < PushLeaseTTL {
			e.uploadTimeout = d
		}
	}
}

// New returns an Engine syncing s with r.
func New(s Store, r Remote, opts ...Option) *Engine {
	e := &Engine{
		store:     s,
		remote:    r,
		clock:     clock.Real(),
		push:      semaphore.NewWeighted(1),
		holder:    model.UUIDv7Generator{}.Generate(),
		warnAfter: DefaultWarnAfter,

		uploadTimeout: DefaultUploadTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Verify checks the credentials with one authentication round-trip.
func (e *Engine) Verify(ctx context.Context) error {
	return e.remote.Verify(ctx)
}

// PullCatalog fetches members and articles concurrently and replaces the
// local catalog. The two entities are independent: when one fails, its
// local rows stay untouched and the other is still replaced. The returned
// error joins both failures.
func (e *Engine) PullCatalog(ctx context.Context) (PullReport, error) {
	var (
		report                  PullReport
		membersErr, articlesErr error
		g                       errgroup.Group
	)

	g.Go(func() error {
		membersErr = e.pullMembers(ctx, &report)
		return membersErr
	})
	g.Go(func() error {
		articlesErr = e.pullArticles(ctx, &report)
		return articlesErr
	})
	_ = g.Wait()

	err := errors.Join(membersErr, articlesErr)
	if err != nil {
		slog.Error("catalog pull failed", "error", err)
	}
	return report, err
}

// pullMembers writes only the member fields of report.
func (e *Engine) pullMembers(ctx context.Context, report *PullReport) error {
	slog.Info("loading users")
	users, err := e.remote.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	members, dropped := ConvertUsers(users)
	n, err := e.store.ReplaceMembers(ctx, members)
	if err != nil {
		return err
	}

	report.Members = n
	report.DroppedUsers = dropped
	slog.Info("members saved",
		"received", len(users),
		"keycodes", n,
		"dropped_users", dropped,
		"skipped_rows", len(members)-n,
	)
	return nil
}

// pullArticles writes only the article fields of report.
func (e *Engine) pullArticles(ctx context.Context, report *PullReport) error {
	slog.Info("loading articles")
	remoteArticles, err := e.remote.ListArticles(ctx)
	if err != nil {
		return fmt.Errorf("list articles: %w", err)
	}

	articles, dropped := ConvertArticles(remoteArticles)
	n, err := e.store.ReplaceArticles(ctx, articles)
	if err != nil {
		return err
	}

	report.Articles = n
	report.DroppedArticles = dropped
	slog.Info("articles saved",
		"received", len(remoteArticles),
		"saved", n,
		"dropped", dropped,
		"skipped_rows", len(articles)-n,
	)
	return nil
}

// PushSales uploads all pending sales one by one in ledger order and deletes
// each acknowledged sale. ran is false when another push is in progress,
// here or in another process; the call then does nothing. The error reports
// a failure to take the lease or read the ledger; individual upload
// failures are counted in the report.
func (e *Engine) PushSales(ctx context.Context) (report PushReport, ran bool, err error) {
	if !e.push.TryAcquire(1) {
		slog.Debug("sale push already in progress, skipping")
		return PushReport{}, false, nil
	}
	defer e.push.Release(1)

	held, err := e.store.AcquirePushLease(ctx, e.holder, e.clock.Now(), PushLeaseTTL)
	if err != nil {
		return PushReport{}, true, fmt.Errorf("push sales: %w", err)
	}
	if !held {
		slog.Debug("sale push running in another process, skipping")
		return PushReport{}, false, nil
	}
	defer func() {
		if err := e.store.ReleasePushLease(context.WithoutCancel(ctx), e.holder); err != nil {
			slog.Warn("failed to release push lease", "error", err)
		}
	}()

	sales, err := e.store.LoadSales(ctx)
	if err != nil {
		return PushReport{}, true, fmt.Errorf("push sales: %w", err)
	}
	if len(sales) == 0 {
		slog.Debug("no sales to upload")
		return PushReport{}, true, nil
	}

	slog.Info("uploading sales", "count", len(sales))
	for _, sale := range sales {
		if ctx.Err() != nil {
			break
		}
		if held, err := e.store.AcquirePushLease(ctx, e.holder, e.clock.Now(), PushLeaseTTL); err != nil || !held {
			slog.Warn("lost push lease, stopping upload", "error", err)
			break
		}
		report.Attempted++

		uploadCtx, cancel := context.WithTimeout(ctx, e.uploadTimeout)
		err := e.upload(uploadCtx, sale)
		cancel()
		if err != nil {
			report.Failed++
			e.recordFailure(ctx, sale, err)
			continue
		}
		report.Uploaded++

		if err := e.store.DeleteSale(ctx, sale.ID); err != nil {
			slog.Warn("failed to delete uploaded sale", "sale_id", sale.ID, "error", err)
		}
	}

	slog.Info("sales push finished",
		"attempted", report.Attempted,
		"uploaded", report.Uploaded,
		"failed", report.Failed,
	)
	return report, true, nil
}

func (e *Engine) upload(ctx context.Context, sale model.Sale) error {
	memberID, err := strconv.Atoi(sale.MemberID)
	if err != nil {
		return fmt.Errorf("member id %q is not numeric", sale.MemberID)
	}
	return e.remote.AddSale(ctx, remote.NewSale{
		BookingDate: sale.Date.String(),
		ArticleID:   sale.ArticleID,
		Amount:      sale.Amount,
		MemberID:    memberID,
	})
}

func (e *Engine) recordFailure(ctx context.Context, sale model.Sale, cause error) {
	attempts, err := e.store.RecordSaleFailure(ctx, sale.ID, cause, e.clock.Now())
	if err != nil {
		slog.Warn("failed to upload sale", "sale_id", sale.ID, "error", cause)
		slog.Error("failed to record upload failure", "sale_id", sale.ID, "error", err)
		return
	}
	if attempts >= e.warnAfter {
		slog.Warn("sale keeps failing to upload",
			"sale_id", sale.ID,
			"attempts", attempts,
			"error", cause,
		)
		return
	}
	slog.Warn("failed to upload sale", "sale_id", sale.ID, "attempts", attempts, "error", cause)
}
