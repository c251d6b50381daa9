package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/clubfridge/internal/model"
	"github.com/roach88/clubfridge/internal/remote"
)

// FakeRemote is an in-memory remote.API.
//
// Tokens are handed out as "token-1", "token-2", ... and become valid once
// authenticated with the expected credentials. Revoke invalidates every
// token handed out so far, which lets tests exercise re-authentication.
//
// Safe for concurrent use.
type FakeRemote struct {
	mu sync.Mutex

	creds    model.Credentials
	users    []remote.User
	articles []remote.Article
	sales    []remote.NewSale

	issued int
	valid  map[string]bool

	tokenErr    error
	usersErr    error
	articlesErr error
	saleHook    func(ctx context.Context, sale remote.NewSale) error

	tokenCalls int
	authCalls  int
	saleCalls  int
}

var _ remote.API = (*FakeRemote)(nil)

// NewFakeRemote returns a FakeRemote accepting creds.
func NewFakeRemote(creds model.Credentials) *FakeRemote {
	return &FakeRemote{creds: creds, valid: map[string]bool{}}
}

// SetUsers sets the users returned by ListUsers.
func (f *FakeRemote) SetUsers(users ...remote.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = users
}

// SetArticles sets the articles returned by ListArticles.
func (f *FakeRemote) SetArticles(articles ...remote.Article) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.articles = articles
}

// FailTokens makes GetAccessToken return err. Nil restores normal behavior.
func (f *FakeRemote) FailTokens(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenErr = err
}

// FailUsers makes ListUsers return err after the token check.
func (f *FakeRemote) FailUsers(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usersErr = err
}

// FailArticles makes ListArticles return err after the token check.
func (f *FakeRemote) FailArticles(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.articlesErr = err
}

// OnAddSale installs a hook run for every AddSale with a valid token. A
// non-nil result rejects the sale. The hook runs without the fake's lock
// held, so it may block.
func (f *FakeRemote) OnAddSale(hook func(ctx context.Context, sale remote.NewSale) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saleHook = hook
}

// Revoke invalidates all tokens issued so far.
func (f *FakeRemote) Revoke() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.valid = map[string]bool{}
}

// Sales returns the accepted sales in submission order.
func (f *FakeRemote) Sales() []remote.NewSale {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]remote.NewSale(nil), f.sales...)
}

// TokenCalls returns the number of GetAccessToken calls.
func (f *FakeRemote) TokenCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenCalls
}

// AuthCalls returns the number of Authenticate calls.
func (f *FakeRemote) AuthCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authCalls
}

// SaleCalls returns the number of AddSale calls, accepted or not.
func (f *FakeRemote) SaleCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saleCalls
}

func (f *FakeRemote) GetAccessToken(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.tokenCalls++
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	f.issued++
	return fmt.Sprintf("token-%d", f.issued), nil
}

func (f *FakeRemote) Authenticate(ctx context.Context, token string, creds model.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.authCalls++
	if creds != f.creds {
		return remote.ErrUnauthorized
	}
	f.valid[token] = true
	return nil
}

func (f *FakeRemote) ListUsers(ctx context.Context, token string) ([]remote.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.valid[token] {
		return nil, remote.ErrUnauthorized
	}
	if f.usersErr != nil {
		return nil, f.usersErr
	}
	return append([]remote.User(nil), f.users...), nil
}

func (f *FakeRemote) ListArticles(ctx context.Context, token string) ([]remote.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.valid[token] {
		return nil, remote.ErrUnauthorized
	}
	if f.articlesErr != nil {
		return nil, f.articlesErr
	}
	return append([]remote.Article(nil), f.articles...), nil
}

func (f *FakeRemote) AddSale(ctx context.Context, token string, sale remote.NewSale) error {
	f.mu.Lock()
	f.saleCalls++
	if !f.valid[token] {
		f.mu.Unlock()
		return remote.ErrUnauthorized
	}
	hook := f.saleHook
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, sale); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sales = append(f.sales, sale)
	return nil
}
