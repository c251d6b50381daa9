package remote

import (
	"context"

	"github.com/roach88/clubfridge/internal/model"
)

// API is the accounting service as seen by the terminal.
//
// Data calls return ErrUnauthorized when the token is not (or no longer)
// accepted, *ValidationError when the service rejects the request content,
// and *NetworkError for transport failures and server errors.
type API interface {
	// GetAccessToken requests a new, not yet authenticated token.
	GetAccessToken(ctx context.Context) (string, error)

	// Authenticate binds the token to the given credentials.
	Authenticate(ctx context.Context, token string, creds model.Credentials) error

	ListUsers(ctx context.Context, token string) ([]User, error)
	ListArticles(ctx context.Context, token string) ([]Article, error)
	AddSale(ctx context.Context, token string, sale NewSale) error
}

// User is a club member as delivered by the service. Keycodes holds the raw,
// not yet normalized scan tokens assigned to the member.
type User struct {
	MemberID  string
	FirstName string
	LastName  string
	Nickname  string
	Keycodes  []string
}

// Article is a sellable item as delivered by the service.
type Article struct {
	ArticleID   string
	Designation string
	Prices      []Price
}

// Price is the raw price record of an article. Dates use YYYY-MM-DD and the
// unit price is a decimal string.
type Price struct {
	ValidFrom string
	ValidTo   string
	UnitPrice string
}

// NewSale is one sale submitted to the service.
type NewSale struct {
	BookingDate string
	ArticleID   string
	Amount      int
	MemberID    int
}
