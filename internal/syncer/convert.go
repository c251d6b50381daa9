package syncer

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/clubfridge/internal/model"
	"github.com/roach88/clubfridge/internal/remote"
)

// ConvertUsers turns remote users into one Member row per valid scan token.
// Invalid tokens are skipped; users left without any valid token are
// dropped and counted.
func ConvertUsers(users []remote.User) (members []model.Member, dropped int) {
	members = []model.Member{}
	for _, u := range users {
		valid := 0
		for _, raw := range u.Keycodes {
			keycode, err := model.ParseKeycode(raw)
			if err != nil {
				slog.Debug("skipping keycode", "member_id", u.MemberID, "error", err)
				continue
			}
			members = append(members, model.Member{
				Keycode:   keycode,
				ID:        u.MemberID,
				FirstName: norm.NFC.String(u.FirstName),
				LastName:  norm.NFC.String(u.LastName),
				Nickname:  norm.NFC.String(u.Nickname),
			})
			valid++
		}
		if valid == 0 {
			slog.Warn("dropping user without valid keycode", "member_id", u.MemberID)
			dropped++
		}
	}
	return members, dropped
}

// ConvertArticles turns remote articles into catalog articles. An article
// with a missing id or any unparsable price is dropped and counted.
func ConvertArticles(articles []remote.Article) (out []model.Article, dropped int) {
	out = []model.Article{}
	for _, a := range articles {
		article, err := convertArticle(a)
		if err != nil {
			slog.Warn("dropping invalid article", "article_id", a.ArticleID, "error", err)
			dropped++
			continue
		}
		out = append(out, article)
	}
	return out, dropped
}

func convertArticle(a remote.Article) (model.Article, error) {
	if a.ArticleID == "" {
		return model.Article{}, fmt.Errorf("missing article id")
	}

	prices := make([]model.Price, 0, len(a.Prices))
	for i, p := range a.Prices {
		from, err := model.ParseDate(p.ValidFrom)
		if err != nil {
			return model.Article{}, fmt.Errorf("price %d: valid from: %w", i, err)
		}
		to, err := model.ParseDate(p.ValidTo)
		if err != nil {
			return model.Article{}, fmt.Errorf("price %d: valid to: %w", i, err)
		}
		unit, err := decimal.NewFromString(p.UnitPrice)
		if err != nil {
			return model.Article{}, fmt.Errorf("price %d: unit price %q: %w", i, p.UnitPrice, err)
		}
		prices = append(prices, model.Price{ValidFrom: from, ValidTo: to, UnitPrice: unit})
	}

	return model.Article{
		ID:          a.ArticleID,
		Designation: norm.NFC.String(a.Designation),
		Prices:      prices,
	}, nil
}
