package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/clubfridge/internal/model"
)

// ReplaceMembers replaces all members with the given list and returns the
// number of rows inserted.
//
// Delete and insert run in one transaction. A member whose keycode already
// appeared earlier in the batch is logged and skipped; the remaining rows
// still commit. Any other error rolls the transaction back and leaves the
// previous members in place.
func (s *Store) ReplaceMembers(ctx context.Context, members []model.Member) (int, error) {
	inserted := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM members`); err != nil {
			return fmt.Errorf("delete members: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO members (keycode, id, firstname, lastname, nickname)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare insert member: %w", err)
		}
		defer stmt.Close()

		for _, m := range members {
			_, err := stmt.ExecContext(ctx, m.Keycode, m.ID, m.FirstName, m.LastName, m.Nickname)
			if isConstraintViolation(err) {
				slog.Warn("skipping member", "keycode", m.Keycode, "member_id", m.ID, "error", err)
				continue
			}
			if err != nil {
				return fmt.Errorf("insert member %s: %w", m.ID, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("replace members: %w", err)
	}
	return inserted, nil
}

// ReplaceArticles replaces all articles with the given list and returns the
// number of rows inserted. Same transaction and duplicate handling as
// ReplaceMembers.
func (s *Store) ReplaceArticles(ctx context.Context, articles []model.Article) (int, error) {
	inserted := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM articles`); err != nil {
			return fmt.Errorf("delete articles: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO articles (id, designation, prices)
			VALUES (?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare insert article: %w", err)
		}
		defer stmt.Close()

		for _, a := range articles {
			pricesJSON, err := marshalPrices(a.Prices)
			if err != nil {
				slog.Warn("skipping article", "article_id", a.ID, "error", err)
				continue
			}

			_, err = stmt.ExecContext(ctx, a.ID, a.Designation, pricesJSON)
			if isConstraintViolation(err) {
				slog.Warn("skipping article", "article_id", a.ID, "error", err)
				continue
			}
			if err != nil {
				return fmt.Errorf("insert article %s: %w", a.ID, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("replace articles: %w", err)
	}
	return inserted, nil
}

// FindMemberByKeycode returns the member owning the normalized keycode.
func (s *Store) FindMemberByKeycode(ctx context.Context, keycode string) (model.Member, bool, error) {
	var m model.Member
	err := s.db.QueryRowContext(ctx, `
		SELECT keycode, id, firstname, lastname, nickname
		FROM members
		WHERE keycode = ?
	`, keycode).Scan(&m.Keycode, &m.ID, &m.FirstName, &m.LastName, &m.Nickname)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Member{}, false, nil
	}
	if err != nil {
		return model.Member{}, false, fmt.Errorf("find member: %w", err)
	}
	return m, true, nil
}

// FindArticleByID returns the article with the given barcode.
func (s *Store) FindArticleByID(ctx context.Context, id string) (model.Article, bool, error) {
	var (
		a          model.Article
		pricesJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, designation, prices
		FROM articles
		WHERE id = ?
	`, id).Scan(&a.ID, &a.Designation, &pricesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Article{}, false, nil
	}
	if err != nil {
		return model.Article{}, false, fmt.Errorf("find article: %w", err)
	}

	a.Prices, err = unmarshalPrices(pricesJSON)
	if err != nil {
		return model.Article{}, false, fmt.Errorf("find article %s: %w", id, err)
	}
	return a, true, nil
}

// ListMembers returns all members ordered by member id, then keycode.
func (s *Store) ListMembers(ctx context.Context) ([]model.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT keycode, id, firstname, lastname, nickname
		FROM members
		ORDER BY id ASC, keycode ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	members := []model.Member{}
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.Keycode, &m.ID, &m.FirstName, &m.LastName, &m.Nickname); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// CountMembers returns the number of member rows (scan tokens).
func (s *Store) CountMembers(ctx context.Context) (int, error) {
	return s.count(ctx, "members")
}

// CountArticles returns the number of articles.
func (s *Store) CountArticles(ctx context.Context) (int, error) {
	return s.count(ctx, "articles")
}

func (s *Store) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
