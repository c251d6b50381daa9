package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/clubfridge/internal/model"
)

// SaleAttempt records failed uploads of one sale.
type SaleAttempt struct {
	SaleID        string
	Attempts      int
	LastError     string
	LastAttemptAt time.Time
}

const insertSaleSQL = `
	INSERT INTO sales (id, date, member_id, article_id, amount)
	VALUES (?, ?, ?, ?, ?)
`

// AppendSale writes one sale to the ledger. It fails only if the sale
// cannot be stored; a sale is never dropped silently.
func (s *Store) AppendSale(ctx context.Context, sale model.Sale) error {
	_, err := s.db.ExecContext(ctx, insertSaleSQL, sale.ID, sale.Date, sale.MemberID, sale.ArticleID, sale.Amount)
	if err != nil {
		return fmt.Errorf("append sale %s: %w", sale.ID, err)
	}
	return nil
}

// AppendSales writes all sales of one checkout in a single transaction:
// either every sale is recorded or none is.
func (s *Store) AppendSales(ctx context.Context, sales []model.Sale) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertSaleSQL)
		if err != nil {
			return fmt.Errorf("prepare insert sale: %w", err)
		}
		defer stmt.Close()

		for _, sale := range sales {
			if _, err := stmt.ExecContext(ctx, sale.ID, sale.Date, sale.MemberID, sale.ArticleID, sale.Amount); err != nil {
				return fmt.Errorf("insert sale %s: %w", sale.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append sales: %w", err)
	}
	return nil
}

// LoadSales returns every sale in the ledger in creation order.
//
// Returns an empty slice (not nil) if the ledger is empty.
func (s *Store) LoadSales(ctx context.Context) ([]model.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, member_id, article_id, amount
		FROM sales
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	sales := []model.Sale{}
	for rows.Next() {
		var sale model.Sale
		if err := rows.Scan(&sale.ID, &sale.Date, &sale.MemberID, &sale.ArticleID, &sale.Amount); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales: %w", err)
	}
	return sales, nil
}

// DeleteSale removes one acknowledged sale together with its attempt
// bookkeeping. Deleting a sale that is no longer present is not an error.
func (s *Store) DeleteSale(ctx context.Context, id string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sale_attempts WHERE sale_id = ?`, id); err != nil {
			return fmt.Errorf("delete attempts: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sales WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete sale: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete sale %s: %w", id, err)
	}
	return nil
}

// RecordSaleFailure counts a failed upload of the sale and returns the
// number of failed attempts so far. The sale itself is not modified.
func (s *Store) RecordSaleFailure(ctx context.Context, id string, cause error, at time.Time) (int, error) {
	message := ""
	if cause != nil {
		message = cause.Error()
	}

	var attempts int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sale_attempts (sale_id, attempts, last_error, last_attempt_at)
			VALUES (?, 1, ?, ?)
			ON CONFLICT(sale_id) DO UPDATE SET
				attempts = attempts + 1,
				last_error = excluded.last_error,
				last_attempt_at = excluded.last_attempt_at
		`, id, message, at.UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("upsert attempt: %w", err)
		}
		return tx.QueryRowContext(ctx, `SELECT attempts FROM sale_attempts WHERE sale_id = ?`, id).Scan(&attempts)
	})
	if err != nil {
		return 0, fmt.Errorf("record failure for sale %s: %w", id, err)
	}
	return attempts, nil
}

// SaleAttempts returns upload failure bookkeeping keyed by sale id. Sales
// that never failed have no entry.
func (s *Store) SaleAttempts(ctx context.Context) (map[string]SaleAttempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sale_id, attempts, last_error, last_attempt_at
		FROM sale_attempts
	`)
	if err != nil {
		return nil, fmt.Errorf("query sale attempts: %w", err)
	}
	defer rows.Close()

	attempts := map[string]SaleAttempt{}
	for rows.Next() {
		var (
			a  SaleAttempt
			at string
		)
		if err := rows.Scan(&a.SaleID, &a.Attempts, &a.LastError, &at); err != nil {
			return nil, fmt.Errorf("scan sale attempt: %w", err)
		}
		a.LastAttemptAt, err = time.Parse(time.RFC3339, at)
		if err != nil {
			return nil, fmt.Errorf("parse attempt time for sale %s: %w", a.SaleID, err)
		}
		attempts[a.SaleID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sale attempts: %w", err)
	}
	return attempts, nil
}
