package store

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/roach88/clubfridge/internal/model"
)

// createTestStore creates a new file-backed store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestArticle creates an article priced at unitPrice for all of 2000-2999.
func createTestArticle(id, designation, unitPrice string) model.Article {
	return model.Article{
		ID:          id,
		Designation: designation,
		Prices: []model.Price{{
			ValidFrom: model.NewDate(2000, 1, 1),
			ValidTo:   model.NewDate(2999, 12, 31),
			UnitPrice: decimal.RequireFromString(unitPrice),
		}},
	}
}

// createTestSale creates a sale dated 2025-01-01.
func createTestSale(id, memberID, articleID string, amount int) model.Sale {
	return model.Sale{
		ID:        id,
		Date:      model.NewDate(2025, 1, 1),
		MemberID:  memberID,
		ArticleID: articleID,
		Amount:    amount,
	}
}
