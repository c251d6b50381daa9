package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/clubfridge/internal/model"
)

func TestAppendSale_LoadSales(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	sale := createTestSale("sale-1", "11011", "3800235265659", 2)
	require.NoError(t, s.AppendSale(ctx, sale))

	sales, err := s.LoadSales(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, sale, sales[0])
}

func TestLoadSales_EmptyLedger(t *testing.T) {
	s := createTestStore(t)

	sales, err := s.LoadSales(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, sales)
	assert.Empty(t, sales)
}

func TestLoadSales_CreationOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	gen := model.UUIDv7Generator{}
	var ids []string
	for i := 0; i < 5; i++ {
		id := gen.Generate()
		ids = append(ids, id)
		require.NoError(t, s.AppendSale(ctx, createTestSale(id, "11011", "a", 1)))
	}

	sales, err := s.LoadSales(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 5)
	for i, sale := range sales {
		assert.Equal(t, ids[i], sale.ID)
	}
}

func TestAppendSales_Atomic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendSale(ctx, createTestSale("sale-2", "11011", "a", 1)))

	// sale-2 already exists, so the whole batch must be rejected.
	err := s.AppendSales(ctx, []model.Sale{
		createTestSale("sale-1", "11011", "a", 1),
		createTestSale("sale-2", "11011", "b", 1),
		createTestSale("sale-3", "11011", "c", 1),
	})
	require.Error(t, err)

	sales, err := s.LoadSales(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 1, "a failed batch must not leave partial rows")
	assert.Equal(t, "sale-2", sales[0].ID)
}

func TestAppendSales_RejectsNonPositiveAmount(t *testing.T) {
	s := createTestStore(t)

	err := s.AppendSales(context.Background(), []model.Sale{createTestSale("sale-1", "11011", "a", 0)})
	assert.Error(t, err)
}

func TestAppendSales_SurvivesUncleanRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s1, err := Open(path)
	require.NoError(t, err)

	batch := []model.Sale{
		createTestSale("sale-1", "0005635570", "3800235265659", 2),
		createTestSale("sale-2", "0005635570", "3800235266700", 1),
	}
	require.NoError(t, s1.AppendSales(ctx, batch))

	// Reopen without closing the first handle, as after a crash.
	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	sales, err := s2.LoadSales(ctx)
	require.NoError(t, err)
	assert.Equal(t, batch, sales)

	_ = s1.Close()
}

func TestDeleteSale(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendSales(ctx, []model.Sale{
		createTestSale("sale-1", "11011", "a", 1),
		createTestSale("sale-2", "11011", "b", 1),
	}))

	require.NoError(t, s.DeleteSale(ctx, "sale-1"))

	sales, err := s.LoadSales(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, "sale-2", sales[0].ID)

	require.NoError(t, s.DeleteSale(ctx, "sale-1"), "deleting a missing sale is not an error")
}

func TestRecordSaleFailure(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.AppendSale(ctx, createTestSale("sale-1", "11011", "a", 1)))

	n, err := s.RecordSaleFailure(ctx, "sale-1", errors.New("timeout"), at)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.RecordSaleFailure(ctx, "sale-1", errors.New("unknown member"), at.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	attempts, err := s.SaleAttempts(ctx)
	require.NoError(t, err)
	require.Contains(t, attempts, "sale-1")
	assert.Equal(t, 2, attempts["sale-1"].Attempts)
	assert.Equal(t, "unknown member", attempts["sale-1"].LastError)
	assert.True(t, attempts["sale-1"].LastAttemptAt.Equal(at.Add(time.Minute)))

	sales, err := s.LoadSales(ctx)
	require.NoError(t, err)
	assert.Len(t, sales, 1, "recording a failure never removes the sale")

	require.NoError(t, s.DeleteSale(ctx, "sale-1"))
	attempts, err = s.SaleAttempts(ctx)
	require.NoError(t, err)
	assert.Empty(t, attempts)
}

func TestRecordSaleFailure_UnknownSale(t *testing.T) {
	s := createTestStore(t)

	_, err := s.RecordSaleFailure(context.Background(), "missing", errors.New("x"), time.Now())
	assert.Error(t, err, "attempts reference an existing sale")
}
