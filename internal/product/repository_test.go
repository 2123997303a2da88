package product

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storekit/storekit/internal/domain"
)

func seedProduct(t *testing.T, repo Repository, name string, available bool) *domain.Product {
	t.Helper()
	p := &domain.Product{
		ID:                     int64(len(name))*1000 + int64(name[0]),
		Name:                   name,
		Description:            "desc",
		PriceInCents:           100,
		FilePath:               "products/x-" + name,
		ImagePath:              "images/x-" + name,
		IsAvailableForPurchase: available,
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestListWithOrderCountsSortedByName(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	zed := seedProduct(t, repo, "zed", true)
	apple := seedProduct(t, repo, "apple", false)
	require.NoError(t, db.Create(&domain.Order{ID: 1, ProductID: zed.ID, CustomerID: 1, PricePaidInCents: 100}).Error)
	require.NoError(t, db.Create(&domain.Order{ID: 2, ProductID: zed.ID, CustomerID: 2, PricePaidInCents: 100}).Error)

	rows, err := repo.ListWithOrderCounts(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, apple.ID, rows[0].ID, "sorted by name ascending")
	assert.Zero(t, rows[0].OrderCount)
	assert.Equal(t, zed.ID, rows[1].ID)
	assert.Equal(t, int64(2), rows[1].OrderCount)
}

func TestCountByAvailability(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormProductRepository(db)

	seedProduct(t, repo, "a", true)
	seedProduct(t, repo, "b", false)
	seedProduct(t, repo, "c", false)

	counts, err := repo.CountByAvailability(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.ActiveCount)
	assert.Equal(t, int64(2), counts.InactiveCount)
}

func TestAggregateSales(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	empty, err := repo.AggregateSales(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalRevenueInCents)
	assert.Zero(t, empty.OrderCount)

	p := seedProduct(t, repo, "a", true)
	require.NoError(t, db.Create(&domain.Order{ID: 1, ProductID: p.ID, CustomerID: 1, PricePaidInCents: 500}).Error)
	require.NoError(t, db.Create(&domain.Order{ID: 2, ProductID: p.ID, CustomerID: 1, PricePaidInCents: 700}).Error)

	sales, err := repo.AggregateSales(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), sales.TotalRevenueInCents)
	assert.Equal(t, int64(2), sales.OrderCount)
}

func TestAggregateCustomersZeroUsers(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormProductRepository(db)

	summary, err := repo.AggregateCustomers(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.UserCount)
	assert.Zero(t, summary.AverageRevenuePerUser, "zero users never divides")
}

func TestAggregateCustomersAverage(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&domain.Customer{ID: 1, Email: "a@example.com"}).Error)
	require.NoError(t, db.Create(&domain.Customer{ID: 2, Email: "b@example.com"}).Error)
	p := seedProduct(t, repo, "a", true)
	require.NoError(t, db.Create(&domain.Order{ID: 1, ProductID: p.ID, CustomerID: 1, PricePaidInCents: 300}).Error)

	summary, err := repo.AggregateCustomers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.UserCount)
	assert.InDelta(t, 150.0, summary.AverageRevenuePerUser, 0.001)
}

func TestDeleteReturnsRecordRefs(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	p := seedProduct(t, repo, "a", false)
	deleted, err := repo.Delete(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.FilePath, deleted.FilePath)
	assert.Equal(t, p.ImagePath, deleted.ImagePath)

	_, err = repo.Delete(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
