package product

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/storekit/storekit/internal/domain"
)

// AvailabilityCounts is the dashboard active/inactive split.
type AvailabilityCounts struct {
	ActiveCount   int64 `json:"active_count"`
	InactiveCount int64 `json:"inactive_count"`
}

// SalesSummary aggregates all orders.
type SalesSummary struct {
	TotalRevenueInCents int64 `json:"total_revenue_in_cents"`
	OrderCount          int64 `json:"order_count"`
}

// CustomerSummary aggregates storefront accounts. AverageRevenuePerUser
// is 0 when there are no customers, never a division error.
type CustomerSummary struct {
	UserCount             int64   `json:"user_count"`
	AverageRevenuePerUser float64 `json:"average_revenue_per_user"`
}

// Repository is the product record store.
type Repository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	UpdateAvailability(ctx context.Context, id int64, available bool) error

	// Delete removes the record and returns it so the caller can clean
	// up the owned assets; record and asset deletion are separate steps.
	Delete(ctx context.Context, id int64) (*domain.Product, error)

	OrderCount(ctx context.Context, id int64) (int64, error)
	ListWithOrderCounts(ctx context.Context) ([]domain.ProductWithOrders, error)
	CountByAvailability(ctx context.Context) (*AvailabilityCounts, error)
	AggregateSales(ctx context.Context) (*SalesSummary, error)
	AggregateCustomers(ctx context.Context) (*CustomerSummary, error)
}

// GormProductRepository is the GORM implementation of Repository.
type GormProductRepository struct {
	db *gorm.DB
}

var _ Repository = (*GormProductRepository)(nil)

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) Create(ctx context.Context, p *domain.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *GormProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := r.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormProductRepository) Update(ctx context.Context, p *domain.Product) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *GormProductRepository) UpdateAvailability(ctx context.Context, id int64, available bool) error {
	res := r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ?", id).
		Update("is_available_for_purchase", available)
	if res.Error != nil {
		return res.Error
	}
	return nil
}

func (r *GormProductRepository) Delete(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		return tx.Delete(&domain.Product{}, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormProductRepository) OrderCount(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("product_id = ?", id).
		Count(&count).Error
	return count, err
}

func (r *GormProductRepository) ListWithOrderCounts(ctx context.Context) ([]domain.ProductWithOrders, error) {
	var rows []domain.ProductWithOrders
	err := r.db.WithContext(ctx).Model(&domain.Product{}).
		Select("products.*, COUNT(orders.id) AS order_count").
		Joins("LEFT JOIN orders ON orders.product_id = products.id").
		Group("products.id").
		Order("products.name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *GormProductRepository) CountByAvailability(ctx context.Context) (*AvailabilityCounts, error) {
	var out AvailabilityCounts
	db := r.db.WithContext(ctx).Model(&domain.Product{})
	if err := db.Where("is_available_for_purchase = ?", true).Count(&out.ActiveCount).Error; err != nil {
		return nil, err
	}
	db = r.db.WithContext(ctx).Model(&domain.Product{})
	if err := db.Where("is_available_for_purchase = ?", false).Count(&out.InactiveCount).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *GormProductRepository) AggregateSales(ctx context.Context) (*SalesSummary, error) {
	var out SalesSummary
	err := r.db.WithContext(ctx).Model(&domain.Order{}).
		Select("COALESCE(SUM(price_paid_in_cents), 0) AS total_revenue_in_cents, COUNT(id) AS order_count").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *GormProductRepository) AggregateCustomers(ctx context.Context) (*CustomerSummary, error) {
	var out CustomerSummary
	if err := r.db.WithContext(ctx).Model(&domain.Customer{}).Count(&out.UserCount).Error; err != nil {
		return nil, err
	}
	if out.UserCount == 0 {
		return &out, nil
	}
	var revenue int64
	err := r.db.WithContext(ctx).Model(&domain.Order{}).
		Select("COALESCE(SUM(price_paid_in_cents), 0)").
		Scan(&revenue).Error
	if err != nil {
		return nil, err
	}
	out.AverageRevenuePerUser = float64(revenue) / float64(out.UserCount)
	return &out, nil
}
