package domain

import "time"

// Product is a digital product managed through the admin surface.
// FilePath and ImagePath are asset store references; once a product
// exists both are always set.
type Product struct {
	ID                     int64     `gorm:"primaryKey" json:"id,string"`
	Name                   string    `gorm:"index" json:"name"`
	Description            string    `json:"description"`
	PriceInCents           int64     `json:"price_in_cents"`
	FilePath               string    `gorm:"size:1024" json:"file_path"`
	ImagePath              string    `gorm:"size:1024" json:"image_path"`
	IsAvailableForPurchase bool      `gorm:"index" json:"is_available_for_purchase"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// ProductWithOrders is the product list row, carrying the per-product
// order count used to gate deletion in the UI.
type ProductWithOrders struct {
	Product
	OrderCount int64 `json:"order_count"`
}
