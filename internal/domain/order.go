package domain

import "time"

// Order records a purchase of a product. Orders are created by the
// storefront checkout, not by this service; they are modeled here so
// reporting aggregates and the delete gate have a table to query.
type Order struct {
	ID               int64     `gorm:"primaryKey" json:"id,string"`
	ProductID        int64     `gorm:"index" json:"product_id,string"`
	CustomerID       int64     `gorm:"index" json:"customer_id,string"`
	PricePaidInCents int64     `json:"price_paid_in_cents"`
	CreatedAt        time.Time `json:"created_at"`
}

// Customer is a storefront account that can place orders.
type Customer struct {
	ID        int64     `gorm:"primaryKey" json:"id,string"`
	Email     string    `gorm:"uniqueIndex;size:256" json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
