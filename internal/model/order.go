package model

import "time"

// OrderStatus is the lifecycle state of a purchase order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderFulfilled OrderStatus = "fulfilled"
	OrderCancelled OrderStatus = "cancelled"
)

// Order is a replenishment request sent to a provider.
// At most one pending order may exist per material.
type Order struct {
	ID         int64       `gorm:"primaryKey"`
	MaterialID int64       `gorm:"index;not null"`
	ProviderID int64       `gorm:"index;not null"`
	Quantity   int         `gorm:"not null;check:quantity > 0"`
	Status     OrderStatus `gorm:"size:20;not null;default:pending"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Associations
	Material Material `gorm:"constraint:OnDelete:CASCADE"`
	Provider Provider `gorm:"constraint:OnDelete:RESTRICT"`
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderFulfilled, OrderCancelled:
		return true
	}
	return false
}
