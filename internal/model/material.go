package model

import "time"

// Provider supplies materials and receives automatic purchase orders.
type Provider struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"size:100;not null"`
	Phone     string    `gorm:"size:20;not null"`
	Email     string    `gorm:"size:120;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// Material is a stocked input with a reorder threshold.
type Material struct {
	ID              int64  `gorm:"primaryKey"`
	Name            string `gorm:"size:100;not null"`
	QuantityOnHand  int    `gorm:"not null;check:quantity_on_hand >= 0"`
	QuantityMinimum int    `gorm:"not null;check:quantity_minimum >= 0"`
	ProviderID      int64  `gorm:"index;not null"`
	ProductID       *int64 `gorm:"index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Associations
	Provider Provider `gorm:"constraint:OnDelete:RESTRICT"`
	Product  *Product
}

// LowStock reports whether the on-hand quantity is under the minimum.
func (m Material) LowStock() bool {
	return m.QuantityOnHand < m.QuantityMinimum
}

// Deficit is how far the material is below its minimum, or zero.
func (m Material) Deficit() int {
	if m.QuantityOnHand >= m.QuantityMinimum {
		return 0
	}
	return m.QuantityMinimum - m.QuantityOnHand
}
