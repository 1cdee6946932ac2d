package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable item counted in units and sold in fixed-size lots.
type Product struct {
	ID             int64           `gorm:"primaryKey"`
	Name           string          `gorm:"size:100;not null"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	UnitsPerLot    int             `gorm:"not null;check:units_per_lot > 0"`
	QuantityOnHand int             `gorm:"not null"`
	CreatedAt      time.Time
}

// LotsAvailable is the number of whole lots on hand. A non-positive lot size yields zero.
func (p Product) LotsAvailable() int {
	if p.UnitsPerLot <= 0 {
		return 0
	}
	return p.QuantityOnHand / p.UnitsPerLot
}
