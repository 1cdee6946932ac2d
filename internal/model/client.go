package model

import "time"

// Client is a customer that receives offers and lot availability notices.
type Client struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"size:100;not null"`
	Phone     string    `gorm:"size:20;not null"`
	Email     string    `gorm:"size:120;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// ClientProductAssignment links a client to a product it wants to hear about.
type ClientProductAssignment struct {
	ID              int64 `gorm:"primaryKey"`
	ClientID        int64 `gorm:"uniqueIndex:ux_assignment_client_product;not null"`
	ProductID       int64 `gorm:"uniqueIndex:ux_assignment_client_product;not null"`
	MinimumQuantity int   `gorm:"not null;default:1"`
	Notify          bool  `gorm:"not null;default:true"`

	// Associations
	Client  Client  `gorm:"constraint:OnDelete:CASCADE"`
	Product Product `gorm:"constraint:OnDelete:CASCADE"`
}

// Offer proposes a number of lots of a product to a client.
type Offer struct {
	ID             int64 `gorm:"primaryKey"`
	ClientID       int64 `gorm:"index;not null"`
	ProductID      int64 `gorm:"index;not null"`
	LotsOffered    int   `gorm:"not null;check:lots_offered > 0"`
	CreatedAt      time.Time
	LastRemindedAt *time.Time

	// Associations
	Client  Client  `gorm:"constraint:OnDelete:CASCADE"`
	Product Product `gorm:"constraint:OnDelete:CASCADE"`
}
