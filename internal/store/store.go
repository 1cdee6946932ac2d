package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"inventory-bot-backend/internal/model"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicatePending is returned when the database rejects a second pending order for a material.
	ErrDuplicatePending = errors.New("pending order already exists for material")
)

// Store defines the repository operations the bot and the ops API depend on.
type Store interface {
	FindMaterialsBelowMinimum(ctx context.Context) ([]model.Material, error)
	GetMaterial(ctx context.Context, id int64) (*model.Material, error)

	FindPendingOrder(ctx context.Context, materialID int64) (*model.Order, error)
	CreateOrder(ctx context.Context, materialID, providerID int64, quantity int) (*model.Order, error)
	ListOrders(ctx context.Context, status model.OrderStatus) ([]model.Order, error)

	ListOffers(ctx context.Context) ([]model.Offer, error)
	TouchOfferReminder(ctx context.Context, offerID int64, at time.Time) error
	ListProducts(ctx context.Context) ([]model.Product, error)
	ListAssignments(ctx context.Context, productID int64) ([]model.ClientProductAssignment, error)

	ListUpcomingMaintenance(ctx context.Context, from time.Time, windowDays int) ([]model.MaintenanceRecord, error)
	ListOverdueMaintenance(ctx context.Context, before time.Time) ([]model.MaintenanceRecord, error)
	ListRequirements(ctx context.Context, maintenanceID int64) ([]model.MaterialRequirement, error)

	ListPushSubscriptions(ctx context.Context, recipient string) ([]model.PushSubscription, error)
	SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeletePushSubscription(ctx context.Context, endpoint string) error

	Ping(ctx context.Context) error
	Count(ctx context.Context, table any) (int64, error)

	// Transaction runs fn against a Store bound to one database transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *gormStore) Count(ctx context.Context, table any) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(table).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (s *gormStore) FindMaterialsBelowMinimum(ctx context.Context) ([]model.Material, error) {
	var materials []model.Material
	err := s.db.WithContext(ctx).
		Preload("Provider").
		Where("quantity_on_hand < quantity_minimum").
		Order("id").
		Find(&materials).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list materials below minimum: %w", err)
	}
	return materials, nil
}

func (s *gormStore) GetMaterial(ctx context.Context, id int64) (*model.Material, error) {
	var material model.Material
	err := s.db.WithContext(ctx).Preload("Provider").First(&material, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get material %d: %w", id, err)
	}
	return &material, nil
}

// FindPendingOrder returns the pending order for a material, or nil when there is none.
func (s *gormStore) FindPendingOrder(ctx context.Context, materialID int64) (*model.Order, error) {
	var orders []model.Order
	err := s.db.WithContext(ctx).
		Where("material_id = ? AND status = ?", materialID, model.OrderPending).
		Limit(1).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up pending order for material %d: %w", materialID, err)
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return &orders[0], nil
}

func (s *gormStore) CreateOrder(ctx context.Context, materialID, providerID int64, quantity int) (*model.Order, error) {
	order := model.Order{
		MaterialID: materialID,
		ProviderID: providerID,
		Quantity:   quantity,
		Status:     model.OrderPending,
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicatePending
		}
		return nil, fmt.Errorf("failed to create order for material %d: %w", materialID, err)
	}
	return &order, nil
}

func (s *gormStore) ListOrders(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	q := s.db.WithContext(ctx).Preload("Material").Preload("Provider").Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var orders []model.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}
