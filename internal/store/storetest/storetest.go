// Package storetest provides an in-memory SQLite store and fault injection for tests.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"inventory-bot-backend/internal/db"
	"inventory-bot-backend/internal/model"
	"inventory-bot-backend/internal/store"
)

// NewDB opens a private in-memory SQLite database with all migrations applied.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	silent, _ := test.NewNullLogger()
	require.NoError(t, db.Migrate(gormDB, silent))
	return gormDB
}

// New returns a gorm-backed store over a fresh in-memory database.
func New(t testing.TB) (store.Store, *gorm.DB) {
	gormDB := NewDB(t)
	return store.NewGormStore(gormDB), gormDB
}

// Logger returns a logger whose entries are captured by the returned hook.
func Logger() (*logrus.Logger, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return log, hook
}

// Fixture is a small builder for seeding rows in tests.
type Fixture struct {
	t  testing.TB
	db *gorm.DB
}

// NewFixture wraps db for seeding.
func NewFixture(t testing.TB, db *gorm.DB) *Fixture {
	return &Fixture{t: t, db: db}
}

func (f *Fixture) create(v any) {
	f.t.Helper()
	require.NoError(f.t, f.db.Create(v).Error)
}

// Provider creates a provider with the given email.
func (f *Fixture) Provider(email string) model.Provider {
	p := model.Provider{Name: "Provider " + email, Phone: "+12025550100", Email: email}
	f.create(&p)
	return p
}

// Material creates a material owned by provider.
func (f *Fixture) Material(name string, onHand, minimum int, provider model.Provider) model.Material {
	m := model.Material{Name: name, QuantityOnHand: onHand, QuantityMinimum: minimum, ProviderID: provider.ID}
	f.create(&m)
	m.Provider = provider
	return m
}

// PendingOrder creates a pending order for material.
func (f *Fixture) PendingOrder(m model.Material, quantity int) model.Order {
	o := model.Order{MaterialID: m.ID, ProviderID: m.ProviderID, Quantity: quantity, Status: model.OrderPending}
	f.create(&o)
	return o
}

// Client creates a client with the given email.
func (f *Fixture) Client(email string) model.Client {
	c := model.Client{Name: "Client " + email, Phone: "+12025550101", Email: email}
	f.create(&c)
	return c
}

// Product creates a product.
func (f *Fixture) Product(name string, unitsPerLot, onHand int, price string) model.Product {
	p := model.Product{Name: name, UnitsPerLot: unitsPerLot, QuantityOnHand: onHand}
	p.UnitPrice = decimal.RequireFromString(price)
	f.create(&p)
	return p
}

// Offer creates an offer created at createdAt.
func (f *Fixture) Offer(c model.Client, p model.Product, lots int, createdAt time.Time) model.Offer {
	o := model.Offer{ClientID: c.ID, ProductID: p.ID, LotsOffered: lots, CreatedAt: createdAt}
	f.create(&o)
	return o
}

// Assignment links client to product.
func (f *Fixture) Assignment(c model.Client, p model.Product, minimum int, notify bool) model.ClientProductAssignment {
	a := model.ClientProductAssignment{ClientID: c.ID, ProductID: p.ID, MinimumQuantity: minimum, Notify: true}
	f.create(&a)
	if !notify {
		// gorm skips zero values on create, so a false flag has to be written explicitly.
		require.NoError(f.t, f.db.Model(&a).Update("notify", false).Error)
		a.Notify = false
	}
	return a
}

// Technician creates a technician with the given email.
func (f *Fixture) Technician(email string) model.Technician {
	tech := model.Technician{Name: "Tech " + email, Phone: "+12025550102", Email: email, Specialty: "General"}
	f.create(&tech)
	return tech
}

// Maintenance creates a maintenance record; tech may be nil.
func (f *Fixture) Maintenance(equipment string, date time.Time, status model.MaintenanceStatus, tech *model.Technician) model.MaintenanceRecord {
	r := model.MaintenanceRecord{
		EquipmentName: equipment,
		ScheduledDate: store.Day(date),
		Details:       "Routine service for " + equipment,
		Status:        status,
	}
	if tech != nil {
		r.TechnicianID = &tech.ID
	}
	f.create(&r)
	return r
}

// Requirement links a material to a maintenance record.
func (f *Fixture) Requirement(r model.MaintenanceRecord, m model.Material, quantity int) model.MaterialRequirement {
	req := model.MaterialRequirement{MaintenanceID: r.ID, MaterialID: m.ID, QuantityRequired: quantity}
	f.create(&req)
	return req
}

// Orders returns every order for material.
func (f *Fixture) Orders(materialID int64) []model.Order {
	f.t.Helper()
	var orders []model.Order
	require.NoError(f.t, f.db.Where("material_id = ?", materialID).Order("id").Find(&orders).Error)
	return orders
}

// Failing wraps a Store and lets tests override single operations. Overrides
// that may fall through receive next, the store bound to the current transaction.
type Failing struct {
	store.Store

	CreateOrderFunc               func(ctx context.Context, next store.Store, materialID, providerID int64, quantity int) (*model.Order, error)
	ListOffersFunc                func(ctx context.Context) ([]model.Offer, error)
	ListRequirementsFunc          func(ctx context.Context, maintenanceID int64) ([]model.MaterialRequirement, error)
	FindMaterialsBelowMinimumFunc func(ctx context.Context) ([]model.Material, error)
	PingFunc                      func(ctx context.Context) error
}

func (f *Failing) CreateOrder(ctx context.Context, materialID, providerID int64, quantity int) (*model.Order, error) {
	if f.CreateOrderFunc != nil {
		return f.CreateOrderFunc(ctx, f.Store, materialID, providerID, quantity)
	}
	return f.Store.CreateOrder(ctx, materialID, providerID, quantity)
}

func (f *Failing) ListOffers(ctx context.Context) ([]model.Offer, error) {
	if f.ListOffersFunc != nil {
		return f.ListOffersFunc(ctx)
	}
	return f.Store.ListOffers(ctx)
}

func (f *Failing) ListRequirements(ctx context.Context, maintenanceID int64) ([]model.MaterialRequirement, error) {
	if f.ListRequirementsFunc != nil {
		return f.ListRequirementsFunc(ctx, maintenanceID)
	}
	return f.Store.ListRequirements(ctx, maintenanceID)
}

func (f *Failing) FindMaterialsBelowMinimum(ctx context.Context) ([]model.Material, error) {
	if f.FindMaterialsBelowMinimumFunc != nil {
		return f.FindMaterialsBelowMinimumFunc(ctx)
	}
	return f.Store.FindMaterialsBelowMinimum(ctx)
}

func (f *Failing) Ping(ctx context.Context) error {
	if f.PingFunc != nil {
		return f.PingFunc(ctx)
	}
	return f.Store.Ping(ctx)
}

// Transaction keeps the overrides active inside the transaction.
func (f *Failing) Transaction(ctx context.Context, fn func(tx store.Store) error) error {
	return f.Store.Transaction(ctx, func(tx store.Store) error {
		inner := *f
		inner.Store = tx
		return fn(&inner)
	})
}
