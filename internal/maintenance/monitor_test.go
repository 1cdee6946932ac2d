package maintenance

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-bot-backend/internal/cycle"
	"inventory-bot-backend/internal/model"
	"inventory-bot-backend/internal/notification/notificationtest"
	"inventory-bot-backend/internal/replenish"
	"inventory-bot-backend/internal/store"
	"inventory-bot-backend/internal/store/storetest"
)

const admin = "admin@example.com"

var now = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func newMonitor(t *testing.T, s store.Store) (*Monitor, *replenish.Engine, *notificationtest.Recorder) {
	t.Helper()
	log, _ := storetest.Logger()
	gw := &notificationtest.Recorder{}
	engine := replenish.NewEngine(s, gw, 1.5, clock, log)
	m := NewMonitor(s, engine, gw, Options{WindowDays: 7, AdminRecipient: admin}, clock, log)
	return m, engine, gw
}

func days(n int) time.Time { return now.AddDate(0, 0, n) }

func TestMonitor_Upcoming(t *testing.T) {
	ctx := context.Background()

	t.Run("shortage creates an order and is listed for the technician", func(t *testing.T) {
		s, db := storetest.New(t)
		fx := storetest.NewFixture(t, db)
		provider := fx.Provider("provider@example.com")
		grease := fx.Material("Grease", 3, 2, provider)
		filter := fx.Material("Air filter", 10, 2, provider)
		tech := fx.Technician("tech@example.com")
		r := fx.Maintenance("Compressor", days(2), model.MaintenanceScheduled, &tech)
		fx.Requirement(r, grease, 10)
		fx.Requirement(r, filter, 4)

		m, _, gw := newMonitor(t, s)
		rep := m.RunCycle(ctx)

		assert.True(t, rep.OK(), "%v", rep.Failures)
		assert.Equal(t, 1, rep.Scanned)

		orders := fx.Orders(grease.ID)
		require.Len(t, orders, 1)
		assert.Equal(t, 11, orders[0].Quantity)
		assert.Empty(t, fx.Orders(filter.ID))

		assert.Len(t, gw.To("provider@example.com"), 1)
		sent := gw.To("tech@example.com")
		require.Len(t, sent, 1)
		assert.Equal(t, "Upcoming maintenance - Compressor", sent[0].Subject)
		assert.Contains(t, sent[0].Body, "Scheduled date: 2026-10-20")
		assert.Contains(t, sent[0].Body, fmt.Sprintf("- Grease: required 10, on hand 3 (order #%d pending)", orders[0].ID))
		assert.NotContains(t, sent[0].Body, "Air filter")
	})

	t.Run("deficit uses the minimum when it is the larger gap", func(t *testing.T) {
		s, db := storetest.New(t)
		fx := storetest.NewFixture(t, db)
		provider := fx.Provider("provider@example.com")
		oil := fx.Material("Oil", 1, 20, provider)
		r := fx.Maintenance("Lathe", days(1), model.MaintenanceScheduled, nil)
		fx.Requirement(r, oil, 4)

		m, _, _ := newMonitor(t, s)
		m.RunCycle(ctx)

		orders := fx.Orders(oil.ID)
		require.Len(t, orders, 1)
		assert.Equal(t, 29, orders[0].Quantity)
	})

	t.Run("existing pending order is reused", func(t *testing.T) {
		s, db := storetest.New(t)
		fx := storetest.NewFixture(t, db)
		provider := fx.Provider("provider@example.com")
		grease := fx.Material("Grease", 3, 2, provider)
		pending := fx.PendingOrder(grease, 40)
		tech := fx.Technician("tech@example.com")
		r := fx.Maintenance("Compressor", days(0), model.MaintenanceScheduled, &tech)
		fx.Requirement(r, grease, 10)

		m, _, gw := newMonitor(t, s)
		rep := m.RunCycle(ctx)

		assert.True(t, rep.OK())
		assert.Len(t, fx.Orders(grease.ID), 1)
		assert.Empty(t, gw.To("provider@example.com"))
		sent := gw.To("tech@example.com")
		require.Len(t, sent, 1)
		assert.Contains(t, sent[0].Body, fmt.Sprintf("(order #%d pending)", pending.ID))
	})

	t.Run("no technician skips the notice but still orders", func(t *testing.T) {
		s, db := storetest.New(t)
		fx := storetest.NewFixture(t, db)
		provider := fx.Provider("provider@example.com")
		grease := fx.Material("Grease", 0, 0, provider)
		r := fx.Maintenance("Compressor", days(3), model.MaintenanceScheduled, nil)
		fx.Requirement(r, grease, 2)

		m, _, gw := newMonitor(t, s)
		rep := m.RunCycle(ctx)

		assert.True(t, rep.OK())
		assert.Len(t, fx.Orders(grease.ID), 1)
		require.Len(t, gw.Sent(), 1)
		assert.Equal(t, "provider@example.com", gw.Sent()[0].Recipient)
	})

	t.Run("window bounds", func(t *testing.T) {
		s, db := storetest.New(t)
		fx := storetest.NewFixture(t, db)
		tech := fx.Technician("tech@example.com")
		fx.Maintenance("Today", days(0), model.MaintenanceScheduled, &tech)
		fx.Maintenance("Last day", days(7), model.MaintenanceScheduled, &tech)
		fx.Maintenance("Too far", days(8), model.MaintenanceScheduled, &tech)

		m, _, gw := newMonitor(t, s)
		rep := m.RunCycle(ctx)

		assert.Equal(t, 2, rep.Scanned)
		sent := gw.To("tech@example.com")
		require.Len(t, sent, 2)
		assert.Equal(t, "Upcoming maintenance - Today", sent[0].Subject)
		assert.Equal(t, "Upcoming maintenance - Last day", sent[1].Subject)
		assert.Contains(t, sent[0].Body, "All required materials are available.")
	})

	t.Run("requirement lookup failure is isolated", func(t *testing.T) {
		s, db := storetest.New(t)
		fx := storetest.NewFixture(t, db)
		tech := fx.Technician("tech@example.com")
		broken := fx.Maintenance("Broken", days(1), model.MaintenanceScheduled, &tech)
		fx.Maintenance("Healthy", days(2), model.MaintenanceScheduled, &tech)

		failing := &storetest.Failing{
			Store: s,
			ListRequirementsFunc: func(ctx context.Context, id int64) ([]model.MaterialRequirement, error) {
				if id == broken.ID {
					return nil, errors.New("deadlock detected")
				}
				return s.ListRequirements(ctx, id)
			},
		}
		log, _ := storetest.Logger()
		gw := &notificationtest.Recorder{}
		engine := replenish.NewEngine(failing, gw, 1.5, clock, log)
		m := NewMonitor(failing, engine, gw, Options{AdminRecipient: admin}, clock, log)

		rep := m.RunCycle(ctx)

		require.Len(t, rep.Failures, 1)
		assert.Equal(t, fmt.Sprintf("maintenance:%d", broken.ID), rep.Failures[0].Unit)
		assert.Equal(t, cycle.KindPersistence, rep.Failures[0].Kind)
		sent := gw.To("tech@example.com")
		require.Len(t, sent, 1)
		assert.Equal(t, "Upcoming maintenance - Healthy", sent[0].Subject)
	})
}

func TestMonitor_Overdue(t *testing.T) {
	ctx := context.Background()

	t.Run("admin is notified even without a technician", func(t *testing.T) {
		s, db := storetest.New(t)
		fx := storetest.NewFixture(t, db)
		fx.Maintenance("Boiler", days(-3), model.MaintenanceScheduled, nil)

		m, _, gw := newMonitor(t, s)
		rep := m.RunCycle(ctx)

		assert.True(t, rep.OK())
		sent := gw.To(admin)
		require.Len(t, sent, 1)
		assert.Equal(t, "URGENT: Overdue maintenance - Boiler", sent[0].Subject)
		assert.Contains(t, sent[0].Body, "Days late: 3")
		assert.Contains(t, sent[0].Body, "Technician: unassigned")
	})

	t.Run("technician and admin are both notified", func(t *testing.T) {
		s, db := storetest.New(t)
		fx := storetest.NewFixture(t, db)
		tech := fx.Technician("tech@example.com")
		fx.Maintenance("Boiler", days(-1), model.MaintenanceInProgress, &tech)

		m, _, gw := newMonitor(t, s)
		rep := m.RunCycle(ctx)

		assert.Equal(t, 2, rep.Notified)
		assert.Len(t, gw.To("tech@example.com"), 1)
		assert.Len(t, gw.To(admin), 1)
	})

	t.Run("completed records are ignored", func(t *testing.T) {
		s, db := storetest.New(t)
		fx := storetest.NewFixture(t, db)
		fx.Maintenance("Boiler", days(-5), model.MaintenanceCompleted, nil)

		m, _, gw := newMonitor(t, s)
		rep := m.RunCycle(ctx)

		assert.Zero(t, rep.Scanned)
		assert.Empty(t, gw.Sent())
	})

	t.Run("failed admin delivery is a transport failure", func(t *testing.T) {
		s, db := storetest.New(t)
		fx := storetest.NewFixture(t, db)
		tech := fx.Technician("tech@example.com")
		fx.Maintenance("Boiler", days(-2), model.MaintenanceScheduled, &tech)

		m, _, gw := newMonitor(t, s)
		gw.Fail = func(recipient string) bool { return recipient == admin }
		rep := m.RunCycle(ctx)

		require.Len(t, rep.Failures, 1)
		assert.Equal(t, cycle.KindTransport, rep.Failures[0].Kind)
		assert.Len(t, gw.To("tech@example.com"), 1)
	})
}

func TestShortageAndLowStockShareOnePendingOrder(t *testing.T) {
	ctx := context.Background()
	s, db := storetest.New(t)
	fx := storetest.NewFixture(t, db)
	provider := fx.Provider("provider@example.com")
	grease := fx.Material("Grease", 5, 20, provider)
	r := fx.Maintenance("Compressor", days(1), model.MaintenanceScheduled, nil)
	fx.Requirement(r, grease, 30)

	m, engine, gw := newMonitor(t, s)
	engine.RunCycle(ctx)
	m.RunCycle(ctx)
	engine.RunCycle(ctx)
	m.RunCycle(ctx)

	orders := fx.Orders(grease.ID)
	require.Len(t, orders, 1)
	assert.Equal(t, 23, orders[0].Quantity)
	assert.Len(t, gw.To("provider@example.com"), 1)
}

func TestDaysLate(t *testing.T) {
	scheduled := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 3, DaysLate(scheduled, time.Date(2026, 10, 18, 0, 0, 1, 0, time.UTC)))
	assert.Equal(t, 3, DaysLate(scheduled, time.Date(2026, 10, 18, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, 0, DaysLate(scheduled, scheduled))
}
