package offers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-bot-backend/internal/cycle"
	"inventory-bot-backend/internal/model"
	"inventory-bot-backend/internal/notification/notificationtest"
	"inventory-bot-backend/internal/store"
	"inventory-bot-backend/internal/store/storetest"
)

var now = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func newMonitor(t *testing.T, s store.Store, opts Options) (*Monitor, *notificationtest.Recorder) {
	t.Helper()
	log, _ := storetest.Logger()
	gw := &notificationtest.Recorder{}
	if opts.StaleAfter == 0 {
		opts.StaleAfter = 7 * 24 * time.Hour
	}
	return NewMonitor(s, gw, opts, func() time.Time { return now }, log), gw
}

func TestMonitor_RunCycle(t *testing.T) {
	ctx := context.Background()

	t.Run("notifies a client whose offer can be fulfilled", func(t *testing.T) {
		s, db := storetest.New(t)
		fx := storetest.NewFixture(t, db)
		client := fx.Client("client@example.com")
		product := fx.Product("Filter cartridge", 10, 95, "2.50")
		fx.Offer(client, product, 8, now.Add(-24*time.Hour))

		m, gw := newMonitor(t, s, Options{})
		rep := m.RunCycle(ctx)

		assert.True(t, rep.OK())
		assert.Equal(t, 1, rep.Scanned)
		sent := gw.To("client@example.com")
		require.Len(t, sent, 1)
		assert.Equal(t, "Offer available - Filter cartridge", sent[0].Subject)
		assert.Contains(t, sent[0].Body, "Lots offered: 8")
		assert.Contains(t, sent[0].Body, "Unit price: 2.50")
		assert.Contains(t, sent[0].Body, "Total units: 80")
		assert.Contains(t, sent[0].Body, "Total amount: 200.00")
	})

	t.Run("offer larger than available lots is not fulfillable", func(t *testing.T) {
		s, db := storetest.New(t)
		fx := storetest.NewFixture(t, db)
		client := fx.Client("client@example.com")
		product := fx.Product("Filter cartridge", 10, 95, "2.50")
		fx.Offer(client, product, 10, now.Add(-24*time.Hour))

		m, gw := newMonitor(t, s, Options{})
		rep := m.RunCycle(ctx)

		assert.True(t, rep.OK())
		assert.Empty(t, gw.Sent())
	})

	t.Run("stale offer gets a reminder every cycle without a cooldown", func(t *testing.T) {
		s, db := storetest.New(t)
		fx := storetest.NewFixture(t, db)
		client := fx.Client("client@example.com")
		product := fx.Product("Pump seal", 5, 0, "12.00")
		fx.Offer(client, product, 2, now.Add(-8*24*time.Hour))

		m, gw := newMonitor(t, s, Options{})
		m.RunCycle(ctx)
		m.RunCycle(ctx)

		sent := gw.To("client@example.com")
		require.Len(t, sent, 2)
		assert.Equal(t, "Offer reminder - Pump seal", sent[0].Subject)
		assert.Contains(t, sent[0].Body, "Open for: 8 days")
	})

	t.Run("offer exactly at the stale threshold is reminded", func(t *testing.T) {
		s, db := storetest.New(t)
		fx := storetest.NewFixture(t, db)
		client := fx.Client("client@example.com")
		product := fx.Product("Pump seal", 5, 0, "12.00")
		fx.Offer(client, product, 2, now.Add(-7*24*time.Hour))

		m, gw := newMonitor(t, s, Options{})
		m.RunCycle(ctx)

		assert.Len(t, gw.To("client@example.com"), 1)
	})

	t.Run("cooldown suppresses repeated reminders", func(t *testing.T) {
		s, db := storetest.New(t)
		fx := storetest.NewFixture(t, db)
		client := fx.Client("client@example.com")
		product := fx.Product("Pump seal", 5, 0, "12.00")
		offer := fx.Offer(client, product, 2, now.Add(-10*24*time.Hour))

		m, gw := newMonitor(t, s, Options{ReminderCooldown: 24 * time.Hour})
		m.RunCycle(ctx)
		rep := m.RunCycle(ctx)

		assert.True(t, rep.OK())
		assert.Len(t, gw.To("client@example.com"), 1)

		var stored model.Offer
		require.NoError(t, db.First(&stored, offer.ID).Error)
		require.NotNil(t, stored.LastRemindedAt)
		assert.WithinDuration(t, now, *stored.LastRemindedAt, time.Second)
	})

	t.Run("fulfillable and stale offer gets both notices", func(t *testing.T) {
		s, db := storetest.New(t)
		fx := storetest.NewFixture(t, db)
		client := fx.Client("client@example.com")
		product := fx.Product("Filter cartridge", 10, 95, "2.50")
		fx.Offer(client, product, 8, now.Add(-9*24*time.Hour))

		m, gw := newMonitor(t, s, Options{})
		rep := m.RunCycle(ctx)

		assert.Equal(t, 2, rep.Notified)
		sent := gw.To("client@example.com")
		require.Len(t, sent, 2)
		assert.Equal(t, "Offer available - Filter cartridge", sent[0].Subject)
		assert.Equal(t, "Offer reminder - Filter cartridge", sent[1].Subject)
	})

	t.Run("failed reminder is not recorded", func(t *testing.T) {
		s, db := storetest.New(t)
		fx := storetest.NewFixture(t, db)
		client := fx.Client("client@example.com")
		product := fx.Product("Pump seal", 5, 0, "12.00")
		offer := fx.Offer(client, product, 2, now.Add(-8*24*time.Hour))

		m, gw := newMonitor(t, s, Options{ReminderCooldown: time.Hour})
		gw.Fail = func(string) bool { return true }
		rep := m.RunCycle(ctx)

		require.Len(t, rep.Failures, 1)
		assert.Equal(t, cycle.KindTransport, rep.Failures[0].Kind)

		var stored model.Offer
		require.NoError(t, db.First(&stored, offer.ID).Error)
		assert.Nil(t, stored.LastRemindedAt)
	})

	t.Run("invalid lot size is a data failure and other offers still run", func(t *testing.T) {
		s, db := storetest.New(t)
		fx := storetest.NewFixture(t, db)
		client := fx.Client("client@example.com")
		product := fx.Product("Filter cartridge", 10, 95, "2.50")
		good := fx.Offer(client, product, 1, now)

		failing := &storetest.Failing{
			Store: s,
			ListOffersFunc: func(ctx context.Context) ([]model.Offer, error) {
				offers, err := s.ListOffers(ctx)
				if err != nil {
					return nil, err
				}
				broken := model.Offer{
					ID:          good.ID + 100,
					ClientID:    client.ID,
					LotsOffered: 1,
					CreatedAt:   now,
					Client:      client,
					Product:     model.Product{ID: 999, Name: "Broken", UnitsPerLot: 0, UnitPrice: decimal.NewFromInt(1)},
				}
				return append([]model.Offer{broken}, offers...), nil
			},
		}

		m, gw := newMonitor(t, failing, Options{})
		rep := m.RunCycle(ctx)

		assert.Equal(t, 2, rep.Scanned)
		require.Len(t, rep.Failures, 1)
		assert.Equal(t, cycle.KindData, rep.Failures[0].Kind)
		assert.ErrorIs(t, rep.Failures[0].Err, ErrInvalidLotSize)
		assert.Len(t, gw.To("client@example.com"), 1)
	})

	t.Run("scan failure is reported", func(t *testing.T) {
		s, _ := storetest.New(t)
		failing := &storetest.Failing{
			Store: s,
			ListOffersFunc: func(context.Context) ([]model.Offer, error) {
				return nil, errors.New("connection reset")
			},
		}

		m, gw := newMonitor(t, failing, Options{})
		rep := m.RunCycle(ctx)

		require.Len(t, rep.Failures, 1)
		assert.Equal(t, "scan:offers", rep.Failures[0].Unit)
		assert.Equal(t, cycle.KindPersistence, rep.Failures[0].Kind)
		assert.Empty(t, gw.Sent())
	})
}

func TestMonitor_LotAlerts(t *testing.T) {
	ctx := context.Background()
	s, db := storetest.New(t)
	fx := storetest.NewFixture(t, db)

	product := fx.Product("Filter cartridge", 10, 95, "2.50")
	empty := fx.Product("Gasket", 10, 9, "1.00")

	fx.Assignment(fx.Client("eager@example.com"), product, 5, true)
	fx.Assignment(fx.Client("bulk@example.com"), product, 10, true)
	fx.Assignment(fx.Client("muted@example.com"), product, 1, false)
	fx.Assignment(fx.Client("waiting@example.com"), empty, 1, true)

	t.Run("enabled", func(t *testing.T) {
		m, gw := newMonitor(t, s, Options{LotAlerts: true})
		rep := m.RunCycle(ctx)

		assert.True(t, rep.OK())
		require.Len(t, gw.Sent(), 1)
		sent := gw.To("eager@example.com")
		require.Len(t, sent, 1)
		assert.Equal(t, "Lots available - Filter cartridge", sent[0].Subject)
		assert.Contains(t, sent[0].Body, "Lots: 9")
		assert.Contains(t, sent[0].Body, "Total units available: 90")
	})

	t.Run("disabled", func(t *testing.T) {
		m, gw := newMonitor(t, s, Options{})
		m.RunCycle(ctx)
		assert.Empty(t, gw.Sent())
	})
}

func TestStale(t *testing.T) {
	week := 7 * 24 * time.Hour
	assert.False(t, Stale(model.Offer{CreatedAt: now.Add(-week + time.Minute)}, now, week))
	assert.True(t, Stale(model.Offer{CreatedAt: now.Add(-week)}, now, week))
}
