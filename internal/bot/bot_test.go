package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-bot-backend/internal/cycle"
	"inventory-bot-backend/internal/notification/notificationtest"
	"inventory-bot-backend/internal/store/storetest"
)

type fakeMonitor struct {
	name  string
	calls int
	run   func(ctx context.Context) *cycle.Report
}

func (f *fakeMonitor) Name() string { return f.name }

func (f *fakeMonitor) RunCycle(ctx context.Context) *cycle.Report {
	f.calls++
	if f.run != nil {
		return f.run(ctx)
	}
	rep := cycle.New(f.name, time.Now())
	rep.CycleID = cycle.ID(ctx)
	return rep
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestBot_RunOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("a panicking monitor does not stop the others", func(t *testing.T) {
		s, _ := storetest.New(t)
		log, _ := storetest.Logger()
		first := &fakeMonitor{name: "replenishment"}
		broken := &fakeMonitor{name: "offers", run: func(context.Context) *cycle.Report { panic("nil offer") }}
		last := &fakeMonitor{name: "maintenance"}

		b := New([]Monitor{first, broken, last}, s, &notificationtest.Recorder{}, nil, Options{}, nil, log)
		require.NoError(t, b.RunOnce(ctx))

		assert.Equal(t, 1, first.calls)
		assert.Equal(t, 1, broken.calls)
		assert.Equal(t, 1, last.calls)

		reports := b.Reports()
		require.Len(t, reports, 3)
		assert.Equal(t, "offers", reports[1].Monitor)
		require.Len(t, reports[1].Failures, 1)
		assert.Equal(t, cycle.KindPanic, reports[1].Failures[0].Kind)
		assert.Contains(t, reports[1].Failures[0].Err.Error(), "nil offer")

		assert.NotEmpty(t, reports[0].CycleID)
		assert.Equal(t, reports[0].CycleID, reports[1].CycleID)
		assert.Equal(t, reports[0].CycleID, reports[2].CycleID)
	})

	t.Run("each cycle gets a fresh id", func(t *testing.T) {
		s, _ := storetest.New(t)
		log, _ := storetest.Logger()
		m := &fakeMonitor{name: "replenishment"}
		b := New([]Monitor{m}, s, &notificationtest.Recorder{}, nil, Options{}, nil, log)

		require.NoError(t, b.RunOnce(ctx))
		firstID := b.Reports()[0].CycleID
		require.NoError(t, b.RunOnce(ctx))
		assert.NotEqual(t, firstID, b.Reports()[0].CycleID)
	})

	t.Run("a nil report is replaced by an empty one", func(t *testing.T) {
		s, _ := storetest.New(t)
		log, _ := storetest.Logger()
		m := &fakeMonitor{name: "offers", run: func(context.Context) *cycle.Report { return nil }}
		b := New([]Monitor{m}, s, &notificationtest.Recorder{}, nil, Options{}, nil, log)

		require.NoError(t, b.RunOnce(ctx))
		reports := b.Reports()
		require.Len(t, reports, 1)
		assert.True(t, reports[0].OK())
	})

	t.Run("a panic outside the monitors is returned as an error", func(t *testing.T) {
		s, _ := storetest.New(t)
		log, _ := storetest.Logger()
		counters := []TableCounter{{Name: "boom", Count: func(context.Context) (int64, error) { panic("bad counter") }}}
		m := &fakeMonitor{name: "replenishment"}
		b := New([]Monitor{m}, s, &notificationtest.Recorder{}, counters, Options{HealthOnStart: true}, nil, log)

		err := b.RunOnce(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad counter")
		assert.Equal(t, 1, m.calls)
	})
}

func TestBot_Run(t *testing.T) {
	s, _ := storetest.New(t)
	log, hook := storetest.Logger()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := &fakeMonitor{name: "replenishment"}
	m.run = func(ctx context.Context) *cycle.Report {
		if m.calls == 3 {
			cancel()
		}
		return cycle.New(m.name, time.Now())
	}
	counters := []TableCounter{{Name: "boom", Count: func(context.Context) (int64, error) { panic("bad counter") }}}
	opts := Options{Interval: time.Millisecond, ErrorBackoff: time.Millisecond, HealthOnStart: true}

	b := New([]Monitor{m}, s, &notificationtest.Recorder{}, counters, opts, nil, log)

	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("bot loop did not stop after cancel")
	}

	assert.Equal(t, 3, m.calls)

	var backoff bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel && e.Message == "bot cycle failed, backing off" {
			backoff = true
		}
	}
	assert.True(t, backoff, "expected the first cycle to back off")
}

func TestBot_HealthDue(t *testing.T) {
	s, _ := storetest.New(t)
	log, _ := storetest.Logger()
	c := &clock{t: time.Date(2026, 10, 18, 9, 45, 0, 0, time.UTC)}

	t.Run("on start", func(t *testing.T) {
		b := New(nil, s, &notificationtest.Recorder{}, nil, Options{HealthOnStart: true}, c.now, log)
		assert.True(t, b.healthDue(c.t))
		assert.False(t, b.healthDue(c.t.Add(10*time.Minute)))
		assert.True(t, b.healthDue(c.t.Add(15*time.Minute)))
		assert.False(t, b.healthDue(c.t.Add(16*time.Minute)))
	})

	t.Run("without start check the next hour is due", func(t *testing.T) {
		b := New(nil, s, &notificationtest.Recorder{}, nil, Options{}, c.now, log)
		assert.False(t, b.healthDue(c.t))
		assert.False(t, b.healthDue(c.t.Add(14*time.Minute)))
		assert.True(t, b.healthDue(c.t.Add(15*time.Minute)))
	})

	t.Run("a missed hour still triggers once", func(t *testing.T) {
		b := New(nil, s, &notificationtest.Recorder{}, nil, Options{}, c.now, log)
		b.healthDue(c.t)
		assert.True(t, b.healthDue(c.t.Add(3*time.Hour)))
		assert.False(t, b.healthDue(c.t.Add(3*time.Hour+time.Minute)))
	})
}

func TestBot_CheckHealth(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	clk := func() time.Time { return now }

	t.Run("healthy", func(t *testing.T) {
		s, db := storetest.New(t)
		fx := storetest.NewFixture(t, db)
		provider := fx.Provider("provider@example.com")
		fx.Material("Grease", 1, 5, provider)
		fx.Material("Oil", 9, 5, provider)

		log, _ := storetest.Logger()
		gw := &notificationtest.Recorder{}
		b := New(nil, s, gw, DefaultCounters(s), Options{HealthRecipient: "ops@example.com", HealthOnStart: true}, clk, log)

		require.NoError(t, b.RunOnce(ctx))
		h, ok := b.Health()
		require.True(t, ok)
		assert.True(t, h.OK())
		assert.Equal(t, int64(2), h.Counts["materials"])
		assert.Equal(t, int64(1), h.Counts["providers"])
		assert.Equal(t, int64(0), h.Counts["orders"])
		assert.NotEmpty(t, h.CycleID)

		sent := gw.To("ops@example.com")
		require.Len(t, sent, 1)
		assert.Contains(t, sent[0].Body, "Database: reachable")
		assert.Contains(t, sent[0].Body, "materials: 2")
	})

	t.Run("unreachable store", func(t *testing.T) {
		s, _ := storetest.New(t)
		failing := &storetest.Failing{Store: s, PingFunc: func(context.Context) error { return errors.New("connection refused") }}
		log, hook := storetest.Logger()
		gw := &notificationtest.Recorder{}
		b := New(nil, failing, gw, DefaultCounters(failing), Options{HealthRecipient: "ops@example.com"}, clk, log)

		h := b.CheckHealth(ctx)
		assert.False(t, h.OK())
		assert.False(t, h.StoreOK)
		assert.Equal(t, "connection refused", h.StoreError)
		assert.Empty(t, h.Counts)
		assert.True(t, h.NotifierOK)
		assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	})

	t.Run("notifier down", func(t *testing.T) {
		s, _ := storetest.New(t)
		log, _ := storetest.Logger()
		gw := &notificationtest.Recorder{Fail: func(string) bool { return true }}
		b := New(nil, s, gw, nil, Options{HealthRecipient: "ops@example.com"}, clk, log)

		h := b.CheckHealth(ctx)
		assert.True(t, h.StoreOK)
		assert.False(t, h.NotifierOK)
		assert.False(t, h.OK())
	})

	t.Run("no check before one is due", func(t *testing.T) {
		s, _ := storetest.New(t)
		log, _ := storetest.Logger()
		b := New(nil, s, &notificationtest.Recorder{}, nil, Options{}, clk, log)
		require.NoError(t, b.RunOnce(ctx))
		_, ok := b.Health()
		assert.False(t, ok)
	})
}
