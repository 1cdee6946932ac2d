// Package bot runs the monitors on a fixed interval and keeps their latest results.
package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"inventory-bot-backend/internal/cycle"
	"inventory-bot-backend/internal/notification"
	"inventory-bot-backend/internal/store"
)

// Monitor is one independent pass over business state.
type Monitor interface {
	Name() string
	RunCycle(ctx context.Context) *cycle.Report
}

// Options tunes the loop.
type Options struct {
	Interval        time.Duration
	ErrorBackoff    time.Duration
	HealthRecipient string
	HealthOnStart   bool
}

// Bot invokes its monitors in order every interval. A monitor that fails or
// panics never stops the others, and the loop only ends with its context.
type Bot struct {
	monitors []Monitor
	store    store.Store
	gateway  notification.Gateway
	counters []TableCounter
	opts     Options
	now      func() time.Time
	log      logrus.FieldLogger

	// healthHour is the hour in which health was last evaluated.
	healthHour time.Time

	mu      sync.RWMutex
	reports map[string]*cycle.Report
	health  *HealthReport
}

// New creates a Bot. Monitors run in the order given.
func New(monitors []Monitor, s store.Store, g notification.Gateway, counters []TableCounter, opts Options, now func() time.Time, log logrus.FieldLogger) *Bot {
	if now == nil {
		now = time.Now
	}
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.ErrorBackoff <= 0 {
		opts.ErrorBackoff = 60 * time.Second
	}
	return &Bot{
		monitors: monitors,
		store:    s,
		gateway:  g,
		counters: counters,
		opts:     opts,
		now:      now,
		log:      log.WithField("component", "bot"),
		reports:  make(map[string]*cycle.Report),
	}
}

// Run executes cycles until ctx is cancelled. A cycle that fails outside the
// per-monitor guards is followed by the longer error backoff.
func (b *Bot) Run(ctx context.Context) {
	b.log.WithFields(logrus.Fields{
		"monitors": len(b.monitors),
		"interval": b.opts.Interval.String(),
	}).Info("starting bot loop")

	for {
		wait := b.opts.Interval
		if err := b.RunOnce(ctx); err != nil {
			b.log.WithError(err).WithField("backoff", b.opts.ErrorBackoff.String()).Error("bot cycle failed, backing off")
			wait = b.opts.ErrorBackoff
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			b.log.Info("bot loop shutting down")
			return
		case <-timer.C:
		}
	}
}

// RunOnce runs every monitor once, then the health check when it is due.
func (b *Bot) RunOnce(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("cycle panicked: %v", p)
		}
	}()

	id := uuid.NewString()
	ctx = cycle.WithID(ctx, id)
	log := b.log.WithField("cycle_id", id)
	log.Debug("cycle started")

	for _, m := range b.monitors {
		rep := b.runMonitor(ctx, m)
		rep.Log(log)
		b.mu.Lock()
		b.reports[m.Name()] = rep
		b.mu.Unlock()
	}

	if b.healthDue(b.now()) {
		h := b.CheckHealth(ctx)
		b.mu.Lock()
		b.health = &h
		b.mu.Unlock()
	}
	return nil
}

// runMonitor calls one monitor, turning a panic into a failed report.
func (b *Bot) runMonitor(ctx context.Context, m Monitor) (rep *cycle.Report) {
	started := b.now()
	defer func() {
		if p := recover(); p != nil {
			rep = cycle.New(m.Name(), started)
			rep.CycleID = cycle.ID(ctx)
			rep.FailKind("monitor", cycle.KindPanic, fmt.Errorf("panic: %v", p))
			rep.Finish(b.now())
		}
	}()

	rep = m.RunCycle(ctx)
	if rep == nil {
		rep = cycle.New(m.Name(), started).Finish(b.now())
		rep.CycleID = cycle.ID(ctx)
	}
	return rep
}

// healthDue reports whether now falls in an hour not yet checked. The first
// evaluation only counts when health checks on start are enabled.
func (b *Bot) healthDue(now time.Time) bool {
	hour := now.Truncate(time.Hour)
	first := b.healthHour.IsZero()
	due := hour.After(b.healthHour)
	b.healthHour = hour
	if first {
		return b.opts.HealthOnStart
	}
	return due
}

// Reports returns the latest report of every monitor, in run order.
func (b *Bot) Reports() []cycle.Report {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]cycle.Report, 0, len(b.monitors))
	for _, m := range b.monitors {
		if rep, ok := b.reports[m.Name()]; ok {
			out = append(out, *rep)
		}
	}
	return out
}

// Health returns the latest health report, if a check has run.
func (b *Bot) Health() (HealthReport, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.health == nil {
		return HealthReport{}, false
	}
	return *b.health, true
}
