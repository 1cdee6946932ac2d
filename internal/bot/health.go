package bot

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"inventory-bot-backend/internal/cycle"
	"inventory-bot-backend/internal/model"
	"inventory-bot-backend/internal/store"
)

// TableCounter counts the rows of one table for the health check.
type TableCounter struct {
	Name  string
	Count func(ctx context.Context) (int64, error)
}

// DefaultCounters returns counters for every table the bot reads.
func DefaultCounters(s store.Store) []TableCounter {
	tables := []struct {
		name  string
		model any
	}{
		{"materials", &model.Material{}},
		{"providers", &model.Provider{}},
		{"orders", &model.Order{}},
		{"products", &model.Product{}},
		{"clients", &model.Client{}},
		{"offers", &model.Offer{}},
		{"maintenance", &model.MaintenanceRecord{}},
		{"requirements", &model.MaterialRequirement{}},
		{"technicians", &model.Technician{}},
	}

	counters := make([]TableCounter, 0, len(tables))
	for _, t := range tables {
		counters = append(counters, TableCounter{
			Name: t.name,
			Count: func(ctx context.Context) (int64, error) {
				return s.Count(ctx, t.model)
			},
		})
	}
	return counters
}

// HealthReport is the result of one health check.
type HealthReport struct {
	CheckedAt   time.Time         `json:"checked_at"`
	CycleID     string            `json:"cycle_id,omitempty"`
	StoreOK     bool              `json:"store_ok"`
	StoreError  string            `json:"store_error,omitempty"`
	Counts      map[string]int64  `json:"counts"`
	CountErrors map[string]string `json:"count_errors,omitempty"`
	NotifierOK  bool              `json:"notifier_ok"`
}

// OK reports whether every probe passed.
func (h HealthReport) OK() bool {
	return h.StoreOK && h.NotifierOK && len(h.CountErrors) == 0
}

// CheckHealth pings the store, counts rows and sends a probe notification.
// Failures are reported, never returned.
func (b *Bot) CheckHealth(ctx context.Context) HealthReport {
	h := HealthReport{
		CheckedAt: b.now(),
		CycleID:   cycle.ID(ctx),
		Counts:    make(map[string]int64, len(b.counters)),
	}

	if err := b.store.Ping(ctx); err != nil {
		h.StoreError = err.Error()
	} else {
		h.StoreOK = true
	}

	if h.StoreOK {
		for _, c := range b.counters {
			n, err := c.Count(ctx)
			if err != nil {
				if h.CountErrors == nil {
					h.CountErrors = make(map[string]string)
				}
				h.CountErrors[c.Name] = err.Error()
				continue
			}
			h.Counts[c.Name] = n
		}
	}

	h.NotifierOK = b.gateway.Send(ctx, "Stock bot health check", healthBody(h), b.opts.HealthRecipient)

	log := cycle.Logger(ctx, b.log).WithFields(logrus.Fields{
		"store_ok":    h.StoreOK,
		"notifier_ok": h.NotifierOK,
	})
	if h.OK() {
		log.WithField("counts", h.Counts).Info("health check passed")
	} else {
		log.WithFields(logrus.Fields{
			"store_error":  h.StoreError,
			"count_errors": h.CountErrors,
		}).Error("health check failed")
	}
	return h
}

func healthBody(h HealthReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Health check at %s\n", h.CheckedAt.Format(time.RFC3339))
	if h.StoreOK {
		b.WriteString("Database: reachable\n")
	} else {
		fmt.Fprintf(&b, "Database: unreachable (%s)\n", h.StoreError)
	}
	for _, name := range slices.Sorted(maps.Keys(h.Counts)) {
		fmt.Fprintf(&b, "%s: %d\n", name, h.Counts[name])
	}
	return b.String()
}
