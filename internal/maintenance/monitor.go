// Package maintenance watches scheduled equipment maintenance, reorders missing
// materials and keeps technicians and the administrator informed.
package maintenance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"inventory-bot-backend/internal/cycle"
	"inventory-bot-backend/internal/model"
	"inventory-bot-backend/internal/notification"
	"inventory-bot-backend/internal/replenish"
	"inventory-bot-backend/internal/store"
)

// MonitorName identifies the monitor in cycle reports.
const MonitorName = "maintenance"

const dateLayout = "2006-01-02"

// Orderer makes sure a material has a pending order.
type Orderer interface {
	EnsureOrder(ctx context.Context, material model.Material, deficit int) (replenish.EnsureResult, error)
}

// Options tunes the monitor.
type Options struct {
	// WindowDays is how far ahead upcoming maintenance is checked.
	WindowDays int
	// AdminRecipient receives every overdue notice.
	AdminRecipient string
}

// Shortage is a requirement the stock on hand cannot cover.
type Shortage struct {
	Material string
	Required int
	OnHand   int
	OrderID  int64
}

// Monitor checks upcoming and overdue maintenance.
type Monitor struct {
	store   store.Store
	orderer Orderer
	gateway notification.Gateway
	opts    Options
	now     func() time.Time
	log     logrus.FieldLogger
}

// NewMonitor creates a maintenance monitor.
func NewMonitor(s store.Store, o Orderer, g notification.Gateway, opts Options, now func() time.Time, log logrus.FieldLogger) *Monitor {
	if now == nil {
		now = time.Now
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = 7
	}
	return &Monitor{
		store:   s,
		orderer: o,
		gateway: g,
		opts:    opts,
		now:     now,
		log:     log.WithField("monitor", MonitorName),
	}
}

// Name implements the bot monitor interface.
func (m *Monitor) Name() string { return MonitorName }

// RunCycle runs the upcoming and the overdue scan. A failing scan does not stop the other.
func (m *Monitor) RunCycle(ctx context.Context) *cycle.Report {
	now := m.now()
	rep := cycle.New(MonitorName, now)
	rep.CycleID = cycle.ID(ctx)

	upcoming, err := m.store.ListUpcomingMaintenance(ctx, now, m.opts.WindowDays)
	if err != nil {
		rep.Fail("scan:upcoming", err)
	}
	for _, r := range upcoming {
		rep.Scanned++
		unit := fmt.Sprintf("maintenance:%d", r.ID)
		rep.Run(unit, func() error {
			return m.checkUpcoming(ctx, rep, unit, r)
		})
	}

	overdue, err := m.store.ListOverdueMaintenance(ctx, now)
	if err != nil {
		rep.Fail("scan:overdue", err)
	}
	for _, r := range overdue {
		rep.Scanned++
		unit := fmt.Sprintf("overdue:%d", r.ID)
		rep.Run(unit, func() error {
			m.checkOverdue(ctx, rep, unit, r, now)
			return nil
		})
	}
	return rep.Finish(m.now())
}

func (m *Monitor) checkUpcoming(ctx context.Context, rep *cycle.Report, unit string, r model.MaintenanceRecord) error {
	log := cycle.Logger(ctx, m.log).WithField("maintenance_id", r.ID)

	reqs, err := m.store.ListRequirements(ctx, r.ID)
	if err != nil {
		return err
	}

	var shortages []Shortage
	for _, req := range reqs {
		if req.Material.ID == 0 {
			rep.Fail(unit, cycle.Dataf("requirement %d references missing material %d", req.ID, req.MaterialID))
			continue
		}
		if !req.Unmet() {
			continue
		}

		material := req.Material
		deficit := max(req.QuantityRequired-material.QuantityOnHand, material.Deficit())
		shortage := Shortage{Material: material.Name, Required: req.QuantityRequired, OnHand: material.QuantityOnHand}

		res, err := m.orderer.EnsureOrder(ctx, material, deficit)
		if err != nil {
			rep.Fail(unit, err)
		} else {
			if res.Order != nil {
				shortage.OrderID = res.Order.ID
			}
			if res.Outcome == replenish.OutcomeCreated {
				rep.Actions++
				rep.Notify(unit, res.Notified)
			}
		}
		shortages = append(shortages, shortage)
	}

	if r.Technician == nil {
		log.WithField("shortages", len(shortages)).Debug("no technician assigned, skipping notice")
		return nil
	}

	rep.Actions++
	subject := fmt.Sprintf("Upcoming maintenance - %s", r.EquipmentName)
	rep.Notify(unit, m.gateway.Send(ctx, subject, UpcomingBody(r, shortages), r.Technician.Email))
	return nil
}

func (m *Monitor) checkOverdue(ctx context.Context, rep *cycle.Report, unit string, r model.MaintenanceRecord, now time.Time) {
	days := DaysLate(r.ScheduledDate, now)
	cycle.Logger(ctx, m.log).WithFields(logrus.Fields{
		"maintenance_id": r.ID,
		"days_late":      days,
	}).Warn("maintenance overdue")

	subject := fmt.Sprintf("URGENT: Overdue maintenance - %s", r.EquipmentName)
	body := OverdueBody(r, days)

	if r.Technician != nil {
		rep.Actions++
		rep.Notify(unit, m.gateway.Send(ctx, subject, body, r.Technician.Email))
	}
	rep.Actions++
	rep.Notify(unit, m.gateway.Send(ctx, subject, body, m.opts.AdminRecipient))
}

// DaysLate is the number of calendar days between the scheduled date and now.
func DaysLate(scheduled, now time.Time) int {
	return int(store.Day(now).Sub(store.Day(scheduled)) / (24 * time.Hour))
}

// UpcomingBody renders the technician notice for an upcoming task.
func UpcomingBody(r model.MaintenanceRecord, shortages []Shortage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Upcoming maintenance - %s\n", r.EquipmentName)
	fmt.Fprintf(&b, "Scheduled date: %s\n", r.ScheduledDate.Format(dateLayout))
	fmt.Fprintf(&b, "Details: %s\n", r.Details)
	if len(shortages) == 0 {
		b.WriteString("All required materials are available.\n")
		return b.String()
	}
	b.WriteString("Material shortages:\n")
	for _, s := range shortages {
		fmt.Fprintf(&b, "- %s: required %d, on hand %d", s.Material, s.Required, s.OnHand)
		if s.OrderID != 0 {
			fmt.Fprintf(&b, " (order #%d pending)", s.OrderID)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// OverdueBody renders the urgent notice for an overdue task.
func OverdueBody(r model.MaintenanceRecord, daysLate int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Maintenance of %s is overdue.\n", r.EquipmentName)
	fmt.Fprintf(&b, "Scheduled date: %s\n", r.ScheduledDate.Format(dateLayout))
	fmt.Fprintf(&b, "Days late: %d\n", daysLate)
	fmt.Fprintf(&b, "Status: %s\n", r.Status)
	if r.Technician != nil {
		fmt.Fprintf(&b, "Technician: %s\n", r.Technician.Name)
	} else {
		b.WriteString("Technician: unassigned\n")
	}
	fmt.Fprintf(&b, "Details: %s\n", r.Details)
	return b.String()
}
