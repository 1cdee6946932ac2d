// Package offers watches open offers and product lot availability and notifies clients.
package offers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"inventory-bot-backend/internal/cycle"
	"inventory-bot-backend/internal/model"
	"inventory-bot-backend/internal/notification"
	"inventory-bot-backend/internal/store"
)

// MonitorName identifies the monitor in cycle reports.
const MonitorName = "offers"

// ErrInvalidLotSize is returned for a product whose units per lot is not positive.
var ErrInvalidLotSize = errors.New("product has a non-positive lot size")

// Options tunes the monitor.
type Options struct {
	// StaleAfter is the offer age from which reminders are sent.
	StaleAfter time.Duration
	// ReminderCooldown is the minimum gap between reminders for one offer. Zero reminds every cycle.
	ReminderCooldown time.Duration
	// LotAlerts enables lot availability notices to assigned clients.
	LotAlerts bool
}

// Monitor notifies clients about fulfillable and aging offers.
type Monitor struct {
	store   store.Store
	gateway notification.Gateway
	opts    Options
	now     func() time.Time
	log     logrus.FieldLogger
}

// NewMonitor creates an offer monitor.
func NewMonitor(s store.Store, g notification.Gateway, opts Options, now func() time.Time, log logrus.FieldLogger) *Monitor {
	if now == nil {
		now = time.Now
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 7 * 24 * time.Hour
	}
	return &Monitor{store: s, gateway: g, opts: opts, now: now, log: log.WithField("monitor", MonitorName)}
}

// Name implements the bot monitor interface.
func (m *Monitor) Name() string { return MonitorName }

// RunCycle checks every offer, then product lot availability when enabled.
// Offers are never modified beyond their reminder timestamp.
func (m *Monitor) RunCycle(ctx context.Context) *cycle.Report {
	now := m.now()
	rep := cycle.New(MonitorName, now)
	rep.CycleID = cycle.ID(ctx)

	offers, err := m.store.ListOffers(ctx)
	if err != nil {
		rep.Fail("scan:offers", err)
	}
	for _, o := range offers {
		rep.Scanned++
		unit := fmt.Sprintf("offer:%d", o.ID)
		rep.Run(unit, func() error {
			return m.checkOffer(ctx, rep, unit, o, now)
		})
	}

	if m.opts.LotAlerts {
		m.checkLots(ctx, rep)
	}
	return rep.Finish(m.now())
}

func (m *Monitor) checkOffer(ctx context.Context, rep *cycle.Report, unit string, o model.Offer, now time.Time) error {
	if o.Product.ID == 0 {
		return cycle.Dataf("offer %d references missing product %d", o.ID, o.ProductID)
	}
	if o.Product.UnitsPerLot <= 0 {
		return cycle.Data(fmt.Errorf("offer %d, product %d: %w", o.ID, o.Product.ID, ErrInvalidLotSize))
	}
	if o.Client.ID == 0 {
		return cycle.Dataf("offer %d references missing client %d", o.ID, o.ClientID)
	}

	log := cycle.Logger(ctx, m.log).WithFields(logrus.Fields{"offer_id": o.ID, "client_id": o.ClientID})

	// Both checks are independent; an offer can be fulfillable and stale in the same cycle.
	if Fulfillable(o) {
		rep.Actions++
		subject := fmt.Sprintf("Offer available - %s", o.Product.Name)
		rep.Notify(unit, m.gateway.Send(ctx, subject, FulfillableBody(o), o.Client.Email))
		log.Debug("fulfillable offer notice sent")
	}

	if !Stale(o, now, m.opts.StaleAfter) || !m.reminderDue(o, now) {
		return nil
	}
	rep.Actions++
	subject := fmt.Sprintf("Offer reminder - %s", o.Product.Name)
	delivered := m.gateway.Send(ctx, subject, ReminderBody(o, now), o.Client.Email)
	rep.Notify(unit, delivered)
	if !delivered {
		return nil
	}
	return m.store.Transaction(ctx, func(tx store.Store) error {
		return tx.TouchOfferReminder(ctx, o.ID, now)
	})
}

func (m *Monitor) reminderDue(o model.Offer, now time.Time) bool {
	if m.opts.ReminderCooldown <= 0 || o.LastRemindedAt == nil {
		return true
	}
	return now.Sub(*o.LastRemindedAt) >= m.opts.ReminderCooldown
}

func (m *Monitor) checkLots(ctx context.Context, rep *cycle.Report) {
	products, err := m.store.ListProducts(ctx)
	if err != nil {
		rep.Fail("scan:products", err)
		return
	}
	for _, p := range products {
		lots := p.LotsAvailable()
		if lots <= 0 {
			continue
		}
		unit := fmt.Sprintf("product:%d", p.ID)
		rep.Run(unit, func() error {
			assignments, err := m.store.ListAssignments(ctx, p.ID)
			if err != nil {
				return err
			}
			for _, a := range assignments {
				if lots < max(1, a.MinimumQuantity) {
					continue
				}
				rep.Actions++
				subject := fmt.Sprintf("Lots available - %s", p.Name)
				rep.Notify(unit, m.gateway.Send(ctx, subject, LotsBody(p, lots), a.Client.Email))
			}
			return nil
		})
	}
}

// Fulfillable reports whether the product has at least as many whole lots as offered.
func Fulfillable(o model.Offer) bool {
	return o.Product.LotsAvailable() >= o.LotsOffered
}

// Stale reports whether the offer is at least staleAfter old.
func Stale(o model.Offer, now time.Time, staleAfter time.Duration) bool {
	return now.Sub(o.CreatedAt) >= staleAfter
}

// FulfillableBody renders the fulfillable offer notice.
func FulfillableBody(o model.Offer) string {
	units := o.LotsOffered * o.Product.UnitsPerLot
	total := o.Product.UnitPrice.Mul(decimal.NewFromInt(int64(units)))

	var b strings.Builder
	fmt.Fprintf(&b, "Your offer for %s can be fulfilled.\n", o.Product.Name)
	fmt.Fprintf(&b, "Lots offered: %d\n", o.LotsOffered)
	fmt.Fprintf(&b, "Unit price: %s\n", o.Product.UnitPrice.StringFixed(2))
	fmt.Fprintf(&b, "Total units: %d\n", units)
	fmt.Fprintf(&b, "Total amount: %s\n", total.StringFixed(2))
	return b.String()
}

// ReminderBody renders the stale offer reminder.
func ReminderBody(o model.Offer, now time.Time) string {
	days := int(now.Sub(o.CreatedAt) / (24 * time.Hour))

	var b strings.Builder
	fmt.Fprintf(&b, "Your offer for %s is still open.\n", o.Product.Name)
	fmt.Fprintf(&b, "Lots offered: %d\n", o.LotsOffered)
	fmt.Fprintf(&b, "Open for: %d days\n", days)
	return b.String()
}

// LotsBody renders the lot availability notice.
func LotsBody(p model.Product, lots int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Lots available - %s\n", p.Name)
	fmt.Fprintf(&b, "Lots: %d\n", lots)
	fmt.Fprintf(&b, "Units per lot: %d\n", p.UnitsPerLot)
	fmt.Fprintf(&b, "Total units available: %d\n", lots*p.UnitsPerLot)
	return b.String()
}
