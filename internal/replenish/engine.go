// Package replenish raises purchase orders for materials that run short.
package replenish

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

// MonitorName identifies the engine in cycle reports.
const MonitorName = "replenishment"

// ErrMissingProvider is returned for a material whose provider could not be loaded.
var ErrMissingProvider = errors.New("material has no provider")

// Outcome describes what EnsureOrder did.
type Outcome string

const (
	OutcomeCreated        Outcome = "created"
	OutcomeAlreadyPending Outcome = "already_pending"
	OutcomeSkipped        Outcome = "skipped"
)

// EnsureResult is the result of EnsureOrder.
type EnsureResult struct {
	Order    *model.Order
	Outcome  Outcome
	Notified bool
}

// Engine scans low-stock materials and keeps one pending order open for each.
type Engine struct {
	store      store.Store
	gateway    notification.Gateway
	multiplier decimal.Decimal
	now        func() time.Time
	log        logrus.FieldLogger
}

// NewEngine creates an Engine. multiplier scales the deficit into the ordered quantity.
func NewEngine(s store.Store, g notification.Gateway, multiplier float64, now func() time.Time, log logrus.FieldLogger) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{
		store:      s,
		gateway:    g,
		multiplier: decimal.NewFromFloat(multiplier),
		now:        now,
		log:        log.WithField("monitor", MonitorName),
	}
}

// Name implements the bot monitor interface.
func (e *Engine) Name() string { return MonitorName }

// OrderQuantity is ceil(deficit * multiplier), or zero for a non-positive deficit.
func OrderQuantity(deficit int, multiplier decimal.Decimal) int {
	if deficit <= 0 {
		return 0
	}
	return int(decimal.NewFromInt(int64(deficit)).Mul(multiplier).Ceil().IntPart())
}

// RunCycle creates an order for every material below its minimum that has none pending.
func (e *Engine) RunCycle(ctx context.Context) *cycle.Report {
	rep := cycle.New(MonitorName, e.now())
	rep.CycleID = cycle.ID(ctx)
	log := cycle.Logger(ctx, e.log)

	materials, err := e.store.FindMaterialsBelowMinimum(ctx)
	if err != nil {
		rep.Fail("scan", err)
		return rep.Finish(e.now())
	}
	log.WithField("count", len(materials)).Debug("materials below minimum")

	for _, m := range materials {
		rep.Scanned++
		unit := fmt.Sprintf("material:%d", m.ID)
		rep.Run(unit, func() error {
			res, err := e.EnsureOrder(ctx, m, m.Deficit())
			if err != nil {
				return err
			}
			if res.Outcome == OutcomeCreated {
				rep.Actions++
				rep.Notify(unit, res.Notified)
			}
			return nil
		})
	}
	return rep.Finish(e.now())
}

// EnsureOrder makes sure material has a pending order, creating one sized from
// deficit when none exists. The order is committed before the provider is
// notified, and a failed notification leaves the order in place.
func (e *Engine) EnsureOrder(ctx context.Context, material model.Material, deficit int) (EnsureResult, error) {
	log := cycle.Logger(ctx, e.log).WithFields(logrus.Fields{
		"material_id": material.ID,
		"material":    material.Name,
	})

	if material.ProviderID == 0 {
		return EnsureResult{Outcome: OutcomeSkipped}, cycle.Data(fmt.Errorf("material %d: %w", material.ID, ErrMissingProvider))
	}

	quantity := OrderQuantity(deficit, e.multiplier)
	if quantity <= 0 {
		log.WithField("deficit", deficit).Debug("non-positive order quantity, skipping")
		return EnsureResult{Outcome: OutcomeSkipped}, nil
	}

	var res EnsureResult
	err := e.store.Transaction(ctx, func(tx store.Store) error {
		pending, err := tx.FindPendingOrder(ctx, material.ID)
		if err != nil {
			return err
		}
		if pending != nil {
			res = EnsureResult{Order: pending, Outcome: OutcomeAlreadyPending}
			return nil
		}

		order, err := tx.CreateOrder(ctx, material.ID, material.ProviderID, quantity)
		if err != nil {
			return err
		}
		res = EnsureResult{Order: order, Outcome: OutcomeCreated}
		return nil
	})
	if errors.Is(err, store.ErrDuplicatePending) {
		log.Info("pending order created concurrently, skipping")
		return EnsureResult{Outcome: OutcomeAlreadyPending}, nil
	}
	if err != nil {
		return EnsureResult{Outcome: OutcomeSkipped}, err
	}

	if res.Outcome == OutcomeAlreadyPending {
		log.WithField("order_id", res.Order.ID).Debug("pending order already exists")
		return res, nil
	}

	log = log.WithFields(logrus.Fields{"order_id": res.Order.ID, "quantity": quantity})
	log.Info("automatic order created")

	res.Notified = e.notifyProvider(ctx, material, res.Order)
	if !res.Notified {
		log.Warn("provider notification failed; order kept")
	}
	return res, nil
}

func (e *Engine) notifyProvider(ctx context.Context, material model.Material, order *model.Order) bool {
	subject := fmt.Sprintf("Automatic order - %s", material.Name)
	return e.gateway.Send(ctx, subject, OrderBody(material, order), material.Provider.Email)
}

// OrderBody renders the provider notification for an order.
func OrderBody(material model.Material, order *model.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Automatic order - %s\n", material.Name)
	fmt.Fprintf(&b, "Quantity requested: %d\n", order.Quantity)
	fmt.Fprintf(&b, "Current level: %d\n", material.QuantityOnHand)
	fmt.Fprintf(&b, "Minimum level: %d\n", material.QuantityMinimum)
	fmt.Fprintf(&b, "Order #%d\n", order.ID)
	return b.String()
}
