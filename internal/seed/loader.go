package seed

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"inventory-bot-backend/internal/model"
	"inventory-bot-backend/internal/store"
)

type loader struct {
	tx      *gorm.DB
	today   time.Time
	summary Summary

	providers   map[string]int64
	products    map[string]int64
	materials   map[string]int64
	clients     map[string]int64
	technicians map[string]int64
}

func (l *loader) create(table string, v any) error {
	if err := l.tx.Create(v).Error; err != nil {
		return fmt.Errorf("failed to insert %s: %w", table, err)
	}
	l.summary[table]++
	return nil
}

func ref(keys map[string]int64, kind, key string) (int64, error) {
	id, ok := keys[key]
	if !ok {
		return 0, fmt.Errorf("unknown %s %q", kind, key)
	}
	return id, nil
}

func (l *loader) load(f *Fixtures) error {
	for _, p := range f.Providers {
		row := model.Provider{Name: p.Name, Phone: p.Phone, Email: p.Email}
		if err := l.create("providers", &row); err != nil {
			return err
		}
		l.providers[p.Key] = row.ID
	}

	for _, p := range f.Products {
		price, err := decimal.NewFromString(p.UnitPrice)
		if err != nil {
			return fmt.Errorf("product %q: %w", p.Key, err)
		}
		row := model.Product{Name: p.Name, UnitPrice: price, UnitsPerLot: p.UnitsPerLot, QuantityOnHand: p.QuantityOnHand}
		if err := l.create("products", &row); err != nil {
			return err
		}
		l.products[p.Key] = row.ID
	}

	for _, m := range f.Materials {
		providerID, err := ref(l.providers, "provider", m.Provider)
		if err != nil {
			return fmt.Errorf("material %q: %w", m.Key, err)
		}
		row := model.Material{Name: m.Name, QuantityOnHand: m.QuantityOnHand, QuantityMinimum: m.QuantityMinimum, ProviderID: providerID}
		if m.Product != "" {
			productID, err := ref(l.products, "product", m.Product)
			if err != nil {
				return fmt.Errorf("material %q: %w", m.Key, err)
			}
			row.ProductID = &productID
		}
		if err := l.create("materials", &row); err != nil {
			return err
		}
		l.materials[m.Key] = row.ID
	}

	for _, c := range f.Clients {
		row := model.Client{Name: c.Name, Phone: c.Phone, Email: c.Email}
		if err := l.create("clients", &row); err != nil {
			return err
		}
		l.clients[c.Key] = row.ID
	}

	for _, a := range f.Assignments {
		clientID, err := ref(l.clients, "client", a.Client)
		if err != nil {
			return err
		}
		productID, err := ref(l.products, "product", a.Product)
		if err != nil {
			return err
		}
		row := model.ClientProductAssignment{ClientID: clientID, ProductID: productID, MinimumQuantity: a.MinimumQuantity, Notify: true}
		if err := l.create("assignments", &row); err != nil {
			return err
		}
		// gorm skips zero values that carry a column default on insert.
		if a.Notify != nil && !*a.Notify {
			if err := l.tx.Model(&row).Update("notify", false).Error; err != nil {
				return fmt.Errorf("failed to update assignment %d: %w", row.ID, err)
			}
		}
	}

	for _, o := range f.Offers {
		clientID, err := ref(l.clients, "client", o.Client)
		if err != nil {
			return err
		}
		productID, err := ref(l.products, "product", o.Product)
		if err != nil {
			return err
		}
		row := model.Offer{ClientID: clientID, ProductID: productID, LotsOffered: o.LotsOffered, CreatedAt: l.today.AddDate(0, 0, -o.AgeDays)}
		if err := l.create("offers", &row); err != nil {
			return err
		}
	}

	for _, t := range f.Technicians {
		row := model.Technician{Name: t.Name, Phone: t.Phone, Email: t.Email, Specialty: t.Specialty}
		if err := l.create("technicians", &row); err != nil {
			return err
		}
		l.technicians[t.Key] = row.ID
	}

	for _, m := range f.Maintenance {
		status := model.MaintenanceStatus(m.Status)
		if status == "" {
			status = model.MaintenanceScheduled
		}
		row := model.MaintenanceRecord{
			EquipmentName: m.Equipment,
			ScheduledDate: store.Day(l.today).AddDate(0, 0, m.InDays),
			Details:       m.Details,
			Status:        status,
		}
		if m.Technician != "" {
			techID, err := ref(l.technicians, "technician", m.Technician)
			if err != nil {
				return fmt.Errorf("maintenance %q: %w", m.Equipment, err)
			}
			row.TechnicianID = &techID
		}
		if err := l.create("maintenance", &row); err != nil {
			return err
		}

		for _, r := range m.Requirements {
			materialID, err := ref(l.materials, "material", r.Material)
			if err != nil {
				return fmt.Errorf("maintenance %q: %w", m.Equipment, err)
			}
			req := model.MaterialRequirement{MaintenanceID: row.ID, MaterialID: materialID, QuantityRequired: r.Quantity}
			if err := l.create("requirements", &req); err != nil {
				return err
			}
		}
	}
	return nil
}
