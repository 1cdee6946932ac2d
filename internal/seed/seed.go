// Package seed loads demo and test fixtures from YAML into the database.
package seed

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/ttacon/libphonenumber"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"inventory-bot-backend/internal/model"
)

// Fixtures is the fixture file layout. Rows reference each other by key.
type Fixtures struct {
	Providers   []Provider    `yaml:"providers" validate:"dive"`
	Products    []Product     `yaml:"products" validate:"dive"`
	Materials   []Material    `yaml:"materials" validate:"dive"`
	Clients     []Client      `yaml:"clients" validate:"dive"`
	Assignments []Assignment  `yaml:"assignments" validate:"dive"`
	Offers      []Offer       `yaml:"offers" validate:"dive"`
	Technicians []Technician  `yaml:"technicians" validate:"dive"`
	Maintenance []Maintenance `yaml:"maintenance" validate:"dive"`
}

type Provider struct {
	Key   string `yaml:"key" validate:"required"`
	Name  string `yaml:"name" validate:"required,max=100"`
	Phone string `yaml:"phone" validate:"required"`
	Email string `yaml:"email" validate:"required,email"`
}

type Product struct {
	Key            string `yaml:"key" validate:"required"`
	Name           string `yaml:"name" validate:"required,max=100"`
	UnitPrice      string `yaml:"unit_price" validate:"required,numeric"`
	UnitsPerLot    int    `yaml:"units_per_lot" validate:"gt=0"`
	QuantityOnHand int    `yaml:"quantity_on_hand" validate:"gte=0"`
}

type Material struct {
	Key             string `yaml:"key" validate:"required"`
	Name            string `yaml:"name" validate:"required,max=100"`
	QuantityOnHand  int    `yaml:"quantity_on_hand" validate:"gte=0"`
	QuantityMinimum int    `yaml:"quantity_minimum" validate:"gte=0"`
	Provider        string `yaml:"provider" validate:"required"`
	Product         string `yaml:"product"`
}

type Client struct {
	Key   string `yaml:"key" validate:"required"`
	Name  string `yaml:"name" validate:"required,max=100"`
	Phone string `yaml:"phone" validate:"required"`
	Email string `yaml:"email" validate:"required,email"`
}

type Assignment struct {
	Client          string `yaml:"client" validate:"required"`
	Product         string `yaml:"product" validate:"required"`
	MinimumQuantity int    `yaml:"minimum_quantity" validate:"gte=0"`
	Notify          *bool  `yaml:"notify"`
}

type Offer struct {
	Client      string `yaml:"client" validate:"required"`
	Product     string `yaml:"product" validate:"required"`
	LotsOffered int    `yaml:"lots_offered" validate:"gt=0"`
	// AgeDays backdates the offer relative to the load time.
	AgeDays int `yaml:"age_days" validate:"gte=0"`
}

type Technician struct {
	Key       string `yaml:"key" validate:"required"`
	Name      string `yaml:"name" validate:"required,max=100"`
	Phone     string `yaml:"phone" validate:"required"`
	Email     string `yaml:"email" validate:"required,email"`
	Specialty string `yaml:"specialty" validate:"max=100"`
}

type Maintenance struct {
	Equipment string `yaml:"equipment" validate:"required,max=100"`
	// InDays schedules the task relative to the load date; negative values are in the past.
	InDays       int           `yaml:"in_days"`
	Details      string        `yaml:"details" validate:"required,max=200"`
	Technician   string        `yaml:"technician"`
	Status       string        `yaml:"status" validate:"omitempty,oneof=scheduled in_progress completed"`
	Requirements []Requirement `yaml:"requirements" validate:"dive"`
}

type Requirement struct {
	Material string `yaml:"material" validate:"required"`
	Quantity int    `yaml:"quantity" validate:"gt=0"`
}

// Summary counts the rows inserted per table.
type Summary map[string]int

// Load decodes fixtures, rejecting unknown keys.
func Load(r io.Reader) (*Fixtures, error) {
	var f Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode fixtures: %w", err)
	}
	return &f, nil
}

// Validate checks field constraints and normalises every phone number to E.164
// using region for numbers written without a country code.
func (f *Fixtures) Validate(region string) error {
	if err := validator.New().Struct(f); err != nil {
		return fmt.Errorf("invalid fixtures: %w", err)
	}

	for i := range f.Providers {
		if err := normalizePhone(&f.Providers[i].Phone, region); err != nil {
			return fmt.Errorf("provider %q: %w", f.Providers[i].Key, err)
		}
	}
	for i := range f.Clients {
		if err := normalizePhone(&f.Clients[i].Phone, region); err != nil {
			return fmt.Errorf("client %q: %w", f.Clients[i].Key, err)
		}
	}
	for i := range f.Technicians {
		if err := normalizePhone(&f.Technicians[i].Phone, region); err != nil {
			return fmt.Errorf("technician %q: %w", f.Technicians[i].Key, err)
		}
	}
	return nil
}

func normalizePhone(phone *string, region string) error {
	p, err := libphonenumber.Parse(*phone, region)
	if err != nil {
		return fmt.Errorf("phone %q: %w", *phone, err)
	}
	if !libphonenumber.IsValidNumber(p) {
		return fmt.Errorf("phone %q is not valid", *phone)
	}
	*phone = libphonenumber.Format(p, libphonenumber.E164)
	return nil
}

// Apply inserts the fixtures in one transaction. Nothing is written when any
// row fails or references an unknown key.
func Apply(ctx context.Context, db *gorm.DB, f *Fixtures, today time.Time, log logrus.FieldLogger) (Summary, error) {
	summary := Summary{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l := &loader{tx: tx, today: today, summary: summary,
			providers: map[string]int64{}, products: map[string]int64{}, materials: map[string]int64{},
			clients: map[string]int64{}, technicians: map[string]int64{}}
		return l.load(f)
	})
	if err != nil {
		return nil, err
	}
	log.WithField("rows", summary).Info("fixtures loaded")
	return summary, nil
}

// Clean deletes every row, children before parents.
func Clean(ctx context.Context, db *gorm.DB, log logrus.FieldLogger) error {
	tables := model.All()
	slices.Reverse(tables)
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range tables {
			res := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m)
			if res.Error != nil {
				return fmt.Errorf("failed to clean %T: %w", m, res.Error)
			}
			log.WithFields(logrus.Fields{"table": fmt.Sprintf("%T", m), "rows": res.RowsAffected}).Debug("table cleaned")
		}
		return nil
	})
}
