package store

import (
	"context"
	"fmt"
	"time"

	"inventory-bot-backend/internal/model"
)

// Day returns the calendar date of t as midnight UTC, the form scheduled dates are stored in.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ListUpcomingMaintenance returns records scheduled between the day of from and windowDays later, inclusive.
func (s *gormStore) ListUpcomingMaintenance(ctx context.Context, from time.Time, windowDays int) ([]model.MaintenanceRecord, error) {
	start := Day(from)
	end := start.AddDate(0, 0, windowDays)

	var records []model.MaintenanceRecord
	err := s.db.WithContext(ctx).
		Preload("Technician").
		Where("scheduled_date >= ? AND scheduled_date <= ?", start, end).
		Order("scheduled_date, id").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming maintenance: %w", err)
	}
	return records, nil
}

// ListOverdueMaintenance returns unfinished records scheduled before the day of before.
func (s *gormStore) ListOverdueMaintenance(ctx context.Context, before time.Time) ([]model.MaintenanceRecord, error) {
	var records []model.MaintenanceRecord
	err := s.db.WithContext(ctx).
		Preload("Technician").
		Where("scheduled_date < ? AND status <> ?", Day(before), model.MaintenanceCompleted).
		Order("scheduled_date, id").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue maintenance: %w", err)
	}
	return records, nil
}

func (s *gormStore) ListRequirements(ctx context.Context, maintenanceID int64) ([]model.MaterialRequirement, error) {
	var reqs []model.MaterialRequirement
	err := s.db.WithContext(ctx).
		Preload("Material.Provider").
		Where("maintenance_id = ?", maintenanceID).
		Order("id").
		Find(&reqs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list requirements for maintenance %d: %w", maintenanceID, err)
	}
	return reqs, nil
}
