package model

import "time"

// MaintenanceStatus is the progress of a maintenance task.
type MaintenanceStatus string

const (
	MaintenanceScheduled  MaintenanceStatus = "scheduled"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
)

// Technician carries out maintenance.
type Technician struct {
	ID        int64  `gorm:"primaryKey"`
	Name      string `gorm:"size:100;not null"`
	Phone     string `gorm:"size:20;not null"`
	Email     string `gorm:"size:120;not null"`
	Specialty string `gorm:"size:100"`
}

// MaintenanceRecord is a scheduled piece of equipment maintenance.
// ScheduledDate carries a calendar date; its time of day is ignored.
type MaintenanceRecord struct {
	ID            int64             `gorm:"primaryKey"`
	EquipmentName string            `gorm:"size:100;not null"`
	ScheduledDate time.Time         `gorm:"type:date;index;not null"`
	Details       string            `gorm:"size:200;not null"`
	TechnicianID  *int64            `gorm:"index"`
	Status        MaintenanceStatus `gorm:"size:20;not null;default:scheduled"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Associations
	Technician   *Technician
	Requirements []MaterialRequirement `gorm:"foreignKey:MaintenanceID"`
}

// MaterialRequirement is the amount of a material a maintenance task needs.
type MaterialRequirement struct {
	ID               int64 `gorm:"primaryKey"`
	MaterialID       int64 `gorm:"index;not null"`
	MaintenanceID    int64 `gorm:"index;not null"`
	QuantityRequired int   `gorm:"not null"`

	// Associations
	Material Material `gorm:"constraint:OnDelete:CASCADE"`
}

// Unmet reports whether the material on hand cannot cover the requirement.
func (r MaterialRequirement) Unmet() bool {
	return r.Material.QuantityOnHand < r.QuantityRequired
}
