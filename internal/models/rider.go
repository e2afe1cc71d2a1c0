package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RiderStatus constants
const (
	RiderStatusPending  = "pending"
	RiderStatusApproved = "approved"
	RiderStatusRejected = "rejected"
)

// ValidRiderStatus reports whether s is a known rider application status.
func ValidRiderStatus(s string) bool {
	return s == RiderStatusPending || s == RiderStatusApproved || s == RiderStatusRejected
}

// Rider is an application to deliver parcels. Approval promotes the matching
// user to the rider role.
type Rider struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email         string    `json:"email" gorm:"not null;index"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	Region        string    `json:"region"`
	District      string    `json:"district"`
	BikeModel     string    `json:"bikeModel"`
	LicenseNumber string    `json:"licenseNumber"`
	Status        string    `json:"status" gorm:"not null;default:'pending';index"`
	CreatedAt     time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (Rider) TableName() string {
	return "riders"
}

func (r *Rider) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = RiderStatusPending
	}
	return nil
}
