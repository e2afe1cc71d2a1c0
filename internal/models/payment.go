package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment is the immutable record of a confirmed checkout. TransactionID is the
// payment provider's charge reference and is unique across the table.
type Payment struct {
	ID            string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Currency      string          `json:"currency" gorm:"not null"`
	CustomerEmail string          `json:"customerEmail" gorm:"not null;index"`
	ParcelID      string          `json:"parcelId" gorm:"index"`
	ParcelName    string          `json:"parcelName"`
	TransactionID string          `json:"transactionId" gorm:"not null;uniqueIndex"`
	PaymentStatus string          `json:"paymentStatus" gorm:"not null"`
	PaidAt        time.Time       `json:"paidAt" gorm:"index"`
	TrackingID    string          `json:"trackingId" gorm:"not null;uniqueIndex"`
}

// TableName specifies the table name
func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// UpdateResult reports the outcome of a single-document update.
type UpdateResult struct {
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

// InsertResult reports the id of a freshly inserted document.
type InsertResult struct {
	InsertedID string `json:"insertedId"`
}

// DeleteResult reports how many documents a delete removed.
type DeleteResult struct {
	DeletedCount int64 `json:"deletedCount"`
}
