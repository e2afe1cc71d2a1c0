package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentStatus values stored on parcels and payments.
const (
	PaymentStatusUnset = ""
	PaymentStatusPaid  = "paid"
)

// DeliveryStatus values. A parcel has no delivery status until it is paid for.
const (
	DeliveryStatusUnset         = ""
	DeliveryStatusPendingPickup = "pending-pickup"
	DeliveryStatusRiderAssigned = "rider-assigned"
	DeliveryStatusInTransit     = "in-transit"
	DeliveryStatusDelivered     = "delivered"
)

type Parcel struct {
	ID                  string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ParcelName          string          `json:"parcelName" gorm:"not null"`
	ParcelType          string          `json:"parcelType"`
	Weight              decimal.Decimal `json:"weight" gorm:"type:numeric(10,2);default:0"`
	Cost                decimal.Decimal `json:"cost" gorm:"type:numeric(12,2);not null"`
	SenderName          string          `json:"senderName"`
	SenderEmail         string          `json:"senderEmail" gorm:"not null;index"`
	SenderRegion        string          `json:"senderRegion"`
	SenderDistrict      string          `json:"senderDistrict"`
	SenderAddress       string          `json:"senderAddress"`
	ReceiverName        string          `json:"receiverName"`
	ReceiverEmail       string          `json:"receiverEmail"`
	ReceiverPhone       string          `json:"receiverPhone"`
	ReceiverRegion      string          `json:"receiverRegion"`
	ReceiverDistrict    string          `json:"receiverDistrict"`
	ReceiverAddress     string          `json:"receiverAddress"`
	PickupInstruction   string          `json:"pickupInstruction"`
	DeliveryInstruction string          `json:"deliveryInstruction"`
	ImageURL            string          `json:"imageUrl"`
	PaymentStatus       string          `json:"paymentStatus" gorm:"not null;default:''"`
	DeliveryStatus      string          `json:"deliveryStatus" gorm:"not null;default:''"`
	TrackingID          *string         `json:"trackingId" gorm:"uniqueIndex"`
	RiderEmail          *string         `json:"riderEmail,omitempty" gorm:"index"`
	CreatedAt           time.Time       `json:"createdAt" gorm:"index"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

// TableName specifies the table name
func (Parcel) TableName() string {
	return "parcels"
}

// BeforeCreate assigns an opaque id when the caller did not provide one.
func (p *Parcel) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// IsPaid reports whether the parcel payment was confirmed.
func (p *Parcel) IsPaid() bool {
	return p.PaymentStatus == PaymentStatusPaid
}

// ParcelChanges carries the descriptive fields a sender may edit after creation.
// Payment, delivery and tracking fields are intentionally absent.
type ParcelChanges struct {
	ParcelName          *string          `json:"parcelName,omitempty"`
	ParcelType          *string          `json:"parcelType,omitempty"`
	Weight              *decimal.Decimal `json:"weight,omitempty"`
	Cost                *decimal.Decimal `json:"cost,omitempty"`
	SenderName          *string          `json:"senderName,omitempty"`
	SenderRegion        *string          `json:"senderRegion,omitempty"`
	SenderDistrict      *string          `json:"senderDistrict,omitempty"`
	SenderAddress       *string          `json:"senderAddress,omitempty"`
	ReceiverName        *string          `json:"receiverName,omitempty"`
	ReceiverEmail       *string          `json:"receiverEmail,omitempty"`
	ReceiverPhone       *string          `json:"receiverPhone,omitempty"`
	ReceiverRegion      *string          `json:"receiverRegion,omitempty"`
	ReceiverDistrict    *string          `json:"receiverDistrict,omitempty"`
	ReceiverAddress     *string          `json:"receiverAddress,omitempty"`
	PickupInstruction   *string          `json:"pickupInstruction,omitempty"`
	DeliveryInstruction *string          `json:"deliveryInstruction,omitempty"`
	ImageURL            *string          `json:"imageUrl,omitempty"`
}

// Apply copies every non-nil field onto p.
func (ch ParcelChanges) Apply(p *Parcel) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&p.ParcelName, ch.ParcelName)
	setString(&p.ParcelType, ch.ParcelType)
	setString(&p.SenderName, ch.SenderName)
	setString(&p.SenderRegion, ch.SenderRegion)
	setString(&p.SenderDistrict, ch.SenderDistrict)
	setString(&p.SenderAddress, ch.SenderAddress)
	setString(&p.ReceiverName, ch.ReceiverName)
	setString(&p.ReceiverEmail, ch.ReceiverEmail)
	setString(&p.ReceiverPhone, ch.ReceiverPhone)
	setString(&p.ReceiverRegion, ch.ReceiverRegion)
	setString(&p.ReceiverDistrict, ch.ReceiverDistrict)
	setString(&p.ReceiverAddress, ch.ReceiverAddress)
	setString(&p.PickupInstruction, ch.PickupInstruction)
	setString(&p.DeliveryInstruction, ch.DeliveryInstruction)
	setString(&p.ImageURL, ch.ImageURL)
	if ch.Weight != nil {
		p.Weight = *ch.Weight
	}
	if ch.Cost != nil {
		p.Cost = *ch.Cost
	}
}
