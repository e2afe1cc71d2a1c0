package payment

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/chachabrian/zapshift-backend/internal/models"
	"github.com/chachabrian/zapshift-backend/internal/store"
)

// Notifier is told about parcels whose payment was just confirmed. It must not
// block on slow listeners.
type Notifier interface {
	Notify(ctx context.Context, ev models.ParcelEvent)
}

// ConfirmResult is the outcome of a confirmation. Success is false only when
// the session has not been paid.
type ConfirmResult struct {
	Success        bool                 `json:"success"`
	AlreadyExists  bool                 `json:"alreadyExists,omitempty"`
	ModifiedParcel *models.UpdateResult `json:"modifiedParcel,omitempty"`
	TrackingID     string               `json:"trackingId,omitempty"`
	TransactionID  string               `json:"transactionId,omitempty"`
	PaymentRecord  *models.InsertResult `json:"paymentRecord,omitempty"`
}

// Confirmer turns a paid checkout session into a payment record and a tracked
// parcel. Each provider transaction is recorded at most once no matter how
// often the session is confirmed.
type Confirmer struct {
	provider Provider
	payments store.PaymentStore
	tracking *TrackingGenerator
	notifier Notifier
	now      func() time.Time
	log      logrus.FieldLogger
}

// NewConfirmer wires a Confirmer. notifier may be nil.
func NewConfirmer(provider Provider, payments store.PaymentStore, notifier Notifier, l logrus.FieldLogger) *Confirmer {
	return &Confirmer{
		provider: provider,
		payments: payments,
		tracking: NewTrackingGenerator(),
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
		log:      l,
	}
}

func (c *Confirmer) Confirm(ctx context.Context, sessionRef string) (*ConfirmResult, error) {
	if sessionRef == "" {
		return nil, models.ValidationError("session_id is required")
	}

	session, err := c.provider.RetrieveSession(ctx, sessionRef)
	if err != nil {
		return nil, asProviderError(KindLookup, err)
	}
	log := c.log.WithFields(logrus.Fields{
		"session_id":     session.ID,
		"transaction_id": session.TransactionID,
	})

	// Sessions that were never paid carry no transaction reference yet.
	if session.TransactionID != "" {
		existing, err := c.payments.FindPaymentByTransactionID(ctx, session.TransactionID)
		switch {
		case err == nil:
			log.Info("payment already recorded")
			return alreadyExists(existing), nil
		case !errors.Is(err, models.ErrNotFound):
			return nil, err
		}
	}

	if session.PaymentStatus != SessionPaid {
		log.WithField("payment_status", session.PaymentStatus).Info("session not paid")
		return &ConfirmResult{Success: false}, nil
	}
	if session.TransactionID == "" {
		return nil, &ProviderError{Kind: KindLookup, Msg: "paid session has no payment reference"}
	}

	trackingID, err := c.tracking.Generate()
	if err != nil {
		return nil, err
	}

	record := &models.Payment{
		Amount:        decimal.New(session.AmountTotal, -2),
		Currency:      session.Currency,
		CustomerEmail: session.CustomerEmail,
		ParcelID:      session.Metadata["parcelId"],
		ParcelName:    session.Metadata["parcelName"],
		TransactionID: session.TransactionID,
		PaymentStatus: session.PaymentStatus,
		PaidAt:        c.now(),
		TrackingID:    trackingID,
	}

	updated, err := c.payments.RecordParcelPayment(ctx, record)
	if err != nil {
		var dup *models.DuplicatePaymentError
		if errors.As(err, &dup) {
			log.Info("payment recorded concurrently")
			return alreadyExists(dup.Payment), nil
		}
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"parcel_id":   record.ParcelID,
		"tracking_id": trackingID,
		"matched":     updated.MatchedCount,
		"modified":    updated.ModifiedCount,
	}).Info("payment confirmed")

	if c.notifier != nil && updated.ModifiedCount > 0 {
		c.notifier.Notify(ctx, models.ParcelEvent{
			Type:        models.EventParcelPaid,
			ParcelID:    record.ParcelID,
			TrackingID:  trackingID,
			SenderEmail: record.CustomerEmail,
			At:          record.PaidAt,
		})
	}

	return &ConfirmResult{
		Success:        true,
		ModifiedParcel: updated,
		TrackingID:     trackingID,
		TransactionID:  record.TransactionID,
		PaymentRecord:  &models.InsertResult{InsertedID: record.ID},
	}, nil
}

func alreadyExists(p *models.Payment) *ConfirmResult {
	return &ConfirmResult{
		Success:       true,
		AlreadyExists: true,
		TrackingID:    p.TrackingID,
		TransactionID: p.TransactionID,
	}
}
