package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/chachabrian/zapshift-backend/internal/models"
)

var hundred = decimal.NewFromInt(100)

// CheckoutInput is what the client submits to pay for a parcel.
type CheckoutInput struct {
	ParcelID    string          `json:"parcelId" binding:"required"`
	ParcelName  string          `json:"parcelName" binding:"required"`
	SenderEmail string          `json:"senderEmail" binding:"required,email"`
	Cost        decimal.Decimal `json:"cost"`
}

// Checkout opens hosted checkout sessions for parcels.
type Checkout struct {
	provider   Provider
	currency   string
	siteDomain string
	log        logrus.FieldLogger
}

func NewCheckout(provider Provider, currency, siteDomain string, l logrus.FieldLogger) *Checkout {
	return &Checkout{
		provider:   provider,
		currency:   currency,
		siteDomain: strings.TrimRight(siteDomain, "/"),
		log:        l,
	}
}

// Start creates a session and returns the URL the customer is redirected to.
func (c *Checkout) Start(ctx context.Context, in CheckoutInput) (string, error) {
	if !in.Cost.IsPositive() {
		return "", models.ValidationError("cost must be a positive amount, got %s", in.Cost)
	}
	amount := in.Cost.Mul(hundred).IntPart()
	if amount <= 0 {
		return "", models.ValidationError("cost %s is below the smallest currency unit", in.Cost)
	}

	session, err := c.provider.CreateCheckoutSession(ctx, CheckoutRequest{
		AmountMinor:   amount,
		Currency:      c.currency,
		Description:   "Please pay for: " + in.ParcelName,
		CustomerEmail: in.SenderEmail,
		Metadata: map[string]string{
			"parcelId":   in.ParcelID,
			"parcelName": in.ParcelName,
		},
		SuccessURL: c.siteDomain + "/dashboard/payment-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  c.siteDomain + "/dashboard/payment-cancelled",
	})
	if err != nil {
		return "", asProviderError(KindCheckout, err)
	}

	c.log.WithFields(logrus.Fields{
		"parcel_id":  in.ParcelID,
		"session_id": session.ID,
		"amount":     amount,
	}).Info("checkout session created")
	return session.URL, nil
}

func asProviderError(kind string, err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return &ProviderError{Kind: kind, Msg: err.Error(), Err: err}
}
