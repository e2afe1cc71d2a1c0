// Package payment runs the hosted checkout flow: it opens checkout sessions
// with the payment provider and confirms paid sessions exactly once.
package payment

import "context"

// Session payment statuses reported by the provider.
const (
	SessionPaid              = "paid"
	SessionUnpaid            = "unpaid"
	SessionNoPaymentRequired = "no_payment_required"
)

// CheckoutRequest describes a single-item hosted checkout.
type CheckoutRequest struct {
	AmountMinor   int64
	Currency      string
	Description   string
	CustomerEmail string
	Metadata      map[string]string
	SuccessURL    string
	CancelURL     string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// SessionDetail is the provider's view of a checkout session. TransactionID is
// the permanent charge reference and stays empty until the customer pays.
type SessionDetail struct {
	ID            string
	PaymentStatus string
	AmountTotal   int64
	Currency      string
	CustomerEmail string
	TransactionID string
	Metadata      map[string]string
}

// Provider is the hosted payment processor.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	RetrieveSession(ctx context.Context, ref string) (*SessionDetail, error)
}
