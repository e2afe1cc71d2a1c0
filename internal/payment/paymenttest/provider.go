// Package paymenttest provides an in-memory payment.Provider for tests.
package paymenttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/chachabrian/zapshift-backend/internal/payment"
)

// Provider records created sessions and serves retrievals from a map that
// tests fill with SetSession.
type Provider struct {
	mu        sync.Mutex
	seq       int
	sessions  map[string]payment.SessionDetail
	requests  []payment.CheckoutRequest
	lookups   int
	CreateErr error
	LookupErr error
}

var _ payment.Provider = (*Provider)(nil)

func NewProvider() *Provider {
	return &Provider{sessions: make(map[string]payment.SessionDetail)}
}

func (p *Provider) CreateCheckoutSession(_ context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.CreateErr != nil {
		return nil, p.CreateErr
	}
	p.seq++
	id := fmt.Sprintf("cs_test_%d", p.seq)
	p.requests = append(p.requests, req)
	p.sessions[id] = payment.SessionDetail{
		ID:            id,
		PaymentStatus: payment.SessionUnpaid,
		AmountTotal:   req.AmountMinor,
		Currency:      req.Currency,
		CustomerEmail: req.CustomerEmail,
		Metadata:      req.Metadata,
	}
	return &payment.CheckoutSession{ID: id, URL: "https://checkout.test/pay/" + id}, nil
}

func (p *Provider) RetrieveSession(_ context.Context, ref string) (*payment.SessionDetail, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.lookups++
	if p.LookupErr != nil {
		return nil, p.LookupErr
	}
	s, ok := p.sessions[ref]
	if !ok {
		return nil, &payment.ProviderError{Kind: payment.KindLookup, Msg: "No such checkout.session: " + ref}
	}
	return &s, nil
}

// SetSession stores or replaces a session.
func (p *Provider) SetSession(s payment.SessionDetail) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[s.ID] = s
}

// Pay marks a created session as paid under the given transaction id.
func (p *Provider) Pay(ref, transactionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.sessions[ref]
	s.PaymentStatus = payment.SessionPaid
	s.TransactionID = transactionID
	p.sessions[ref] = s
}

func (p *Provider) Requests() []payment.CheckoutRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]payment.CheckoutRequest(nil), p.requests...)
}

func (p *Provider) Lookups() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lookups
}
