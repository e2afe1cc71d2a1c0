// Package memstore is an in-process store.Store used for local development and
// tests. A single mutex serialises every operation, which makes the
// conditional payment insert atomic.
package memstore

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chachabrian/zapshift-backend/internal/models"
	"github.com/chachabrian/zapshift-backend/internal/store"
)

type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	parcels  map[string]models.Parcel
	users    map[string]models.User // keyed by email
	riders   map[string]models.Rider
	payments map[string]models.Payment // keyed by transaction id
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:      func() time.Time { return time.Now().UTC() },
		parcels:  make(map[string]models.Parcel),
		users:    make(map[string]models.User),
		riders:   make(map[string]models.Rider),
		payments: make(map[string]models.Payment),
	}
}

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
}

// Parcels

func (s *Store) ListParcels(_ context.Context, filter store.ParcelFilter) ([]models.Parcel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	parcels := make([]models.Parcel, 0, len(s.parcels))
	for _, p := range s.parcels {
		if filter.SenderEmail != "" && p.SenderEmail != filter.SenderEmail {
			continue
		}
		if filter.RiderEmail != "" && (p.RiderEmail == nil || *p.RiderEmail != filter.RiderEmail) {
			continue
		}
		if filter.DeliveryStatus != "" && p.DeliveryStatus != filter.DeliveryStatus {
			continue
		}
		parcels = append(parcels, p)
	}
	sort.Slice(parcels, func(i, j int) bool {
		return parcels[i].CreatedAt.After(parcels[j].CreatedAt)
	})
	return parcels, nil
}

func (s *Store) GetParcel(_ context.Context, id string) (*models.Parcel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.parcels[id]
	if !ok {
		return nil, notFound("parcel", id)
	}
	return &p, nil
}

func (s *Store) CreateParcel(_ context.Context, parcel *models.Parcel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if parcel.ID == "" {
		parcel.ID = uuid.NewString()
	}
	if _, ok := s.parcels[parcel.ID]; ok {
		return fmt.Errorf("parcel %s: %w", parcel.ID, models.ErrConflict)
	}
	now := s.now()
	if parcel.CreatedAt.IsZero() {
		parcel.CreatedAt = now
	}
	parcel.UpdatedAt = now
	s.parcels[parcel.ID] = *parcel
	return nil
}

func (s *Store) UpdateParcel(_ context.Context, id string, changes models.ParcelChanges) (*models.Parcel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.parcels[id]
	if !ok {
		return nil, notFound("parcel", id)
	}
	changes.Apply(&p)
	p.UpdatedAt = s.now()
	s.parcels[id] = p
	return &p, nil
}

func (s *Store) AssignRider(_ context.Context, id, riderEmail string) (*models.Parcel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.parcels[id]
	if !ok {
		return nil, notFound("parcel", id)
	}
	if !p.IsPaid() || p.DeliveryStatus != models.DeliveryStatusPendingPickup {
		return nil, fmt.Errorf("parcel %s is not awaiting pickup: %w", id, models.ErrConflict)
	}
	p.RiderEmail = &riderEmail
	p.DeliveryStatus = models.DeliveryStatusRiderAssigned
	p.UpdatedAt = s.now()
	s.parcels[id] = p
	return &p, nil
}

func (s *Store) DeleteParcel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.parcels[id]; !ok {
		return notFound("parcel", id)
	}
	delete(s.parcels, id)
	return nil
}

// Users

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[email]
	if !ok {
		return nil, notFound("user", email)
	}
	return &u, nil
}

func (s *Store) UpsertUser(_ context.Context, user *models.User) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, ok := s.users[user.Email]; ok {
		existing.LastLoginAt = now
		s.users[user.Email] = existing
		return false, nil
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.LastLoginAt = now
	s.users[user.Email] = *user
	return true, nil
}

func (s *Store) ListUsers(_ context.Context, filter store.UserFilter) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var re *regexp.Regexp
	if filter.Search != "" {
		re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(filter.Search))
	}

	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		if re != nil && !re.MatchString(u.Email) && !re.MatchString(u.DisplayName) {
			continue
		}
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

func (s *Store) UpdateUserRole(_ context.Context, id string, role models.Role) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for email, u := range s.users {
		if u.ID == id {
			u.Role = role
			s.users[email] = u
			return &u, nil
		}
	}
	return nil, notFound("user", id)
}

// Riders

func (s *Store) ListRiders(_ context.Context, filter store.RiderFilter) ([]models.Rider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	riders := make([]models.Rider, 0, len(s.riders))
	for _, r := range s.riders {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		riders = append(riders, r)
	}
	sort.Slice(riders, func(i, j int) bool {
		return riders[i].CreatedAt.After(riders[j].CreatedAt)
	})
	return riders, nil
}

func (s *Store) GetRider(_ context.Context, id string) (*models.Rider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.riders[id]
	if !ok {
		return nil, notFound("rider", id)
	}
	return &r, nil
}

func (s *Store) FindApprovedRider(_ context.Context, email string) (*models.Rider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.riders {
		if r.Email == email && r.Status == models.RiderStatusApproved {
			return &r, nil
		}
	}
	return nil, notFound("approved rider", email)
}

func (s *Store) CreateRider(_ context.Context, rider *models.Rider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rider.ID == "" {
		rider.ID = uuid.NewString()
	}
	if rider.Status == "" {
		rider.Status = models.RiderStatusPending
	}
	now := s.now()
	if rider.CreatedAt.IsZero() {
		rider.CreatedAt = now
	}
	rider.UpdatedAt = now
	s.riders[rider.ID] = *rider
	return nil
}

func (s *Store) UpdateRiderStatus(_ context.Context, id, status string) (*store.RiderStatusResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.riders[id]
	if !ok {
		return nil, notFound("rider", id)
	}
	r.Status = status
	r.UpdatedAt = s.now()
	s.riders[id] = r

	result := &store.RiderStatusResult{Rider: &r}
	if status == models.RiderStatusApproved {
		if u, ok := s.users[r.Email]; ok {
			u.Role = models.RoleRider
			s.users[r.Email] = u
			result.RoleUpdated = true
		}
	}
	return result, nil
}

func (s *Store) DeleteRider(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.riders[id]; !ok {
		return notFound("rider", id)
	}
	delete(s.riders, id)
	return nil
}

// Payments

func (s *Store) ListPayments(_ context.Context, filter store.PaymentFilter) ([]models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payments := make([]models.Payment, 0, len(s.payments))
	for _, p := range s.payments {
		if filter.CustomerEmail != "" && p.CustomerEmail != filter.CustomerEmail {
			continue
		}
		payments = append(payments, p)
	}
	sort.Slice(payments, func(i, j int) bool {
		return payments[i].PaidAt.After(payments[j].PaidAt)
	})
	return payments, nil
}

func (s *Store) FindPaymentByTransactionID(_ context.Context, transactionID string) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payments[transactionID]
	if !ok {
		return nil, notFound("payment", transactionID)
	}
	return &p, nil
}

func (s *Store) RecordParcelPayment(_ context.Context, payment *models.Payment) (*models.UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.payments[payment.TransactionID]; ok {
		return nil, &models.DuplicatePaymentError{Payment: &existing}
	}
	for _, p := range s.payments {
		if p.TrackingID == payment.TrackingID {
			return nil, fmt.Errorf("tracking id %s: %w", payment.TrackingID, models.ErrConflict)
		}
	}

	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	s.payments[payment.TransactionID] = *payment

	result := &models.UpdateResult{}
	parcel, ok := s.parcels[payment.ParcelID]
	if !ok {
		return result, nil
	}
	result.MatchedCount = 1
	if parcel.IsPaid() {
		return result, nil
	}
	trackingID := payment.TrackingID
	parcel.PaymentStatus = models.PaymentStatusPaid
	parcel.DeliveryStatus = models.DeliveryStatusPendingPickup
	parcel.TrackingID = &trackingID
	parcel.UpdatedAt = s.now()
	s.parcels[parcel.ID] = parcel
	result.ModifiedCount = 1
	return result, nil
}
