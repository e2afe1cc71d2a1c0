// Package store describes the persistence gateway over the four record
// collections: parcels, users, riders and payments.
package store

import (
	"context"

	"github.com/chachabrian/zapshift-backend/internal/models"
)

type ParcelFilter struct {
	SenderEmail    string
	RiderEmail     string
	DeliveryStatus string
}

// UserFilter matches users whose email or display name contains Search,
// case-insensitively.
type UserFilter struct {
	Search string
}

type RiderFilter struct {
	Status string
}

type PaymentFilter struct {
	CustomerEmail string
}

// RiderStatusResult reports a rider status change. RoleUpdated is true when an
// approval also promoted the matching user to the rider role.
type RiderStatusResult struct {
	Rider       *models.Rider `json:"rider"`
	RoleUpdated bool          `json:"roleUpdated"`
}

type ParcelStore interface {
	ListParcels(ctx context.Context, filter ParcelFilter) ([]models.Parcel, error)
	GetParcel(ctx context.Context, id string) (*models.Parcel, error)
	CreateParcel(ctx context.Context, parcel *models.Parcel) error
	UpdateParcel(ctx context.Context, id string, changes models.ParcelChanges) (*models.Parcel, error)
	// AssignRider hands a paid parcel awaiting pickup to a rider. Parcels in
	// any other state yield models.ErrConflict.
	AssignRider(ctx context.Context, id, riderEmail string) (*models.Parcel, error)
	DeleteParcel(ctx context.Context, id string) error
}

type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// UpsertUser inserts the user when the email is unknown and otherwise only
	// refreshes its last login time. The boolean reports an insert.
	UpsertUser(ctx context.Context, user *models.User) (bool, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]models.User, error)
	UpdateUserRole(ctx context.Context, id string, role models.Role) (*models.User, error)
}

type RiderStore interface {
	ListRiders(ctx context.Context, filter RiderFilter) ([]models.Rider, error)
	GetRider(ctx context.Context, id string) (*models.Rider, error)
	FindApprovedRider(ctx context.Context, email string) (*models.Rider, error)
	CreateRider(ctx context.Context, rider *models.Rider) error
	// UpdateRiderStatus changes the application status and, on approval,
	// promotes the user with the same email to the rider role in the same
	// transaction.
	UpdateRiderStatus(ctx context.Context, id, status string) (*RiderStatusResult, error)
	DeleteRider(ctx context.Context, id string) error
}

type PaymentStore interface {
	ListPayments(ctx context.Context, filter PaymentFilter) ([]models.Payment, error)
	FindPaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	// RecordParcelPayment atomically inserts the payment unless one with the
	// same transaction id exists, then marks the referenced parcel as paid and
	// attaches the tracking id. When the transaction id is already recorded it
	// writes nothing and returns *models.DuplicatePaymentError.
	RecordParcelPayment(ctx context.Context, payment *models.Payment) (*models.UpdateResult, error)
}

// Store is the full gateway, created once at startup and closed at shutdown.
type Store interface {
	ParcelStore
	UserStore
	RiderStore
	PaymentStore
	Ping(ctx context.Context) error
	Close() error
}
