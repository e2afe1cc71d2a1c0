// Package gormstore implements store.Store on Postgres through gorm.
package gormstore

import (
	"context"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chachabrian/zapshift-backend/internal/models"
	"github.com/chachabrian/zapshift-backend/internal/store"
)

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "get database instance")
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "get database instance")
	}
	return sqlDB.Close()
}

// Parcels

func (s *Store) ListParcels(ctx context.Context, filter store.ParcelFilter) ([]models.Parcel, error) {
	q := s.db.WithContext(ctx).Model(&models.Parcel{})
	if filter.SenderEmail != "" {
		q = q.Where("sender_email = ?", filter.SenderEmail)
	}
	if filter.RiderEmail != "" {
		q = q.Where("rider_email = ?", filter.RiderEmail)
	}
	if filter.DeliveryStatus != "" {
		q = q.Where("delivery_status = ?", filter.DeliveryStatus)
	}

	var parcels []models.Parcel
	if err := q.Order("created_at DESC").Find(&parcels).Error; err != nil {
		return nil, convertErr(err, "list parcels")
	}
	return parcels, nil
}

func (s *Store) GetParcel(ctx context.Context, id string) (*models.Parcel, error) {
	var parcel models.Parcel
	if err := s.db.WithContext(ctx).First(&parcel, "id = ?", id).Error; err != nil {
		return nil, convertErr(err, "get parcel %s", id)
	}
	return &parcel, nil
}

func (s *Store) CreateParcel(ctx context.Context, parcel *models.Parcel) error {
	if err := s.db.WithContext(ctx).Create(parcel).Error; err != nil {
		return convertErr(err, "create parcel")
	}
	return nil
}

func (s *Store) UpdateParcel(ctx context.Context, id string, changes models.ParcelChanges) (*models.Parcel, error) {
	var parcel models.Parcel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&parcel, "id = ?", id).Error; err != nil {
			return convertErr(err, "get parcel %s", id)
		}
		changes.Apply(&parcel)
		if err := tx.Save(&parcel).Error; err != nil {
			return convertErr(err, "update parcel %s", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &parcel, nil
}

func (s *Store) AssignRider(ctx context.Context, id, riderEmail string) (*models.Parcel, error) {
	var parcel models.Parcel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Parcel{}).
			Where("id = ? AND payment_status = ? AND delivery_status = ?",
				id, models.PaymentStatusPaid, models.DeliveryStatusPendingPickup).
			Updates(map[string]any{
				"rider_email":     riderEmail,
				"delivery_status": models.DeliveryStatusRiderAssigned,
			})
		if res.Error != nil {
			return convertErr(res.Error, "assign rider to parcel %s", id)
		}

		if err := tx.First(&parcel, "id = ?", id).Error; err != nil {
			return convertErr(err, "get parcel %s", id)
		}
		if res.RowsAffected == 0 {
			return errors.Wrapf(models.ErrConflict, "parcel %s is not awaiting pickup", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &parcel, nil
}

func (s *Store) DeleteParcel(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Parcel{}, "id = ?", id)
	if res.Error != nil {
		return convertErr(res.Error, "delete parcel %s", id)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(models.ErrNotFound, "delete parcel %s", id)
	}
	return nil
}

// Users

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, convertErr(err, "get user %s", email)
	}
	return &user, nil
}

func (s *Store) UpsertUser(ctx context.Context, user *models.User) (bool, error) {
	now := time.Now().UTC()
	if user.LastLoginAt.IsZero() {
		user.LastLoginAt = now
	}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(user)
	if res.Error != nil {
		return false, convertErr(res.Error, "insert user %s", user.Email)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", user.Email).
		Update("last_login_at", now).Error
	if err != nil {
		return false, convertErr(err, "touch user %s", user.Email)
	}
	return false, nil
}

func (s *Store) ListUsers(ctx context.Context, filter store.UserFilter) ([]models.User, error) {
	q := s.db.WithContext(ctx).Model(&models.User{})
	if filter.Search != "" {
		pattern := regexp.QuoteMeta(filter.Search)
		q = q.Where("email ~* ? OR display_name ~* ?", pattern, pattern)
	}

	var users []models.User
	if err := q.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, convertErr(err, "list users")
	}
	return users, nil
}

func (s *Store) UpdateUserRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return nil, convertErr(res.Error, "update role of user %s", id)
	}
	if res.RowsAffected == 0 {
		return nil, errors.Wrapf(models.ErrNotFound, "update role of user %s", id)
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, convertErr(err, "get user %s", id)
	}
	return &user, nil
}

// Riders

func (s *Store) ListRiders(ctx context.Context, filter store.RiderFilter) ([]models.Rider, error) {
	q := s.db.WithContext(ctx).Model(&models.Rider{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var riders []models.Rider
	if err := q.Order("created_at DESC").Find(&riders).Error; err != nil {
		return nil, convertErr(err, "list riders")
	}
	return riders, nil
}

func (s *Store) GetRider(ctx context.Context, id string) (*models.Rider, error) {
	var rider models.Rider
	if err := s.db.WithContext(ctx).First(&rider, "id = ?", id).Error; err != nil {
		return nil, convertErr(err, "get rider %s", id)
	}
	return &rider, nil
}

func (s *Store) FindApprovedRider(ctx context.Context, email string) (*models.Rider, error) {
	var rider models.Rider
	err := s.db.WithContext(ctx).
		Where("email = ? AND status = ?", email, models.RiderStatusApproved).
		First(&rider).Error
	if err != nil {
		return nil, convertErr(err, "find approved rider %s", email)
	}
	return &rider, nil
}

func (s *Store) CreateRider(ctx context.Context, rider *models.Rider) error {
	if err := s.db.WithContext(ctx).Create(rider).Error; err != nil {
		return convertErr(err, "create rider")
	}
	return nil
}

func (s *Store) UpdateRiderStatus(ctx context.Context, id, status string) (*store.RiderStatusResult, error) {
	result := &store.RiderStatusResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rider models.Rider
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&rider, "id = ?", id).Error; err != nil {
			return convertErr(err, "get rider %s", id)
		}
		if err := tx.Model(&rider).Update("status", status).Error; err != nil {
			return convertErr(err, "update status of rider %s", id)
		}
		result.Rider = &rider

		if status != models.RiderStatusApproved {
			return nil
		}
		res := tx.Model(&models.User{}).Where("email = ?", rider.Email).Update("role", models.RoleRider)
		if res.Error != nil {
			return convertErr(res.Error, "promote user %s to rider", rider.Email)
		}
		result.RoleUpdated = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) DeleteRider(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Rider{}, "id = ?", id)
	if res.Error != nil {
		return convertErr(res.Error, "delete rider %s", id)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(models.ErrNotFound, "delete rider %s", id)
	}
	return nil
}

// Payments

func (s *Store) ListPayments(ctx context.Context, filter store.PaymentFilter) ([]models.Payment, error) {
	q := s.db.WithContext(ctx).Model(&models.Payment{})
	if filter.CustomerEmail != "" {
		q = q.Where("customer_email = ?", filter.CustomerEmail)
	}

	var payments []models.Payment
	if err := q.Order("paid_at DESC").Find(&payments).Error; err != nil {
		return nil, convertErr(err, "list payments")
	}
	return payments, nil
}

func (s *Store) FindPaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).First(&payment, "transaction_id = ?", transactionID).Error
	if err != nil {
		return nil, convertErr(err, "find payment %s", transactionID)
	}
	return &payment, nil
}

func (s *Store) RecordParcelPayment(ctx context.Context, payment *models.Payment) (*models.UpdateResult, error) {
	result := &models.UpdateResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// A concurrent insert of the same transaction id blocks here until the
		// other transaction settles, then inserts nothing.
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_id"}},
			DoNothing: true,
		}).Create(payment)
		if res.Error != nil {
			return convertErr(res.Error, "insert payment %s", payment.TransactionID)
		}
		if res.RowsAffected == 0 {
			var existing models.Payment
			if err := tx.First(&existing, "transaction_id = ?", payment.TransactionID).Error; err != nil {
				return convertErr(err, "find payment %s", payment.TransactionID)
			}
			return &models.DuplicatePaymentError{Payment: &existing}
		}

		if err := tx.Model(&models.Parcel{}).Where("id = ?", payment.ParcelID).Count(&result.MatchedCount).Error; err != nil {
			return convertErr(err, "find parcel %s", payment.ParcelID)
		}

		upd := tx.Model(&models.Parcel{}).
			Where("id = ? AND payment_status <> ?", payment.ParcelID, models.PaymentStatusPaid).
			Updates(map[string]any{
				"payment_status":  models.PaymentStatusPaid,
				"delivery_status": models.DeliveryStatusPendingPickup,
				"tracking_id":     payment.TrackingID,
			})
		if upd.Error != nil {
			return convertErr(upd.Error, "mark parcel %s paid", payment.ParcelID)
		}
		result.ModifiedCount = upd.RowsAffected
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
