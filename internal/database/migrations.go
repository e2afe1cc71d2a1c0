package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/chachabrian/zapshift-backend/internal/models"
)

// RunMigrations creates or updates the schema. The unique indexes on
// payments.transaction_id and the tracking id columns are declared on the
// models; they are re-asserted here because the payment confirmation flow
// depends on them for exactly-once recording.
func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Parcel{},
		&models.Rider{},
		&models.Payment{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	statements := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_transaction_id ON payments (transaction_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_tracking_id ON payments (tracking_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_parcels_tracking_id ON parcels (tracking_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users (email)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("ensure index: %w", err)
		}
	}

	// Payment and delivery status only ever take the documented values.
	if db.Migrator().HasTable(&models.Parcel{}) {
		db.Exec(`ALTER TABLE parcels DROP CONSTRAINT IF EXISTS parcels_payment_status_check`)
		db.Exec(`ALTER TABLE parcels ADD CONSTRAINT parcels_payment_status_check CHECK (payment_status IN ('', 'paid'))`)
	}
	if db.Migrator().HasTable(&models.User{}) {
		db.Exec(`ALTER TABLE users DROP CONSTRAINT IF EXISTS users_role_check`)
		db.Exec(`ALTER TABLE users ADD CONSTRAINT users_role_check CHECK (role IN ('user', 'admin', 'rider'))`)
	}

	return nil
}
