package gormstore

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/chachabrian/zapshift-backend/internal/models"
)

const uniqueViolationCode = "23505"

// convertErr maps driver errors onto the model sentinels:
//   - gorm.ErrRecordNotFound becomes models.ErrNotFound
//   - a Postgres unique violation becomes models.ErrConflict
//
// Everything else is wrapped with the formatted context.
func convertErr(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrap(models.ErrNotFound, msg)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return errors.Wrapf(models.ErrConflict, "%s: %s", msg, pgErr.ConstraintName)
	}

	return errors.Wrap(err, msg)
}
