package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/chachabrian/zapshift-backend/internal/models"
)

func validateRole(fl validator.FieldLevel) bool {
	return models.Role(fl.Field().String()).Valid()
}

func validateRiderStatus(fl validator.FieldLevel) bool {
	return models.ValidRiderStatus(fl.Field().String())
}

func registerValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("validator registration: unexpected engine %T", binding.Validator.Engine())
	}
	if err := v.RegisterValidation("role", validateRole); err != nil {
		return fmt.Errorf("validator registration: %w", err)
	}
	if err := v.RegisterValidation("rider_status", validateRiderStatus); err != nil {
		return fmt.Errorf("validator registration: %w", err)
	}
	return nil
}
