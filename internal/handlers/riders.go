package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chachabrian/zapshift-backend/internal/middleware"
	"github.com/chachabrian/zapshift-backend/internal/models"
	"github.com/chachabrian/zapshift-backend/internal/store"
)

type riderInput struct {
	Name          string `json:"name" binding:"required"`
	Phone         string `json:"phone" binding:"required"`
	Region        string `json:"region"`
	District      string `json:"district"`
	BikeModel     string `json:"bikeModel"`
	LicenseNumber string `json:"licenseNumber"`
}

func ListRiders(riders store.RiderStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := c.Query("status")
		if status != "" && !models.ValidRiderStatus(status) {
			_ = c.Error(models.ValidationError("unknown rider status %q", status))
			return
		}

		result, err := riders.ListRiders(c.Request.Context(), store.RiderFilter{Status: status})
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// CreateRider files a rider application for the caller.
func CreateRider(riders store.RiderStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input riderInput
		if err := c.ShouldBindJSON(&input); err != nil {
			_ = c.Error(bindError(err))
			return
		}

		rider := &models.Rider{
			Email:         middleware.CurrentEmail(c),
			Name:          input.Name,
			Phone:         input.Phone,
			Region:        input.Region,
			District:      input.District,
			BikeModel:     input.BikeModel,
			LicenseNumber: input.LicenseNumber,
			Status:        models.RiderStatusPending,
		}
		if err := riders.CreateRider(c.Request.Context(), rider); err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, rider)
	}
}

type riderStatusInput struct {
	Status string `json:"status" binding:"required,rider_status"`
}

// UpdateRiderStatus approves or rejects an application. Approval also
// promotes the matching user; roleUpdated tells whether that happened.
func UpdateRiderStatus(riders store.RiderStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input riderStatusInput
		if err := c.ShouldBindJSON(&input); err != nil {
			_ = c.Error(bindError(err))
			return
		}

		result, err := riders.UpdateRiderStatus(c.Request.Context(), c.Param("id"), input.Status)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func DeleteRider(riders store.RiderStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := riders.DeleteRider(c.Request.Context(), c.Param("id")); err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, models.DeleteResult{DeletedCount: 1})
	}
}
