package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chachabrian/zapshift-backend/internal/middleware"
	"github.com/chachabrian/zapshift-backend/internal/models"
	"github.com/chachabrian/zapshift-backend/internal/payment"
	"github.com/chachabrian/zapshift-backend/internal/store"
)

// CreateCheckout opens a hosted checkout for one of the caller's unpaid
// parcels and returns the redirect URL.
func CreateCheckout(checkout *payment.Checkout, parcels store.ParcelStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input payment.CheckoutInput
		if err := c.ShouldBindJSON(&input); err != nil {
			_ = c.Error(bindError(err))
			return
		}
		if input.SenderEmail != middleware.CurrentEmail(c) {
			_ = c.Error(models.ErrForbidden)
			return
		}

		parcel, err := parcels.GetParcel(c.Request.Context(), input.ParcelID)
		if err != nil {
			_ = c.Error(err)
			return
		}
		if parcel.SenderEmail != input.SenderEmail {
			_ = c.Error(models.ErrForbidden)
			return
		}
		if parcel.IsPaid() {
			_ = c.Error(fmt.Errorf("parcel %s is already paid: %w", parcel.ID, models.ErrConflict))
			return
		}

		url, err := checkout.Start(c.Request.Context(), input)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": url})
	}
}

// ConfirmPayment is hit by the success page after the provider redirect.
func ConfirmPayment(confirmer *payment.Confirmer) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := confirmer.Confirm(c.Request.Context(), c.Query("session_id"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func ListPayments(payments store.PaymentStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.Query("email")
		if err := middleware.RequireSelf(c, email); err != nil {
			_ = c.Error(err)
			return
		}

		result, err := payments.ListPayments(c.Request.Context(), store.PaymentFilter{
			CustomerEmail: middleware.CurrentEmail(c),
		})
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
