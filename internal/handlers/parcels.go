package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/chachabrian/zapshift-backend/internal/middleware"
	"github.com/chachabrian/zapshift-backend/internal/models"
	"github.com/chachabrian/zapshift-backend/internal/payment"
	"github.com/chachabrian/zapshift-backend/internal/services"
	"github.com/chachabrian/zapshift-backend/internal/store"
)

const maxImageSize = 5 << 20

// ParcelInput is the body of POST /parcels. Payment, delivery and tracking
// fields are owned by the server and cannot be set here.
type ParcelInput struct {
	ParcelName          string          `json:"parcelName" binding:"required"`
	ParcelType          string          `json:"parcelType"`
	Weight              decimal.Decimal `json:"weight"`
	Cost                decimal.Decimal `json:"cost"`
	SenderName          string          `json:"senderName"`
	SenderEmail         string          `json:"senderEmail" binding:"omitempty,email"`
	SenderRegion        string          `json:"senderRegion"`
	SenderDistrict      string          `json:"senderDistrict"`
	SenderAddress       string          `json:"senderAddress"`
	ReceiverName        string          `json:"receiverName"`
	ReceiverEmail       string          `json:"receiverEmail" binding:"omitempty,email"`
	ReceiverPhone       string          `json:"receiverPhone"`
	ReceiverRegion      string          `json:"receiverRegion"`
	ReceiverDistrict    string          `json:"receiverDistrict"`
	ReceiverAddress     string          `json:"receiverAddress"`
	PickupInstruction   string          `json:"pickupInstruction"`
	DeliveryInstruction string          `json:"deliveryInstruction"`
}

func bindError(err error) error {
	return models.ValidationError("%s", err.Error())
}

// ListParcels returns the caller's parcels, newest first.
func ListParcels(parcels store.ParcelStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.Query("email")
		if err := middleware.RequireSelf(c, email); err != nil {
			_ = c.Error(err)
			return
		}

		result, err := parcels.ListParcels(c.Request.Context(), store.ParcelFilter{
			SenderEmail:    middleware.CurrentEmail(c),
			DeliveryStatus: c.Query("deliveryStatus"),
		})
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func GetParcel(parcels store.ParcelStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		parcel, err := parcels.GetParcel(c.Request.Context(), c.Param("id"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, parcel)
	}
}

func CreateParcel(parcels store.ParcelStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input ParcelInput
		if err := c.ShouldBindJSON(&input); err != nil {
			_ = c.Error(bindError(err))
			return
		}
		if err := middleware.RequireSelf(c, input.SenderEmail); err != nil {
			_ = c.Error(err)
			return
		}
		if !input.Cost.IsPositive() {
			_ = c.Error(models.ValidationError("cost must be a positive amount"))
			return
		}
		if input.Weight.IsNegative() {
			_ = c.Error(models.ValidationError("weight cannot be negative"))
			return
		}

		parcel := &models.Parcel{
			ParcelName:          input.ParcelName,
			ParcelType:          input.ParcelType,
			Weight:              input.Weight,
			Cost:                input.Cost,
			SenderName:          input.SenderName,
			SenderEmail:         middleware.CurrentEmail(c),
			SenderRegion:        input.SenderRegion,
			SenderDistrict:      input.SenderDistrict,
			SenderAddress:       input.SenderAddress,
			ReceiverName:        input.ReceiverName,
			ReceiverEmail:       input.ReceiverEmail,
			ReceiverPhone:       input.ReceiverPhone,
			ReceiverRegion:      input.ReceiverRegion,
			ReceiverDistrict:    input.ReceiverDistrict,
			ReceiverAddress:     input.ReceiverAddress,
			PickupInstruction:   input.PickupInstruction,
			DeliveryInstruction: input.DeliveryInstruction,
		}
		if err := parcels.CreateParcel(c.Request.Context(), parcel); err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, models.InsertResult{InsertedID: parcel.ID})
	}
}

// ownParcel loads the parcel and checks that the caller sent it.
func ownParcel(c *gin.Context, parcels store.ParcelStore) (*models.Parcel, error) {
	parcel, err := parcels.GetParcel(c.Request.Context(), c.Param("id"))
	if err != nil {
		return nil, err
	}
	if parcel.SenderEmail != middleware.CurrentEmail(c) {
		return nil, models.ErrForbidden
	}
	return parcel, nil
}

func UpdateParcel(parcels store.ParcelStore, notifier payment.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var changes models.ParcelChanges
		if err := c.ShouldBindJSON(&changes); err != nil {
			_ = c.Error(bindError(err))
			return
		}

		parcel, err := ownParcel(c, parcels)
		if err != nil {
			_ = c.Error(err)
			return
		}
		if changes.Cost != nil {
			if parcel.IsPaid() {
				_ = c.Error(models.ValidationError("cost of a paid parcel cannot change"))
				return
			}
			if !changes.Cost.IsPositive() {
				_ = c.Error(models.ValidationError("cost must be a positive amount"))
				return
			}
		}

		updated, err := parcels.UpdateParcel(c.Request.Context(), parcel.ID, changes)
		if err != nil {
			_ = c.Error(err)
			return
		}
		notify(c, notifier, models.EventParcelUpdated, updated)
		c.JSON(http.StatusOK, updated)
	}
}

// DeleteParcel removes an unpaid parcel of the caller.
func DeleteParcel(parcels store.ParcelStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		parcel, err := ownParcel(c, parcels)
		if err != nil {
			_ = c.Error(err)
			return
		}
		if parcel.IsPaid() {
			_ = c.Error(fmt.Errorf("parcel %s is paid and cannot be deleted: %w", parcel.ID, models.ErrConflict))
			return
		}

		if err := parcels.DeleteParcel(c.Request.Context(), parcel.ID); err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, models.DeleteResult{DeletedCount: 1})
	}
}

type assignInput struct {
	RiderEmail string `json:"riderEmail" binding:"required,email"`
}

// AssignRider hands a paid parcel to an approved rider.
func AssignRider(parcels store.ParcelStore, riders store.RiderStore, notifier payment.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input assignInput
		if err := c.ShouldBindJSON(&input); err != nil {
			_ = c.Error(bindError(err))
			return
		}

		ctx := c.Request.Context()
		if _, err := riders.FindApprovedRider(ctx, input.RiderEmail); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				err = models.ValidationError("%s is not an approved rider", input.RiderEmail)
			}
			_ = c.Error(err)
			return
		}

		parcel, err := parcels.AssignRider(ctx, c.Param("id"), input.RiderEmail)
		if err != nil {
			_ = c.Error(err)
			return
		}
		notify(c, notifier, models.EventRiderAssigned, parcel)
		c.JSON(http.StatusOK, parcel)
	}
}

// UploadParcelImage stores the multipart "image" file and links it to the
// parcel.
func UploadParcelImage(parcels store.ParcelStore, storage services.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		parcel, err := ownParcel(c, parcels)
		if err != nil {
			_ = c.Error(err)
			return
		}

		file, err := c.FormFile("image")
		if err != nil {
			_ = c.Error(models.ValidationError("parcel image is required"))
			return
		}
		if file.Size > maxImageSize {
			_ = c.Error(models.ValidationError("image exceeds %d bytes", maxImageSize))
			return
		}
		if ct := file.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
			_ = c.Error(models.ValidationError("unsupported content type %q", ct))
			return
		}

		imageURL, err := storage.Upload(c.Request.Context(), file, "parcels")
		if err != nil {
			_ = c.Error(err)
			return
		}

		updated, err := parcels.UpdateParcel(c.Request.Context(), parcel.ID, models.ParcelChanges{ImageURL: &imageURL})
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

func notify(c *gin.Context, notifier payment.Notifier, eventType string, parcel *models.Parcel) {
	if notifier == nil {
		return
	}
	ev := models.ParcelEvent{
		Type:        eventType,
		ParcelID:    parcel.ID,
		SenderEmail: parcel.SenderEmail,
		At:          time.Now().UTC(),
	}
	if parcel.TrackingID != nil {
		ev.TrackingID = *parcel.TrackingID
	}
	if parcel.RiderEmail != nil {
		ev.RiderEmail = *parcel.RiderEmail
	}
	notifier.Notify(c.Request.Context(), ev)
}
