package handlers

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/chachabrian/zapshift-backend/internal/identity"
	mw "github.com/chachabrian/zapshift-backend/internal/middleware"
	"github.com/chachabrian/zapshift-backend/internal/models"
	"github.com/chachabrian/zapshift-backend/internal/payment"
	"github.com/chachabrian/zapshift-backend/internal/services"
	"github.com/chachabrian/zapshift-backend/internal/store"
)

type RouterArgs struct {
	Logger         logrus.FieldLogger
	Store          store.Store
	Verifier       identity.Verifier
	Checkout       *payment.Checkout
	Confirmer      *payment.Confirmer
	Notifier       payment.Notifier
	Storage        services.Storage
	Hub            *services.Hub
	AllowedOrigins []string
	// UploadDir is served at /uploads when images are kept on local disk.
	UploadDir string
	Health    map[string]Pinger
}

func NewRouter(args RouterArgs) (*gin.Engine, error) {
	if err := registerValidators(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if args.Logger != nil {
		r.Use(mw.Logger(args.Logger))
	}
	r.Use(mw.Errors())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = args.AllowedOrigins
	if len(args.AllowedOrigins) == 0 || (len(args.AllowedOrigins) == 1 && args.AllowedOrigins[0] == "*") {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	r.Use(cors.New(corsConfig))

	if args.UploadDir != "" {
		r.Static("/uploads", args.UploadDir)
	}

	st := args.Store
	auth := mw.Authenticate(args.Verifier)
	admin := mw.RequireRole(st, models.RoleAdmin)

	r.GET("/", Root)
	r.GET("/healthz", Health(args.Health))

	parcels := r.Group("/parcels", mw.Chain(auth))
	{
		parcels.GET("", ListParcels(st))
		parcels.GET("/:id", GetParcel(st))
		parcels.POST("", CreateParcel(st))
		parcels.PATCH("/:id", UpdateParcel(st, args.Notifier))
		parcels.DELETE("/:id", DeleteParcel(st))
		parcels.PATCH("/:id/assign", mw.Chain(admin), AssignRider(st, st, args.Notifier))
		if args.Storage != nil {
			parcels.POST("/:id/image", UploadParcelImage(st, args.Storage))
		}
	}

	r.POST("/users", CreateUser(st))
	users := r.Group("/users", mw.Chain(auth))
	{
		users.GET("", mw.Chain(admin), ListUsers(st))
		users.GET("/:email/role", GetUserRole(st))
		users.PATCH("/:id/role", mw.Chain(admin), UpdateUserRole(st))
	}

	riders := r.Group("/riders", mw.Chain(auth))
	{
		riders.GET("", mw.Chain(admin), ListRiders(st))
		riders.POST("", CreateRider(st))
		riders.PATCH("/:id", mw.Chain(admin), UpdateRiderStatus(st))
		riders.DELETE("/:id", mw.Chain(admin), DeleteRider(st))
	}

	r.POST("/checkout-payment", mw.Chain(auth), CreateCheckout(args.Checkout, st))
	r.PATCH("/payment-success", ConfirmPayment(args.Confirmer))
	r.GET("/payments", mw.Chain(auth), ListPayments(st))

	if args.Hub != nil {
		r.GET("/ws", mw.Chain(auth), WebSocketHandler(args.Hub))
	}

	return r, nil
}
