package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"github.com/chachabrian/zapshift-backend/internal/handlers/testutils"
	"github.com/chachabrian/zapshift-backend/internal/identity"
	"github.com/chachabrian/zapshift-backend/internal/models"
	"github.com/chachabrian/zapshift-backend/internal/payment"
	"github.com/chachabrian/zapshift-backend/internal/payment/paymenttest"
	"github.com/chachabrian/zapshift-backend/internal/services"
	"github.com/chachabrian/zapshift-backend/internal/store"
	"github.com/chachabrian/zapshift-backend/internal/store/memstore"
)

const (
	adminEmail  = "admin@example.com"
	senderEmail = "sender@example.com"
	riderEmail  = "rider@example.com"
)

// emailVerifier accepts any token and treats it as the caller's email.
type emailVerifier struct{}

func (emailVerifier) Verify(_ context.Context, token string) (*identity.Identity, error) {
	if !strings.Contains(token, "@") {
		return nil, fmt.Errorf("malformed token: %w", models.ErrUnauthenticated)
	}
	return &identity.Identity{UID: "uid-" + token, Email: token}, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.ParcelEvent
}

func (n *recordingNotifier) Notify(_ context.Context, ev models.ParcelEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var types []string
	for _, ev := range n.events {
		types = append(types, ev.Type)
	}
	return types
}

type RouterTestSuite struct {
	suite.Suite
	ctx      context.Context
	store    *memstore.Store
	provider *paymenttest.Provider
	notifier *recordingNotifier
	router   *gin.Engine
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func (s *RouterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	l := logrus.New()
	l.SetOutput(io.Discard)

	s.ctx = context.Background()
	s.store = memstore.New()
	s.provider = paymenttest.NewProvider()
	s.notifier = &recordingNotifier{}

	uploads := s.T().TempDir()
	storage, err := services.NewLocalStorage(uploads, "http://localhost:3000")
	s.Require().NoError(err)

	s.router, err = NewRouter(RouterArgs{
		Logger:    l,
		Store:     s.store,
		Verifier:  emailVerifier{},
		Checkout:  payment.NewCheckout(s.provider, "usd", "https://zapshift.example", l),
		Confirmer: payment.NewConfirmer(s.provider, s.store, s.notifier, l),
		Notifier:  s.notifier,
		Storage:   storage,
		UploadDir: uploads,
		Health:    map[string]Pinger{"store": s.store},
	})
	s.Require().NoError(err)

	for email, role := range map[string]models.Role{
		adminEmail:  models.RoleAdmin,
		senderEmail: models.RoleUser,
		riderEmail:  models.RoleUser,
	} {
		_, err := s.store.UpsertUser(s.ctx, &models.User{Email: email, Role: role})
		s.Require().NoError(err)
	}
}

func (s *RouterTestSuite) do(method, url, token string, body any) *httptest.ResponseRecorder {
	var opts []func(*testutils.RequestOptions) error
	if token != "" {
		opts = append(opts, testutils.WithBearer(token))
	}
	if body != nil {
		opts = append(opts, testutils.WithJSON(body))
	}
	w, err := testutils.MakeRequest(testutils.RequestArgs{Router: s.router, Method: method, URL: url}, opts...)
	s.Require().NoError(err)
	return w
}

func (s *RouterTestSuite) decode(w *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (s *RouterTestSuite) createParcel(token, cost string) string {
	w := s.do(http.MethodPost, "/parcels", token, map[string]any{
		"parcelName":    "Documents",
		"parcelType":    "document",
		"cost":          cost,
		"receiverName":  "Rita",
		"receiverEmail": "rita@example.com",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var res models.InsertResult
	s.decode(w, &res)
	s.Require().NotEmpty(res.InsertedID)
	return res.InsertedID
}

// checkout returns the session id behind the redirect URL.
func (s *RouterTestSuite) checkout(parcelID, cost string) string {
	w := s.do(http.MethodPost, "/checkout-payment", senderEmail, map[string]any{
		"parcelId":    parcelID,
		"parcelName":  "Documents",
		"senderEmail": senderEmail,
		"cost":        cost,
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var res struct {
		URL string `json:"url"`
	}
	s.decode(w, &res)
	return res.URL[strings.LastIndex(res.URL, "/")+1:]
}

func (s *RouterTestSuite) confirm(sessionID string) payment.ConfirmResult {
	w := s.do(http.MethodPatch, "/payment-success?session_id="+sessionID, "", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var res payment.ConfirmResult
	s.decode(w, &res)
	return res
}

func (s *RouterTestSuite) TestRoot() {
	w := s.do(http.MethodGet, "/", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("Zap is shifting !", w.Body.String())

	w = s.do(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *RouterTestSuite) TestAuthRequired() {
	for _, route := range []struct{ method, url string }{
		{http.MethodGet, "/parcels"},
		{http.MethodPost, "/parcels"},
		{http.MethodGet, "/payments"},
		{http.MethodPost, "/checkout-payment"},
		{http.MethodPost, "/riders"},
		{http.MethodGet, "/users"},
	} {
		w := s.do(route.method, route.url, "", nil)
		s.Equal(http.StatusUnauthorized, w.Code, route.url)

		var body map[string]string
		s.decode(w, &body)
		s.Equal("unauthorized access", body["error"])
	}

	w := s.do(http.MethodGet, "/parcels", "not-a-token", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *RouterTestSuite) TestScopedEmail() {
	for _, url := range []string{"/payments?email=other@example.com", "/parcels?email=other@example.com"} {
		w := s.do(http.MethodGet, url, senderEmail, nil)
		s.Equal(http.StatusForbidden, w.Code, url)

		var body map[string]string
		s.decode(w, &body)
		s.Equal("forbidden access", body["error"])
	}

	w := s.do(http.MethodGet, "/payments?email="+senderEmail, senderEmail, nil)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`[]`, w.Body.String())
}

func (s *RouterTestSuite) TestListParcelsOnlyOwn() {
	s.createParcel(senderEmail, "10")
	s.createParcel(senderEmail, "20")
	s.createParcel("someone@example.com", "30")

	w := s.do(http.MethodGet, "/parcels?email="+senderEmail, senderEmail, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var parcels []models.Parcel
	s.decode(w, &parcels)
	s.Len(parcels, 2)
	for _, p := range parcels {
		s.Equal(senderEmail, p.SenderEmail)
	}
}

func (s *RouterTestSuite) TestCreateParcelValidation() {
	w := s.do(http.MethodPost, "/parcels", senderEmail, map[string]any{"parcelName": "Box", "cost": "0"})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/parcels", senderEmail, map[string]any{"cost": "10"})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/parcels", senderEmail, map[string]any{
		"parcelName": "Box", "cost": "10", "senderEmail": "other@example.com",
	})
	s.Equal(http.StatusForbidden, w.Code)

	// server-owned fields are ignored
	w = s.do(http.MethodPost, "/parcels", senderEmail, map[string]any{
		"parcelName": "Box", "cost": "10", "paymentStatus": "paid", "trackingId": "PARCEL-20240101-000000",
	})
	s.Require().Equal(http.StatusCreated, w.Code)
	var res models.InsertResult
	s.decode(w, &res)

	parcel, err := s.store.GetParcel(s.ctx, res.InsertedID)
	s.Require().NoError(err)
	s.Equal(models.PaymentStatusUnset, parcel.PaymentStatus)
	s.Nil(parcel.TrackingID)
}

func (s *RouterTestSuite) TestParcelNotFound() {
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/parcels/missing", senderEmail, nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, "/parcels/missing", senderEmail, nil).Code)
}

func (s *RouterTestSuite) TestUpdateAndDeleteParcel() {
	id := s.createParcel(senderEmail, "10")

	w := s.do(http.MethodPatch, "/parcels/"+id, "intruder@example.com", map[string]any{"parcelName": "Mine now"})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, "/parcels/"+id, senderEmail, map[string]any{"receiverPhone": "+254700000000"})
	s.Require().Equal(http.StatusOK, w.Code)
	var parcel models.Parcel
	s.decode(w, &parcel)
	s.Equal("+254700000000", parcel.ReceiverPhone)
	s.Equal("Documents", parcel.ParcelName)

	s.Equal(http.StatusForbidden, s.do(http.MethodDelete, "/parcels/"+id, "intruder@example.com", nil).Code)

	w = s.do(http.MethodDelete, "/parcels/"+id, senderEmail, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"deletedCount":1}`, w.Body.String())
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/parcels/"+id, senderEmail, nil).Code)
}

func (s *RouterTestSuite) TestCheckoutAndConfirm() {
	id := s.createParcel(senderEmail, "5")
	sessionID := s.checkout(id, "5")

	reqs := s.provider.Requests()
	s.Require().Len(reqs, 1)
	s.Equal(int64(500), reqs[0].AmountMinor)
	s.Equal(id, reqs[0].Metadata["parcelId"])

	// customer abandons the checkout page
	unpaid := s.confirm(sessionID)
	s.False(unpaid.Success)

	s.provider.Pay(sessionID, "tx1")
	first := s.confirm(sessionID)
	s.True(first.Success)
	s.False(first.AlreadyExists)
	s.Equal("tx1", first.TransactionID)
	s.Regexp(`^PARCEL-\d{8}-[0-9A-F]{6}$`, first.TrackingID)
	s.Equal(&models.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, first.ModifiedParcel)

	w := s.do(http.MethodGet, "/parcels/"+id, senderEmail, nil)
	var parcel models.Parcel
	s.decode(w, &parcel)
	s.Equal(models.PaymentStatusPaid, parcel.PaymentStatus)
	s.Equal(models.DeliveryStatusPendingPickup, parcel.DeliveryStatus)
	s.Require().NotNil(parcel.TrackingID)
	s.Equal(first.TrackingID, *parcel.TrackingID)

	again := s.confirm(sessionID)
	s.True(again.Success)
	s.True(again.AlreadyExists)
	s.Equal(first.TrackingID, again.TrackingID)

	w = s.do(http.MethodGet, "/payments", senderEmail, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var payments []models.Payment
	s.decode(w, &payments)
	s.Require().Len(payments, 1)
	s.Equal("tx1", payments[0].TransactionID)
	s.Equal("5", payments[0].Amount.String())

	s.Equal([]string{models.EventParcelPaid}, s.notifier.types())

	// paid parcels cannot be paid again or deleted
	w = s.do(http.MethodPost, "/checkout-payment", senderEmail, map[string]any{
		"parcelId": id, "parcelName": "Documents", "senderEmail": senderEmail, "cost": "5",
	})
	s.Equal(http.StatusConflict, w.Code)
	s.Equal(http.StatusConflict, s.do(http.MethodDelete, "/parcels/"+id, senderEmail, nil).Code)
}

func (s *RouterTestSuite) TestCheckoutRejections() {
	id := s.createParcel(senderEmail, "5")

	w := s.do(http.MethodPost, "/checkout-payment", senderEmail, map[string]any{
		"parcelId": id, "parcelName": "Documents", "senderEmail": "other@example.com", "cost": "5",
	})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/checkout-payment", senderEmail, map[string]any{
		"parcelId": id, "parcelName": "Documents", "senderEmail": senderEmail, "cost": "-1",
	})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/checkout-payment", senderEmail, map[string]any{
		"parcelId": id, "parcelName": "Documents", "senderEmail": senderEmail, "cost": "abc",
	})
	s.Equal(http.StatusBadRequest, w.Code)

	s.provider.CreateErr = &payment.ProviderError{Kind: payment.KindCheckout, Msg: "Invalid API Key provided"}
	w = s.do(http.MethodPost, "/checkout-payment", senderEmail, map[string]any{
		"parcelId": id, "parcelName": "Documents", "senderEmail": senderEmail, "cost": "5",
	})
	s.Equal(http.StatusBadGateway, w.Code)
	var body map[string]string
	s.decode(w, &body)
	s.Equal("Invalid API Key provided", body["error"])
}

func (s *RouterTestSuite) TestConfirmLookupFailure() {
	w := s.do(http.MethodPatch, "/payment-success?session_id=cs_unknown", "", nil)
	s.Equal(http.StatusBadGateway, w.Code)

	w = s.do(http.MethodPatch, "/payment-success", "", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterTestSuite) TestUserSignupAndRole() {
	w := s.do(http.MethodPost, "/users", "", map[string]any{"email": "new@example.com", "displayName": "New", "role": "admin"})
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"inserted":true}`, w.Body.String())

	w = s.do(http.MethodPost, "/users", "", map[string]any{"email": "new@example.com"})
	s.JSONEq(`{"inserted":false}`, w.Body.String())

	w = s.do(http.MethodGet, "/users/new@example.com/role", senderEmail, nil)
	s.JSONEq(`{"role":"user"}`, w.Body.String())

	w = s.do(http.MethodGet, "/users/"+adminEmail+"/role", senderEmail, nil)
	s.JSONEq(`{"role":"admin"}`, w.Body.String())

	w = s.do(http.MethodGet, "/users/ghost@example.com/role", senderEmail, nil)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"role":"user"}`, w.Body.String())
}

func (s *RouterTestSuite) TestRoleUpdateGating() {
	target, err := s.store.GetUserByEmail(s.ctx, senderEmail)
	s.Require().NoError(err)
	url := "/users/" + target.ID + "/role"

	w := s.do(http.MethodPatch, url, senderEmail, map[string]any{"role": "admin"})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, url, adminEmail, map[string]any{"role": "superuser"})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPatch, url, adminEmail, map[string]any{"role": "admin"})
	s.Require().Equal(http.StatusOK, w.Code)
	var user models.User
	s.decode(w, &user)
	s.Equal(models.RoleAdmin, user.Role)

	w = s.do(http.MethodPatch, "/users/missing/role", adminEmail, map[string]any{"role": "admin"})
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *RouterTestSuite) TestUserSearchIsAdminOnly() {
	s.Equal(http.StatusForbidden, s.do(http.MethodGet, "/users?searchText=rider", senderEmail, nil).Code)

	w := s.do(http.MethodGet, "/users?searchText=RIDER", adminEmail, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var users []models.User
	s.decode(w, &users)
	s.Require().Len(users, 1)
	s.Equal(riderEmail, users[0].Email)
}

func (s *RouterTestSuite) applyAsRider() string {
	w := s.do(http.MethodPost, "/riders", riderEmail, map[string]any{
		"name": "Rui", "phone": "+254711111111", "region": "Nairobi", "bikeModel": "Boxer 150",
		"email": "spoofed@example.com",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var rider models.Rider
	s.decode(w, &rider)
	s.Equal(riderEmail, rider.Email)
	s.Equal(models.RiderStatusPending, rider.Status)
	return rider.ID
}

func (s *RouterTestSuite) TestRiderApproval() {
	id := s.applyAsRider()

	w := s.do(http.MethodPatch, "/riders/"+id, senderEmail, map[string]any{"status": "approved"})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, "/riders/"+id, adminEmail, map[string]any{"status": "hired"})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPatch, "/riders/"+id, adminEmail, map[string]any{"status": "approved"})
	s.Require().Equal(http.StatusOK, w.Code)
	var res store.RiderStatusResult
	s.decode(w, &res)
	s.True(res.RoleUpdated)
	s.Equal(models.RiderStatusApproved, res.Rider.Status)

	user, err := s.store.GetUserByEmail(s.ctx, riderEmail)
	s.Require().NoError(err)
	s.Equal(models.RoleRider, user.Role)

	w = s.do(http.MethodGet, "/riders?status=approved", adminEmail, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var riders []models.Rider
	s.decode(w, &riders)
	s.Len(riders, 1)

	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/riders?status=bogus", adminEmail, nil).Code)
	s.Equal(http.StatusForbidden, s.do(http.MethodDelete, "/riders/"+id, senderEmail, nil).Code)
	s.Equal(http.StatusOK, s.do(http.MethodDelete, "/riders/"+id, adminEmail, nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, "/riders/"+id, adminEmail, nil).Code)
}

func (s *RouterTestSuite) TestAssignRider() {
	parcelID := s.createParcel(senderEmail, "5")
	assign := map[string]any{"riderEmail": riderEmail}

	// rider not approved yet
	w := s.do(http.MethodPatch, "/parcels/"+parcelID+"/assign", adminEmail, assign)
	s.Equal(http.StatusBadRequest, w.Code)

	riderID := s.applyAsRider()
	s.Require().Equal(http.StatusOK, s.do(http.MethodPatch, "/riders/"+riderID, adminEmail, map[string]any{"status": "approved"}).Code)

	// parcel not paid yet
	w = s.do(http.MethodPatch, "/parcels/"+parcelID+"/assign", adminEmail, assign)
	s.Equal(http.StatusConflict, w.Code)

	sessionID := s.checkout(parcelID, "5")
	s.provider.Pay(sessionID, "tx-assign")
	s.Require().True(s.confirm(sessionID).Success)

	s.Equal(http.StatusForbidden, s.do(http.MethodPatch, "/parcels/"+parcelID+"/assign", senderEmail, assign).Code)

	w = s.do(http.MethodPatch, "/parcels/"+parcelID+"/assign", adminEmail, assign)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var parcel models.Parcel
	s.decode(w, &parcel)
	s.Equal(models.DeliveryStatusRiderAssigned, parcel.DeliveryStatus)
	s.Equal(riderEmail, *parcel.RiderEmail)

	s.Equal([]string{models.EventParcelPaid, models.EventRiderAssigned}, s.notifier.types())
}

func (s *RouterTestSuite) TestUploadParcelImage() {
	id := s.createParcel(senderEmail, "5")

	upload := func(token, contentType string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="box.png"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		s.Require().NoError(err)
		_, err = part.Write([]byte("\x89PNG\r\n\x1a\n"))
		s.Require().NoError(err)
		s.Require().NoError(mw.Close())

		w, err := testutils.MakeRequest(
			testutils.RequestArgs{Router: s.router, Method: http.MethodPost, URL: "/parcels/" + id + "/image"},
			testutils.WithBearer(token),
			testutils.WithBody(mw.FormDataContentType(), &buf),
		)
		s.Require().NoError(err)
		return w
	}

	s.Equal(http.StatusForbidden, upload("intruder@example.com", "image/png").Code)
	s.Equal(http.StatusBadRequest, upload(senderEmail, "application/pdf").Code)

	w := upload(senderEmail, "image/png")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var parcel models.Parcel
	s.decode(w, &parcel)
	s.True(strings.HasPrefix(parcel.ImageURL, "http://localhost:3000/uploads/parcels/"), parcel.ImageURL)

	served := s.do(http.MethodGet, strings.TrimPrefix(parcel.ImageURL, "http://localhost:3000"), "", nil)
	s.Equal(http.StatusOK, served.Code)
}
