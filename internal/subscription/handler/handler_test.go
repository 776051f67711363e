package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agriconnectke/marketplace-service/internal/auth"
	"github.com/agriconnectke/marketplace-service/internal/model"
	paymentrepo "github.com/agriconnectke/marketplace-service/internal/payment/repository"
	paymentuc "github.com/agriconnectke/marketplace-service/internal/payment/usecase"
	"github.com/agriconnectke/marketplace-service/internal/pkg/apperror"
	"github.com/agriconnectke/marketplace-service/internal/pkg/cache"
	"github.com/agriconnectke/marketplace-service/internal/pkg/database/dbtest"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/agriconnectke/marketplace-service/internal/pkg/mpesa"
	"github.com/agriconnectke/marketplace-service/internal/subscription/repository"
	"github.com/agriconnectke/marketplace-service/internal/subscription/usecase"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenTable map[string]*model.User

func (tt tokenTable) Authenticate(_ context.Context, token string) (*model.User, error) {
	if u, ok := tt[token]; ok {
		return u, nil
	}
	return nil, apperror.ErrInvalidToken
}

// fakeDaraja accepts pushes to any number except 254700000000.
type fakeDaraja struct{ pushes int }

func (d *fakeDaraja) STKPush(_ context.Context, in *mpesa.STKPushRequest) (*mpesa.STKPushResponse, error) {
	d.pushes++
	if in.PhoneNumber == "254700000000" {
		return &mpesa.STKPushResponse{ResponseCode: "1", ResponseDescription: "Invalid number"}, nil
	}
	return &mpesa.STKPushResponse{MerchantRequestID: "m-1", CheckoutRequestID: "ws_CO_1", ResponseCode: "0"}, nil
}

func (d *fakeDaraja) QuerySTKStatus(context.Context, string) (*mpesa.STKQueryResponse, error) {
	return &mpesa.STKQueryResponse{ResponseCode: "0", ResultCode: "1032", ResultDesc: "Request cancelled by user"}, nil
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	db := dbtest.New(t)

	now := model.Now()
	for _, u := range []struct{ id, phone string }{{"farmer", "+254711000001"}, {"buyer", "+254711000002"}, {"admin", "+254711000003"}} {
		_, err := db.Exec(db.Rebind(`INSERT INTO users (id, first_name, last_name, email, phone, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`),
			u.id, u.id, "Test", u.id+"@example.com", u.phone, now, now)
		require.NoError(t, err)
	}

	gw := &fakeDaraja{}
	c := cache.NewMemory()
	payments := paymentuc.NewPaymentUseCase(paymentrepo.NewPGRepository(db), gw, c, nil, paymentuc.Options{}, logger.NewNop())
	uc := usecase.NewSubscriptionUseCase(repository.NewPGRepository(db), gw, payments, c, logger.NewNop())
	mw := auth.NewMiddleware(tokenTable{
		"farmer": {BaseModel: model.BaseModel{ID: "farmer"}, IsActive: true},
		"buyer":  {BaseModel: model.BaseModel{ID: "buyer"}, IsActive: true},
		"admin":  {BaseModel: model.BaseModel{ID: "admin"}, IsActive: true, IsStaff: true},
	}, logger.NewNop())

	root := mux.NewRouter()
	NewSubscriptionHandler(uc, logger.NewNop()).Register(root.PathPrefix("/api").Subrouter(), mw)
	return mw.Authenticate(root)
}

func send(t *testing.T, h http.Handler, method, path, token, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	out := map[string]interface{}{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestPackageRoutes(t *testing.T) {
	h := newRouter(t)

	body := `{"name":"Gold","duration":30,"pricing":"1500","offerings":["Home page slot"]}`
	rec, _ := send(t, h, http.MethodPost, "/api/subscription/packages/new", "farmer", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, pkg := send(t, h, http.MethodPost, "/api/subscription/packages/new", "admin", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "1500.00", pkg["pricing"])
	assert.Equal(t, []interface{}{"Home page slot"}, pkg["offerings"])
	id := pkg["id"].(string)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/subscription/packages", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec, out := send(t, h, http.MethodPatch, "/api/subscription/packages/"+id, "admin", `{"duration":60}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(60), out["duration"])

	rec, out = send(t, h, http.MethodPut, "/api/subscription/packages/"+id, "admin", `{"duration":60}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, out["fields"], "name")

	rec, _ = send(t, h, http.MethodDelete, "/api/subscription/packages/"+id, "admin", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = send(t, h, http.MethodGet, "/api/subscription/packages/"+id, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubscribeRoutes(t *testing.T) {
	h := newRouter(t)

	rec, pkg := send(t, h, http.MethodPost, "/api/subscription/packages/new", "admin", `{"name":"Gold","pricing":"1500"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	pkgID := pkg["id"].(string)

	rec, _ = send(t, h, http.MethodPost, "/api/subscriptions/new", "farmer",
		`{"package":"`+pkgID+`","payment":{"msisdn":"0700000000","first_name":"Farmer","last_name":"Test"}}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec, sub := send(t, h, http.MethodPost, "/api/subscriptions/new", "farmer",
		`{"package":"`+pkgID+`","payment":{"msisdn":"0712345678","first_name":"Farmer","last_name":"Test"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "ws_CO_1", sub["checkout_request_id"])
	assert.Equal(t, "pending", sub["payment_status"])
	assert.Equal(t, false, sub["active"])
	subID := sub["id"].(string)

	rec, _ = send(t, h, http.MethodGet, "/api/subscription/"+subID, "buyer", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, page := send(t, h, http.MethodGet, "/api/subscriptions/mine", "farmer", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), page["count"])

	rec, _ = send(t, h, http.MethodGet, "/api/subscriptions", "farmer", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, page = send(t, h, http.MethodGet, "/api/subscriptions?active=false", "admin", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), page["count"])

	rec, out := send(t, h, http.MethodPost, "/api/subscription/"+subID+"/refresh", "farmer", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, out["active"])

	rec, _ = send(t, h, http.MethodPost, "/api/subscription/"+subID+"/feature", "farmer", `{"advertisement":"ad-1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
