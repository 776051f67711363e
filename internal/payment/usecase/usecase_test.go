package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/auth"
	"github.com/agriconnectke/marketplace-service/internal/events"
	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/agriconnectke/marketplace-service/internal/payment/dto"
	"github.com/agriconnectke/marketplace-service/internal/payment/repository"
	"github.com/agriconnectke/marketplace-service/internal/pkg/apperror"
	"github.com/agriconnectke/marketplace-service/internal/pkg/cache"
	"github.com/agriconnectke/marketplace-service/internal/pkg/database/dbtest"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/agriconnectke/marketplace-service/internal/pkg/mpesa"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) STKPush(ctx context.Context, in *mpesa.STKPushRequest) (*mpesa.STKPushResponse, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*mpesa.STKPushResponse)
	return res, args.Error(1)
}

func (m *mockGateway) QuerySTKStatus(ctx context.Context, checkoutRequestID string) (*mpesa.STKQueryResponse, error) {
	args := m.Called(ctx, checkoutRequestID)
	res, _ := args.Get(0).(*mpesa.STKQueryResponse)
	return res, args.Error(1)
}

type published struct {
	eventType string
	payload   interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(_ context.Context, eventType, _ string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{eventType: eventType, payload: payload})
	return nil
}

type fixture struct {
	db      *sqlx.DB
	uc      *paymentUseCase
	gateway *mockGateway
	pub     *recordingPublisher
	cache   *cache.Memory
}

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func setup(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	gw := new(mockGateway)
	pub := &recordingPublisher{}
	c := cache.NewMemory()
	uc := NewPaymentUseCase(repository.NewPGRepository(db), gw, c, pub, Options{ShortCode: "174379"}, logger.NewNop()).(*paymentUseCase)
	uc.now = func() time.Time { return fixedNow }
	return &fixture{db: db, uc: uc, gateway: gw, pub: pub, cache: c}
}

func (f *fixture) user(t *testing.T, id string, staff bool) *model.User {
	t.Helper()
	now := model.Now()
	u := &model.User{
		BaseModel: model.BaseModel{ID: id, CreatedAt: now, UpdatedAt: now},
		FirstName: "Wanjiru", LastName: "Kamau", Email: id + "@example.com", Phone: "+2547110000" + id[len(id)-2:],
		IsActive: true, IsStaff: staff,
	}
	_, err := f.db.NamedExec(`INSERT INTO users (id, first_name, last_name, email, phone, is_active, is_staff, is_superuser, created_at, updated_at)
		VALUES (:id, :first_name, :last_name, :email, :phone, :is_active, :is_staff, :is_superuser, :created_at, :updated_at)`, u)
	require.NoError(t, err)
	return u
}

// pending inserts a pending STK payment with an inactive subscription to a
// 30 day "Gold" package.
func (f *fixture) pending(t *testing.T, userID, checkoutID string) *model.Payment {
	t.Helper()
	now := model.Now()
	_, err := f.db.Exec(f.db.Rebind(`INSERT INTO subscription_packages (id, name, description, duration, pricing, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT (id) DO NOTHING`), "pkg-gold", "Gold", "", 30, "1500.00", now, now)
	require.NoError(t, err)

	checkout := checkoutID
	p := &model.Payment{
		BaseModel:         model.BaseModel{ID: "pay-" + checkoutID, CreatedAt: now, UpdatedAt: now},
		UserID:            userID,
		TransactionType:   model.TransactionTypeMpesa,
		TransID:           &checkout,
		CheckoutRequestID: &checkout,
		TransAmount:       decimal.NewFromInt(1500),
		BusinessShortCode: "174379",
		InvoiceNumber:     "INV" + checkoutID,
		MSISDN:            "254711000001",
		FirstName:         "Wanjiru",
		LastName:          "Kamau",
		Status:            model.PaymentPending,
	}
	require.NoError(t, repository.Insert(context.Background(), f.db, p))

	start := model.Date(fixedNow)
	_, err = f.db.Exec(f.db.Rebind(`INSERT INTO subscriptions (id, user_id, package_id, payment_id, start_date, end_date, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`), "sub-"+checkoutID, userID, "pkg-gold", p.ID, start, start.AddDate(0, 0, 30), false, now, now)
	require.NoError(t, err)
	return p
}

func (f *fixture) subscriptionActive(t *testing.T, checkoutID string) bool {
	t.Helper()
	var active bool
	require.NoError(t, f.db.Get(&active, f.db.Rebind("SELECT active FROM subscriptions WHERE id = ?"), "sub-"+checkoutID))
	return active
}

func (f *fixture) reload(t *testing.T, id string) *model.Payment {
	t.Helper()
	p, err := f.uc.repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

func successCallback(checkoutID string) *mpesa.STKCallback {
	item := func(name, value string) mpesa.MetadataItem {
		return mpesa.MetadataItem{Name: name, Value: []byte(value)}
	}
	return &mpesa.STKCallback{
		MerchantRequestID: "29115-1",
		CheckoutRequestID: checkoutID,
		ResultCode:        0,
		ResultDesc:        "The service request is processed successfully.",
		CallbackMetadata: &mpesa.CallbackMetadata{Item: []mpesa.MetadataItem{
			item("Amount", "1500.00"),
			item("MpesaReceiptNumber", `"NLJ7RT61SV"`),
			item("TransactionDate", "20240301123015"),
			item("PhoneNumber", "254708374149"),
		}},
	}
}

func TestHandleCallbackSuccess(t *testing.T) {
	f := setup(t)
	u := f.user(t, "user-01", false)
	p := f.pending(t, u.ID, "ws_CO_1")

	require.NoError(t, f.uc.HandleCallback(context.Background(), successCallback("ws_CO_1")))

	got := f.reload(t, p.ID)
	assert.Equal(t, model.PaymentCompleted, got.Status)
	require.NotNil(t, got.TransID)
	assert.Equal(t, "NLJ7RT61SV", *got.TransID)
	assert.Equal(t, "254708374149", got.MSISDN)
	require.NotNil(t, got.ResultCode)
	assert.Equal(t, 0, *got.ResultCode)
	require.NotNil(t, got.MerchantRequestID)
	assert.Equal(t, "29115-1", *got.MerchantRequestID)
	require.NotNil(t, got.TransTime)
	assert.True(t, got.TransTime.Equal(time.Date(2024, 3, 1, 9, 30, 15, 0, time.UTC)))
	assert.True(t, f.subscriptionActive(t, "ws_CO_1"))

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, events.PaymentCompleted, f.pub.events[0].eventType)
	payload := f.pub.events[0].payload.(events.PaymentCompletedPayload)
	assert.Equal(t, "user-01@example.com", payload.Email)
	assert.Equal(t, "NLJ7RT61SV", payload.ReceiptNumber)
	assert.Equal(t, "1500.00", payload.Amount)
	assert.Equal(t, "Gold", payload.PackageName)
	assert.Equal(t, "2024-03-31", payload.EndDate)
}

func TestHandleCallbackIsIdempotent(t *testing.T) {
	f := setup(t)
	u := f.user(t, "user-01", false)
	p := f.pending(t, u.ID, "ws_CO_1")

	require.NoError(t, f.uc.HandleCallback(context.Background(), successCallback("ws_CO_1")))

	replay := successCallback("ws_CO_1")
	replay.ResultCode = 2001
	require.NoError(t, f.uc.HandleCallback(context.Background(), replay))

	assert.Equal(t, model.PaymentCompleted, f.reload(t, p.ID).Status)
	assert.Len(t, f.pub.events, 1)
}

func TestHandleCallbackFailureStates(t *testing.T) {
	tests := []struct {
		name   string
		code   int
		status string
	}{
		{"cancelled by user", mpesa.ResultCancelledByUser, model.PaymentCancelled},
		{"insufficient funds", 1, model.PaymentFailed},
		{"timeout", 1037, model.PaymentFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			u := f.user(t, "user-01", false)
			p := f.pending(t, u.ID, "ws_CO_9")

			cb := &mpesa.STKCallback{CheckoutRequestID: "ws_CO_9", ResultCode: tt.code, ResultDesc: "declined"}
			require.NoError(t, f.uc.HandleCallback(context.Background(), cb))

			got := f.reload(t, p.ID)
			assert.Equal(t, tt.status, got.Status)
			require.NotNil(t, got.ResultDesc)
			assert.Equal(t, "declined", *got.ResultDesc)
			assert.Equal(t, "ws_CO_9", *got.TransID)
			assert.False(t, f.subscriptionActive(t, "ws_CO_9"))
			assert.Empty(t, f.pub.events)
		})
	}
}

func TestHandleCallbackUnknownCheckout(t *testing.T) {
	f := setup(t)
	err := f.uc.HandleCallback(context.Background(), successCallback("ws_CO_missing"))
	assert.ErrorIs(t, err, apperror.ErrPaymentNotFound)
}

func TestHandleCallbackBusy(t *testing.T) {
	f := setup(t)
	u := f.user(t, "user-01", false)
	p := f.pending(t, u.ID, "ws_CO_1")

	ok, err := f.cache.AcquireLock(context.Background(), callbackLockPrefix+"ws_CO_1", "other-worker", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	err = f.uc.HandleCallback(context.Background(), successCallback("ws_CO_1"))
	assert.ErrorIs(t, err, apperror.ErrBusy)
	assert.Equal(t, model.PaymentPending, f.reload(t, p.ID).Status)
}

func TestRefreshStatus(t *testing.T) {
	f := setup(t)
	owner := f.user(t, "user-01", false)
	other := f.user(t, "user-02", false)
	staff := f.user(t, "staff-09", true)

	p := f.pending(t, owner.ID, "ws_CO_1")

	_, err := f.uc.RefreshStatus(auth.WithUser(context.Background(), other, ""), p.ID)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	f.gateway.On("QuerySTKStatus", mock.Anything, "ws_CO_1").Return(nil, &mpesa.APIError{StatusCode: 500, Code: stillProcessingCode, Message: "The transaction is being processed"}).Once()
	got, err := f.uc.RefreshStatus(auth.WithUser(context.Background(), owner, ""), p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, got.Status)

	f.gateway.On("QuerySTKStatus", mock.Anything, "ws_CO_1").Return(nil, errors.New("connection reset")).Once()
	_, err = f.uc.RefreshStatus(auth.WithUser(context.Background(), owner, ""), p.ID)
	assert.ErrorIs(t, err, apperror.ErrPaymentStatusQuery)

	f.gateway.On("QuerySTKStatus", mock.Anything, "ws_CO_1").Return(&mpesa.STKQueryResponse{
		ResponseCode: "0", ResultCode: "0", ResultDesc: "The service request is processed successfully.",
	}, nil).Once()
	got, err = f.uc.RefreshStatus(auth.WithUser(context.Background(), staff, ""), p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCompleted, got.Status)
	assert.True(t, f.subscriptionActive(t, "ws_CO_1"))
	assert.Len(t, f.pub.events, 1)

	// settled payments are not queried again
	got, err = f.uc.RefreshStatus(auth.WithUser(context.Background(), owner, ""), p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCompleted, got.Status)
	f.gateway.AssertNumberOfCalls(t, "QuerySTKStatus", 3)
}

func TestRefreshStatusCancelled(t *testing.T) {
	f := setup(t)
	owner := f.user(t, "user-01", false)
	p := f.pending(t, owner.ID, "ws_CO_1")

	f.gateway.On("QuerySTKStatus", mock.Anything, "ws_CO_1").Return(&mpesa.STKQueryResponse{
		ResponseCode: "0", ResultCode: "1032", ResultDesc: "Request cancelled by user",
	}, nil)
	got, err := f.uc.RefreshStatus(auth.WithUser(context.Background(), owner, ""), p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCancelled, got.Status)
	assert.False(t, f.subscriptionActive(t, "ws_CO_1"))
}

func TestRecordPayment(t *testing.T) {
	f := setup(t)
	u := f.user(t, "user-01", false)

	amount := decimal.RequireFromString("-5")
	_, err := f.uc.RecordPayment(context.Background(), &dto.RecordPaymentInput{UserID: "nobody", Amount: &amount, MSISDN: "12"})
	var ve *apperror.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "user")
	assert.Equal(t, "Ensure this value is greater than or equal to 0.", ve.Fields["trans_amount"])
	assert.Contains(t, ve.Fields, "msisdn")
	assert.Contains(t, ve.Fields, "first_name")
	assert.Contains(t, ve.Fields, "last_name")

	amount = decimal.RequireFromString("250.5")
	p, err := f.uc.RecordPayment(context.Background(), &dto.RecordPaymentInput{
		UserID: u.ID, Amount: &amount, MSISDN: "0712345678", FirstName: " Wanjiru ", LastName: "Kamau", BillRefNumber: "ACC-1",
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCompleted, p.Status)
	assert.Equal(t, "254712345678", p.MSISDN)
	assert.Equal(t, "Wanjiru", p.FirstName)
	assert.Equal(t, "174379", p.BusinessShortCode)
	assert.Equal(t, "MPESA20240301093000000", *p.TransID)
	assert.Len(t, p.InvoiceNumber, 10)

	list, count, err := f.uc.ListPayments(context.Background(), &dto.PaymentFilters{Status: model.PaymentCompleted, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, list, 1)
	assert.True(t, list[0].TransAmount.Equal(decimal.RequireFromString("250.5")))
}
