package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/auth"
	"github.com/agriconnectke/marketplace-service/internal/model"
	paymentrepo "github.com/agriconnectke/marketplace-service/internal/payment/repository"
	paymentuc "github.com/agriconnectke/marketplace-service/internal/payment/usecase"
	"github.com/agriconnectke/marketplace-service/internal/pkg/apperror"
	"github.com/agriconnectke/marketplace-service/internal/pkg/cache"
	"github.com/agriconnectke/marketplace-service/internal/pkg/database/dbtest"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/agriconnectke/marketplace-service/internal/pkg/mpesa"
	"github.com/agriconnectke/marketplace-service/internal/subscription/dto"
	"github.com/agriconnectke/marketplace-service/internal/subscription/repository"
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

type fixture struct {
	db      *sqlx.DB
	uc      *subscriptionUseCase
	gateway *mockGateway
	cache   *cache.Memory
}

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func setup(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	gw := new(mockGateway)
	c := cache.NewMemory()
	payments := paymentuc.NewPaymentUseCase(paymentrepo.NewPGRepository(db), gw, c, nil, paymentuc.Options{}, logger.NewNop())
	uc := NewSubscriptionUseCase(repository.NewPGRepository(db), gw, payments, c, logger.NewNop()).(*subscriptionUseCase)
	uc.now = func() time.Time { return fixedNow }
	return &fixture{db: db, uc: uc, gateway: gw, cache: c}
}

func (f *fixture) user(t *testing.T, id, phone string, staff bool) *model.User {
	t.Helper()
	now := model.Now()
	u := &model.User{
		BaseModel: model.BaseModel{ID: id, CreatedAt: now, UpdatedAt: now},
		FirstName: id, LastName: "Test", Email: id + "@example.com", Phone: phone,
		IsActive: true, IsStaff: staff,
	}
	_, err := f.db.NamedExec(`INSERT INTO users (id, first_name, last_name, email, phone, is_active, is_staff, is_superuser, created_at, updated_at)
		VALUES (:id, :first_name, :last_name, :email, :phone, :is_active, :is_staff, :is_superuser, :created_at, :updated_at)`, u)
	require.NoError(t, err)
	return u
}

func (f *fixture) advert(t *testing.T, id, ownerID string) {
	t.Helper()
	now := model.Now()
	_, err := f.db.Exec(f.db.Rebind(`INSERT INTO categories (id, name, classification, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?) ON CONFLICT (id) DO NOTHING`), "cat-1", "Maize", model.ClassificationFarmProduce, now, now)
	require.NoError(t, err)
	_, err = f.db.Exec(f.db.Rebind(`INSERT INTO advertisements (id, user_id, category_id, title, description, county, sub_county, views, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`), id, ownerID, "cat-1", "Maize "+id, "Dry maize", "Nakuru", "Njoro", 0, now, now)
	require.NoError(t, err)
}

func (f *fixture) gold(t *testing.T) *model.SubscriptionPackage {
	t.Helper()
	price := decimal.RequireFromString("1499.50")
	duration := 30
	p, err := f.uc.CreatePackage(context.Background(), &dto.PackageInput{
		Name: "Gold", Description: "Top placement", Duration: &duration, Pricing: &price,
		Offerings: []string{"Featured on home page", "Priority support"},
	})
	require.NoError(t, err)
	return p
}

func subscribeInput(userID, packageID string) *dto.SubscribeInput {
	return &dto.SubscribeInput{
		UserID:    userID,
		PackageID: packageID,
		Payment:   dto.PaymentDetails{MSISDN: "0712345678", FirstName: "Wanjiru", LastName: "Kamau"},
	}
}

func accepted(checkoutID string) *mpesa.STKPushResponse {
	return &mpesa.STKPushResponse{MerchantRequestID: "m-" + checkoutID, CheckoutRequestID: checkoutID, ResponseCode: "0"}
}

func (f *fixture) activate(t *testing.T, subID string) {
	t.Helper()
	_, err := f.db.Exec(f.db.Rebind("UPDATE subscriptions SET active = ? WHERE id = ?"), true, subID)
	require.NoError(t, err)
}

func TestPackageCRUD(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p := f.gold(t)
	assert.Equal(t, "1499.50", p.Pricing.StringFixed(2))
	assert.Len(t, p.Offerings, 2)

	list, err := f.uc.ListPackages(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	_, err = f.cache.Get(ctx, packagesCacheKey)
	require.NoError(t, err)

	price := decimal.RequireFromString("10")
	_, err = f.uc.CreatePackage(ctx, &dto.PackageInput{Name: "gold", Pricing: &price})
	var ve *apperror.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "subscription package with this name already exists.", ve.Fields["name"])

	silver, err := f.uc.CreatePackage(ctx, &dto.PackageInput{Name: "Silver", Pricing: &price})
	require.NoError(t, err)
	assert.Equal(t, defaultDuration, silver.Duration)
	_, err = f.cache.Get(ctx, packagesCacheKey)
	assert.ErrorIs(t, err, cache.ErrMiss)

	offerings := []string{"Listing boost"}
	name := "Silver Plus"
	updated, err := f.uc.UpdatePackage(ctx, &dto.UpdatePackageInput{ID: silver.ID, Partial: true, Name: &name, Offerings: &offerings})
	require.NoError(t, err)
	assert.Equal(t, "Silver Plus", updated.Name)
	require.Len(t, updated.Offerings, 1)
	assert.Equal(t, "Listing boost", updated.Offerings[0].Offering)
	assert.True(t, updated.Pricing.Equal(price))

	_, err = f.uc.UpdatePackage(ctx, &dto.UpdatePackageInput{ID: silver.ID, Name: &name})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "pricing")

	require.NoError(t, f.uc.DeletePackage(ctx, silver.ID))
	_, err = f.uc.GetPackage(ctx, silver.ID)
	assert.ErrorIs(t, err, apperror.ErrPackageNotFound)
}

func TestPackageValidation(t *testing.T) {
	f := setup(t)
	long := make([]rune, 151)
	for i := range long {
		long[i] = 'x'
	}
	tests := []struct {
		name  string
		input dto.PackageInput
		field string
		msg   string
	}{
		{"blank name", dto.PackageInput{Name: " ", Pricing: decPtr("1")}, "name", "This field may not be blank."},
		{"long name", dto.PackageInput{Name: "A very long package name that will not fit the column", Pricing: decPtr("1")}, "name", "Ensure this field has no more than 50 characters."},
		{"zero duration", dto.PackageInput{Name: "Zero", Duration: intPtr(0), Pricing: decPtr("1")}, "duration", "Ensure this value is greater than or equal to 1."},
		{"negative price", dto.PackageInput{Name: "Neg", Pricing: decPtr("-1")}, "pricing", "Ensure this value is greater than or equal to 0."},
		{"three decimals", dto.PackageInput{Name: "Frac", Pricing: decPtr("1.005")}, "pricing", "Ensure that there are no more than 2 decimal places."},
		{"too many digits", dto.PackageInput{Name: "Big", Pricing: decPtr("123456789")}, "pricing", "Ensure that there are no more than 8 digits before the decimal point."},
		{"missing price", dto.PackageInput{Name: "Free"}, "pricing", "This field is required."},
		{"long offering", dto.PackageInput{Name: "Offer", Pricing: decPtr("1"), Offerings: []string{string(long)}}, "offerings", "Ensure this field has no more than 150 characters."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.input
			_, err := f.uc.CreatePackage(context.Background(), &in)
			var ve *apperror.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.msg, ve.Fields[tt.field])
		})
	}
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intPtr(i int) *int { return &i }

func TestSubscribe(t *testing.T) {
	f := setup(t)
	u := f.user(t, "farmer", "+254711000001", false)
	pkg := f.gold(t)

	f.gateway.On("STKPush", mock.Anything, mock.MatchedBy(func(in *mpesa.STKPushRequest) bool {
		return in.PhoneNumber == "254712345678" && in.Amount.Equal(decimal.RequireFromString("1499.5")) && len(in.AccountReference) == 10
	})).Return(accepted("ws_CO_1"), nil).Once()

	sub, pay, err := f.uc.Subscribe(auth.WithUser(context.Background(), u, ""), subscribeInput(u.ID, pkg.ID))
	require.NoError(t, err)
	assert.False(t, sub.Active)
	assert.Equal(t, "2024-03-01", sub.StartDate.Format(time.DateOnly))
	assert.Equal(t, "2024-03-31", sub.EndDate.Format(time.DateOnly))
	assert.Equal(t, model.PaymentPending, pay.Status)
	assert.Equal(t, "ws_CO_1", *pay.TransID)
	assert.Equal(t, "ws_CO_1", *pay.CheckoutRequestID)
	assert.Len(t, pay.InvoiceNumber, 10)

	stored, err := f.uc.GetSubscription(auth.WithUser(context.Background(), u, ""), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "Gold", stored.PackageName)
	assert.Equal(t, pay.ID, stored.PaymentID)
	f.gateway.AssertExpectations(t)
}

func TestSubscribeRejectedPersistsNothing(t *testing.T) {
	f := setup(t)
	u := f.user(t, "farmer", "+254711000001", false)
	pkg := f.gold(t)

	f.gateway.On("STKPush", mock.Anything, mock.Anything).Return(&mpesa.STKPushResponse{ResponseCode: "1", ResponseDescription: "Rejected"}, nil).Once()
	_, _, err := f.uc.Subscribe(context.Background(), subscribeInput(u.ID, pkg.ID))
	assert.ErrorIs(t, err, apperror.ErrPaymentInitiation)

	f.gateway.On("STKPush", mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: timeout")).Once()
	_, _, err = f.uc.Subscribe(context.Background(), subscribeInput(u.ID, pkg.ID))
	assert.ErrorIs(t, err, apperror.ErrPaymentInitiation)

	var n int
	require.NoError(t, f.db.Get(&n, "SELECT count(*) FROM payments"))
	assert.Zero(t, n)
	require.NoError(t, f.db.Get(&n, "SELECT count(*) FROM subscriptions"))
	assert.Zero(t, n)
}

func TestSubscribeValidation(t *testing.T) {
	f := setup(t)
	u := f.user(t, "farmer", "+254711000001", false)

	in := subscribeInput(u.ID, "missing")
	in.Payment = dto.PaymentDetails{MSISDN: "12ab"}
	_, _, err := f.uc.Subscribe(context.Background(), in)
	var ve *apperror.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "package")
	assert.Contains(t, ve.Fields, "payment.msisdn")
	assert.Contains(t, ve.Fields, "payment.first_name")
	assert.Contains(t, ve.Fields, "payment.last_name")
	f.gateway.AssertNotCalled(t, "STKPush", mock.Anything, mock.Anything)
}

func TestSubscriptionAccessAndRefresh(t *testing.T) {
	f := setup(t)
	owner := f.user(t, "farmer", "+254711000001", false)
	other := f.user(t, "buyer", "+254711000002", false)
	staff := f.user(t, "admin", "+254711000003", true)
	pkg := f.gold(t)

	f.gateway.On("STKPush", mock.Anything, mock.Anything).Return(accepted("ws_CO_1"), nil).Once()
	sub, _, err := f.uc.Subscribe(context.Background(), subscribeInput(owner.ID, pkg.ID))
	require.NoError(t, err)

	_, err = f.uc.GetSubscription(auth.WithUser(context.Background(), other, ""), sub.ID)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)
	_, err = f.uc.GetSubscription(auth.WithUser(context.Background(), staff, ""), sub.ID)
	assert.NoError(t, err)
	_, err = f.uc.GetSubscription(auth.WithUser(context.Background(), owner, ""), "nope")
	assert.ErrorIs(t, err, apperror.ErrSubscriptionNotFound)

	f.gateway.On("QuerySTKStatus", mock.Anything, "ws_CO_1").Return(&mpesa.STKQueryResponse{ResponseCode: "0", ResultCode: "0"}, nil).Once()
	refreshed, err := f.uc.RefreshSubscription(auth.WithUser(context.Background(), owner, ""), sub.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.Active)

	mine, count, err := f.uc.ListSubscriptions(context.Background(), &dto.SubscriptionFilters{UserID: owner.ID, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Len(t, mine, 1)

	err = f.uc.DeletePackage(context.Background(), pkg.ID)
	assert.ErrorIs(t, err, apperror.ErrPackageInUse)
}

func TestFeatureAdvertisement(t *testing.T) {
	f := setup(t)
	owner := f.user(t, "farmer", "+254711000001", false)
	other := f.user(t, "buyer", "+254711000002", false)
	pkg := f.gold(t)
	f.advert(t, "ad-1", owner.ID)
	f.advert(t, "ad-2", other.ID)

	f.gateway.On("STKPush", mock.Anything, mock.Anything).Return(accepted("ws_CO_1"), nil).Once()
	sub, _, err := f.uc.Subscribe(context.Background(), subscribeInput(owner.ID, pkg.ID))
	require.NoError(t, err)

	feature := func(userID, adID string) error {
		_, err := f.uc.FeatureAdvertisement(context.Background(), &dto.FeatureInput{UserID: userID, SubscriptionID: sub.ID, AdvertisementID: adID})
		return err
	}

	assert.ErrorIs(t, feature(owner.ID, "ad-1"), apperror.ErrSubscriptionInactive)
	f.activate(t, sub.ID)

	assert.ErrorIs(t, feature(other.ID, "ad-2"), apperror.ErrPermissionDenied)
	assert.ErrorIs(t, feature(owner.ID, "ad-2"), apperror.ErrPermissionDenied)
	assert.ErrorIs(t, feature(owner.ID, "ad-404"), apperror.ErrAdvertisementNotFound)
	require.NoError(t, feature(owner.ID, "ad-1"))
	assert.ErrorIs(t, feature(owner.ID, "ad-1"), apperror.ErrAlreadyFeatured)

	featured, err := f.uc.ListFeatured(auth.WithUser(context.Background(), owner, ""), sub.ID)
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.Equal(t, "ad-1", featured[0].AdvertisementID)

	f.uc.now = func() time.Time { return fixedNow.AddDate(0, 0, 31) }
	f.advert(t, "ad-3", owner.ID)
	assert.ErrorIs(t, feature(owner.ID, "ad-3"), apperror.ErrSubscriptionInactive)
}
