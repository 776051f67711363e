package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/auth"
	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/agriconnectke/marketplace-service/internal/payment"
	"github.com/agriconnectke/marketplace-service/internal/pkg/apperror"
	"github.com/agriconnectke/marketplace-service/internal/pkg/cache"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/agriconnectke/marketplace-service/internal/pkg/mpesa"
	"github.com/agriconnectke/marketplace-service/internal/pkg/phone"
	"github.com/agriconnectke/marketplace-service/internal/subscription"
	"github.com/agriconnectke/marketplace-service/internal/subscription/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	packagesCacheKey = "packages:list"
	packagesCacheTTL = 10 * time.Minute

	defaultDuration  = 30
	maxNameLength    = 50
	maxOfferLength   = 150
	maxPriceDigits   = 10
	maxPriceDecimals = 2
)

type subscriptionUseCase struct {
	repo     subscription.Repository
	gateway  mpesa.Gateway
	payments payment.UseCase
	cache    cache.Store
	logger   logger.ZapLogger
	now      func() time.Time
}

func NewSubscriptionUseCase(repo subscription.Repository, gateway mpesa.Gateway, payments payment.UseCase, c cache.Store, log logger.ZapLogger) subscription.UseCase {
	return &subscriptionUseCase{
		repo:     repo,
		gateway:  gateway,
		payments: payments,
		cache:    c,
		logger:   log,
		now:      model.Now,
	}
}

func (uc *subscriptionUseCase) ListPackages(ctx context.Context) ([]model.SubscriptionPackage, error) {
	if cached, err := uc.cache.Get(ctx, packagesCacheKey); err == nil {
		var pkgs []model.SubscriptionPackage
		if err := json.Unmarshal(cached, &pkgs); err == nil {
			return pkgs, nil
		}
	}

	pkgs, err := uc.repo.FindPackages(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(pkgs); err == nil {
		if err := uc.cache.Set(ctx, packagesCacheKey, data, packagesCacheTTL); err != nil {
			uc.logger.Warn("failed to cache packages", zap.Error(err))
		}
	}
	return pkgs, nil
}

func (uc *subscriptionUseCase) invalidatePackages(ctx context.Context) {
	if err := uc.cache.DeletePattern(ctx, packagesCacheKey); err != nil {
		uc.logger.Warn("failed to invalidate packages cache", zap.Error(err))
	}
}

func (uc *subscriptionUseCase) GetPackage(ctx context.Context, id string) (*model.SubscriptionPackage, error) {
	p, err := uc.repo.FindPackageByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperror.ErrPackageNotFound
	}
	return p, nil
}

func validatePricing(ve *apperror.ValidationError, pricing decimal.Decimal) {
	switch {
	case pricing.IsNegative():
		ve.Add("pricing", "Ensure this value is greater than or equal to 0.")
	case !pricing.Equal(pricing.Round(maxPriceDecimals)):
		ve.Add("pricing", fmt.Sprintf("Ensure that there are no more than %d decimal places.", maxPriceDecimals))
	case len(pricing.Truncate(0).Abs().String()) > maxPriceDigits-maxPriceDecimals:
		ve.Add("pricing", fmt.Sprintf("Ensure that there are no more than %d digits before the decimal point.", maxPriceDigits-maxPriceDecimals))
	}
}

func offeringsFrom(ve *apperror.ValidationError, raw []string) []model.PackageOffering {
	out := make([]model.PackageOffering, 0, len(raw))
	for _, o := range raw {
		o = strings.TrimSpace(o)
		if o == "" {
			ve.Add("offerings", "This field may not be blank.")
			continue
		}
		if len([]rune(o)) > maxOfferLength {
			ve.Add("offerings", fmt.Sprintf("Ensure this field has no more than %d characters.", maxOfferLength))
			continue
		}
		out = append(out, model.PackageOffering{Offering: o})
	}
	return out
}

// validatePackage checks p in place; selfID skips the uniqueness hit on the
// package being updated.
func (uc *subscriptionUseCase) validatePackage(ctx context.Context, ve *apperror.ValidationError, p *model.SubscriptionPackage, selfID string) error {
	if p.Name == "" {
		ve.Add("name", "This field may not be blank.")
	} else if len([]rune(p.Name)) > maxNameLength {
		ve.Add("name", fmt.Sprintf("Ensure this field has no more than %d characters.", maxNameLength))
	} else {
		existing, err := uc.repo.FindPackageByName(ctx, p.Name)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != selfID {
			ve.Add("name", "subscription package with this name already exists.")
		}
	}
	if p.Duration < 1 {
		ve.Add("duration", "Ensure this value is greater than or equal to 1.")
	}
	validatePricing(ve, p.Pricing)
	return nil
}

func (uc *subscriptionUseCase) CreatePackage(ctx context.Context, input *dto.PackageInput) (*model.SubscriptionPackage, error) {
	ve := apperror.NewValidation()
	now := uc.now()
	p := &model.SubscriptionPackage{
		BaseModel:   model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Duration:    defaultDuration,
	}
	if input.Duration != nil {
		p.Duration = *input.Duration
	}
	if input.Pricing == nil {
		ve.Add("pricing", "This field is required.")
	} else {
		p.Pricing = *input.Pricing
	}
	p.Offerings = offeringsFrom(ve, input.Offerings)
	if err := uc.validatePackage(ctx, ve, p, ""); err != nil {
		return nil, err
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}
	p.Pricing = p.Pricing.Round(maxPriceDecimals)

	if err := uc.repo.CreatePackage(ctx, p); err != nil {
		return nil, err
	}
	uc.invalidatePackages(ctx)
	uc.logger.Info("subscription package created", zap.String("package_id", p.ID), zap.String("name", p.Name))
	return uc.GetPackage(ctx, p.ID)
}

func (uc *subscriptionUseCase) UpdatePackage(ctx context.Context, input *dto.UpdatePackageInput) (*model.SubscriptionPackage, error) {
	p, err := uc.GetPackage(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	ve := apperror.NewValidation()
	if !input.Partial {
		if input.Name == nil {
			ve.Add("name", "This field is required.")
		}
		if input.Pricing == nil {
			ve.Add("pricing", "This field is required.")
		}
	}
	if input.Name != nil {
		p.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		p.Description = strings.TrimSpace(*input.Description)
	}
	if input.Duration != nil {
		p.Duration = *input.Duration
	}
	if input.Pricing != nil {
		p.Pricing = *input.Pricing
	}
	if input.Offerings != nil {
		p.Offerings = offeringsFrom(ve, *input.Offerings)
	}
	if err := uc.validatePackage(ctx, ve, p, p.ID); err != nil {
		return nil, err
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}
	p.Pricing = p.Pricing.Round(maxPriceDecimals)
	p.UpdatedAt = uc.now()

	if err := uc.repo.UpdatePackage(ctx, p); err != nil {
		return nil, err
	}
	uc.invalidatePackages(ctx)
	return uc.GetPackage(ctx, p.ID)
}

func (uc *subscriptionUseCase) DeletePackage(ctx context.Context, id string) error {
	if _, err := uc.GetPackage(ctx, id); err != nil {
		return err
	}
	inUse, err := uc.repo.PackageInUse(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return apperror.ErrPackageInUse
	}
	if err := uc.repo.DeletePackage(ctx, id); err != nil {
		return err
	}
	uc.invalidatePackages(ctx)
	uc.logger.Info("subscription package deleted", zap.String("package_id", id))
	return nil
}

func (uc *subscriptionUseCase) Subscribe(ctx context.Context, input *dto.SubscribeInput) (*model.Subscription, *model.Payment, error) {
	ve := apperror.NewValidation()
	var pkg *model.SubscriptionPackage
	if input.PackageID == "" {
		ve.Add("package", "This field is required.")
	} else {
		var err error
		pkg, err = uc.repo.FindPackageByID(ctx, input.PackageID)
		if err != nil {
			return nil, nil, err
		}
		if pkg == nil {
			ve.Add("package", `Invalid pk "`+input.PackageID+`" - object does not exist.`)
		}
	}
	details := input.Payment
	msisdn := strings.TrimSpace(details.MSISDN)
	if msisdn == "" {
		ve.Add("payment.msisdn", "This field is required.")
	} else if err := phone.Validate(msisdn); err != nil {
		ve.Add("payment.msisdn", err.Error())
	}
	firstName := strings.TrimSpace(details.FirstName)
	if firstName == "" {
		ve.Add("payment.first_name", "This field may not be blank.")
	}
	lastName := strings.TrimSpace(details.LastName)
	if lastName == "" {
		ve.Add("payment.last_name", "This field may not be blank.")
	}
	if err := ve.Err(); err != nil {
		return nil, nil, err
	}

	invoice, err := payment.UniqueInvoiceNumber(ctx, uc.repo.InvoiceTaken)
	if err != nil {
		return nil, nil, err
	}
	billRef := strings.TrimSpace(details.BillRefNumber)
	reference := billRef
	if reference == "" {
		reference = invoice
	}

	number := phone.MSISDN(msisdn)
	res, err := uc.gateway.STKPush(ctx, &mpesa.STKPushRequest{
		PhoneNumber:      number,
		Amount:           pkg.Pricing,
		AccountReference: reference,
		Description:      "Subscription " + pkg.Name,
	})
	if err != nil || !res.Accepted() {
		fields := []zap.Field{zap.String("package_id", pkg.ID), zap.String("invoice_number", invoice)}
		if err != nil {
			fields = append(fields, zap.Error(err))
		} else {
			fields = append(fields, zap.String("response_code", res.ResponseCode), zap.String("response", res.ResponseDescription))
		}
		uc.logger.Warn("stk push rejected", fields...)
		return nil, nil, apperror.ErrPaymentInitiation
	}

	now := uc.now()
	today := model.Date(now)
	checkout := res.CheckoutRequestID
	merchant := res.MerchantRequestID
	pay := &model.Payment{
		BaseModel:         model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		UserID:            input.UserID,
		TransactionType:   model.TransactionTypeMpesa,
		TransID:           &checkout,
		CheckoutRequestID: &checkout,
		MerchantRequestID: &merchant,
		TransAmount:       pkg.Pricing,
		BillRefNumber:     billRef,
		InvoiceNumber:     invoice,
		MSISDN:            number,
		FirstName:         firstName,
		MiddleName:        details.MiddleName,
		LastName:          lastName,
		Status:            model.PaymentPending,
	}
	sub := &model.Subscription{
		BaseModel:   model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		UserID:      input.UserID,
		PackageID:   pkg.ID,
		PaymentID:   pay.ID,
		StartDate:   today,
		EndDate:     today.AddDate(0, 0, pkg.Duration),
		Active:      false,
		PackageName: pkg.Name,
	}
	if err := uc.repo.CreatePending(ctx, pay, sub); err != nil {
		return nil, nil, err
	}

	uc.logger.Info("subscription pending payment",
		zap.String("subscription_id", sub.ID),
		zap.String("checkout_request_id", checkout),
		zap.String("invoice_number", invoice),
	)
	return sub, pay, nil
}

func (uc *subscriptionUseCase) ListSubscriptions(ctx context.Context, filters *dto.SubscriptionFilters) ([]model.Subscription, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *subscriptionUseCase) GetSubscription(ctx context.Context, id string) (*model.Subscription, error) {
	s, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, apperror.ErrSubscriptionNotFound
	}
	if !auth.CanModify(ctx, s.UserID) {
		return nil, apperror.ErrPermissionDenied
	}
	return s, nil
}

func (uc *subscriptionUseCase) RefreshSubscription(ctx context.Context, id string) (*model.Subscription, error) {
	s, err := uc.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := uc.payments.RefreshStatus(ctx, s.PaymentID); err != nil {
		return nil, err
	}
	return uc.GetSubscription(ctx, id)
}

func (uc *subscriptionUseCase) FeatureAdvertisement(ctx context.Context, input *dto.FeatureInput) (*model.FeaturedAdvertisement, error) {
	s, err := uc.repo.FindByID(ctx, input.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, apperror.ErrSubscriptionNotFound
	}
	if s.UserID != input.UserID {
		return nil, apperror.ErrPermissionDenied
	}

	if input.AdvertisementID == "" {
		ve := apperror.NewValidation()
		ve.Add("advertisement", "This field is required.")
		return nil, ve.Err()
	}
	owner, err := uc.repo.AdvertisementOwner(ctx, input.AdvertisementID)
	if err != nil {
		return nil, err
	}
	if owner == "" {
		return nil, apperror.ErrAdvertisementNotFound
	}
	if owner != input.UserID {
		return nil, apperror.ErrPermissionDenied
	}
	if !s.Current(uc.now()) {
		return nil, apperror.ErrSubscriptionInactive
	}

	featured, err := uc.repo.IsFeatured(ctx, s.ID, input.AdvertisementID)
	if err != nil {
		return nil, err
	}
	if featured {
		return nil, apperror.ErrAlreadyFeatured
	}

	f := &model.FeaturedAdvertisement{
		ID:              uuid.New().String(),
		SubscriptionID:  s.ID,
		AdvertisementID: input.AdvertisementID,
		CreatedAt:       uc.now(),
	}
	if err := uc.repo.CreateFeatured(ctx, f); err != nil {
		return nil, err
	}
	uc.logger.Info("advertisement featured",
		zap.String("subscription_id", s.ID),
		zap.String("advertisement_id", f.AdvertisementID),
	)
	return f, nil
}

func (uc *subscriptionUseCase) ListFeatured(ctx context.Context, subscriptionID string) ([]model.FeaturedAdvertisement, error) {
	if _, err := uc.GetSubscription(ctx, subscriptionID); err != nil {
		return nil, err
	}
	return uc.repo.FindFeatured(ctx, subscriptionID)
}
