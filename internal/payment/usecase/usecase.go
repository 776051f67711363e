package usecase

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/auth"
	"github.com/agriconnectke/marketplace-service/internal/events"
	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/agriconnectke/marketplace-service/internal/payment"
	"github.com/agriconnectke/marketplace-service/internal/payment/dto"
	"github.com/agriconnectke/marketplace-service/internal/pkg/apperror"
	"github.com/agriconnectke/marketplace-service/internal/pkg/cache"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/agriconnectke/marketplace-service/internal/pkg/mpesa"
	"github.com/agriconnectke/marketplace-service/internal/pkg/phone"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	callbackLockPrefix = "mpesa:callback:"
	callbackLockTTL    = 30 * time.Second

	// Daraja answers a status query with this code while the customer has
	// not yet acted on the prompt.
	stillProcessingCode = "500.001.1001"
)

type Options struct {
	ShortCode string
}

type paymentUseCase struct {
	repo      payment.Repository
	gateway   mpesa.Gateway
	cache     cache.Store
	publisher events.Publisher
	opts      Options
	logger    logger.ZapLogger
	now       func() time.Time
}

func NewPaymentUseCase(repo payment.Repository, gateway mpesa.Gateway, c cache.Store, publisher events.Publisher, opts Options, log logger.ZapLogger) payment.UseCase {
	return &paymentUseCase{
		repo:      repo,
		gateway:   gateway,
		cache:     c,
		publisher: publisher,
		opts:      opts,
		logger:    log,
		now:       model.Now,
	}
}

// outcome is a final STK result from either the callback or a status query.
type outcome struct {
	resultCode int
	resultDesc string
	meta       mpesa.Metadata
}

func statusFor(resultCode int) string {
	switch resultCode {
	case mpesa.ResultSuccess:
		return model.PaymentCompleted
	case mpesa.ResultCancelledByUser:
		return model.PaymentCancelled
	default:
		return model.PaymentFailed
	}
}

func (uc *paymentUseCase) HandleCallback(ctx context.Context, cb *mpesa.STKCallback) error {
	lockKey := callbackLockPrefix + cb.CheckoutRequestID
	return cache.WithLock(ctx, uc.cache, lockKey, uuid.New().String(), callbackLockTTL, apperror.ErrBusy, func() error {
		p, err := uc.repo.FindByCheckoutRequestID(ctx, cb.CheckoutRequestID)
		if err != nil {
			return err
		}
		if p == nil {
			uc.logger.Warn("callback for unknown checkout", zap.String("checkout_request_id", cb.CheckoutRequestID))
			return apperror.ErrPaymentNotFound
		}
		if p.Settled() {
			uc.logger.Info("duplicate callback ignored",
				zap.String("checkout_request_id", cb.CheckoutRequestID),
				zap.String("status", p.Status),
			)
			return nil
		}
		if cb.MerchantRequestID != "" && p.MerchantRequestID == nil {
			mr := cb.MerchantRequestID
			p.MerchantRequestID = &mr
		}
		_, err = uc.settle(ctx, p, outcome{resultCode: cb.ResultCode, resultDesc: cb.ResultDesc, meta: cb.Metadata()})
		return err
	})
}

// settle applies o to a pending payment. It returns the payment as stored
// afterwards, which may already be settled by a concurrent caller.
func (uc *paymentUseCase) settle(ctx context.Context, p *model.Payment, o outcome) (*model.Payment, error) {
	now := uc.now()
	p.Status = statusFor(o.resultCode)
	code := o.resultCode
	p.ResultCode = &code
	if o.resultDesc != "" {
		desc := o.resultDesc
		p.ResultDesc = &desc
	}
	p.UpdatedAt = now

	if p.Status == model.PaymentCompleted {
		if o.meta.ReceiptNumber != "" {
			receipt := o.meta.ReceiptNumber
			p.TransID = &receipt
		}
		transTime := now
		if !o.meta.TransactionDate.IsZero() {
			transTime = o.meta.TransactionDate
		}
		p.TransTime = &transTime
		if o.meta.Amount.IsPositive() {
			p.TransAmount = o.meta.Amount
		}
		if o.meta.PhoneNumber != "" {
			p.MSISDN = o.meta.PhoneNumber
		}
		if o.meta.Balance != nil {
			p.OrgAccountBalance.Decimal = *o.meta.Balance
			p.OrgAccountBalance.Valid = true
		}
	}

	applied, err := uc.repo.Settle(ctx, p)
	if err != nil {
		return nil, err
	}
	if !applied {
		return uc.repo.FindByID(ctx, p.ID)
	}

	uc.logger.Info("payment settled",
		zap.String("payment_id", p.ID),
		zap.String("status", p.Status),
		zap.Int("result_code", code),
	)
	if p.Status == model.PaymentCompleted {
		uc.publishCompleted(ctx, p)
	}
	return p, nil
}

func (uc *paymentUseCase) publishCompleted(ctx context.Context, p *model.Payment) {
	if uc.publisher == nil {
		return
	}
	rc, err := uc.repo.Receipt(ctx, p.ID)
	if err != nil || rc == nil {
		uc.logger.Error("failed to load receipt", zap.String("payment_id", p.ID), zap.Error(err))
		return
	}
	payload := events.PaymentCompletedPayload{
		PaymentID:     rc.PaymentID,
		UserID:        rc.UserID,
		Email:         rc.Email,
		FirstName:     rc.FirstName,
		InvoiceNumber: rc.InvoiceNumber,
		Amount:        rc.Amount.StringFixed(2),
	}
	if rc.ReceiptNumber != nil {
		payload.ReceiptNumber = *rc.ReceiptNumber
	}
	if rc.PackageName != nil {
		payload.PackageName = *rc.PackageName
	}
	if rc.EndDate != nil {
		payload.EndDate = rc.EndDate.Format(time.DateOnly)
	}
	if err := uc.publisher.Publish(ctx, events.PaymentCompleted, p.ID, payload); err != nil {
		uc.logger.Error("failed to publish event", zap.String("event_type", events.PaymentCompleted), zap.Error(err))
	}
}

func (uc *paymentUseCase) ownedPayment(ctx context.Context, id string) (*model.Payment, error) {
	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperror.ErrPaymentNotFound
	}
	if !auth.CanModify(ctx, p.UserID) {
		return nil, apperror.ErrPermissionDenied
	}
	return p, nil
}

func (uc *paymentUseCase) GetPayment(ctx context.Context, id string) (*model.Payment, error) {
	return uc.ownedPayment(ctx, id)
}

func (uc *paymentUseCase) RefreshStatus(ctx context.Context, id string) (*model.Payment, error) {
	p, err := uc.ownedPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Settled() || p.CheckoutRequestID == nil {
		return p, nil
	}

	res, err := uc.gateway.QuerySTKStatus(ctx, *p.CheckoutRequestID)
	if err != nil {
		var apiErr *mpesa.APIError
		if errors.As(err, &apiErr) && apiErr.Code == stillProcessingCode {
			return p, nil
		}
		uc.logger.Warn("stk status query failed", zap.String("payment_id", p.ID), zap.Error(err))
		return nil, apperror.ErrPaymentStatusQuery
	}
	if res.ResultCode == "" {
		return p, nil
	}
	code, err := strconv.Atoi(res.ResultCode)
	if err != nil {
		uc.logger.Warn("unexpected stk result code", zap.String("result_code", res.ResultCode))
		return nil, apperror.ErrPaymentStatusQuery
	}

	return uc.settle(ctx, p, outcome{resultCode: code, resultDesc: res.ResultDesc})
}

func (uc *paymentUseCase) ListPayments(ctx context.Context, filters *dto.PaymentFilters) ([]model.Payment, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *paymentUseCase) RecordPayment(ctx context.Context, input *dto.RecordPaymentInput) (*model.Payment, error) {
	ve := apperror.NewValidation()
	if input.UserID == "" {
		ve.Add("user", "This field is required.")
	} else {
		ok, err := uc.repo.UserExists(ctx, input.UserID)
		if err != nil {
			return nil, err
		}
		if !ok {
			ve.Add("user", `Invalid pk "`+input.UserID+`" - object does not exist.`)
		}
	}
	if input.Amount == nil {
		ve.Add("trans_amount", "This field is required.")
	} else if input.Amount.IsNegative() {
		ve.Add("trans_amount", "Ensure this value is greater than or equal to 0.")
	}
	msisdn := strings.TrimSpace(input.MSISDN)
	if msisdn == "" {
		ve.Add("msisdn", "This field is required.")
	} else if err := phone.Validate(msisdn); err != nil {
		ve.Add("msisdn", err.Error())
	}
	firstName := strings.TrimSpace(input.FirstName)
	if firstName == "" {
		ve.Add("first_name", "This field may not be blank.")
	}
	lastName := strings.TrimSpace(input.LastName)
	if lastName == "" {
		ve.Add("last_name", "This field may not be blank.")
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}

	invoice, err := payment.UniqueInvoiceNumber(ctx, uc.repo.InvoiceTaken)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	receipt := "MPESA" + strings.Replace(now.Format("20060102150405.000"), ".", "", 1)
	p := &model.Payment{
		BaseModel:         model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		UserID:            input.UserID,
		TransactionType:   model.TransactionTypeMpesa,
		TransID:           &receipt,
		TransTime:         &now,
		TransAmount:       input.Amount.Round(2),
		BusinessShortCode: uc.opts.ShortCode,
		BillRefNumber:     strings.TrimSpace(input.BillRefNumber),
		InvoiceNumber:     invoice,
		MSISDN:            phone.MSISDN(msisdn),
		FirstName:         firstName,
		MiddleName:        input.MiddleName,
		LastName:          lastName,
		Status:            model.PaymentCompleted,
	}
	if err := uc.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	uc.logger.Info("payment recorded", zap.String("payment_id", p.ID), zap.String("invoice_number", invoice))
	return p, nil
}
