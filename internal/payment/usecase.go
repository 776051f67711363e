package payment

import (
	"context"

	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/agriconnectke/marketplace-service/internal/payment/dto"
	"github.com/agriconnectke/marketplace-service/internal/pkg/mpesa"
)

type UseCase interface {
	HandleCallback(ctx context.Context, cb *mpesa.STKCallback) error
	RefreshStatus(ctx context.Context, id string) (*model.Payment, error)
	GetPayment(ctx context.Context, id string) (*model.Payment, error)
	ListPayments(ctx context.Context, filters *dto.PaymentFilters) ([]model.Payment, int, error)
	RecordPayment(ctx context.Context, input *dto.RecordPaymentInput) (*model.Payment, error)
}
