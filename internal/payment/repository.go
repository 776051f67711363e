package payment

import (
	"context"

	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/agriconnectke/marketplace-service/internal/payment/dto"
)

type Repository interface {
	Create(ctx context.Context, p *model.Payment) error
	FindByID(ctx context.Context, id string) (*model.Payment, error)
	FindByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*model.Payment, error)
	FindAll(ctx context.Context, filters *dto.PaymentFilters) ([]model.Payment, int, error)
	// Settle moves a pending payment to its final state and, when it
	// completed, activates the subscription it pays for. It reports false
	// when the payment was no longer pending.
	Settle(ctx context.Context, p *model.Payment) (bool, error)
	InvoiceTaken(ctx context.Context, invoiceNumber string) (bool, error)
	UserExists(ctx context.Context, userID string) (bool, error)
	Receipt(ctx context.Context, paymentID string) (*dto.Receipt, error)
}
