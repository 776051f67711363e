package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentCancelled = "cancelled"
)

const TransactionTypeMpesa = "Mpesa"

type Payment struct {
	BaseModel
	UserID            string              `db:"user_id"`
	TransactionType   string              `db:"transaction_type"`
	TransID           *string             `db:"trans_id"`
	CheckoutRequestID *string             `db:"checkout_request_id"`
	MerchantRequestID *string             `db:"merchant_request_id"`
	TransTime         *time.Time          `db:"trans_time"`
	TransAmount       decimal.Decimal     `db:"trans_amount"`
	BusinessShortCode string              `db:"business_short_code"`
	BillRefNumber     string              `db:"bill_ref_number"`
	InvoiceNumber     string              `db:"invoice_number"`
	OrgAccountBalance decimal.NullDecimal `db:"org_account_balance"`
	ThirdPartyTransID *string             `db:"third_party_trans_id"`
	MSISDN            string              `db:"msisdn"`
	FirstName         string              `db:"first_name"`
	MiddleName        *string             `db:"middle_name"`
	LastName          string              `db:"last_name"`
	Status            string              `db:"status"`
	ResultCode        *int                `db:"result_code"`
	ResultDesc        *string             `db:"result_desc"`
}

// Settled payments never change state again.
func (p *Payment) Settled() bool {
	return p.Status != PaymentPending
}
