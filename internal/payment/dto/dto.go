package dto

import (
	"time"

	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/shopspring/decimal"
)

type PaymentFilters struct {
	UserID   string
	Status   string
	Page     int
	PageSize int
}

type PaymentResponse struct {
	ID                string     `json:"id"`
	User              string     `json:"user"`
	TransactionType   string     `json:"transaction_type"`
	TransID           *string    `json:"trans_id"`
	CheckoutRequestID *string    `json:"checkout_request_id"`
	MerchantRequestID *string    `json:"merchant_request_id"`
	TransTime         *time.Time `json:"trans_time"`
	TransAmount       string     `json:"trans_amount"`
	BusinessShortCode string     `json:"business_short_code"`
	BillRefNumber     string     `json:"bill_ref_number"`
	InvoiceNumber     string     `json:"invoice_number"`
	OrgAccountBalance *string    `json:"org_account_balance"`
	ThirdPartyTransID *string    `json:"third_party_trans_id"`
	MSISDN            string     `json:"msisdn"`
	FirstName         string     `json:"first_name"`
	MiddleName        *string    `json:"middle_name"`
	LastName          string     `json:"last_name"`
	Status            string     `json:"status"`
	ResultCode        *int       `json:"result_code"`
	ResultDesc        *string    `json:"result_desc"`
	CreatedAt         time.Time  `json:"created_at"`
}

func NewPaymentResponse(p *model.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:                p.ID,
		User:              p.UserID,
		TransactionType:   p.TransactionType,
		TransID:           p.TransID,
		CheckoutRequestID: p.CheckoutRequestID,
		MerchantRequestID: p.MerchantRequestID,
		TransTime:         p.TransTime,
		TransAmount:       p.TransAmount.StringFixed(2),
		BusinessShortCode: p.BusinessShortCode,
		BillRefNumber:     p.BillRefNumber,
		InvoiceNumber:     p.InvoiceNumber,
		ThirdPartyTransID: p.ThirdPartyTransID,
		MSISDN:            p.MSISDN,
		FirstName:         p.FirstName,
		MiddleName:        p.MiddleName,
		LastName:          p.LastName,
		Status:            p.Status,
		ResultCode:        p.ResultCode,
		ResultDesc:        p.ResultDesc,
		CreatedAt:         p.CreatedAt,
	}
	if p.OrgAccountBalance.Valid {
		b := p.OrgAccountBalance.Decimal.StringFixed(2)
		resp.OrgAccountBalance = &b
	}
	return resp
}

func NewPaymentList(payments []model.Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(payments))
	for i := range payments {
		out[i] = NewPaymentResponse(&payments[i])
	}
	return out
}

// Receipt is what the invoice mail needs about a completed payment.
type Receipt struct {
	PaymentID     string          `db:"payment_id"`
	UserID        string          `db:"user_id"`
	Email         string          `db:"email"`
	FirstName     string          `db:"first_name"`
	InvoiceNumber string          `db:"invoice_number"`
	ReceiptNumber *string         `db:"receipt_number"`
	Amount        decimal.Decimal `db:"amount"`
	PackageName   *string         `db:"package_name"`
	EndDate       *time.Time      `db:"end_date"`
}

// CallbackAck is the body Daraja expects back from the callback URL.
type CallbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}
