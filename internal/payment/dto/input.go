package dto

import "github.com/shopspring/decimal"

// RecordPaymentInput is a payment captured by staff outside the STK flow.
type RecordPaymentInput struct {
	UserID        string           `json:"user"`
	Amount        *decimal.Decimal `json:"trans_amount"`
	MSISDN        string           `json:"msisdn"`
	FirstName     string           `json:"first_name"`
	MiddleName    *string          `json:"middle_name"`
	LastName      string           `json:"last_name"`
	BillRefNumber string           `json:"bill_ref_number"`
}
