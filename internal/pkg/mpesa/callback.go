package mpesa

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrMalformedCallback = errors.New("mpesa: malformed callback")

// Result codes with a special meaning.
const (
	ResultSuccess         = 0
	ResultCancelledByUser = 1032
)

type callbackEnvelope struct {
	Body struct {
		STKCallback *STKCallback `json:"stkCallback"`
	} `json:"Body"`
}

type STKCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        int               `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

type CallbackMetadata struct {
	Item []MetadataItem `json:"Item"`
}

type MetadataItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value,omitempty"`
}

// Metadata is the typed view of a successful callback's items.
type Metadata struct {
	Amount          decimal.Decimal
	ReceiptNumber   string
	TransactionDate time.Time
	PhoneNumber     string
	Balance         *decimal.Decimal
}

func ParseCallback(r io.Reader) (*STKCallback, error) {
	var env callbackEnvelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, ErrMalformedCallback
	}
	cb := env.Body.STKCallback
	if cb == nil || cb.CheckoutRequestID == "" {
		return nil, ErrMalformedCallback
	}
	return cb, nil
}

func (cb *STKCallback) Succeeded() bool {
	return cb.ResultCode == ResultSuccess
}

func (cb *STKCallback) item(name string) string {
	if cb.CallbackMetadata == nil {
		return ""
	}
	for _, it := range cb.CallbackMetadata.Item {
		if it.Name == name {
			return rawText(it.Value)
		}
	}
	return ""
}

// Metadata reads items by name; absent items leave zero values.
func (cb *STKCallback) Metadata() Metadata {
	var m Metadata
	if v := cb.item("Amount"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			m.Amount = d
		}
	}
	m.ReceiptNumber = cb.item("MpesaReceiptNumber")
	m.PhoneNumber = cb.item("PhoneNumber")
	if v := cb.item("TransactionDate"); v != "" {
		if t, err := time.ParseInLocation("20060102150405", v, eat); err == nil {
			m.TransactionDate = t.UTC()
		}
	}
	if v := cb.item("Balance"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			m.Balance = &d
		}
	}
	return m
}

// rawText renders a JSON scalar without quotes or float formatting.
func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return strings.TrimSpace(s)
		}
	}
	return string(raw)
}
