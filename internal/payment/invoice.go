package payment

import (
	"context"
	"crypto/rand"
	"errors"
)

const (
	InvoiceLength   = 10
	invoiceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	invoiceAttempts = 10
)

var ErrInvoiceExhausted = errors.New("payment: could not allocate a unique invoice number")

func newInvoiceNumber() (string, error) {
	buf := make([]byte, InvoiceLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = invoiceAlphabet[int(b)%len(invoiceAlphabet)]
	}
	return string(buf), nil
}

// UniqueInvoiceNumber draws invoice numbers until taken reports one as free.
func UniqueInvoiceNumber(ctx context.Context, taken func(context.Context, string) (bool, error)) (string, error) {
	for i := 0; i < invoiceAttempts; i++ {
		n, err := newInvoiceNumber()
		if err != nil {
			return "", err
		}
		used, err := taken(ctx, n)
		if err != nil {
			return "", err
		}
		if !used {
			return n, nil
		}
	}
	return "", ErrInvoiceExhausted
}
