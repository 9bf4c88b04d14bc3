package models

import (
	"time"

	id "compreg/pkg/domain"
)

// Payment is one signed ledger row. Payments carry positive amounts;
// refunds are always stored as the negative absolute value and link back
// to the payment they refund. Rows are never updated or deleted.
type Payment struct {
	ID                       id.PaymentID
	AmountLowestDenomination int64
	CurrencyCode             string
	ReceiptReference         string
	PaymentStatus            string
	RefundedPaymentID        *id.PaymentID
	UserID                   id.UserID
	CreatedAt                time.Time
}

// Receipt is the opaque proof handed back by the payment gateway. The core
// never inspects provider internals; it records the reference and the
// status classification.
type Receipt interface {
	// Reference is the provider-side identifier stored with the payment row.
	Reference() string
	// DetermineStatus classifies the receipt ("succeeded", "processing", ...)
	// for the history ledger.
	DetermineStatus() string
}
