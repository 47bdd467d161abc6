// Package model defines the canonical transaction records produced by the
// ingestion pipeline. Records carry named, typed fields; optional fields use
// pointer types so that "unparseable" and "absent" collapse into nil, which
// matches the storage schema where those columns are nullable.
package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind selects which transaction table a record belongs to.
type Kind string

const (
	KindBooking Kind = "booking"
	KindRefund  Kind = "refund"
	// KindBoth asks the pipeline to extract bookings and refunds from the
	// same file when both column sets are present.
	KindBoth Kind = "both"
)

// ParseKind validates a transaction-type selector supplied by the caller.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindBooking, KindRefund, KindBoth:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

// BookingTransaction is one settled booking row from a bank reconciliation
// sheet. IRCTCOrderNo and BankBookingRefNo form the natural key; rows missing
// either never reach storage.
type BookingTransaction struct {
	BankCode         int
	TransactionDate  *time.Time
	CreditedDate     *time.Time
	IRCTCOrderNo     *int64
	BankBookingRefNo *int64
	BookingAmount    decimal.Decimal
}

// Eligible reports whether the record carries both natural-key fields and may
// therefore be submitted for insertion.
func (t BookingTransaction) Eligible() bool {
	return t.IRCTCOrderNo != nil && t.BankBookingRefNo != nil
}

// Keys returns the natural-key values present on the record, used for
// in-chunk duplicate tracking.
func (t BookingTransaction) Keys() []int64 {
	return keyValues(t.IRCTCOrderNo, t.BankBookingRefNo)
}

// Validate applies record-level rules. The bulk-load path does not gate on
// it; the rules exist for callers that admit single records.
func (t BookingTransaction) Validate() error {
	if t.BookingAmount.IsNegative() {
		return fmt.Errorf("booking amount must not be negative: %s", t.BookingAmount)
	}
	if t.TransactionDate == nil || t.CreditedDate == nil {
		return fmt.Errorf("both transaction date and credited date must be provided")
	}
	return nil
}

// RefundTransaction is one refund row. BankRefundRefNo is intended-unique;
// IRCTCOrderNo is deliberately not, since several refunds may reference the
// same order.
type RefundTransaction struct {
	BankCode         int
	RefundDate       *time.Time
	BankBookingRefNo *int64
	BankRefundRefNo  *int64
	RefundAmount     decimal.Decimal
	DebitedDate      *time.Time
	IRCTCOrderNo     *int64
}

// Eligible reports whether the record carries both natural-key fields.
func (t RefundTransaction) Eligible() bool {
	return t.IRCTCOrderNo != nil && t.BankRefundRefNo != nil
}

// Keys returns the natural-key values present on the record.
func (t RefundTransaction) Keys() []int64 {
	return keyValues(t.IRCTCOrderNo, t.BankRefundRefNo)
}

// Validate applies record-level rules, mirroring those for bookings.
func (t RefundTransaction) Validate() error {
	if t.RefundAmount.IsNegative() {
		return fmt.Errorf("refund amount must not be negative: %s", t.RefundAmount)
	}
	if t.RefundDate == nil || t.DebitedDate == nil {
		return fmt.Errorf("both refund date and debited date must be provided")
	}
	return nil
}

func keyValues(ptrs ...*int64) []int64 {
	out := make([]int64, 0, len(ptrs))
	for _, p := range ptrs {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}
