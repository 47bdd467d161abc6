// Package schema holds the per-bank column layouts and the header
// normalizer. The registry is built once and never mutated afterwards;
// callers receive it by reference and may share it freely.
package schema

import (
	"errors"
	"fmt"

	"reconingest/internal/model"
)

// Bank identifies a supported upstream bank.
type Bank string

const (
	BankHDFC       Bank = "hdfc"
	BankICICI      Bank = "icici"
	BankKarurVysya Bank = "karur_vysya"
)

// ErrUnsupportedBank is returned for lookups against a bank the registry
// does not know.
var ErrUnsupportedBank = errors.New("schema: unsupported bank")

// Canonical field names shared by the converter and the storage layer.
const (
	FieldOrderNo      = "irctc_order_no"
	FieldBookingRefNo = "bank_booking_ref_no"
	FieldRefundRefNo  = "bank_refund_ref_no"
	FieldBookingAmt   = "booking_amount"
	FieldRefundAmt    = "refund_amount"
	FieldTxnDate      = "transaction_date"
	FieldCreditedDate = "credited_date"
	FieldRefundDate   = "refund_date"
	FieldDebitedDate  = "debited_date"
)

// Mapping describes one (bank, kind) sheet layout.
type Mapping struct {
	// Columns are the raw, human-readable headers expected in the file,
	// in file order.
	Columns []string

	// Fields maps the normalized form of each header to its canonical
	// field name.
	Fields map[string]string
}

// CanonicalFields returns the canonical field names of the mapping. Order is
// not significant; callers index rows by name.
func (m Mapping) CanonicalFields() []string {
	out := make([]string, 0, len(m.Fields))
	for _, f := range m.Fields {
		out = append(out, f)
	}
	return out
}

// Registry resolves banks to their numeric codes and sheet layouts. It is
// immutable after New.
type Registry struct {
	codes    map[Bank]int
	mappings map[Bank]map[model.Kind]Mapping
}

// New builds the static registry. Bank codes and layouts follow the
// reconciliation sheets the banks actually send; only Karur Vysya files are
// column-mapped so far.
func New() *Registry {
	return &Registry{
		codes: map[Bank]int{
			BankHDFC:       101,
			BankICICI:      102,
			BankKarurVysya: 40,
		},
		mappings: map[Bank]map[model.Kind]Mapping{
			BankKarurVysya: {
				model.KindBooking: {
					Columns: []string{"TXN DATE", "IRCTC ORDER NO.", "BANK BOOKING REF.NO.", "BOOKING AMOUNT", "CREDITED ON"},
					Fields: map[string]string{
						"IRCTCORDERNO":     FieldOrderNo,
						"BANKBOOKINGREFNO": FieldBookingRefNo,
						"BOOKINGAMOUNT":    FieldBookingAmt,
						"TXNDATE":          FieldTxnDate,
						"CREDITEDON":       FieldCreditedDate,
					},
				},
				model.KindRefund: {
					Columns: []string{"REFUND DATE", "IRCTC ORDER NO.", "BANK BOOKING REF.NO.", "BANK REFUND REF.NO.", "REFUND AMOUNT", "DEBITED ON"},
					Fields: map[string]string{
						"IRCTCORDERNO":     FieldOrderNo,
						"REFUNDAMOUNT":     FieldRefundAmt,
						"DEBITEDON":        FieldDebitedDate,
						"REFUNDDATE":       FieldRefundDate,
						"BANKBOOKINGREFNO": FieldBookingRefNo,
						"BANKREFUNDREFNO":  FieldRefundRefNo,
					},
				},
			},
		},
	}
}

// ParseBank validates a bank identifier supplied by the caller.
func ParseBank(s string) (Bank, error) {
	switch Bank(s) {
	case BankHDFC, BankICICI, BankKarurVysya:
		return Bank(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedBank, s)
}

// Code returns the numeric bank code recorded on every persisted row.
func (r *Registry) Code(b Bank) (int, error) {
	code, ok := r.codes[b]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedBank, b)
	}
	return code, nil
}

// Mapping returns the sheet layout for (bank, kind). Kind must be
// KindBooking or KindRefund; callers split "both" before lookup.
func (r *Registry) Mapping(b Bank, k model.Kind) (Mapping, error) {
	byKind, ok := r.mappings[b]
	if !ok {
		return Mapping{}, fmt.Errorf("%w: no column mapping for %q", ErrUnsupportedBank, b)
	}
	m, ok := byKind[k]
	if !ok {
		return Mapping{}, fmt.Errorf("%w: no %s mapping for %q", ErrUnsupportedBank, k, b)
	}
	return m, nil
}
