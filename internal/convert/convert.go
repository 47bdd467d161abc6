// Package convert turns raw row batches into canonical transaction records.
//
// Field parsing is lenient on purpose: reconciliation sheets arrive with
// blank cells, stray text and inconsistent date formats, and a single bad
// cell must not sink a 50k-row chunk. Each field parser returns an explicit
// (value, ok) pair; failed fields become nil (or the zero amount) and the
// row stays usable as long as its natural-key fields parsed.
package convert

import (
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"reconingest/internal/model"
	"reconingest/internal/parser"
	"reconingest/internal/schema"
)

// dateLayouts are tried in order. Month-first layouts precede day-first so
// ambiguous numeric dates resolve month-first, matching the upstream
// reconciliation reports; unambiguous day-first values (day > 12) fall
// through to the day-first layouts.
var dateLayouts = []string{
	"2006-01-02",
	"01-02-2006",
	"02-01-2006",
	"2006/01/02",
	"01/02/2006",
	"02/01/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseInt parses an integer cell. Values arrive as "123456" or "123456.0"
// depending on the exporting tool, so the cell is parsed as a float and
// truncated. Empty or non-numeric input is invalid.
func ParseInt(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	// float64(MaxInt64) rounds up to 2^63, which int64 cannot hold, so the
	// upper bound must exclude 2^63 itself.
	if f >= 1<<63 || f < -(1<<63) {
		return 0, false
	}
	return int64(f), true
}

// ParseDate parses a date cell against the known layouts. Empty or
// unparseable input is invalid; callers store nil.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseAmount parses a money cell. Empty or unparseable input is invalid;
// the converter substitutes the zero amount in that case.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if raw == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// Converter maps raw rows of one bank's sheets onto canonical records. It is
// bound to a bank at construction and resolves the bank code once.
type Converter struct {
	reg      *schema.Registry
	bank     schema.Bank
	bankCode int
}

// New builds a Converter for the given bank. Unknown banks fail here, before
// any file is read.
func New(reg *schema.Registry, bank schema.Bank) (*Converter, error) {
	code, err := reg.Code(bank)
	if err != nil {
		return nil, err
	}
	return &Converter{reg: reg, bank: bank, bankCode: code}, nil
}

// Index maps canonical field names to column positions for one batch's
// header row.
type Index map[string]int

// index resolves the batch headers against the (bank, kind) mapping. The
// second return is false when any expected canonical field is absent, which
// means this batch cannot produce records of that kind.
func (c *Converter) index(kind model.Kind, headers []string) (Index, bool) {
	m, err := c.reg.Mapping(c.bank, kind)
	if err != nil {
		return nil, false
	}
	idx := make(Index, len(m.Fields))
	for pos, h := range headers {
		if field, ok := m.Fields[schema.Normalize(h)]; ok {
			if _, dup := idx[field]; !dup {
				idx[field] = pos
			}
		}
	}
	for _, field := range m.Fields {
		if _, ok := idx[field]; !ok {
			return nil, false
		}
	}
	return idx, true
}

// BookingIndex resolves headers for booking extraction.
func (c *Converter) BookingIndex(headers []string) (Index, bool) {
	return c.index(model.KindBooking, headers)
}

// RefundIndex resolves headers for refund extraction.
func (c *Converter) RefundIndex(headers []string) (Index, bool) {
	return c.index(model.KindRefund, headers)
}

func cell(row []string, idx Index, field string) string {
	pos, ok := idx[field]
	if !ok || pos >= len(row) {
		return ""
	}
	return row[pos]
}

func intField(row []string, idx Index, field string) *int64 {
	raw := cell(row, idx, field)
	v, ok := ParseInt(raw)
	if !ok {
		if strings.TrimSpace(raw) != "" {
			log.Printf("convert: %s: not an integer: %q", field, raw)
		}
		return nil
	}
	return &v
}

func dateField(row []string, idx Index, field string) *time.Time {
	v, ok := ParseDate(cell(row, idx, field))
	if !ok {
		return nil
	}
	return &v
}

func amountField(row []string, idx Index, field string) decimal.Decimal {
	raw := cell(row, idx, field)
	v, ok := ParseAmount(raw)
	if !ok {
		if strings.TrimSpace(raw) != "" {
			log.Printf("convert: %s: not an amount, using 0: %q", field, raw)
		}
		// Missing amounts are an explicit zero, not null.
		return decimal.Zero
	}
	return v
}

// Booking converts one raw row into a BookingTransaction. The caller checks
// Eligible before admitting the record to a batch.
func (c *Converter) Booking(row []string, idx Index) model.BookingTransaction {
	return model.BookingTransaction{
		BankCode:         c.bankCode,
		IRCTCOrderNo:     intField(row, idx, schema.FieldOrderNo),
		BankBookingRefNo: intField(row, idx, schema.FieldBookingRefNo),
		BookingAmount:    amountField(row, idx, schema.FieldBookingAmt),
		TransactionDate:  dateField(row, idx, schema.FieldTxnDate),
		CreditedDate:     dateField(row, idx, schema.FieldCreditedDate),
	}
}

// Refund converts one raw row into a RefundTransaction.
func (c *Converter) Refund(row []string, idx Index) model.RefundTransaction {
	return model.RefundTransaction{
		BankCode:         c.bankCode,
		IRCTCOrderNo:     intField(row, idx, schema.FieldOrderNo),
		BankBookingRefNo: intField(row, idx, schema.FieldBookingRefNo),
		BankRefundRefNo:  intField(row, idx, schema.FieldRefundRefNo),
		RefundAmount:     amountField(row, idx, schema.FieldRefundAmt),
		RefundDate:       dateField(row, idx, schema.FieldRefundDate),
		DebitedDate:      dateField(row, idx, schema.FieldDebitedDate),
	}
}

// Bookings converts every row of a batch and keeps the eligible records.
func (c *Converter) Bookings(b parser.Batch, idx Index) []model.BookingTransaction {
	out := make([]model.BookingTransaction, 0, len(b.Rows))
	for _, row := range b.Rows {
		rec := c.Booking(row, idx)
		if rec.Eligible() {
			out = append(out, rec)
		}
	}
	return out
}

// Refunds converts every row of a batch and keeps the eligible records.
func (c *Converter) Refunds(b parser.Batch, idx Index) []model.RefundTransaction {
	out := make([]model.RefundTransaction, 0, len(b.Rows))
	for _, row := range b.Rows {
		rec := c.Refund(row, idx)
		if rec.Eligible() {
			out = append(out, rec)
		}
	}
	return out
}
