// Package batch assembles one chunk's converted records for loading,
// dropping in-chunk duplicates.
//
// The seen-key set lives for a single chunk only: duplicates that straddle a
// chunk boundary are not caught here and flow on to the bulk loader, where
// the store-side existence check and the table's uniqueness constraints act
// as the backstop. First occurrence wins; later occurrences in the same
// chunk are dropped with a warning.
package batch

import (
	"log"

	"reconingest/internal/model"
)

// Bookings filters one chunk's booking records. A record is a duplicate when
// any of its natural-key values (order number, bank booking reference) was
// already accepted in this chunk.
func Bookings(in []model.BookingTransaction) []model.BookingTransaction {
	seen := make(map[int64]struct{}, len(in)*2)
	out := in[:0]
	for _, rec := range in {
		if anySeen(seen, rec.Keys()) {
			log.Printf("batch: duplicate booking for order %v, dropping", deref(rec.IRCTCOrderNo))
			continue
		}
		out = append(out, rec)
		mark(seen, rec.Keys())
	}
	return out
}

// Refunds filters one chunk's refund records by order number and bank refund
// reference.
func Refunds(in []model.RefundTransaction) []model.RefundTransaction {
	seen := make(map[int64]struct{}, len(in)*2)
	out := in[:0]
	for _, rec := range in {
		if anySeen(seen, rec.Keys()) {
			log.Printf("batch: duplicate refund for order %v, dropping", deref(rec.IRCTCOrderNo))
			continue
		}
		out = append(out, rec)
		mark(seen, rec.Keys())
	}
	return out
}

func anySeen(seen map[int64]struct{}, keys []int64) bool {
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			return true
		}
	}
	return false
}

func mark(seen map[int64]struct{}, keys []int64) {
	for _, k := range keys {
		seen[k] = struct{}{}
	}
}

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
