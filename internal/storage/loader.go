// This file implements the batched, idempotent bulk load: candidates whose
// order number is already persisted are excluded up front, the remainder is
// written in fixed-size sub-batches, each inside its own transaction.
//
// Failure semantics are deliberately partial: an insert error aborts the
// remaining sub-batches of the call, but sub-batches committed before the
// failure stay committed. There is no retry here; if the caller wants one,
// it re-dispatches the whole unit of work.
package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"reconingest/internal/model"
)

// DefaultInsertBatch is the sub-batch size for bulk inserts.
const DefaultInsertBatch = 500

// LoadBookings filters and inserts one candidate batch of bookings. The
// returned count is the number of records submitted for insertion, which
// may exceed the rows actually persisted when the store's conflict-tolerant
// insert skips rows inside a sub-batch.
func LoadBookings(ctx context.Context, st Store, recs []model.BookingTransaction, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultInsertBatch
	}
	if len(recs) == 0 {
		return 0, nil
	}

	existing, err := st.ExistingBookingOrders(ctx, bookingOrders(recs))
	if err != nil {
		return 0, fmt.Errorf("existing booking orders: %w", err)
	}

	fresh := recs[:0]
	for _, rec := range recs {
		if rec.IRCTCOrderNo != nil {
			if _, ok := existing[*rec.IRCTCOrderNo]; ok {
				continue
			}
		}
		fresh = append(fresh, rec)
	}
	if dropped := len(recs) - len(fresh); dropped > 0 {
		log.Printf("loader: %d bookings already persisted, excluded", dropped)
	}

	submitted := 0
	start := time.Now()
	for i := 0; i < len(fresh); i += batchSize {
		end := i + batchSize
		if end > len(fresh) {
			end = len(fresh)
		}
		if err := st.InsertBookings(ctx, fresh[i:end]); err != nil {
			log.Printf("loader: booking sub-batch %d-%d failed: %v", i, end, err)
			return submitted, fmt.Errorf("insert bookings [%d:%d]: %w", i, end, err)
		}
		submitted += end - i
		log.Printf("loader: bookings %d/%d submitted elapsed=%s",
			submitted, len(fresh), time.Since(start).Truncate(time.Millisecond))
	}
	return submitted, nil
}

// LoadRefunds is the refund counterpart of LoadBookings.
func LoadRefunds(ctx context.Context, st Store, recs []model.RefundTransaction, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultInsertBatch
	}
	if len(recs) == 0 {
		return 0, nil
	}

	existing, err := st.ExistingRefundOrders(ctx, refundOrders(recs))
	if err != nil {
		return 0, fmt.Errorf("existing refund orders: %w", err)
	}

	fresh := recs[:0]
	for _, rec := range recs {
		if rec.IRCTCOrderNo != nil {
			if _, ok := existing[*rec.IRCTCOrderNo]; ok {
				continue
			}
		}
		fresh = append(fresh, rec)
	}
	if dropped := len(recs) - len(fresh); dropped > 0 {
		log.Printf("loader: %d refunds already persisted, excluded", dropped)
	}

	submitted := 0
	start := time.Now()
	for i := 0; i < len(fresh); i += batchSize {
		end := i + batchSize
		if end > len(fresh) {
			end = len(fresh)
		}
		if err := st.InsertRefunds(ctx, fresh[i:end]); err != nil {
			log.Printf("loader: refund sub-batch %d-%d failed: %v", i, end, err)
			return submitted, fmt.Errorf("insert refunds [%d:%d]: %w", i, end, err)
		}
		submitted += end - i
		log.Printf("loader: refunds %d/%d submitted elapsed=%s",
			submitted, len(fresh), time.Since(start).Truncate(time.Millisecond))
	}
	return submitted, nil
}

func bookingOrders(recs []model.BookingTransaction) []int64 {
	out := make([]int64, 0, len(recs))
	for _, r := range recs {
		if r.IRCTCOrderNo != nil {
			out = append(out, *r.IRCTCOrderNo)
		}
	}
	return out
}

func refundOrders(recs []model.RefundTransaction) []int64 {
	out := make([]int64, 0, len(recs))
	for _, r := range recs {
		if r.IRCTCOrderNo != nil {
			out = append(out, *r.IRCTCOrderNo)
		}
	}
	return out
}
