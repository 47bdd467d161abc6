// Package storage contains the store contract consumed by the bulk loader
// and the loader itself. Backends implement Store with their native
// conflict-tolerant insert primitive (ON CONFLICT DO NOTHING on Postgres,
// INSERT OR IGNORE on SQLite).
package storage

import (
	"context"

	"reconingest/internal/model"
)

// Store is the storage collaborator. Existing* return the subset of the
// given order numbers already present in the corresponding table. Insert*
// must write all records inside a single transaction and silently skip rows
// that violate a uniqueness constraint rather than aborting the batch.
type Store interface {
	ExistingBookingOrders(ctx context.Context, orderNos []int64) (map[int64]struct{}, error)
	InsertBookings(ctx context.Context, recs []model.BookingTransaction) error

	ExistingRefundOrders(ctx context.Context, orderNos []int64) (map[int64]struct{}, error)
	InsertRefunds(ctx context.Context, recs []model.RefundTransaction) error
}
