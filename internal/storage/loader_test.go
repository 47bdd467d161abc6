package storage

import (
	"context"
	"errors"
	"testing"

	"reconingest/internal/model"
)

// fakeStore records insert calls and serves a canned set of existing orders.
type fakeStore struct {
	existing map[int64]struct{}

	bookingCalls [][]model.BookingTransaction
	refundCalls  [][]model.RefundTransaction

	// failOnCall makes the n-th insert call (1-based) fail.
	failOnCall int
	calls      int
}

var errInsert = errors.New("insert blew up")

func (f *fakeStore) ExistingBookingOrders(_ context.Context, orderNos []int64) (map[int64]struct{}, error) {
	out := map[int64]struct{}{}
	for _, n := range orderNos {
		if _, ok := f.existing[n]; ok {
			out[n] = struct{}{}
		}
	}
	return out, nil
}

func (f *fakeStore) InsertBookings(_ context.Context, recs []model.BookingTransaction) error {
	f.calls++
	if f.failOnCall != 0 && f.calls == f.failOnCall {
		return errInsert
	}
	f.bookingCalls = append(f.bookingCalls, append([]model.BookingTransaction(nil), recs...))
	return nil
}

func (f *fakeStore) ExistingRefundOrders(ctx context.Context, orderNos []int64) (map[int64]struct{}, error) {
	return f.ExistingBookingOrders(ctx, orderNos)
}

func (f *fakeStore) InsertRefunds(_ context.Context, recs []model.RefundTransaction) error {
	f.calls++
	if f.failOnCall != 0 && f.calls == f.failOnCall {
		return errInsert
	}
	f.refundCalls = append(f.refundCalls, append([]model.RefundTransaction(nil), recs...))
	return nil
}

func bookings(orders ...int64) []model.BookingTransaction {
	out := make([]model.BookingTransaction, len(orders))
	for i := range orders {
		ref := orders[i] + 1000
		out[i] = model.BookingTransaction{IRCTCOrderNo: &orders[i], BankBookingRefNo: &ref}
	}
	return out
}

func TestLoadBookingsExcludesPersisted(t *testing.T) {
	st := &fakeStore{existing: map[int64]struct{}{1001: {}}}
	n, err := LoadBookings(context.Background(), st, bookings(1001, 1002, 1003), 0)
	if err != nil {
		t.Fatalf("LoadBookings: %v", err)
	}
	if n != 2 {
		t.Fatalf("submitted = %d, want 2", n)
	}
	if len(st.bookingCalls) != 1 || len(st.bookingCalls[0]) != 2 {
		t.Fatalf("insert calls = %+v", st.bookingCalls)
	}
	for _, rec := range st.bookingCalls[0] {
		if *rec.IRCTCOrderNo == 1001 {
			t.Fatal("persisted order 1001 reached the insert")
		}
	}
}

func TestLoadBookingsSubBatching(t *testing.T) {
	st := &fakeStore{}
	n, err := LoadBookings(context.Background(), st, bookings(1, 2, 3, 4, 5), 2)
	if err != nil {
		t.Fatalf("LoadBookings: %v", err)
	}
	if n != 5 {
		t.Fatalf("submitted = %d, want 5", n)
	}
	if len(st.bookingCalls) != 3 {
		t.Fatalf("insert calls = %d, want 3", len(st.bookingCalls))
	}
	if len(st.bookingCalls[2]) != 1 {
		t.Fatalf("last sub-batch size = %d", len(st.bookingCalls[2]))
	}
}

func TestLoadBookingsPartialFailure(t *testing.T) {
	// Three sub-batches of 2; the second insert fails. The first stays
	// committed, the third is never attempted.
	st := &fakeStore{failOnCall: 2}
	n, err := LoadBookings(context.Background(), st, bookings(1, 2, 3, 4, 5, 6), 2)
	if !errors.Is(err, errInsert) {
		t.Fatalf("err = %v, want errInsert", err)
	}
	if n != 2 {
		t.Fatalf("submitted before failure = %d, want 2", n)
	}
	if len(st.bookingCalls) != 1 {
		t.Fatalf("committed sub-batches = %d, want 1", len(st.bookingCalls))
	}
	if st.calls != 2 {
		t.Fatalf("insert attempts = %d, want 2 (third batch must not run)", st.calls)
	}
}

func TestLoadBookingsEmpty(t *testing.T) {
	st := &fakeStore{}
	n, err := LoadBookings(context.Background(), st, nil, 0)
	if err != nil || n != 0 {
		t.Fatalf("empty load = (%d, %v)", n, err)
	}
	if st.calls != 0 {
		t.Fatal("insert called for empty batch")
	}
}

func TestLoadRefundsExcludesPersisted(t *testing.T) {
	order1, order2 := int64(7), int64(8)
	ref1, ref2 := int64(70), int64(80)
	recs := []model.RefundTransaction{
		{IRCTCOrderNo: &order1, BankRefundRefNo: &ref1},
		{IRCTCOrderNo: &order2, BankRefundRefNo: &ref2},
	}
	st := &fakeStore{existing: map[int64]struct{}{7: {}}}
	n, err := LoadRefunds(context.Background(), st, recs, 0)
	if err != nil {
		t.Fatalf("LoadRefunds: %v", err)
	}
	if n != 1 || len(st.refundCalls) != 1 || len(st.refundCalls[0]) != 1 {
		t.Fatalf("submitted = %d, calls = %+v", n, st.refundCalls)
	}
	if *st.refundCalls[0][0].IRCTCOrderNo != 8 {
		t.Fatalf("kept order = %d", *st.refundCalls[0][0].IRCTCOrderNo)
	}
}
