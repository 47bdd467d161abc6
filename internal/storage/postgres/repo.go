// Package postgres implements the Store contract on pgx v5. Each Insert*
// call runs one transaction for its sub-batch; uniqueness conflicts are
// absorbed by ON CONFLICT DO NOTHING so a duplicate row never aborts the
// batch. Existence checks use a single = ANY($1) round trip.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"reconingest/internal/model"
)

// Config holds Postgres repository configuration.
type Config struct {
	// DSN is the connection string for pgxpool, e.g. "postgresql://...".
	DSN string
}

// Repository is the Postgres-backed Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository and returns a close function for
// cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	return &Repository{pool: pool}, func() { pool.Close() }, nil
}

// Bootstrap creates the transaction tables and their indexes when absent.
// Uniqueness lives on the columns the dedup pipeline treats as natural keys;
// the conflict-tolerant inserts depend on these constraints.
func (r *Repository) Bootstrap(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS booking_transactions (
			id bigint GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			bank_code integer NOT NULL,
			transaction_date date,
			credited_date date,
			irctc_order_no bigint UNIQUE,
			bank_booking_ref_no bigint UNIQUE,
			booking_amount numeric(10,2)
		)`,
		`CREATE INDEX IF NOT EXISTS booking_transactions_bank_code_idx
			ON booking_transactions (bank_code)`,
		`CREATE INDEX IF NOT EXISTS booking_transactions_order_ref_idx
			ON booking_transactions (irctc_order_no, bank_booking_ref_no)`,
		`CREATE TABLE IF NOT EXISTS refund_transactions (
			id bigint GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			bank_code integer NOT NULL,
			refund_date date,
			bank_booking_ref_no bigint,
			bank_refund_ref_no bigint UNIQUE,
			refund_amount numeric(10,2),
			debited_date date,
			irctc_order_no bigint
		)`,
		`CREATE INDEX IF NOT EXISTS refund_transactions_bank_code_idx
			ON refund_transactions (bank_code)`,
		`CREATE INDEX IF NOT EXISTS refund_transactions_order_ref_idx
			ON refund_transactions (irctc_order_no, bank_booking_ref_no, bank_refund_ref_no)`,
	}
	for _, s := range stmts {
		if _, err := r.pool.Exec(ctx, s); err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
	}
	return nil
}

// ExistingBookingOrders returns the subset of orderNos already present in
// booking_transactions.
func (r *Repository) ExistingBookingOrders(ctx context.Context, orderNos []int64) (map[int64]struct{}, error) {
	return r.existingOrders(ctx, "booking_transactions", orderNos)
}

// ExistingRefundOrders returns the subset of orderNos already present in
// refund_transactions.
func (r *Repository) ExistingRefundOrders(ctx context.Context, orderNos []int64) (map[int64]struct{}, error) {
	return r.existingOrders(ctx, "refund_transactions", orderNos)
}

func (r *Repository) existingOrders(ctx context.Context, table string, orderNos []int64) (map[int64]struct{}, error) {
	out := make(map[int64]struct{}, len(orderNos))
	if len(orderNos) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT irctc_order_no FROM %s WHERE irctc_order_no = ANY($1)`, table),
		orderNos,
	)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var n int64
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out[n] = struct{}{}
	}
	return out, rows.Err()
}

const insertBookingSQL = `INSERT INTO booking_transactions
	(bank_code, transaction_date, credited_date, irctc_order_no, bank_booking_ref_no, booking_amount)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT DO NOTHING`

const insertRefundSQL = `INSERT INTO refund_transactions
	(bank_code, refund_date, bank_booking_ref_no, bank_refund_ref_no, refund_amount, debited_date, irctc_order_no)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT DO NOTHING`

// InsertBookings writes one sub-batch inside a single transaction.
func (r *Repository) InsertBookings(ctx context.Context, recs []model.BookingTransaction) error {
	if len(recs) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, rec := range recs {
		b.Queue(insertBookingSQL,
			rec.BankCode,
			rec.TransactionDate,
			rec.CreditedDate,
			rec.IRCTCOrderNo,
			rec.BankBookingRefNo,
			rec.BookingAmount.StringFixed(2),
		)
	}
	return r.sendBatch(ctx, b)
}

// InsertRefunds writes one sub-batch inside a single transaction.
func (r *Repository) InsertRefunds(ctx context.Context, recs []model.RefundTransaction) error {
	if len(recs) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, rec := range recs {
		b.Queue(insertRefundSQL,
			rec.BankCode,
			rec.RefundDate,
			rec.BankBookingRefNo,
			rec.BankRefundRefNo,
			rec.RefundAmount.StringFixed(2),
			rec.DebitedDate,
			rec.IRCTCOrderNo,
		)
	}
	return r.sendBatch(ctx, b)
}

func (r *Repository) sendBatch(ctx context.Context, b *pgx.Batch) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	br := tx.SendBatch(ctx, b)
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}
	return tx.Commit(ctx)
}
