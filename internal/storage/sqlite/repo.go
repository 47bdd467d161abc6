// Package sqlite implements the Store contract on database/sql with the
// modernc driver. SQLite has no COPY-style bulk API; each Insert* call uses
// one transaction and a prepared INSERT OR IGNORE, which keeps sub-batch
// semantics identical to the Postgres backend. It also backs the end-to-end
// pipeline tests, since it needs no external server.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"reconingest/internal/model"
)

// Config holds SQLite repository configuration.
type Config struct {
	// DSN is passed to database/sql, e.g. "file:recon.db" or a plain path.
	DSN string
}

// Repository is the SQLite-backed Store.
type Repository struct {
	db *sql.DB
}

// NewRepository opens the database and returns a close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Repository{db: db}, func() { db.Close() }, nil
}

// Bootstrap creates the transaction tables and indexes when absent.
func (r *Repository) Bootstrap(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS booking_transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			bank_code INTEGER NOT NULL,
			transaction_date TEXT,
			credited_date TEXT,
			irctc_order_no INTEGER UNIQUE,
			bank_booking_ref_no INTEGER UNIQUE,
			booking_amount TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS booking_transactions_bank_code_idx
			ON booking_transactions (bank_code)`,
		`CREATE TABLE IF NOT EXISTS refund_transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			bank_code INTEGER NOT NULL,
			refund_date TEXT,
			bank_booking_ref_no INTEGER,
			bank_refund_ref_no INTEGER UNIQUE,
			refund_amount TEXT,
			debited_date TEXT,
			irctc_order_no INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS refund_transactions_bank_code_idx
			ON refund_transactions (bank_code)`,
	}
	for _, s := range stmts {
		if _, err := r.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("sqlite: bootstrap: %w", err)
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

	placeholders := make([]string, len(orderNos))
	args := make([]any, len(orderNos))
	for i, n := range orderNos {
		placeholders[i] = "?"
		args[i] = n
	}
	query := fmt.Sprintf(
		`SELECT irctc_order_no FROM %s WHERE irctc_order_no IN (%s)`,
		table, strings.Join(placeholders, ", "),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var n int64
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("sqlite: scan %s: %w", table, err)
		}
		out[n] = struct{}{}
	}
	return out, rows.Err()
}

const insertBookingSQL = `INSERT OR IGNORE INTO booking_transactions
	(bank_code, transaction_date, credited_date, irctc_order_no, bank_booking_ref_no, booking_amount)
	VALUES (?, ?, ?, ?, ?, ?)`

const insertRefundSQL = `INSERT OR IGNORE INTO refund_transactions
	(bank_code, refund_date, bank_booking_ref_no, bank_refund_ref_no, refund_amount, debited_date, irctc_order_no)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

// InsertBookings writes one sub-batch inside a single transaction.
func (r *Repository) InsertBookings(ctx context.Context, recs []model.BookingTransaction) error {
	if len(recs) == 0 {
		return nil
	}
	return r.insertBatch(ctx, insertBookingSQL, len(recs), func(i int) []any {
		rec := recs[i]
		return []any{
			rec.BankCode,
			dateText(rec.TransactionDate),
			dateText(rec.CreditedDate),
			rec.IRCTCOrderNo,
			rec.BankBookingRefNo,
			rec.BookingAmount.StringFixed(2),
		}
	})
}

// InsertRefunds writes one sub-batch inside a single transaction.
func (r *Repository) InsertRefunds(ctx context.Context, recs []model.RefundTransaction) error {
	if len(recs) == 0 {
		return nil
	}
	return r.insertBatch(ctx, insertRefundSQL, len(recs), func(i int) []any {
		rec := recs[i]
		return []any{
			rec.BankCode,
			dateText(rec.RefundDate),
			rec.BankBookingRefNo,
			rec.BankRefundRefNo,
			rec.RefundAmount.StringFixed(2),
			dateText(rec.DebitedDate),
			rec.IRCTCOrderNo,
		}
	})
}

func (r *Repository) insertBatch(ctx context.Context, stmtSQL string, n int, args func(int) []any) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite: insert row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// dateText renders an optional date as ISO text or NULL; SQLite has no date
// type and mixed formats would break comparisons.
func dateText(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}
