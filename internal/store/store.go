// Package store persists batch output into the canonical relational store.
// The merge pass is single-threaded, runs after the batch gather completes,
// and is the only writer: statement data is keyed by the document's content
// identity, so re-processing an unchanged file replaces its prior record
// instead of duplicating it.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/boscorat/bankparse/internal/batch"
	"github.com/boscorat/bankparse/internal/currency"
	"github.com/boscorat/bankparse/internal/statement"
)

// DB is the subset of pgxpool.Pool the store needs; pgxmock satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store writes batch and statement records.
type Store struct {
	db     DB
	logger *slog.Logger
}

func New(db DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// MergeBatch writes the whole batch in one transaction: the batch header, one
// batch line per document, and — for documents that reconciled successfully —
// the statement head, lines, and checks-and-balances, upserted by statement
// identity.
func (s *Store) MergeBatch(ctx context.Context, b *batch.Batch) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning merge: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, `
		INSERT INTO batch_heads (id_batch, source_path, pdf_count, success_count, error_count, duration_secs, process_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, b.Source, b.PDFCount, b.SuccessCount, b.ErrorCount, b.Duration.Seconds(), b.ProcessTime,
	); err != nil {
		return fmt.Errorf("inserting batch head: %w", err)
	}

	for _, out := range b.Outcomes {
		if err := s.mergeOutcome(ctx, tx, b.ID, out); err != nil {
			return fmt.Errorf("merging %s: %w", out.File, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing merge: %w", err)
	}
	s.logger.Info("batch merged", "batch", b.ID, "statements", b.SuccessCount)
	return nil
}

func (s *Store) mergeOutcome(ctx context.Context, tx pgx.Tx, batchID string, out batch.Outcome) error {
	var stmtID, acctKey string
	if out.Statement != nil {
		stmtID = out.Statement.ID
		acctKey = out.Statement.AccountKey
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO batch_lines (id_batchline, id_batch, id_statement, batch_line, filename, account, success, error_cab, error_config, error_message, duration_secs, update_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		uuid.NewString(), batchID, stmtID, out.BatchLine, out.File, acctKey,
		out.Success, out.ErrorCAB, out.ErrorConfig, out.ErrorMessage,
		out.Duration.Seconds(), time.Now(),
	); err != nil {
		return fmt.Errorf("inserting batch line: %w", err)
	}

	// only statements that reconciled are merged as confirmed data
	if !out.Success || out.Statement == nil {
		return nil
	}
	return s.upsertStatement(ctx, tx, batchID, out.Statement)
}

func (s *Store) upsertStatement(ctx context.Context, tx pgx.Tx, batchID string, stmt *statement.Statement) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO statement_heads (id_statement, id_batch, id_account, company, account, statement_type, statement_date, opening_balance, closing_balance, payments_in, payments_out)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id_statement) DO UPDATE SET
			id_batch = EXCLUDED.id_batch,
			id_account = EXCLUDED.id_account,
			company = EXCLUDED.company,
			account = EXCLUDED.account,
			statement_type = EXCLUDED.statement_type,
			statement_date = EXCLUDED.statement_date,
			opening_balance = EXCLUDED.opening_balance,
			closing_balance = EXCLUDED.closing_balance,
			payments_in = EXCLUDED.payments_in,
			payments_out = EXCLUDED.payments_out`,
		stmt.ID, batchID, stmt.AccountID, stmt.Company, stmt.Account, stmt.StatementType,
		nullableDate(stmt.Header.StatementDate),
		stmt.Header.OpeningBalance.StringFixed(currency.Scale),
		stmt.Header.ClosingBalance.StringFixed(currency.Scale),
		stmt.Header.PaymentsIn.StringFixed(currency.Scale),
		stmt.Header.PaymentsOut.StringFixed(currency.Scale),
	); err != nil {
		return fmt.Errorf("upserting statement head: %w", err)
	}

	// replace-on-reprocess: clearing first keeps the lines consistent with
	// whatever this pass extracted
	if _, err := tx.Exec(ctx, `DELETE FROM statement_lines WHERE id_statement = $1`, stmt.ID); err != nil {
		return fmt.Errorf("clearing statement lines: %w", err)
	}
	for _, line := range stmt.Lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO statement_lines (id_statement, transaction_number, page_number, transaction_date, credit_debit, description, payment_in, payment_out, movement, running_balance)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			stmt.ID, line.TransactionNumber, line.PageNumber, nullableDate(line.Date),
			line.CreditDebit, line.Description,
			line.PaymentIn.StringFixed(currency.Scale),
			line.PaymentOut.StringFixed(currency.Scale),
			line.Movement.StringFixed(currency.Scale),
			line.RunningBalance.StringFixed(currency.Scale),
		); err != nil {
			return fmt.Errorf("inserting statement line %d: %w", line.TransactionNumber, err)
		}
	}

	cab := stmt.Checks
	if _, err := tx.Exec(ctx, `
		INSERT INTO checks_and_balances (id_statement, id_batch, has_transactions, header_opening, header_closing, header_payments_in, header_payments_out, line_payments_in, line_payments_out, line_movement, final_running_balance, bal_payments_in, bal_payments_out, bal_movement, bal_closing, zero_transaction)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id_statement) DO UPDATE SET
			id_batch = EXCLUDED.id_batch,
			has_transactions = EXCLUDED.has_transactions,
			header_opening = EXCLUDED.header_opening,
			header_closing = EXCLUDED.header_closing,
			header_payments_in = EXCLUDED.header_payments_in,
			header_payments_out = EXCLUDED.header_payments_out,
			line_payments_in = EXCLUDED.line_payments_in,
			line_payments_out = EXCLUDED.line_payments_out,
			line_movement = EXCLUDED.line_movement,
			final_running_balance = EXCLUDED.final_running_balance,
			bal_payments_in = EXCLUDED.bal_payments_in,
			bal_payments_out = EXCLUDED.bal_payments_out,
			bal_movement = EXCLUDED.bal_movement,
			bal_closing = EXCLUDED.bal_closing,
			zero_transaction = EXCLUDED.zero_transaction`,
		stmt.ID, batchID, cab.HasLines,
		cab.OpeningBalance.StringFixed(currency.Scale),
		cab.ClosingBalance.StringFixed(currency.Scale),
		cab.PaymentsIn.StringFixed(currency.Scale),
		cab.PaymentsOut.StringFixed(currency.Scale),
		cab.LinePaymentsIn.StringFixed(currency.Scale),
		cab.LinePaymentsOut.StringFixed(currency.Scale),
		cab.LineMovement.StringFixed(currency.Scale),
		cab.FinalRunningBalance.StringFixed(currency.Scale),
		cab.BalPaymentsIn, cab.BalPaymentsOut, cab.BalMovement, cab.BalClosing,
		cab.ZeroTransaction,
	); err != nil {
		return fmt.Errorf("upserting checks and balances: %w", err)
	}
	return nil
}

func nullableDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
