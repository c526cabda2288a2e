package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yigit/schoolsphere/internal/app/models"
	"github.com/yigit/schoolsphere/internal/db"
	"github.com/yigit/schoolsphere/internal/pkg/apperrors"
)

// PaymentRepository handles database operations for payment records and the
// tuition ledger columns on students.
type PaymentRepository struct {
	db *pgxpool.Pool
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{
		db: db,
	}
}

const paymentColumns = `
	id, student_id, amount, currency, status, sync_status, gateway_ref, nonce,
	applied_amount, excess_amount, created_at, confirmed_at`

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	var gatewayRef *string
	err := row.Scan(
		&p.ID, &p.StudentID, &p.Amount, &p.Currency, &p.Status, &p.SyncStatus, &gatewayRef, &p.Nonce,
		&p.AppliedAmt, &p.ExcessAmt, &p.CreatedAt, &p.ConfirmedAt,
	)
	if err != nil {
		return nil, err
	}
	if gatewayRef != nil {
		p.GatewayRef = *gatewayRef
	}
	return &p, nil
}

// CreateIntent inserts a pending payment record. The insert is idempotent on
// (student_id, amount, nonce): a duplicate submission returns the record
// created by the first one with created=false.
func (r *PaymentRepository) CreateIntent(ctx context.Context, payment *models.Payment) (created bool, existing *models.Payment, err error) {
	insert := `
		INSERT INTO payments (student_id, amount, currency, nonce)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT ON CONSTRAINT payments_intent_key DO NOTHING
		RETURNING id, status, sync_status, applied_amount, excess_amount, created_at
	`

	err = r.db.QueryRow(ctx, insert, payment.StudentID, payment.Amount, payment.Currency, payment.Nonce).
		Scan(&payment.ID, &payment.Status, &payment.SyncStatus, &payment.AppliedAmt, &payment.ExcessAmt, &payment.CreatedAt)

	if err == nil {
		return true, payment, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, nil, fmt.Errorf("error creating payment intent: %w", err)
	}

	// Conflict path: fetch the record the first submission created.
	existing, err = r.GetByIntentKey(ctx, payment.StudentID, payment.Amount, payment.Nonce)
	if err != nil {
		return false, nil, fmt.Errorf("error retrieving existing payment intent: %w", err)
	}

	return false, existing, nil
}

// GetByIntentKey retrieves the payment created for an idempotency triple
func (r *PaymentRepository) GetByIntentKey(ctx context.Context, studentID string, amount int64, nonce string) (*models.Payment, error) {
	query := `SELECT` + paymentColumns + `
		FROM payments
		WHERE student_id = $1 AND amount = $2 AND nonce = $3`

	p, err := scanPayment(r.db.QueryRow(ctx, query, studentID, amount, nonce))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("error retrieving payment by intent key: %w", err)
	}

	return p, nil
}

// AttachGatewayRef stores the gateway reference on a freshly created intent
func (r *PaymentRepository) AttachGatewayRef(ctx context.Context, paymentID, gatewayRef string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE payments SET gateway_ref = $2 WHERE id = $1 AND gateway_ref IS NULL`,
		paymentID, gatewayRef)
	if err != nil {
		return fmt.Errorf("error attaching gateway reference: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		// Already attached by an earlier attempt; not an error.
		return nil
	}
	return nil
}

// GetByID retrieves a payment by id
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	query := `SELECT` + paymentColumns + ` FROM payments WHERE id = $1`

	p, err := scanPayment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("error retrieving payment: %w", err)
	}

	return p, nil
}

// GetByGatewayRef retrieves a payment by its gateway reference
func (r *PaymentRepository) GetByGatewayRef(ctx context.Context, gatewayRef string) (*models.Payment, error) {
	query := `SELECT` + paymentColumns + ` FROM payments WHERE gateway_ref = $1`

	p, err := scanPayment(r.db.QueryRow(ctx, query, gatewayRef))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("error retrieving payment by gateway reference: %w", err)
	}

	return p, nil
}

// ListByStudent retrieves all payments for a student, newest first
func (r *PaymentRepository) ListByStudent(ctx context.Context, studentID string) ([]*models.Payment, error) {
	query := `SELECT` + paymentColumns + ` FROM payments WHERE student_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("error listing payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

// MarkPaid transitions a pending payment to paid. Returns false when the
// record was already paid or failed, which makes confirmation at-least-once
// safe: the second delivery of the same gateway event is a no-op. Cancelled
// records are revived here because the reaper may expire an intent the
// gateway went on to capture anyway.
func (r *PaymentRepository) MarkPaid(ctx context.Context, paymentID string, confirmedAt time.Time) (bool, error) {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE payments SET status = 'paid', confirmed_at = $2
		 WHERE id = $1 AND status IN ('pending', 'cancelled')`,
		paymentID, confirmedAt)
	if err != nil {
		return false, fmt.Errorf("error marking payment paid: %w", err)
	}
	return cmdTag.RowsAffected() > 0, nil
}

// MarkFailed transitions a pending payment to failed
func (r *PaymentRepository) MarkFailed(ctx context.Context, paymentID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE payments SET status = 'failed' WHERE id = $1 AND status = 'pending'`, paymentID)
	if err != nil {
		return fmt.Errorf("error marking payment failed: %w", err)
	}
	return nil
}

// SyncLedger credits a confirmed payment to the student's tuition ledger and
// returns the payment with the student's new balance. The student row is
// locked for the duration of the transaction, which serializes all ledger
// mutations per student. The credit is clamped to the remaining balance;
// anything captured beyond it is recorded as excess on the payment for manual
// reconciliation instead of being dropped or pushing tuition_paid past
// tuition_amount. Idempotent: an already-synced payment returns its stored
// outcome.
func (r *PaymentRepository) SyncLedger(ctx context.Context, paymentID string) (*models.Payment, int64, error) {
	var synced *models.Payment
	var newBalance int64

	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		query := `SELECT` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`
		payment, err := scanPayment(tx.QueryRow(ctx, query, paymentID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrPaymentNotFound
			}
			return fmt.Errorf("error locking payment: %w", err)
		}

		if payment.Status != models.PaymentPaid {
			return apperrors.NewConflictError("payment is not confirmed")
		}

		var tuitionAmount, tuitionPaid int64
		err = tx.QueryRow(ctx,
			`SELECT tuition_amount, tuition_paid FROM students WHERE id = $1 FOR UPDATE`,
			payment.StudentID,
		).Scan(&tuitionAmount, &tuitionPaid)
		if err != nil {
			return fmt.Errorf("error locking student ledger: %w", err)
		}

		if payment.SyncStatus == models.SyncDone {
			synced = payment
			newBalance = tuitionAmount - tuitionPaid
			return nil
		}

		remaining := tuitionAmount - tuitionPaid
		applied := payment.Amount
		if applied > remaining {
			applied = remaining
		}
		if applied < 0 {
			applied = 0
		}
		excess := payment.Amount - applied

		if applied > 0 {
			_, err = tx.Exec(ctx,
				`UPDATE students SET tuition_paid = tuition_paid + $2, updated_at = NOW() WHERE id = $1`,
				payment.StudentID, applied)
			if err != nil {
				return fmt.Errorf("error incrementing tuition paid: %w", err)
			}
		}

		_, err = tx.Exec(ctx,
			`UPDATE payments SET sync_status = 'synced', applied_amount = $2, excess_amount = $3 WHERE id = $1`,
			payment.ID, applied, excess)
		if err != nil {
			return fmt.Errorf("error recording ledger sync: %w", err)
		}

		payment.SyncStatus = models.SyncDone
		payment.AppliedAmt = applied
		payment.ExcessAmt = excess
		synced = payment
		newBalance = tuitionAmount - tuitionPaid - applied
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return synced, newBalance, nil
}

// MarkNeedsManualSync flags a confirmed payment whose ledger sync retries
// were exhausted. The payment stays paid; it must never report pending while
// money has already moved.
func (r *PaymentRepository) MarkNeedsManualSync(ctx context.Context, paymentID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE payments SET sync_status = 'needs_manual_sync' WHERE id = $1 AND sync_status <> 'synced'`,
		paymentID)
	if err != nil {
		return fmt.Errorf("error flagging payment for manual sync: %w", err)
	}
	return nil
}

// CancelExpiredIntents cancels pending payment records older than the cutoff
// so an abandoned checkout does not hold a student's balance indefinitely.
func (r *PaymentRepository) CancelExpiredIntents(ctx context.Context, cutoff time.Time) (int64, error) {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE payments SET status = 'cancelled' WHERE status = 'pending' AND created_at < $1`,
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("error reaping expired intents: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}
