package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/yigit/schoolsphere/internal/app/models"
	"github.com/yigit/schoolsphere/internal/app/models/dto"
	"github.com/yigit/schoolsphere/internal/pkg/apperrors"
	"github.com/yigit/schoolsphere/internal/pkg/gateway"
)

// PaymentStore is the payment persistence surface used by PaymentService.
type PaymentStore interface {
	CreateIntent(ctx context.Context, payment *models.Payment) (created bool, existing *models.Payment, err error)
	GetByIntentKey(ctx context.Context, studentID string, amount int64, nonce string) (*models.Payment, error)
	AttachGatewayRef(ctx context.Context, paymentID, gatewayRef string) error
	GetByGatewayRef(ctx context.Context, gatewayRef string) (*models.Payment, error)
	ListByStudent(ctx context.Context, studentID string) ([]*models.Payment, error)
	MarkPaid(ctx context.Context, paymentID string, confirmedAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, paymentID string) error
	SyncLedger(ctx context.Context, paymentID string) (*models.Payment, int64, error)
	MarkNeedsManualSync(ctx context.Context, paymentID string) error
	CancelExpiredIntents(ctx context.Context, cutoff time.Time) (int64, error)
}

// LedgerStudentStore is the student ledger surface used by PaymentService.
type LedgerStudentStore interface {
	GetByID(ctx context.Context, id string) (*models.Student, error)
	UpdateTuitionAmount(ctx context.Context, studentID string, newAmount int64) (*models.Student, error)
}

// ReconcilerConfig bounds the ledger sync retry loop and the pending-intent
// reaper.
type ReconcilerConfig struct {
	MaxSyncAttempts int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	IntentTTL       time.Duration
}

// PaymentService handles tuition payments. The gateway is the system of
// record for captured money; this service keeps the tuition ledger
// reconciled against it and never lets a confirmed payment silently regress
// to pending.
type PaymentService struct {
	payments PaymentStore
	students LedgerStudentStore
	gateway  gateway.Client
	currency string
	config   ReconcilerConfig
	logger   zerolog.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	payments PaymentStore,
	students LedgerStudentStore,
	gatewayClient gateway.Client,
	currency string,
	config ReconcilerConfig,
	logger zerolog.Logger,
) *PaymentService {
	if config.MaxSyncAttempts < 1 {
		config.MaxSyncAttempts = 1
	}
	return &PaymentService{
		payments: payments,
		students: students,
		gateway:  gatewayClient,
		currency: currency,
		config:   config,
		logger:   logger,
	}
}

// CreatePaymentIntent opens a payment toward a student's outstanding balance.
// The amount is rejected up front when it exceeds the balance. Intent
// creation is idempotent on (studentId, amount, nonce): a resubmission
// returns the original record instead of opening a second intent.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, studentID string, amount int64, nonce string) (*dto.CreateIntentResponse, error) {
	if amount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}

	// A replayed triple returns the original record before any balance
	// check; the balance may legitimately have shrunk since the first
	// submission settled.
	record, err := s.payments.GetByIntentKey(ctx, studentID, amount, nonce)
	if err != nil && !errors.Is(err, apperrors.ErrPaymentNotFound) {
		return nil, err
	}

	if record == nil {
		student, err := s.students.GetByID(ctx, studentID)
		if err != nil {
			return nil, err
		}
		if amount > student.Balance() {
			return nil, apperrors.ErrExceedsBalance
		}

		payment := &models.Payment{
			StudentID: studentID,
			Amount:    amount,
			Currency:  s.currency,
			Nonce:     nonce,
		}

		_, record, err = s.payments.CreateIntent(ctx, payment)
		if err != nil {
			return nil, err
		}
	}

	if record.GatewayRef != "" {
		s.logger.Info().Str("paymentId", record.ID).Msg("Replayed existing payment intent")
		return &dto.CreateIntentResponse{
			PaymentID:  record.ID,
			GatewayRef: record.GatewayRef,
		}, nil
	}

	// Fresh record, or a replay whose first attempt died before reaching the
	// gateway. The payment id doubles as the provider idempotency key, so a
	// repeated call lands on the same provider-side intent.
	intent, err := s.gateway.CreateIntent(ctx, amount, s.currency, record.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrGatewayRejected) {
			if markErr := s.payments.MarkFailed(ctx, record.ID); markErr != nil {
				s.logger.Error().Err(markErr).Str("paymentId", record.ID).Msg("Failed to mark rejected intent")
			}
		}
		return nil, err
	}

	if err := s.payments.AttachGatewayRef(ctx, record.ID, intent.Reference); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("paymentId", record.ID).
		Str("studentId", studentID).
		Int64("amount", amount).
		Msg("Payment intent created")

	return &dto.CreateIntentResponse{
		PaymentID:   record.ID,
		GatewayRef:  intent.Reference,
		CheckoutURL: intent.CheckoutURL,
	}, nil
}

// ConfirmPayment settles a payment after checkout. The gateway is consulted
// for the authoritative outcome; a rejection is surfaced verbatim and never
// retried. On success the record is marked paid first, then the tuition
// ledger is synced with bounded retries. Exhausted retries leave the payment
// paid and flagged for manual reconciliation.
//
// Confirmation is at-least-once safe: re-confirming an already settled
// payment returns its recorded outcome without moving the ledger again.
func (s *PaymentService) ConfirmPayment(ctx context.Context, gatewayRef string) (*dto.ConfirmPaymentResponse, error) {
	payment, err := s.payments.GetByGatewayRef(ctx, gatewayRef)
	if err != nil {
		return nil, err
	}

	if payment.Status == models.PaymentPaid {
		return s.syncAndRespond(ctx, payment.ID)
	}
	if payment.Status == models.PaymentFailed {
		return nil, apperrors.NewCustomError(apperrors.ErrGatewayRejected, "payment was rejected by the gateway")
	}

	intent, err := s.gateway.RetrieveIntent(ctx, gatewayRef)
	if err != nil {
		return nil, err
	}

	switch intent.Status {
	case gateway.IntentSucceeded:
		// fall through to settlement
	case gateway.IntentFailed:
		if markErr := s.payments.MarkFailed(ctx, payment.ID); markErr != nil {
			s.logger.Error().Err(markErr).Str("paymentId", payment.ID).Msg("Failed to mark payment failed")
		}
		return nil, apperrors.NewCustomError(apperrors.ErrGatewayRejected, "payment was rejected by the gateway")
	default:
		return nil, apperrors.NewCustomError(apperrors.ErrGatewayRejected, "payment has not been completed at the gateway")
	}

	if _, err := s.payments.MarkPaid(ctx, payment.ID, time.Now()); err != nil {
		return nil, err
	}

	return s.syncAndRespond(ctx, payment.ID)
}

// syncAndRespond pushes a paid payment into the tuition ledger with bounded
// exponential backoff. Sync is idempotent, so a replayed confirmation takes
// the same path and reads back the recorded outcome.
func (s *PaymentService) syncAndRespond(ctx context.Context, paymentID string) (*dto.ConfirmPaymentResponse, error) {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(s.config.InitialBackoff),
		backoff.WithMaxInterval(s.config.MaxBackoff),
	), uint64(s.config.MaxSyncAttempts-1)), ctx)

	type syncOutcome struct {
		payment    *models.Payment
		newBalance int64
	}

	outcome, err := backoff.RetryWithData(func() (syncOutcome, error) {
		payment, newBalance, err := s.payments.SyncLedger(ctx, paymentID)
		if err != nil {
			return syncOutcome{}, err
		}
		return syncOutcome{payment: payment, newBalance: newBalance}, nil
	}, policy)

	if err != nil {
		s.logger.Error().Err(err).
			Str("paymentId", paymentID).
			Int("attempts", s.config.MaxSyncAttempts).
			Msg("Ledger sync exhausted retries, flagging for manual reconciliation")

		if markErr := s.payments.MarkNeedsManualSync(ctx, paymentID); markErr != nil {
			s.logger.Error().Err(markErr).Str("paymentId", paymentID).Msg("Failed to flag payment for manual sync")
		}

		return nil, apperrors.NewCustomError(apperrors.ErrSyncFailed,
			"payment is confirmed but the tuition ledger could not be updated")
	}

	if outcome.payment.ExcessAmt > 0 {
		s.logger.Warn().
			Str("paymentId", outcome.payment.ID).
			Int64("excess", outcome.payment.ExcessAmt).
			Msg("Payment exceeded remaining balance, excess recorded for manual reconciliation")
	}

	return &dto.ConfirmPaymentResponse{
		PaymentID:  outcome.payment.ID,
		NewBalance: outcome.newBalance,
		SyncStatus: string(outcome.payment.SyncStatus),
	}, nil
}

// ListPayments retrieves a student's payment history, newest first
func (s *PaymentService) ListPayments(ctx context.Context, studentID string) ([]*models.Payment, error) {
	if _, err := s.students.GetByID(ctx, studentID); err != nil {
		return nil, err
	}
	return s.payments.ListByStudent(ctx, studentID)
}

// GetTuitionSummary reports a student's ledger state
func (s *PaymentService) GetTuitionSummary(ctx context.Context, studentID string) (*dto.TuitionSummary, error) {
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return &dto.TuitionSummary{
		TuitionAmount: student.TuitionAmount,
		TuitionPaid:   student.TuitionPaid,
		Balance:       student.Balance(),
	}, nil
}

// IncreaseTuition applies an administrative tuition override. The amount can
// only grow and never drops below what has already been paid; the
// outstanding balance is recomputed and no payment record is created.
func (s *PaymentService) IncreaseTuition(ctx context.Context, studentID string, newAmount int64) (*models.Student, error) {
	if newAmount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}

	student, err := s.students.UpdateTuitionAmount(ctx, studentID, newAmount)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("studentId", studentID).
		Int64("tuitionAmount", newAmount).
		Msg("Tuition amount overridden")

	return student, nil
}

// ReapExpiredIntents cancels pending intents older than the configured TTL
func (s *PaymentService) ReapExpiredIntents(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.config.IntentTTL)
	reaped, err := s.payments.CancelExpiredIntents(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if reaped > 0 {
		s.logger.Info().Int64("count", reaped).Msg("Cancelled expired payment intents")
	}
	return reaped, nil
}

// RunIntentReaper periodically cancels expired pending intents until the
// context is done. Intended to run on its own goroutine.
func (s *PaymentService) RunIntentReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.ReapExpiredIntents(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Intent reaper pass failed")
			}
		}
	}
}
