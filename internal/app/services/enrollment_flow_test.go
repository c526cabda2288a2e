package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/schoolsphere/internal/app/models"
	"github.com/yigit/schoolsphere/internal/app/models/dto"
	"github.com/yigit/schoolsphere/internal/pkg/apperrors"
	"github.com/yigit/schoolsphere/internal/pkg/auth"
	"github.com/yigit/schoolsphere/internal/pkg/gateway"
)

// Walks the full enrollment story against the in-memory stores: a parent
// submits an application, an admin approves it, the parent account gets
// linked through the guardian email, tuition is set, and a payment is taken
// through intent, checkout and confirmation.
func TestEnrollmentToPaymentFlow(t *testing.T) {
	ctx := context.Background()

	store := newMemStore()
	apps := newMemApplications(store)
	gw := newFakeGateway()
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "test-secret-key-for-flow",
		AccessTokenExp:  time.Hour,
		StudentScopeExp: 15 * time.Minute,
		TokenIssuer:     "schoolsphere-test",
	})

	promotions := NewPromotionService(apps, store, zerolog.Nop())
	resolutions := NewResolutionService(store, apps, store, jwtService, zerolog.Nop())
	payments := NewPaymentService(store, store, gw, "EUR", testReconcilerConfig(), zerolog.Nop())

	// Intake and approval.
	guardianEmail := "claire.martin@example.com"
	app, err := promotions.SubmitApplication(ctx, &dto.SubmitApplicationRequest{
		FirstName:     "Lea",
		LastName:      "Martin",
		DateOfBirth:   "2014-09-03",
		GuardianEmail: &guardianEmail,
		Program:       "primary-2026",
	})
	require.NoError(t, err)

	promoted, err := promotions.ApproveApplication(ctx, app.ID, "admin-1")
	require.NoError(t, err)

	// The parent registers afterwards and is linked by guardian email.
	session := Session{AccountID: "acct-claire", Email: guardianEmail, Role: models.RoleParent}
	linked, err := resolutions.ResolveByEmail(ctx, session)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, promoted.StudentID, linked[0].ID)

	// The access code still resolves for the same account.
	resolved, err := resolutions.ResolveByCode(ctx, promoted.AccessCode, &session)
	require.NoError(t, err)
	assert.Equal(t, promoted.StudentID, resolved.StudentID)

	// Admin sets tuition to 1000.00.
	_, err = payments.IncreaseTuition(ctx, promoted.StudentID, 100000)
	require.NoError(t, err)

	// An attempt over the balance is rejected before any intent is opened.
	_, err = payments.CreatePaymentIntent(ctx, promoted.StudentID, 120000, "lea-1")
	assert.ErrorIs(t, err, apperrors.ErrExceedsBalance)
	assert.Equal(t, 0, gw.createCount())

	// A 600.00 payment goes through checkout and confirmation.
	intent, err := payments.CreatePaymentIntent(ctx, promoted.StudentID, 60000, "lea-2")
	require.NoError(t, err)
	gw.setStatus(intent.GatewayRef, gateway.IntentSucceeded)

	confirmed, err := payments.ConfirmPayment(ctx, intent.GatewayRef)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), confirmed.NewBalance)

	// Resubmitting the intent after confirmation replays the settled record.
	replay, err := payments.CreatePaymentIntent(ctx, promoted.StudentID, 60000, "lea-2")
	require.NoError(t, err)
	assert.Equal(t, intent.PaymentID, replay.PaymentID)

	history, err := payments.ListPayments(ctx, promoted.StudentID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.PaymentPaid, history[0].Status)

	summary, err := payments.GetTuitionSummary(ctx, promoted.StudentID)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), summary.TuitionAmount)
	assert.Equal(t, int64(60000), summary.TuitionPaid)
	assert.Equal(t, int64(40000), summary.Balance)
}
