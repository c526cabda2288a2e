package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/schoolsphere/internal/app/models"
	"github.com/yigit/schoolsphere/internal/app/models/dto"
	"github.com/yigit/schoolsphere/internal/pkg/accesscode"
	"github.com/yigit/schoolsphere/internal/pkg/apperrors"
)

func newPromotionFixture(t *testing.T) (*PromotionService, *memApplications, *memStore) {
	t.Helper()
	store := newMemStore()
	apps := newMemApplications(store)
	svc := NewPromotionService(apps, store, zerolog.Nop())
	return svc, apps, store
}

func submitApplication(t *testing.T, svc *PromotionService, guardianEmail string) *models.Application {
	t.Helper()
	req := &dto.SubmitApplicationRequest{
		FirstName:   "Lea",
		LastName:    "Martin",
		DateOfBirth: "2014-09-03",
		Program:     "primary-2026",
	}
	if guardianEmail != "" {
		req.GuardianEmail = &guardianEmail
	}
	app, err := svc.SubmitApplication(context.Background(), req)
	require.NoError(t, err)
	return app
}

func TestSubmitApplication(t *testing.T) {
	svc, _, _ := newPromotionFixture(t)

	app := submitApplication(t, svc, "parent@example.com")

	assert.NotEmpty(t, app.ID)
	assert.Equal(t, models.ApplicationPending, app.Status)
	assert.False(t, app.SubmittedAt.IsZero())
}

func TestSubmitApplicationInvalidDateOfBirth(t *testing.T) {
	svc, _, _ := newPromotionFixture(t)

	_, err := svc.SubmitApplication(context.Background(), &dto.SubmitApplicationRequest{
		FirstName:   "Lea",
		LastName:    "Martin",
		DateOfBirth: "03/09/2014",
		Program:     "primary-2026",
	})

	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestApproveApplication(t *testing.T) {
	svc, apps, store := newPromotionFixture(t)
	app := submitApplication(t, svc, "parent@example.com")

	result, err := svc.ApproveApplication(context.Background(), app.ID, "admin-1")
	require.NoError(t, err)

	assert.NotEmpty(t, result.StudentID)
	assert.Equal(t, accesscode.FromApplicationID(app.ID), result.AccessCode)

	approved, err := apps.GetByID(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationApproved, approved.Status)
	require.NotNil(t, approved.CreatedStudentID)
	assert.Equal(t, result.StudentID, *approved.CreatedStudentID)

	student, err := store.GetByID(context.Background(), result.StudentID)
	require.NoError(t, err)
	assert.Equal(t, app.ID, student.ApplicationID)
	assert.Equal(t, "Lea", student.FirstName)
	require.NotNil(t, student.GuardianEmail)
	assert.Equal(t, "parent@example.com", *student.GuardianEmail)
	assert.Nil(t, student.UserID)
}

func TestApproveApplicationTwice(t *testing.T) {
	svc, _, _ := newPromotionFixture(t)
	app := submitApplication(t, svc, "")

	_, err := svc.ApproveApplication(context.Background(), app.ID, "admin-1")
	require.NoError(t, err)

	_, err = svc.ApproveApplication(context.Background(), app.ID, "admin-2")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyDecided)
}

func TestApproveApplicationConcurrent(t *testing.T) {
	svc, _, store := newPromotionFixture(t)
	app := submitApplication(t, svc, "")

	const approvers = 8
	var wg sync.WaitGroup
	results := make([]error, approvers)

	for i := 0; i < approvers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.ApproveApplication(context.Background(), app.ID, "admin-1")
		}(i)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, apperrors.ErrAlreadyDecided):
			losses++
		default:
			t.Fatalf("unexpected approval error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, approvers-1, losses)

	// Exactly one student record regardless of how the race resolved.
	store.mu.Lock()
	assert.Len(t, store.students, 1)
	store.mu.Unlock()
}

func TestApproveApplicationAdoptsOrphanedStudent(t *testing.T) {
	svc, apps, store := newPromotionFixture(t)
	app := submitApplication(t, svc, "")

	// First attempt creates the student but dies before the application is
	// updated.
	apps.failAfterStudent = true
	_, err := svc.ApproveApplication(context.Background(), app.ID, "admin-1")
	require.Error(t, err)

	orphan, err := store.GetByApplicationID(context.Background(), app.ID)
	require.NoError(t, err)

	pending, err := apps.GetByID(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationPending, pending.Status)

	// The retry must adopt the existing student, not create a second one.
	result, err := svc.ApproveApplication(context.Background(), app.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, orphan.ID, result.StudentID)

	store.mu.Lock()
	assert.Len(t, store.students, 1)
	store.mu.Unlock()
}

func TestRejectApplication(t *testing.T) {
	svc, apps, _ := newPromotionFixture(t)
	app := submitApplication(t, svc, "")

	reason := "incomplete documents"
	err := svc.RejectApplication(context.Background(), app.ID, "admin-1", &reason)
	require.NoError(t, err)

	rejected, err := apps.GetByID(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationRejected, rejected.Status)
	require.NotNil(t, rejected.Notes)
	assert.Equal(t, reason, *rejected.Notes)

	// A rejected application cannot be approved afterwards.
	_, err = svc.ApproveApplication(context.Background(), app.ID, "admin-2")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyDecided)
}

func TestApproveApplicationNotFound(t *testing.T) {
	svc, _, _ := newPromotionFixture(t)

	_, err := svc.ApproveApplication(context.Background(), "ffffffff-0000-0000-0000-000000000000", "admin-1")
	assert.ErrorIs(t, err, apperrors.ErrApplicationNotFound)
}
