package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yigit/schoolsphere/internal/app/models"
	"github.com/yigit/schoolsphere/internal/app/models/dto"
	"github.com/yigit/schoolsphere/internal/pkg/accesscode"
	"github.com/yigit/schoolsphere/internal/pkg/apperrors"
)

// ApplicationStore is the application persistence surface used by
// PromotionService.
type ApplicationStore interface {
	Create(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, id string) (*models.Application, error)
	ListByStatus(ctx context.Context, status models.ApplicationStatus) ([]*models.Application, error)
	Promote(ctx context.Context, applicationID, reviewerID string, student *models.Student, reviewedAt time.Time) error
	CompletePromotion(ctx context.Context, applicationID, reviewerID, studentID string, reviewedAt time.Time) error
	Reject(ctx context.Context, applicationID, reviewerID string, reason *string, reviewedAt time.Time) error
}

// PromotionStudentStore is the student lookup surface used by
// PromotionService to detect partially completed approvals.
type PromotionStudentStore interface {
	GetByApplicationID(ctx context.Context, applicationID string) (*models.Student, error)
}

// PromotionService handles application intake and the approval workflow that
// promotes an application into a student record.
type PromotionService struct {
	applications ApplicationStore
	students     PromotionStudentStore
	logger       zerolog.Logger
}

// NewPromotionService creates a new PromotionService
func NewPromotionService(applications ApplicationStore, students PromotionStudentStore, logger zerolog.Logger) *PromotionService {
	return &PromotionService{
		applications: applications,
		students:     students,
		logger:       logger,
	}
}

// SubmitApplication records a new application in pending status.
func (s *PromotionService) SubmitApplication(ctx context.Context, req *dto.SubmitApplicationRequest) (*models.Application, error) {
	dateOfBirth, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return nil, apperrors.NewBadRequestError("dateOfBirth must be in YYYY-MM-DD format")
	}

	app := &models.Application{
		FirstName:     strings.TrimSpace(req.FirstName),
		LastName:      strings.TrimSpace(req.LastName),
		DateOfBirth:   dateOfBirth,
		Gender:        req.Gender,
		Address:       req.Address,
		GuardianName:  req.GuardianName,
		GuardianPhone: req.GuardianPhone,
		GuardianEmail: req.GuardianEmail,
		Program:       req.Program,
	}

	if err := s.applications.Create(ctx, app); err != nil {
		return nil, err
	}

	s.logger.Info().Str("applicationId", app.ID).Str("program", app.Program).Msg("Application submitted")
	return app, nil
}

// GetApplication retrieves an application by id
func (s *PromotionService) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	return s.applications.GetByID(ctx, id)
}

// ListApplications retrieves applications filtered by status
func (s *PromotionService) ListApplications(ctx context.Context, status models.ApplicationStatus) ([]*models.Application, error) {
	return s.applications.ListByStatus(ctx, status)
}

// ApproveApplication promotes a pending application into a student record and
// returns the student id with the derived access code. The promotion is
// decided by a conditional status transition, so of two concurrent approvals
// exactly one succeeds and the other receives ErrAlreadyDecided. A retried
// approval that finds a student left behind by an earlier failed attempt
// adopts that student instead of creating a duplicate.
func (s *PromotionService) ApproveApplication(ctx context.Context, applicationID, reviewerID string) (*dto.PromotionResponse, error) {
	app, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status.IsTerminal() {
		return nil, apperrors.ErrAlreadyDecided
	}

	now := time.Now()

	orphan, err := s.students.GetByApplicationID(ctx, applicationID)
	if err != nil && !errors.Is(err, apperrors.ErrStudentNotFound) {
		return nil, err
	}

	var studentID string
	if orphan != nil {
		s.logger.Warn().
			Str("applicationId", applicationID).
			Str("studentId", orphan.ID).
			Msg("Adopting student record from earlier incomplete approval")

		if err := s.applications.CompletePromotion(ctx, applicationID, reviewerID, orphan.ID, now); err != nil {
			return nil, err
		}
		studentID = orphan.ID
	} else {
		student := &models.Student{
			ApplicationID: applicationID,
			FirstName:     app.FirstName,
			LastName:      app.LastName,
			DateOfBirth:   app.DateOfBirth,
			Gender:        app.Gender,
			Address:       app.Address,
			GuardianEmail: app.GuardianEmail,
			GuardianPhone: app.GuardianPhone,
			Status:        models.StudentActive,
		}

		if err := s.applications.Promote(ctx, applicationID, reviewerID, student, now); err != nil {
			return nil, err
		}
		studentID = student.ID
	}

	s.logger.Info().
		Str("applicationId", applicationID).
		Str("studentId", studentID).
		Str("reviewerId", reviewerID).
		Msg("Application approved")

	return &dto.PromotionResponse{
		StudentID:  studentID,
		AccessCode: accesscode.FromApplicationID(applicationID),
	}, nil
}

// RejectApplication transitions a pending application to rejected.
func (s *PromotionService) RejectApplication(ctx context.Context, applicationID, reviewerID string, reason *string) error {
	app, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		return err
	}
	if app.Status.IsTerminal() {
		return apperrors.ErrAlreadyDecided
	}

	if err := s.applications.Reject(ctx, applicationID, reviewerID, reason, time.Now()); err != nil {
		return err
	}

	s.logger.Info().Str("applicationId", applicationID).Str("reviewerId", reviewerID).Msg("Application rejected")
	return nil
}
