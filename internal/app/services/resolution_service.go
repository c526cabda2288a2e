package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/yigit/schoolsphere/internal/app/models"
	"github.com/yigit/schoolsphere/internal/app/models/dto"
	"github.com/yigit/schoolsphere/internal/pkg/accesscode"
	"github.com/yigit/schoolsphere/internal/pkg/apperrors"
	"github.com/yigit/schoolsphere/internal/pkg/auth"
)

// Session identifies the authenticated caller. It is passed explicitly into
// every resolution operation instead of being read from ambient request
// state, so the linking rules stay testable and visible at the call site.
type Session struct {
	AccountID string
	Email     string
	Role      models.RoleType
}

// ResolutionStudentStore is the student surface used by ResolutionService.
type ResolutionStudentStore interface {
	GetByID(ctx context.Context, id string) (*models.Student, error)
	FindUnlinkedByGuardianEmail(ctx context.Context, email string) ([]*models.Student, error)
	FindUnlinkedByName(ctx context.Context, firstName, lastName string, dateOfBirth *time.Time) ([]*models.Student, error)
	LinkAccount(ctx context.Context, studentID, accountID string) (bool, error)
}

// CodeApplicationStore resolves an access code to its application.
type CodeApplicationStore interface {
	GetByCodePrefix(ctx context.Context, code string) (*models.Application, error)
}

// LinkAuditStore records established account links.
type LinkAuditStore interface {
	Append(ctx context.Context, accountID, studentID string, strategy models.LinkStrategy) error
}

// ResolutionService links accounts to student records. Three strategies are
// supported: guardian email match, access code redemption and biographic
// candidate selection. A student record accepts at most one account link;
// every established link is written to the append-only audit trail.
type ResolutionService struct {
	students     ResolutionStudentStore
	applications CodeApplicationStore
	audits       LinkAuditStore
	jwtService   *auth.JWTService
	logger       zerolog.Logger
}

// NewResolutionService creates a new ResolutionService
func NewResolutionService(
	students ResolutionStudentStore,
	applications CodeApplicationStore,
	audits LinkAuditStore,
	jwtService *auth.JWTService,
	logger zerolog.Logger,
) *ResolutionService {
	return &ResolutionService{
		students:     students,
		applications: applications,
		audits:       audits,
		jwtService:   jwtService,
		logger:       logger,
	}
}

// ResolveByEmail links every unlinked student record whose guardian email
// matches the caller's account email and returns the linked records.
// Idempotent: once all matches are linked, subsequent calls return an empty
// list. A record lost to a concurrent link is skipped, not an error.
func (s *ResolutionService) ResolveByEmail(ctx context.Context, session Session) ([]*models.Student, error) {
	candidates, err := s.students.FindUnlinkedByGuardianEmail(ctx, session.Email)
	if err != nil {
		return nil, err
	}

	linked := make([]*models.Student, 0, len(candidates))
	for _, student := range candidates {
		won, err := s.students.LinkAccount(ctx, student.ID, session.AccountID)
		if err != nil {
			return nil, err
		}
		if !won {
			continue
		}

		if err := s.audits.Append(ctx, session.AccountID, student.ID, models.LinkByEmail); err != nil {
			s.logger.Error().Err(err).Str("studentId", student.ID).Msg("Failed to write link audit")
		}

		student.UserID = &session.AccountID
		linked = append(linked, student)
	}

	if len(linked) > 0 {
		s.logger.Info().
			Str("accountId", session.AccountID).
			Int("count", len(linked)).
			Msg("Linked student records by guardian email")
	}

	return linked, nil
}

// ResolveByCode redeems an access code handed out at approval time. The code
// resolves to an application; only an approved application yields its student
// id and a student-scoped token. When a session is supplied the student record
// is also linked to the calling account.
func (s *ResolutionService) ResolveByCode(ctx context.Context, code string, session *Session) (*dto.ResolveByCodeResponse, error) {
	normalized, err := accesscode.Normalize(code)
	if err != nil {
		return nil, err
	}

	app, err := s.applications.GetByCodePrefix(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if app.Status != models.ApplicationApproved {
		return nil, apperrors.ErrNotApprovedYet
	}
	if app.CreatedStudentID == nil {
		// Approved without a recorded student id means the promotion is
		// still settling; surface it as not approved so the caller retries.
		return nil, apperrors.ErrNotApprovedYet
	}

	student, err := s.waitForStudent(ctx, *app.CreatedStudentID)
	if err != nil {
		return nil, err
	}

	var accountID *string
	if session != nil {
		accountID = &session.AccountID

		won, err := s.students.LinkAccount(ctx, student.ID, session.AccountID)
		if err != nil {
			return nil, err
		}
		if won {
			if err := s.audits.Append(ctx, session.AccountID, student.ID, models.LinkByCode); err != nil {
				s.logger.Error().Err(err).Str("studentId", student.ID).Msg("Failed to write link audit")
			}
		} else if err := s.requireLinkedTo(ctx, student.ID, session.AccountID); err != nil {
			return nil, err
		}
	}

	token, err := s.jwtService.GenerateStudentScopedToken(student.ID, accountID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("studentId", student.ID).Msg("Access code redeemed")

	return &dto.ResolveByCodeResponse{
		StudentID: student.ID,
		Token:     token,
	}, nil
}

// GetStudent retrieves a student record by id
func (s *ResolutionService) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	return s.students.GetByID(ctx, id)
}

// SearchByBiographic returns unlinked student records matching the given
// name, narrowed by date of birth when supplied. It never links; the caller
// must confirm a candidate through LinkCandidate.
func (s *ResolutionService) SearchByBiographic(ctx context.Context, req *dto.BiographicSearchRequest) ([]*models.Student, error) {
	var dateOfBirth *time.Time
	if req.DateOfBirth != nil {
		parsed, err := time.Parse("2006-01-02", *req.DateOfBirth)
		if err != nil {
			return nil, apperrors.NewBadRequestError("dateOfBirth must be in YYYY-MM-DD format")
		}
		dateOfBirth = &parsed
	}

	return s.students.FindUnlinkedByName(ctx, req.FirstName, req.LastName, dateOfBirth)
}

// LinkCandidate links the calling account to a candidate chosen from a
// biographic search. Of two concurrent claims on the same record exactly one
// wins; the loser receives ErrAlreadyLinked. Re-linking a record the caller
// already holds is a no-op.
func (s *ResolutionService) LinkCandidate(ctx context.Context, session Session, studentID string) error {
	if _, err := s.students.GetByID(ctx, studentID); err != nil {
		return err
	}

	won, err := s.students.LinkAccount(ctx, studentID, session.AccountID)
	if err != nil {
		return err
	}
	if !won {
		return s.requireLinkedTo(ctx, studentID, session.AccountID)
	}

	if err := s.audits.Append(ctx, session.AccountID, studentID, models.LinkByCandidate); err != nil {
		s.logger.Error().Err(err).Str("studentId", studentID).Msg("Failed to write link audit")
	}

	s.logger.Info().
		Str("accountId", session.AccountID).
		Str("studentId", studentID).
		Msg("Linked student record from biographic candidate")

	return nil
}

// requireLinkedTo verifies that a record whose conditional link write did not
// apply is already held by the caller. Any other holder is ErrAlreadyLinked.
func (s *ResolutionService) requireLinkedTo(ctx context.Context, studentID, accountID string) error {
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return err
	}
	if student.UserID != nil && *student.UserID == accountID {
		return nil
	}
	return apperrors.ErrAlreadyLinked
}

// waitForStudent fetches a student record, retrying briefly when it is not
// yet visible. An approved application can reference a student a moment
// before the record itself is readable under concurrent promotion retries.
func (s *ResolutionService) waitForStudent(ctx context.Context, studentID string) (*models.Student, error) {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(50*time.Millisecond),
		backoff.WithMaxInterval(500*time.Millisecond),
	), 3), ctx)

	return backoff.RetryWithData(func() (*models.Student, error) {
		student, err := s.students.GetByID(ctx, studentID)
		if err != nil {
			if errors.Is(err, apperrors.ErrStudentNotFound) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return student, nil
	}, policy)
}
