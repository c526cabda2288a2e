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

// ApplicationRepository handles database operations for applications
type ApplicationRepository struct {
	db *pgxpool.Pool
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(db *pgxpool.Pool) *ApplicationRepository {
	return &ApplicationRepository{
		db: db,
	}
}

const applicationColumns = `
	id, first_name, last_name, date_of_birth, gender, address,
	guardian_name, guardian_phone, guardian_email, program, status,
	submitted_at, reviewed_at, reviewed_by, notes, created_student_id`

func scanApplication(row pgx.Row) (*models.Application, error) {
	var app models.Application
	err := row.Scan(
		&app.ID, &app.FirstName, &app.LastName, &app.DateOfBirth, &app.Gender, &app.Address,
		&app.GuardianName, &app.GuardianPhone, &app.GuardianEmail, &app.Program, &app.Status,
		&app.SubmittedAt, &app.ReviewedAt, &app.ReviewedBy, &app.Notes, &app.CreatedStudentID,
	)
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// Create creates a new application in pending status
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	query := `
		INSERT INTO applications (first_name, last_name, date_of_birth, gender, address,
		                          guardian_name, guardian_phone, guardian_email, program)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, status, submitted_at
	`

	err := r.db.QueryRow(ctx, query,
		app.FirstName, app.LastName, app.DateOfBirth, app.Gender, app.Address,
		app.GuardianName, app.GuardianPhone, app.GuardianEmail, app.Program,
	).Scan(&app.ID, &app.Status, &app.SubmittedAt)

	if err != nil {
		return fmt.Errorf("error creating application: %w", err)
	}

	return nil
}

// GetByID retrieves an application by id
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*models.Application, error) {
	query := `SELECT` + applicationColumns + ` FROM applications WHERE id = $1`

	app, err := scanApplication(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("error retrieving application: %w", err)
	}

	return app, nil
}

// GetByCodePrefix retrieves the application whose id starts with the given
// normalized 8-character access code.
func (r *ApplicationRepository) GetByCodePrefix(ctx context.Context, code string) (*models.Application, error) {
	query := `SELECT` + applicationColumns + ` FROM applications WHERE LEFT(LOWER(id::text), 8) = $1`

	app, err := scanApplication(r.db.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCodeNotFound
		}
		return nil, fmt.Errorf("error retrieving application by code: %w", err)
	}

	return app, nil
}

// ListByStatus retrieves all applications with the given status
func (r *ApplicationRepository) ListByStatus(ctx context.Context, status models.ApplicationStatus) ([]*models.Application, error) {
	query := `SELECT` + applicationColumns + ` FROM applications WHERE status = $1 ORDER BY submitted_at`

	rows, err := r.db.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("error listing applications: %w", err)
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return apps, nil
}

// Promote creates the student record and transitions the application to
// approved in one transaction. The application update is conditional on the
// current status still being pending, so the second of two racing approvers
// gets ErrAlreadyDecided and no duplicate student is created.
func (r *ApplicationRepository) Promote(ctx context.Context, applicationID, reviewerID string, student *models.Student, reviewedAt time.Time) error {
	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		insertStudent := `
			INSERT INTO students (application_id, first_name, last_name, date_of_birth, gender,
			                      address, guardian_email, guardian_phone, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, tuition_amount, tuition_paid, created_at, updated_at
		`

		err := tx.QueryRow(ctx, insertStudent,
			student.ApplicationID, student.FirstName, student.LastName, student.DateOfBirth,
			student.Gender, student.Address, student.GuardianEmail, student.GuardianPhone, student.Status,
		).Scan(&student.ID, &student.TuitionAmount, &student.TuitionPaid, &student.CreatedAt, &student.UpdatedAt)
		if err != nil {
			return fmt.Errorf("error creating student: %w", err)
		}

		updateApp := `
			UPDATE applications
			SET status = 'approved', reviewed_at = $2, reviewed_by = $3, created_student_id = $4
			WHERE id = $1 AND status = 'pending'
		`

		cmdTag, err := tx.Exec(ctx, updateApp, applicationID, reviewedAt, reviewerID, student.ID)
		if err != nil {
			return fmt.Errorf("error approving application: %w", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return apperrors.ErrAlreadyDecided
		}

		return nil
	})
}

// CompletePromotion transitions the application to approved against a student
// record that already exists. This is the recovery path for a retried approval
// whose earlier attempt created the student but failed before updating the
// application.
func (r *ApplicationRepository) CompletePromotion(ctx context.Context, applicationID, reviewerID, studentID string, reviewedAt time.Time) error {
	query := `
		UPDATE applications
		SET status = 'approved', reviewed_at = $2, reviewed_by = $3, created_student_id = $4
		WHERE id = $1 AND status = 'pending'
	`

	cmdTag, err := r.db.Exec(ctx, query, applicationID, reviewedAt, reviewerID, studentID)
	if err != nil {
		return fmt.Errorf("error completing promotion: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrAlreadyDecided
	}

	return nil
}

// Reject transitions the application to rejected. Conditional on pending
// status; a terminal application yields ErrAlreadyDecided.
func (r *ApplicationRepository) Reject(ctx context.Context, applicationID, reviewerID string, reason *string, reviewedAt time.Time) error {
	query := `
		UPDATE applications
		SET status = 'rejected', reviewed_at = $2, reviewed_by = $3, notes = COALESCE($4, notes)
		WHERE id = $1 AND status = 'pending'
	`

	cmdTag, err := r.db.Exec(ctx, query, applicationID, reviewedAt, reviewerID, reason)
	if err != nil {
		return fmt.Errorf("error rejecting application: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrAlreadyDecided
	}

	return nil
}
