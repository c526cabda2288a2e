package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yigit/schoolsphere/internal/app/models"
	"github.com/yigit/schoolsphere/internal/pkg/apperrors"
)

// StudentRepository handles database operations for student records
type StudentRepository struct {
	db *pgxpool.Pool
}

// NewStudentRepository creates a new student repository
func NewStudentRepository(db *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{
		db: db,
	}
}

const studentColumns = `
	id, application_id, first_name, last_name, date_of_birth, gender, address,
	guardian_email, guardian_phone, user_id, tuition_amount, tuition_paid,
	status, created_at, updated_at`

func scanStudent(row pgx.Row) (*models.Student, error) {
	var s models.Student
	err := row.Scan(
		&s.ID, &s.ApplicationID, &s.FirstName, &s.LastName, &s.DateOfBirth, &s.Gender, &s.Address,
		&s.GuardianEmail, &s.GuardianPhone, &s.UserID, &s.TuitionAmount, &s.TuitionPaid,
		&s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StudentRepository) queryStudents(ctx context.Context, query string, args ...interface{}) ([]*models.Student, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying students: %w", err)
	}
	defer rows.Close()

	var students []*models.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return students, nil
}

// GetByID retrieves a student by id
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*models.Student, error) {
	query := `SELECT` + studentColumns + ` FROM students WHERE id = $1`

	s, err := scanStudent(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrStudentNotFound
		}
		return nil, fmt.Errorf("error retrieving student: %w", err)
	}

	return s, nil
}

// GetByApplicationID retrieves the student created from an application, if
// any. Used by the promotion workflow to detect a student left behind by an
// earlier partially-failed approval before creating a new one.
func (r *StudentRepository) GetByApplicationID(ctx context.Context, applicationID string) (*models.Student, error) {
	query := `SELECT` + studentColumns + ` FROM students WHERE application_id = $1`

	s, err := scanStudent(r.db.QueryRow(ctx, query, applicationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrStudentNotFound
		}
		return nil, fmt.Errorf("error retrieving student by application: %w", err)
	}

	return s, nil
}

// FindUnlinkedByGuardianEmail retrieves students whose guardian email matches
// and whose record is not yet linked to any account.
func (r *StudentRepository) FindUnlinkedByGuardianEmail(ctx context.Context, email string) ([]*models.Student, error) {
	query := `SELECT` + studentColumns + `
		FROM students
		WHERE LOWER(guardian_email) = LOWER($1) AND user_id IS NULL
		ORDER BY created_at`

	return r.queryStudents(ctx, query, email)
}

// FindUnlinkedByName retrieves unlinked students matching the given names
// case-insensitively, and the exact date of birth when supplied.
func (r *StudentRepository) FindUnlinkedByName(ctx context.Context, firstName, lastName string, dateOfBirth *time.Time) ([]*models.Student, error) {
	query := `SELECT` + studentColumns + `
		FROM students
		WHERE LOWER(first_name) = LOWER($1)
		  AND LOWER(last_name) = LOWER($2)
		  AND ($3::date IS NULL OR date_of_birth = $3)
		  AND user_id IS NULL
		ORDER BY created_at`

	return r.queryStudents(ctx, query, firstName, lastName, dateOfBirth)
}

// LinkAccount sets the student's account link if and only if the record is
// still unlinked. Returns false when the conditional write did not apply,
// which means another account won the race (or the link already exists).
func (r *StudentRepository) LinkAccount(ctx context.Context, studentID, accountID string) (bool, error) {
	query := `
		UPDATE students
		SET user_id = $2, updated_at = NOW()
		WHERE id = $1 AND user_id IS NULL
	`

	cmdTag, err := r.db.Exec(ctx, query, studentID, accountID)
	if err != nil {
		return false, fmt.Errorf("error linking student: %w", err)
	}

	return cmdTag.RowsAffected() > 0, nil
}

// UpdateTuitionAmount applies an administrative tuition override. The write
// is conditional so the amount can only grow and never drops below what has
// already been paid; the outstanding balance is recomputed, tuition_paid is
// untouched.
func (r *StudentRepository) UpdateTuitionAmount(ctx context.Context, studentID string, newAmount int64) (*models.Student, error) {
	query := `
		UPDATE students
		SET tuition_amount = $2, updated_at = NOW()
		WHERE id = $1 AND $2 >= tuition_amount AND $2 >= tuition_paid
		RETURNING` + studentColumns

	s, err := scanStudent(r.db.QueryRow(ctx, query, studentID, newAmount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish a missing student from a rejected override.
			current, getErr := r.GetByID(ctx, studentID)
			if getErr != nil {
				return nil, getErr
			}
			if newAmount < current.TuitionPaid {
				return nil, apperrors.ErrTuitionBelowPaid
			}
			return nil, apperrors.NewBadRequestError("tuition override may only increase the amount")
		}
		return nil, fmt.Errorf("error updating tuition amount: %w", err)
	}

	return s, nil
}
