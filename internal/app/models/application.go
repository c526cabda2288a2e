package models

import "time"

// Application defines the intake form model based on the 'applications' table.
// An application is mutated only by the promotion workflow (approve/reject);
// once it reaches a terminal status it is never modified again.
type Application struct {
	ID               string            `json:"id" db:"id" example:"7f3c2a1e-9b4d-4f6a-8c2e-1d5b6a7c8e9f"` // Opaque identifier, also the access code source
	FirstName        string            `json:"firstName" db:"first_name" example:"Lea"`
	LastName         string            `json:"lastName" db:"last_name" example:"Martin"`
	DateOfBirth      time.Time         `json:"dateOfBirth" db:"date_of_birth"`
	Gender           string            `json:"gender" db:"gender" example:"F"`
	Address          string            `json:"address" db:"address"`
	GuardianName     *string           `json:"guardianName,omitempty" db:"guardian_name"` // Optional for self-registering students
	GuardianPhone    *string           `json:"guardianPhone,omitempty" db:"guardian_phone"`
	GuardianEmail    *string           `json:"guardianEmail,omitempty" db:"guardian_email"`
	Program          string            `json:"program" db:"program" example:"primary-2026"`
	Status           ApplicationStatus `json:"status" db:"status" example:"pending"`
	SubmittedAt      time.Time         `json:"submittedAt" db:"submitted_at"`
	ReviewedAt       *time.Time        `json:"reviewedAt,omitempty" db:"reviewed_at"`
	ReviewedBy       *string           `json:"reviewedBy,omitempty" db:"reviewed_by"`
	Notes            *string           `json:"notes,omitempty" db:"notes"`
	CreatedStudentID *string           `json:"createdStudentId,omitempty" db:"created_student_id"` // Set exactly once on approval
}
