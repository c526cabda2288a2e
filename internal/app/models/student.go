package models

import "time"

// Student defines the enrolled-person model based on the 'students' table.
// A student is created exactly once by the promotion workflow; the biographic
// fields are a snapshot of the application at promotion time.
//
// Tuition amounts are stored in the smallest currency unit (cents) to keep
// ledger arithmetic exact. The invariant 0 <= TuitionPaid <= TuitionAmount
// must hold after every ledger mutation.
type Student struct {
	ID            string        `json:"id" db:"id"`
	ApplicationID string        `json:"applicationId" db:"application_id"` // Back-reference, lookup only
	FirstName     string        `json:"firstName" db:"first_name"`
	LastName      string        `json:"lastName" db:"last_name"`
	DateOfBirth   time.Time     `json:"dateOfBirth" db:"date_of_birth"`
	Gender        string        `json:"gender" db:"gender"`
	Address       string        `json:"address" db:"address"`
	GuardianEmail *string       `json:"guardianEmail,omitempty" db:"guardian_email"` // Primary linking key
	GuardianPhone *string       `json:"guardianPhone,omitempty" db:"guardian_phone"`
	UserID        *string       `json:"userId,omitempty" db:"user_id"` // Linked account, set at most once
	TuitionAmount int64         `json:"tuitionAmount" db:"tuition_amount"`
	TuitionPaid   int64         `json:"tuitionPaid" db:"tuition_paid"`
	Status        StudentStatus `json:"status" db:"status"`
	CreatedAt     time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time     `json:"updatedAt" db:"updated_at"`
}

// Balance returns the outstanding tuition for the student
func (s *Student) Balance() int64 {
	return s.TuitionAmount - s.TuitionPaid
}
