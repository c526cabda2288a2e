package models

// RoleType defines the account role type
type RoleType string

const (
	RoleParent  RoleType = "PARENT"
	RoleStudent RoleType = "STUDENT"
	RoleAdmin   RoleType = "ADMIN"
)

// ApplicationStatus defines the review state of an application
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// IsTerminal reports whether the status can no longer change
func (s ApplicationStatus) IsTerminal() bool {
	return s == ApplicationApproved || s == ApplicationRejected
}

// StudentStatus defines the enrollment state of a student record
type StudentStatus string

const (
	StudentPending   StudentStatus = "pending"
	StudentActive    StudentStatus = "active"
	StudentInactive  StudentStatus = "inactive"
	StudentGraduated StudentStatus = "graduated"
	StudentSuspended StudentStatus = "suspended"
)

// PaymentStatus defines the state of a payment record
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// SyncStatus tracks whether a confirmed payment reached the tuition ledger
type SyncStatus string

const (
	SyncNotRequired SyncStatus = "not_required"
	SyncDone        SyncStatus = "synced"
	SyncNeedsManual SyncStatus = "needs_manual_sync"
)

// LinkStrategy identifies which resolution path established an account link
type LinkStrategy string

const (
	LinkByEmail     LinkStrategy = "email_match"
	LinkByCode      LinkStrategy = "code_redemption"
	LinkByCandidate LinkStrategy = "biographic_candidate"
)
