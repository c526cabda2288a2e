package dto

// SubmitApplicationRequest is the intake payload submitted by a parent or a
// self-registering student. Guardian contact is optional for the latter.
type SubmitApplicationRequest struct {
	FirstName     string  `json:"firstName" binding:"required"`
	LastName      string  `json:"lastName" binding:"required"`
	DateOfBirth   string  `json:"dateOfBirth" binding:"required" example:"2014-09-03"`
	Gender        string  `json:"gender"`
	Address       string  `json:"address"`
	GuardianName  *string `json:"guardianName,omitempty"`
	GuardianPhone *string `json:"guardianPhone,omitempty"`
	GuardianEmail *string `json:"guardianEmail,omitempty" binding:"omitempty,email"`
	Program       string  `json:"program" binding:"required"`
}

// RejectApplicationRequest carries the optional rejection reason
type RejectApplicationRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// PromotionResponse is returned on a successful approval
type PromotionResponse struct {
	StudentID  string `json:"studentId"`
	AccessCode string `json:"accessCode" example:"7f3c2a1e"`
}
