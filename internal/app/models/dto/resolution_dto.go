package dto

// ResolveByCodeRequest redeems an access code
type ResolveByCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// ResolveByCodeResponse carries the resolved student and a scoped token
type ResolveByCodeResponse struct {
	StudentID string `json:"studentId"`
	Token     string `json:"token"`
}

// BiographicSearchRequest searches for unlinked candidate records
type BiographicSearchRequest struct {
	FirstName   string  `json:"firstName" binding:"required"`
	LastName    string  `json:"lastName" binding:"required"`
	DateOfBirth *string `json:"dateOfBirth,omitempty" example:"2014-09-03"`
}

// LinkCandidateRequest links the calling account to a chosen candidate
type LinkCandidateRequest struct {
	StudentID string `json:"studentId" binding:"required"`
}
