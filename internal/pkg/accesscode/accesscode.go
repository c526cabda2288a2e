// Package accesscode derives the short redemption code handed to families
// after an application is approved. The code is the first 8 characters of the
// application id, compared case-insensitively, so it can be recomputed by any
// component that knows the application id without a shared secret store.
//
// An 8-character prefix of an opaque id is a narrow secret space. It only
// gates redemption of an already-approved application and callers are
// expected to rate limit it; a production hardening pass should widen it.
package accesscode

import (
	"regexp"
	"strings"

	"github.com/yigit/schoolsphere/internal/pkg/apperrors"
)

// Length is the number of application-id characters used for the code.
const Length = 8

var codePattern = regexp.MustCompile(`^[0-9a-f]{8}$`)

// FromApplicationID derives the access code for an application id.
func FromApplicationID(applicationID string) string {
	id := strings.ToLower(applicationID)
	if len(id) < Length {
		return id
	}
	return id[:Length]
}

// Normalize lowercases and trims a user-supplied code and validates its shape.
func Normalize(code string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(code))
	if !codePattern.MatchString(normalized) {
		return "", apperrors.ErrInvalidAccessCode
	}
	return normalized, nil
}

// Matches reports whether a normalized code matches an application id.
func Matches(code, applicationID string) bool {
	return FromApplicationID(applicationID) == code
}
