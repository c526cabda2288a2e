package accesscode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/schoolsphere/internal/pkg/apperrors"
)

func TestFromApplicationID(t *testing.T) {
	tests := []struct {
		name          string
		applicationID string
		expected      string
	}{
		{
			name:          "uuid prefix",
			applicationID: "7f3c2a1e-9b4d-4f6a-8c2e-1d5b6a7c8e9f",
			expected:      "7f3c2a1e",
		},
		{
			name:          "uppercase id is lowered",
			applicationID: "7F3C2A1E-9B4D-4F6A-8C2E-1D5B6A7C8E9F",
			expected:      "7f3c2a1e",
		},
		{
			name:          "short id returned as-is",
			applicationID: "abc",
			expected:      "abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FromApplicationID(tt.applicationID))
		})
	}
}

func TestNormalize(t *testing.T) {
	code, err := Normalize("  7F3C2A1E ")
	require.NoError(t, err)
	assert.Equal(t, "7f3c2a1e", code)

	_, err = Normalize("nope")
	assert.ErrorIs(t, err, apperrors.ErrInvalidAccessCode)

	_, err = Normalize("7f3c2a1e9b")
	assert.ErrorIs(t, err, apperrors.ErrInvalidAccessCode)
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("7f3c2a1e", "7f3c2a1e-9b4d-4f6a-8c2e-1d5b6a7c8e9f"))
	assert.False(t, Matches("deadbeef", "7f3c2a1e-9b4d-4f6a-8c2e-1d5b6a7c8e9f"))
}
