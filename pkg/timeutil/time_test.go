package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNow_AlwaysUTC(t *testing.T) {
	assert.Equal(t, time.UTC, Now().Location())
}

func TestStartOfDay(t *testing.T) {
	ict := time.FixedZone("ICT", 7*60*60)

	tests := []struct {
		name     string
		input    time.Time
		expected string
	}{
		{
			name:     "midnight UTC",
			input:    time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC),
			expected: "2026-10-18 00:00:00 +0000 UTC",
		},
		{
			name:     "end of day UTC",
			input:    time.Date(2026, 10, 18, 23, 59, 59, 0, time.UTC),
			expected: "2026-10-18 00:00:00 +0000 UTC",
		},
		{
			// 06:30 in GMT+7 is still the previous UTC day
			name:     "early morning in Vietnam",
			input:    time.Date(2026, 10, 18, 6, 30, 0, 0, ict),
			expected: "2026-10-17 00:00:00 +0000 UTC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := StartOfDay(tt.input)

			assert.Equal(t, tt.expected, result.String())
			assert.Equal(t, time.UTC, result.Location())
		})
	}
}
