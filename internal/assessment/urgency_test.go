package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"triage-assistant/pkg"
)

func TestCoerceUrgency(t *testing.T) {
	tests := []struct {
		raw   string
		want  pkg.UrgencyLevel
		known bool
	}{
		{"high", pkg.UrgencyHigh, true},
		{"EMERGENCY", pkg.UrgencyHigh, true},
		{"Severe", pkg.UrgencyHigh, true},
		{"urgent", pkg.UrgencyMedium, true},
		{"semi-urgent", pkg.UrgencyMedium, true},
		{"medium", pkg.UrgencyMedium, true},
		{"low", pkg.UrgencyLow, true},
		{"Routine", pkg.UrgencyLow, true},
		{"standard", pkg.UrgencyLow, true},
		{"  self-care  ", pkg.UrgencyLow, true},
		// Unknown vocabulary must never silently under-triage.
		{"Unknown-term", pkg.UrgencyMedium, false},
		{"", pkg.UrgencyMedium, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, known := CoerceUrgency(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.known, known)
			assert.True(t, got.Valid())
		})
	}
}

func TestDefaultUrgencyDescription(t *testing.T) {
	assert.Equal(t, "Seek immediate medical attention", DefaultUrgencyDescription(pkg.UrgencyHigh))
	assert.NotEmpty(t, DefaultUrgencyDescription(pkg.UrgencyMedium))
	assert.NotEmpty(t, DefaultUrgencyDescription(pkg.UrgencyLow))
}
