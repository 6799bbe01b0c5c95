package assessment

import (
	"strings"

	"triage-assistant/pkg"
)

// urgencySynonyms maps model vocabulary onto the three tiers. Models trained
// on clinical text frequently answer with triage jargon ("emergency",
// "semi-urgent") instead of the requested enum.
var urgencySynonyms = map[string]pkg.UrgencyLevel{
	"high":      pkg.UrgencyHigh,
	"emergency": pkg.UrgencyHigh,
	"emergent":  pkg.UrgencyHigh,
	"immediate": pkg.UrgencyHigh,
	"critical":  pkg.UrgencyHigh,
	"severe":    pkg.UrgencyHigh,

	"medium":      pkg.UrgencyMedium,
	"moderate":    pkg.UrgencyMedium,
	"urgent":      pkg.UrgencyMedium,
	"semi-urgent": pkg.UrgencyMedium,
	"semi_urgent": pkg.UrgencyMedium,
	"soon":        pkg.UrgencyMedium,

	"low":        pkg.UrgencyLow,
	"routine":    pkg.UrgencyLow,
	"standard":   pkg.UrgencyLow,
	"mild":       pkg.UrgencyLow,
	"self-care":  pkg.UrgencyLow,
	"self_care":  pkg.UrgencyLow,
	"non-urgent": pkg.UrgencyLow,
	"nonurgent":  pkg.UrgencyLow,
}

// CoerceUrgency maps raw model output onto a valid tier, case-insensitively.
// Unrecognized values coerce to medium rather than low so an unintelligible
// model answer cannot under-triage a patient; known=false tells the caller
// to flag the degradation.
func CoerceUrgency(raw string) (level pkg.UrgencyLevel, known bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if l, ok := urgencySynonyms[key]; ok {
		return l, true
	}
	return pkg.UrgencyMedium, false
}

// DefaultUrgencyDescription fills in the patient-facing recommendation when
// the model omits one.
func DefaultUrgencyDescription(level pkg.UrgencyLevel) string {
	switch level {
	case pkg.UrgencyHigh:
		return "Seek immediate medical attention"
	case pkg.UrgencyMedium:
		return "Consult with a healthcare provider soon"
	default:
		return "Monitor symptoms and practice appropriate self-care"
	}
}
