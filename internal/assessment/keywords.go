package assessment

import (
	"regexp"
	"strings"
	"unicode"
)

// symptomVocabulary lists common presenting complaints. When the symptom
// text mentions any of these, the lookup queries use them verbatim, which
// gives far better registry hits than the raw sentence.
var symptomVocabulary = []string{
	"headache", "migraine", "chest pain", "abdominal pain", "back pain",
	"shortness of breath", "dyspnea", "fever", "cough", "nausea",
	"vomiting", "diarrhea", "dizziness", "vertigo", "fatigue",
	"weakness", "numbness", "tingling", "rash", "swelling", "edema",
	"hypertension", "high blood pressure", "low blood pressure", "hypotension",
	"tachycardia", "bradycardia", "arrhythmia", "palpitations",
	"insomnia", "anxiety", "depression", "confusion",
	"sore throat", "stiff neck", "blurred vision", "wheezing",
}

var vocabularyPatterns = compileVocabulary()

func compileVocabulary() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(symptomVocabulary))
	for i, term := range symptomVocabulary {
		patterns[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(term) + `\b`)
	}
	return patterns
}

// stopwords are conversational filler stripped from patient phrasing before
// the fallback keyword pass.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "i": {}, "my": {}, "me": {}, "im": {},
	"is": {}, "are": {}, "was": {}, "been": {}, "be": {}, "am": {},
	"have": {}, "has": {}, "having": {}, "had": {}, "get": {}, "getting": {},
	"feel": {}, "feeling": {}, "feels": {}, "felt": {},
	"experiencing": {}, "suffering": {}, "reports": {}, "patient": {},
	"and": {}, "or": {}, "but": {}, "with": {}, "without": {},
	"from": {}, "for": {}, "of": {}, "in": {}, "on": {}, "at": {}, "to": {},
	"since": {}, "about": {}, "very": {}, "really": {}, "some": {},
	"this": {}, "that": {}, "it": {}, "its": {}, "also": {}, "now": {},
	"days": {}, "day": {}, "weeks": {}, "week": {}, "hours": {}, "hour": {},
	"like": {}, "just": {}, "when": {}, "while": {}, "then": {},
}

// ExtractKeywords derives lookup keywords from symptom text. Known symptom
// terms win; otherwise stopword-filtered tokens are used, and as a last
// resort the trimmed text itself, so non-empty input always yields a
// non-empty keyword set.
func ExtractKeywords(symptoms string) []string {
	trimmed := strings.TrimSpace(symptoms)
	if trimmed == "" {
		return nil
	}
	lower := strings.ToLower(trimmed)

	var found []string
	for i, re := range vocabularyPatterns {
		if re.MatchString(lower) {
			found = append(found, symptomVocabulary[i])
		}
	}
	if len(found) > 0 {
		return found
	}

	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	var out []string
	seen := make(map[string]struct{})
	for _, t := range tokens {
		if len(t) < 3 {
			continue
		}
		if _, stop := stopwords[t]; stop {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return []string{lower}
	}
	return out
}
