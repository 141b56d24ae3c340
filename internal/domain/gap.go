package domain

// Severity ranks a validation gap. Only required gaps block confirmation.
type Severity string

const (
	SeverityRequired    Severity = "required"
	SeverityRecommended Severity = "recommended"
	SeverityWarning     Severity = "warning"
)

// Rank orders severities: required first.
func (s Severity) Rank() int {
	switch s {
	case SeverityRequired:
		return 0
	case SeverityRecommended:
		return 1
	default:
		return 2
	}
}

// ProblemCode is the machine-readable reason for a gap.
type ProblemCode string

const (
	ProblemFieldMissing          ProblemCode = "field_missing"
	ProblemAddressOrGPSRequired  ProblemCode = "address_or_gps_required"
	ProblemJustificationRequired ProblemCode = "justification_required"
	ProblemInvalidFormat         ProblemCode = "invalid_format"
	ProblemOutOfRegion           ProblemCode = "out_of_region"
	ProblemLowConfidence         ProblemCode = "low_confidence"
)

// ValidationGap is one detected shortfall in a field snapshot.
type ValidationGap struct {
	Field           FieldName   `json:"field"`
	Problem         ProblemCode `json:"problem"`
	Severity        Severity    `json:"severity"`
	SuggestedPrompt string      `json:"suggested_prompt"`
	SuggestedValues []string    `json:"suggested_values,omitempty"`
}

// CountBySeverity tallies gaps per severity.
func CountBySeverity(gaps []ValidationGap) map[Severity]int {
	counts := map[Severity]int{
		SeverityRequired:    0,
		SeverityRecommended: 0,
		SeverityWarning:     0,
	}
	for _, gap := range gaps {
		counts[gap.Severity]++
	}
	return counts
}

// HasRequired reports whether any gap blocks confirmation.
func HasRequired(gaps []ValidationGap) bool {
	for _, gap := range gaps {
		if gap.Severity == SeverityRequired {
			return true
		}
	}
	return false
}
