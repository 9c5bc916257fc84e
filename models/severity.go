package models

import "fmt"

// Severity is a discrete tier derived from a normalized score.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = [...]string{"none", "low", "medium", "high", "critical"}

var severityWarnings = [...]string{
	"",
	"LOW: Potential cyberbullying - Consider being more respectful",
	"MEDIUM: Cyberbullying detected - Please revise your content",
	"HIGH: Severe cyberbullying detected - Content must be reviewed",
	"CRITICAL: Extreme cyberbullying detected - Immediate action required",
}

// ClassifySeverity maps a normalized score to a tier. Lower bounds are
// exclusive: a score exactly on a boundary falls into the lower tier.
func ClassifySeverity(score float64) Severity {
	switch {
	case score > 0.8:
		return SeverityCritical
	case score > 0.6:
		return SeverityHigh
	case score > 0.4:
		return SeverityMedium
	case score > 0.2:
		return SeverityLow
	default:
		return SeverityNone
	}
}

// Valid returns true for the five known tiers.
func (s Severity) Valid() bool {
	return s >= SeverityNone && s <= SeverityCritical
}

func (s Severity) String() string {
	if !s.Valid() {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// Warning returns the fixed user-facing message of the tier.
func (s Severity) Warning() string {
	if !s.Valid() {
		return ""
	}
	return severityWarnings[s]
}

// ParseSeverity is the inverse of String.
func ParseSeverity(name string) (Severity, error) {
	for i, n := range severityNames {
		if n == name {
			return Severity(i), nil
		}
	}
	return SeverityNone, fmt.Errorf("models: unknown severity %q", name)
}

func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("models: invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	v, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
