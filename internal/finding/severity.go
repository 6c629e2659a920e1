package finding

import "fmt"

// Severity represents the ordinal risk level of a security finding.
type Severity string

const (
	// SeverityCritical represents immediate compromise (command execution,
	// auth bypass).
	SeverityCritical Severity = "critical"

	// SeverityHigh represents significant impact requiring prompt attention
	// (injection, secret exposure).
	SeverityHigh Severity = "high"

	// SeverityMedium represents moderate impact.
	SeverityMedium Severity = "medium"

	// SeverityLow represents limited impact.
	SeverityLow Severity = "low"

	// SeverityInfo represents informational findings with no direct impact.
	SeverityInfo Severity = "info"
)

// ParseSeverity converts a string into a Severity, rejecting unknown values.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if !sev.IsValid() {
		return "", fmt.Errorf("unknown severity %q", s)
	}
	return sev, nil
}

// IsValid reports whether s is a recognized severity level.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return true
	}
	return false
}

// Score returns a numeric rank for comparison.
// Critical=5, High=4, Medium=3, Low=2, Info=1, unknown=0.
func (s Severity) Score() int {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s ranks at or above min.
func (s Severity) AtLeast(min Severity) bool {
	return s.Score() >= min.Score()
}

// Max returns the higher-ranked of the two severities.
func Max(a, b Severity) Severity {
	if b.Score() > a.Score() {
		return b
	}
	return a
}

// String returns the severity as a string.
func (s Severity) String() string {
	return string(s)
}
