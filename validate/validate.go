// Package validate holds the field-level validation rules shared by the
// voicecore model types. Every check returns a *validate.Error describing the
// offending field so callers can distinguish malformed input from operational
// failures with errors.As.
package validate

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// languageCodePattern matches ISO 639-1 codes with an optional region
	// suffix, e.g. "en" or "en-US".
	languageCodePattern = regexp.MustCompile(`^[a-z]{2}(-[A-Z]{2})?$`)

	// sessionIDPattern matches externally generated session identifiers.
	sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)
)

// Error describes a single invalid field. It is always surfaced to the caller
// and never retried.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("validate: %s: %s", e.Field, e.Reason)
}

// Errorf constructs a field error with a formatted reason.
func Errorf(field, format string, args ...any) *Error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// LanguageCode normalizes and validates a language code, returning the
// canonical form (lowercase language, uppercase region).
func LanguageCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", &Error{Field: "language_code", Reason: "must not be empty"}
	}
	if i := strings.IndexByte(code, '-'); i > 0 {
		code = strings.ToLower(code[:i]) + "-" + strings.ToUpper(code[i+1:])
	} else {
		code = strings.ToLower(code)
	}
	if !languageCodePattern.MatchString(code) {
		return "", Errorf("language_code", "invalid format %q", code)
	}
	return code, nil
}

// SessionID validates an externally supplied session identifier.
func SessionID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", &Error{Field: "session_id", Reason: "must not be empty"}
	}
	if !sessionIDPattern.MatchString(id) {
		return "", Errorf("session_id", "must be 8-64 chars of [A-Za-z0-9_-], got %q", id)
	}
	return id, nil
}

// Score validates a confidence score in the closed interval [0, 1].
func Score(field string, score float64) error {
	if score < 0 || score > 1 {
		return Errorf(field, "must be between 0.0 and 1.0, got %g", score)
	}
	return nil
}

// Multiplier validates that a multiplier lies within [min, max].
func Multiplier(field string, v, min, max float64) error {
	if v < min || v > max {
		return Errorf(field, "must be between %g and %g, got %g", min, max, v)
	}
	return nil
}

// NonNegative validates that a numeric field is >= 0.
func NonNegative(field string, v float64) error {
	if v < 0 {
		return Errorf(field, "must not be negative, got %g", v)
	}
	return nil
}

// TextLength validates the length of a required text field after trimming.
func TextLength(field, text string, min, max int) (string, error) {
	text = strings.TrimSpace(text)
	if len(text) < min {
		return "", Errorf(field, "too short: minimum %d characters", min)
	}
	if len(text) > max {
		return "", Errorf(field, "too long: maximum %d characters", max)
	}
	return text, nil
}
