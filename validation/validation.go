// Package validation collects field-level violations before any write happens.
package validation

import (
	"net/mail"
	"strings"
)

// Violations maps a JSON field name to a short machine-readable code.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records code for field unless the field already has a violation.
func (v Violations) Add(field, code string) {
	if _, ok := v[field]; !ok {
		v[field] = code
	}
}

func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "required")
	}
}

func RequiredID(field string, id uint, v Violations) {
	if id == 0 {
		v.Add(field, "required")
	}
}

func Email(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "required")
		return
	}
	if _, err := mail.ParseAddress(value); err != nil {
		v.Add(field, "invalid_email")
	}
}

func PositiveFloat(field string, val float64, v Violations) {
	if val <= 0 {
		v.Add(field, "must_be_positive")
	}
}

func NonNegativeFloat(field string, val float64, v Violations) {
	if val < 0 {
		v.Add(field, "must_not_be_negative")
	}
}

// MinFloat requires val >= minVal.
func MinFloat(field string, val, minVal float64, v Violations) {
	if val < minVal {
		v.Add(field, "below_minimum")
	}
}

// RangeFloat requires minVal <= val <= maxVal.
func RangeFloat(field string, val, minVal, maxVal float64, v Violations) {
	if val < minVal || val > maxVal {
		v.Add(field, "out_of_range")
	}
}

// OneOf requires value to be one of allowed.
func OneOf(field, value string, allowed []string, v Violations) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.Add(field, "invalid_choice")
}

func MinLength(field, value string, n int, v Violations) {
	if len(value) < n {
		v.Add(field, "too_short")
	}
}
