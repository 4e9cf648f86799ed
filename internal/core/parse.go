package core

import (
	"strconv"
	"strings"
)

// DefaultPct is the percentage applied when the form field is absent or not a
// number.
const DefaultPct = 20

// ParseAmount converts the raw amount form value to an integer monetary
// amount. Returns ErrInvalidAmount for empty or non-numeric input.
func ParseAmount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return n, nil
}

// ParsePct converts the raw percentage form value, falling back to DefaultPct
// when the value is missing, non-numeric or not positive.
func ParsePct(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return DefaultPct
	}
	return n
}
