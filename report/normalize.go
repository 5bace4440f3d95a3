package report

import "strconv"

// ParseInt converts a locale-formatted numeric string to an int. Every rune
// except digits and '-' is stripped, so "1,234" and "1234" normalize
// identically. Empty or all-non-digit input yields ok=false, not zero.
func ParseInt(s string) (int, bool) {
	digits := make([]rune, 0, len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '-' {
			digits = append(digits, r)
		}
	}
	if len(digits) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(string(digits))
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseIntPtr is ParseInt for optional fields: nil when no value.
func parseIntPtr(s string) *int {
	n, ok := ParseInt(s)
	if !ok {
		return nil
	}
	return &n
}
