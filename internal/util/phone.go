package util

import (
	"regexp"
	"strings"
)

var nonPhone = regexp.MustCompile(`[^\d\+]+`)

// NormalizePhone tries to normalize user input into E.164-like format.
// Numbers without a country prefix get the given default (e.g. "+46").
func NormalizePhone(raw, defaultPrefix string) string {
	s := strings.TrimSpace(raw)
	s = nonPhone.ReplaceAllString(s, "")

	if s == "" {
		return s
	}

	if strings.HasPrefix(s, "00") {
		return "+" + s[2:]
	}
	if strings.HasPrefix(s, "+") {
		return s
	}
	if strings.HasPrefix(s, "0") {
		return defaultPrefix + s[1:]
	}

	return defaultPrefix + s
}

// ValidPhone reports whether s looks like a dispatchable MSISDN.
func ValidPhone(s string) bool {
	if !strings.HasPrefix(s, "+") {
		return false
	}
	digits := strings.TrimPrefix(s, "+")
	if len(digits) < 8 || len(digits) > 15 {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
