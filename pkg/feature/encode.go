package feature

import (
	"regexp"
	"strconv"
	"strings"
)

// enrollmentPattern matches a number with an optional K/M magnitude suffix
// anywhere in the string, e.g. "1.2M", "950K", "500", "about 12K students".
var enrollmentPattern = regexp.MustCompile(`([\d.]+)\s*([KM]?)`)

// ParseEnrollment converts a human-readable enrollment magnitude string to a
// numeric count: a trailing K multiplies by 1,000 and M by 1,000,000.
// Missing or unparseable values map to 0.
func ParseEnrollment(s string) float64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0
	}

	m := enrollmentPattern.FindStringSubmatch(s)
	if m == nil {
		return 0
	}

	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}

	switch m[2] {
	case "M":
		return n * 1_000_000
	case "K":
		return n * 1_000
	default:
		return n
	}
}

// EncodeDifficulty maps a difficulty label to its ordinal score. Mixed sits
// between Intermediate and Advanced; anything unrecognized is treated as
// Intermediate-equivalent, a deliberate simplification.
func EncodeDifficulty(difficulty string) float64 {
	switch strings.TrimSpace(difficulty) {
	case "Beginner":
		return 1
	case "Intermediate":
		return 2
	case "Advanced":
		return 3
	case "Mixed":
		return 2.5
	default:
		return 2
	}
}
