package workflow

import (
	"strings"
	"unicode"
)

var districtSuffixes = map[string]bool{
	"division": true,
	"office":   true,
	"district": true,
}

// DistrictMatches compares two free-text district labels. Labels are lowercased,
// punctuation and administrative suffixes are dropped, then the labels match on
// equality or when one token set contains the other.
func DistrictMatches(a, b string) bool {
	ta := districtTokens(a)
	tb := districtTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return false
	}
	if strings.Join(ta, " ") == strings.Join(tb, " ") {
		return true
	}
	return containsAll(ta, tb) || containsAll(tb, ta)
}

// CanonicalDistrict is the lowercased label without punctuation or administrative suffixes
func CanonicalDistrict(s string) string {
	return strings.Join(districtTokens(s), " ")
}

func districtTokens(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if !districtSuffixes[f] {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// containsAll reports whether every token of sub appears in set
func containsAll(set, sub []string) bool {
	seen := make(map[string]bool, len(set))
	for _, t := range set {
		seen[t] = true
	}
	for _, t := range sub {
		if !seen[t] {
			return false
		}
	}
	return true
}
