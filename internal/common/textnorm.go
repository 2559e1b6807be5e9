// Package common provides shared utilities for Shisan
package common

import "strings"

// NormalizeText prepares Japanese security names and codes for matching:
// full-width alphanumerics become half-width, ASCII and ideographic spaces
// are removed, and the result is lower-cased.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r >= '０' && r <= '９': // full-width digits
			r -= 0xFEE0
		case r >= 'Ａ' && r <= 'Ｚ': // full-width uppercase
			r -= 0xFEE0
		case r >= 'ａ' && r <= 'ｚ': // full-width lowercase
			r -= 0xFEE0
		case r == ' ' || r == '　':
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// StripSpaces removes ASCII and ideographic spaces without case folding.
// Symbol codes keep their case; only whitespace variants are collapsed.
func StripSpaces(text string) string {
	return strings.NewReplacer(" ", "", "　", "").Replace(text)
}
