package formatting

import (
	"regexp"
	"strings"
)

var whitespacePattern = regexp.MustCompile(`\s+`)

var (
	parentheticalPattern  = regexp.MustCompile(`\([^)]*\)`)
	trailingDigitsPattern = regexp.MustCompile(`\s+\d+$`)
)

// CleanName trims a free-text name and collapses internal whitespace runs.
func CleanName(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	return whitespacePattern.ReplaceAllString(text, " ")
}

// NormalizeCampaign reduces a call-log campaign label to the code used by the
// pricing table: parenthetical groups and a trailing run of digits are
// dropped, e.g. "VENDOR-X (promo) 7" becomes "VENDOR-X".
func NormalizeCampaign(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = parentheticalPattern.ReplaceAllString(text, " ")
	text = CleanName(text)
	text = trailingDigitsPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Slug lowercases a label and joins its words with underscores. Colons and
// slashes count as separators, so "Premium:Cost" becomes "premium_cost".
func Slug(raw string) string {
	lower := strings.ToLower(strings.TrimSpace(raw))
	lower = slugSeparatorPattern.ReplaceAllString(lower, "_")
	lower = slugRunPattern.ReplaceAllString(lower, "_")
	return strings.Trim(lower, "_")
}

var (
	slugSeparatorPattern = regexp.MustCompile(`[\s:/]+`)
	slugRunPattern       = regexp.MustCompile(`_+`)
)
