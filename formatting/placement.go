package formatting

import "strings"

// PlacementStatus is the normalized outcome of a submitted application.
type PlacementStatus string

const (
	PlacementUnknown          PlacementStatus = "Unknown"
	PlacementAdvanceReleased  PlacementStatus = "Advance Released"
	PlacementActiveInForce    PlacementStatus = "Active - In Force"
	PlacementDeclined         PlacementStatus = "Declined"
	PlacementNotYetPaid       PlacementStatus = "Not Yet Paid"
	PlacementLapsed           PlacementStatus = "Lapsed"
	PlacementCancelled        PlacementStatus = "Cancelled"
	PlacementSubmittedPending PlacementStatus = "Submitted - Pending"
)

// Counted reports whether the status contributes to revenue totals. Pending
// submissions are counted on purpose so totals reflect projected revenue.
func (s PlacementStatus) Counted() bool {
	switch s {
	case PlacementAdvanceReleased, PlacementActiveInForce, PlacementSubmittedPending:
		return true
	default:
		return false
	}
}

type placementRule struct {
	status   PlacementStatus
	keywords []string
}

// Evaluated in order; the first rule with a matching keyword wins.
var placementRules = []placementRule{
	{PlacementAdvanceReleased, []string{"advance"}},
	{PlacementActiveInForce, []string{"active", "in force"}},
	{PlacementDeclined, []string{"declined", "denied"}},
	{PlacementNotYetPaid, []string{"not paid", "not yet"}},
	{PlacementLapsed, []string{"lapse"}},
	{PlacementCancelled, []string{"cancelled", "canceled"}},
	{PlacementActiveInForce, []string{"yes", "placed", "approved"}},
}

// NormalizePlacement maps the free-text "Placed?" cell onto a PlacementStatus
// by case-insensitive substring containment. Empty input is a pending
// submission.
func NormalizePlacement(raw string) PlacementStatus {
	text := strings.TrimSpace(raw)
	if text == "" {
		return PlacementSubmittedPending
	}
	lower := strings.ToLower(text)
	switch lower {
	case "unknown", "n/a", "na":
		return PlacementUnknown
	}
	for _, rule := range placementRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.status
			}
		}
	}
	if dateLikePrefix.MatchString(text) {
		return PlacementActiveInForce
	}
	return PlacementSubmittedPending
}
