package commission

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func intPtr(v int) *int { return &v }

func entry(carrier, product, ages string, rate float64) RateEntry {
	return RateEntry{Carrier: carrier, Product: product, AgeRange: ParseAgeRange(ages), Rate: decimal.NewFromFloat(rate)}
}

func rateIs(d decimal.Decimal, want string) bool {
	return d.Equal(decimal.RequireFromString(want))
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestTokensDropStopWords(t *testing.T) {
	got := Tokens("The Final Expense - Life Insurance (Graded)")
	if len(got) != 1 || !got.Has("graded") {
		t.Fatalf("expected only graded, got %v", got)
	}
	got = Tokens("Mutual of Omaha")
	if len(got) != 2 || !got.Has("mutual") || !got.Has("omaha") {
		t.Fatalf("unexpected tokens %v", got)
	}
}

func TestOverlapUsesSmallerSet(t *testing.T) {
	a := Tokens("alpha beta")
	b := Tokens("beta gamma delta")
	if got := Overlap(a, b); !almostEqual(got, 0.5) {
		t.Fatalf("expected 0.5, got %v", got)
	}
	if got := Overlap(a, Tokens("life insurance")); got != 0 {
		t.Fatalf("expected 0 for empty set, got %v", got)
	}
}

func TestTypeBonusTable(t *testing.T) {
	cases := []struct {
		policy, entry string
		want          float64
	}{
		{"Graded Whole Life", "Graded", 0.3},
		{"Graded", "Immediate", -0.5},
		{"Return of Premium", "ROP", 0.3},
		{"ROP Term", "Level Term", -0.5},
		{"Whole Life", "Graded Benefit", -0.3},
		{"Whole Life", "Immediate Benefit", 0.2},
		{"Whole Life", "Standard", 0.2},
		{"Whole Life", "Whole Life", 0.1},
	}
	for _, c := range cases {
		if got := TypeBonus(c.policy, c.entry); !almostEqual(got, c.want) {
			t.Errorf("TypeBonus(%q, %q) = %v, want %v", c.policy, c.entry, got, c.want)
		}
	}
}

func TestLowCarrierOverlapNeverSelected(t *testing.T) {
	schedule := Schedule{entry("Mutual of Omaha", "Living Promise Level", "n/a", 0.9)}
	if ranked := schedule.Rank("Americo", "Living Promise Level", intPtr(60)); len(ranked) != 0 {
		t.Fatalf("expected no candidates, got %+v", ranked)
	}
	if got := schedule.Commission(decimal.NewFromInt(100), "Americo", "Living Promise Level", nil); !got.IsZero() {
		t.Fatalf("expected zero commission, got %v", got)
	}
}

func TestAgeEligibleWinsTie(t *testing.T) {
	schedule := Schedule{
		entry("CICA", "Standard Whole Life", "0-49", 0.70),
		entry("CICA", "Standard Whole Life", "50-80", 0.85),
	}
	ranked := schedule.Rank("CICA Life", "Standard Whole Life", intPtr(60))
	if len(ranked) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(ranked))
	}
	if !almostEqual(ranked[0].Score, ranked[1].Score) {
		t.Fatalf("expected tied scores, got %v and %v", ranked[0].Score, ranked[1].Score)
	}
	if !ranked[0].AgeEligible || !rateIs(ranked[0].Entry.Rate, "0.85") {
		t.Fatalf("expected age-eligible entry first, got %+v", ranked[0])
	}

	ranked = schedule.Rank("CICA Life", "Standard Whole Life", nil)
	if !rateIs(ranked[0].Entry.Rate, "0.7") {
		t.Fatalf("unknown age should keep schedule order, got %+v", ranked[0])
	}
}

func TestEligibleGroupBeatsHigherScore(t *testing.T) {
	schedule := Schedule{
		entry("Aetna", "Accendo Preferred", "0-40", 0.9),
		entry("Aetna", "Accendo Standard", "41-85", 0.6),
	}
	ranked := schedule.Rank("Aetna", "Accendo Preferred", intPtr(70))
	if len(ranked) != 2 || ranked[1].Score <= ranked[0].Score {
		t.Fatalf("expected the ineligible entry to outscore the winner, got %+v", ranked)
	}
	best, ok := schedule.Resolve("Aetna", "Accendo Preferred", intPtr(70))
	if !ok {
		t.Fatal("expected a candidate")
	}
	if !rateIs(best.Entry.Rate, "0.6") {
		t.Fatalf("expected the age-eligible entry, got %+v", best)
	}
}

func TestGradedPrefersGraded(t *testing.T) {
	schedule := Schedule{
		entry("Golden Eagle", "Whole Life Immediate", "n/a", 0.9),
		entry("Golden Eagle", "Graded", "n/a", 0.6),
	}
	ranked := schedule.Rank("Golden Eagle", "Graded Whole Life", nil)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 candidates, got %+v", ranked)
	}
	if ranked[0].Entry.Product != "Graded" || !almostEqual(ranked[0].Score, 0.86) {
		t.Fatalf("unexpected winner %+v", ranked[0])
	}
	if !almostEqual(ranked[1].Score, 0.5) {
		t.Fatalf("unexpected runner-up score %v", ranked[1].Score)
	}
	if got := schedule.Commission(decimal.NewFromInt(100), "Golden Eagle", "Graded Whole Life", nil); !rateIs(got, "60") {
		t.Fatalf("expected 60, got %v", got)
	}
}

func TestLowScoreDiscarded(t *testing.T) {
	schedule := Schedule{entry("Royal Arcanum", "Term", "n/a", 0.5)}
	if ranked := schedule.Rank("Royal Neighbors", "Graded", nil); len(ranked) != 0 {
		t.Fatalf("expected score 0.1 to be discarded, got %+v", ranked)
	}
}

func TestUnparseableAgeRange(t *testing.T) {
	r := ParseAgeRange("varies")
	if r.Contains(intPtr(40)) {
		t.Fatal("unparseable band should reject a known age")
	}
	if !r.Contains(nil) {
		t.Fatal("unknown age is always eligible")
	}
	if !ParseAgeRange("").Contains(intPtr(99)) {
		t.Fatal("blank band means n/a")
	}
	band := ParseAgeRange("50 - 80")
	if !band.Contains(intPtr(50)) || !band.Contains(intPtr(80)) || band.Contains(intPtr(81)) {
		t.Fatalf("bounds should be inclusive: %+v", band)
	}
}

func TestMissingCarrierOrProduct(t *testing.T) {
	schedule := Schedule{entry("CICA", "Standard", "n/a", 0.8)}
	if _, ok := schedule.Resolve("", "Standard", nil); ok {
		t.Fatal("blank carrier should not resolve")
	}
	if _, ok := schedule.Resolve("CICA", " ", nil); ok {
		t.Fatal("blank product should not resolve")
	}
}

func TestParseSchedule(t *testing.T) {
	rows := []map[string]string{
		{"Carrier": "CICA", "Product": "Standard", "Commission Rate": "85%", "Age Range": "0-80", "Advance Length": "6 months"},
		{"Carrier": "Americo", "Product": "Eagle", "Commission Rate": "95", "Age range": "n/a"},
		{"Carrier": "Blank Rate", "Product": "x", "Commission Rate": ""},
		{"Carrier": "", "Product": "y", "Commission Rate": "50"},
	}
	schedule := ParseSchedule(rows)
	if len(schedule) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(schedule))
	}
	if !rateIs(schedule[0].Rate, "0.85") || schedule[0].AgeRange.Min != 0 || schedule[0].AgeRange.Max != 80 {
		t.Fatalf("unexpected first entry %+v", schedule[0])
	}
	if schedule[0].AdvanceLength != "6 months" {
		t.Fatalf("expected advance length, got %q", schedule[0].AdvanceLength)
	}
	if !schedule[1].AgeRange.Any || !rateIs(schedule[1].Rate, "0.95") {
		t.Fatalf("unexpected second entry %+v", schedule[1])
	}
}
