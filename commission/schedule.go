package commission

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"pnl_dashboard/formatting"
)

var ageRangePattern = regexp.MustCompile(`(\d+)\s*-\s*(\d+)`)

// AgeRange is an inclusive issue-age band. Any marks a "n/a" band that
// accepts every age; a band that is neither n/a nor numeric accepts none.
type AgeRange struct {
	Raw   string
	Min   int
	Max   int
	Any   bool
	valid bool
}

func ParseAgeRange(raw string) AgeRange {
	text := strings.TrimSpace(raw)
	lower := strings.ToLower(text)
	if lower == "" || lower == "n/a" || lower == "na" {
		return AgeRange{Raw: "n/a", Any: true}
	}
	m := ageRangePattern.FindStringSubmatch(text)
	if m == nil {
		return AgeRange{Raw: text}
	}
	lo, _ := strconv.Atoi(m[1])
	hi, _ := strconv.Atoi(m[2])
	return AgeRange{Raw: text, Min: lo, Max: hi, valid: true}
}

// Contains reports age eligibility. An unknown age is eligible everywhere.
func (r AgeRange) Contains(age *int) bool {
	if age == nil || r.Any {
		return true
	}
	if !r.valid {
		return false
	}
	return *age >= r.Min && *age <= r.Max
}

func (r AgeRange) String() string {
	return r.Raw
}

func (r AgeRange) MarshalText() ([]byte, error) {
	return []byte(r.Raw), nil
}

// RateEntry is one row of the commission schedule.
type RateEntry struct {
	Carrier       string          `json:"carrier"`
	Product       string          `json:"product"`
	AgeRange      AgeRange        `json:"ageRange"`
	Rate          decimal.Decimal `json:"commissionRate"`
	AdvanceLength string          `json:"advanceLength,omitempty"`
}

// Schedule is the full commission table. Entries are not unique by carrier;
// lookups score every entry.
type Schedule []RateEntry

// ParseSchedule converts raw commission rows. Rows missing a carrier or a
// rate are skipped.
func ParseSchedule(rows []map[string]string) Schedule {
	out := make(Schedule, 0, len(rows))
	for _, row := range rows {
		carrier := formatting.Field(row, "Carrier")
		rate := formatting.Field(row, "Commission Rate")
		if carrier == "" || rate == "" {
			continue
		}
		out = append(out, RateEntry{
			Carrier:       carrier,
			Product:       formatting.Field(row, "Product"),
			AgeRange:      ParseAgeRange(formatting.Field(row, "Age range", "Age Range")),
			Rate:          formatting.ParseRate(rate),
			AdvanceLength: formatting.Field(row, "Advance Length"),
		})
	}
	return out
}
