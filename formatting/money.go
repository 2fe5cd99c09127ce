package formatting

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	moneyReplacer = strings.NewReplacer("$", "", ",", "", " ", "")
	hundred       = decimal.NewFromInt(100)
)

func init() {
	// Money fields encode as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// ParseMoney reads a currency cell like "$1,250.50" exactly. Unparseable
// cells are zero.
func ParseMoney(raw string) decimal.Decimal {
	d, ok := parseDecimal(moneyReplacer.Replace(strings.TrimSpace(raw)))
	if !ok {
		return decimal.Zero
	}
	return d
}

// ParseRate reads a commission rate cell as a fraction of premium. The cell
// is always a percentage: "85%" and "85" are 0.85, "1" is 0.01.
func ParseRate(raw string) decimal.Decimal {
	text := strings.TrimSuffix(moneyReplacer.Replace(strings.TrimSpace(raw)), "%")
	d, ok := parseDecimal(text)
	if !ok {
		return decimal.Zero
	}
	return d.Div(hundred)
}

// NonNegative clamps an amount at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func parseDecimal(text string) (decimal.Decimal, bool) {
	if text == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
