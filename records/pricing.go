package records

import (
	"strings"

	"pnl_dashboard/formatting"
)

var (
	priceColumns  = []string{"Price per Billable Call ($)", "Price per Billable Call", "Price"}
	bufferColumns = []string{"Buffer", "Buffer (sec)", "Buffer (seconds)", "Billable Buffer"}
)

// Pricing maps campaign code to its active pricing entry.
type Pricing map[string]PricingEntry

// ParsePricing builds the active pricing map. Rows without a campaign code or
// with an inactive status are skipped; a repeated code keeps the last row.
func ParsePricing(rows []map[string]string) Pricing {
	out := make(Pricing, len(rows))
	for _, row := range rows {
		code := formatting.Field(row, "Campaign Code")
		if code == "" {
			continue
		}
		if strings.EqualFold(formatting.Field(row, "Status"), "inactive") {
			continue
		}
		out[code] = PricingEntry{
			CampaignCode:  code,
			Vendor:        formatting.Field(row, "Vendor"),
			PricePerCall:  formatting.ParseMoney(formatting.Field(row, priceColumns...)),
			BufferSeconds: formatting.ParseSeconds(formatting.Field(row, bufferColumns...)),
			Category:      formatting.Field(row, "Category"),
		}
	}
	return out
}

func (p Pricing) Lookup(code string) (PricingEntry, bool) {
	entry, ok := p[code]
	return entry, ok
}
