package rollups

import (
	"time"

	"github.com/shopspring/decimal"

	"pnl_dashboard/records"
)

const unknownKey = "Unknown"

// DateRange bounds records by ISO date, inclusive on both ends. An empty
// bound is open.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Contains compares ISO dates lexically, which orders them chronologically.
func (r DateRange) Contains(iso string) bool {
	if r.Start != "" && iso < r.Start {
		return false
	}
	if r.End != "" && iso > r.End {
		return false
	}
	return true
}

// Totals are the running sums folded into every bucket. Money is summed
// exactly; premium, commission, face and GAR only include placed policies.
type Totals struct {
	TotalCalls           int             `json:"totalCalls"`
	BillableCalls        int             `json:"billableCalls"`
	LeadSpend            decimal.Decimal `json:"leadSpend"`
	Sales                int             `json:"sales"`
	PlacedCount          int             `json:"placedCount"`
	AppCount             int             `json:"appCount"`
	TotalPremium         decimal.Decimal `json:"totalPremium"`
	TotalCommission      decimal.Decimal `json:"totalCommission"`
	TotalFace            decimal.Decimal `json:"totalFace"`
	GrossAdvancedRevenue decimal.Decimal `json:"grossAdvancedRevenue"`
}

// Metrics are derived from Totals once folding is done. A nil ratio had a
// zero denominator and encodes as null.
type Metrics struct {
	BillableRate  *float64        `json:"billableRate"`
	RPC           *float64        `json:"rpc"`
	CloseRate     *float64        `json:"closeRate"`
	CPA           *float64        `json:"cpa"`
	AvgPremium    *float64        `json:"avgPremium"`
	PremiumToCost *float64        `json:"premiumToCost"`
	NetRevenue    decimal.Decimal `json:"netRevenue"`
}

// Rollup is one row of a publisher, carrier or agent report. Publisher rows
// carry the pricing vendor and a per-agent breakdown; carrier rows carry the
// carrier and product.
type Rollup struct {
	Key          string          `json:"key"`
	Vendor       string          `json:"vendor,omitempty"`
	PricePerCall decimal.Decimal `json:"pricePerCall,omitzero"`
	Carrier      string          `json:"carrier,omitempty"`
	Product      string          `json:"product,omitempty"`
	Totals
	Metrics
	Agents []Rollup `json:"agentBreakdown,omitempty"`
}

// Input is one aggregation request: the four raw row sets as read from their
// tables plus the date range. A zero Now means the current time.
type Input struct {
	Policies    []map[string]string
	Calls       []map[string]string
	Commissions []map[string]string
	Pricing     []map[string]string
	Range       DateRange
	Now         time.Time
}

type Meta struct {
	PolicyCount    int       `json:"policyCount"`
	CallCount      int       `json:"callCount"`
	PublisherCount int       `json:"publisherCount"`
	CarrierCount   int       `json:"carrierCount"`
	AgentCount     int       `json:"agentCount"`
	DateRange      DateRange `json:"dateRange"`
	GeneratedAt    time.Time `json:"generatedAt"`
}

// Output is the full dashboard: the filtered records and the three reports.
type Output struct {
	Policies   []records.PolicyRecord `json:"policies"`
	Calls      []records.CallRecord   `json:"calls"`
	Publishers []Rollup               `json:"pnl"`
	Carriers   []Rollup               `json:"carriers"`
	Agents     []Rollup               `json:"agents"`
	Meta       Meta                   `json:"meta"`
}
