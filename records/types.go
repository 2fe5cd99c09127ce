package records

import (
	"github.com/shopspring/decimal"

	"pnl_dashboard/formatting"
)

// PricingEntry is one active publisher pricing rule, keyed by campaign code.
type PricingEntry struct {
	CampaignCode  string          `json:"campaignCode"`
	Vendor        string          `json:"vendor"`
	PricePerCall  decimal.Decimal `json:"pricePerCall"`
	BufferSeconds int             `json:"bufferSeconds"`
	Category      string          `json:"category"`
}

// CallRecord is a normalized call-log row. Cost is non-zero only for billable
// calls, and a call is billable only when its duration exceeds the campaign
// buffer.
type CallRecord struct {
	Date            string          `json:"date"`
	Rep             string          `json:"rep"`
	Campaign        string          `json:"campaign"`
	CampaignCode    string          `json:"campaignCode"`
	Vendor          string          `json:"vendor"`
	DurationSeconds int             `json:"duration"`
	BufferSeconds   int             `json:"buffer"`
	IsBillable      bool            `json:"isBillable"`
	Cost            decimal.Decimal `json:"cost"`
	PricePerCall    decimal.Decimal `json:"pricePerCall"`
	CallStatus      string          `json:"callStatus"`
	IsSale          bool            `json:"isSale"`
	CallType        string          `json:"callType"`
	State           string          `json:"state"`
}

// PolicyRecord is a normalized sales row.
type PolicyRecord struct {
	Agent                string                     `json:"agent"`
	LeadSource           string                     `json:"leadSource"`
	Carrier              string                     `json:"carrier"`
	Product              string                     `json:"product"`
	FaceAmount           decimal.Decimal            `json:"faceAmount"`
	Premium              decimal.Decimal            `json:"premium"`
	Outcome              string                     `json:"outcome"`
	Benefit              string                     `json:"benefit"`
	Placed               formatting.PlacementStatus `json:"placed"`
	SubmitDate           string                     `json:"submitDate"`
	EffectiveDate        *string                    `json:"effectiveDate"`
	State                string                     `json:"state"`
	Gender               string                     `json:"gender"`
	Age                  *int                       `json:"age"`
	PaymentFrequency     string                     `json:"paymentFrequency"`
	PaymentType          string                     `json:"paymentType"`
	SubmissionID         string                     `json:"submissionId"`
	Commission           decimal.Decimal            `json:"commission"`
	AdvanceMonths        int                        `json:"advanceMonths"`
	GrossAdvancedRevenue decimal.Decimal            `json:"grossAdvancedRevenue"`
}

// IsPlaced reports whether the policy counts toward revenue totals.
func (p PolicyRecord) IsPlaced() bool {
	return p.Placed.Counted()
}
