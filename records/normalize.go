package records

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pnl_dashboard/commission"
	"pnl_dashboard/formatting"
	"pnl_dashboard/reconcile"
)

const (
	shortAdvanceMonths    = 6
	standardAdvanceMonths = 9
)

// AdvanceMonths is the number of months of premium a carrier advances.
func AdvanceMonths(carrier string) int {
	if strings.Contains(strings.ToLower(carrier), "cica") {
		return shortAdvanceMonths
	}
	return standardAdvanceMonths
}

// BuildRoster collects the distinct agent names of every sales row, before any
// date filtering, in first-seen order.
func BuildRoster(policyRows []map[string]string) *reconcile.Roster {
	roster := reconcile.NewRoster()
	for _, row := range policyRows {
		roster.Add(formatting.Field(row, "Agent"))
	}
	return roster
}

// Normalizer turns raw sheet rows into typed records. Rows missing their
// mandatory columns are dropped rather than reported.
type Normalizer struct {
	Schedule commission.Schedule
	Pricing  Pricing
	Roster   *reconcile.Roster
	Now      time.Time
}

func NewNormalizer(policyRows, commissionRows, pricingRows []map[string]string, now time.Time) *Normalizer {
	return &Normalizer{
		Schedule: commission.ParseSchedule(commissionRows),
		Pricing:  ParsePricing(pricingRows),
		Roster:   BuildRoster(policyRows),
		Now:      now,
	}
}

// Policy normalizes one sales row. ok is false when the row has no agent or
// no parseable submit date.
func (n *Normalizer) Policy(row map[string]string) (PolicyRecord, bool) {
	agent := formatting.Field(row, "Agent")
	submitted := formatting.Field(row, "Application Submitted Date")
	if agent == "" || submitted == "" {
		return PolicyRecord{}, false
	}
	submitDate, ok := formatting.ParseDate(submitted)
	if !ok {
		return PolicyRecord{}, false
	}

	carrier := formatting.Field(row, "Carrier")
	product := formatting.Field(row, "Product")
	premium := formatting.ParseMoney(formatting.Field(row, "Monthly Premium"))
	age := n.age(formatting.Field(row, "Date of Birth"))
	months := AdvanceMonths(carrier)

	rec := PolicyRecord{
		Agent:                agent,
		LeadSource:           formatting.Field(row, "Lead Source"),
		Carrier:              carrier,
		Product:              product,
		FaceAmount:           formatting.ParseMoney(formatting.Field(row, "Face Amount")),
		Premium:              premium,
		Outcome:              formatting.Field(row, "Outcome at Application Submission"),
		Benefit:              formatting.Field(row, "Benefit Payout"),
		Placed:               formatting.NormalizePlacement(row["Placed?"]),
		SubmitDate:           submitDate,
		State:                formatting.Field(row, "State"),
		Gender:               formatting.Field(row, "Gender"),
		Age:                  age,
		PaymentFrequency:     formatting.Field(row, "Payment Frequency"),
		PaymentType:          formatting.Field(row, "Payment Type"),
		SubmissionID:         formatting.Field(row, "Submission ID"),
		Commission:           n.Schedule.Commission(premium, carrier, product, age),
		AdvanceMonths:        months,
		GrossAdvancedRevenue: formatting.NonNegative(premium.Mul(decimal.NewFromInt(int64(months)))),
	}
	if effective, ok := formatting.ParseDate(formatting.Field(row, "Effective Date")); ok {
		rec.EffectiveDate = &effective
	}
	return rec, true
}

func (n *Normalizer) age(dob string) *int {
	iso, ok := formatting.ParseDate(dob)
	if !ok {
		return nil
	}
	year := formatting.YearOf(iso)
	if year <= 1900 {
		return nil
	}
	age := n.Now.Year() - year
	if age < 0 {
		return nil
	}
	return &age
}

// Call normalizes one call-log row. ok is false when the row has no
// parseable date.
func (n *Normalizer) Call(row map[string]string) (CallRecord, bool) {
	raw := formatting.Field(row, "Date")
	if raw == "" {
		return CallRecord{}, false
	}
	date, ok := formatting.ParseDate(raw)
	if !ok {
		return CallRecord{}, false
	}

	campaign := formatting.Field(row, "Campaign")
	code := formatting.NormalizeCampaign(campaign)
	price, _ := n.Pricing.Lookup(code)
	duration := formatting.ParseDuration(row["Duration"])
	billable := duration > price.BufferSeconds
	status := formatting.Field(row, "Call Status")

	rec := CallRecord{
		Date:            date,
		Rep:             n.resolveRep(formatting.Field(row, "Rep")),
		Campaign:        campaign,
		CampaignCode:    code,
		Vendor:          price.Vendor,
		DurationSeconds: duration,
		BufferSeconds:   price.BufferSeconds,
		IsBillable:      billable,
		PricePerCall:    price.PricePerCall,
		CallStatus:      status,
		IsSale:          strings.EqualFold(status, "sale"),
		CallType:        formatting.Field(row, "Call Type"),
		State:           formatting.Field(row, "State"),
	}
	if billable {
		rec.Cost = formatting.NonNegative(price.PricePerCall)
	}
	return rec, true
}

func (n *Normalizer) resolveRep(raw string) string {
	if raw == "" || n.Roster == nil {
		return raw
	}
	return n.Roster.Resolve(raw)
}

func (n *Normalizer) Policies(rows []map[string]string) []PolicyRecord {
	out := make([]PolicyRecord, 0, len(rows))
	for _, row := range rows {
		if rec, ok := n.Policy(row); ok {
			out = append(out, rec)
		}
	}
	return out
}

func (n *Normalizer) Calls(rows []map[string]string) []CallRecord {
	out := make([]CallRecord, 0, len(rows))
	for _, row := range rows {
		if rec, ok := n.Call(row); ok {
			out = append(out, rec)
		}
	}
	return out
}
