package rollups

import (
	"time"

	"pnl_dashboard/records"
)

// Build normalizes the raw rows, filters them to the range and aggregates
// them. It performs no I/O and never fails; bad rows degrade to defaults or
// are dropped.
func Build(in Input) Output {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	n := records.NewNormalizer(in.Policies, in.Commissions, in.Pricing, now)
	policies := FilterPolicies(n.Policies(in.Policies), in.Range)
	calls := FilterCalls(n.Calls(in.Calls), in.Range)

	out := Output{
		Policies:   policies,
		Calls:      calls,
		Publishers: ByPublisher(policies, calls, n.Pricing),
		Carriers:   ByCarrier(policies),
		Agents:     ByAgent(policies, calls),
	}
	out.Meta = Meta{
		PolicyCount:    len(out.Policies),
		CallCount:      len(out.Calls),
		PublisherCount: len(out.Publishers),
		CarrierCount:   len(out.Carriers),
		AgentCount:     len(out.Agents),
		DateRange:      in.Range,
		GeneratedAt:    now.UTC(),
	}
	return out
}

func FilterPolicies(policies []records.PolicyRecord, r DateRange) []records.PolicyRecord {
	out := make([]records.PolicyRecord, 0, len(policies))
	for _, p := range policies {
		if r.Contains(p.SubmitDate) {
			out = append(out, p)
		}
	}
	return out
}

func FilterCalls(calls []records.CallRecord, r DateRange) []records.CallRecord {
	out := make([]records.CallRecord, 0, len(calls))
	for _, c := range calls {
		if r.Contains(c.Date) {
			out = append(out, c)
		}
	}
	return out
}
