package goals

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"pnl_dashboard/formatting"
)

// AgentGoal is one agent's daily targets.
type AgentGoal struct {
	AppsPerDay    float64 `json:"appsPerDay"`
	PremiumTarget float64 `json:"premiumTarget"`
	CloseRate     float64 `json:"closeRate"`
}

// Goals is the goals payload: company-wide targets keyed by slug and agent
// targets keyed by agent name.
type Goals struct {
	Company map[string]float64   `json:"company"`
	Agents  map[string]AgentGoal `json:"agents"`
}

var defaults = map[string]float64{
	"cpa":                250,
	"rpc":                35,
	"close_rate":         5,
	"placement_rate":     80,
	"billable_rate":      65,
	"avg_premium":        70,
	"apps_submitted":     5,
	"policies_placed":    3,
	"total_calls":        50,
	"billable_calls":     35,
	"monthly_premium":    500,
	"gross_adv_revenue":  4000,
	"lead_spend":         1500,
	"agent_commission":   1000,
	"net_revenue":        2000,
	"premium_cost_ratio": 2.5,
}

// aliases maps legacy sheet labels, slugged, onto canonical keys. Lookups
// also try the slug with underscores removed.
var aliases = map[string]string{
	"conversionrate":         "close_rate",
	"conversion_rate":        "close_rate",
	"placementrate":          "placement_rate",
	"closerate":              "close_rate",
	"billablerate":           "billable_rate",
	"avgpremium":             "avg_premium",
	"avg_prem":               "avg_premium",
	"monthlypremium":         "monthly_premium",
	"premium_target":         "monthly_premium",
	"premiumtarget":          "monthly_premium",
	"grossadvrevenue":        "gross_adv_revenue",
	"gross_advanced_revenue": "gross_adv_revenue",
	"agentcommission":        "agent_commission",
	"netrevenue":             "net_revenue",
	"leadspend":              "lead_spend",
	"totalcalls":             "total_calls",
	"billablecalls":          "billable_calls",
	"appssubmitted":          "apps_submitted",
	"apps_per_day":           "apps_submitted",
	"policiesplaced":         "policies_placed",
	"policies_per_day":       "policies_placed",
	"premiumcost":            "premium_cost_ratio",
	"premium_cost":           "premium_cost_ratio",
}

// Defaults returns a copy of the built-in company goals.
func Defaults() map[string]float64 {
	out := make(map[string]float64, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	return out
}

var (
	goalValueReplacer = strings.NewReplacer("$", "", ",", "", "%", "", "x", "", "X", "")
	leadingNumber     = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)`)
)

// ParseValue reads the leading number of a goal cell after dropping currency,
// percent and multiplier marks, so "$1,500", "65%" and "2.5x" all parse.
// Anything else is 0.
func ParseValue(raw string) float64 {
	text := strings.TrimSpace(goalValueReplacer.Replace(raw))
	m := leadingNumber.FindString(text)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseCompany reads Metric/Value rows into slugged keys, applies the alias
// table and fills every missing goal from the defaults. Rows with no label
// or a zero value are ignored.
func ParseCompany(rows []map[string]string) map[string]float64 {
	company := make(map[string]float64)
	for _, row := range rows {
		label := formatting.Field(row, "Metric", "Goal", "Name")
		value := ParseValue(formatting.Field(row, "Value", "Target"))
		if label == "" || value == 0 {
			continue
		}
		if key := formatting.Slug(label); key != "" {
			company[key] = value
		}
	}

	keys := make([]string, 0, len(company))
	for k := range company {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := company[k]
		for _, candidate := range []string{k, strings.ReplaceAll(k, "_", "")} {
			canonical, ok := aliases[candidate]
			if !ok {
				continue
			}
			if _, set := company[canonical]; !set {
				company[canonical] = v
			}
		}
	}

	for k, v := range defaults {
		if _, ok := company[k]; !ok {
			company[k] = v
		}
	}
	return company
}

// ParseAgents reads per-agent targets. Rows without an agent name are
// skipped; a repeated name keeps the last row.
func ParseAgents(rows []map[string]string) map[string]AgentGoal {
	agents := make(map[string]AgentGoal)
	for _, row := range rows {
		name := formatting.Field(row, "Agent", "Name")
		if name == "" {
			continue
		}
		agents[name] = AgentGoal{
			AppsPerDay:    ParseValue(formatting.Field(row, "Apps/Day", "Apps Per Day")),
			PremiumTarget: ParseValue(formatting.Field(row, "Premium Target", "Premium")),
			CloseRate:     ParseValue(formatting.Field(row, "Close Rate")),
		}
	}
	return agents
}
