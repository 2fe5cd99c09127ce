package config

import (
	"os"
	"strings"
)

// TableRef addresses one tab of one spreadsheet. For the CSV backend the tab
// is the file stem inside the snapshot directory.
type TableRef struct {
	SheetID string `json:"sheet_id" yaml:"sheet_id"`
	Tab     string `json:"tab" yaml:"tab"`
}

// Key is the cache key for the table.
func (r TableRef) Key() string {
	return r.SheetID + ":" + r.Tab
}

func (r TableRef) IsZero() bool {
	return strings.TrimSpace(r.Tab) == ""
}

// Table names used throughout the service and the settings API.
const (
	TableSales        = "sales"
	TableCallLogs     = "calllogs"
	TableCommission   = "commission"
	TablePricing      = "pricing"
	TableCompanyGoals = "companyGoals"
	TableAgentGoals   = "agentGoals"
)

// Tables locates every source table.
type Tables struct {
	Sales        TableRef `json:"sales" yaml:"sales"`
	CallLogs     TableRef `json:"calllogs" yaml:"calllogs"`
	Commission   TableRef `json:"commission" yaml:"commission"`
	Pricing      TableRef `json:"pricing" yaml:"pricing"`
	CompanyGoals TableRef `json:"company_goals" yaml:"company_goals"`
	AgentGoals   TableRef `json:"agent_goals" yaml:"agent_goals"`
}

func defaultTables() Tables {
	return Tables{
		Sales:        TableRef{Tab: "Sheet1"},
		CallLogs:     TableRef{Tab: "Report"},
		Commission:   TableRef{Tab: "Sheet1"},
		Pricing:      TableRef{Tab: "Publisher Pricing"},
		CompanyGoals: TableRef{Tab: "Company Daily Goals"},
		AgentGoals:   TableRef{Tab: "Agent Daily Goals"},
	}
}

// Lookup returns the table registered under name.
func (t Tables) Lookup(name string) (TableRef, bool) {
	switch name {
	case TableSales:
		return t.Sales, true
	case TableCallLogs:
		return t.CallLogs, true
	case TableCommission:
		return t.Commission, true
	case TablePricing:
		return t.Pricing, true
	case TableCompanyGoals:
		return t.CompanyGoals, true
	case TableAgentGoals:
		return t.AgentGoals, true
	}
	return TableRef{}, false
}

// Names lists table names in a stable order.
func (t Tables) Names() []string {
	return []string{TableSales, TableCallLogs, TableCommission, TablePricing, TableCompanyGoals, TableAgentGoals}
}

func mergeTable(base, file TableRef, sheetEnv, tabEnv string) TableRef {
	base.SheetID = firstNonEmpty(os.Getenv(sheetEnv), file.SheetID, base.SheetID)
	base.Tab = firstNonEmpty(os.Getenv(tabEnv), file.Tab, base.Tab)
	return base
}

// applyTableOverrides layers file values and then environment variables over
// the defaults. Pricing and both goal tabs share GOALS_SHEET_ID.
func applyTableOverrides(base Tables, file Tables) Tables {
	base.Sales = mergeTable(base.Sales, file.Sales, "SALES_SHEET_ID", "SALES_TAB_NAME")
	base.CallLogs = mergeTable(base.CallLogs, file.CallLogs, "CALLLOGS_SHEET_ID", "CALLLOGS_TAB_NAME")
	base.Commission = mergeTable(base.Commission, file.Commission, "COMMISSION_SHEET_ID", "COMMISSION_TAB_NAME")
	base.Pricing = mergeTable(base.Pricing, file.Pricing, "GOALS_SHEET_ID", "GOALS_PRICING_TAB")
	base.CompanyGoals = mergeTable(base.CompanyGoals, file.CompanyGoals, "GOALS_SHEET_ID", "COMPANY_GOALS_TAB")
	base.AgentGoals = mergeTable(base.AgentGoals, file.AgentGoals, "GOALS_SHEET_ID", "AGENT_GOALS_TAB")
	return base
}
