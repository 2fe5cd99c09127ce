package rollups

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"pnl_dashboard/records"
)

func (t *Totals) addCall(c records.CallRecord) {
	t.TotalCalls++
	if c.IsBillable {
		t.BillableCalls++
		t.LeadSpend = t.LeadSpend.Add(c.Cost)
	}
	if c.IsSale {
		t.Sales++
	}
}

func (t *Totals) addPolicy(p records.PolicyRecord) {
	t.AppCount++
	if !p.IsPlaced() {
		return
	}
	t.PlacedCount++
	t.TotalPremium = t.TotalPremium.Add(p.Premium)
	t.TotalCommission = t.TotalCommission.Add(p.Commission)
	t.TotalFace = t.TotalFace.Add(p.FaceAmount)
	t.GrossAdvancedRevenue = t.GrossAdvancedRevenue.Add(p.GrossAdvancedRevenue)
}

// Derive computes the ratio metrics for a set of totals. Ratios are divided
// in decimal and only then converted to float; net revenue stays exact.
func Derive(t Totals) Metrics {
	calls := decimal.NewFromInt(int64(t.TotalCalls))
	billable := decimal.NewFromInt(int64(t.BillableCalls))
	placed := decimal.NewFromInt(int64(t.PlacedCount))
	return Metrics{
		BillableRate:  ratio(billable, calls, 100),
		RPC:           ratio(t.LeadSpend, calls, 1),
		CloseRate:     ratio(placed, billable, 100),
		CPA:           ratio(t.LeadSpend, placed, 1),
		AvgPremium:    ratio(t.TotalPremium, placed, 1),
		PremiumToCost: ratio(t.TotalPremium, t.LeadSpend, 1),
		NetRevenue:    t.GrossAdvancedRevenue.Sub(t.LeadSpend).Sub(t.TotalCommission),
	}
}

func ratio(num, den decimal.Decimal, scale int64) *float64 {
	if den.IsZero() {
		return nil
	}
	v := num.Mul(decimal.NewFromInt(scale)).Div(den).InexactFloat64()
	return &v
}

type bucket struct {
	row    Rollup
	agents *bucketSet
}

// bucketSet keeps buckets in first-seen order so folding is independent of
// map iteration.
type bucketSet struct {
	index map[string]int
	items []*bucket
}

func newBucketSet() *bucketSet {
	return &bucketSet{index: make(map[string]int)}
}

func (s *bucketSet) get(key string, init func(*Rollup)) *bucket {
	if i, ok := s.index[key]; ok {
		return s.items[i]
	}
	b := &bucket{row: Rollup{Key: key}}
	if init != nil {
		init(&b.row)
	}
	s.index[key] = len(s.items)
	s.items = append(s.items, b)
	return b
}

func (s *bucketSet) rollups() []Rollup {
	out := make([]Rollup, 0, len(s.items))
	for _, b := range s.items {
		row := b.row
		row.Metrics = Derive(row.Totals)
		if b.agents != nil {
			row.Agents = b.agents.rollups()
		}
		out = append(out, row)
	}
	sortRollups(out)
	return out
}

// sortRollups orders by total premium, highest first, then key.
func sortRollups(rows []Rollup) {
	sort.SliceStable(rows, func(i, j int) bool {
		if c := rows[i].TotalPremium.Cmp(rows[j].TotalPremium); c != 0 {
			return c > 0
		}
		return rows[i].Key < rows[j].Key
	})
}

func keyOr(value string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return unknownKey
}

// ByPublisher folds calls by normalized campaign code and policies by lead
// source into one key space, with a per-agent breakdown inside each key.
func ByPublisher(policies []records.PolicyRecord, calls []records.CallRecord, pricing records.Pricing) []Rollup {
	set := newBucketSet()
	agentsOf := func(b *bucket) *bucketSet {
		if b.agents == nil {
			b.agents = newBucketSet()
		}
		return b.agents
	}
	for _, c := range calls {
		b := set.get(keyOr(c.CampaignCode), func(r *Rollup) {
			r.Vendor = c.Vendor
			r.PricePerCall = c.PricePerCall
		})
		b.row.addCall(c)
		agents := agentsOf(b)
		if c.Rep != "" {
			agents.get(c.Rep, nil).row.addCall(c)
		}
	}
	for _, p := range policies {
		key := keyOr(p.LeadSource)
		b := set.get(key, func(r *Rollup) {
			if entry, ok := pricing.Lookup(key); ok {
				r.Vendor = entry.Vendor
				r.PricePerCall = entry.PricePerCall
			}
		})
		b.row.addPolicy(p)
		agents := agentsOf(b)
		if p.Agent != "" {
			agents.get(p.Agent, nil).row.addPolicy(p)
		}
	}
	return set.rollups()
}

// ByCarrier folds placed and unplaced policies by carrier and product.
func ByCarrier(policies []records.PolicyRecord) []Rollup {
	set := newBucketSet()
	for _, p := range policies {
		carrier, product := keyOr(p.Carrier), keyOr(p.Product)
		b := set.get(carrier+" / "+product, func(r *Rollup) {
			r.Carrier = carrier
			r.Product = product
		})
		b.row.addPolicy(p)
	}
	return set.rollups()
}

// ByAgent folds calls by resolved rep and policies by agent. Records without
// a name are left out.
func ByAgent(policies []records.PolicyRecord, calls []records.CallRecord) []Rollup {
	set := newBucketSet()
	for _, c := range calls {
		if c.Rep == "" {
			continue
		}
		set.get(c.Rep, nil).row.addCall(c)
	}
	for _, p := range policies {
		if p.Agent == "" {
			continue
		}
		set.get(p.Agent, nil).row.addPolicy(p)
	}
	return set.rollups()
}
