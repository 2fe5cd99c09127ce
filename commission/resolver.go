package commission

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"pnl_dashboard/formatting"
)

const (
	minCarrierOverlap = 0.4
	minScore          = 0.15

	carrierWeight = 0.4
	productWeight = 0.4
	typeWeight    = 0.2

	bonusSameSpecial   = 0.3
	bonusPlainDefault  = 0.2
	bonusPlainPlain    = 0.1
	penaltyMissSpecial = -0.5
	penaltyPlainMiss   = -0.3
)

type productType int

const (
	typePlain productType = iota
	typeGraded
	typeROP
)

func classify(product string, tokens TokenSet) productType {
	switch {
	case tokens.Has("graded"):
		return typeGraded
	case tokens.Has("rop") || strings.Contains(strings.ToLower(product), "return of premium"):
		return typeROP
	default:
		return typePlain
	}
}

func isDefaultType(tokens TokenSet) bool {
	return tokens.Has("immediate") || tokens.Has("standard")
}

// TypeBonus scores how well the product sub-types line up. Graded and return
// of premium are special types; immediate or standard marks the default.
func TypeBonus(policyProduct, entryProduct string) float64 {
	pt := Tokens(policyProduct)
	et := Tokens(entryProduct)
	policyType := classify(policyProduct, pt)
	entryType := classify(entryProduct, et)

	if policyType != typePlain {
		if entryType == policyType {
			return bonusSameSpecial
		}
		return penaltyMissSpecial
	}
	switch {
	case entryType != typePlain:
		return penaltyPlainMiss
	case isDefaultType(et):
		return bonusPlainDefault
	default:
		return bonusPlainPlain
	}
}

// Candidate is a schedule entry that survived scoring.
type Candidate struct {
	Entry          RateEntry `json:"entry"`
	CarrierOverlap float64   `json:"carrierOverlap"`
	ProductOverlap float64   `json:"productOverlap"`
	TypeBonus      float64   `json:"typeBonus"`
	Score          float64   `json:"score"`
	AgeEligible    bool      `json:"ageEligible"`
}

// Rank scores every entry against a policy and returns the survivors, age
// eligible entries first and each group by descending score. Equal scores
// keep schedule order.
func (s Schedule) Rank(carrier, product string, age *int) []Candidate {
	if strings.TrimSpace(carrier) == "" || strings.TrimSpace(product) == "" {
		return nil
	}
	carrierTokens := Tokens(carrier)
	productTokens := Tokens(product)

	var out []Candidate
	for _, entry := range s {
		c := Overlap(carrierTokens, Tokens(entry.Carrier))
		if c < minCarrierOverlap {
			continue
		}
		p := Overlap(productTokens, Tokens(entry.Product))
		t := TypeBonus(product, entry.Product)
		score := carrierWeight*c + productWeight*p + typeWeight*t
		if score <= minScore {
			continue
		}
		out = append(out, Candidate{
			Entry:          entry,
			CarrierOverlap: c,
			ProductOverlap: p,
			TypeBonus:      t,
			Score:          score,
			AgeEligible:    entry.AgeRange.Contains(age),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AgeEligible != out[j].AgeEligible {
			return out[i].AgeEligible
		}
		return out[i].Score > out[j].Score
	})
	return out
}

// Resolve picks the best candidate. ok is false when nothing scored.
func (s Schedule) Resolve(carrier, product string, age *int) (Candidate, bool) {
	ranked := s.Rank(carrier, product, age)
	if len(ranked) == 0 {
		return Candidate{}, false
	}
	return ranked[0], true
}

// Commission is the monthly premium times the resolved rate, never below 0.
func (s Schedule) Commission(premium decimal.Decimal, carrier, product string, age *int) decimal.Decimal {
	best, ok := s.Resolve(carrier, product, age)
	if !ok {
		return decimal.Zero
	}
	return formatting.NonNegative(premium.Mul(best.Entry.Rate))
}
