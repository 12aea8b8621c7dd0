package model

import "sort"

// PlanID names a subscription tier.
type PlanID string

// Plan tiers.
const (
	PlanFree       PlanID = "free"
	PlanPremium    PlanID = "premium"
	PlanEnterprise PlanID = "enterprise"
)

// IsValid reports whether the plan is a known tier.
func (p PlanID) IsValid() bool {
	switch p {
	case PlanFree, PlanPremium, PlanEnterprise:
		return true
	}
	return false
}

// Plan fixes the price and credit grant of a tier.
// Price is in major currency units; gateways are charged Price*100.
type Plan struct {
	ID       PlanID   `json:"id"`
	Name     string   `json:"name"`
	Price    int64    `json:"price"`
	Credits  int64    `json:"credits"`
	Features []string `json:"features"`
}

// AmountMinorUnits returns the price in the smallest currency unit.
func (p Plan) AmountMinorUnits() int64 {
	return p.Price * 100
}

// PlanCatalog is the static plan table. Only paid tiers are purchasable.
type PlanCatalog struct {
	free Plan
	paid map[PlanID]Plan
}

// NewPlanCatalog builds a catalog from the free tier and the paid tiers.
func NewPlanCatalog(free Plan, paid ...Plan) PlanCatalog {
	m := make(map[PlanID]Plan, len(paid))
	for _, p := range paid {
		m[p.ID] = p
	}
	return PlanCatalog{free: free, paid: m}
}

// Free returns the plan granted at registration.
func (c PlanCatalog) Free() Plan {
	return c.free
}

// Purchasable looks up a paid plan.
func (c PlanCatalog) Purchasable(id PlanID) (Plan, bool) {
	p, ok := c.paid[id]
	return p, ok
}

// Paid returns a copy of the paid plan table keyed by plan ID.
func (c PlanCatalog) Paid() map[PlanID]Plan {
	out := make(map[PlanID]Plan, len(c.paid))
	for id, p := range c.paid {
		out[id] = p
	}
	return out
}

// PaidIDs returns the paid plan IDs in ascending price order.
func (c PlanCatalog) PaidIDs() []PlanID {
	ids := make([]PlanID, 0, len(c.paid))
	for id := range c.paid {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return c.paid[ids[i]].Price < c.paid[ids[j]].Price
	})
	return ids
}

// RateLimitTier maps a plan to the API rate limit tier it is served with.
func (p PlanID) RateLimitTier() string {
	switch p {
	case PlanPremium:
		return TierPremium
	case PlanEnterprise:
		return TierEnterprise
	default:
		return TierFree
	}
}
