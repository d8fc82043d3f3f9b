package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Candidate is a batch that can serve a request for a crop
type Candidate struct {
	BatchID    string          `json:"batch_id" db:"batch_id"`
	ExpiryDate time.Time       `json:"expiry_date" db:"expiry_date"`
	Available  decimal.Decimal `json:"available" db:"available"`
}

// Allocation commits a quantity of one batch to one purchase
type Allocation struct {
	BatchID    string          `json:"batch_id" db:"batch_id"`
	PurchaseID string          `json:"purchase_id,omitempty" db:"purchase_id"`
	Quantity   decimal.Decimal `json:"quantity" db:"quantity"`
}

// AllocationPlan is the outcome of walking candidates for a request
type AllocationPlan struct {
	Allocations []Allocation    `json:"allocations"`
	Requested   decimal.Decimal `json:"requested"`
	Allocated   decimal.Decimal `json:"allocated"`
	Shortfall   decimal.Decimal `json:"shortfall"`
}

// SortCandidates orders candidates soonest-expiring first, ties by batch id.
func SortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.ExpiryDate.Equal(b.ExpiryDate) {
			return a.ExpiryDate.Before(b.ExpiryDate)
		}
		return a.BatchID < b.BatchID
	})
}

// Eligible returns the candidates with stock left, in FEFO order.
// The input slice is not modified.
func Eligible(candidates []Candidate) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Available.IsPositive() {
			out = append(out, c)
		}
	}
	SortCandidates(out)
	return out
}

// PlanFEFO takes min(remaining, available) from each candidate in FEFO order
// until the request is met or candidates run out. Running out is not an
// error: the unmet part is reported as Shortfall. candidates is not modified.
func PlanFEFO(candidates []Candidate, requested decimal.Decimal) AllocationPlan {
	plan := AllocationPlan{
		Allocations: []Allocation{},
		Requested:   requested,
		Allocated:   decimal.Zero,
	}

	remaining := requested
	for _, c := range Eligible(candidates) {
		if !remaining.IsPositive() {
			break
		}
		take := decimal.Min(remaining, c.Available)
		plan.Allocations = append(plan.Allocations, Allocation{BatchID: c.BatchID, Quantity: take})
		plan.Allocated = plan.Allocated.Add(take)
		remaining = remaining.Sub(take)
	}

	plan.Shortfall = decimal.Max(remaining, decimal.Zero)
	return plan
}
