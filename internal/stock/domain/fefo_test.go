package domain_test

import (
	"testing"
	"time"

	"github.com/agritrack/agritrack-backend/internal/stock/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func kg(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func sampleCandidates() []domain.Candidate {
	// deliberately out of order
	return []domain.Candidate{
		{BatchID: "BCH00000002", ExpiryDate: day("2024-02-01"), Available: kg(10)},
		{BatchID: "BCH00000001", ExpiryDate: day("2024-01-10"), Available: kg(5)},
	}
}

func TestPlanFEFO_SplitsAcrossBatches(t *testing.T) {
	plan := domain.PlanFEFO(sampleCandidates(), kg(8))

	require.Len(t, plan.Allocations, 2)
	assert.Equal(t, "BCH00000001", plan.Allocations[0].BatchID)
	assert.True(t, plan.Allocations[0].Quantity.Equal(kg(5)))
	assert.Equal(t, "BCH00000002", plan.Allocations[1].BatchID)
	assert.True(t, plan.Allocations[1].Quantity.Equal(kg(3)))
	assert.True(t, plan.Allocated.Equal(kg(8)))
	assert.True(t, plan.Shortfall.IsZero())
}

func TestPlanFEFO_ShortfallIsAccepted(t *testing.T) {
	plan := domain.PlanFEFO(sampleCandidates(), kg(20))

	require.Len(t, plan.Allocations, 2)
	assert.True(t, plan.Allocations[0].Quantity.Equal(kg(5)))
	assert.True(t, plan.Allocations[1].Quantity.Equal(kg(10)))
	assert.True(t, plan.Allocated.Equal(kg(15)))
	assert.True(t, plan.Shortfall.Equal(kg(5)))
	assert.True(t, plan.Requested.Equal(kg(20)))
}

func TestPlanFEFO_SingleBatchCoversRequest(t *testing.T) {
	plan := domain.PlanFEFO(sampleCandidates(), kg(4))

	require.Len(t, plan.Allocations, 1)
	assert.Equal(t, "BCH00000001", plan.Allocations[0].BatchID)
	assert.True(t, plan.Allocations[0].Quantity.Equal(kg(4)))
}

func TestPlanFEFO_TieBrokenByBatchID(t *testing.T) {
	candidates := []domain.Candidate{
		{BatchID: "BCH0000000B", ExpiryDate: day("2024-03-01"), Available: kg(3)},
		{BatchID: "BCH0000000A", ExpiryDate: day("2024-03-01"), Available: kg(3)},
	}

	plan := domain.PlanFEFO(candidates, kg(4))

	require.Len(t, plan.Allocations, 2)
	assert.Equal(t, "BCH0000000A", plan.Allocations[0].BatchID)
	assert.Equal(t, "BCH0000000B", plan.Allocations[1].BatchID)
	assert.True(t, plan.Allocations[1].Quantity.Equal(kg(1)))
}

func TestPlanFEFO_SkipsEmptyCandidates(t *testing.T) {
	candidates := []domain.Candidate{
		{BatchID: "BCH00000001", ExpiryDate: day("2024-01-01"), Available: decimal.Zero},
		{BatchID: "BCH00000002", ExpiryDate: day("2024-01-02"), Available: kg(-2)},
		{BatchID: "BCH00000003", ExpiryDate: day("2024-01-03"), Available: kg(2)},
	}

	plan := domain.PlanFEFO(candidates, kg(1))

	require.Len(t, plan.Allocations, 1)
	assert.Equal(t, "BCH00000003", plan.Allocations[0].BatchID)
}

func TestPlanFEFO_NoCandidates(t *testing.T) {
	plan := domain.PlanFEFO(nil, kg(7))

	assert.Empty(t, plan.Allocations)
	assert.NotNil(t, plan.Allocations)
	assert.True(t, plan.Allocated.IsZero())
	assert.True(t, plan.Shortfall.Equal(kg(7)))
}

func TestPlanFEFO_FractionalQuantities(t *testing.T) {
	candidates := []domain.Candidate{
		{BatchID: "BCH00000001", ExpiryDate: day("2024-01-10"), Available: decimal.RequireFromString("2.25")},
		{BatchID: "BCH00000002", ExpiryDate: day("2024-01-11"), Available: decimal.RequireFromString("1.5")},
	}

	plan := domain.PlanFEFO(candidates, decimal.RequireFromString("3.1"))

	require.Len(t, plan.Allocations, 2)
	assert.Equal(t, "0.85", plan.Allocations[1].Quantity.String())
	assert.True(t, plan.Shortfall.IsZero())
}

func TestPlanFEFO_Idempotent(t *testing.T) {
	candidates := sampleCandidates()

	first := domain.PlanFEFO(candidates, kg(8))
	second := domain.PlanFEFO(candidates, kg(8))

	assert.Equal(t, first, second)
	// input order is left untouched
	assert.Equal(t, "BCH00000002", candidates[0].BatchID)
}

func TestPlanFEFO_NeverExceedsAvailable(t *testing.T) {
	candidates := sampleCandidates()
	for _, requested := range []int64{0, 1, 5, 6, 15, 16, 100} {
		plan := domain.PlanFEFO(candidates, kg(requested))

		total := decimal.Zero
		for _, a := range plan.Allocations {
			total = total.Add(a.Quantity)
			for _, c := range candidates {
				if c.BatchID == a.BatchID {
					assert.True(t, a.Quantity.LessThanOrEqual(c.Available), "batch %s over-allocated", a.BatchID)
				}
			}
		}
		assert.True(t, total.Equal(plan.Allocated))
		assert.True(t, total.LessThanOrEqual(kg(requested)))
		assert.True(t, plan.Allocated.Add(plan.Shortfall).Equal(kg(requested)))
	}
}
