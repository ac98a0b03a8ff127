// Package allocation computes equal-weight portfolio allocations over a
// universe of securities. Each run is a pure function of (budget, universe,
// exclusions): no state survives between runs, so repeated runs with the
// same inputs yield identical output.
package allocation

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/seenimoa/niftyfolio/pkg/models"
)

// Sentinel errors for fatal allocation conditions.
var (
	// ErrInvalidInput is returned for a non-positive budget.
	ErrInvalidInput = fmt.Errorf("invalid allocation input")

	// ErrEmptyUniverse is returned when exclusions remove every security.
	ErrEmptyUniverse = fmt.Errorf("no securities remain after exclusions")
)

// Engine computes allocations. It holds only a logger; all inputs are
// passed per run.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates an allocation engine.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Allocate distributes budget equally across the securities that survive the
// exclusion filter. Each included security targets budget/N; resolved ones
// buy floor(target/price) whole shares, unresolved ones buy nothing and
// their full target flows into the summary's unallocated total. Rounding
// happens only at presentation time, so TotalAllocated + TotalUnallocated
// always equals the budget exactly (within float tolerance).
func (e *Engine) Allocate(budget float64, securities []models.Security, exclusions []models.ExclusionEntry, now time.Time) ([]models.Allocation, models.PortfolioSummary, error) {
	var summary models.PortfolioSummary

	if budget <= 0 {
		return nil, summary, fmt.Errorf("%w: budget must be positive, got %.2f", ErrInvalidInput, budget)
	}

	included := applyExclusions(securities, exclusions)
	n := len(included)
	if n == 0 {
		return nil, summary, fmt.Errorf("%w: %d securities, %d exclusions", ErrEmptyUniverse, len(securities), len(exclusions))
	}

	e.logger.Info("computing allocations",
		zap.Float64("budget", budget),
		zap.Int("universe", len(securities)),
		zap.Int("included", n))

	// Equal weight over the included universe: excluding securities
	// increases everyone else's weight, it is never a fixed 1%.
	targetPct := 100.0 / float64(n)
	targetAmount := budget / float64(n)

	allocations := make([]models.Allocation, 0, n)
	for _, sec := range included {
		alloc := models.Allocation{
			Security:     sec,
			TargetPct:    targetPct,
			TargetAmount: targetAmount,
			Timestamp:    now,
		}

		if sec.PriceAvailable() {
			alloc.SharesToBuy = int64(math.Floor(targetAmount / sec.CurrentPrice))
			alloc.ActualAmount = float64(alloc.SharesToBuy) * sec.CurrentPrice
			alloc.ActualPct = alloc.ActualAmount / budget * 100.0
			summary.ResolvedSecurities++
		} else {
			// Unresolved: zero shares, the whole target is unrealized.
			summary.FailedSecurities++
		}
		alloc.UnallocatedAmount = targetAmount - alloc.ActualAmount

		summary.TotalAllocated += alloc.ActualAmount
		summary.TotalUnallocated += alloc.UnallocatedAmount
		summary.TotalShares += alloc.SharesToBuy
		allocations = append(allocations, alloc)
	}

	summary.TotalInvestment = budget
	summary.IncludedSecurities = n
	summary.UtilizationPct = summary.TotalAllocated / budget * 100.0
	summary.SuccessRatePct = float64(summary.ResolvedSecurities) / float64(n) * 100.0

	e.logger.Info("allocation complete",
		zap.Float64("allocated", summary.TotalAllocated),
		zap.Float64("unallocated", summary.TotalUnallocated),
		zap.Int64("shares", summary.TotalShares),
		zap.Float64("utilization_pct", summary.UtilizationPct))

	return allocations, summary, nil
}

// applyExclusions removes securities matching any exclusion entry by symbol
// (case-insensitive) or ISIN (exact). Input order is preserved.
func applyExclusions(securities []models.Security, exclusions []models.ExclusionEntry) []models.Security {
	if len(exclusions) == 0 {
		included := make([]models.Security, len(securities))
		copy(included, securities)
		return included
	}

	included := make([]models.Security, 0, len(securities))
	for _, sec := range securities {
		excluded := false
		for _, ex := range exclusions {
			if ex.Matches(sec) {
				excluded = true
				break
			}
		}
		if !excluded {
			included = append(included, sec)
		}
	}
	return included
}
