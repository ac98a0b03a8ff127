package models

import "time"

// Allocation is the computed buy order for a single included security.
// Amounts are in INR and unrounded; formatting to 2 decimal places happens
// only at output time.
type Allocation struct {
	Security          Security  `json:"security"`
	TargetPct         float64   `json:"target_pct"`         // equal weight, 100/N percent
	TargetAmount      float64   `json:"target_amount"`      // budget * TargetPct / 100
	SharesToBuy       int64     `json:"shares_to_buy"`      // floor(TargetAmount / price), 0 if unresolved
	ActualAmount      float64   `json:"actual_amount"`      // SharesToBuy * price
	ActualPct         float64   `json:"actual_pct"`         // ActualAmount / budget * 100
	UnallocatedAmount float64   `json:"unallocated_amount"` // TargetAmount - ActualAmount
	Timestamp         time.Time `json:"timestamp"`
}

// PortfolioSummary aggregates a full allocation run.
// TotalAllocated + TotalUnallocated always equals TotalInvestment: the
// target amount of a security that failed price resolution flows into
// TotalUnallocated rather than being dropped.
type PortfolioSummary struct {
	TotalInvestment    float64 `json:"total_investment"`
	TotalAllocated     float64 `json:"total_allocated"`
	TotalUnallocated   float64 `json:"total_unallocated"`
	TotalShares        int64   `json:"total_shares"`
	IncludedSecurities int     `json:"included_securities"` // N after exclusion filtering
	ResolvedSecurities int     `json:"resolved_securities"`
	FailedSecurities   int     `json:"failed_securities"`
	UtilizationPct     float64 `json:"utilization_pct"`  // TotalAllocated / TotalInvestment * 100
	SuccessRatePct     float64 `json:"success_rate_pct"` // ResolvedSecurities / N * 100
}
