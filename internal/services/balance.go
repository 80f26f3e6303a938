package services

import "github.com/ruralpay/pointsledger/internal/models"

// CalculateBalance derives the balance triple from aggregated totals.
//
//	current   = credits + reversals - debits - commits
//	held      = sum of ACTIVE holds
//	available = current - held
func CalculateBalance(agg models.Aggregates) models.Balance {
	current := agg.Credits + agg.Reversals - agg.Debits - agg.Commits
	return models.Balance{
		Current:   current,
		Held:      agg.ActiveHolds,
		Available: current - agg.ActiveHolds,
	}
}
