package core

import (
	"fmt"
	"strings"

	"uksledger/pkg/domain"
)

// StockPolicy decides whether a commit may drive a medicine below zero.
type StockPolicy string

const (
	// StockReject blocks commits that leave any touched medicine with negative stock.
	StockReject StockPolicy = "reject"
	// StockPermissive lets stock go negative; the low_stock rule still warns.
	StockPermissive StockPolicy = "permissive"
)

// ParseStockPolicy validates a configured policy. Empty selects StockReject.
func ParseStockPolicy(s string) (StockPolicy, error) {
	switch StockPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StockReject:
		return StockReject, nil
	case StockPermissive:
		return StockPermissive, nil
	default:
		return "", fmt.Errorf("unknown stock policy %q", s)
	}
}

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine(policy StockPolicy) *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	if policy != StockPermissive {
		engine.Register(NewStockFloorRule())
	}
	engine.Register(NewLowStockRule())
	return engine
}

// touchedMedicines returns the ids of medicines created or updated by changes.
func touchedMedicines(changes []domain.Change) map[domain.ID]struct{} {
	out := make(map[domain.ID]struct{})
	for _, c := range changes {
		if c.Entity != domain.EntityMedicine || c.Action == domain.ActionDelete {
			continue
		}
		out[c.ID] = struct{}{}
	}
	return out
}
