package core

import (
	"context"
	"fmt"

	"uksledger/pkg/domain"
)

// NewStockFloorRule returns the rule blocking commits that push a medicine below zero.
func NewStockFloorRule() domain.Rule {
	return stockFloorRule{}
}

type stockFloorRule struct{}

func (stockFloorRule) Name() string { return "stock_floor" }

// Only medicines touched by the commit are checked, so a negative balance
// restored from an old backup does not block unrelated operations.
func (stockFloorRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	touched := touchedMedicines(changes)
	res := domain.Result{}
	for id := range touched {
		m, ok := view.FindMedicine(id)
		if !ok || m.Stock >= 0 {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "stock_floor",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("insufficient stock for %s (%s): would drop to %d", m.Name, m.ID, m.Stock),
			Entity:   domain.EntityMedicine,
			EntityID: m.ID,
		})
	}
	return res, nil
}
