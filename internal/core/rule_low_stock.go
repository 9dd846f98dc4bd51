package core

import (
	"context"
	"fmt"

	"uksledger/pkg/domain"
)

// NewLowStockRule returns the warning rule for medicines left below the critical threshold.
func NewLowStockRule() domain.Rule {
	return lowStockRule{}
}

type lowStockRule struct{}

func (lowStockRule) Name() string { return "low_stock" }

func (lowStockRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for id := range touchedMedicines(changes) {
		m, ok := view.FindMedicine(id)
		if !ok || !m.Critical() {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "low_stock",
			Severity: domain.SeverityWarn,
			Message:  fmt.Sprintf("%s stock is critical: %d left", m.Name, m.Stock),
			Entity:   domain.EntityMedicine,
			EntityID: m.ID,
		})
	}
	return res, nil
}
