package domain

import (
	"context"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks the commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows the commit.
	SeverityWarn Severity = "warn"
)

// Action indicates the type of modification performed.
type Action string

// Change actions captured when diffing two aggregates.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Change describes a mutation applied to an entity by a reducer.
type Change struct {
	Entity EntityType
	Action Action
	ID     ID
	Before any
	After  any
}

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID ID
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Warnings returns the non-blocking violations.
func (r Result) Warnings() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityWarn {
			out = append(out, v)
		}
	}
	return out
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			return "commit blocked by rules: " + v.Message
		}
	}
	return "commit blocked by rules"
}

// RuleView provides read-only access to the candidate aggregate for rules.
type RuleView interface {
	ListStudents() []Student
	ListMedicines() []Medicine
	ListVisits() []VisitRecord
	FindMedicine(id ID) (Medicine, bool)
}

var _ RuleView = Aggregate{}

// Rule defines an evaluation executed before a candidate aggregate is saved.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Rules returns the registered rule names in evaluation order.
func (e *RulesEngine) Rules() []string {
	out := make([]string, 0, len(e.rules))
	for _, r := range e.rules {
		out = append(out, r.Name())
	}
	return out
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view, changes)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}

// Diff lists the entity-level changes between two aggregates.
func Diff(before, after Aggregate) []Change {
	var changes []Change
	changes = append(changes, diffSlice(EntityStudent, before.Students, after.Students, func(s Student) ID { return s.ID })...)
	changes = append(changes, diffSlice(EntityMedicine, before.Medicines, after.Medicines, func(m Medicine) ID { return m.ID })...)
	changes = append(changes, diffSlice(EntityVisit, before.Visits, after.Visits, func(v VisitRecord) ID { return v.ID })...)
	changes = append(changes, diffSlice(EntityScreening, before.Screenings, after.Screenings, func(s ScreeningRecord) ID { return s.ID })...)
	if before.Credentials != after.Credentials {
		changes = append(changes, Change{Entity: EntityCredentials, Action: ActionUpdate})
	}
	return changes
}

func diffSlice[T comparable](entity EntityType, before, after []T, key func(T) ID) []Change {
	prev := make(map[ID]T, len(before))
	for _, item := range before {
		prev[key(item)] = item
	}
	var changes []Change
	seen := make(map[ID]struct{}, len(after))
	for _, item := range after {
		id := key(item)
		seen[id] = struct{}{}
		old, ok := prev[id]
		switch {
		case !ok:
			changes = append(changes, Change{Entity: entity, Action: ActionCreate, ID: id, After: item})
		case old != item:
			changes = append(changes, Change{Entity: entity, Action: ActionUpdate, ID: id, Before: old, After: item})
		}
	}
	for _, item := range before {
		id := key(item)
		if _, ok := seen[id]; !ok {
			changes = append(changes, Change{Entity: entity, Action: ActionDelete, ID: id, Before: item})
		}
	}
	return changes
}
