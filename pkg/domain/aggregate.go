package domain

import (
	"sort"
)

// Aggregate is the single persisted document. Visits and screenings are kept
// most-recent-first.
type Aggregate struct {
	Credentials Credentials       `json:"credentials"`
	Students    []Student         `json:"students"`
	Medicines   []Medicine        `json:"medicines"`
	Visits      []VisitRecord     `json:"visits"`
	Screenings  []ScreeningRecord `json:"screenings"`
}

// DefaultAggregate returns the built-in seed used on first start, on a corrupt
// document and on factory reset.
func DefaultAggregate() Aggregate {
	return Aggregate{
		Credentials: Credentials{Username: "admin", Password: "123"},
		Students: []Student{
			{ID: "1", Name: "Budi Santoso", Class: "7A"},
			{ID: "2", Name: "Siti Aminah", Class: "8B"},
			{ID: "3", Name: "Rizky Febian", Class: "9C"},
			{ID: "4", Name: "Ani Wijaya", Class: "7B"},
			{ID: "5", Name: "Dedi Kusnandar", Class: "8A"},
		},
		Medicines: []Medicine{
			{ID: "1", Name: "Paracetamol", Stock: 10},
			{ID: "2", Name: "Betadine", Stock: 5},
			{ID: "3", Name: "Eucalyptus Oil", Stock: 2},
			{ID: "4", Name: "Antacid", Stock: 8},
			{ID: "5", Name: "Sterile Cotton", Stock: 15},
		},
		Visits:     []VisitRecord{},
		Screenings: []ScreeningRecord{},
	}
}

// Clone deep-copies the aggregate. Sequences of the copy are never nil.
func (a Aggregate) Clone() Aggregate {
	return Aggregate{
		Credentials: a.Credentials,
		Students:    cloneSlice(a.Students),
		Medicines:   cloneSlice(a.Medicines),
		Visits:      cloneSlice(a.Visits),
		Screenings:  cloneSlice(a.Screenings),
	}
}

func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// FindStudent looks up a roster entry by id.
func (a Aggregate) FindStudent(id ID) (Student, bool) {
	for _, s := range a.Students {
		if s.ID == id {
			return s, true
		}
	}
	return Student{}, false
}

// FindMedicine looks up a catalog entry by id.
func (a Aggregate) FindMedicine(id ID) (Medicine, bool) {
	for _, m := range a.Medicines {
		if m.ID == id {
			return m, true
		}
	}
	return Medicine{}, false
}

// FindVisit looks up a visit record by id.
func (a Aggregate) FindVisit(id ID) (VisitRecord, bool) {
	for _, v := range a.Visits {
		if v.ID == id {
			return v, true
		}
	}
	return VisitRecord{}, false
}

// HasVisit reports whether a visit with id has been committed.
func (a Aggregate) HasVisit(id ID) bool {
	_, ok := a.FindVisit(id)
	return ok
}

// ListStudents returns a copy of the roster.
func (a Aggregate) ListStudents() []Student { return cloneSlice(a.Students) }

// ListMedicines returns a copy of the catalog.
func (a Aggregate) ListMedicines() []Medicine { return cloneSlice(a.Medicines) }

// ListVisits returns a copy of the visit sequence.
func (a Aggregate) ListVisits() []VisitRecord { return cloneSlice(a.Visits) }

// ListScreenings returns a copy of the screening sequence.
func (a Aggregate) ListScreenings() []ScreeningRecord { return cloneSlice(a.Screenings) }

// CriticalMedicines returns the medicines below the critical stock threshold, in catalog order.
func (a Aggregate) CriticalMedicines() []Medicine {
	var out []Medicine
	for _, m := range a.Medicines {
		if m.Critical() {
			out = append(out, m)
		}
	}
	return out
}

// Classes returns the distinct class labels on the roster, sorted.
func (a Aggregate) Classes() []string {
	seen := make(map[string]struct{}, len(a.Students))
	out := make([]string, 0, len(a.Students))
	for _, s := range a.Students {
		if _, ok := seen[s.Class]; ok {
			continue
		}
		seen[s.Class] = struct{}{}
		out = append(out, s.Class)
	}
	sort.Strings(out)
	return out
}
