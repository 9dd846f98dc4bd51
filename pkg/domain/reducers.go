package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrVisitExists is returned when committing a visit whose id is already in the ledger.
var ErrVisitExists = errors.New("visit already committed")

// Reducers below never mutate their input; each returns a fresh aggregate.

// AddStudent appends a roster entry.
func AddStudent(a Aggregate, s Student) Aggregate {
	next := a.Clone()
	next.Students = append(next.Students, s)
	return next
}

// UpdateStudent replaces the roster entry with the same id.
func UpdateStudent(a Aggregate, s Student) (Aggregate, error) {
	next := a.Clone()
	for i := range next.Students {
		if next.Students[i].ID == s.ID {
			next.Students[i] = s
			return next, nil
		}
	}
	return a, &NotFoundError{Entity: EntityStudent, ID: s.ID}
}

// RemoveStudent drops a roster entry. Historical records keep their copies.
func RemoveStudent(a Aggregate, id ID) (Aggregate, error) {
	next := a.Clone()
	out, ok := removeByID(next.Students, id, func(s Student) ID { return s.ID })
	if !ok {
		return a, &NotFoundError{Entity: EntityStudent, ID: id}
	}
	next.Students = out
	return next, nil
}

// AddMedicine appends a catalog entry. Duplicate names are allowed.
func AddMedicine(a Aggregate, m Medicine) Aggregate {
	next := a.Clone()
	next.Medicines = append(next.Medicines, m)
	return next
}

// UpdateMedicine replaces the catalog entry with the same id.
func UpdateMedicine(a Aggregate, m Medicine) (Aggregate, error) {
	next := a.Clone()
	for i := range next.Medicines {
		if next.Medicines[i].ID == m.ID {
			next.Medicines[i] = m
			return next, nil
		}
	}
	return a, &NotFoundError{Entity: EntityMedicine, ID: m.ID}
}

// RemoveMedicine drops a catalog entry. Visit usage summaries are untouched.
func RemoveMedicine(a Aggregate, id ID) (Aggregate, error) {
	next := a.Clone()
	out, ok := removeByID(next.Medicines, id, func(m Medicine) ID { return m.ID })
	if !ok {
		return a, &NotFoundError{Entity: EntityMedicine, ID: id}
	}
	next.Medicines = out
	return next, nil
}

// Deduct decrements a medicine's stock by quantity. No floor is applied here;
// the stock_floor rule decides whether a negative result may be committed.
func Deduct(a Aggregate, id ID, quantity int) (Aggregate, error) {
	next := a.Clone()
	if !deductInPlace(next.Medicines, id, quantity) {
		return a, &NotFoundError{Entity: EntityMedicine, ID: id}
	}
	return next, nil
}

func deductInPlace(medicines []Medicine, id ID, quantity int) bool {
	for i := range medicines {
		if medicines[i].ID == id {
			medicines[i].Stock -= quantity
			return true
		}
	}
	return false
}

// SummarizeUsage formats resolvable usage lines as "Name (qty), Name (qty)".
func SummarizeUsage(catalog []Medicine, usage []UsageLine) string {
	parts := make([]string, 0, len(usage))
	for _, line := range usage {
		m, ok := findMedicine(catalog, line.MedicineID)
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%d)", m.Name, line.Quantity))
	}
	return strings.Join(parts, ", ")
}

func findMedicine(catalog []Medicine, id ID) (Medicine, bool) {
	if id == "" {
		return Medicine{}, false
	}
	for _, m := range catalog {
		if m.ID == id {
			return m, true
		}
	}
	return Medicine{}, false
}

// ApplyVisitCommit deducts every resolvable usage line and prepends the record.
// Both effects land in the returned aggregate or neither does.
func ApplyVisitCommit(a Aggregate, record VisitRecord, usage []UsageLine) (Aggregate, error) {
	if a.HasVisit(record.ID) {
		return a, fmt.Errorf("visit %s: %w", record.ID, ErrVisitExists)
	}
	next := a.Clone()
	for _, line := range usage {
		if line.MedicineID == "" {
			continue
		}
		deductInPlace(next.Medicines, line.MedicineID, line.Quantity)
	}
	next.Visits = append([]VisitRecord{record}, next.Visits...)
	return next, nil
}

// ApplyVisitEdit replaces the mutable fields of a visit. Inventory is never touched.
func ApplyVisitEdit(a Aggregate, id ID, edit VisitEdit) (Aggregate, error) {
	next := a.Clone()
	for i := range next.Visits {
		if next.Visits[i].ID != id {
			continue
		}
		v := &next.Visits[i]
		if edit.Timestamp != nil {
			v.Timestamp = *edit.Timestamp
		}
		if edit.Complaint != nil {
			v.Complaint = *edit.Complaint
		}
		if edit.Treatment != nil {
			v.Treatment = *edit.Treatment
		}
		if edit.MedicineUsage != nil {
			v.MedicineUsage = *edit.MedicineUsage
		}
		return next, nil
	}
	return a, &NotFoundError{Entity: EntityVisit, ID: id}
}

// RemoveVisit drops a visit record. Deducted stock is not restored.
func RemoveVisit(a Aggregate, id ID) (Aggregate, error) {
	next := a.Clone()
	out, ok := removeByID(next.Visits, id, func(v VisitRecord) ID { return v.ID })
	if !ok {
		return a, &NotFoundError{Entity: EntityVisit, ID: id}
	}
	next.Visits = out
	return next, nil
}

// ApplyScreeningRecord prepends a screening entry.
func ApplyScreeningRecord(a Aggregate, rec ScreeningRecord) Aggregate {
	next := a.Clone()
	next.Screenings = append([]ScreeningRecord{rec}, next.Screenings...)
	return next
}

// ReplaceCredentials swaps the admin login record.
func ReplaceCredentials(a Aggregate, c Credentials) Aggregate {
	next := a.Clone()
	next.Credentials = c
	return next
}

func removeByID[T any](items []T, id ID, key func(T) ID) ([]T, bool) {
	for i, item := range items {
		if key(item) == id {
			out := make([]T, 0, len(items)-1)
			out = append(out, items[:i]...)
			return append(out, items[i+1:]...), true
		}
	}
	return items, false
}
