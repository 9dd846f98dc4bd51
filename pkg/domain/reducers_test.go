package domain

import (
	"errors"
	"testing"
)

func TestApplyVisitCommitDeductsAndPrepends(t *testing.T) {
	base := DefaultAggregate()
	base.Visits = []VisitRecord{{ID: "old"}}
	record := VisitRecord{ID: "new", StudentName: "Budi Santoso", StudentClass: "7A", Complaint: "Fever", Treatment: "Rest"}
	usage := []UsageLine{{MedicineID: "1", Quantity: 3}, {MedicineID: "", Quantity: 9}, {MedicineID: "missing", Quantity: 2}}

	next, err := ApplyVisitCommit(base, record, usage)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if next.Visits[0].ID != "new" || next.Visits[1].ID != "old" {
		t.Fatalf("expected most-recent-first order, got %+v", next.Visits)
	}
	if m, _ := next.FindMedicine("1"); m.Stock != 7 {
		t.Fatalf("expected stock 7, got %d", m.Stock)
	}
	if m, _ := base.FindMedicine("1"); m.Stock != 10 {
		t.Fatalf("input aggregate mutated: stock %d", m.Stock)
	}
	if _, err := ApplyVisitCommit(next, record, usage); !errors.Is(err, ErrVisitExists) {
		t.Fatalf("expected ErrVisitExists, got %v", err)
	}
}

func TestApplyVisitCommitAllowsNegativeStock(t *testing.T) {
	next, err := ApplyVisitCommit(DefaultAggregate(), VisitRecord{ID: "v"}, []UsageLine{{MedicineID: "3", Quantity: 5}})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if m, _ := next.FindMedicine("3"); m.Stock != -3 {
		t.Fatalf("expected -3, got %d", m.Stock)
	}
}

func TestSummarizeUsage(t *testing.T) {
	catalog := DefaultAggregate().Medicines
	got := SummarizeUsage(catalog, []UsageLine{
		{MedicineID: "1", Quantity: 2},
		{MedicineID: "nope", Quantity: 1},
		{MedicineID: "", Quantity: 1},
		{MedicineID: "4", Quantity: 1},
	})
	if got != "Paracetamol (2), Antacid (1)" {
		t.Fatalf("unexpected summary %q", got)
	}
	if SummarizeUsage(catalog, nil) != "" {
		t.Fatalf("expected empty summary")
	}
}

func TestEditAndRemoveVisit(t *testing.T) {
	base := DefaultAggregate()
	base.Visits = []VisitRecord{{ID: "v1", Treatment: "Rest", MedicineUsage: "Paracetamol (1)"}}
	treatment := " discharge "
	next, err := ApplyVisitEdit(base, "v1", VisitEdit{Treatment: &treatment})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	v, _ := next.FindVisit("v1")
	if v.Treatment != treatment || v.MedicineUsage != "Paracetamol (1)" || !v.IsDischarge() {
		t.Fatalf("unexpected edited visit %+v", v)
	}
	if m, _ := next.FindMedicine("1"); m.Stock != 10 {
		t.Fatalf("edit must not touch stock, got %d", m.Stock)
	}
	if _, err := ApplyVisitEdit(base, "zzz", VisitEdit{}); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	removed, err := RemoveVisit(next, "v1")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(removed.Visits) != 0 {
		t.Fatalf("expected visit removed")
	}
	if _, err := RemoveVisit(removed, "v1"); !IsNotFound(err) {
		t.Fatalf("expected not found on second remove, got %v", err)
	}
}

func TestRosterAndCatalogReducers(t *testing.T) {
	base := DefaultAggregate()
	base.Visits = []VisitRecord{{ID: "v1", StudentName: "Budi Santoso", StudentClass: "7A"}}

	next, err := UpdateStudent(base, Student{ID: "1", Name: "Budi S.", Class: "7C"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if next.Visits[0].StudentName != "Budi Santoso" {
		t.Fatalf("visit copies must not follow roster edits")
	}
	next, err = RemoveStudent(next, "1")
	if err != nil {
		t.Fatalf("remove student: %v", err)
	}
	if _, ok := next.FindStudent("1"); ok || len(next.Visits) != 1 {
		t.Fatalf("unexpected aggregate after removal %+v", next)
	}
	if _, err := UpdateMedicine(next, Medicine{ID: "404"}); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	next = AddMedicine(next, Medicine{ID: "6", Name: "Paracetamol", Stock: 1})
	if len(next.CriticalMedicines()) != 2 {
		t.Fatalf("expected two critical medicines, got %+v", next.CriticalMedicines())
	}
	if got := next.Classes(); len(got) != 4 || got[0] != "7B" {
		t.Fatalf("unexpected classes %v", got)
	}
}

func TestCloneNeverNil(t *testing.T) {
	c := Aggregate{}.Clone()
	if c.Students == nil || c.Medicines == nil || c.Visits == nil || c.Screenings == nil {
		t.Fatalf("expected non-nil sequences, got %+v", c)
	}
}
