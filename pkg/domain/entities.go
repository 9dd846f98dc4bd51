// Package domain defines the persistent clinic entities, the aggregate document
// that holds them, the pure reducers that mutate it, and the rule evaluation
// primitives used by the ledger.
package domain

import (
	"strings"
)

// EntityType identifies the type of record stored in the aggregate.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	EntityStudent     EntityType = "student"
	EntityMedicine    EntityType = "medicine"
	EntityVisit       EntityType = "visit"
	EntityScreening   EntityType = "screening"
	EntityCredentials EntityType = "credentials"
)

// CriticalStockThreshold is the stock level below which a medicine is critical.
const CriticalStockThreshold = 3

// Complaint enumerates the complaint options offered when recording a visit.
type Complaint string

// Complaint options. ComplaintOther substitutes the free-text complaint.
const (
	ComplaintDizziness Complaint = "Dizziness"
	ComplaintNausea    Complaint = "Nausea"
	ComplaintFever     Complaint = "Fever"
	ComplaintOther     Complaint = "Other"
)

// Treatment enumerates visit outcomes.
type Treatment string

// Treatment outcomes. TreatmentDischarge sends the student home with a permit.
const (
	TreatmentRest       Treatment = "Rest"
	TreatmentMedication Treatment = "Medication"
	TreatmentDischarge  Treatment = "Discharge"
	TreatmentReferral   Treatment = "Referral"
)

// ScreeningResult classifies the outcome of a periodic health screening.
type ScreeningResult string

// Screening outcomes.
const (
	ScreeningHealthy         ScreeningResult = "healthy"
	ScreeningNeedsMonitoring ScreeningResult = "needs_monitoring"
	ScreeningNeedsReferral   ScreeningResult = "needs_referral"
)

// Valid reports whether r is one of the known screening outcomes.
func (r ScreeningResult) Valid() bool {
	switch r {
	case ScreeningHealthy, ScreeningNeedsMonitoring, ScreeningNeedsReferral:
		return true
	}
	return false
}

// Student is a roster entry.
type Student struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Class string `json:"class"`
}

// Medicine is a catalog entry with its current stock.
type Medicine struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Stock int    `json:"stock"`
}

// Critical reports whether the medicine is below the critical stock threshold.
func (m Medicine) Critical() bool { return m.Stock < CriticalStockThreshold }

// VisitRecord is a clinic encounter. Student fields are denormalized copies so
// the record survives roster edits and deletions.
type VisitRecord struct {
	ID            ID     `json:"id"`
	Timestamp     string `json:"timestamp"`
	StudentName   string `json:"student_name"`
	StudentClass  string `json:"student_class"`
	Complaint     string `json:"complaint"`
	Treatment     string `json:"treatment"`
	MedicineUsage string `json:"medicine_usage"`
}

// IsDischarge reports whether the visit sent the student home. Edited records
// hold free text, so the whole trimmed value is compared case-insensitively
// with the label.
func (v VisitRecord) IsDischarge() bool {
	return strings.EqualFold(strings.TrimSpace(v.Treatment), string(TreatmentDischarge))
}

// ScreeningRecord is a periodic health screening entry.
type ScreeningRecord struct {
	ID           ID              `json:"id"`
	Date         string          `json:"date"`
	StudentID    ID              `json:"student_id"`
	StudentName  string          `json:"student_name"`
	StudentClass string          `json:"student_class"`
	Result       ScreeningResult `json:"result"`
	Notes        string          `json:"notes"`
	Examiner     string          `json:"examiner"`
}

// Credentials is the single admin login record.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Matches compares the supplied pair by exact equality.
func (c Credentials) Matches(username, password string) bool {
	return c.Username == username && c.Password == password
}
