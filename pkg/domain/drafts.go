package domain

import "strings"

// Timestamp layouts used by visit and screening records.
const (
	VisitTimestampLayout = "2006-01-02T15:04"
	ScreeningDateLayout  = "2006-01-02"
)

// StudentDraft carries the fields of a roster entry being created or edited.
type StudentDraft struct {
	Name  string `json:"name" validate:"required"`
	Class string `json:"class" validate:"required"`
}

// MedicineDraft carries the fields of a catalog entry being created or edited.
type MedicineDraft struct {
	Name  string `json:"name" validate:"required"`
	Stock int    `json:"stock" validate:"gte=0"`
}

// UsageLine requests Quantity units of a medicine during a visit. Lines with a
// blank or unknown medicine id are ignored.
type UsageLine struct {
	MedicineID ID  `json:"medicine_id"`
	Quantity   int `json:"quantity" validate:"gte=1"`
}

// VisitDraft is a proposed visit awaiting preview or commit.
type VisitDraft struct {
	Timestamp      string      `json:"timestamp"`
	StudentID      ID          `json:"student_id"`
	Complaint      Complaint   `json:"complaint" validate:"required,oneof=Dizziness Nausea Fever Other"`
	OtherComplaint string      `json:"other_complaint"`
	Treatment      Treatment   `json:"treatment" validate:"required,oneof=Rest Medication Discharge Referral"`
	Usage          []UsageLine `json:"usage" validate:"dive"`
}

// EffectiveComplaint returns the free-text complaint when Other is selected and
// the enum label otherwise.
func (d VisitDraft) EffectiveComplaint() string {
	if d.Complaint == ComplaintOther {
		return strings.TrimSpace(d.OtherComplaint)
	}
	return string(d.Complaint)
}

// VisitEdit replaces mutable visit fields. Nil fields are left untouched.
type VisitEdit struct {
	Timestamp     *string `json:"timestamp,omitempty"`
	Complaint     *string `json:"complaint,omitempty"`
	Treatment     *string `json:"treatment,omitempty"`
	MedicineUsage *string `json:"medicine_usage,omitempty"`
}

// ScreeningDraft is a screening entry awaiting registration.
type ScreeningDraft struct {
	Date      string          `json:"date"`
	StudentID ID              `json:"student_id"`
	Result    ScreeningResult `json:"result" validate:"required,oneof=healthy needs_monitoring needs_referral"`
	Notes     string          `json:"notes"`
	Examiner  string          `json:"examiner"`
}
