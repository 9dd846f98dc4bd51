package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Required top-level document fields.
const (
	fieldCredentials = "credentials"
	fieldStudents    = "students"

	legacyFieldUser     = "user"
	legacyFieldStudents = "siswa"
)

// EncodeAggregate serialises the aggregate as indented JSON.
func EncodeAggregate(a Aggregate) ([]byte, error) {
	data, err := json.MarshalIndent(a.Clone(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode aggregate: %w", err)
	}
	return data, nil
}

// DecodeAggregate parses a serialised aggregate. The document must carry the
// credentials and student roster fields; other sections default to empty.
// Documents written by the earlier UKS application layout are converted.
func DecodeAggregate(data []byte) (Aggregate, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Aggregate{}, &FormatError{Reason: "parse document", Err: err}
	}
	switch {
	case present(fields, fieldCredentials) && present(fields, fieldStudents):
		var agg Aggregate
		if err := json.Unmarshal(data, &agg); err != nil {
			return Aggregate{}, &FormatError{Reason: "decode document", Err: err}
		}
		return agg.Clone(), nil
	case present(fields, legacyFieldUser) && present(fields, legacyFieldStudents):
		return decodeLegacy(data)
	case !present(fields, fieldCredentials):
		return Aggregate{}, &FormatError{Reason: "missing credentials"}
	default:
		return Aggregate{}, &FormatError{Reason: "missing students"}
	}
}

func present(fields map[string]json.RawMessage, key string) bool {
	raw, ok := fields[key]
	if !ok {
		return false
	}
	return !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

type legacyDocument struct {
	User struct {
		Username string `json:"username"`
		Password string `json:"password"`
	} `json:"user"`
	Students []struct {
		ID    ID     `json:"id"`
		Name  string `json:"nama"`
		Class string `json:"kelas"`
	} `json:"siswa"`
	Medicines []struct {
		ID    ID     `json:"id"`
		Name  string `json:"nama"`
		Stock int    `json:"stok"`
	} `json:"obat"`
	Visits []struct {
		ID          ID     `json:"id"`
		Timestamp   string `json:"tanggal"`
		StudentName string `json:"namaSiswa"`
		Class       string `json:"kelas"`
		Complaint   string `json:"keluhan"`
		Treatment   string `json:"penanganan"`
		Usage       string `json:"obatDetail"`
	} `json:"transaksi"`
	Screenings []struct {
		ID          ID     `json:"id"`
		Date        string `json:"tanggal"`
		StudentID   ID     `json:"studentId"`
		StudentName string `json:"namaSiswa"`
		Class       string `json:"kelas"`
		Result      string `json:"hasil"`
		Notes       string `json:"keluhan"`
		Examiner    string `json:"dokter"`
	} `json:"screening"`
}

var legacyComplaints = map[string]string{
	"pusing": string(ComplaintDizziness),
	"mual":   string(ComplaintNausea),
	"demam":  string(ComplaintFever),
}

var legacyTreatments = map[string]string{
	"istirahat":          string(TreatmentRest),
	"minum obat":         string(TreatmentMedication),
	"pulang":             string(TreatmentDischarge),
	"rujuk ke puskesmas": string(TreatmentReferral),
}

var legacyResults = map[string]ScreeningResult{
	"sehat":            ScreeningHealthy,
	"perlu pemantauan": ScreeningNeedsMonitoring,
	"perlu rujukan":    ScreeningNeedsReferral,
}

func translate(table map[string]string, value string) string {
	if mapped, ok := table[strings.ToLower(strings.TrimSpace(value))]; ok {
		return mapped
	}
	return value
}

func decodeLegacy(data []byte) (Aggregate, error) {
	var doc legacyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return Aggregate{}, &FormatError{Reason: "decode legacy document", Err: err}
	}
	agg := Aggregate{
		Credentials: Credentials{Username: doc.User.Username, Password: doc.User.Password},
		Students:    make([]Student, 0, len(doc.Students)),
		Medicines:   make([]Medicine, 0, len(doc.Medicines)),
		Visits:      make([]VisitRecord, 0, len(doc.Visits)),
		Screenings:  make([]ScreeningRecord, 0, len(doc.Screenings)),
	}
	for _, s := range doc.Students {
		agg.Students = append(agg.Students, Student{ID: s.ID, Name: s.Name, Class: s.Class})
	}
	for _, m := range doc.Medicines {
		agg.Medicines = append(agg.Medicines, Medicine{ID: m.ID, Name: m.Name, Stock: m.Stock})
	}
	for _, v := range doc.Visits {
		agg.Visits = append(agg.Visits, VisitRecord{
			ID:            v.ID,
			Timestamp:     v.Timestamp,
			StudentName:   v.StudentName,
			StudentClass:  v.Class,
			Complaint:     translate(legacyComplaints, v.Complaint),
			Treatment:     translate(legacyTreatments, v.Treatment),
			MedicineUsage: v.Usage,
		})
	}
	for _, s := range doc.Screenings {
		result, ok := legacyResults[strings.ToLower(strings.TrimSpace(s.Result))]
		if !ok {
			result = ScreeningResult(s.Result)
		}
		agg.Screenings = append(agg.Screenings, ScreeningRecord{
			ID:           s.ID,
			Date:         s.Date,
			StudentID:    s.StudentID,
			StudentName:  s.StudentName,
			StudentClass: s.Class,
			Result:       result,
			Notes:        s.Notes,
			Examiner:     s.Examiner,
		})
	}
	return agg, nil
}
