// Package sheets writes the flat spreadsheet tables offered for download:
// one table per entity, one row per record, no joins. Tables are rendered as
// single-sheet xlsx workbooks, or as CSV on request.
package sheets

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"uksledger/pkg/domain"
)

// Kind selects a table.
type Kind string

// Available tables.
const (
	KindVisits     Kind = "visits"
	KindMedicines  Kind = "medicines"
	KindScreenings Kind = "screenings"
)

// Kinds lists every table in publication order.
var Kinds = []Kind{KindVisits, KindMedicines, KindScreenings}

// Format selects the file encoding of a table.
type Format string

// Supported formats. FormatXLSX is the default.
const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// MIME types per format.
const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeCSV  = "text/csv"
)

// Artifact is a rendered table ready for download or archiving.
type Artifact struct {
	Kind        Kind
	Format      Format
	Filename    string
	ContentType string
	Rows        int
	Payload     []byte
}

type layout struct {
	base  string
	sheet string
}

var layouts = map[Kind]layout{
	KindVisits:     {base: "clinic_visits", sheet: "Visits"},
	KindMedicines:  {base: "medicine_stock", sheet: "Medicine_Stock"},
	KindScreenings: {base: "screenings", sheet: "Screenings"},
}

// ParseKind validates a table name.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := layouts[k]; !ok {
		return "", fmt.Errorf("unknown sheet %q", s)
	}
	return k, nil
}

// ParseFormat validates a format name. The empty string selects xlsx.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unknown sheet format %q", s)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return ContentTypeCSV
	}
	return ContentTypeXLSX
}

// Filename returns the download name of the table in format f.
func (k Kind) Filename(f Format) string {
	return layouts[k].base + "." + string(f)
}

// SheetName returns the worksheet name used inside the workbook.
func (k Kind) SheetName() string { return layouts[k].sheet }

type table struct {
	header []string
	rows   [][]any
}

func visitTable(rows []domain.VisitRecord) table {
	t := table{header: []string{"id", "timestamp", "student_name", "student_class", "complaint", "treatment", "medicine_usage"}}
	for _, v := range rows {
		t.rows = append(t.rows, []any{v.ID.String(), v.Timestamp, v.StudentName, v.StudentClass, v.Complaint, v.Treatment, v.MedicineUsage})
	}
	return t
}

func medicineTable(rows []domain.Medicine) table {
	t := table{header: []string{"id", "name", "stock"}}
	for _, m := range rows {
		t.rows = append(t.rows, []any{m.ID.String(), m.Name, m.Stock})
	}
	return t
}

func screeningTable(rows []domain.ScreeningRecord) table {
	t := table{header: []string{"id", "date", "student_id", "student_name", "student_class", "result", "notes", "examiner"}}
	for _, s := range rows {
		t.rows = append(t.rows, []any{s.ID.String(), s.Date, s.StudentID.String(), s.StudentName, s.StudentClass, string(s.Result), s.Notes, s.Examiner})
	}
	return t
}

// WriteVisits writes the visit table as CSV.
func WriteVisits(w io.Writer, rows []domain.VisitRecord) error {
	return writeCSV(w, visitTable(rows))
}

// WriteMedicines writes the catalog table as CSV.
func WriteMedicines(w io.Writer, rows []domain.Medicine) error {
	return writeCSV(w, medicineTable(rows))
}

// WriteScreenings writes the screening table as CSV.
func WriteScreenings(w io.Writer, rows []domain.ScreeningRecord) error {
	return writeCSV(w, screeningTable(rows))
}

func writeCSV(w io.Writer, t table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.header); err != nil {
		return err
	}
	for _, row := range t.rows {
		rec := make([]string, len(row))
		for i, cell := range row {
			switch v := cell.(type) {
			case int:
				rec[i] = strconv.Itoa(v)
			case string:
				rec[i] = neutralize(v)
			default:
				rec[i] = fmt.Sprint(v)
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// neutralize prefixes text that a spreadsheet program would evaluate as a
// formula when the CSV is opened.
func neutralize(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

// writeXLSX renders t as a single-sheet workbook. Text cells are stored as
// strings, so they are never evaluated as formulas.
func writeXLSX(w io.Writer, sheet string, t table) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}
	header := make([]any, len(t.header))
	for i, h := range t.header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range t.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// Export renders one table from the aggregate.
func Export(kind Kind, format Format, agg domain.Aggregate) (Artifact, error) {
	var t table
	switch kind {
	case KindVisits:
		t = visitTable(agg.Visits)
	case KindMedicines:
		t = medicineTable(agg.Medicines)
	case KindScreenings:
		t = screeningTable(agg.Screenings)
	default:
		return Artifact{}, fmt.Errorf("unknown sheet %q", kind)
	}
	var (
		buf bytes.Buffer
		err error
	)
	switch format {
	case FormatXLSX:
		err = writeXLSX(&buf, kind.SheetName(), t)
	case FormatCSV:
		err = writeCSV(&buf, t)
	default:
		return Artifact{}, fmt.Errorf("unknown sheet format %q", format)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("write %s: %w", kind, err)
	}
	return Artifact{
		Kind:        kind,
		Format:      format,
		Filename:    kind.Filename(format),
		ContentType: format.ContentType(),
		Rows:        len(t.rows),
		Payload:     buf.Bytes(),
	}, nil
}
