// Package permit renders the early-release permit issued when a visit ends in
// the student being sent home.
package permit

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"uksledger/pkg/domain"
)

// IssueDateLayout formats the issue date as day/month/year without padding.
const IssueDateLayout = "2/1/2006"

// Countersignature is the blank line left for the unit officer.
const Countersignature = "(.......................................)"

// Letterhead names the issuing institution.
type Letterhead struct {
	School string
	Unit   string
}

// DefaultLetterhead is used when no letterhead is configured.
var DefaultLetterhead = Letterhead{School: "SMP NEGERI 7", Unit: "UNIT KESEHATAN SEKOLAH (UKS)"}

// Document is the rendered permit content.
type Document struct {
	Title            string
	School           string
	Unit             string
	Intro            string
	StudentName      string
	StudentClass     string
	ExaminedAt       string
	Complaint        string
	Treatment        string
	Statement        string
	IssuedOn         string
	StudentLabel     string
	OfficerLabel     string
	Countersignature string
}

// Eligible reports whether a permit may be issued for the visit.
func Eligible(record domain.VisitRecord) bool {
	return record.IsDischarge()
}

// Render builds the permit for record. It performs no I/O.
func Render(record domain.VisitRecord, issued time.Time, lh Letterhead) Document {
	if lh.School == "" && lh.Unit == "" {
		lh = DefaultLetterhead
	}
	return Document{
		Title:            "STUDENT EARLY RELEASE PERMIT",
		School:           lh.School,
		Unit:             lh.Unit,
		Intro:            "This is to certify that the student below:",
		StudentName:      record.StudentName,
		StudentClass:     record.StudentClass,
		ExaminedAt:       strings.Replace(record.Timestamp, "T", " ", 1),
		Complaint:        record.Complaint,
		Treatment:        record.Treatment,
		Statement:        "is permitted to go home early for health reasons and is advised to rest or seek further examination at a community health centre or hospital.",
		IssuedOn:         issued.Format(IssueDateLayout),
		StudentLabel:     "Student,",
		OfficerLabel:     "Health Unit Officer,",
		Countersignature: Countersignature,
	}
}

// WriteText writes a plain-text rendition suitable for a receipt printer.
func (d Document) WriteText(w io.Writer) error {
	rows := [][2]string{
		{"Student Name", d.StudentName},
		{"Class", d.StudentClass},
		{"Examined At", d.ExaminedAt},
		{"Complaint", d.Complaint},
		{"Treatment", d.Treatment},
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n%s\n\n%s\n", d.Title, d.School, d.Unit, d.Intro)
	for _, r := range rows {
		fmt.Fprintf(&b, "%-14s: %s\n", r[0], r[1])
	}
	fmt.Fprintf(&b, "\n%s\n\n", d.Statement)
	fmt.Fprintf(&b, "%s\n\n\n%s\n\n", d.StudentLabel, strings.ToUpper(d.StudentName))
	fmt.Fprintf(&b, "Issued: %s\n%s\n\n\n%s\n", d.IssuedOn, d.OfficerLabel, d.Countersignature)
	_, err := io.WriteString(w, b.String())
	return err
}

var htmlTemplate = template.Must(template.New("permit").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<header>
<h1>{{.Title}}</h1>
<h2>{{.School}}</h2>
<p>{{.Unit}}</p>
</header>
<p>{{.Intro}}</p>
<table>
<tr><th>Student Name</th><td>{{.StudentName}}</td></tr>
<tr><th>Class</th><td>{{.StudentClass}}</td></tr>
<tr><th>Examined At</th><td>{{.ExaminedAt}}</td></tr>
<tr><th>Complaint</th><td>{{.Complaint}}</td></tr>
<tr><th>Treatment</th><td>{{.Treatment}}</td></tr>
</table>
<p><em>{{.Statement}}</em></p>
<footer>
<div class="student"><p>{{.StudentLabel}}</p><p><u>{{.StudentName}}</u></p></div>
<div class="officer"><p>Issued: {{.IssuedOn}}</p><p>{{.OfficerLabel}}</p><p>{{.Countersignature}}</p></div>
</footer>
</body></html>
`))

// WriteHTML writes a printable HTML page. Field values are escaped.
func (d Document) WriteHTML(w io.Writer) error {
	return htmlTemplate.Execute(w, d)
}
