package audit

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strconv"
)

// ExportJSON writes events as a JSON array.
func ExportJSON(w io.Writer, events []Event) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(events)
}

// ExportCSV writes events as CSV with a header row, via encoding/csv —
// the same library the Go standard distribution offers and the pack's
// examples don't displace with a third-party alternative for this
// narrow, standard tabular format.
func ExportCSV(w io.Writer, events []Event) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"event_id", "timestamp", "doctor_id", "patient_id", "action", "record_type", "record_id", "success"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, e := range events {
		row := []string{
			e.EventID,
			e.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			strconv.FormatInt(e.DoctorID, 10),
			strconv.FormatInt(e.PatientID, 10),
			e.Action,
			e.RecordType,
			strconv.FormatInt(e.RecordID, 10),
			strconv.FormatBool(e.Success),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

var htmlTemplate = template.Must(template.New("audit").Parse(`<table border="1">
<tr><th>Event ID</th><th>Timestamp</th><th>Doctor</th><th>Patient</th><th>Action</th><th>Record Type</th><th>Record ID</th><th>Success</th></tr>
{{range .}}<tr><td>{{.EventID}}</td><td>{{.Timestamp}}</td><td>{{.DoctorID}}</td><td>{{.PatientID}}</td><td>{{.Action}}</td><td>{{.RecordType}}</td><td>{{.RecordID}}</td><td>{{.Success}}</td></tr>
{{end}}</table>
`))

// ExportHTML writes events as a minimal HTML table via html/template.
// No third-party templating library appears anywhere in the example
// corpus, so this one ambient export format stays on the standard
// library; html/template's auto-escaping also matters here since
// Action/RecordType values ultimately trace back to caller input.
func ExportHTML(w io.Writer, events []Event) error {
	if err := htmlTemplate.Execute(w, events); err != nil {
		return fmt.Errorf("audit: export html: %w", err)
	}
	return nil
}
