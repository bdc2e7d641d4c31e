package audit

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvents() []Event {
	return []Event{
		{
			EventID:   "evt-1",
			Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			DoctorID:  1,
			PatientID: 100,
			Action:    "encrypt_data",
			Success:   true,
		},
		{
			EventID:   "evt-2",
			Timestamp: time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC),
			DoctorID:  2,
			PatientID: 100,
			Action:    "decrypt_data",
			Success:   false,
		},
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportJSON(&buf, sampleEvents()))

	var decoded []Event
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded, 2)
	assert.Equal(t, "evt-1", decoded[0].EventID)
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, sampleEvents()))

	reader := csv.NewReader(&buf)
	rows, err := reader.ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3, "header plus two events")
	assert.Equal(t, "event_id", rows[0][0])
	assert.Equal(t, "evt-1", rows[1][0])
	assert.Equal(t, "evt-2", rows[2][0])
}

func TestExportHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportHTML(&buf, sampleEvents()))

	out := buf.String()
	assert.Contains(t, out, "<table")
	assert.Contains(t, out, "evt-1")
	assert.Contains(t, out, "evt-2")
}

func TestExportHTML_EscapesActionField(t *testing.T) {
	events := []Event{{EventID: "evt-xss", Action: "<script>alert(1)</script>"}}

	var buf bytes.Buffer
	require.NoError(t, ExportHTML(&buf, events))

	assert.NotContains(t, buf.String(), "<script>alert(1)</script>", "html/template must auto-escape caller-derived fields")
}
