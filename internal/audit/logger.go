// Package audit implements the append-only, bounded audit log shared by
// every component that records a security-relevant event: key
// operations, crypto operations, doctor login/logout, and access-session
// lifecycle.
package audit

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one audit log entry. JSON tags follow the wire contract's
// snake_case field names; Timestamp marshals as RFC3339 (a valid
// ISO-8601 profile) via time.Time's own MarshalJSON.
type Event struct {
	EventID    string            `json:"event_id"`
	Timestamp  time.Time         `json:"timestamp_iso8601"`
	DoctorID   int64             `json:"doctor_id"`
	PatientID  int64             `json:"patient_id"`
	Action     string            `json:"action"`
	RecordType string            `json:"record_type,omitempty"`
	RecordID   int64             `json:"record_id,omitempty"`
	Success    bool              `json:"success"`
	Details    map[string]string `json:"details,omitempty"`
}

// DurableSink persists events beyond the process lifetime. Hosts that
// don't supply one get a pure in-memory ring buffer.
type DurableSink interface {
	AppendAudit(eventJSON []byte) error
}

// LoggerConfig configures the audit log's capacity and durable sink.
type LoggerConfig struct {
	MaxEntries int
	Sink       DurableSink
	NowFunc    func() time.Time
}

// Logger is an append-only, bounded, filterable audit log. Writes never
// fail the caller: if the durable sink errors, the event still lands in
// the in-memory ring and Degraded() starts reporting true.
type Logger struct {
	maxEntries int
	sink       DurableSink
	now        func() time.Time

	mu        sync.RWMutex
	events    []Event
	degraded  bool
}

// NewLogger constructs a Logger, defaulting MaxEntries to 10,000.
func NewLogger(cfg LoggerConfig) *Logger {
	max := cfg.MaxEntries
	if max <= 0 {
		max = 10000
	}
	now := cfg.NowFunc
	if now == nil {
		now = time.Now
	}
	return &Logger{
		maxEntries: max,
		sink:       cfg.Sink,
		now:        now,
	}
}

// Append records an event. The durable sink, if configured, is written
// best-effort; a sink failure only flips Degraded(), it never returns an
// error to the caller (spec §4.8: audit writes never raise).
func (l *Logger) Append(e Event) {
	if e.EventID == "" {
		e.EventID = newEventID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now()
	}

	l.mu.Lock()
	l.events = append(l.events, e)
	if len(l.events) > l.maxEntries {
		l.events = l.events[len(l.events)-l.maxEntries:]
	}
	sink := l.sink
	l.mu.Unlock()

	if sink == nil {
		return
	}
	blob, err := marshalEvent(e)
	if err != nil {
		l.setDegraded()
		return
	}
	if err := sink.AppendAudit(blob); err != nil {
		l.setDegraded()
	}
}

func (l *Logger) setDegraded() {
	l.mu.Lock()
	l.degraded = true
	l.mu.Unlock()
}

// Degraded reports whether the durable sink has failed at least once
// since construction; the in-memory log continues to function either way.
func (l *Logger) Degraded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.degraded
}

// Filter narrows Query results; zero-valued fields are unfiltered.
type Filter struct {
	DoctorID   int64
	PatientID  int64
	Action     string
	RecordType string
	From       time.Time
	To         time.Time
}

// Query returns a copy of events matching filter, oldest first.
func (l *Logger) Query(filter Filter) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Event, 0, len(l.events))
	for _, e := range l.events {
		if filter.DoctorID != 0 && e.DoctorID != filter.DoctorID {
			continue
		}
		if filter.PatientID != 0 && e.PatientID != filter.PatientID {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.RecordType != "" && e.RecordType != filter.RecordType {
			continue
		}
		if !filter.From.IsZero() && e.Timestamp.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && e.Timestamp.After(filter.To) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Len returns the current number of retained events.
func (l *Logger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

func newEventID() string {
	return uuid.NewString()
}

func marshalEvent(e Event) ([]byte, error) {
	return json.Marshal(e)
}
