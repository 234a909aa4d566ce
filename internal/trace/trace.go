// Package trace records the pipeline's logical events as JSON lines.
//
// The trace is observational only and must never affect pipeline behavior:
// recording is inert (never panics, never returns an error) and a nil or
// absent sink is a no-op.
package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"sync"
)

// EventKind is the stable discriminator for trace events. The string values
// are part of the trace format; do not rename.
type EventKind string

const (
	EventScanComplete      EventKind = "ScanComplete"
	EventPrecheckWarning   EventKind = "PrecheckWarning"
	EventJobStarted        EventKind = "JobStarted"
	EventJobFinished       EventKind = "JobFinished"
	EventStylesheetEmitted EventKind = "StylesheetEmitted"
	EventRunFinished       EventKind = "RunFinished"
)

// Event is one logical pipeline occurrence.
//
// RunID and Seq are assigned by the sink; producers leave them zero.
type Event struct {
	RunID string    `json:"runId"`
	Seq   int       `json:"seq"`
	Kind  EventKind `json:"kind"`

	// Subject names what the event refers to: a subset name for job events,
	// a file path for emit events.
	Subject string `json:"subject,omitempty"`

	// Status is a stable outcome code for JobFinished and RunFinished
	// events, e.g. "ok", "tool-failure", "timeout".
	Status string `json:"status,omitempty"`

	// ContentHash is the hash of emitted content for StylesheetEmitted.
	ContentHash string `json:"contentHash,omitempty"`
}

// Sink is the minimal interface the pipeline depends on.
//
// Record must be inert: it must not panic and must not return errors. The
// caller must assume Record may be a no-op.
type Sink interface {
	Record(event Event)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Record(Event) {}

// SafeRecord records an event and guarantees inertness even if the sink is
// buggy. It intentionally swallows panics.
func SafeRecord(s Sink, event Event) {
	if s == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	s.Record(event)
}

// Log is a concurrency-safe sink writing one JSON object per line. It stamps
// each event with the run identity and a monotonic sequence number.
type Log struct {
	mu    sync.Mutex
	enc   *json.Encoder
	runID string
	seq   int
}

// NewLog creates a Log writing to w for the given run.
func NewLog(w io.Writer, runID string) *Log {
	return &Log{enc: json.NewEncoder(w), runID: runID}
}

// Record stamps and writes the event. Write errors are swallowed: the trace
// must never fail the run.
func (l *Log) Record(event Event) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	event.RunID = l.runID
	event.Seq = l.seq
	_ = l.enc.Encode(event)
}

// ContentHash returns the sha256 hex digest of content. Used to stamp the
// emitted stylesheet into the trace so two runs can be compared byte-for-byte
// without keeping the stylesheet around.
func ContentHash(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
