package fabpack

import (
	"fmt"
	"time"

	"github.com/warpfork/go-errcat"
)

/*
	Monitor carries the optional progress and diagnostic sink for one
	operation.  The zero value means "no monitoring" and costs nothing.

	Events are purely observational: they never influence control flow,
	and a misbehaving consumer (e.g. one that closed the channel early)
	cannot abort the operation -- Send isolates the panic.

	The operation owns the channel lifecycle and closes it on return,
	success or failure, so a range over Monitor.Chan terminates.
*/
type Monitor struct {
	Chan chan Event
}

// Send delivers an event to the sink, if there is one.
// Panics out of the channel send are swallowed: diagnostics are
// best-effort and must never break the operation they narrate.
func (m Monitor) Send(ev Event) {
	if m.Chan == nil {
		return
	}
	defer func() { _ = recover() }()
	m.Chan <- ev
}

// Event is a union: exactly one member is non-nil.
type Event struct {
	Log      *Event_Log
	Progress *Event_Progress
	Result   *Event_Result
}

type LogLevel int8

const (
	LogError = LogLevel(4)
	LogWarn  = LogLevel(3)
	LogInfo  = LogLevel(2)
	LogDebug = LogLevel(1)
)

// Event_Log is a freetext diagnostic line plus structured detail pairs.
type Event_Log struct {
	Time   time.Time
	Level  LogLevel
	Msg    string
	Detail [][2]string
}

// Event_Progress is a coarse progress notification, batched by the
// emitter (once per 1000 processed entries during a walk).
type Event_Progress struct {
	IncrementPercent int
	Message          string
}

// Event_Result is the terminal event of an operation; also the shape the
// CLI serializes for --format=json.
type Event_Result struct {
	Archive *ArchiveResult `json:"archive,omitempty"`
	Extract *ExtractResult `json:"extract,omitempty"`
	Glob    string         `json:"glob,omitempty"`
	Error   *ErrorValue    `json:"error,omitempty"`
}

// ErrorValue is the serializable form of a categorized error.
type ErrorValue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// SetError captures an error's category and message for serialization.
// A nil error leaves the result untouched.
func (r *Event_Result) SetError(err error) {
	if err == nil {
		return
	}
	r.Error = &ErrorValue{
		Category: fmt.Sprintf("%v", errcat.Category(err)),
		Message:  err.Error(),
	}
}
