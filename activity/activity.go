package activity

import (
	"fmt"
	"sync"
	"time"

	"github.com/smallnest/researchgraph/log"
)

// Level classifies an activity entry for display.
type Level string

const (
	// LevelInfo is a neutral progress message.
	LevelInfo Level = "info"
	// LevelSuccess marks a stage that completed normally.
	LevelSuccess Level = "success"
	// LevelWarning marks a degraded but recoverable outcome.
	LevelWarning Level = "warning"
	// LevelError marks a failure.
	LevelError Level = "error"
	// LevelAgent marks a stage starting work.
	LevelAgent Level = "agent"
)

// Entry is one record in a run's activity log.
type Entry struct {
	RunID   string    `json:"run_id"`
	Stage   string    `json:"stage"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

func (e Entry) String() string {
	return fmt.Sprintf("[%s] %s: %s", e.Level, e.Stage, e.Message)
}

// Sink receives activity entries. Implementations must be safe for
// concurrent use.
type Sink interface {
	Append(e Entry)
}

// SinkFunc is a function adapter for Sink
type SinkFunc func(e Entry)

// Append implements the Sink interface
func (f SinkFunc) Append(e Entry) {
	f(e)
}

// Discard drops every entry.
var Discard Sink = SinkFunc(func(Entry) {})

// Recorder keeps entries in memory and optionally notifies a callback for
// each one. The append and the callback run under the same lock, so entries
// reach the callback in the order they were recorded.
type Recorder struct {
	mu       sync.Mutex
	entries  []Entry
	callback func(Entry)
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Append records e and invokes the callback, if any. A panicking callback is
// recovered and does not lose the entry.
func (r *Recorder) Append(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, e)
	if r.callback != nil {
		r.notify(e)
	}
}

func (r *Recorder) notify(e Entry) {
	defer func() {
		if p := recover(); p != nil {
			log.Warn("activity callback panicked: %v", p)
		}
	}()
	r.callback(e)
}

// SetCallback replaces the notification callback and returns the previous
// one. Passing nil removes it.
func (r *Recorder) SetCallback(cb func(Entry)) (previous func(Entry)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	previous = r.callback
	r.callback = cb
	return previous
}

// Entries returns a copy of the recorded entries.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of recorded entries.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Reset drops all recorded entries. The callback is kept.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}

type multiSink []Sink

func (m multiSink) Append(e Entry) {
	for _, s := range m {
		s.Append(e)
	}
}

// Multi fans entries out to every non-nil sink, in order.
func Multi(sinks ...Sink) Sink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

type safeSink struct {
	next Sink
}

func (s safeSink) Append(e Entry) {
	defer func() {
		if p := recover(); p != nil {
			log.Warn("activity sink panicked: %v", p)
		}
	}()
	s.next.Append(e)
}

// Safe wraps sink so that a panic inside Append is logged and dropped.
// Safe(nil) returns nil.
func Safe(sink Sink) Sink {
	if sink == nil {
		return nil
	}
	if _, ok := sink.(safeSink); ok {
		return sink
	}
	return safeSink{next: sink}
}

// LoggerSink writes entries to a diagnostic logger. Error entries log at
// error level, warnings at warn, the rest at info.
func LoggerSink(logger log.Logger) Sink {
	return SinkFunc(func(e Entry) {
		switch e.Level {
		case LevelError:
			logger.Error("[%s] %s: %s", e.RunID, e.Stage, e.Message)
		case LevelWarning:
			logger.Warn("[%s] %s: %s", e.RunID, e.Stage, e.Message)
		default:
			logger.Info("[%s] %s: %s", e.RunID, e.Stage, e.Message)
		}
	})
}
