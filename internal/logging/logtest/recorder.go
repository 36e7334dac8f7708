// Package logtest provides a Logger that records entries for assertions.
package logtest

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/realmd/internal/logging"
)

// Entry is one recorded log call. Fields holds the key/value pairs of the
// call merged with those of every With in the chain.
type Entry struct {
	Level  string
	Msg    string
	Fields map[string]any
}

// Recorder is a logging.Logger that keeps every entry in memory.
type Recorder struct {
	mu      *sync.Mutex
	entries *[]Entry
	fields  []any
}

func NewRecorder() *Recorder {
	return &Recorder{mu: &sync.Mutex{}, entries: &[]Entry{}}
}

func (r *Recorder) record(level, msg string, args []any) {
	fields := make(map[string]any)
	all := append(append([]any{}, r.fields...), args...)
	for i := 0; i+1 < len(all); i += 2 {
		if k, ok := all[i].(string); ok {
			fields[k] = all[i+1]
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.entries = append(*r.entries, Entry{Level: level, Msg: msg, Fields: fields})
}

func (r *Recorder) Debug(_ context.Context, msg string, args ...any) { r.record("DEBUG", msg, args) }
func (r *Recorder) Info(_ context.Context, msg string, args ...any)  { r.record("INFO", msg, args) }
func (r *Recorder) Warn(_ context.Context, msg string, args ...any)  { r.record("WARN", msg, args) }
func (r *Recorder) Error(_ context.Context, msg string, args ...any) { r.record("ERROR", msg, args) }

func (r *Recorder) With(args ...any) logging.Logger {
	return &Recorder{
		mu:      r.mu,
		entries: r.entries,
		fields:  append(append([]any{}, r.fields...), args...),
	}
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), *r.entries...)
}

// Messages returns the entries whose message equals msg.
func (r *Recorder) Messages(msg string) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Msg == msg {
			out = append(out, e)
		}
	}
	return out
}

// Reset drops all recorded entries.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.entries = (*r.entries)[:0]
}
