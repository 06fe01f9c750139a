package actionlog

import (
	"time"
)

// Entry is one human-readable record of a pipeline step.
type Entry struct {
	Time   time.Time `json:"timestamp"`
	Action string    `json:"action"`
}

// Log is an append-only sequence of entries. The zero value is ready to use.
type Log struct {
	entries []Entry
	now     func() time.Time
}

// New returns an empty log stamped with the given clock; nil uses time.Now.
func New(now func() time.Time) *Log {
	return &Log{now: now}
}

// Append records action with the current time.
func (l *Log) Append(action string) {
	now := time.Now
	if l.now != nil {
		now = l.now
	}
	l.entries = append(l.entries, Entry{Time: now(), Action: action})
}

// Entries returns a copy of the recorded entries in order.
func (l *Log) Entries() []Entry {
	if l == nil {
		return nil
	}
	return append([]Entry(nil), l.entries...)
}

// Len returns the number of entries.
func (l *Log) Len() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

// Actions returns just the action texts in order.
func (l *Log) Actions() []string {
	if l == nil {
		return nil
	}
	out := make([]string, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Action
	}
	return out
}
