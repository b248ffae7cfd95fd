package logging

import (
	"fmt"
	"strings"
)

// FakeEntry is one recorded log call.
type FakeEntry struct {
	Level   Level
	Message string
}

// Fake records formatted entries for test assertions. Unlike FileLogger it
// has no level gate: everything is recorded.
type Fake struct {
	Entries []FakeEntry
}

// Debugf records a DEBUG entry.
func (f *Fake) Debugf(format string, args ...any) { f.append(LevelDebug, format, args) }

// Infof records an INFO entry.
func (f *Fake) Infof(format string, args ...any) { f.append(LevelInfo, format, args) }

// Warnf records a WARNING entry.
func (f *Fake) Warnf(format string, args ...any) { f.append(LevelWarning, format, args) }

// Errorf records an ERROR entry.
func (f *Fake) Errorf(format string, args ...any) { f.append(LevelError, format, args) }

func (f *Fake) append(lv Level, format string, args []any) {
	f.Entries = append(f.Entries, FakeEntry{Level: lv, Message: fmt.Sprintf(format, args...)})
}

// Count returns how many recorded entries at the given level contain substr.
func (f *Fake) Count(lv Level, substr string) int {
	n := 0
	for _, e := range f.Entries {
		if e.Level == lv && strings.Contains(e.Message, substr) {
			n++
		}
	}
	return n
}

// Reset clears recorded entries.
func (f *Fake) Reset() {
	f.Entries = nil
}
