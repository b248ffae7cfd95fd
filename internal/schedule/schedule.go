// Package schedule loads the watering schedule and hot-reloads it when the
// backing file changes. The store caches the last good snapshot; a broken or
// missing file never replaces it.
package schedule

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/grower/internal/gpio"
)

// FingerprintUnavailable is the sentinel fingerprint used when the schedule
// file cannot be read.
const FingerprintUnavailable = "none"

// Entry is one watering slot: at StartHour (UTC), pulse Pin once per minute
// for TimeOn minutes.
type Entry struct {
	StartHour int
	Pin       int
	TimeOn    int
}

// Schedule maps start hour to entry. Rebuilt wholesale on every reload,
// never partially mutated.
type Schedule map[int]Entry

// Snapshot is one complete configuration: the pin-numbering mode and the
// schedule, parsed from the same file read.
type Snapshot struct {
	Mode     gpio.Mode
	Watering Schedule
}

// Lookup returns the entry starting at the given hour, if any.
func (s Snapshot) Lookup(hour int) (Entry, bool) {
	e, ok := s.Watering[hour]
	return e, ok
}

// Fallback returns the built-in snapshot installed when no schedule can be
// loaded at startup. Its start hour never matches a real hour, so the
// machine idles but stays observable instead of crashing.
func Fallback() Snapshot {
	return Snapshot{
		Mode:     gpio.ModeBoard,
		Watering: Schedule{-1: {StartHour: -1, Pin: 8, TimeOn: 3}},
	}
}

// Wire types use pointer fields so that missing keys are detected and
// rejected rather than silently defaulting to zero.

type wireFile struct {
	GpioMode *string     `yaml:"gpioMode"`
	Watering []wireEntry `yaml:"watering"`
}

type wireEntry struct {
	StartHour *int `yaml:"startHour"`
	Pin       *int `yaml:"pin"`
	TimeOn    *int `yaml:"timeOn"`
}

// Parse decodes and validates a schedule document.
func Parse(data []byte) (Snapshot, error) {
	var wf wireFile
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return Snapshot{}, fmt.Errorf("parse schedule: %w", err)
	}

	// Absent gpioMode means physical header numbering.
	mode := gpio.ModeBoard
	if wf.GpioMode != nil {
		m, err := gpio.ParseMode(*wf.GpioMode)
		if err != nil {
			return Snapshot{}, fmt.Errorf("parse schedule: %w", err)
		}
		mode = m
	}

	if len(wf.Watering) == 0 {
		return Snapshot{}, fmt.Errorf("parse schedule: no watering entries")
	}

	sched := make(Schedule, len(wf.Watering))
	for i, we := range wf.Watering {
		if we.StartHour == nil || we.Pin == nil || we.TimeOn == nil {
			return Snapshot{}, fmt.Errorf("parse schedule: entry %d: startHour, pin and timeOn are required", i)
		}
		e := Entry{StartHour: *we.StartHour, Pin: *we.Pin, TimeOn: *we.TimeOn}
		if e.StartHour < 0 || e.StartHour > 23 {
			return Snapshot{}, fmt.Errorf("parse schedule: entry %d: startHour %d out of range 0-23", i, e.StartHour)
		}
		if e.TimeOn <= 0 {
			return Snapshot{}, fmt.Errorf("parse schedule: entry %d: timeOn must be positive, got %d", i, e.TimeOn)
		}
		if _, dup := sched[e.StartHour]; dup {
			return Snapshot{}, fmt.Errorf("parse schedule: duplicate startHour %d", e.StartHour)
		}
		sched[e.StartHour] = e
	}

	return Snapshot{Mode: mode, Watering: sched}, nil
}

// Encode serializes the snapshot back to the source format, entries ordered
// by start hour.
func (s Snapshot) Encode() ([]byte, error) {
	mode := string(s.Mode)
	wf := wireFile{GpioMode: &mode}

	hours := make([]int, 0, len(s.Watering))
	for h := range s.Watering {
		hours = append(hours, h)
	}
	sort.Ints(hours)

	for _, h := range hours {
		e := s.Watering[h]
		startHour, pin, timeOn := e.StartHour, e.Pin, e.TimeOn
		wf.Watering = append(wf.Watering, wireEntry{StartHour: &startHour, Pin: &pin, TimeOn: &timeOn})
	}

	return yaml.Marshal(wf)
}

// Store caches the last good snapshot and its source fingerprint.
// It is accessed only from the single polling loop; no locking.
type Store struct {
	path        string
	snap        Snapshot
	fingerprint string
}

// NewStore loads the schedule at path. If the first load fails the store
// starts with the fallback snapshot and the load error is returned alongside
// the store so the caller can warn; the store is usable either way.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	s.fingerprint = s.ContentFingerprint()

	snap, err := load(path)
	if err != nil {
		s.snap = Fallback()
		return s, err
	}
	s.snap = snap
	return s, nil
}

// Snapshot returns the last successfully parsed snapshot.
func (s *Store) Snapshot() Snapshot {
	return s.snap
}

// ContentFingerprint returns a digest of the raw file bytes, used only to
// detect that the file changed. Returns FingerprintUnavailable if the file
// cannot be read.
func (s *Store) ContentFingerprint() string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return FingerprintUnavailable
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ReloadIfChanged reparses the file when its fingerprint differs from the
// cached one. On success the snapshot and the fingerprint are replaced and
// it returns true. On any failure both are left untouched and the error is
// returned, so a broken edit is retried (and can be warned about) every
// poll until the file is fixed.
func (s *Store) ReloadIfChanged() (bool, error) {
	fp := s.ContentFingerprint()
	if fp == s.fingerprint {
		return false, nil
	}

	snap, err := load(s.path)
	if err != nil {
		return false, err
	}

	s.snap = snap
	s.fingerprint = fp
	return true, nil
}

func load(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read schedule: %w", err)
	}
	return Parse(data)
}
