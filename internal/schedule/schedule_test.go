package schedule

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/sweeney/grower/internal/gpio"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

const validSchedule = `gpioMode: BOARD
watering:
  - startHour: 6
    pin: 7
    timeOn: 2
  - startHour: 18
    pin: 12
    timeOn: 5
`

func TestParseValid(t *testing.T) {
	snap, err := Parse([]byte(validSchedule))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if snap.Mode != gpio.ModeBoard {
		t.Errorf("Mode: got %q, want BOARD", snap.Mode)
	}
	if len(snap.Watering) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(snap.Watering))
	}

	e, ok := snap.Lookup(6)
	if !ok {
		t.Fatal("expected entry at hour 6")
	}
	if e.Pin != 7 || e.TimeOn != 2 {
		t.Errorf("entry 6: got pin=%d timeOn=%d, want pin=7 timeOn=2", e.Pin, e.TimeOn)
	}

	if _, ok := snap.Lookup(5); ok {
		t.Error("expected no entry at hour 5")
	}
}

func TestParseModeDefaultsToBoard(t *testing.T) {
	snap, err := Parse([]byte("watering:\n  - startHour: 6\n    pin: 7\n    timeOn: 2\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if snap.Mode != gpio.ModeBoard {
		t.Errorf("absent gpioMode: got %q, want BOARD", snap.Mode)
	}
}

func TestParseBCMMode(t *testing.T) {
	snap, err := Parse([]byte("gpioMode: BCM\nwatering:\n  - startHour: 6\n    pin: 17\n    timeOn: 1\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if snap.Mode != gpio.ModeBCM {
		t.Errorf("Mode: got %q, want BCM", snap.Mode)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not yaml", ":\n\t-"},
		{"unknown mode", "gpioMode: WIRINGPI\nwatering:\n  - startHour: 6\n    pin: 7\n    timeOn: 2\n"},
		{"no entries", "gpioMode: BOARD\n"},
		{"empty entries", "gpioMode: BOARD\nwatering: []\n"},
		{"missing startHour", "watering:\n  - pin: 7\n    timeOn: 2\n"},
		{"missing pin", "watering:\n  - startHour: 6\n    timeOn: 2\n"},
		{"missing timeOn", "watering:\n  - startHour: 6\n    pin: 7\n"},
		{"hour too large", "watering:\n  - startHour: 24\n    pin: 7\n    timeOn: 2\n"},
		{"negative hour", "watering:\n  - startHour: -1\n    pin: 7\n    timeOn: 2\n"},
		{"zero timeOn", "watering:\n  - startHour: 6\n    pin: 7\n    timeOn: 0\n"},
		{"duplicate hour", "watering:\n  - startHour: 6\n    pin: 7\n    timeOn: 2\n  - startHour: 6\n    pin: 8\n    timeOn: 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.in)); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	in := Snapshot{
		Mode:     gpio.ModeBCM,
		Watering: Schedule{6: {StartHour: 6, Pin: 12, TimeOn: 5}},
	}

	data, err := in.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	out, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(Encode(...)): %v", err)
	}

	if out.Mode != in.Mode {
		t.Errorf("Mode: got %q, want %q", out.Mode, in.Mode)
	}
	e, ok := out.Lookup(6)
	if !ok {
		t.Fatal("expected entry at hour 6 after round trip")
	}
	if e != (Entry{StartHour: 6, Pin: 12, TimeOn: 5}) {
		t.Errorf("entry: got %+v", e)
	}
}

func TestEncodeOrdersByStartHour(t *testing.T) {
	snap := Snapshot{
		Mode: gpio.ModeBoard,
		Watering: Schedule{
			18: {StartHour: 18, Pin: 12, TimeOn: 5},
			6:  {StartHour: 6, Pin: 7, TimeOn: 2},
		},
	}

	data, err := snap.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	first := strings.Index(string(data), "startHour: 6")
	second := strings.Index(string(data), "startHour: 18")
	if first == -1 || second == -1 || first > second {
		t.Errorf("expected hour 6 before hour 18 in output:\n%s", data)
	}
}

func TestNewStoreValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watering.yml")
	writeFile(t, path, validSchedule)

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if len(store.Snapshot().Watering) != 2 {
		t.Errorf("expected 2 entries, got %d", len(store.Snapshot().Watering))
	}
	if store.ContentFingerprint() == FingerprintUnavailable {
		t.Error("expected a real fingerprint for a readable file")
	}
}

func TestNewStoreMissingFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yml")

	store, err := NewStore(path)
	if err == nil {
		t.Error("expected advisory error for missing file")
	}
	if store == nil {
		t.Fatal("store must be usable despite the load error")
	}

	snap := store.Snapshot()
	if snap.Mode != gpio.ModeBoard {
		t.Errorf("fallback mode: got %q, want BOARD", snap.Mode)
	}
	e, ok := snap.Watering[-1]
	if !ok {
		t.Fatal("fallback snapshot should hold the sentinel entry")
	}
	if e.Pin != 8 || e.TimeOn != 3 {
		t.Errorf("fallback entry: got pin=%d timeOn=%d, want pin=8 timeOn=3", e.Pin, e.TimeOn)
	}
	if store.ContentFingerprint() != FingerprintUnavailable {
		t.Errorf("fingerprint: got %q, want %q", store.ContentFingerprint(), FingerprintUnavailable)
	}
}

func TestReloadUnchangedDoesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watering.yml")
	writeFile(t, path, validSchedule)

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	before := reflect.ValueOf(store.Snapshot().Watering).Pointer()

	changed, err := store.ReloadIfChanged()
	if err != nil {
		t.Fatalf("ReloadIfChanged: %v", err)
	}
	if changed {
		t.Error("unchanged file should not trigger a reload")
	}

	// Same underlying map: no reparse happened.
	after := reflect.ValueOf(store.Snapshot().Watering).Pointer()
	if before != after {
		t.Error("snapshot identity changed without a reload")
	}
}

func TestReloadAppliesChangeOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watering.yml")
	writeFile(t, path, validSchedule)

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	writeFile(t, path, "gpioMode: BCM\nwatering:\n  - startHour: 9\n    pin: 17\n    timeOn: 1\n")

	changed, err := store.ReloadIfChanged()
	if err != nil {
		t.Fatalf("ReloadIfChanged: %v", err)
	}
	if !changed {
		t.Fatal("expected reload to apply")
	}

	snap := store.Snapshot()
	if snap.Mode != gpio.ModeBCM {
		t.Errorf("Mode: got %q, want BCM", snap.Mode)
	}
	if _, ok := snap.Lookup(9); !ok {
		t.Error("expected new entry at hour 9")
	}

	// Second call without another edit: no double-apply.
	changed, err = store.ReloadIfChanged()
	if err != nil {
		t.Fatalf("second ReloadIfChanged: %v", err)
	}
	if changed {
		t.Error("reload applied twice for a single edit")
	}
}

func TestReloadFailureRetainsSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watering.yml")
	writeFile(t, path, validSchedule)

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	writeFile(t, path, "gpioMode: NOPE\n")

	changed, err := store.ReloadIfChanged()
	if changed {
		t.Error("broken file must not replace the snapshot")
	}
	if err == nil {
		t.Fatal("expected reload error")
	}

	snap := store.Snapshot()
	if len(snap.Watering) != 2 {
		t.Errorf("previous snapshot lost: got %d entries, want 2", len(snap.Watering))
	}

	// Fingerprint was not advanced: the broken file is retried every call.
	if _, err := store.ReloadIfChanged(); err == nil {
		t.Error("expected the broken file to be retried and fail again")
	}

	// Restoring the previous content converges silently.
	writeFile(t, path, validSchedule)
	changed, err = store.ReloadIfChanged()
	if err != nil {
		t.Fatalf("ReloadIfChanged after restore: %v", err)
	}
	if changed {
		t.Error("restored content matches the cached fingerprint, no reload expected")
	}
}

func TestReloadAfterMissingFileAppears(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watering.yml")

	store, _ := NewStore(path)

	writeFile(t, path, validSchedule)

	changed, err := store.ReloadIfChanged()
	if err != nil {
		t.Fatalf("ReloadIfChanged: %v", err)
	}
	if !changed {
		t.Fatal("expected reload once the file appears")
	}
	if len(store.Snapshot().Watering) != 2 {
		t.Errorf("expected 2 entries after reload, got %d", len(store.Snapshot().Watering))
	}
}
