package main

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/grower/internal/gpio"
	"github.com/sweeney/grower/internal/logging"
	"github.com/sweeney/grower/internal/metrics"
	"github.com/sweeney/grower/internal/mqtt"
	"github.com/sweeney/grower/internal/schedule"
	"github.com/sweeney/grower/internal/status"
	"github.com/sweeney/grower/internal/watering"
)

func TestSignalName(t *testing.T) {
	if got := signalName(syscall.SIGINT); got != "SIGINT" {
		t.Errorf("SIGINT: got %q", got)
	}
	if got := signalName(syscall.SIGTERM); got != "SIGTERM" {
		t.Errorf("SIGTERM: got %q", got)
	}
	if got := signalName(syscall.SIGHUP); got != "UNKNOWN" {
		t.Errorf("SIGHUP: got %q, want UNKNOWN", got)
	}
}

// writeSchedule writes a schedule file into a temp dir and returns its path.
func writeSchedule(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "watering.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write schedule: %v", err)
	}
	return path
}

const idleSchedule = `gpioMode: BOARD
watering:
  - startHour: 10
    pin: 7
    timeOn: 2
`

// newLoopFixture builds a real store, a machine whose clock never matches
// the schedule, and the fakes runLoop fans out to.
func newLoopFixture(t *testing.T) (*watering.Machine, *schedule.Store, *mqtt.FakePublisher, *status.Tracker, *metrics.Recorder, *logging.Fake) {
	t.Helper()
	path := writeSchedule(t, idleSchedule)
	store, err := schedule.NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	ctrl := gpio.NewFake(gpio.ModeBoard)
	log := &logging.Fake{}
	// Hour 3 never matches the schedule's hour 10, so the machine idles.
	clock := time.Date(2026, 8, 1, 3, 0, 0, 0, time.UTC)
	machine := watering.New(store, ctrl, log, watering.Options{
		Now:   func() time.Time { return clock },
		Pause: func(time.Duration) {},
	})

	pub := mqtt.NewFakePublisher()
	tracker := status.NewTracker(time.Now(), status.Config{SchedulePath: path})
	recorder := metrics.New()
	return machine, store, pub, tracker, recorder, log
}

// driveLoop runs runLoop in a goroutine, feeds it nTicks ticks, then the
// signal, and returns runLoop's error.
func driveLoop(t *testing.T, machine *watering.Machine, store *schedule.Store, pub *mqtt.FakePublisher, tracker *status.Tracker, recorder *metrics.Recorder, log logging.Logger, nTicks int, s os.Signal) error {
	t.Helper()
	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(machine, store, pub, pub, tracker, recorder, log, tick, sig)
	}()

	for i := 0; i < nTicks; i++ {
		tick <- time.Time{}
	}
	sig <- s

	return <-errCh
}

func TestRunLoopShutdownEvent(t *testing.T) {
	machine, store, pub, tracker, recorder, log := newLoopFixture(t)

	err := driveLoop(t, machine, store, pub, tracker, recorder, log, 3, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(pub.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(pub.SystemEvents))
	}
	se := pub.SystemEvents[0]
	if se.Event != "SHUTDOWN" {
		t.Errorf("event: got %q, want SHUTDOWN", se.Event)
	}
	if se.Reason != "SIGTERM" {
		t.Errorf("reason: got %q, want SIGTERM", se.Reason)
	}
	if !se.Retained {
		t.Error("shutdown event should be retained")
	}
	if !strings.Contains(string(se.RawPayload), `"event":"SHUTDOWN"`) {
		t.Errorf("payload missing shutdown event: %s", se.RawPayload)
	}
}

func TestRunLoopPublishesFirstTransition(t *testing.T) {
	machine, store, pub, tracker, recorder, log := newLoopFixture(t)

	err := driveLoop(t, machine, store, pub, tracker, recorder, log, 4, syscall.SIGINT)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	// Only the initial settle into Idle transitions; later ticks stay put.
	if len(pub.Events) != 1 {
		t.Fatalf("expected 1 watering event, got %d", len(pub.Events))
	}
	if pub.Events[0].State != watering.StateIdle {
		t.Errorf("state: got %q, want Idle", pub.Events[0].State)
	}
	if pub.Events[0].From != "" {
		t.Errorf("from: got %q, want empty", pub.Events[0].From)
	}

	snap := tracker.Snapshot()
	if snap.State != watering.StateIdle {
		t.Errorf("tracker state: got %q, want Idle", snap.State)
	}
	if snap.Counts.Transitions != 1 {
		t.Errorf("tracker transitions: got %d, want 1", snap.Counts.Transitions)
	}
}

func TestRunLoopReloadUpdatesTracker(t *testing.T) {
	machine, store, pub, tracker, recorder, log := newLoopFixture(t)
	path := tracker.Snapshot().Config.SchedulePath

	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(machine, store, pub, pub, tracker, recorder, log, tick, sig)
	}()

	tick <- time.Time{}

	grown := idleSchedule + `  - startHour: 12
    pin: 11
    timeOn: 1
`
	if err := os.WriteFile(path, []byte(grown), 0644); err != nil {
		t.Fatalf("rewrite schedule: %v", err)
	}

	tick <- time.Time{}
	sig <- syscall.SIGTERM
	if err := <-errCh; err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	snap := tracker.Snapshot()
	if snap.Schedule.Entries != 2 {
		t.Errorf("schedule entries: got %d, want 2", snap.Schedule.Entries)
	}
	if snap.Counts.ReloadsApplied != 1 {
		t.Errorf("reloads applied: got %d, want 1", snap.Counts.ReloadsApplied)
	}
}

func TestRunLoopPublishErrorDoesNotStopLoop(t *testing.T) {
	machine, store, pub, tracker, recorder, log := newLoopFixture(t)
	pub.PublishError = os.ErrClosed

	err := driveLoop(t, machine, store, pub, tracker, recorder, log, 3, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(pub.SystemEvents) != 1 || pub.SystemEvents[0].Event != "SHUTDOWN" {
		t.Error("expected SHUTDOWN despite publish errors")
	}
	if log.Count(logging.LevelWarning, "publish error") == 0 {
		t.Error("expected a publish error warning")
	}
}

func TestRunLoopRecoversPanic(t *testing.T) {
	// A machine with no config source panics on the first tick; runLoop
	// must convert that into an error instead of crashing the process.
	machine := watering.New(nil, gpio.NewFake(gpio.ModeBoard), nil, watering.Options{
		Pause: func(time.Duration) {},
	})
	pub := mqtt.NewFakePublisher()
	log := &logging.Fake{}

	tick := make(chan time.Time, 1)
	sig := make(chan os.Signal, 1)
	tick <- time.Time{}

	err := runLoop(machine, nil, pub, pub, nil, nil, log, tick, sig)
	if err == nil {
		t.Fatal("expected error from recovered panic")
	}
	if !strings.Contains(err.Error(), "panic in watering loop") {
		t.Errorf("error: got %q", err)
	}
	if log.Count(logging.LevelError, "panic in watering loop") != 1 {
		t.Error("expected panic to be logged")
	}
}
