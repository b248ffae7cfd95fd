package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string       `json:"event,omitempty"`
	Reason         string       `json:"reason,omitempty"`
	State          string       `json:"state"`
	Cycle          *CycleJSON   `json:"cycle,omitempty"`
	Schedule       ScheduleJSON `json:"schedule"`
	UptimeSeconds  int64        `json:"uptime_seconds"`
	StartTime      string       `json:"start_time"`
	Timestamp      string       `json:"timestamp"`
	LastTransition string       `json:"last_transition,omitempty"`
	MQTT           MQTTStatus   `json:"mqtt"`
	Counts         CountsJSON   `json:"counts"`
	Config         ConfigJSON   `json:"config"`
}

// CycleJSON is the JSON representation of the in-flight cycle.
type CycleJSON struct {
	StartHour int `json:"start_hour"`
	Pin       int `json:"pin"`
	TimeOn    int `json:"time_on"`
	Pulses    int `json:"pulses"`
}

// ScheduleJSON describes the loaded schedule.
type ScheduleJSON struct {
	Fingerprint string `json:"fingerprint"`
	Entries     int    `json:"entries"`
	GPIOMode    string `json:"gpio_mode"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of loop totals.
type CountsJSON struct {
	Transitions       int `json:"transitions"`
	CyclesStarted     int `json:"cycles_started"`
	CyclesCompleted   int `json:"cycles_completed"`
	Pulses            int `json:"pulses"`
	ReloadsApplied    int `json:"reloads_applied"`
	ReloadFailures    int `json:"reload_failures"`
	GPIOWriteFailures int `json:"gpio_write_failures"`
	ModeMismatches    int `json:"mode_mismatches"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs       int64  `json:"poll_ms"`
	Broker       string `json:"broker,omitempty"`
	HTTPAddr     string `json:"http_addr,omitempty"`
	SchedulePath string `json:"schedule_path"`
	GPIOMode     string `json:"gpio_mode"`
	Chip         string `json:"chip"`
}

func buildInner(snap Snapshot) StatusInner {
	state := snap.State
	if state == "" {
		state = "UNKNOWN"
	}

	inner := StatusInner{
		State: state,
		Schedule: ScheduleJSON{
			Fingerprint: snap.Schedule.Fingerprint,
			Entries:     snap.Schedule.Entries,
			GPIOMode:    snap.Schedule.GPIOMode,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Transitions:       snap.Counts.Transitions,
			CyclesStarted:     snap.Counts.CyclesStarted,
			CyclesCompleted:   snap.Counts.CyclesCompleted,
			Pulses:            snap.Counts.Pulses,
			ReloadsApplied:    snap.Counts.ReloadsApplied,
			ReloadFailures:    snap.Counts.ReloadFailures,
			GPIOWriteFailures: snap.Counts.GPIOWriteFailures,
			ModeMismatches:    snap.Counts.ModeMismatches,
		},
		Config: ConfigJSON{
			PollMs:       snap.Config.PollMs,
			Broker:       snap.Config.Broker,
			HTTPAddr:     snap.Config.HTTPAddr,
			SchedulePath: snap.Config.SchedulePath,
			GPIOMode:     snap.Config.GPIOMode,
			Chip:         snap.Config.Chip,
		},
	}

	if snap.Cycle != nil {
		inner.Cycle = &CycleJSON{
			StartHour: snap.Cycle.StartHour,
			Pin:       snap.Cycle.Pin,
			TimeOn:    snap.Cycle.TimeOn,
			Pulses:    snap.Cycle.Pulses,
		}
	}
	if !snap.LastTransition.IsZero() {
		inner.LastTransition = snap.LastTransition.UTC().Format(time.RFC3339)
	}

	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
