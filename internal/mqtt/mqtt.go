// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/grower/internal/watering"
)

// Topic is the MQTT topic for watering state transition events.
const Topic = "garden/grower/watering/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "garden/grower/watering/system"

// Event represents a state transition to be published.
type Event struct {
	Timestamp time.Time
	State     string // state entered
	From      string // state left (may be empty on the first transition)
	Cycle     *watering.Cycle
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a watering event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Watering WateringPayload `json:"watering"`
}

// WateringPayload contains the watering event details.
type WateringPayload struct {
	Timestamp string        `json:"timestamp"`
	Event     string        `json:"event"`
	From      string        `json:"from,omitempty"`
	Cycle     *CyclePayload `json:"cycle,omitempty"`
}

// CyclePayload describes the in-flight cycle attached to an event.
type CyclePayload struct {
	StartHour int `json:"start_hour"`
	Pin       int `json:"pin"`
	TimeOn    int `json:"time_on"`
	Pulses    int `json:"pulses"`
}

// FormatPayload creates the JSON payload for a watering event.
func FormatPayload(event Event) ([]byte, error) {
	payload := Payload{
		Watering: WateringPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.State,
			From:      event.From,
		},
	}
	if event.Cycle != nil {
		payload.Watering.Cycle = &CyclePayload{
			StartHour: event.Cycle.StartHour,
			Pin:       event.Cycle.Pin,
			TimeOn:    event.Cycle.TimeOn,
			Pulses:    event.Cycle.Pulses,
		}
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events that
// don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

type nopPublisher struct{}

func (nopPublisher) Publish(Event) error             { return nil }
func (nopPublisher) PublishSystem(SystemEvent) error { return nil }
func (nopPublisher) Close() error                    { return nil }

// Nop returns a Publisher that discards everything, used when no broker is
// configured.
func Nop() Publisher {
	return nopPublisher{}
}
