// Command grower drives irrigation valves over GPIO from a YAML watering
// schedule and publishes state changes to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/sweeney/grower/internal/gpio"
	"github.com/sweeney/grower/internal/logging"
	"github.com/sweeney/grower/internal/metrics"
	"github.com/sweeney/grower/internal/mqtt"
	"github.com/sweeney/grower/internal/schedule"
	"github.com/sweeney/grower/internal/status"
	"github.com/sweeney/grower/internal/watering"
	"github.com/sweeney/grower/internal/web"
)

func main() {
	schedulePath := flag.String("schedule", "watering.yml", "Watering schedule YAML file")
	logFile := flag.String("log-file", "grower.log", "Log file path")
	logConfig := flag.String("log-config", "logger.yml", "Logger config YAML file")
	poll := flag.Duration("poll", 100*time.Millisecond, "Polling interval")
	broker := flag.String("broker", "", "MQTT broker address (empty to disable)")
	httpAddr := flag.String("http", "", "HTTP status address (empty to disable)")
	gpioMode := flag.String("gpio-mode", "board", "Controller pin numbering (board or bcm)")
	chip := flag.String("chip", "gpiochip0", "GPIO character device")
	printSchedule := flag.Bool("print-schedule", false, "Print the loaded schedule and exit")

	flag.Parse()

	if err := run(*schedulePath, *logFile, *logConfig, *poll, *broker, *httpAddr, *gpioMode, *chip, *printSchedule); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(schedulePath, logFile, logConfig string, poll time.Duration, broker, httpAddr, gpioMode, chip string, printSchedule bool) error {
	mode, err := gpio.ParseMode(strings.ToUpper(gpioMode))
	if err != nil {
		return fmt.Errorf("gpio-mode: %w", err)
	}

	store, loadErr := schedule.NewStore(schedulePath)

	// Print schedule mode
	if printSchedule {
		if loadErr != nil {
			fmt.Fprintf(os.Stderr, "warning: %v (showing fallback)\n", loadErr)
		}
		data, err := store.Snapshot().Encode()
		if err != nil {
			return fmt.Errorf("encode schedule: %w", err)
		}
		fmt.Print(string(data))
		return nil
	}

	logger, err := logging.NewFileLogger(logFile, logConfig)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logger.Close()

	if loadErr != nil {
		logger.Errorf("schedule %s unusable, running on fallback: %v", schedulePath, loadErr)
	}

	// Initialize GPIO
	ctrl, err := gpio.NewRealController(chip, mode)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer ctrl.Close()

	// Initialize MQTT
	var publisher mqtt.Publisher = mqtt.Nop()
	var connStatus mqtt.ConnectionStatus
	if broker != "" {
		real, err := mqtt.NewRealPublisher(broker)
		if err != nil {
			logger.Errorf("mqtt connect to %s failed, running without publishing: %v", broker, err)
		} else {
			publisher = real
			connStatus = real
		}
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:       poll.Milliseconds(),
		Broker:       broker,
		HTTPAddr:     httpAddr,
		SchedulePath: schedulePath,
		GPIOMode:     string(mode),
		Chip:         chip,
	})
	snap := store.Snapshot()
	tracker.SetSchedule(store.ContentFingerprint(), len(snap.Watering), string(snap.Mode))
	if connStatus != nil {
		tracker.SetMQTTConnected(connStatus.IsConnected())
	}

	recorder := metrics.New()
	recorder.SetScheduleEntries(len(snap.Watering))

	// Publish startup event with full status snapshot
	st := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  st.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(st, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		logger.Warnf("failed to publish startup event: %v", err)
	}

	// Start HTTP status server
	if httpAddr != "" {
		srv := web.New(httpAddr, tracker, recorder.Registry())
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Errorf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Infof("http status server listening on %s", httpAddr)
	}

	logger.Infof("started: schedule=%s poll=%v mode=%s chip=%s broker=%s",
		schedulePath, poll, mode, chip, broker)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	// The machine sleeps for up to a minute between pulses. Route its
	// pauses through a channel the signal watcher closes so shutdown is
	// prompt even mid-cycle.
	quit := make(chan struct{})
	sigRaw := make(chan os.Signal, 1)
	signal.Notify(sigRaw, syscall.SIGINT, syscall.SIGTERM)
	sigCh := make(chan os.Signal, 1)
	go func() {
		s := <-sigRaw
		close(quit)
		sigCh <- s
	}()

	machine := watering.New(store, ctrl, logger, watering.Options{
		Pause: func(d time.Duration) {
			select {
			case <-time.After(d):
			case <-quit:
			}
		},
	})

	return runLoop(machine, store, publisher, connStatus, tracker, recorder, logger, ticker.C, sigCh)
}

func runLoop(machine *watering.Machine, store *schedule.Store, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, recorder *metrics.Recorder, logger logging.Logger, tick <-chan time.Time, sig <-chan os.Signal) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("panic in watering loop: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("panic in watering loop: %v", r)
		}
	}()

	for {
		select {
		case s := <-sig:
			logger.Infof("received %v, shutting down", s)
			name := signalName(s)
			event := mqtt.SystemEvent{
				Timestamp: time.Now(),
				Event:     "SHUTDOWN",
				Reason:    name,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", name)
			}
			if err := publisher.PublishSystem(event); err != nil {
				logger.Warnf("failed to publish shutdown event: %v", err)
			}
			return nil

		case <-tick:
			res := machine.Tick()

			if tracker != nil {
				tracker.Apply(res, time.Now())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
			recorder.Observe(res)

			if res.ReloadApplied {
				snap := store.Snapshot()
				if tracker != nil {
					tracker.SetSchedule(store.ContentFingerprint(), len(snap.Watering), string(snap.Mode))
				}
				recorder.SetScheduleEntries(len(snap.Watering))
			}

			if res.Transition {
				logger.Infof("state: %s -> %s", res.From, res.State)
				event := mqtt.Event{
					Timestamp: time.Now(),
					State:     res.State,
					From:      res.From,
					Cycle:     res.Cycle,
				}
				if err := publisher.Publish(event); err != nil {
					logger.Warnf("publish error: %v", err)
				}
			}
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}
