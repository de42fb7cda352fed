// Command captouch-sim runs the touch sensor against the peripheral
// simulator with a synthetic touch profile. Telemetry records and lifecycle
// events go to MQTT and the sensor state is served over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/captouch/internal/board"
	"github.com/sweeney/captouch/internal/captouch"
	"github.com/sweeney/captouch/internal/gpio"
	"github.com/sweeney/captouch/internal/hw"
	"github.com/sweeney/captouch/internal/led"
	"github.com/sweeney/captouch/internal/mqtt"
	"github.com/sweeney/captouch/internal/status"
	"github.com/sweeney/captouch/internal/web"
	"github.com/sweeney/captouch/internal/work"
)

const clientID = "captouch-sim"

type config struct {
	step      time.Duration
	broker    string
	heartbeat time.Duration
	httpAddr  string
	board     string
	profile   profile
	ledChip   string
	ledLine   int
}

func main() {
	step := flag.Duration("step", 10*time.Millisecond, "Simulation step interval")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address (empty to disable)")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", ":8080", "HTTP status address (empty to disable)")
	boardName := flag.String("board", "WIMKY001", `Board name ("unknown", "dev rev2", "WIMKY001")`)
	profileName := flag.String("profile", "periodic", "Touch profile: idle, periodic or ramp")
	touchPeriod := flag.Duration("touch-period", 10*time.Second, "Time between touches")
	touchHold := flag.Duration("touch-hold", 2*time.Second, "Duration of each touch")
	ledChip := flag.String("led-chip", "", "GPIO chip for the indicator LED (empty to disable)")
	ledLine := flag.Int("led-line", 17, "GPIO line offset for the indicator LED")

	flag.Parse()

	prof, err := parseProfile(*profileName, *touchPeriod, *touchHold)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	cfg := config{
		step:      *step,
		broker:    *broker,
		heartbeat: *heartbeat,
		httpAddr:  *httpAddr,
		board:     *boardName,
		profile:   prof,
		ledChip:   *ledChip,
		ledLine:   *ledLine,
	}
	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config) error {
	spec, ok := board.ByName(cfg.board)
	if !ok {
		return fmt.Errorf("unknown board %q", cfg.board)
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		StepMs:      cfg.step.Milliseconds(),
		HeartbeatMs: cfg.heartbeat.Milliseconds(),
		Broker:      cfg.broker,
		HTTPAddr:    cfg.httpAddr,
		Board:       spec.Name,
		Profile:     cfg.profile.name,
	})

	// Initialize MQTT
	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if cfg.broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.broker, clientID)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer p.Close()
		publisher, mqttStatus = p, p
		tracker.SetMQTTConnected(p.IsConnected())
	}

	indicator, closeLED, err := newIndicator(cfg.ledChip, cfg.ledLine)
	if err != nil {
		return fmt.Errorf("init led: %w", err)
	}
	defer closeLED()

	sim := hw.NewSim()
	q := work.NewQueue(work.DefaultDepth, work.RealClock)
	coll := captouch.Collaborators{Board: spec, Observer: tracker}
	if publisher != nil {
		coll.Sink = publisher
	}
	if indicator != nil {
		coll.Indicator = indicator
	}
	sensor := captouch.New(captouch.DefaultConfig(), sim.Peripherals(), q, coll)
	if err := sensor.Init(logTouches()); err != nil {
		if !errors.Is(err, captouch.ErrNotSupported) {
			return fmt.Errorf("init sensor: %w", err)
		}
		log.Printf("board %s has no touch electrode, serving status only", spec.Name)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	if err := sensor.Start(); err != nil {
		log.Printf("start sensor: %v", err)
	}

	// Publish startup event with full status snapshot
	if publisher != nil {
		snap := tracker.Snapshot()
		startupEvent := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := publisher.PublishSystem(startupEvent); err != nil {
			log.Printf("failed to publish startup event: %v", err)
		} else {
			log.Printf("published startup event")
		}
	}

	// Start HTTP status server
	if cfg.httpAddr != "" {
		srv := web.New(cfg.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.httpAddr)
	}

	log.Printf("started: step=%v board=%s profile=%s broker=%s heartbeat=%v",
		cfg.step, spec.Name, cfg.profile.name, cfg.broker, cfg.heartbeat)

	ticker := time.NewTicker(cfg.step)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	drv := &simulator{sim: sim, profile: cfg.profile}
	return runLoop(drv, sensor, publisher, mqttStatus, tracker, cfg.heartbeat, time.Now, ticker.C, sigCh)
}

func runLoop(drv *simulator, sensor *captouch.Sensor, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	drv.begin(startTime)
	lastHeartbeat := startTime

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			if err := sensor.Stop(); err != nil {
				log.Printf("stop sensor: %v", err)
			}
			if publisher == nil {
				return nil
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				refresh(tracker, sensor, mqttStatus)
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			drv.advance(t)

			if tracker != nil {
				refresh(tracker, sensor, mqttStatus)
			}

			if heartbeat <= 0 || t.Sub(lastHeartbeat) < heartbeat {
				continue
			}
			lastHeartbeat = t
			st := sensor.Stats()
			log.Printf("heartbeat: state=%s samples=%d activations=%d calibrations=%d dropped=%d",
				sensor.State(), st.Samples, st.Activations, st.Calibrations, st.Dropped)
			if publisher == nil {
				continue
			}
			hbEvent := mqtt.SystemEvent{
				Timestamp: t,
				Event:     "HEARTBEAT",
			}
			if tracker != nil {
				hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}
		}
	}
}

// refresh copies the sensor counters and connection state into the tracker.
func refresh(tracker *status.Tracker, sensor *captouch.Sensor, mqttStatus mqtt.ConnectionStatus) {
	tracker.SetStats(sensor.Stats())
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
}

// newIndicator returns a blinker on the given GPIO line, or nil when no chip
// is configured. The returned func releases the line.
func newIndicator(chip string, offset int) (*led.Blinker, func(), error) {
	if chip == "" {
		return nil, func() {}, nil
	}
	line, err := gpio.NewRealLine(chip, offset, false)
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if err := line.Close(); err != nil {
			log.Printf("led: close: %v", err)
		}
	}
	return led.NewBlinker(line, work.RealClock), release, nil
}

// logTouches returns a pressure callback that logs the start and end of
// each touch. It runs on the work queue.
func logTouches() func(uint8) {
	touching := false
	return func(v uint8) {
		switch {
		case v > 0 && !touching:
			log.Printf("touch: pressure %d", v)
		case v == 0 && touching:
			log.Printf("touch: released")
		}
		touching = v > 0
	}
}
