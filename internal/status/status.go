// Package status provides a thread-safe status tracker for the touch sensor
// daemon. It observes the sensor from the work queue and is read by the HTTP
// handlers and the heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/captouch/internal/captouch"
)

// HistorySize is the number of recent telemetry records kept.
const HistorySize = 32

// Config contains daemon configuration for display.
type Config struct {
	StepMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	Board       string
	Profile     string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         captouch.State
	Region        captouch.Region
	Calibration   captouch.Calibration
	Calibrated    bool
	Pressure      uint8
	Stats         captouch.Stats
	Recent        []captouch.Record // oldest first
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex. It implements
// captouch.Observer.
type Tracker struct {
	mu      sync.RWMutex
	snap    Snapshot
	history history
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// OnState records a sensor state change.
func (t *Tracker) OnState(s captouch.State) {
	t.mu.Lock()
	t.snap.State = s
	if s != captouch.StateHighFrequency {
		t.snap.Pressure = 0
	}
	t.mu.Unlock()
}

// OnRegion records a new counter region.
func (t *Tracker) OnRegion(r captouch.Region) {
	t.mu.Lock()
	t.snap.Region = r
	t.mu.Unlock()
}

// OnCalibration records a completed calibration cycle.
func (t *Tracker) OnCalibration(c captouch.Calibration) {
	t.mu.Lock()
	t.snap.Calibration = c
	t.snap.Calibrated = true
	t.mu.Unlock()
}

// OnRecord records a telemetry record.
func (t *Tracker) OnRecord(r captouch.Record) {
	t.mu.Lock()
	t.history.push(r)
	t.snap.Pressure = uint8(r.Transformed)
	t.mu.Unlock()
}

// SetStats sets the sensor counters. Called from runLoop on every tick.
func (t *Tracker) SetStats(st captouch.Stats) {
	t.mu.Lock()
	t.snap.Stats = st
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Recent = t.history.records()
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

// history is a fixed ring of the most recent records.
type history struct {
	buf   [HistorySize]captouch.Record
	head  int
	count int
}

func (h *history) push(r captouch.Record) {
	h.buf[h.head] = r
	h.head = (h.head + 1) % len(h.buf)
	if h.count < len(h.buf) {
		h.count++
	}
}

// records returns a copy, oldest first.
func (h *history) records() []captouch.Record {
	out := make([]captouch.Record, 0, h.count)
	start := (h.head - h.count + len(h.buf)) % len(h.buf)
	for i := 0; i < h.count; i++ {
		out = append(out, h.buf[(start+i)%len(h.buf)])
	}
	return out
}
