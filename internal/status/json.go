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
	Event         string           `json:"event,omitempty"`
	Reason        string           `json:"reason,omitempty"`
	State         string           `json:"state"`
	Pressure      uint8            `json:"pressure"`
	Region        RegionJSON       `json:"region"`
	Calibration   *CalibrationJSON `json:"calibration,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	StartTime     string           `json:"start_time"`
	Timestamp     string           `json:"timestamp"`
	MQTT          MQTTStatus       `json:"mqtt"`
	Counts        CountsJSON       `json:"counts"`
	Recent        []RecordJSON     `json:"recent,omitempty"`
	Config        ConfigJSON       `json:"config"`
}

// RegionJSON is the JSON representation of the counter region.
type RegionJSON struct {
	Nominal  uint32 `json:"nominal"`
	Activate uint32 `json:"activate"`
	Saturate uint32 `json:"saturate"`
}

// CalibrationJSON is the JSON representation of the last calibration.
type CalibrationJSON struct {
	Point        uint32 `json:"point"`
	Filtered     uint32 `json:"filtered"`
	NextPeriodMs int64  `json:"next_period_ms"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of the sensor counters.
type CountsJSON struct {
	Samples             uint64 `json:"samples"`
	Dropped             uint64 `json:"dropped"`
	ZeroSamples         uint64 `json:"zero_samples"`
	ZeroDenominators    uint64 `json:"zero_denominators"`
	Activations         uint64 `json:"activations"`
	Releases            uint64 `json:"releases"`
	Calibrations        uint64 `json:"calibrations"`
	SkippedCalibrations uint64 `json:"skipped_calibrations"`
	RejectedTransitions uint64 `json:"rejected_transitions"`
	SinkErrors          uint64 `json:"sink_errors"`
}

// RecordJSON is the JSON representation of a telemetry record.
type RecordJSON struct {
	Raw         uint16 `json:"raw"`
	Filtered    uint16 `json:"filtered"`
	Transformed uint16 `json:"transformed"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	StepMs      int64  `json:"step_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	Board       string `json:"board"`
	Profile     string `json:"profile"`
}

func buildInner(snap Snapshot) StatusInner {
	st := snap.Stats
	inner := StatusInner{
		State:    snap.State.String(),
		Pressure: snap.Pressure,
		Region: RegionJSON{
			Nominal:  snap.Region.Nominal,
			Activate: snap.Region.Activate,
			Saturate: snap.Region.Saturate,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Samples:             st.Samples,
			Dropped:             st.Dropped,
			ZeroSamples:         st.ZeroSamples,
			ZeroDenominators:    st.ZeroDenominators,
			Activations:         st.Activations,
			Releases:            st.Releases,
			Calibrations:        st.Calibrations,
			SkippedCalibrations: st.SkippedCalibrations,
			RejectedTransitions: st.RejectedTransitions,
			SinkErrors:          st.SinkErrors,
		},
		Config: ConfigJSON{
			StepMs:      snap.Config.StepMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			Board:       snap.Config.Board,
			Profile:     snap.Config.Profile,
		},
	}
	if snap.Calibrated {
		inner.Calibration = &CalibrationJSON{
			Point:        snap.Calibration.Point,
			Filtered:     snap.Calibration.Filtered,
			NextPeriodMs: snap.Calibration.Period.Milliseconds(),
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint, including the
// recent records (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	for _, r := range snap.Recent {
		inner.Recent = append(inner.Recent, RecordJSON{Raw: r.Raw, Filtered: r.Filtered, Transformed: r.Transformed})
	}

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the compact JSON status for an MQTT system
// event. Recent records are left out.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
