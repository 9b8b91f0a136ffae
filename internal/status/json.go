package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/apm-stick/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Mode          string     `json:"mode"`
	APM           uint32     `json:"apm"`
	Displayed     uint32     `json:"displayed"`
	Pressed       []string   `json:"pressed"`
	Actions       uint64     `json:"actions"`
	Ticks         uint64     `json:"ticks"`
	Resets        int        `json:"resets"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Config        ConfigJSON `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Mode            string `json:"mode"`
	WeightPercent   int    `json:"weight_percent,omitempty"`
	TickMs          int64  `json:"tick_ms,omitempty"`
	PollMs          int64  `json:"poll_ms"`
	DebounceSamples int    `json:"debounce_samples"`
	HeartbeatMs     int64  `json:"heartbeat_ms"`
	PublishMs       int64  `json:"publish_ms"`
	Input           string `json:"input"`
	Display         string `json:"display"`
	HID             string `json:"hid"`
	Broker          string `json:"broker"`
	HTTPAddr        string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	pressed := snap.Pressed.Pressed()
	if pressed == nil {
		pressed = []string{}
	}

	inner := StatusInner{
		Mode:          string(snap.Config.Mode),
		APM:           snap.Value,
		Displayed:     snap.Displayed,
		Pressed:       pressed,
		Actions:       snap.Stats.Actions,
		Ticks:         snap.Stats.Ticks,
		Resets:        snap.Resets,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			Mode:            string(snap.Config.Mode),
			PollMs:          snap.Config.PollMs,
			DebounceSamples: snap.Config.DebounceSamples,
			HeartbeatMs:     snap.Config.HeartbeatMs,
			PublishMs:       snap.Config.PublishMs,
			Input:           snap.Config.Input,
			Display:         snap.Config.Display,
			HID:             snap.Config.HID,
			Broker:          snap.Config.Broker,
			HTTPAddr:        snap.Config.HTTPAddr,
		},
	}
	// Weight and tick only mean something for the smoothed estimator.
	if snap.Config.Mode == logic.ModeSmoothed {
		inner.Config.WeightPercent = snap.Config.WeightPercent
		inner.Config.TickMs = snap.Config.TickMs
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatCompactJSON returns the same document as FormatJSON on one line,
// for the WebSocket stream.
func FormatCompactJSON(snap Snapshot) []byte {
	data, _ := json.Marshal(StatusJSON{Status: buildInner(snap)})
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
