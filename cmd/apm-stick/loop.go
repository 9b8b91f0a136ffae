package main

import (
	"context"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/sweeney/apm-stick/internal/display"
	"github.com/sweeney/apm-stick/internal/gpio"
	"github.com/sweeney/apm-stick/internal/hid"
	"github.com/sweeney/apm-stick/internal/logic"
	"github.com/sweeney/apm-stick/internal/mqtt"
	"github.com/sweeney/apm-stick/internal/pins"
	"github.com/sweeney/apm-stick/internal/status"
)

// loop owns everything touched once per poll. Only the estimator is shared,
// with the tick goroutine.
type loop struct {
	reader    gpio.Reader
	debouncer *logic.Debouncer
	detector  *logic.Detector
	estimator logic.Estimator
	mode      logic.Mode
	sink      display.Sink
	device    hid.Device     // nil when HID output is off
	led       gpio.LED       // nil when no activity LED is wired
	publisher mqtt.Publisher // nil when MQTT is off
	mqttState mqtt.ConnectionStatus
	tracker   *status.Tracker
	broadcast func(status.Snapshot) // nil when the status server is off

	heartbeat    time.Duration
	publishEvery time.Duration
	now          func() time.Time

	// Output and read errors are logged once per run of failures.
	readFailing   bool
	sinkFailing   bool
	deviceFailing bool
	ledFailing    bool
	ledOn         bool

	published     bool
	lastPublished uint32
	lastPublishAt time.Time
}

// runLoop polls the controller on every tick until a terminating signal
// arrives or ctx is done. SIGHUP and values on resets zero the counter.
func (l *loop) runLoop(ctx context.Context, tick <-chan time.Time, resets <-chan struct{}, sig <-chan os.Signal) error {
	hb := logic.NewHeartbeat(l.heartbeat, l.now())

	for {
		select {
		case <-ctx.Done():
			return nil

		case s := <-sig:
			if s == syscall.SIGHUP {
				l.reset("SIGHUP")
				continue
			}
			l.shutdown(s)
			return nil

		case <-resets:
			l.reset("HTTP")

		case <-tick:
			t := l.now()
			raw, err := l.reader.Read()
			if err != nil {
				if !l.readFailing {
					slog.Warn("input: read failed", "err", err)
					l.readFailing = true
				}
				continue
			}
			if l.readFailing {
				slog.Info("input: recovered")
				l.readFailing = false
			}
			l.poll(t, raw)

			if hbData := hb.Check(t); hbData != nil {
				l.heartbeatEvent(hbData)
			}
		}
	}
}

// poll runs one sample through the pipeline.
func (l *loop) poll(t time.Time, raw pins.Snapshot) {
	pressed := l.debouncer.Process(raw)
	l.estimator.Record(l.detector.Count(pressed))

	value := l.estimator.Value()
	shown := display.Clamp(value)
	l.show(shown)
	l.send(pressed)
	l.indicate(pressed.Any())

	stats := l.estimator.Stats()
	l.tracker.Update(value, shown, l.detector.Previous(), stats)
	l.refreshMQTT()

	if l.published && value == l.lastPublished {
		return
	}
	if l.published && t.Sub(l.lastPublishAt) < l.publishEvery {
		return
	}
	l.published = true
	l.lastPublished = value
	l.lastPublishAt = t

	slog.Debug("apm: changed", "value", value, "displayed", shown, "actions", stats.Actions)
	if l.publisher != nil {
		reading := logic.Reading{
			Timestamp: t,
			Mode:      l.mode,
			Value:     value,
			Displayed: shown,
			Stats:     stats,
		}
		if err := l.publisher.Publish(reading); err != nil {
			slog.Warn("mqtt: publish failed", "err", err)
		}
	}
	if l.broadcast != nil {
		l.broadcast(l.tracker.Snapshot())
	}
}

func (l *loop) show(value uint32) {
	err := l.sink.Show(value)
	switch {
	case err != nil && !l.sinkFailing:
		slog.Error("display: show failed", "value", value, "err", err)
		l.sinkFailing = true
	case err == nil && l.sinkFailing:
		slog.Info("display: recovered")
		l.sinkFailing = false
	}
}

func (l *loop) send(pressed pins.Snapshot) {
	if l.device == nil {
		return
	}
	err := l.device.Send(pressed)
	switch {
	case err != nil && !l.deviceFailing:
		slog.Error("hid: send failed", "err", err)
		l.deviceFailing = true
	case err == nil && l.deviceFailing:
		slog.Info("hid: recovered")
		l.deviceFailing = false
	}
}

// indicate lights the LED while any control is pressed. The line is only
// written when the state changes; a failed write is retried next poll.
func (l *loop) indicate(on bool) {
	if l.led == nil || (on == l.ledOn && !l.ledFailing) {
		return
	}
	err := l.led.Set(on)
	switch {
	case err != nil && !l.ledFailing:
		slog.Error("led: set failed", "on", on, "err", err)
		l.ledFailing = true
	case err == nil:
		if l.ledFailing {
			slog.Info("led: recovered")
			l.ledFailing = false
		}
		l.ledOn = on
	}
}

func (l *loop) refreshMQTT() {
	if l.mqttState != nil {
		l.tracker.SetMQTTConnected(l.mqttState.IsConnected())
	}
}

// reset zeroes the counter and the input pipeline. Controls still held
// afterwards count once more when they settle.
func (l *loop) reset(reason string) {
	l.debouncer.Reset()
	l.detector.Reset()
	l.estimator.Reset()
	l.show(0)
	l.tracker.RecordReset()
	l.refreshMQTT()

	l.published = true
	l.lastPublished = 0
	l.lastPublishAt = l.now()

	snap := l.tracker.Snapshot()
	slog.Info("apm: reset", "reason", reason, "resets", snap.Resets)

	if l.publisher != nil {
		event := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      mqtt.EventReset,
			Reason:     reason,
			RawPayload: status.FormatStatusEvent(snap, mqtt.EventReset, reason),
		}
		if err := l.publisher.PublishSystem(event); err != nil {
			slog.Warn("mqtt: reset event failed", "err", err)
		}
	}
	if l.broadcast != nil {
		l.broadcast(snap)
	}
}

func (l *loop) heartbeatEvent(hb *logic.HeartbeatData) {
	stats := l.estimator.Stats()
	slog.Info("heartbeat", "uptime", hb.Uptime, "actions", stats.Actions, "ticks", stats.Ticks)
	if l.publisher == nil {
		return
	}

	l.refreshMQTT()
	snap := l.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  hb.Timestamp,
		Event:      mqtt.EventHeartbeat,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventHeartbeat, ""),
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		slog.Warn("mqtt: heartbeat failed", "err", err)
	}
}

// shutdown publishes the retained SHUTDOWN event for s.
func (l *loop) shutdown(s os.Signal) {
	name := signalName(s)
	slog.Info("received signal, shutting down", "signal", name)
	if l.publisher == nil {
		return
	}

	l.refreshMQTT()
	snap := l.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  l.now(),
		Event:      mqtt.EventShutdown,
		Reason:     name,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventShutdown, name),
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		slog.Warn("mqtt: shutdown event failed", "err", err)
	} else {
		slog.Info("mqtt: published shutdown event")
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	case syscall.SIGHUP:
		return "SIGHUP"
	default:
		return "UNKNOWN"
	}
}
