// Command apm-stick counts arcade controller actions and shows the rate on a
// seven-segment readout, publishing readings to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sweeney/apm-stick/internal/config"
	"github.com/sweeney/apm-stick/internal/display"
	"github.com/sweeney/apm-stick/internal/gpio"
	"github.com/sweeney/apm-stick/internal/hid"
	"github.com/sweeney/apm-stick/internal/logic"
	"github.com/sweeney/apm-stick/internal/mqtt"
	"github.com/sweeney/apm-stick/internal/pins"
	"github.com/sweeney/apm-stick/internal/status"
	"github.com/sweeney/apm-stick/internal/timer"
	"github.com/sweeney/apm-stick/internal/web"
)

func main() {
	cfg, printState, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "apm-stick: %v\n", err)
		os.Exit(2)
	}

	level, _ := parseLogLevel(cfg.Logging.Level)
	slog.SetDefault(setupLogger(os.Stderr, level))

	if err := run(cfg, printState); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

// loadConfig parses args, loads the optional config file and applies the
// flags that were actually set on top of it.
func loadConfig(args []string) (config.Config, bool, error) {
	def := config.DefaultConfig()
	fs := flag.NewFlagSet("apm-stick", flag.ContinueOnError)

	path := fs.String("config", "", "YAML config file (defaults are used when empty)")
	printState := fs.Bool("print-state", false, "Print the pressed controls and exit")

	input := fs.String("input", def.Input.Source, "Input source: gpio or terminal")
	term := fs.String("terminal", def.Input.Terminal, "Terminal device for -input terminal")
	poll := fs.Int("poll-ms", def.Input.PollMs, "Input polling interval in milliseconds")
	debounce := fs.Int("debounce", def.Input.DebounceSamples, "Samples a change must hold before it is accepted (0 disables)")
	mode := fs.String("mode", def.APM.Mode, "Estimator: cumulative or smoothed")
	weight := fs.Int("weight", def.APM.WeightPercent, "Smoothing weight percent, 0..100")
	tick := fs.Int("tick-ms", def.APM.TickMs, "Smoothed rate tick in milliseconds (must be 1000)")
	sink := fs.String("display", def.Display.Sink, "Display sink: spi, log, both or none")
	profile := fs.String("hid", def.HID.Profile, "USB HID gadget profile: none, gamepad or keyboard")
	broker := fs.String("broker", def.MQTT.Broker, "MQTT broker address (empty to disable)")
	heartbeat := fs.Int("heartbeat-ms", def.MQTT.HeartbeatMs, "Heartbeat interval in milliseconds (0 to disable)")
	httpAddr := fs.String("http", def.HTTP.Addr, "HTTP status address (empty to disable)")
	stats := fs.String("statsview", def.Statsview.Addr, "Runtime stats viewer address (empty to disable)")
	logLevel := fs.String("log-level", def.Logging.Level, "Log level: error, warn, info or debug")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, false, err
	}

	var o config.FlagOverrides
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			o.InputSource = input
		case "terminal":
			o.Terminal = term
		case "poll-ms":
			o.PollMs = poll
		case "debounce":
			o.DebounceSamples = debounce
		case "mode":
			o.Mode = mode
		case "weight":
			o.WeightPercent = weight
		case "tick-ms":
			o.TickMs = tick
		case "display":
			o.DisplaySink = sink
		case "hid":
			o.HIDProfile = profile
		case "broker":
			o.Broker = broker
		case "heartbeat-ms":
			o.HeartbeatMs = heartbeat
		case "http":
			o.HTTPAddr = httpAddr
		case "statsview":
			o.StatsviewAddr = stats
		case "log-level":
			o.LogLevel = logLevel
		}
	})

	cfg := def
	if *path != "" {
		loaded, err := config.Load(*path)
		if err != nil {
			return config.Config{}, false, err
		}
		cfg = loaded
	}
	o.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		return config.Config{}, false, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, *printState, nil
}

func run(cfg config.Config, printState bool) error {
	reader, err := openReader(cfg)
	if err != nil {
		return fmt.Errorf("init input: %w", err)
	}
	defer reader.Close()

	if printState {
		s, err := reader.Read()
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		fmt.Println(stateString(s))
		return nil
	}

	sink, err := openSink(cfg)
	if err != nil {
		return fmt.Errorf("init display: %w", err)
	}
	defer sink.Close()

	device, err := hid.OpenGadget(hid.Profile(cfg.HID.Profile), cfg.HID.Device)
	if err != nil {
		return fmt.Errorf("init hid: %w", err)
	}
	if device != nil {
		defer device.Close()
	}

	var led gpio.LED
	if cfg.Input.LEDLine >= 0 {
		line, err := gpio.NewRealLED(cfg.Input.Chip, cfg.Input.LEDLine)
		if err != nil {
			return fmt.Errorf("init led: %w", err)
		}
		defer line.Close()
		led = line
	}

	var publisher mqtt.Publisher
	var mqttState mqtt.ConnectionStatus
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(mqtt.Config{
			Broker:     cfg.MQTT.Broker,
			ClientID:   cfg.MQTT.ClientID,
			BufferSize: cfg.MQTT.BufferSize,
		})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer p.Close()
		publisher, mqttState = p, p
	}

	tracker := status.NewTracker(time.Now(), statusConfig(cfg))

	// The trigger and the estimator refer to each other: the trigger delivers
	// ticks to the estimator and a reset masks the trigger.
	var ticker logic.Ticker
	periodic := timer.New(cfg.Tick(), func() {
		if ticker != nil {
			r := ticker.Tick()
			slog.Debug("apm: tick", "actions", r.Actions, "rate", r.Rate)
		}
	})
	estimator, err := logic.New(cfg.Estimator(), periodic)
	if err != nil {
		return fmt.Errorf("init estimator: %w", err)
	}
	ticker, _ = estimator.(logic.Ticker)

	if publisher != nil {
		if mqttState != nil {
			tracker.SetMQTTConnected(mqttState.IsConnected())
		}
		snap := tracker.Snapshot()
		startup := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      mqtt.EventStartup,
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, mqtt.EventStartup, ""),
		}
		if err := publisher.PublishSystem(startup); err != nil {
			slog.Warn("mqtt: startup event failed", "err", err)
		} else {
			slog.Info("mqtt: published startup event")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	resets := make(chan struct{}, 1)
	var broadcast func(status.Snapshot)

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, resets)
		broadcast = srv.Broadcast

		g.Go(func() error { return srv.Hub().Run(ctx) })
		g.Go(func() error {
			slog.Info("http: status server listening", "addr", cfg.HTTP.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if ticker != nil {
		g.Go(func() error { return periodic.Start(ctx) })
	}

	if cfg.Statsview.Addr != "" {
		g.Go(func() error { return runStatsview(ctx, cfg.Statsview.Addr) })
	}

	slog.Info("started",
		"input", cfg.Input.Source,
		"mode", cfg.APM.Mode,
		"poll", cfg.Poll(),
		"debounce", cfg.Input.DebounceSamples,
		"display", cfg.Display.Sink,
		"hid", cfg.HID.Profile,
		"broker", cfg.MQTT.Broker,
	)

	pollTicker := time.NewTicker(cfg.Poll())
	defer pollTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	l := &loop{
		reader:       reader,
		debouncer:    logic.NewDebouncer(cfg.Input.DebounceSamples),
		detector:     logic.NewDetector(),
		estimator:    estimator,
		mode:         logic.Mode(cfg.APM.Mode),
		sink:         sink,
		device:       device,
		led:          led,
		publisher:    publisher,
		mqttState:    mqttState,
		tracker:      tracker,
		broadcast:    broadcast,
		heartbeat:    cfg.Heartbeat(),
		publishEvery: cfg.PublishInterval(),
		now:          time.Now,
	}
	g.Go(func() error {
		defer cancel()
		return l.runLoop(ctx, pollTicker.C, resets, sigCh)
	})

	err = g.Wait()
	if ticker != nil {
		slog.Info("apm: tick timer stopped", "fired", periodic.Fired(), "latched", periodic.Latched())
	}
	return err
}

func openReader(cfg config.Config) (gpio.Reader, error) {
	if cfg.Input.Source == config.SourceTerminal {
		return gpio.NewTerminalReader(cfg.Input.Terminal, cfg.KeyHold())
	}
	return gpio.NewRealReader(cfg.Input.Chip, cfg.Input.Lines, cfg.Input.ActiveLow)
}

func openSink(cfg config.Config) (display.Sink, error) {
	logSink := func() display.Sink { return display.NewLogSink(slog.Default()) }
	spi := func() (display.Sink, error) {
		return display.OpenSPI(display.SPIConfig{
			Device:      cfg.Display.SPIDevice,
			SpeedHz:     cfg.Display.SPISpeedHz,
			Chip:        cfg.Display.LatchChip,
			LatchOffset: cfg.Display.LatchLine,
		})
	}

	switch cfg.Display.Sink {
	case config.SinkSPI:
		return spi()
	case config.SinkBoth:
		s, err := spi()
		if err != nil {
			return nil, err
		}
		return display.Tee(s, logSink()), nil
	case config.SinkLog:
		return logSink(), nil
	default:
		return display.Tee(), nil
	}
}

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		Mode:            logic.Mode(cfg.APM.Mode),
		WeightPercent:   cfg.APM.WeightPercent,
		TickMs:          int64(cfg.APM.TickMs),
		PollMs:          int64(cfg.Input.PollMs),
		DebounceSamples: cfg.Input.DebounceSamples,
		HeartbeatMs:     int64(cfg.MQTT.HeartbeatMs),
		PublishMs:       int64(cfg.MQTT.PublishMs),
		Input:           cfg.Input.Source,
		Display:         cfg.Display.Sink,
		HID:             cfg.HID.Profile,
		Broker:          cfg.MQTT.Broker,
		HTTPAddr:        cfg.HTTP.Addr,
	}
}

// stateString lists the pressed controls by name.
func stateString(s pins.Snapshot) string {
	pressed := s.Pressed()
	if len(pressed) == 0 {
		return "pressed: none"
	}
	return "pressed: " + strings.Join(pressed, " ")
}
