// Package config loads the daemon configuration: defaults, then an optional
// YAML file, then command-line overrides, then validation.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/apm-stick/internal/gpio"
	"github.com/sweeney/apm-stick/internal/hid"
	"github.com/sweeney/apm-stick/internal/logic"
	"github.com/sweeney/apm-stick/internal/mqtt"
	"github.com/sweeney/apm-stick/internal/pins"
)

// Config is the top-level YAML configuration.
type Config struct {
	Input     InputConfig     `yaml:"input"`
	APM       APMConfig       `yaml:"apm"`
	Display   DisplayConfig   `yaml:"display"`
	HID       HIDConfig       `yaml:"hid"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	HTTP      HTTPConfig      `yaml:"http"`
	Statsview StatsviewConfig `yaml:"statsview"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Input sources.
const (
	SourceGPIO     = "gpio"
	SourceTerminal = "terminal"
)

type InputConfig struct {
	Source          string `yaml:"source"` // "gpio" or "terminal"
	Chip            string `yaml:"chip"`
	Lines           []int  `yaml:"lines"` // one offset per control, wiring order
	ActiveLow       bool   `yaml:"active_low"`
	Terminal        string `yaml:"terminal"`
	KeyHoldMs       int    `yaml:"key_hold_ms"`
	PollMs          int    `yaml:"poll_ms"`
	DebounceSamples int    `yaml:"debounce_samples"`
	LEDLine         int    `yaml:"led_line"` // activity LED offset on chip; -1 disables
}

type APMConfig struct {
	Mode          string `yaml:"mode"` // "cumulative" or "smoothed"
	WeightPercent int    `yaml:"weight_percent"`
	TickMs        int    `yaml:"tick_ms"`
}

// Display sinks.
const (
	SinkSPI  = "spi"
	SinkLog  = "log"
	SinkBoth = "both"
	SinkNone = "none"
)

type DisplayConfig struct {
	Sink       string `yaml:"sink"`
	SPIDevice  string `yaml:"spi_device"`
	SPISpeedHz int    `yaml:"spi_speed_hz"`
	LatchChip  string `yaml:"latch_chip"`
	LatchLine  int    `yaml:"latch_line"`
}

type HIDConfig struct {
	Profile string `yaml:"profile"` // "none", "gamepad" or "keyboard"
	Device  string `yaml:"device"`
}

type MQTTConfig struct {
	Broker      string `yaml:"broker"` // empty disables MQTT
	ClientID    string `yaml:"client_id"`
	HeartbeatMs int    `yaml:"heartbeat_ms"`
	PublishMs   int    `yaml:"publish_ms"` // minimum gap between readings
	BufferSize  int    `yaml:"buffer_size"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables the status server
}

type StatsviewConfig struct {
	Addr string `yaml:"addr"` // empty disables the runtime stats viewer
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		Input: InputConfig{
			Source:          SourceGPIO,
			Chip:            gpio.DefaultChip,
			Lines:           append([]int(nil), gpio.DefaultLines...),
			ActiveLow:       true,
			Terminal:        "/dev/tty",
			KeyHoldMs:       int(gpio.DefaultKeyHold / time.Millisecond),
			PollMs:          2,
			DebounceSamples: 3,
			LEDLine:         -1,
		},
		APM: APMConfig{
			Mode:          string(logic.ModeSmoothed),
			WeightPercent: logic.DefaultWeightPercent,
			TickMs:        1000,
		},
		Display: DisplayConfig{
			Sink:       SinkSPI,
			SPIDevice:  "/dev/spidev0.0",
			SPISpeedHz: 1000000,
			LatchChip:  gpio.DefaultChip,
			LatchLine:  18,
		},
		HID: HIDConfig{
			Profile: string(hid.ProfileNone),
			Device:  hid.DefaultGadget,
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			ClientID:    "apm-stick",
			HeartbeatMs: int((15 * time.Minute) / time.Millisecond),
			PublishMs:   250,
			BufferSize:  mqtt.DefaultBufferSize,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults. Unknown fields and trailing documents
// are rejected.
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML over the defaults.
func Parse(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	// An empty file keeps the defaults.
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, errors.New("decode config yaml: unexpected trailing document")
	}
	return cfg, nil
}

// Poll returns the input polling interval.
func (c Config) Poll() time.Duration {
	return time.Duration(c.Input.PollMs) * time.Millisecond
}

// Tick returns the smoothed estimator tick interval.
func (c Config) Tick() time.Duration {
	return time.Duration(c.APM.TickMs) * time.Millisecond
}

// Heartbeat returns the heartbeat interval; zero disables heartbeats.
func (c Config) Heartbeat() time.Duration {
	return time.Duration(c.MQTT.HeartbeatMs) * time.Millisecond
}

// PublishInterval returns the minimum gap between published readings.
func (c Config) PublishInterval() time.Duration {
	return time.Duration(c.MQTT.PublishMs) * time.Millisecond
}

// KeyHold returns how long a terminal key press holds its control.
func (c Config) KeyHold() time.Duration {
	return time.Duration(c.Input.KeyHoldMs) * time.Millisecond
}

// Estimator returns the estimator settings.
func (c Config) Estimator() logic.EstimatorConfig {
	return logic.EstimatorConfig{
		Mode:          logic.Mode(c.APM.Mode),
		WeightPercent: c.APM.WeightPercent,
	}
}

// Validate checks the config and returns the first problem found.
func (c *Config) Validate() error {
	switch c.Input.Source {
	case SourceGPIO:
		if c.Input.Chip == "" {
			return errors.New("input.chip must not be empty")
		}
		if len(c.Input.Lines) != pins.NumControls {
			return fmt.Errorf("input.lines must list %d offsets, got %d", pins.NumControls, len(c.Input.Lines))
		}
		seen := make(map[int]bool, len(c.Input.Lines))
		for i, l := range c.Input.Lines {
			if l < 0 {
				return fmt.Errorf("input.lines[%d] must be >= 0", i)
			}
			if seen[l] {
				return fmt.Errorf("input.lines[%d]: offset %d used twice", i, l)
			}
			seen[l] = true
		}
	case SourceTerminal:
		if c.Input.Terminal == "" {
			return errors.New("input.terminal must not be empty")
		}
		if c.Input.KeyHoldMs <= 0 {
			return errors.New("input.key_hold_ms must be > 0")
		}
	default:
		return fmt.Errorf("input.source must be %q or %q, got %q", SourceGPIO, SourceTerminal, c.Input.Source)
	}
	if c.Input.PollMs <= 0 {
		return errors.New("input.poll_ms must be > 0")
	}
	if c.Input.DebounceSamples < 0 {
		return errors.New("input.debounce_samples must be >= 0")
	}
	if c.Input.LEDLine >= 0 {
		if c.Input.Chip == "" {
			return errors.New("input.chip must not be empty when input.led_line is set")
		}
		if c.Input.Source == SourceGPIO {
			for _, l := range c.Input.Lines {
				if l == c.Input.LEDLine {
					return fmt.Errorf("input.led_line %d is also an input line", l)
				}
			}
		}
	}

	switch logic.Mode(c.APM.Mode) {
	case logic.ModeCumulative:
	case logic.ModeSmoothed:
		if c.APM.WeightPercent < 0 || c.APM.WeightPercent > 100 {
			return errors.New("apm.weight_percent must be in 0..100")
		}
		// EMA scales each tick's count by 60 into a per-minute rate.
		if c.APM.TickMs != 1000 {
			return fmt.Errorf("apm.tick_ms must be 1000 for a per-minute rate, got %d", c.APM.TickMs)
		}
	default:
		return fmt.Errorf("apm.mode must be %q or %q, got %q", logic.ModeCumulative, logic.ModeSmoothed, c.APM.Mode)
	}

	switch c.Display.Sink {
	case SinkSPI, SinkBoth:
		if c.Display.SPIDevice == "" {
			return errors.New("display.spi_device must not be empty")
		}
		if c.Display.SPISpeedHz <= 0 {
			return errors.New("display.spi_speed_hz must be > 0")
		}
		if c.Display.LatchLine < 0 {
			return errors.New("display.latch_line must be >= 0")
		}
		if c.Input.LEDLine >= 0 && c.Display.LatchChip == c.Input.Chip && c.Display.LatchLine == c.Input.LEDLine {
			return fmt.Errorf("display.latch_line %d is also the led line", c.Display.LatchLine)
		}
		if c.Input.Source == SourceGPIO && c.Display.LatchChip == c.Input.Chip {
			for _, l := range c.Input.Lines {
				if l == c.Display.LatchLine {
					return fmt.Errorf("display.latch_line %d is also an input line", l)
				}
			}
		}
	case SinkLog, SinkNone:
	default:
		return fmt.Errorf("display.sink must be one of spi, log, both, none; got %q", c.Display.Sink)
	}

	switch hid.Profile(c.HID.Profile) {
	case hid.ProfileNone:
	case hid.ProfileGamepad, hid.ProfileKeyboard:
		if c.HID.Device == "" {
			return errors.New("hid.device must not be empty")
		}
	default:
		return fmt.Errorf("hid.profile must be one of none, gamepad, keyboard; got %q", c.HID.Profile)
	}

	if c.MQTT.HeartbeatMs < 0 {
		return errors.New("mqtt.heartbeat_ms must be >= 0")
	}
	if c.MQTT.PublishMs < 0 {
		return errors.New("mqtt.publish_ms must be >= 0")
	}
	if c.MQTT.Broker != "" && c.MQTT.BufferSize <= 0 {
		return errors.New("mqtt.buffer_size must be > 0")
	}

	switch c.Logging.Level {
	case "error", "warn", "info", "debug":
	default:
		return fmt.Errorf("logging.level must be one of error, warn, info, debug; got %q", c.Logging.Level)
	}
	return nil
}
