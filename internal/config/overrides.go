package config

// FlagOverrides holds command-line values that win over the file. Each field
// is applied only when non-nil, so main sets just the flags the user passed.
type FlagOverrides struct {
	InputSource     *string
	Terminal        *string
	PollMs          *int
	DebounceSamples *int

	Mode          *string
	WeightPercent *int
	TickMs        *int

	DisplaySink *string
	HIDProfile  *string

	Broker      *string
	HeartbeatMs *int

	HTTPAddr      *string
	StatsviewAddr *string
	LogLevel      *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.InputSource != nil {
		cfg.Input.Source = *o.InputSource
	}
	if o.Terminal != nil {
		cfg.Input.Terminal = *o.Terminal
	}
	if o.PollMs != nil {
		cfg.Input.PollMs = *o.PollMs
	}
	if o.DebounceSamples != nil {
		cfg.Input.DebounceSamples = *o.DebounceSamples
	}

	if o.Mode != nil {
		cfg.APM.Mode = *o.Mode
	}
	if o.WeightPercent != nil {
		cfg.APM.WeightPercent = *o.WeightPercent
	}
	if o.TickMs != nil {
		cfg.APM.TickMs = *o.TickMs
	}

	if o.DisplaySink != nil {
		cfg.Display.Sink = *o.DisplaySink
	}
	if o.HIDProfile != nil {
		cfg.HID.Profile = *o.HIDProfile
	}

	if o.Broker != nil {
		cfg.MQTT.Broker = *o.Broker
	}
	if o.HeartbeatMs != nil {
		cfg.MQTT.HeartbeatMs = *o.HeartbeatMs
	}

	if o.HTTPAddr != nil {
		cfg.HTTP.Addr = *o.HTTPAddr
	}
	if o.StatsviewAddr != nil {
		cfg.Statsview.Addr = *o.StatsviewAddr
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}
