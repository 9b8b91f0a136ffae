package display

import "log/slog"

// LogSink logs the displayed value whenever it changes. It stands in for the
// readout on machines without one.
type LogSink struct {
	logger *slog.Logger
	last   uint32
	shown  bool
}

// NewLogSink creates a LogSink. A nil logger uses slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Show logs value if it differs from the last one.
func (l *LogSink) Show(value uint32) error {
	if l.shown && value == l.last {
		return nil
	}
	l.logger.Info("display: apm", "value", value)
	l.last = value
	l.shown = true
	return nil
}

// Close does nothing.
func (l *LogSink) Close() error {
	return nil
}
