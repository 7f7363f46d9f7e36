package sink

import (
	"context"
	"log/slog"
)

// LogSink records writes instead of performing them. The serve command uses
// it as its sink in every run, dry or not.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink wires a LogSink over the given logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Write logs the request and reports success.
func (s *LogSink) Write(ctx context.Context, req Request) error {
	s.logger.InfoContext(ctx, "sink write",
		"endpoint", req.Endpoint,
		"node_id", req.NodeID,
		"value", req.Value.String(),
	)
	return nil
}
