package sink

import (
	"context"
	"log/slog"
)

const logSinkName = "log"

// LogSink writes transcripts as structured log lines. It is always enabled,
// ensuring every answered query is captured even when all external sinks are
// down.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a new LogSink. The logger must not be nil.
func NewLogSink(logger *slog.Logger) (*LogSink, error) {
	if logger == nil {
		return nil, errNilLogger
	}
	return &LogSink{logger: logger}, nil
}

// Name returns "log".
func (s *LogSink) Name() string {
	return logSinkName
}

// Deliver writes the transcript as a structured log entry. The log sink
// never retries because it writes to local output, which is not expected to
// fail transiently.
func (s *LogSink) Deliver(_ context.Context, t *Transcript) error {
	if t == nil {
		return errNilTranscript
	}
	s.logger.Info("query_transcript",
		"query", t.Query,
		"route", t.Route,
		"answer_length", t.AnswerLength,
		"backend", t.Backend,
		"duration_ms", t.Duration.Milliseconds(),
		"timestamp", t.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
	)
	return nil
}
