package telemetry

import (
	"context"
	"log/slog"
)

// SlogAPI implements API on a slog logger, the zero value logs to slog.Default().
type SlogAPI struct {
	Logger *slog.Logger
}

func (s SlogAPI) log(level slog.Level, message, id string, params []any) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := make([]slog.Attr, 0, len(params)+1)
	if id != "" {
		attrs = append(attrs, slog.String("id", id))
	}
	for _, p := range params {
		if err, ok := p.(error); ok {
			attrs = append(attrs, slog.String("err", err.Error()))
			continue
		}
		attrs = append(attrs, slog.Any("param", p))
	}
	logger.LogAttrs(context.Background(), level, message, attrs...)
}

func (s SlogAPI) ReportBroken(id string, params ...any) {
	s.log(slog.LevelError, "broken component", id, params)
}

func (s SlogAPI) ReportWarning(id string, params ...any) {
	s.log(slog.LevelWarn, "warning", id, params)
}

func (s SlogAPI) ReportDebug(message string, params ...any) {
	s.log(slog.LevelDebug, message, "", params)
}

func (s SlogAPI) ReportCount(id string, count int64) {
	s.log(slog.LevelDebug, "count", id, []any{count})
}
