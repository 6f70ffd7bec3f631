// Package logging adapts shared/logger's structured JSON logger to the
// governed pipeline: every call site carries a trace_id instead of the
// teacher's multi-tenant client_id, since the pipeline has no client
// concept, only a per-request trace that threads through decision,
// control, output, and model-invocation stages.
package logging

import "governedchat/shared/logger"

// Logger binds a shared/logger.Logger to a single request's trace id so
// call sites never have to thread requestID through every log line by hand.
type Logger struct {
	base    *logger.Logger
	traceID string
}

// New builds a component logger, e.g. New("orchestrator").
func New(component string) *logger.Logger {
	return logger.New(component)
}

// WithTrace binds a trace id to an existing component logger.
func WithTrace(base *logger.Logger, traceID string) *Logger {
	return &Logger{base: base, traceID: traceID}
}

func (l *Logger) Info(message string, fields map[string]interface{}) {
	l.base.Info("", l.traceID, message, fields)
}

func (l *Logger) Warn(message string, fields map[string]interface{}) {
	l.base.Warn("", l.traceID, message, fields)
}

func (l *Logger) Error(message string, fields map[string]interface{}) {
	l.base.Error("", l.traceID, message, fields)
}

// Stage logs a single pipeline stage's outcome at INFO, the shape every
// orchestrator stage call site uses.
func (l *Logger) Stage(stage, outcome string, durationMS float64, extra map[string]interface{}) {
	fields := map[string]interface{}{"stage": stage, "outcome": outcome}
	for k, v := range extra {
		fields[k] = v
	}
	l.base.InfoWithDuration("", l.traceID, "stage completed", durationMS, fields)
}
