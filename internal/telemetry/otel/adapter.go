package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"vyre/backend/internal/telemetry"
)

const instrumentationName = "vyre.telemetry"

// recordEmitter is the subset of otellog.Logger used by the emitter.
type recordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewEventEmitter returns an EventEmitter that sends events as OTel log records via the given LoggerProvider.
// If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger(instrumentationName)}
}

// NewEventEmitterWithLogger returns an EventEmitter writing to logger.
func NewEventEmitterWithLogger(logger recordEmitter) telemetry.EventEmitter {
	if logger == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *telemetry.Event) error { return nil }

type otelEmitter struct {
	logger recordEmitter
}

// Emit converts the event to an OTel log record and emits it.
func (e *otelEmitter) Emit(ctx context.Context, event *telemetry.Event) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	if !event.CreatedAt.IsZero() {
		rec.SetTimestamp(event.CreatedAt)
	} else {
		rec.SetTimestamp(time.Now().UTC())
	}
	rec.SetEventName(event.EventType)
	rec.SetSeverity(severityFor(event))
	if b := event.MetadataJSON(); len(b) > 0 {
		rec.SetBody(otellog.BytesValue(b))
	}
	attrs := []struct{ key, val string }{
		{"company_id", event.CompanyID},
		{"user_id", event.UserID},
		{"session_id", event.SessionID},
		{"event_type", event.EventType},
		{"source", event.Source},
		{"ip_address", event.IPAddress},
	}
	for _, a := range attrs {
		if a.val != "" {
			rec.AddAttributes(otellog.String(a.key, a.val))
		}
	}
	e.logger.Emit(ctx, rec)
	return nil
}

// severityFor maps failed logins to warn and request events to the class of their status code.
func severityFor(event *telemetry.Event) otellog.Severity {
	switch event.EventType {
	case telemetry.EventLoginFailure, telemetry.EventLoginThrottled:
		return otellog.SeverityWarn
	case telemetry.EventHTTPRequest:
		status, _ := event.Metadata["status"].(int)
		switch {
		case status >= 500:
			return otellog.SeverityError
		case status >= 400:
			return otellog.SeverityWarn
		}
	}
	return otellog.SeverityInfo
}
