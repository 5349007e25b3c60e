// Package telemetry wraps Sentry tracing for the ingestion and answer paths.
package telemetry

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
)

const serviceName = "aura"

// Config holds the configuration for Sentry initialization.
type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
}

// Init initializes Sentry with tracing enabled and returns a shutdown
// function that flushes pending events. An empty DSN disables telemetry
// entirely and yields a no-op shutdown.
func Init(cfg Config) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}

	environment := cfg.Environment
	if environment == "" {
		environment = "development"
	}
	sampleRate := cfg.TracesSampleRate
	if sampleRate == 0 {
		sampleRate = 1.0
	}

	sampler := func(sc sentry.SamplingContext) float64 {
		// Health checks would dominate the trace volume.
		if sc.Span.Name == "GET /health" {
			return 0
		}
		// Children inherit the root decision.
		var root sentry.SpanID
		if sc.Span.ParentSpanID != root {
			if sc.Span.Sampled.Bool() {
				return 1
			}
			return 0
		}
		return sampleRate
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      environment,
		EnableTracing:    true,
		TracesSampleRate: sampleRate,
		TracesSampler:    sentry.TracesSampler(sampler),
		Debug:            cfg.Debug,
		ServerName:       serviceName,
	})
	if err != nil {
		log.Printf("sentry: init failed, continuing without tracing: %v", err)
		return func() {}, nil
	}

	log.Printf("sentry: tracing enabled (environment: %s, sample_rate: %.2f)", environment, sampleRate)
	return func() { sentry.Flush(5 * time.Second) }, nil
}

// SpanAttributes carries the identifiers a span is tagged with. Zero-valued
// fields are omitted.
type SpanAttributes struct {
	BrainID    int64
	DocumentID int64
	SessionID  int64
	Operation  string
}

func (a SpanAttributes) apply(span *sentry.Span) {
	if a.BrainID != 0 {
		span.SetTag("brain_id", strconv.FormatInt(a.BrainID, 10))
	}
	if a.DocumentID != 0 {
		span.SetTag("document_id", strconv.FormatInt(a.DocumentID, 10))
	}
	if a.SessionID != 0 {
		span.SetTag("session_id", strconv.FormatInt(a.SessionID, 10))
	}
	if a.Operation != "" {
		span.SetData("operation", a.Operation)
	}
}

// Span is a thin handle over a Sentry span. A nil inner span makes every
// method a no-op, so call sites never need to branch on telemetry being
// disabled.
type Span struct {
	inner *sentry.Span
}

// End finishes the span.
func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

// SetError marks the span failed and reports the error.
func (s *Span) SetError(err error) {
	if s.inner == nil {
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	if hub := sentry.GetHubFromContext(s.inner.Context()); hub != nil {
		hub.CaptureException(err)
	}
}

// StartSpan opens a span named name. Inside an HTTP transaction it becomes a
// child span; on a background goroutine it starts a fresh transaction.
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}
	attrs.apply(span)
	return span.Context(), &Span{inner: span}
}

// AddBreadcrumb records a pipeline step on the current scope.
func AddBreadcrumb(ctx context.Context, category, message string) {
	crumb := &sentry.Breadcrumb{
		Type:      "default",
		Category:  category,
		Message:   message,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.AddBreadcrumb(crumb, nil)
		return
	}
	sentry.AddBreadcrumb(crumb)
}
