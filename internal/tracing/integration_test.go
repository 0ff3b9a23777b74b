package tracing_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sanghalabs/kindred/internal/blocklist"
	"github.com/sanghalabs/kindred/internal/feedback"
	"github.com/sanghalabs/kindred/internal/match"
	"github.com/sanghalabs/kindred/internal/matchstore"
	"github.com/sanghalabs/kindred/internal/middleware"
	"github.com/sanghalabs/kindred/internal/profile"
	"github.com/sanghalabs/kindred/internal/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return recorder
}

func seededMatchService(t *testing.T) *match.Service {
	t.Helper()
	profiles := profile.NewInMemoryStore()
	now := time.Now()
	profiles.Put(&profile.Profile{
		ID:           "member-1",
		DisplayName:  "Sage",
		Visibility:   profile.VisibilityPublic,
		Values:       []string{"compassion", "honesty"},
		Practices:    []string{"meditation"},
		Intentions:   []string{"friendship"},
		Region:       "cascadia",
		TrustScore:   60,
		LastActiveAt: now,
	})
	profiles.Put(&profile.Profile{
		ID:           "member-2",
		DisplayName:  "River",
		Visibility:   profile.VisibilityPublic,
		Values:       []string{"compassion", "curiosity"},
		Practices:    []string{"meditation", "yoga"},
		Intentions:   []string{"friendship"},
		Region:       "cascadia",
		TrustScore:   55,
		LastActiveAt: now,
	})

	return match.NewService(match.ServiceConfig{},
		profiles,
		feedback.NewInMemoryStore(),
		blocklist.NewInMemoryStore(),
		matchstore.NewInMemoryStore(),
	)
}

// A match run triggered over HTTP should produce the request span and a
// nested match.run span sharing one trace ID.
func TestMatchRunTracedThroughHTTP(t *testing.T) {
	recorder := installRecorder(t)
	service := seededMatchService(t)

	handler := middleware.Tracing("kindred-api")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		summary, err := service.Run(r.Context(), "member-1")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(summary)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/matches/run", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	spans := recorder.Ended()
	byName := make(map[string]sdktrace.ReadOnlySpan, len(spans))
	for _, span := range spans {
		byName[span.Name()] = span
	}

	requestSpan, ok := byName["POST /v1/matches/run"]
	if !ok {
		t.Fatal("missing request span POST /v1/matches/run")
	}
	runSpan, ok := byName["match.run"]
	if !ok {
		t.Fatal("missing match.run span")
	}

	if runSpan.SpanContext().TraceID() != requestSpan.SpanContext().TraceID() {
		t.Errorf("match.run did not join the request trace: %s vs %s",
			runSpan.SpanContext().TraceID(), requestSpan.SpanContext().TraceID())
	}

	var subjectID string
	for _, attr := range runSpan.Attributes() {
		if attr.Key == "match.subject_id" {
			subjectID = attr.Value.AsString()
		}
	}
	if subjectID != "member-1" {
		t.Errorf("expected match.subject_id=member-1 on run span, got %q", subjectID)
	}

	var rankEvent bool
	for _, ev := range runSpan.Events() {
		if ev.Name != "candidates_ranked" {
			continue
		}
		rankEvent = true
		for _, attr := range ev.Attributes {
			if attr.Key == "ranked" && attr.Value.AsInt64() != 1 {
				t.Errorf("expected ranked=1 on candidates_ranked event, got %d", attr.Value.AsInt64())
			}
		}
	}
	if !rankEvent {
		t.Error("missing candidates_ranked event on run span")
	}
}

// Store spans started from a run context nest under the same trace.
func TestStoreSpansJoinRunTrace(t *testing.T) {
	recorder := installRecorder(t)

	ctx, endRun := tracing.StartRunSpan(context.Background(), "member-1")
	_, endQuery := tracing.StartDBSpan(ctx, "profiles", tracing.DBOperationQuery)
	endQuery(nil)
	endRun(nil)

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].SpanContext().TraceID() != spans[1].SpanContext().TraceID() {
		t.Error("store span did not join the run trace")
	}
}

// With span export disabled the helpers still run, they just record
// nothing that crashes.
func TestHelpersWithTracingDisabled(t *testing.T) {
	provider, err := tracing.NewProvider(tracing.Config{
		ServiceName: "kindred-api",
		Enabled:     false,
	})
	if err != nil {
		t.Fatalf("failed to create disabled provider: %v", err)
	}
	if provider.IsEnabled() {
		t.Error("expected tracing to report disabled")
	}

	ctx, endRun := tracing.StartRunSpan(context.Background(), "member-1")
	tracing.SetAttributes(ctx, attribute.String("subject_id", "member-1"))
	tracing.AddEvent(ctx, "candidates_ranked", attribute.Int("ranked", 0))
	endRun(nil)
}

// The middleware exposes the active trace ID to handlers, matching the
// ID recorded on the span.
func TestHandlerSeesRequestTraceID(t *testing.T) {
	recorder := installRecorder(t)

	var captured string
	handler := middleware.Tracing("kindred-api")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = middleware.GetTraceID(r)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/matches", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if captured == "" {
		t.Fatal("expected non-empty trace ID in handler")
	}

	spans := recorder.Ended()
	if len(spans) == 0 {
		t.Fatal("expected at least one recorded span")
	}
	if got := spans[0].SpanContext().TraceID().String(); got != captured {
		t.Errorf("trace ID mismatch: handler saw %s, span has %s", captured, got)
	}
}
