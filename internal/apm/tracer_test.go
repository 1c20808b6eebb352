package apm

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/fd1az/paybridge/internal/config"
	"github.com/fd1az/paybridge/internal/logger"
)

func TestTracer_NoticeErrorMarksSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	defer otel.SetTracerProvider(prev)

	tr := NewTracer("test")
	_, span := tr.Start(context.Background(), "settlement.poll", attribute.String("tx", "0xabc"))
	span.NoticeError(errors.New("rpc down"))
	span.NoticeError(nil)
	span.End()

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d", len(ended))
	}
	if ended[0].Status().Code != codes.Error {
		t.Errorf("status = %v, want error", ended[0].Status().Code)
	}
	if ended[0].Name() != "settlement.poll" {
		t.Errorf("name = %q", ended[0].Name())
	}
}

func TestNewTraceProvider_DisabledIsNoop(t *testing.T) {
	tp, err := NewTraceProvider(config.TelemetryConfig{Enabled: false}, logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := tp.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

func TestNewTraceProvider_UnknownProvider(t *testing.T) {
	_, err := NewTraceProvider(config.TelemetryConfig{Enabled: true, TraceProvider: "newrelic"}, logger.NewNop())
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}
