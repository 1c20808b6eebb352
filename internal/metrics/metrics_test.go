package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fd1az/paybridge/internal/config"
)

func TestProvider_ExposesInstruments(t *testing.T) {
	p, err := NewMetricProvider(context.Background(), config.TelemetryConfig{ServiceName: "paybridge"})
	if err != nil {
		t.Fatalf("NewMetricProvider: %v", err)
	}
	defer p.Shutdown(context.Background())

	counter, err := p.Meter("test").Int64Counter("quotes_total")
	if err != nil {
		t.Fatal(err)
	}
	counter.Add(context.Background(), 3)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "quotes_total") {
		t.Errorf("metrics output missing counter:\n%s", body)
	}
}
