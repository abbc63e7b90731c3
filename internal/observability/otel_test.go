package observability

import (
	"context"
	"testing"
)

func TestParseHeaders(t *testing.T) {
	h := parseHeaders("authorization=Bearer abc, x-team=dup ,broken,=x,k=")
	if len(h) != 2 || h["authorization"] != "Bearer abc" || h["x-team"] != "dup" {
		t.Fatalf("headers: got=%v", h)
	}
	if h := parseHeaders(""); h != nil {
		t.Fatalf("empty headers: want=nil got=%v", h)
	}
}

func TestParseRatio(t *testing.T) {
	for raw, want := range map[string]float64{"": 1, "0.25": 0.25, " 0.5 ": 0.5, "-1": 0, "3": 1, "nope": 1, "NaN": 1} {
		if got := parseRatio(raw); got != want {
			t.Fatalf("parseRatio(%q): want=%v got=%v", raw, want, got)
		}
	}
}

func TestOtelConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "x-team=dup")
	t.Setenv("OTEL_SAMPLER_RATIO", "0.1")
	cfg := OtelConfigFromEnv("episode-duplication-worker")
	if cfg.ServiceName != "episode-duplication-worker" {
		t.Fatalf("service name: got=%s", cfg.ServiceName)
	}
	if !cfg.Enabled || cfg.Endpoint != "collector:4318" || cfg.Headers["x-team"] != "dup" || cfg.SampleRatio != 0.1 {
		t.Fatalf("config: got=%+v", cfg)
	}
}

func TestInitOTelDisabledIsNoop(t *testing.T) {
	shutdown := InitOTel(context.Background(), nil, OtelConfig{ServiceName: "episode-duplication"})
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
