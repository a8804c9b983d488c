package otel

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewProviders_EmptyEndpointIsNoop(t *testing.T) {
	for _, endpoint := range []string{"", "   "} {
		providers, err := NewProviders(context.Background(), Config{Endpoint: endpoint, ServiceName: "vyre-ats-test"})
		if err != nil {
			t.Fatalf("NewProviders(%q): %v", endpoint, err)
		}
		if providers.TracerProvider == nil || providers.MeterProvider == nil || providers.LoggerProvider == nil {
			t.Fatalf("NewProviders(%q) left a provider nil: %+v", endpoint, providers)
		}
		if err := providers.Shutdown(context.Background()); err != nil {
			t.Errorf("no-op shutdown: %v", err)
		}
		// Shutdown is idempotent for the no-op set.
		if err := providers.Shutdown(context.Background()); err != nil {
			t.Errorf("second shutdown: %v", err)
		}
	}
}

func TestNewProviders_InvalidEndpoint(t *testing.T) {
	for _, endpoint := range []string{"://invalid", "http://[invalid", "http://"} {
		t.Run(endpoint, func(t *testing.T) {
			if _, err := NewProviders(context.Background(), Config{Endpoint: endpoint, ServiceName: "vyre-ats-test"}); err == nil {
				t.Errorf("NewProviders(%q) should return error", endpoint)
			}
		})
	}
}

func TestParseCollector(t *testing.T) {
	cases := []struct {
		endpoint string
		force    bool
		target   string
		insecure bool
	}{
		{"localhost:4317", false, "localhost:4317", true},
		{"http://collector:4317/v1/traces", false, "collector:4317", true},
		{"https://collector:4317", false, "collector:4317", false},
		{"https://collector:4317", true, "collector:4317", true},
	}
	for _, tc := range cases {
		got, err := parseCollector(tc.endpoint, tc.force)
		if err != nil {
			t.Fatalf("parseCollector(%q): %v", tc.endpoint, err)
		}
		if got.target != tc.target || got.insecure != tc.insecure {
			t.Errorf("parseCollector(%q, %t) = %+v, want target=%s insecure=%t", tc.endpoint, tc.force, got, tc.target, tc.insecure)
		}
	}
}

func TestNewProviders_RealEndpointBuildsExporters(t *testing.T) {
	// gRPC exporters dial lazily, so construction succeeds without a collector.
	ctx := context.Background()
	for _, endpoint := range []string{"localhost:4317", "http://localhost:4317/v1/traces", "https://localhost:4317"} {
		providers, err := NewProviders(ctx, Config{Endpoint: endpoint, ServiceName: "vyre-ats-test", Environment: "test", Insecure: endpoint == "https://localhost:4317"})
		if err != nil {
			t.Logf("NewProviders(%q): %v", endpoint, err)
			continue
		}
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_ = providers.Shutdown(cctx)
	}
}

func TestSetGlobal(t *testing.T) {
	providers, err := NewProviders(context.Background(), Config{ServiceName: "vyre-ats-test"})
	if err != nil {
		t.Fatalf("NewProviders: %v", err)
	}
	oldTP, oldMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(oldTP)
		otel.SetMeterProvider(oldMP)
	})

	providers.SetGlobal()
	if otel.GetTracerProvider() == oldTP {
		t.Error("TracerProvider should be updated")
	}
	if otel.GetMeterProvider() == oldMP {
		t.Error("MeterProvider should be updated")
	}
}

func TestSetGlobal_PartialProviders(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	oldTP, oldMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(oldTP)
		otel.SetMeterProvider(oldMP)
	})

	(&Providers{TracerProvider: tp}).SetGlobal()
	if otel.GetTracerProvider() == oldTP {
		t.Error("TracerProvider should be updated")
	}
	if otel.GetMeterProvider() != oldMP {
		t.Error("MeterProvider should not be updated when nil")
	}
	// All nil must not panic.
	(&Providers{}).SetGlobal()
}
