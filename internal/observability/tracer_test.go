package observability

import (
	"context"
	"errors"
	"testing"
)

func TestInitTracer_Disabled(t *testing.T) {
	shutdown, err := InitTracer(TracerConfig{ServiceName: "test", Enabled: false})
	if err != nil {
		t.Fatalf("InitTracer() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}

	// spans on the no-op provider must be safe to use
	_, span := StartSpan(context.Background(), "test.op")
	EndSpan(span, errors.New("boom"), "failed")
}

func TestInitTracer_UnsupportedProtocol(t *testing.T) {
	_, err := InitTracer(TracerConfig{ServiceName: "test", Enabled: true, Protocol: "udp"})
	if err == nil {
		t.Fatal("expected error for unsupported protocol")
	}
}
