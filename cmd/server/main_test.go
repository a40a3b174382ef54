package main

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/WaterCountry/CodeGra.de/internal/config"
)

type callRecorder struct {
	calls *[]string
}

func (r callRecorder) Stop() { *r.calls = append(*r.calls, "stop") }

func (r callRecorder) Shutdown(context.Context) error {
	*r.calls = append(*r.calls, "shutdown")
	return nil
}

func TestShutdown_StopsPipelineFirst(t *testing.T) {
	var calls []string
	rec := callRecorder{calls: &calls}
	shutdown(zaptest.NewLogger(t), rec, rec, time.Second)

	if len(calls) != 2 || calls[0] != "stop" || calls[1] != "shutdown" {
		t.Errorf("expected [stop shutdown], got %v", calls)
	}
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		log, err := newLogger(config.Config{LogLevel: "debug", LogFormat: format})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !log.Core().Enabled(-1) {
			t.Errorf("format %s: expected debug to be enabled", format)
		}
	}
	if _, err := newLogger(config.Config{LogLevel: "loud"}); err == nil {
		t.Error("expected an error for an unknown level")
	}
}
