package engine

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/prism/engine/core"
)

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	config := DefaultApplicationConfig()
	config.Scene.InstanceCount = 0
	if _, err := New(config); !errors.Is(err, core.ErrInvalidConfig) {
		t.Fatalf("New() error = %v, want ErrInvalidConfig", err)
	}
}

func TestNewEngineStartsUninitialized(t *testing.T) {
	e, err := New(nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if e.Stage() != EngineStageUninitialized {
		t.Fatalf("stage = %s", e.Stage())
	}
	if err := e.Run(); err == nil {
		t.Fatal("Run() before Initialize should fail")
	}
	// Nothing was created, so these are no-ops.
	e.Stop()
	if err := e.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

func TestStageString(t *testing.T) {
	for stage, want := range map[Stage]string{
		EngineStageUninitialized: "uninitialized",
		EngineStageRunning:       "running",
		EngineStageShutdown:      "shutdown",
		Stage(42):                "unknown",
	} {
		if got := stage.String(); got != want {
			t.Errorf("Stage(%d) = %q, want %q", stage, got, want)
		}
	}
}
