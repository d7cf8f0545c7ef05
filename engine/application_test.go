package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/prism/engine/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultApplicationConfigIsValid(t *testing.T) {
	if err := DefaultApplicationConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadApplicationConfigMissingFileUsesDefaults(t *testing.T) {
	config, err := LoadApplicationConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadApplicationConfig() error = %v", err)
	}
	if config.Window.Width != 800 || config.Window.Height != 600 {
		t.Errorf("window = %dx%d, want 800x600", config.Window.Width, config.Window.Height)
	}
	if config.Scene.InstanceCount != 4 {
		t.Errorf("instance_count = %d, want 4", config.Scene.InstanceCount)
	}
}

func TestLoadApplicationConfigOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[window]
title = "fractal"
width = 1280

[renderer]
present_mode = "fifo"
clear_color = "black"
reuse_compatible_pipeline = true

[scene]
model = "sierpinski"
sierpinski_depth = 3
`)
	config, err := LoadApplicationConfig(path)
	if err != nil {
		t.Fatalf("LoadApplicationConfig() error = %v", err)
	}
	if config.Window.Title != "fractal" || config.Window.Width != 1280 {
		t.Errorf("window = %+v", config.Window)
	}
	// Keys not present keep their defaults.
	if config.Window.Height != 600 || config.Renderer.FramesInFlight != 2 {
		t.Errorf("defaults lost: height %d, frames in flight %d", config.Window.Height, config.Renderer.FramesInFlight)
	}
	if !config.Renderer.ReuseCompatiblePipeline {
		t.Error("reuse_compatible_pipeline not read")
	}
	if got := len(config.Vertices()); got != 81 {
		t.Errorf("sierpinski depth 3 has %d vertices, want 81", got)
	}
	clear, err := config.ClearValues()
	if err != nil {
		t.Fatal(err)
	}
	if clear.Colour != [4]float32{0, 0, 0, 1} || clear.Depth != 1 {
		t.Errorf("clear = %+v", clear)
	}
}

func TestLoadApplicationConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero width", "[window]\nwidth = 0\n"},
		{"no frames in flight", "[renderer]\nframes_in_flight = 0\n"},
		{"no instances", "[scene]\ninstance_count = 0\n"},
		{"unknown model", "[scene]\nmodel = \"teapot\"\n"},
		{"deep fractal", "[scene]\nmodel = \"sierpinski\"\nsierpinski_depth = 11\n"},
		{"bad present mode", "[renderer]\npresent_mode = \"vsync\"\n"},
		{"bad colour", "[renderer]\nclear_color = \"#12\"\n"},
		{"bad log level", "[log]\nlevel = \"loud\"\n"},
		{"unknown key", "[renderer]\nmsaa = 4\n"},
		{"malformed", "[window\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadApplicationConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !errors.Is(err, core.ErrInvalidConfig) {
				t.Errorf("error %v does not wrap ErrInvalidConfig", err)
			}
		})
	}
}

func TestApplicationConfigDefaultClearColour(t *testing.T) {
	clear, err := DefaultApplicationConfig().ClearValues()
	if err != nil {
		t.Fatal(err)
	}
	if clear.Colour != [4]float32{0.1, 0.1, 0.1, 1.0} {
		t.Errorf("default clear colour = %v", clear.Colour)
	}
}

func TestApplicationConfigPipelinePaths(t *testing.T) {
	config := DefaultApplicationConfig()
	config.Renderer.ShaderDir = "assets/shaders"
	pipeline := config.PipelineConfig()
	if !strings.HasSuffix(pipeline.VertexShader, filepath.Join("assets", "shaders", "simple_shader.vert.spv")) {
		t.Errorf("vertex shader = %s", pipeline.VertexShader)
	}
	if !strings.HasSuffix(pipeline.FragmentShader, "simple_shader.frag.spv") {
		t.Errorf("fragment shader = %s", pipeline.FragmentShader)
	}
}

func TestApplicationConfigTriangleModel(t *testing.T) {
	if got := len(DefaultApplicationConfig().Vertices()); got != 3 {
		t.Errorf("triangle has %d vertices", got)
	}
}
