package engine

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

const (
	ModelTriangle   = "triangle"
	ModelSierpinski = "sierpinski"

	// Deeper fractals add vertices without adding visible detail.
	MaxSierpinskiDepth = 10
)

type WindowConfig struct {
	// The application name used in windowing.
	Title string `toml:"title"`
	// Window starting width.
	Width uint32 `toml:"width"`
	// Window starting height.
	Height uint32 `toml:"height"`
	// Window starting position, negative lets the window manager decide.
	PosX      int  `toml:"pos_x"`
	PosY      int  `toml:"pos_y"`
	Resizable bool `toml:"resizable"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type RendererConfig struct {
	Validation     bool   `toml:"validation"`
	FramesInFlight uint32 `toml:"frames_in_flight"`
	PresentMode    string `toml:"present_mode"`
	// "#rrggbb", "#rrggbbaa" or an SVG color name. Empty means 10% gray.
	ClearColor              string `toml:"clear_color"`
	ReuseCompatiblePipeline bool   `toml:"reuse_compatible_pipeline"`
	ShaderDir               string `toml:"shader_dir"`
	VertexShader            string `toml:"vertex_shader"`
	FragmentShader          string `toml:"fragment_shader"`
	WatchShaders            bool   `toml:"watch_shaders"`
}

type SceneConfig struct {
	Model           string `toml:"model"`
	SierpinskiDepth int    `toml:"sierpinski_depth"`
	InstanceCount   int    `toml:"instance_count"`
}

type ApplicationConfig struct {
	Window   WindowConfig   `toml:"window"`
	Log      LogConfig      `toml:"log"`
	Renderer RendererConfig `toml:"renderer"`
	Scene    SceneConfig    `toml:"scene"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Window: WindowConfig{
			Title:     "prism",
			Width:     800,
			Height:    600,
			PosX:      -1,
			PosY:      -1,
			Resizable: true,
		},
		Log: LogConfig{
			Level: "info",
		},
		Renderer: RendererConfig{
			Validation:              false,
			FramesInFlight:          2,
			PresentMode:             "mailbox",
			ClearColor:              "",
			ReuseCompatiblePipeline: false,
			ShaderDir:               "shaders",
			VertexShader:            "simple_shader.vert.spv",
			FragmentShader:          "simple_shader.frag.spv",
			WatchShaders:            false,
		},
		Scene: SceneConfig{
			Model:           ModelTriangle,
			SierpinskiDepth: 0,
			InstanceCount:   renderer.DefaultInstanceCount,
		},
	}
}

// LoadApplicationConfig reads a TOML file on top of the defaults. A missing
// file is not an error. Unknown keys are.
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	config := DefaultApplicationConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			core.LogInfo("No configuration found at %s, using defaults.", path)
			return config, nil
		}
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(config); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, errors.Wrapf(core.ErrInvalidConfig, "%s: %s", path, strict.String())
		}
		return nil, errors.Wrapf(core.ErrInvalidConfig, "%s: %v", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return config, nil
}

func (c *ApplicationConfig) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return errors.Wrapf(core.ErrInvalidConfig, "window size %dx%d", c.Window.Width, c.Window.Height)
	}
	if _, err := core.ParseLogLevel(c.Log.Level); err != nil {
		return errors.Wrapf(core.ErrInvalidConfig, "log level %q", c.Log.Level)
	}
	if c.Renderer.FramesInFlight < 1 {
		return errors.Wrap(core.ErrInvalidConfig, "frames_in_flight must be at least 1")
	}
	switch c.Renderer.PresentMode {
	case "fifo", "mailbox", "immediate":
	default:
		return errors.Wrapf(core.ErrInvalidConfig, "unknown present mode %q", c.Renderer.PresentMode)
	}
	if _, err := c.ClearValues(); err != nil {
		return err
	}
	if c.Renderer.VertexShader == "" || c.Renderer.FragmentShader == "" {
		return errors.Wrap(core.ErrInvalidConfig, "vertex_shader and fragment_shader are required")
	}
	if c.Scene.InstanceCount < 1 {
		return errors.Wrap(core.ErrInvalidConfig, "instance_count must be at least 1")
	}
	switch c.Scene.Model {
	case ModelTriangle:
	case ModelSierpinski:
		if c.Scene.SierpinskiDepth > MaxSierpinskiDepth {
			return errors.Wrapf(core.ErrInvalidConfig, "sierpinski_depth %d exceeds %d", c.Scene.SierpinskiDepth, MaxSierpinskiDepth)
		}
	default:
		return errors.Wrapf(core.ErrInvalidConfig, "unknown model %q", c.Scene.Model)
	}
	return nil
}

func (c *ApplicationConfig) LogLevel() core.LogLevel {
	level, err := core.ParseLogLevel(c.Log.Level)
	if err != nil {
		return core.InfoLevel
	}
	return level
}

func (c *ApplicationConfig) ClearValues() (metadata.ClearValues, error) {
	clear := metadata.ClearValues{
		Colour:  [4]float32{0.1, 0.1, 0.1, 1.0},
		Depth:   1.0,
		Stencil: 0,
	}
	if c.Renderer.ClearColor == "" {
		return clear, nil
	}
	colour, err := core.ParseColor(c.Renderer.ClearColor)
	if err != nil {
		return clear, err
	}
	clear.Colour = colour
	return clear, nil
}

func (c *ApplicationConfig) PipelineConfig() metadata.PipelineConfig {
	return metadata.DefaultPipelineConfig(
		filepath.Join(c.Renderer.ShaderDir, c.Renderer.VertexShader),
		filepath.Join(c.Renderer.ShaderDir, c.Renderer.FragmentShader))
}

// Vertices returns the model selected by the scene section.
func (c *ApplicationConfig) Vertices() []math.Vertex2D {
	if c.Scene.Model == ModelSierpinski {
		return math.Sierpinski(c.Scene.SierpinskiDepth, 1.0, 1.0, -0.5, 0.5)
	}
	return math.TriangleVertices()
}
