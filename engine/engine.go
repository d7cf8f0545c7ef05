package engine

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/platform"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released everything it owned
	EngineStageShutdown
)

func (s Stage) String() string {
	switch s {
	case EngineStageUninitialized:
		return "uninitialized"
	case EngineStageInitializing:
		return "initializing"
	case EngineStageInitialized:
		return "initialized"
	case EngineStageRunning:
		return "running"
	case EngineStageShuttingDown:
		return "shutting-down"
	case EngineStageShutdown:
		return "shutdown"
	}
	return "unknown"
}

type Engine struct {
	config   *ApplicationConfig
	platform *platform.Platform
	renderer *renderer.Renderer

	// Guards the stage against Stop, which may be called from another goroutine.
	mu           sync.Mutex
	currentStage Stage
}

func New(config *ApplicationConfig) (*Engine, error) {
	if config == nil {
		config = DefaultApplicationConfig()
	}
	if err := config.Validate(); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	core.SetLogLevel(config.LogLevel())

	p, err := platform.New()
	if err != nil {
		return nil, err
	}

	return &Engine{
		config:       config,
		platform:     p,
		currentStage: EngineStageUninitialized,
	}, nil
}

func (e *Engine) Stage() Stage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentStage
}

func (e *Engine) setStage(stage Stage) {
	e.mu.Lock()
	e.currentStage = stage
	e.mu.Unlock()
}

// Initialize opens the window and brings the renderer to a state where it can draw.
func (e *Engine) Initialize() error {
	if e.Stage() != EngineStageUninitialized {
		return errors.Newf("cannot initialize an engine in stage %s", e.Stage())
	}
	e.setStage(EngineStageInitializing)

	window := e.config.Window
	if err := e.platform.Startup(platform.WindowConfig{
		Title:     window.Title,
		X:         window.PosX,
		Y:         window.PosY,
		Width:     window.Width,
		Height:    window.Height,
		Resizable: window.Resizable,
	}); err != nil {
		e.setStage(EngineStageUninitialized)
		return err
	}

	clear, err := e.config.ClearValues()
	if err != nil {
		_ = e.platform.Shutdown()
		e.setStage(EngineStageUninitialized)
		return err
	}

	r, err := renderer.New(e.platform, renderer.RendererConfig{
		Vulkan: vulkan.VulkanConfig{
			ApplicationName: window.Title,
			Validation:      e.config.Renderer.Validation,
			FramesInFlight:  e.config.Renderer.FramesInFlight,
			PresentMode:     e.config.Renderer.PresentMode,
		},
		Frame: renderer.FrameOptions{
			Pipeline:                e.config.PipelineConfig(),
			Clear:                   clear,
			InstanceCount:           e.config.Scene.InstanceCount,
			ReuseCompatiblePipeline: e.config.Renderer.ReuseCompatiblePipeline,
		},
		Vertices:     e.config.Vertices(),
		ShaderDir:    e.config.Renderer.ShaderDir,
		WatchShaders: e.config.Renderer.WatchShaders,
	})
	if err != nil {
		_ = e.platform.Shutdown()
		e.setStage(EngineStageUninitialized)
		return errors.Wrap(err, "failed to initialize the renderer")
	}
	e.renderer = r

	e.setStage(EngineStageInitialized)
	core.LogInfo("Engine initialized.")
	return nil
}

// Run draws frames until the window closes or Stop is called.
func (e *Engine) Run() error {
	if e.Stage() != EngineStageInitialized {
		return errors.Newf("cannot run an engine in stage %s", e.Stage())
	}
	e.setStage(EngineStageRunning)
	core.LogInfo("Engine running.")

	err := e.renderer.Run()
	e.setStage(EngineStageShuttingDown)
	return err
}

// Stop asks a running engine to finish the current frame and return from Run.
// Safe to call from any goroutine.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.currentStage {
	case EngineStageInitialized, EngineStageRunning:
		core.LogInfo("Stop requested.")
		e.platform.RequestClose()
	}
}

// Shutdown releases the renderer and closes the window. Calling it more than once is a no-op.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	if e.currentStage == EngineStageShutdown || e.currentStage == EngineStageUninitialized {
		e.mu.Unlock()
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.mu.Unlock()

	var errs error
	if e.renderer != nil {
		errs = errors.CombineErrors(errs, e.renderer.Shutdown())
		e.renderer = nil
	}

	e.mu.Lock()
	errs = errors.CombineErrors(errs, e.platform.Shutdown())
	e.currentStage = EngineStageShutdown
	e.mu.Unlock()

	core.LogInfo("Engine shut down.")
	return errs
}
