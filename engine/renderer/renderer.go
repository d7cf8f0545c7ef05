package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/prism/engine/assets"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/vulkan"
)

// Window is the platform window the renderer presents to.
type Window interface {
	metadata.Surface
	vulkan.SurfaceSource
}

type RendererConfig struct {
	Vulkan vulkan.VulkanConfig
	Frame  FrameOptions
	// The model uploaded once and drawn for every instance.
	Vertices []math.Vertex2D
	// Directory watched for rebuilt shader binaries when WatchShaders is set.
	ShaderDir    string
	WatchShaders bool
}

/**
 * @brief Owns the Vulkan context, the uploaded model and the frame
 * coordinator, and tears them down in the right order.
 */
type Renderer struct {
	context     *vulkan.VulkanContext
	model       *vulkan.VulkanModel
	watcher     *assets.ShaderWatcher
	coordinator *FrameCoordinator
}

func New(window Window, config RendererConfig) (*Renderer, error) {
	r := &Renderer{}

	context, err := vulkan.NewContext(window, config.Vulkan)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize vulkan")
	}
	r.context = context

	model, err := vulkan.NewModel(context, config.Vertices)
	if err != nil {
		r.release()
		return nil, errors.Wrap(err, "failed to upload model")
	}
	r.model = model

	options := config.Frame
	if config.WatchShaders {
		watcher, err := assets.NewShaderWatcher(config.ShaderDir)
		if err != nil {
			// Hot reload is a convenience, rendering works without it.
			core.LogWarn("shader hot reload disabled: %s", err)
		} else {
			r.watcher = watcher
			options.ShaderChanges = watcher.Changes()
		}
	}

	coordinator, err := NewFrameCoordinator(context, window, model, options)
	if err != nil {
		r.release()
		return nil, err
	}
	r.coordinator = coordinator

	return r, nil
}

// Run draws until the window closes. The frame coordinator is shut down on return.
func (r *Renderer) Run() error {
	return r.coordinator.Run()
}

// Shutdown releases every GPU object. Safe to call after Run returned.
func (r *Renderer) Shutdown() error {
	return r.release()
}

func (r *Renderer) release() error {
	var errs error
	if r.coordinator != nil {
		errs = errors.CombineErrors(errs, r.coordinator.Shutdown())
		r.coordinator = nil
	}
	if r.watcher != nil {
		errs = errors.CombineErrors(errs, r.watcher.Close())
		r.watcher = nil
	}
	if r.context != nil {
		// The coordinator may never have been created, so wait here as well.
		errs = errors.CombineErrors(errs, r.context.WaitIdle())
	}
	if r.model != nil {
		r.model.Destroy()
		r.model = nil
	}
	if r.context != nil {
		r.context.Destroy()
		r.context = nil
	}
	return errs
}
