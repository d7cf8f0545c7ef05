package platform

import (
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type WindowConfig struct {
	Title     string
	X         int
	Y         int
	Width     uint32
	Height    uint32
	Resizable bool
}

/**
 * @brief A GLFW window without a client API. It is the surface frames are
 * presented to, and tracks whether the framebuffer was resized since the
 * flag was last reset.
 */
type Platform struct {
	Window *glfw.Window

	resized   bool
	startTime float64
}

func New() (*Platform, error) {
	return &Platform{
		Window: nil,
	}, nil
}

func (p *Platform) Startup(config WindowConfig) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return errors.Wrap(err, "failed to initialize glfw")
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		err := errors.New("no Vulkan loader found")
		core.LogError(err.Error())
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, boolHint(config.Resizable))
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(config.Width), int(config.Height), config.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		core.LogError("failed to create window: %s", err)
		return errors.Wrap(err, "failed to create window")
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	if config.X >= 0 && config.Y >= 0 {
		p.Window.SetPos(config.X, config.Y)
	}
	p.Window.Show()

	p.startTime = glfw.GetTime()
	core.LogInfo("Window created: %q %dx%d", config.Title, config.Width, config.Height)

	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// RequestClose asks the main loop to stop. Safe to call from any goroutine.
func (p *Platform) RequestClose() {
	if p.Window == nil {
		return
	}
	p.Window.SetShouldClose(true)
	// Wake up a loop blocked in WaitEvents.
	glfw.PostEmptyEvent()
}

// GetAbsoluteTime returns the seconds elapsed since Startup.
func (p *Platform) GetAbsoluteTime() float64 {
	return glfw.GetTime() - p.startTime
}

func (p *Platform) CurrentExtent() metadata.Extent {
	width, height := p.Window.GetFramebufferSize()
	if width < 0 || height < 0 {
		return metadata.Extent{}
	}
	return metadata.Extent{Width: uint32(width), Height: uint32(height)}
}

func (p *Platform) ShouldClose() bool {
	return p.Window.ShouldClose()
}

func (p *Platform) PollEvents() {
	glfw.PollEvents()
}

func (p *Platform) WaitEvents() {
	glfw.WaitEvents()
}

func (p *Platform) WasResized() bool {
	return p.resized
}

func (p *Platform) ResetResizedFlag() {
	p.resized = false
}

func (p *Platform) RequiredInstanceExtensions() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

func (p *Platform) CreateWindowSurface(instance interface{}) (uintptr, error) {
	return p.Window.CreateWindowSurface(instance, nil)
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if key == glfw.KeyEscape && action == glfw.Press {
		core.LogDebug("Escape pressed, closing window.")
		w.SetShouldClose(true)
	}
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	core.LogDebug("Framebuffer resized: %d, %d", width, height)
	p.resized = true
}

func boolHint(b bool) int {
	if b {
		return glfw.True
	}
	return glfw.False
}
