package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type FrameState uint8

const (
	// Nothing has been created yet
	StateUninitialized FrameState = iota
	// Chain, pipeline and command buffers match the surface
	StateReady
	// The chain is being rebuilt; no frame is recorded in this state
	StateRecreating
	// Waiting for the device and releasing resources
	StateShuttingDown
	// Every owned resource has been released
	StateShutdown
)

func (s FrameState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateRecreating:
		return "recreating"
	case StateShuttingDown:
		return "shutting-down"
	case StateShutdown:
		return "shutdown"
	}
	return "unknown"
}

type FrameOptions struct {
	Pipeline metadata.PipelineConfig
	Clear    metadata.ClearValues
	// Number of instances of the model drawn every frame.
	InstanceCount int
	// Keep the current pipeline across a chain recreation when the new chain's
	// render target description equals the old one.
	ReuseCompatiblePipeline bool
	// Receives a value whenever the shader binaries change on disk. May be nil.
	ShaderChanges <-chan struct{}
}

// FrameCoordinator owns the swapchain, the pipeline and the command buffers and
// drives the acquire, record, submit and present cycle, rebuilding the chain
// when it goes stale or the surface is resized.
type FrameCoordinator struct {
	device   metadata.Device
	surface  metadata.Surface
	geometry metadata.Geometry
	options  FrameOptions

	state          FrameState
	layout         metadata.PipelineLayout
	chain          metadata.PresentationChain
	pipeline       metadata.Pipeline
	commandBuffers []metadata.CommandBuffer

	clock       *core.Clock
	metrics     *core.Metrics
	lastTime    float64
	frameNumber uint64
}

// NewFrameCoordinator creates the pipeline layout, the first chain, its pipeline and
// one command buffer per chain image. It blocks while the surface extent is degenerate.
func NewFrameCoordinator(device metadata.Device, surface metadata.Surface, geometry metadata.Geometry, options FrameOptions) (*FrameCoordinator, error) {
	if geometry == nil {
		return nil, errors.Wrap(core.ErrInvalidGeometry, "frame coordinator requires geometry")
	}
	if options.InstanceCount <= 0 {
		options.InstanceCount = DefaultInstanceCount
	}

	fc := &FrameCoordinator{
		device:   device,
		surface:  surface,
		geometry: geometry,
		options:  options,
		state:    StateUninitialized,
		clock:    core.NewClock(),
		metrics:  core.NewMetrics(),
	}

	if err := fc.initialize(); err != nil {
		core.LogError("frame coordinator initialization failed: %s", err)
		if cerr := fc.release(); cerr != nil {
			err = errors.CombineErrors(err, cerr)
		}
		return nil, err
	}

	fc.state = StateReady
	fc.clock.Start()
	core.LogInfo("Frame coordinator ready: %d images at %s.", fc.chain.ImageCount(), fc.chain.Extent())
	return fc, nil
}

func (fc *FrameCoordinator) initialize() error {
	layout, err := fc.device.CreatePipelineLayout()
	if err != nil {
		return errors.Wrap(err, "failed to create pipeline layout")
	}
	fc.layout = layout

	extent, ok := fc.waitForExtent()
	if !ok {
		return errors.Wrap(core.ErrDegenerateExtent, "surface closed before it had a drawable size")
	}

	chain, err := fc.device.CreateChain(extent, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to create swapchain at %s", extent)
	}
	fc.chain = chain

	pipeline, err := fc.device.CreatePipeline(fc.layout, fc.chain, fc.options.Pipeline)
	if err != nil {
		return errors.Wrap(err, "failed to create graphics pipeline")
	}
	fc.pipeline = pipeline

	return fc.allocateCommandBuffers()
}

func (fc *FrameCoordinator) State() FrameState {
	return fc.state
}

// Run draws frames until the surface asks to close, then shuts down. The
// returned error is the fatal condition that stopped the loop, if any.
func (fc *FrameCoordinator) Run() error {
	for !fc.surface.ShouldClose() {
		fc.surface.PollEvents()

		if err := fc.reloadShaders(); err != nil {
			return fc.abort(err)
		}
		if err := fc.DrawFrame(); err != nil {
			return fc.abort(err)
		}
	}
	core.LogInfo("Surface requested close after %d frames.", fc.frameNumber)
	return fc.Shutdown()
}

func (fc *FrameCoordinator) abort(err error) error {
	core.LogError("frame loop aborted: %s", err)
	if serr := fc.Shutdown(); serr != nil {
		return errors.CombineErrors(err, serr)
	}
	return err
}

// DrawFrame runs one acquire, record, submit cycle. Stale and suboptimal chains
// are rebuilt before returning; every other failure is returned.
func (fc *FrameCoordinator) DrawFrame() error {
	switch fc.state {
	case StateReady:
	case StateRecreating:
		// A previous recreation was interrupted by a close request or a degenerate surface.
		return fc.recreate()
	default:
		return errors.Newf("cannot draw a frame in state %s", fc.state)
	}

	imageIndex, status, err := fc.chain.AcquireNext()
	switch status {
	case metadata.ChainStale:
		core.LogDebug("Swapchain %s is out of date on acquire, recreating.", fc.chain.ID())
		return fc.recreate()
	case metadata.ChainFatal:
		return errors.Wrap(orUnknown(err), "failed to acquire swapchain image")
	}
	if err != nil {
		return errors.Wrap(err, "failed to acquire swapchain image")
	}
	if int(imageIndex) >= len(fc.commandBuffers) {
		return errors.Newf("acquired image %d but only %d command buffers exist", imageIndex, len(fc.commandBuffers))
	}
	needsRecreate := status == metadata.ChainSuboptimal

	commandBuffer := fc.commandBuffers[imageIndex]
	if err := fc.record(commandBuffer, imageIndex); err != nil {
		return err
	}

	status, err = fc.chain.Submit(commandBuffer, imageIndex)
	if status == metadata.ChainFatal {
		return errors.Wrap(orUnknown(err), "failed to submit command buffer")
	}
	if err != nil {
		return errors.Wrap(err, "failed to submit command buffer")
	}
	fc.frameNumber++
	fc.updateMetrics()

	if status == metadata.ChainStale || status == metadata.ChainSuboptimal || fc.surface.WasResized() {
		needsRecreate = true
	}
	if needsRecreate {
		fc.surface.ResetResizedFlag()
		core.LogDebug("Swapchain %s is %s after present, recreating.", fc.chain.ID(), status)
		return fc.recreate()
	}
	return nil
}

func (fc *FrameCoordinator) record(commandBuffer metadata.CommandBuffer, imageIndex uint32) error {
	if err := commandBuffer.Begin(); err != nil {
		return errors.Wrapf(err, "failed to begin recording command buffer %d", imageIndex)
	}

	fc.chain.BeginRenderPass(commandBuffer, imageIndex, fc.options.Clear)

	extent := fc.chain.Extent()
	commandBuffer.SetViewport(extent)
	commandBuffer.SetScissor(extent)

	fc.pipeline.Bind(commandBuffer)
	fc.geometry.Bind(commandBuffer)

	for i := 0; i < fc.options.InstanceCount; i++ {
		push := InstancePushConstants(i)
		fc.layout.PushConstants(commandBuffer, &push)
		fc.geometry.Draw(commandBuffer)
	}

	fc.chain.EndRenderPass(commandBuffer)

	if err := commandBuffer.End(); err != nil {
		return errors.Wrapf(err, "failed to record command buffer %d", imageIndex)
	}
	return nil
}

// recreate replaces the chain with one matching the current surface extent.
func (fc *FrameCoordinator) recreate() error {
	fc.state = StateRecreating

	extent, ok := fc.waitForExtent()
	if !ok {
		// Closing while minimized: Run notices and shuts down.
		core.LogDebug("Surface closed while waiting for a drawable size.")
		return nil
	}

	if err := fc.device.WaitIdle(); err != nil {
		return errors.Wrap(err, "failed to wait for device before swapchain recreation")
	}

	old := fc.chain
	chain, err := fc.device.CreateChain(extent, old)
	if errors.Is(err, core.ErrDegenerateExtent) {
		// The surface shrank to nothing after the extent was read. Stay in
		// Recreating; the next frame waits for a drawable size again.
		core.LogDebug("Surface became degenerate while recreating %s, waiting.", old.ID())
		fc.surface.WaitEvents()
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "failed to recreate swapchain at %s", extent)
	}
	previousTarget := old.RenderTarget()
	fc.chain = chain
	if err := old.Destroy(); err != nil {
		return errors.Wrapf(err, "failed to destroy swapchain %s", old.ID())
	}

	if uint32(len(fc.commandBuffers)) != chain.ImageCount() {
		core.LogDebug("Image count changed from %d to %d, reallocating command buffers.", len(fc.commandBuffers), chain.ImageCount())
		fc.device.FreeCommandBuffers(fc.commandBuffers)
		fc.commandBuffers = nil
		if err := fc.allocateCommandBuffers(); err != nil {
			return err
		}
	}

	if err := fc.rebuildPipeline(previousTarget); err != nil {
		return err
	}

	fc.state = StateReady
	core.LogInfo("Swapchain %s recreated from %s at %s with %d images.", chain.ID(), old.ID(), extent, chain.ImageCount())
	return nil
}

func (fc *FrameCoordinator) rebuildPipeline(previousTarget metadata.RenderTargetDescription) error {
	if fc.options.ReuseCompatiblePipeline && fc.pipeline != nil && previousTarget == fc.chain.RenderTarget() {
		core.LogDebug("Render target unchanged, keeping the current pipeline.")
		return nil
	}

	pipeline, err := fc.device.CreatePipeline(fc.layout, fc.chain, fc.options.Pipeline)
	if err != nil {
		return errors.Wrap(err, "failed to rebuild graphics pipeline")
	}
	if fc.pipeline != nil {
		if err := fc.pipeline.Destroy(); err != nil {
			core.LogWarn("failed to destroy previous pipeline: %s", err)
		}
	}
	fc.pipeline = pipeline
	return nil
}

// reloadShaders rebuilds the pipeline if the shader binaries changed. A pipeline
// that fails to build is reported and the running one is kept.
func (fc *FrameCoordinator) reloadShaders() error {
	if fc.options.ShaderChanges == nil || fc.state != StateReady {
		return nil
	}
	select {
	case <-fc.options.ShaderChanges:
	default:
		return nil
	}
	// Coalesce bursts of writes into one rebuild.
	for drained := false; !drained; {
		select {
		case <-fc.options.ShaderChanges:
		default:
			drained = true
		}
	}

	if err := fc.device.WaitIdle(); err != nil {
		return errors.Wrap(err, "failed to wait for device before shader reload")
	}
	pipeline, err := fc.device.CreatePipeline(fc.layout, fc.chain, fc.options.Pipeline)
	if err != nil {
		core.LogWarn("shader reload failed, keeping the current pipeline: %s", err)
		return nil
	}
	if err := fc.pipeline.Destroy(); err != nil {
		core.LogWarn("failed to destroy previous pipeline: %s", err)
	}
	fc.pipeline = pipeline
	core.LogInfo("Shaders reloaded.")
	return nil
}

// waitForExtent blocks on surface events until the extent is usable. It reports
// false if the surface asked to close in the meantime.
func (fc *FrameCoordinator) waitForExtent() (metadata.Extent, bool) {
	extent := fc.surface.CurrentExtent()
	for extent.IsDegenerate() {
		if fc.surface.ShouldClose() {
			return extent, false
		}
		fc.surface.WaitEvents()
		extent = fc.surface.CurrentExtent()
	}
	return extent, true
}

func (fc *FrameCoordinator) allocateCommandBuffers() error {
	buffers, err := fc.device.AllocateCommandBuffers(fc.chain.ImageCount())
	if err != nil {
		return errors.Wrap(err, "failed to allocate command buffers")
	}
	fc.commandBuffers = buffers
	return nil
}

func (fc *FrameCoordinator) updateMetrics() {
	fc.clock.Update()
	now := fc.clock.Elapsed()
	if fc.metrics.Update(now - fc.lastTime) {
		fps, ms := fc.metrics.Frame()
		core.LogDebug("%.0f fps, %.3f ms/frame", fps, ms)
	}
	fc.lastTime = now
}

// Shutdown waits for the device to go idle and releases everything in reverse
// order of creation. Calling it more than once is a no-op.
func (fc *FrameCoordinator) Shutdown() error {
	if fc.state == StateShutdown {
		return nil
	}
	fc.state = StateShuttingDown
	err := fc.release()
	fc.state = StateShutdown
	core.LogInfo("Frame coordinator shut down.")
	return err
}

func (fc *FrameCoordinator) release() error {
	var errs error
	if fc.layout != nil || fc.chain != nil {
		if err := fc.device.WaitIdle(); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrap(err, "failed to wait for device on shutdown"))
		}
	}
	if fc.commandBuffers != nil {
		fc.device.FreeCommandBuffers(fc.commandBuffers)
		fc.commandBuffers = nil
	}
	if fc.pipeline != nil {
		errs = errors.CombineErrors(errs, fc.pipeline.Destroy())
		fc.pipeline = nil
	}
	if fc.chain != nil {
		errs = errors.CombineErrors(errs, fc.chain.Destroy())
		fc.chain = nil
	}
	if fc.layout != nil {
		errs = errors.CombineErrors(errs, fc.layout.Destroy())
		fc.layout = nil
	}
	return errs
}

func orUnknown(err error) error {
	if err == nil {
		return core.ErrUnknown
	}
	return err
}
