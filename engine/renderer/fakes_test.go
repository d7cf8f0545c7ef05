package renderer

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

var errDeviceLost = errors.New("device lost")

var defaultTarget = metadata.RenderTargetDescription{ColourFormat: 50, DepthFormat: 126, Samples: 1}

type fakeSurface struct {
	extent  metadata.Extent
	resized bool

	// ShouldClose reports true once PollEvents has been called this many times.
	closeAfterPolls int
	polls           int
	waits           int

	onPoll func(s *fakeSurface)
	onWait func(s *fakeSurface)
}

func (s *fakeSurface) CurrentExtent() metadata.Extent { return s.extent }
func (s *fakeSurface) ShouldClose() bool              { return s.polls >= s.closeAfterPolls }
func (s *fakeSurface) WasResized() bool               { return s.resized }
func (s *fakeSurface) ResetResizedFlag()              { s.resized = false }

func (s *fakeSurface) PollEvents() {
	s.polls++
	if s.onPoll != nil {
		s.onPoll(s)
	}
}

func (s *fakeSurface) WaitEvents() {
	s.waits++
	if s.onWait != nil {
		s.onWait(s)
	}
	if s.waits > 1000 {
		panic("WaitEvents called too many times")
	}
}

type fakeCommandBuffer struct {
	id       int
	recorded bool
	ended    bool
	freed    bool
	beginErr error
	endErr   error

	viewport metadata.Extent
	scissor  metadata.Extent
	pipeline *fakePipeline
	geometry bool
	inPass   bool
	pushes   []metadata.PushConstantData
	draws    int
}

func (c *fakeCommandBuffer) Begin() error {
	if c.beginErr != nil {
		return c.beginErr
	}
	c.recorded = true
	c.ended = false
	c.pipeline = nil
	c.geometry = false
	c.pushes = nil
	c.draws = 0
	return nil
}

func (c *fakeCommandBuffer) End() error {
	if c.endErr != nil {
		return c.endErr
	}
	c.ended = true
	return nil
}

func (c *fakeCommandBuffer) SetViewport(extent metadata.Extent) { c.viewport = extent }
func (c *fakeCommandBuffer) SetScissor(extent metadata.Extent)  { c.scissor = extent }

type fakeLayout struct {
	dev       *fakeDevice
	destroyed bool
}

func (l *fakeLayout) PushConstants(cb metadata.CommandBuffer, data *metadata.PushConstantData) {
	c := cb.(*fakeCommandBuffer)
	c.pushes = append(c.pushes, *data)
}

func (l *fakeLayout) Destroy() error {
	l.destroyed = true
	l.dev.record("destroy-layout")
	return nil
}

type fakePipeline struct {
	dev       *fakeDevice
	target    metadata.RenderTargetDescription
	destroyed bool
}

func (p *fakePipeline) Bind(cb metadata.CommandBuffer) { cb.(*fakeCommandBuffer).pipeline = p }

func (p *fakePipeline) Destroy() error {
	p.destroyed = true
	p.dev.record("destroy-pipeline")
	return nil
}

type fakeGeometry struct{}

func (fakeGeometry) Bind(cb metadata.CommandBuffer) { cb.(*fakeCommandBuffer).geometry = true }
func (fakeGeometry) Draw(cb metadata.CommandBuffer) { cb.(*fakeCommandBuffer).draws++ }
func (fakeGeometry) VertexCount() uint32            { return 3 }

type fakeChain struct {
	dev        *fakeDevice
	index      int
	extent     metadata.Extent
	imageCount uint32
	target     metadata.RenderTargetDescription
	previous   metadata.PresentationChain

	// Statuses returned by successive calls; Ready once exhausted.
	acquireScript []metadata.ChainStatus
	submitScript  []metadata.ChainStatus

	next      uint32
	acquired  map[uint32]bool
	acquires  int
	submits   int
	destroyed bool

	// Viewport of every submitted command buffer.
	submittedViewports []metadata.Extent
}

func (c *fakeChain) ID() string { return fmt.Sprintf("chain-%d", c.index) }

func pop(script *[]metadata.ChainStatus) metadata.ChainStatus {
	if len(*script) == 0 {
		return metadata.ChainReady
	}
	s := (*script)[0]
	*script = (*script)[1:]
	return s
}

func (c *fakeChain) AcquireNext() (uint32, metadata.ChainStatus, error) {
	if c.destroyed {
		c.dev.violations = append(c.dev.violations, "acquire on destroyed chain")
	}
	c.acquires++
	status := pop(&c.acquireScript)
	switch status {
	case metadata.ChainStale:
		return 0, status, nil
	case metadata.ChainFatal:
		return 0, status, errDeviceLost
	}
	idx := c.next
	c.next = (c.next + 1) % c.imageCount
	if c.acquired[idx] {
		c.dev.violations = append(c.dev.violations, fmt.Sprintf("image %d acquired twice", idx))
	}
	c.acquired[idx] = true
	return idx, status, nil
}

func (c *fakeChain) Submit(cb metadata.CommandBuffer, imageIndex uint32) (metadata.ChainStatus, error) {
	fb := cb.(*fakeCommandBuffer)
	if !c.acquired[imageIndex] {
		c.dev.violations = append(c.dev.violations, fmt.Sprintf("image %d submitted without acquire", imageIndex))
	}
	if !fb.ended || fb.inPass {
		c.dev.violations = append(c.dev.violations, "submitted an unfinished command buffer")
	}
	if fb.freed {
		c.dev.violations = append(c.dev.violations, "submitted a freed command buffer")
	}
	delete(c.acquired, imageIndex)
	c.submits++
	c.dev.draws += fb.draws
	c.submittedViewports = append(c.submittedViewports, fb.viewport)

	status := pop(&c.submitScript)
	if status == metadata.ChainFatal {
		return status, errDeviceLost
	}
	return status, nil
}

func (c *fakeChain) BeginRenderPass(cb metadata.CommandBuffer, imageIndex uint32, clear metadata.ClearValues) {
	fb := cb.(*fakeCommandBuffer)
	fb.inPass = true
	c.dev.lastClear = clear
}

func (c *fakeChain) EndRenderPass(cb metadata.CommandBuffer) { cb.(*fakeCommandBuffer).inPass = false }

func (c *fakeChain) ImageCount() uint32 { return c.imageCount }

func (c *fakeChain) Extent() metadata.Extent { return c.extent }

func (c *fakeChain) RenderTarget() metadata.RenderTargetDescription { return c.target }

func (c *fakeChain) Destroy() error {
	c.destroyed = true
	c.dev.record("destroy-chain")
	return nil
}

type fakeDevice struct {
	events     []string
	violations []string

	// Returns the image count for a chain built at extent; 3 when nil.
	imageCountFor func(extent metadata.Extent) uint32
	// Called on every new chain before it is returned.
	configure func(c *fakeChain)

	layouts     []*fakeLayout
	chains      []*fakeChain
	pipelines   []*fakePipeline
	allocations []uint32
	buffers     []*fakeCommandBuffer
	frees       int
	waitIdles   int
	draws       int
	lastClear   metadata.ClearValues

	pipelineErr error
	chainErr    error
	waitIdleErr error
	beginErr    error
}

func (d *fakeDevice) record(event string) { d.events = append(d.events, event) }

func (d *fakeDevice) WaitIdle() error {
	d.waitIdles++
	d.record("wait-idle")
	return d.waitIdleErr
}

func (d *fakeDevice) CreatePipelineLayout() (metadata.PipelineLayout, error) {
	l := &fakeLayout{dev: d}
	d.layouts = append(d.layouts, l)
	d.record("create-layout")
	return l, nil
}

func (d *fakeDevice) CreateChain(extent metadata.Extent, previous metadata.PresentationChain) (metadata.PresentationChain, error) {
	if extent.IsDegenerate() {
		d.violations = append(d.violations, "chain built with degenerate extent "+extent.String())
	}
	if previous != nil && previous.(*fakeChain).destroyed {
		d.violations = append(d.violations, "previous chain destroyed before its replacement was built")
	}
	if d.chainErr != nil {
		return nil, d.chainErr
	}
	count := uint32(3)
	if d.imageCountFor != nil {
		count = d.imageCountFor(extent)
	}
	c := &fakeChain{
		dev:        d,
		index:      len(d.chains),
		extent:     extent,
		imageCount: count,
		target:     defaultTarget,
		previous:   previous,
		acquired:   map[uint32]bool{},
	}
	if d.configure != nil {
		d.configure(c)
	}
	d.chains = append(d.chains, c)
	d.record("create-chain")
	return c, nil
}

func (d *fakeDevice) CreatePipeline(layout metadata.PipelineLayout, chain metadata.PresentationChain, config metadata.PipelineConfig) (metadata.Pipeline, error) {
	if d.pipelineErr != nil {
		return nil, d.pipelineErr
	}
	if err := config.Validate(chain.RenderTarget()); err != nil {
		return nil, err
	}
	p := &fakePipeline{dev: d, target: chain.RenderTarget()}
	d.pipelines = append(d.pipelines, p)
	d.record("create-pipeline")
	return p, nil
}

func (d *fakeDevice) AllocateCommandBuffers(count uint32) ([]metadata.CommandBuffer, error) {
	d.allocations = append(d.allocations, count)
	out := make([]metadata.CommandBuffer, count)
	for i := range out {
		b := &fakeCommandBuffer{id: len(d.buffers), beginErr: d.beginErr}
		d.buffers = append(d.buffers, b)
		out[i] = b
	}
	d.record("allocate-buffers")
	return out, nil
}

func (d *fakeDevice) FreeCommandBuffers(buffers []metadata.CommandBuffer) {
	for _, b := range buffers {
		b.(*fakeCommandBuffer).freed = true
	}
	d.frees++
	d.record("free-buffers")
}

func (d *fakeDevice) lastChain() *fakeChain {
	return d.chains[len(d.chains)-1]
}

func testOptions() FrameOptions {
	return FrameOptions{
		Pipeline: metadata.DefaultPipelineConfig("shaders/simple_shader.vert.spv", "shaders/simple_shader.frag.spv"),
		Clear: metadata.ClearValues{
			Colour: [4]float32{0.1, 0.1, 0.1, 1.0},
			Depth:  1.0,
		},
		InstanceCount: DefaultInstanceCount,
	}
}
