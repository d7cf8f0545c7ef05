package vulkan

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/prism/engine/core"
)

// fenceWaiter blocks until the submission guarded by a fence has completed.
type fenceWaiter interface {
	Wait() error
}

// boundFence waits on a frame fence without a timeout.
type boundFence struct {
	context *VulkanContext
	fence   *VulkanFence
}

func (b boundFence) Wait() error {
	return b.fence.FenceWait(b.context, math.MaxUint64)
}

// imageTracker remembers, per swapchain image, the fence of the last frame that
// rendered into it and whether the image is acquired but not yet presented.
type imageTracker struct {
	inFlight []fenceWaiter
	acquired []bool
}

func newImageTracker(imageCount uint32) *imageTracker {
	return &imageTracker{
		inFlight: make([]fenceWaiter, imageCount),
		acquired: make([]bool, imageCount),
	}
}

// acquire hands image index to the frame guarded by frameFence. If an earlier
// frame is still rendering into the image, it waits for that frame first.
func (t *imageTracker) acquire(index uint32, frameFence fenceWaiter) error {
	if int(index) >= len(t.acquired) {
		return errors.Newf("image %d out of range for %d images", index, len(t.acquired))
	}
	if t.acquired[index] {
		return errors.Wrapf(core.ErrImageAlreadyAcquired, "image %d", index)
	}
	// The caller already waited on its own frame fence.
	if previous := t.inFlight[index]; previous != nil && previous != frameFence {
		if err := previous.Wait(); err != nil {
			return errors.Wrapf(err, "waiting for image %d", index)
		}
	}
	t.acquired[index] = true
	return nil
}

// submitted records that the frame guarded by frameFence now renders into index.
func (t *imageTracker) submitted(index uint32, frameFence fenceWaiter) error {
	if int(index) >= len(t.acquired) || !t.acquired[index] {
		return errors.Newf("image %d was not acquired", index)
	}
	t.inFlight[index] = frameFence
	return nil
}

func (t *imageTracker) presented(index uint32) {
	if int(index) < len(t.acquired) {
		t.acquired[index] = false
	}
}
