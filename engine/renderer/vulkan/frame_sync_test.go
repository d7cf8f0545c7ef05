package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/prism/engine/core"
)

// fakeFence is pending while its submission runs; Wait completes it.
type fakeFence struct {
	pending bool
	waits   int
	err     error
}

func (f *fakeFence) Wait() error {
	f.waits++
	if f.err != nil {
		return f.err
	}
	f.pending = false
	return nil
}

func TestImageTrackerWaitsForPendingImage(t *testing.T) {
	tracker := newImageTracker(3)
	frameA, frameB := &fakeFence{}, &fakeFence{}

	if err := tracker.acquire(1, frameA); err != nil {
		t.Fatal(err)
	}
	if err := tracker.submitted(1, frameA); err != nil {
		t.Fatal(err)
	}
	frameA.pending = true
	tracker.presented(1)

	// The next frame slot gets image 1 back while frame A still renders into it.
	if err := tracker.acquire(1, frameB); err != nil {
		t.Fatal(err)
	}
	if frameA.waits != 1 || frameA.pending {
		t.Fatalf("image 1 handed out with frame A pending (waits = %d)", frameA.waits)
	}
	if frameB.waits != 0 {
		t.Fatalf("frame B waited %d times on itself", frameB.waits)
	}
}

func TestImageTrackerSkipsOwnFrameFence(t *testing.T) {
	tracker := newImageTracker(2)
	frame := &fakeFence{}

	for i := 0; i < 2; i++ {
		if err := tracker.acquire(0, frame); err != nil {
			t.Fatal(err)
		}
		if err := tracker.submitted(0, frame); err != nil {
			t.Fatal(err)
		}
		tracker.presented(0)
	}
	if frame.waits != 0 {
		t.Fatalf("waits = %d, the frame fence is waited on before acquiring", frame.waits)
	}
}

func TestImageTrackerFreshImageDoesNotWait(t *testing.T) {
	tracker := newImageTracker(3)
	frame := &fakeFence{pending: true}
	if err := tracker.acquire(2, frame); err != nil {
		t.Fatal(err)
	}
	if frame.waits != 0 {
		t.Fatalf("waits = %d for an image never rendered into", frame.waits)
	}
}

func TestImageTrackerRejectsDoubleAcquire(t *testing.T) {
	tracker := newImageTracker(3)
	frameA, frameB := &fakeFence{}, &fakeFence{}

	if err := tracker.acquire(2, frameA); err != nil {
		t.Fatal(err)
	}
	err := tracker.acquire(2, frameB)
	if !errors.Is(err, core.ErrImageAlreadyAcquired) {
		t.Fatalf("err = %v, want %v", err, core.ErrImageAlreadyAcquired)
	}

	if err := tracker.submitted(2, frameA); err != nil {
		t.Fatal(err)
	}
	tracker.presented(2)
	if err := tracker.acquire(2, frameB); err != nil {
		t.Fatalf("acquire after present: %v", err)
	}
}

func TestImageTrackerRequiresAcquire(t *testing.T) {
	tracker := newImageTracker(2)
	frame := &fakeFence{}

	if err := tracker.submitted(0, frame); err == nil {
		t.Fatal("submitted an image that was never acquired")
	}
	if err := tracker.acquire(2, frame); err == nil {
		t.Fatal("acquired an image out of range")
	}
	if err := tracker.submitted(5, frame); err == nil {
		t.Fatal("submitted an image out of range")
	}
}

func TestImageTrackerWaitFailure(t *testing.T) {
	errLost := errors.New("device lost")
	tracker := newImageTracker(2)
	frameA, frameB := &fakeFence{}, &fakeFence{}

	if err := tracker.acquire(0, frameA); err != nil {
		t.Fatal(err)
	}
	if err := tracker.submitted(0, frameA); err != nil {
		t.Fatal(err)
	}
	tracker.presented(0)

	frameA.err = errLost
	if err := tracker.acquire(0, frameB); !errors.Is(err, errLost) {
		t.Fatalf("err = %v, want %v", err, errLost)
	}
	if tracker.acquired[0] {
		t.Fatal("image marked acquired after a failed wait")
	}
}

// Frames cycle through two fence slots while the driver hands out three images
// in an uneven order. No image is ever handed out while the frame that last
// rendered into it is still pending.
func TestImageTrackerNeverReusesPendingImage(t *testing.T) {
	const frames = 2
	tracker := newImageTracker(3)
	slots := []*fakeFence{{}, {}}
	lastFence := map[uint32]*fakeFence{}
	order := []uint32{0, 1, 2, 0, 0, 2, 1, 1, 0, 2, 2, 1}

	for n, image := range order {
		slot := slots[n%frames]
		// The swapchain waits on the slot's own fence before acquiring.
		if err := slot.Wait(); err != nil {
			t.Fatal(err)
		}
		if err := tracker.acquire(image, slot); err != nil {
			t.Fatalf("frame %d: %v", n, err)
		}
		if f := lastFence[image]; f != nil && f.pending {
			t.Fatalf("frame %d: image %d handed out while its previous frame is pending", n, image)
		}
		if err := tracker.submitted(image, slot); err != nil {
			t.Fatalf("frame %d: %v", n, err)
		}
		slot.pending = true
		lastFence[image] = slot
		tracker.presented(image)
	}
}
