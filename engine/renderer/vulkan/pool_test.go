package vulkan

import (
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestSafeCallSerializesGroup(t *testing.T) {
	pool := NewVulkanLockPool()

	var inside, maxInside int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.SafeCall(MemoryManagement, func() error {
				mu.Lock()
				inside++
				if inside > maxInside {
					maxInside = inside
				}
				mu.Unlock()

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	if maxInside != 1 {
		t.Fatalf("%d calls ran concurrently in one group", maxInside)
	}
}

func TestSafeCallReturnsError(t *testing.T) {
	pool := NewVulkanLockPool()
	sentinel := errors.New("boom")
	if err := pool.SafeCall(PipelineManagement, func() error { return sentinel }); !errors.Is(err, sentinel) {
		t.Fatalf("SafeCall() = %v, want %v", err, sentinel)
	}
}

func TestSafeQueueCallAllowsOtherQueues(t *testing.T) {
	pool := NewVulkanLockPool()
	pool.SetQueueFamily(0)
	pool.SetQueueFamily(1)

	// A call on queue 1 made while queue 0 is held must not block.
	done := make(chan struct{})
	err := pool.SafeQueueCall(0, func() error {
		go func() {
			_ = pool.SafeQueueCall(1, func() error { return nil })
			close(done)
		}()
		<-done
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSafeCallGroupsAreIndependent(t *testing.T) {
	pool := NewVulkanLockPool()
	err := pool.SafeCall(SwapchainManagement, func() error {
		return pool.SafeCall(DeviceManagement, func() error { return nil })
	})
	if err != nil {
		t.Fatal(err)
	}
}
