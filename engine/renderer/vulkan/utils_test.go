package vulkan

import (
	"strings"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

func TestVulkanErrorIsNilForSuccessCodes(t *testing.T) {
	for _, res := range []vk.Result{vk.Success, vk.Suboptimal, vk.Incomplete, vk.Timeout} {
		if err := VulkanError(res, "vkSomething"); err != nil {
			t.Errorf("VulkanError(%d) = %v, want nil", res, err)
		}
	}
}

func TestVulkanErrorNamesOperationAndCode(t *testing.T) {
	err := VulkanError(vk.ErrorDeviceLost, "vkQueueSubmit")
	if err == nil {
		t.Fatal("VulkanError(ErrorDeviceLost) = nil")
	}
	msg := err.Error()
	if !strings.Contains(msg, "vkQueueSubmit") || !strings.Contains(msg, "VK_ERROR_DEVICE_LOST") {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestVulkanResultString(t *testing.T) {
	if got := VulkanResultString(vk.ErrorOutOfDate, false); got != "VK_ERROR_OUT_OF_DATE_KHR" {
		t.Errorf("short string = %q", got)
	}
	if got := VulkanResultString(vk.Result(-123456), false); got != "VK_ERROR_UNKNOWN" {
		t.Errorf("unknown code = %q", got)
	}
	if got := VulkanResultString(vk.Success, true); !strings.HasPrefix(got, "VK_SUCCESS ") {
		t.Errorf("extended string = %q", got)
	}
}

func TestVulkanSafeStrings(t *testing.T) {
	in := []string{"VK_KHR_surface", "VK_EXT_debug_report\x00", ""}
	out := VulkanSafeStrings(in)
	want := []string{"VK_KHR_surface\x00", "VK_EXT_debug_report\x00", "\x00"}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %q, want %q", i, out[i], want[i])
		}
	}
	if in[0] != "VK_KHR_surface" {
		t.Errorf("input modified: %q", in[0])
	}
}

func TestFixedString(t *testing.T) {
	name := make([]byte, 32)
	copy(name, "llvmpipe")
	if got := fixedString(name); got != "llvmpipe" {
		t.Errorf("fixedString = %q", got)
	}
	if got := fixedString([]byte("full")); got != "full" {
		t.Errorf("fixedString without terminator = %q", got)
	}
}

func TestChainStatus(t *testing.T) {
	tests := []struct {
		result vk.Result
		want   metadata.ChainStatus
	}{
		{vk.Success, metadata.ChainReady},
		{vk.Suboptimal, metadata.ChainSuboptimal},
		{vk.ErrorOutOfDate, metadata.ChainStale},
		{vk.ErrorSurfaceLost, metadata.ChainFatal},
		{vk.ErrorDeviceLost, metadata.ChainFatal},
		{vk.Timeout, metadata.ChainFatal},
	}
	for _, tt := range tests {
		if got := chainStatus(tt.result); got != tt.want {
			t.Errorf("chainStatus(%s) = %s, want %s", VulkanResultString(tt.result, false), got, tt.want)
		}
	}
}

func TestChainErrorMatchesChainStatus(t *testing.T) {
	for _, res := range []vk.Result{vk.Success, vk.Suboptimal, vk.ErrorOutOfDate} {
		if err := chainError(res, "vkQueuePresentKHR"); err != nil {
			t.Errorf("chainError(%s) = %v, want nil", VulkanResultString(res, false), err)
		}
	}
	// VK_NOT_READY and VK_TIMEOUT are not errors to VulkanError but are fatal for a chain.
	for _, res := range []vk.Result{vk.NotReady, vk.Timeout, vk.ErrorSurfaceLost, vk.ErrorDeviceLost} {
		err := chainError(res, "vkQueuePresentKHR")
		if err == nil {
			t.Fatalf("chainError(%s) = nil", VulkanResultString(res, false))
		}
		if !strings.Contains(err.Error(), "vkQueuePresentKHR") || !strings.Contains(err.Error(), VulkanResultString(res, false)) {
			t.Errorf("chainError(%s) = %q", VulkanResultString(res, false), err)
		}
	}
}

func TestFenceWaitError(t *testing.T) {
	if err := fenceWaitError(vk.Success, 10); err != nil {
		t.Fatalf("fenceWaitError(VK_SUCCESS) = %v", err)
	}
	if err := fenceWaitError(vk.Timeout, 10); err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("fenceWaitError(VK_TIMEOUT) = %v", err)
	}
	for _, res := range []vk.Result{vk.NotReady, vk.Incomplete, vk.ErrorDeviceLost} {
		if err := fenceWaitError(res, 10); err == nil {
			t.Errorf("fenceWaitError(%s) = nil, the fence would be reported signaled", VulkanResultString(res, false))
		}
	}
}

func TestChoosePresentMode(t *testing.T) {
	available := []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}

	if got := choosePresentMode(available, "mailbox"); got != vk.PresentModeMailbox {
		t.Errorf("mailbox: got %d", got)
	}
	if got := choosePresentMode(available, "immediate"); got != vk.PresentModeFifo {
		t.Errorf("unsupported mode should fall back to fifo, got %d", got)
	}
	if got := choosePresentMode(available, "bogus"); got != vk.PresentModeFifo {
		t.Errorf("unknown name should fall back to fifo, got %d", got)
	}
}

func TestChooseSurfaceFormat(t *testing.T) {
	unorm := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	srgb := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	if got := chooseSurfaceFormat([]vk.SurfaceFormat{unorm, srgb}); got.Format != vk.FormatB8g8r8a8Srgb {
		t.Errorf("preferred format not chosen: %d", got.Format)
	}
	if got := chooseSurfaceFormat([]vk.SurfaceFormat{unorm}); got.Format != vk.FormatB8g8r8a8Unorm {
		t.Errorf("fallback should be the first format, got %d", got.Format)
	}
}

func TestChooseExtent(t *testing.T) {
	var caps vk.SurfaceCapabilities
	caps.CurrentExtent = vk.Extent2D{Width: 1024, Height: 768}
	if got := chooseExtent(caps, metadata.Extent{Width: 10, Height: 10}); got.Width != 1024 || got.Height != 768 {
		t.Errorf("defined current extent should win, got %dx%d", got.Width, got.Height)
	}

	caps.CurrentExtent = vk.Extent2D{Width: ^uint32(0), Height: ^uint32(0)}
	caps.MinImageExtent = vk.Extent2D{Width: 64, Height: 64}
	caps.MaxImageExtent = vk.Extent2D{Width: 2048, Height: 2048}
	if got := chooseExtent(caps, metadata.Extent{Width: 4000, Height: 32}); got.Width != 2048 || got.Height != 64 {
		t.Errorf("requested extent should be clamped, got %dx%d", got.Width, got.Height)
	}
}

func TestPipelineStateMapping(t *testing.T) {
	if cullModeFlags(metadata.FaceCullModeNone) != vk.CullModeFlags(vk.CullModeNone) {
		t.Error("cull none")
	}
	if cullModeFlags(metadata.FaceCullModeBack) != vk.CullModeFlags(vk.CullModeBackBit) {
		t.Error("cull back")
	}
	if frontFace(metadata.FrontFaceClockwise) != vk.FrontFaceClockwise {
		t.Error("front face")
	}
	if primitiveTopology(metadata.PrimitiveTopologyLineList) != vk.PrimitiveTopologyLineList {
		t.Error("topology")
	}
	if sampleCount(4) != vk.SampleCount4Bit || sampleCount(3) != vk.SampleCount1Bit {
		t.Error("sample count")
	}
}
