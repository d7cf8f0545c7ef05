package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// NewContext loads the Vulkan loader, creates the instance, the optional
// validation callback, the window surface and the logical device.
func NewContext(source SurfaceSource, config VulkanConfig) (*VulkanContext, error) {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		err := errors.New("GetInstanceProcAddress is nil")
		core.LogError(err.Error())
		return nil, err
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return nil, errors.Wrap(err, "failed to initialize the Vulkan loader")
	}

	if config.FramesInFlight == 0 {
		config.FramesInFlight = 2
	}

	context := &VulkanContext{
		// TODO: custom allocator.
		Allocator: nil,
		Device:    &VulkanDevice{},
		config:    config,
		lockPool:  NewVulkanLockPool(),
	}

	if err := context.createInstance(source); err != nil {
		context.Destroy()
		return nil, err
	}

	if config.Validation {
		if err := context.createDebugger(); err != nil {
			context.Destroy()
			return nil, err
		}
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := source.CreateWindowSurface(context.Instance)
	if err != nil {
		context.Destroy()
		return nil, errors.Wrap(err, "failed to create platform surface")
	}
	context.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	if err := DeviceCreate(context); err != nil {
		context.Destroy()
		return nil, err
	}
	context.lockPool.SetQueueFamily(uint32(context.Device.GraphicsQueueIndex))
	context.lockPool.SetQueueFamily(uint32(context.Device.PresentQueueIndex))

	core.LogInfo("Vulkan context initialized successfully.")
	return context, nil
}

func (vc *VulkanContext) createInstance(source SurfaceSource) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(vc.config.ApplicationName),
		PEngineName:        VulkanSafeString("Prism"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// The window system reports the surface extensions it needs, VK_KHR_surface included.
	requiredExtensions := append([]string{}, source.RequiredInstanceExtensions()...)

	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	validationLayers := []string{}
	if vc.config.Validation {
		if vc.validationLayerAvailable() {
			validationLayers = append(validationLayers, validationLayerName)
			requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		} else {
			core.LogWarn("Validation requested but %s is not installed, continuing without it.", validationLayerName)
			vc.config.Validation = false
		}
	}

	core.LogDebug("Required extensions:")
	for _, name := range requiredExtensions {
		core.LogDebug(name)
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(validationLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(validationLayers)

	if res := vk.CreateInstance(&createInfo, vc.Allocator, &vc.Instance); res != vk.Success {
		err := errors.Wrap(VulkanError(res, "vkCreateInstance"), "failed in creating the Vulkan Instance")
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(vc.Instance); err != nil {
		core.LogError(err.Error())
		return errors.Wrap(err, "failed to load instance functions")
	}

	core.LogInfo("Vulkan Instance created.")
	return nil
}

func (vc *VulkanContext) validationLayerAvailable() bool {
	core.LogInfo("Validation layers enabled. Enumerating...")

	var availableLayerCount uint32
	if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil); res != vk.Success {
		return false
	}
	availableLayers := make([]vk.LayerProperties, availableLayerCount)
	if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers); res != vk.Success {
		return false
	}

	core.LogDebug("Searching for layer: %s...", validationLayerName)
	for i := range availableLayers {
		availableLayers[i].Deref()
		name := fixedString(availableLayers[i].LayerName[:])
		core.LogDebug("Available Layer: `%s`", name)
		if name == validationLayerName {
			core.LogInfo("Found.")
			return true
		}
	}
	return false
}

func (vc *VulkanContext) createDebugger() error {
	core.LogDebug("Creating Vulkan debugger...")
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
		PNext:       nil,
	}

	var dbg vk.DebugReportCallback
	if err := vk.Error(vk.CreateDebugReportCallback(vc.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
		core.LogError("vk.CreateDebugReportCallback failed with %s", err)
		return errors.Wrap(err, "failed to create the debug report callback")
	}
	vc.debugMessenger = dbg

	core.LogDebug("Vulkan debugger created.")
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogDebug("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
