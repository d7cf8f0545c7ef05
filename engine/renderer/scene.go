package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

const DefaultInstanceCount = 4

// Every instance is the same model shifted down the y axis and tinted a brighter blue.
const (
	instanceOffsetBase float32 = -0.4
	instanceOffsetStep float32 = 0.25
	instanceBlueBase   float32 = 0.2
	instanceBlueStep   float32 = 0.2
)

// InstancePushConstants returns the push constants of instance i. It depends on i only.
func InstancePushConstants(i int) metadata.PushConstantData {
	return metadata.PushConstantData{
		Offset: mgl32.Vec2{0.0, instanceOffsetBase + instanceOffsetStep*float32(i)},
		Colour: mgl32.Vec3{0.0, 0.0, instanceBlueBase + instanceBlueStep*float32(i)},
	}
}
