package renderer

import (
	"math"
	"testing"
)

func TestInstancePushConstants(t *testing.T) {
	wantY := []float64{-0.4, -0.15, 0.1, 0.35}
	wantBlue := []float64{0.2, 0.4, 0.6, 0.8}

	for i := 0; i < DefaultInstanceCount; i++ {
		p := InstancePushConstants(i)
		if p.Offset[0] != 0 {
			t.Errorf("instance %d: x offset = %v, want 0", i, p.Offset[0])
		}
		if math.Abs(float64(p.Offset[1])-wantY[i]) > 1e-6 {
			t.Errorf("instance %d: y offset = %v, want %v", i, p.Offset[1], wantY[i])
		}
		if p.Colour[0] != 0 || p.Colour[1] != 0 {
			t.Errorf("instance %d: colour = %v, want only blue", i, p.Colour)
		}
		if math.Abs(float64(p.Colour[2])-wantBlue[i]) > 1e-6 {
			t.Errorf("instance %d: blue = %v, want %v", i, p.Colour[2], wantBlue[i])
		}
	}
}

func TestInstancePushConstantsDeterministic(t *testing.T) {
	for i := 0; i < 16; i++ {
		if InstancePushConstants(i) != InstancePushConstants(i) {
			t.Fatalf("instance %d differs between calls", i)
		}
	}
}
