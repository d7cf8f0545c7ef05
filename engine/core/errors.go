package core

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrSwapchainBooting         = errors.New("swapchain resized or recreated, booting")
	ErrDegenerateExtent         = errors.New("surface extent is degenerate")
	ErrImageAlreadyAcquired     = errors.New("swapchain image acquired twice without a submission")
	ErrIncompatibleRenderTarget = errors.New("pipeline configuration is incompatible with the render target")
	ErrShaderLoad               = errors.New("unable to load shader module")
	ErrInvalidGeometry          = errors.New("invalid geometry")
	ErrInvalidConfig            = errors.New("invalid configuration")
	ErrUnknown                  = errors.New("unknown")
)
