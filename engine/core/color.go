package core

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/image/colornames"
)

// ParseColor accepts "#rrggbb", "#rrggbbaa" or an SVG 1.1 color name ("darkslategray")
// and returns normalized RGBA components.
func ParseColor(s string) ([4]float32, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) != 6 && len(hex) != 8 {
			return [4]float32{}, errors.Wrapf(ErrInvalidConfig, "color %q: expected 6 or 8 hex digits", s)
		}
		if len(hex) == 6 {
			hex += "ff"
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return [4]float32{}, errors.Wrapf(ErrInvalidConfig, "color %q: %v", s, err)
		}
		return [4]float32{
			float32((v>>24)&0xff) / 255.0,
			float32((v>>16)&0xff) / 255.0,
			float32((v>>8)&0xff) / 255.0,
			float32(v&0xff) / 255.0,
		}, nil
	}

	c, ok := colornames.Map[strings.ToLower(s)]
	if !ok {
		return [4]float32{}, errors.Wrapf(ErrInvalidConfig, "unknown color name %q", s)
	}
	return [4]float32{
		float32(c.R) / 255.0,
		float32(c.G) / 255.0,
		float32(c.B) / 255.0,
		float32(c.A) / 255.0,
	}, nil
}
