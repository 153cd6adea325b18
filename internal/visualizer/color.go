// SPDX-License-Identifier: MIT
package visualizer

import (
	"audiowheel/internal/settings"

	"github.com/lucasb-eyer/go-colorful"
)

// RGB is a linear color whose channels may exceed 1 when an HDR multiplier
// is applied.
type RGB struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Hex returns the color clamped to displayable range as #rrggbb.
func (c RGB) Hex() string {
	return colorful.Color{R: c.R, G: c.G, B: c.B}.Clamped().Hex()
}

// ColorTransition ping-pongs a color scheme between its primary and
// secondary color. The position moves by the scheme's speed once per tick
// and reverses direction at either end.
type ColorTransition struct {
	t       float64
	forward bool
	started bool

	// parsed colors, refreshed when the scheme's hex strings change
	primaryHex, secondaryHex string
	primary, secondary       colorful.Color
}

// Step advances the transition (when enabled) and returns the current color.
// An unparsable scheme keeps the last good colors.
func (c *ColorTransition) Step(scheme settings.ColorScheme) RGB {
	c.parse(scheme)
	if !c.started {
		c.forward = true
		c.started = true
	}

	if !scheme.Transition {
		c.t = 0
		return scale(c.primary, scheme.PrimaryHDR)
	}

	if c.forward {
		c.t += scheme.TransitionSpeed
	} else {
		c.t -= scheme.TransitionSpeed
	}
	if c.t >= 1 {
		c.t = 1
		c.forward = !c.forward
	} else if c.t <= 0 {
		c.t = 0
		c.forward = !c.forward
	}

	blended := c.primary.BlendRgb(c.secondary, c.t)
	hdr := scheme.PrimaryHDR + (scheme.SecondaryHDR-scheme.PrimaryHDR)*c.t
	return scale(blended, hdr)
}

// Position returns the blend position in [0, 1].
func (c *ColorTransition) Position() float64 { return c.t }

func (c *ColorTransition) parse(scheme settings.ColorScheme) {
	if scheme.Primary == c.primaryHex && scheme.Secondary == c.secondaryHex {
		return
	}
	p, s, err := scheme.Colors()
	if err != nil {
		return
	}
	c.primary, c.secondary = p, s
	c.primaryHex, c.secondaryHex = scheme.Primary, scheme.Secondary
}

func scale(c colorful.Color, hdr float64) RGB {
	if hdr <= 0 {
		hdr = 1
	}
	return RGB{R: c.R * hdr, G: c.G * hdr, B: c.B * hdr}
}
