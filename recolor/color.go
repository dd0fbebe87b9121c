package recolor

import (
	"fmt"
	"math"
)

// DefaultTolerance is the largest per-channel difference, exclusive, at
// which two colors still count as equal.
const DefaultTolerance = 0.005

// Color is an RGB triple with channels in [0, 1].
type Color struct {
	R, G, B float64
}

// Normalize turns raw operand values into a Color. If any value exceeds 1
// the triple is taken to be on the 0-255 scale and all three channels are
// divided by 255; otherwise the values are used unchanged.
func Normalize(r, g, b float64) Color {
	if r > 1.0 || g > 1.0 || b > 1.0 {
		return Color{R: r / 255.0, G: g / 255.0, B: b / 255.0}
	}
	return Color{R: r, G: g, B: b}
}

// Within reports whether every channel of c differs from o by strictly less
// than tol.
func (c Color) Within(o Color, tol float64) bool {
	return math.Abs(c.R-o.R) < tol &&
		math.Abs(c.G-o.G) < tol &&
		math.Abs(c.B-o.B) < tol
}

// Render formats c as a fill color command with four decimals per channel.
// The operator is always the lowercase rg, whatever the source used.
func Render(c Color) string {
	return renderOp(c, "rg")
}

func renderOp(c Color, op string) string {
	return fmt.Sprintf("%.4f %.4f %.4f %s", c.R, c.G, c.B, op)
}

// RGB8 returns the channels on the 0-255 scale, clamped and rounded.
func (c Color) RGB8() (r, g, b uint8) {
	return to8(c.R), to8(c.G), to8(c.B)
}

func to8(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

// Hex returns the color as #RRGGBB.
func (c Color) Hex() string {
	r, g, b := c.RGB8()
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

// String implements fmt.Stringer.
func (c Color) String() string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f)", c.R, c.G, c.B)
}
