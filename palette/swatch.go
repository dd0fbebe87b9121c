package palette

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/tsawler/pdfrecolor/recolor"
)

const (
	swatchPad    = 8
	swatchBox    = 32
	swatchRow    = swatchBox + swatchPad
	swatchLabelW = 7 * 8 // seven glyphs of basicfont.Face7x13 plus a gap
	swatchArrowW = 3 * 7
	swatchWidth  = swatchPad + 2*(swatchBox+swatchPad+swatchLabelW) + swatchArrowW + swatchPad
)

// Swatch renders one row per rule: the target color and its hex code, an
// arrow, then the replacement color and its hex code, on a white
// background.
func Swatch(rules recolor.Rules) image.Image {
	height := swatchPad + len(rules)*swatchRow
	img := image.NewRGBA(image.Rect(0, 0, swatchWidth, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	d := &font.Drawer{Dst: img, Src: image.Black, Face: basicfont.Face7x13}

	for i, r := range rules {
		y := swatchPad + i*swatchRow
		x := swatchPad

		x = drawEntry(img, d, r.Target, x, y)
		drawLabel(d, "->", x, y)
		x += swatchArrowW
		drawEntry(img, d, r.Replacement, x, y)
	}
	return img
}

func drawEntry(img *image.RGBA, d *font.Drawer, c recolor.Color, x, y int) int {
	box := image.Rect(x, y, x+swatchBox, y+swatchBox)
	draw.Draw(img, box, image.NewUniform(rgba(c)), image.Point{}, draw.Src)
	outline(img, box)
	x += swatchBox + swatchPad
	drawLabel(d, c.Hex(), x, y)
	return x + swatchLabelW
}

func drawLabel(d *font.Drawer, s string, x, y int) {
	// Baseline roughly centered on the box.
	d.Dot = fixed.P(x, y+swatchBox/2+basicfont.Face7x13.Ascent/2)
	d.DrawString(s)
}

func outline(img *image.RGBA, r image.Rectangle) {
	gray := color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
	for x := r.Min.X; x < r.Max.X; x++ {
		img.SetRGBA(x, r.Min.Y, gray)
		img.SetRGBA(x, r.Max.Y-1, gray)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.SetRGBA(r.Min.X, y, gray)
		img.SetRGBA(r.Max.X-1, y, gray)
	}
}

func rgba(c recolor.Color) color.RGBA {
	r, g, b := c.RGB8()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
