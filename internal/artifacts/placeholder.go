package artifacts

import (
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	canvasBackground = color.RGBA{245, 245, 247, 255}
	errorBackground  = color.RGBA{200, 200, 200, 255}
	textColor        = color.RGBA{50, 50, 50, 255}
	errorTextColor   = color.RGBA{100, 100, 100, 255}
	badgeFill        = color.RGBA{102, 126, 234, 255}
	badgeOutline     = color.RGBA{76, 75, 162, 255}
)

const (
	lineStart   = 100
	lineStep    = 35
	maxDescRune = 200
	maxDescLine = 3
)

// RenderDescriptive draws the text-over-background visualization used when
// true image generation is unavailable.
func RenderDescriptive(width, height int, shoe, angle, description string) ([]byte, error) {
	img := newCanvas(width, height, canvasBackground)

	lines := []string{
		"AI-Generated Outfit Visualization",
		"",
		"Wearing: " + shoe,
		"View: " + strings.ToUpper(angle),
		"",
		"Outfit with Recommended Shoes",
	}
	if description != "" {
		lines = append(lines, "", "Description:")
		lines = append(lines, descriptionLines(description)...)
	}

	y := lineStart
	for _, line := range lines {
		if line != "" {
			drawLabel(img, width/2, y, line, textColor, true)
		}
		y += lineStep
	}

	drawBadge(img, width/2, y+50)

	return EncodeJPEG(img)
}

// RenderError draws the fixed error placeholder.
func RenderError(width, height int) ([]byte, error) {
	img := newCanvas(width, height, errorBackground)
	drawLabel(img, width/2, height/2, "Visualization Error", errorTextColor, false)
	return EncodeJPEG(img)
}

func descriptionLines(desc string) []string {
	runes := []rune(desc)
	if len(runes) > maxDescRune {
		runes = runes[:maxDescRune]
	}
	lines := strings.Split(string(runes), "\n")
	if len(lines) > maxDescLine {
		lines = lines[:maxDescLine]
	}
	return lines
}

func newCanvas(width, height int, bg color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	return img
}

// drawLabel centers text on (cx, cy), optionally on a white box.
func drawLabel(img *image.RGBA, cx, cy int, text string, c color.Color, boxed bool) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(c), Face: face}

	w := d.MeasureString(text).Ceil()
	h := face.Metrics().Height.Ceil()
	x := cx - w/2
	top := cy - h/2

	if boxed {
		box := image.Rect(x-5, top-2, x+w+5, top+h+2)
		draw.Draw(img, box, image.NewUniform(color.White), image.Point{}, draw.Src)
	}

	d.Dot = fixed.P(x, top+face.Metrics().Ascent.Ceil())
	d.DrawString(text)
}

func drawBadge(img *image.RGBA, cx, top int) {
	const rx, ry, border = 50, 20, 3
	cy := top + ry
	for y := cy - ry; y <= cy+ry; y++ {
		for x := cx - rx; x <= cx+rx; x++ {
			dx := float64(x-cx) / rx
			dy := float64(y-cy) / ry
			d := dx*dx + dy*dy
			if d > 1 {
				continue
			}
			ix := float64(x-cx) / (rx - border)
			iy := float64(y-cy) / (ry - border)
			if ix*ix+iy*iy > 1 {
				img.Set(x, y, badgeOutline)
			} else {
				img.Set(x, y, badgeFill)
			}
		}
	}
	drawLabel(img, cx, cy, "SHOE", color.White, false)
}
