package imaging

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/kozaktomas/rollcall/internal/config"
	"github.com/kozaktomas/rollcall/internal/facematch"
)

// Renderer draws labeled boxes onto a copy of an image.
type Renderer struct {
	style config.AnnotationConfig
}

// NewRenderer returns a renderer using the given style.
func NewRenderer(style config.AnnotationConfig) *Renderer {
	return &Renderer{style: style}
}

// Render returns a copy of img with one box and label per annotation. The
// source image is not modified.
func (r *Renderer) Render(img image.Image, anns []facematch.Annotation) image.Image {
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Src)

	thickness := max(r.style.Box.Thickness, 1)
	for _, a := range anns {
		boxColor := r.style.BoxColor()
		if !a.Identified {
			boxColor = r.style.UnknownColor()
		}
		rect := image.Rect(a.Region.X1, a.Region.Y1, a.Region.X2, a.Region.Y2)
		drawRect(out, rect, thickness, boxColor)

		labelColor := r.style.LabelColor()
		if !a.Identified {
			labelColor = boxColor
		}
		x, y := facematch.LabelOrigin(a.Region, r.style.Label.Offset)
		drawLabel(out, x, y, a.Label, labelColor)
	}
	return out
}

// drawRect strokes the outline of rect, growing inward by thickness pixels.
func drawRect(dst *image.RGBA, rect image.Rectangle, thickness int, c color.Color) {
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	src := image.NewUniform(c)
	t := min(thickness, rect.Dx(), rect.Dy())
	edges := []image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+t), // top
		image.Rect(rect.Min.X, rect.Max.Y-t, rect.Max.X, rect.Max.Y), // bottom
		image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+t, rect.Max.Y), // left
		image.Rect(rect.Max.X-t, rect.Min.Y, rect.Max.X, rect.Max.Y), // right
	}
	for _, e := range edges {
		draw.Draw(dst, e, src, image.Point{}, draw.Src)
	}
}

// drawLabel writes text with its baseline at (x, y).
func drawLabel(dst *image.RGBA, x, y int, text string, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
