package imaging

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/kozaktomas/rollcall/internal/constants"
	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/kozaktomas/rollcall/internal/facematch"
)

// Cropper cuts each face region out of an image and scales it to a square of
// Size pixels.
type Cropper struct {
	Size int
}

// NewCropper returns a cropper; size <= 0 uses the default face size.
func NewCropper(size int) *Cropper {
	if size <= 0 {
		size = constants.FaceSize
	}
	return &Cropper{Size: size}
}

// Extract returns one crop per region, in region order. Regions are clamped to
// the image first; a region with nothing left inside the image fails the whole
// call, since dropping it would shift every later face.
func (c *Cropper) Extract(img image.Image, regions []database.FaceRegion) ([]image.Image, error) {
	bounds := img.Bounds()
	crops := make([]image.Image, 0, len(regions))
	for i, r := range regions {
		clamped, ok := facematch.ClampRegion(r, bounds.Dx(), bounds.Dy())
		if !ok {
			return nil, &database.CorrelationError{Stage: "crops", Want: len(regions), Got: i}
		}
		src := image.Rect(clamped.X1, clamped.Y1, clamped.X2, clamped.Y2).Add(bounds.Min)

		dst := image.NewRGBA(image.Rect(0, 0, c.Size, c.Size))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
		crops = append(crops, dst)
	}
	return crops, nil
}
