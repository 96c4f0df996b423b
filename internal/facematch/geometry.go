package facematch

import (
	"github.com/kozaktomas/rollcall/internal/database"
)

// ClampRegion clips a region to an image of the given size.
// Returns false when nothing of the region remains inside the image.
func ClampRegion(r database.FaceRegion, width, height int) (database.FaceRegion, bool) {
	r.X1 = max(r.X1, 0)
	r.Y1 = max(r.Y1, 0)
	r.X2 = min(r.X2, width)
	r.Y2 = min(r.Y2, height)
	if r.X2 <= r.X1 || r.Y2 <= r.Y1 {
		return r, false
	}
	return r, true
}

// ConvertPixelBBoxToRelative converts pixel bbox to relative (0-1) coordinates.
// Input bbox is [x1, y1, x2, y2] in pixels, output is [x1, y1, x2, y2] in relative coords.
func ConvertPixelBBoxToRelative(bbox []float64, width, height int) []float64 {
	if len(bbox) != 4 || width <= 0 || height <= 0 {
		return bbox
	}
	return []float64{
		bbox[0] / float64(width),
		bbox[1] / float64(height),
		bbox[2] / float64(width),
		bbox[3] / float64(height),
	}
}

// LabelOrigin returns where a region's label is drawn: offset pixels above the
// top-left corner, pushed back inside the image when the box touches the top edge.
func LabelOrigin(r database.FaceRegion, offset int) (x, y int) {
	y = r.Y1 - offset
	if y < offset {
		y = r.Y1 + offset
	}
	return r.X1, y
}
