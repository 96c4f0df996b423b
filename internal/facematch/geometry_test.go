package facematch

import (
	"math"
	"testing"

	"github.com/kozaktomas/rollcall/internal/database"
)

func TestClampRegion(t *testing.T) {
	tests := []struct {
		name     string
		region   database.FaceRegion
		width    int
		height   int
		expected database.FaceRegion
		ok       bool
	}{
		{
			name:     "inside",
			region:   database.FaceRegion{X1: 10, Y1: 10, X2: 50, Y2: 60},
			width:    100,
			height:   100,
			expected: database.FaceRegion{X1: 10, Y1: 10, X2: 50, Y2: 60},
			ok:       true,
		},
		{
			name:     "overhanging top left",
			region:   database.FaceRegion{X1: -5, Y1: -8, X2: 30, Y2: 40},
			width:    100,
			height:   100,
			expected: database.FaceRegion{X1: 0, Y1: 0, X2: 30, Y2: 40},
			ok:       true,
		},
		{
			name:     "overhanging bottom right",
			region:   database.FaceRegion{X1: 80, Y1: 70, X2: 130, Y2: 120},
			width:    100,
			height:   100,
			expected: database.FaceRegion{X1: 80, Y1: 70, X2: 100, Y2: 100},
			ok:       true,
		},
		{
			name:   "outside",
			region: database.FaceRegion{X1: 120, Y1: 10, X2: 150, Y2: 40},
			width:  100,
			height: 100,
			ok:     false,
		},
		{
			name:   "inverted",
			region: database.FaceRegion{X1: 50, Y1: 50, X2: 40, Y2: 60},
			width:  100,
			height: 100,
			ok:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClampRegion(tt.region, tt.width, tt.height)
			if ok != tt.ok {
				t.Fatalf("ClampRegion() ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.expected {
				t.Errorf("ClampRegion() = %+v, want %+v", got, tt.expected)
			}
		})
	}
}

func TestConvertPixelBBoxToRelative(t *testing.T) {
	tests := []struct {
		name     string
		bbox     []float64
		width    int
		height   int
		expected []float64
	}{
		{
			name:     "simple conversion",
			bbox:     []float64{100, 200, 300, 400},
			width:    1000,
			height:   1000,
			expected: []float64{0.1, 0.2, 0.3, 0.4},
		},
		{
			name:     "full image",
			bbox:     []float64{0, 0, 1920, 1080},
			width:    1920,
			height:   1080,
			expected: []float64{0, 0, 1, 1},
		},
		{
			name:     "invalid bbox",
			bbox:     []float64{100, 200},
			width:    1000,
			height:   1000,
			expected: []float64{100, 200},
		},
		{
			name:     "zero dimensions",
			bbox:     []float64{100, 200, 300, 400},
			width:    0,
			height:   1000,
			expected: []float64{100, 200, 300, 400},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertPixelBBoxToRelative(tt.bbox, tt.width, tt.height)
			if len(result) != len(tt.expected) {
				t.Errorf("ConvertPixelBBoxToRelative() length = %d, want %d", len(result), len(tt.expected))
				return
			}
			for i := range result {
				if math.Abs(result[i]-tt.expected[i]) > 0.0001 {
					t.Errorf("ConvertPixelBBoxToRelative()[%d] = %v, want %v", i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestLabelOrigin(t *testing.T) {
	tests := []struct {
		name   string
		region database.FaceRegion
		x, y   int
	}{
		{"above box", database.FaceRegion{X1: 40, Y1: 100, X2: 90, Y2: 160}, 40, 90},
		{"box at top edge", database.FaceRegion{X1: 5, Y1: 3, X2: 60, Y2: 70}, 5, 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := LabelOrigin(tt.region, 10)
			if x != tt.x || y != tt.y {
				t.Errorf("LabelOrigin() = (%d, %d), want (%d, %d)", x, y, tt.x, tt.y)
			}
		})
	}
}
