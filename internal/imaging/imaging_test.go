package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/rollcall/internal/config"
	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/kozaktomas/rollcall/internal/facematch"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

func rgba(c color.Color) color.RGBA {
	return color.RGBAModel.Convert(c).(color.RGBA)
}

func TestDecode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(4, 3, color.White)))

	img, format, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 4, img.Bounds().Dx())

	_, _, err = Decode(nil)
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, _, err = Decode([]byte("not an image"))
	assert.Error(t, err)
}

func TestEncodeJPEG_RoundTrip(t *testing.T) {
	data, err := EncodeJPEG(solid(20, 10, color.Black), 90)
	require.NoError(t, err)

	img, format, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, image.Rect(0, 0, 20, 10), img.Bounds())
}

func TestCropper_Extract(t *testing.T) {
	// left half red, right half blue
	img := solid(200, 100, color.RGBA{R: 255, A: 255})
	for y := range 100 {
		for x := 100; x < 200; x++ {
			img.Set(x, y, color.RGBA{B: 255, A: 255})
		}
	}
	regions := []database.FaceRegion{
		{X1: 10, Y1: 10, X2: 60, Y2: 90},
		{X1: 130, Y1: 20, X2: 190, Y2: 80},
	}

	crops, err := NewCropper(0).Extract(img, regions)
	require.NoError(t, err)
	require.Len(t, crops, 2)

	for _, c := range crops {
		assert.Equal(t, image.Rect(0, 0, 160, 160), c.Bounds())
	}
	assert.Equal(t, uint8(255), rgba(crops[0].At(80, 80)).R, "first crop comes from the red half")
	assert.Equal(t, uint8(255), rgba(crops[1].At(80, 80)).B, "second crop comes from the blue half")
}

func TestCropper_ClampsPartialRegion(t *testing.T) {
	img := solid(100, 100, color.White)

	crops, err := NewCropper(32).Extract(img, []database.FaceRegion{{X1: -20, Y1: 50, X2: 40, Y2: 150}})
	require.NoError(t, err)
	require.Len(t, crops, 1)
	assert.Equal(t, image.Rect(0, 0, 32, 32), crops[0].Bounds())
}

func TestCropper_RegionOutsideImage(t *testing.T) {
	img := solid(100, 100, color.White)
	regions := []database.FaceRegion{
		{X1: 10, Y1: 10, X2: 50, Y2: 50},
		{X1: 150, Y1: 150, X2: 200, Y2: 200},
	}

	crops, err := NewCropper(0).Extract(img, regions)
	assert.Nil(t, crops)
	require.ErrorIs(t, err, database.ErrCorrelation)

	var ce *database.CorrelationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 2, ce.Want)
	assert.Equal(t, 1, ce.Got)
}

func TestCropper_OffsetBounds(t *testing.T) {
	img := solid(100, 100, color.RGBA{G: 255, A: 255}).SubImage(image.Rect(50, 50, 100, 100))

	crops, err := NewCropper(16).Extract(img, []database.FaceRegion{{X1: 0, Y1: 0, X2: 50, Y2: 50}})
	require.NoError(t, err)
	assert.Equal(t, uint8(255), rgba(crops[0].At(8, 8)).G)
}

func TestRenderer_DrawsBoxesAndKeepsSource(t *testing.T) {
	src := solid(120, 120, color.Black)
	style := config.Load().Annotation
	anns := []facematch.Annotation{
		{Region: database.FaceRegion{X1: 20, Y1: 30, X2: 80, Y2: 90}, Label: "alice", Identified: true},
		{Region: database.FaceRegion{X1: 85, Y1: 85, X2: 115, Y2: 115}, Label: "Unknown"},
	}

	out := NewRenderer(style).Render(src, anns)

	assert.Equal(t, src.Bounds(), out.Bounds())
	assert.Equal(t, style.BoxColor(), rgba(out.At(50, 30)), "top edge of identified box")
	assert.Equal(t, style.BoxColor(), rgba(out.At(20, 60)), "left edge of identified box")
	assert.Equal(t, color.RGBA{A: 255}, rgba(out.At(50, 60)), "box interior untouched")
	assert.Equal(t, style.UnknownColor(), rgba(out.At(100, 114)), "bottom edge of unknown box")
	assert.Equal(t, color.RGBA{A: 255}, rgba(src.At(50, 30)), "source image unchanged")
}

func TestRenderer_DrawsLabelAboveBox(t *testing.T) {
	src := solid(200, 100, color.Black)
	style := config.Load().Annotation
	region := database.FaceRegion{X1: 40, Y1: 50, X2: 120, Y2: 95}

	out := NewRenderer(style).Render(src, []facematch.Annotation{{Region: region, Label: "WWW", Identified: true}})

	// the label's glyphs sit in the band just above the label baseline
	_, baseline := facematch.LabelOrigin(region, style.Label.Offset)
	lit := 0
	for y := baseline - 10; y < baseline; y++ {
		for x := 40; x < 61; x++ {
			if rgba(out.At(x, y)) != (color.RGBA{A: 255}) {
				lit++
			}
		}
	}
	assert.Positive(t, lit, "label pixels drawn above the box")
}

func TestRenderer_NoAnnotations(t *testing.T) {
	src := solid(10, 10, color.White)
	out := NewRenderer(config.Load().Annotation).Render(src, nil)
	assert.Equal(t, rgba(src.At(5, 5)), rgba(out.At(5, 5)))
}
