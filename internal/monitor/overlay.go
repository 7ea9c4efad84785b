package monitor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	"github.com/AartiThube09/Smart-Serveillance-System/internal/models"
)

// Box colours: weapons red, people green, faces blue.
var kindColors = map[models.Kind]color.RGBA{
	models.KindWeapon: {R: 220, G: 30, B: 30, A: 255},
	models.KindPerson: {R: 30, G: 200, B: 60, A: 255},
	models.KindFace:   {R: 40, G: 90, B: 230, A: 255},
}

var kindBorder = map[models.Kind]int{
	models.KindWeapon: 3,
	models.KindPerson: 2,
	models.KindFace:   2,
}

// renderOverlay draws every cached detection box onto the frame and
// re-encodes it. When the snapshot is empty the input bytes are returned
// unchanged to skip the decode/encode round trip.
func renderOverlay(frameJPEG []byte, snapshot map[models.Kind][]models.Detection) ([]byte, error) {
	if len(snapshot) == 0 {
		return frameJPEG, nil
	}

	img, err := jpeg.Decode(bytes.NewReader(frameJPEG))
	if err != nil {
		return nil, fmt.Errorf("decode frame for overlay: %w", err)
	}

	canvas := image.NewRGBA(img.Bounds())
	draw.Draw(canvas, canvas.Bounds(), img, img.Bounds().Min, draw.Src)

	for _, kind := range models.Kinds {
		for _, det := range snapshot[kind] {
			drawBox(canvas, det.BBox, kindColors[kind], kindBorder[kind])
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode overlay frame: %w", err)
	}
	return buf.Bytes(), nil
}

// drawBox paints a rectangular border of the given thickness, clamped to the
// canvas bounds.
func drawBox(canvas *image.RGBA, bbox [4]float32, col color.RGBA, thickness int) {
	bounds := canvas.Bounds()
	x1 := clampInt(int(bbox[0]), bounds.Min.X, bounds.Max.X-1)
	y1 := clampInt(int(bbox[1]), bounds.Min.Y, bounds.Max.Y-1)
	x2 := clampInt(int(bbox[2]), bounds.Min.X, bounds.Max.X-1)
	y2 := clampInt(int(bbox[3]), bounds.Min.Y, bounds.Max.Y-1)
	if x2 <= x1 || y2 <= y1 {
		return
	}

	for t := 0; t < thickness; t++ {
		for x := x1; x <= x2; x++ {
			setPixel(canvas, x, y1+t, col)
			setPixel(canvas, x, y2-t, col)
		}
		for y := y1; y <= y2; y++ {
			setPixel(canvas, x1+t, y, col)
			setPixel(canvas, x2-t, y, col)
		}
	}
}

func setPixel(canvas *image.RGBA, x, y int, col color.RGBA) {
	if image.Pt(x, y).In(canvas.Bounds()) {
		canvas.SetRGBA(x, y, col)
	}
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
