package simserver

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/tinytelemetry/printwatch/internal/model"
	"github.com/tinytelemetry/printwatch/internal/viewmodel"
)

// renderFrame draws a synthetic print-bed frame with defect boxes and returns
// it as a JPEG data URI.
func renderFrame(cfg Config, frameNo int, defects []model.Defect) (string, error) {
	w, h := cfg.FrameWidth, cfg.FrameHeight
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 0x1C, G: 0x20, B: 0x2A, A: 0xFF}}, image.Point{}, draw.Src)

	// Printed part: a block that grows with progress, with a nozzle band sweeping across.
	progress := 0.0
	if cfg.TotalFrames > 0 {
		progress = float64(frameNo) / float64(cfg.TotalFrames)
	}
	partTop := h - 10 - int(progress*float64(h-40))
	part := image.Rect(w/4, partTop, w*3/4, h-10)
	draw.Draw(img, part, &image.Uniform{C: color.RGBA{R: 0x00, G: 0xA8, B: 0xFF, A: 0xFF}}, image.Point{}, draw.Src)

	nozzleX := w/4 + (frameNo*7)%(w/2+1)
	nozzle := image.Rect(nozzleX-3, partTop-12, nozzleX+3, partTop)
	draw.Draw(img, nozzle, &image.Uniform{C: color.RGBA{R: 0xEA, G: 0xEA, B: 0xEA, A: 0xFF}}, image.Point{}, draw.Src)

	for _, d := range defects {
		strokeRect(img, defectRect(d), hexColor(viewmodel.ColorFor(d.Type)))
	}

	drawLabel(img, 6, 16, fmt.Sprintf("FRAME %06d", frameNo))

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: cfg.JPEGQuality}); err != nil {
		return "", fmt.Errorf("encode frame %d: %w", frameNo, err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func defectRect(d model.Defect) image.Rectangle {
	x, y := int(d.Position[0]), int(d.Position[1])
	return image.Rect(x, y, x+int(d.Size[0]), y+int(d.Size[1]))
}

func strokeRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		img.Set(x, r.Min.Y, c)
		img.Set(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.Set(r.Min.X, y, c)
		img.Set(r.Max.X-1, y, c)
	}
}

func drawLabel(img *image.RGBA, x, y int, text string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 0x00, G: 0xE0, B: 0xC7, A: 0xFF}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// hexColor parses "#RRGGBB"; anything else is white.
func hexColor(s string) color.RGBA {
	s = strings.TrimPrefix(s, "#")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil || len(s) != 6 {
		return color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}
}
