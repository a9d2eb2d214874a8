// Package frameview turns frame payloads from the analysis service into
// terminal thumbnails drawn with half-block cells.
package frameview

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // register decoders
	_ "image/png"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/image/draw"
)

// ErrEmptyPayload is returned for a frame without image data.
var ErrEmptyPayload = errors.New("frameview: empty image payload")

// Decode parses a "data:<mime>;base64,<data>" URI or a bare base64 payload.
func Decode(payload string) (image.Image, error) {
	raw, err := DecodeBytes(payload)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("frameview: decode image: %w", err)
	}
	return img, nil
}

// DecodeBytes returns the encoded image bytes carried by payload.
func DecodeBytes(payload string) ([]byte, error) {
	data := strings.TrimSpace(payload)
	if strings.HasPrefix(data, "data:") {
		comma := strings.IndexByte(data, ',')
		if comma < 0 {
			return nil, fmt.Errorf("frameview: data uri without payload")
		}
		if !strings.HasSuffix(data[:comma], ";base64") {
			return nil, fmt.Errorf("frameview: data uri is not base64 encoded")
		}
		data = data[comma+1:]
	}
	if data == "" {
		return nil, ErrEmptyPayload
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(data)
	}
	if err != nil {
		return nil, fmt.Errorf("frameview: decode base64: %w", err)
	}
	return raw, nil
}

// Fit returns the largest size with img's aspect ratio that fits in
// cols x rows cells, counting two pixels per cell vertically.
func Fit(bounds image.Rectangle, cols, rows int) (w, h int) {
	if cols <= 0 || rows <= 0 || bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return 0, 0
	}
	maxW, maxH := cols, rows*2
	w = maxW
	h = bounds.Dy() * maxW / bounds.Dx()
	if h > maxH {
		h = maxH
		w = bounds.Dx() * maxH / bounds.Dy()
	}
	if w < 1 {
		w = 1
	}
	if h < 2 {
		h = 2
	}
	return w, h
}

// Render scales img into at most cols x rows cells. Each cell shows two
// vertically stacked pixels using "▀" with foreground and background colors.
func Render(img image.Image, cols, rows int) string {
	if img == nil {
		return ""
	}
	w, h := Fit(img.Bounds(), cols, rows)
	if w == 0 {
		return ""
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	var b strings.Builder
	for y := 0; y < h; y += 2 {
		if y > 0 {
			b.WriteByte('\n')
		}
		for x := 0; x < w; x++ {
			top := dst.RGBAAt(x, y)
			bottom := top
			if y+1 < h {
				bottom = dst.RGBAAt(x, y+1)
			}
			b.WriteString(lipgloss.NewStyle().
				Foreground(hex(top)).
				Background(hex(bottom)).
				Render("▀"))
		}
	}
	return b.String()
}

func hex(c color.RGBA) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B))
}

// Cache keeps the last rendering and redraws only when the render key or
// the target size changes.
type Cache struct {
	key   uint64
	cols  int
	rows  int
	valid bool
	out   string
	err   error
}

// Get returns the rendering of payload for key at cols x rows.
func (c *Cache) Get(key uint64, payload string, cols, rows int) (string, error) {
	if c.valid && c.key == key && c.cols == cols && c.rows == rows {
		return c.out, c.err
	}
	c.key, c.cols, c.rows, c.valid = key, cols, rows, true
	img, err := Decode(payload)
	if err != nil {
		c.out, c.err = "", err
		return "", err
	}
	c.out, c.err = Render(img, cols, rows), nil
	return c.out, nil
}

// Reset drops the cached rendering.
func (c *Cache) Reset() {
	*c = Cache{}
}
