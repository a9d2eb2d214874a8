// Package capture saves the displayed frame to disk and copies dashboard
// text to the system clipboard.
package capture

import (
	"errors"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"github.com/tinytelemetry/printwatch/internal/frameview"
	"github.com/tinytelemetry/printwatch/internal/model"
)

// JPEGQuality is the quality used for saved captures.
const JPEGQuality = 90

// ErrNoFrame is returned when there is nothing to capture.
var ErrNoFrame = errors.New("capture: no frame displayed")

// Saver writes frame captures into Dir.
type Saver struct {
	Dir string
	Now func() time.Time
}

// NewSaver returns a Saver writing into dir. An empty dir means the user's
// Pictures directory, falling back to the working directory.
func NewSaver(dir string) *Saver {
	return &Saver{Dir: ResolveDir(dir), Now: time.Now}
}

// ResolveDir expands a leading "~" and applies the default directory.
func ResolveDir(dir string) string {
	dir = strings.TrimSpace(dir)
	home, _ := os.UserHomeDir()
	if dir == "" {
		if home == "" {
			return "."
		}
		return filepath.Join(home, "Pictures")
	}
	if home != "" && (dir == "~" || strings.HasPrefix(dir, "~/")) {
		return filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	return dir
}

// FileName returns the capture file name for a frame.
func FileName(frame int, at time.Time) string {
	return fmt.Sprintf("defect-analysis-capture-%d-%d.jpg", frame, at.Unix())
}

// Save re-encodes the frame as JPEG and returns the written path.
func (s *Saver) Save(frame model.FrameData) (string, error) {
	if strings.TrimSpace(frame.Image) == "" {
		return "", ErrNoFrame
	}
	img, err := frameview.Decode(frame.Image)
	if err != nil {
		return "", fmt.Errorf("capture: %w", err)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("capture: create dir: %w", err)
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	path := filepath.Join(s.Dir, FileName(frame.Frame, now()))

	tmp, err := os.CreateTemp(s.Dir, ".capture-*.jpg")
	if err != nil {
		return "", fmt.Errorf("capture: create file: %w", err)
	}
	if err := jpeg.Encode(tmp, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("capture: encode jpeg: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("capture: close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("capture: rename: %w", err)
	}
	return path, nil
}

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

// CopyText puts text on the system clipboard.
func CopyText(text string) error {
	if err := writeClipboard(text); err != nil {
		return fmt.Errorf("capture: clipboard: %w", err)
	}
	return nil
}

// ConsoleText joins console lines for copying.
func ConsoleText(lines []string) string {
	return strings.Join(lines, "\n")
}

// DefectText formats the current frame's defects one per line.
func DefectText(defects []model.Defect) string {
	if len(defects) == 0 {
		return "No defects on the current frame"
	}
	var b strings.Builder
	for i, d := range defects {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "frame %d  %s/%s  area=%.0f  pos=(%.0f,%.0f)  size=%.0fx%.0f  confidence=%s",
			d.Frame, d.Type, d.Subtype, d.Area, d.Position[0], d.Position[1], d.Size[0], d.Size[1], d.Confidence)
	}
	return b.String()
}
