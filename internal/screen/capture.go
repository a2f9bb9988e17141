package screen

import (
	"image"
	"time"

	"github.com/kbinani/screenshot"

	"github.com/GriffinCanCode/league-vision/internal/vision"
)

type displayBackend struct{}

func (displayBackend) grab(r image.Rectangle) (*image.RGBA, error) {
	return screenshot.CaptureRect(r)
}

func (displayBackend) cleanup() {}

// New creates a capturer for the attached displays.
func New(timeout time.Duration) Capturer {
	return newBounded(displayBackend{}, timeout)
}

// PrimaryBounds returns the primary display rectangle, or a zero Rect when
// no display is active.
func PrimaryBounds() vision.Rect {
	if screenshot.NumActiveDisplays() == 0 {
		return vision.Rect{}
	}
	return vision.RectFromImage(screenshot.GetDisplayBounds(0))
}
