// Package screen captures regions of the desktop and answers window queries.
package screen

import (
	"context"
	"image"
	"time"

	apperrors "github.com/GriffinCanCode/league-vision/internal/errors"
	"github.com/GriffinCanCode/league-vision/internal/vision"
)

// DefaultTimeout bounds a single region grab.
const DefaultTimeout = 250 * time.Millisecond

// Capturer grabs screen regions.
type Capturer interface {
	Capture(ctx context.Context, region vision.Rect) (image.Image, error)
	Close()
}

// backend implements the raw grab for one platform library
type backend interface {
	grab(r image.Rectangle) (*image.RGBA, error)
	cleanup()
}

// boundedCapturer adds region validation and a timeout around a backend
type boundedCapturer struct {
	backend
	timeout time.Duration
}

func newBounded(b backend, timeout time.Duration) *boundedCapturer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &boundedCapturer{backend: b, timeout: timeout}
}

type grabResult struct {
	img *image.RGBA
	err error
}

// Capture returns the pixels in region or a CAPTURE_* error. A grab that
// outlives the timeout is abandoned; its result is discarded.
func (c *boundedCapturer) Capture(ctx context.Context, region vision.Rect) (image.Image, error) {
	if region.Empty() {
		return nil, apperrors.New(apperrors.CodeCaptureFailed, "empty capture region").
			WithMetadata("region", rectString(region))
	}

	done := make(chan grabResult, 1)
	go func() {
		img, err := c.grab(region.Image())
		done <- grabResult{img: img, err: err}
	}()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, apperrors.Wrap(res.err, apperrors.CodeCaptureFailed, "grab region").
				WithMetadata("region", rectString(region))
		}
		if res.img == nil {
			return nil, apperrors.New(apperrors.CodeCaptureFailed, "grab returned no image")
		}
		return res.img, nil
	case <-timer.C:
		return nil, apperrors.Newf(apperrors.CodeCaptureTimeout, "capture exceeded %s", c.timeout).
			WithMetadata("region", rectString(region))
	case <-ctx.Done():
		return nil, apperrors.Wrap(ctx.Err(), apperrors.CodeCancelled, "capture cancelled")
	}
}

func (c *boundedCapturer) Close() { c.cleanup() }

func rectString(r vision.Rect) string {
	return r.Image().String()
}
