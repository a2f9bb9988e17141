package screen

import (
	"strings"

	"github.com/go-vgo/robotgo"

	"github.com/GriffinCanCode/league-vision/internal/config"
	"github.com/GriffinCanCode/league-vision/internal/vision"
)

// platform is the subset of window-manager queries Desktop needs.
type platform interface {
	activeTitle() string
	cursor() (int, int)
	activeBounds() (x, y, w, h int)
	screenBounds() vision.Rect
}

type robotgoPlatform struct{}

func (robotgoPlatform) activeTitle() string { return robotgo.GetTitle() }

func (robotgoPlatform) cursor() (int, int) { return robotgo.Location() }

func (robotgoPlatform) activeBounds() (int, int, int, int) {
	return robotgo.GetBounds(robotgo.GetPid())
}

func (robotgoPlatform) screenBounds() vision.Rect {
	if b := PrimaryBounds(); !b.Empty() {
		return b
	}
	w, h := robotgo.GetScreenSize()
	return vision.Rect{Width: w, Height: h}
}

// Desktop answers focus, cursor and window queries for the game window.
type Desktop struct {
	p          platform
	resolution func() config.Resolution
}

// NewDesktop creates a window service. resolution is read on every window
// query; an enabled override replaces the detected window rectangle with a
// fixed one at the origin. A nil resolution means no override.
func NewDesktop(resolution func() config.Resolution) *Desktop {
	return &Desktop{p: robotgoPlatform{}, resolution: resolution}
}

func (d *Desktop) override() (config.Resolution, bool) {
	if d.resolution == nil {
		return config.Resolution{}, false
	}
	r := d.resolution()
	return r, r.Enabled && r.Width > 0 && r.Height > 0
}

// ForegroundTitleContains reports whether the active window title contains substr.
// An empty substr always matches.
func (d *Desktop) ForegroundTitleContains(substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(d.p.activeTitle(), substr)
}

// CursorPosition returns the pointer location in screen pixels.
func (d *Desktop) CursorPosition() (vision.Point, bool) {
	x, y := d.p.cursor()
	return vision.Point{X: x, Y: y}, true
}

// WindowRect returns the game window rectangle, or false when it is not the
// active window and no override is set.
func (d *Desktop) WindowRect(title string) (vision.Rect, bool) {
	if r, ok := d.override(); ok {
		return vision.Rect{Width: r.Width, Height: r.Height}, true
	}
	if title != "" && !strings.Contains(d.p.activeTitle(), title) {
		return vision.Rect{}, false
	}
	x, y, w, h := d.p.activeBounds()
	r := vision.Rect{Left: x, Top: y, Width: w, Height: h}
	return r, !r.Empty()
}

// ScreenBounds returns the primary display rectangle.
func (d *Desktop) ScreenBounds() vision.Rect { return d.p.screenBounds() }
