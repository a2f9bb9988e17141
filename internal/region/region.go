// Package region computes the screen rectangle sampled by each scan cycle.
// Everything here is a pure function of its inputs.
package region

import (
	"time"

	"github.com/GriffinCanCode/league-vision/internal/config"
	"github.com/GriffinCanCode/league-vision/internal/vision"
)

// Expanded context margins, as fractions of the window.
const (
	expandedLeft   = 0.05
	expandedTop    = 0.05
	expandedWidth  = 0.90
	expandedHeight = 0.85
)

// Anchor selects which hover offset is applied relative to the cursor.
type Anchor int

const (
	AnchorLeft  Anchor = iota // x_offset: tooltip opens left of the cursor
	AnchorRight               // x_offset_right
)

func (a Anchor) String() string {
	if a == AnchorRight {
		return "right"
	}
	return "left"
}

// Next returns the anchor for the following cycle. An empty cycle flips it.
func (a Anchor) Next(found bool) Anchor {
	if found {
		return a
	}
	return 1 - a
}

// Geometry is the configured region shape per mode.
type Geometry struct {
	Hover  config.HoverRegion
	Center config.CenterRegion
	Dwell  time.Duration
}

// GeometryFrom extracts the region settings from a vision config.
func GeometryFrom(v config.Vision) Geometry {
	return Geometry{Hover: v.Hover, Center: v.Center, Dwell: v.ExpandedDwellDuration()}
}

// Params are the per-cycle inputs to Select.
type Params struct {
	Mode   vision.ScanMode
	Cursor vision.Point
	// Window is the game window; Screen is the primary display.
	Window vision.Rect
	Screen vision.Rect
	Anchor Anchor
	// LastExpanded is the last time the expanded context was seen; zero means never.
	LastExpanded time.Time
	Now          time.Time
}

// EffectiveMode upgrades mode to ExpandedContext while the dwell window is open.
func EffectiveMode(mode vision.ScanMode, lastExpanded, now time.Time, dwell time.Duration) vision.ScanMode {
	if !lastExpanded.IsZero() && now.Sub(lastExpanded) < dwell {
		return vision.ExpandedContext
	}
	return mode
}

// Select returns the capture rectangle and the mode it was computed for.
func Select(p Params, g Geometry) (vision.Rect, vision.ScanMode) {
	mode := EffectiveMode(p.Mode, p.LastExpanded, p.Now, g.Dwell)

	switch mode {
	case vision.ExpandedContext:
		return Expanded(windowOrScreen(p)), mode
	case vision.FollowCursor:
		return FollowCursor(p.Cursor, p.Anchor, g.Hover, p.Screen), mode
	default:
		return Center(windowOrScreen(p), g.Center), mode
	}
}

// FollowCursor anchors the hover region to the cursor and clamps it into bounds.
// A region larger than bounds is shrunk to fit.
func FollowCursor(cursor vision.Point, anchor Anchor, h config.HoverRegion, bounds vision.Rect) vision.Rect {
	dx := h.XOffset
	if anchor == AnchorRight {
		dx = h.XOffsetRight
	}

	r := vision.Rect{
		Left:   cursor.X + dx,
		Top:    cursor.Y + h.YOffset,
		Width:  h.Width,
		Height: h.Height,
	}
	if bounds.Empty() {
		r.Left = max(0, r.Left)
		r.Top = max(0, r.Top)
		return r
	}

	r.Width = min(r.Width, bounds.Width)
	r.Height = min(r.Height, bounds.Height)
	r.Left = clamp(r.Left, bounds.Left, bounds.Right()-r.Width)
	r.Top = clamp(r.Top, bounds.Top, bounds.Bottom()-r.Height)
	return r
}

// Center returns the fractional sub-rectangle of the window.
func Center(window vision.Rect, c config.CenterRegion) vision.Rect {
	return fraction(window, c.XOffset, c.YOffset, c.WidthPct, c.HeightPct)
}

// Expanded covers nearly the full window.
func Expanded(window vision.Rect) vision.Rect {
	return fraction(window, expandedLeft, expandedTop, expandedWidth, expandedHeight)
}

func fraction(w vision.Rect, x, y, width, height float64) vision.Rect {
	return vision.Rect{
		Left:   w.Left + int(float64(w.Width)*x),
		Top:    w.Top + int(float64(w.Height)*y),
		Width:  int(float64(w.Width) * width),
		Height: int(float64(w.Height) * height),
	}
}

func windowOrScreen(p Params) vision.Rect {
	if p.Window.Empty() {
		return p.Screen
	}
	return p.Window
}

func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
