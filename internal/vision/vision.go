// Package vision defines the values that flow through a scan cycle
package vision

import (
	"fmt"
	"image"
	"strings"
	"time"
)

// Point is a screen coordinate.
type Point struct {
	X, Y int
}

// Rect is a screen rectangle in pixels.
type Rect struct {
	Left   int `json:"left" yaml:"x"`
	Top    int `json:"top" yaml:"y"`
	Width  int `json:"width" yaml:"w"`
	Height int `json:"height" yaml:"h"`
}

// Right returns the exclusive right edge.
func (r Rect) Right() int { return r.Left + r.Width }

// Bottom returns the exclusive bottom edge.
func (r Rect) Bottom() int { return r.Top + r.Height }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Contains reports whether other lies fully inside r.
func (r Rect) Contains(other Rect) bool {
	return other.Left >= r.Left && other.Top >= r.Top &&
		other.Right() <= r.Right() && other.Bottom() <= r.Bottom()
}

// Offset translates r by dx, dy.
func (r Rect) Offset(dx, dy int) Rect {
	return Rect{Left: r.Left + dx, Top: r.Top + dy, Width: r.Width, Height: r.Height}
}

// Image converts to an image.Rectangle.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Right(), r.Bottom())
}

// RectFromImage converts an image.Rectangle.
func RectFromImage(r image.Rectangle) Rect {
	return Rect{Left: r.Min.X, Top: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Token is one recognized word with its box, relative to the captured region.
type Token struct {
	Text   string `json:"text"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// JoinTokens concatenates non-blank token text with single spaces.
func JoinTokens(tokens []Token) string {
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if s := strings.TrimSpace(t.Text); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Severity ranks a finding for display.
type Severity int

const (
	Info Severity = iota
	Warn
	Danger
)

func (s Severity) String() string {
	switch s {
	case Warn:
		return "warn"
	case Danger:
		return "danger"
	default:
		return "info"
	}
}

// MarshalText encodes the severity name.
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a severity name; unknown names decode as Info.
func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "warn":
		*s = Warn
	case "danger":
		*s = Danger
	default:
		*s = Info
	}
	return nil
}

// Display colours used by the overlay.
const (
	ColorGreen  = "green"
	ColorCyan   = "cyan"
	ColorOrange = "orange"
	ColorRed    = "red"
)

// Finding is the output of one detector for one cycle. Treat it as immutable.
type Finding struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Color    string   `json:"color"`
	Blocking bool     `json:"blocking"`
	// Region is in screen coordinates; zero value means none.
	Region Rect `json:"region"`
}

// ScanMode selects how the capture region is computed.
type ScanMode int

const (
	FollowCursor ScanMode = iota
	CenterScreen
	ExpandedContext
)

var modeNames = [...]string{"follow_cursor", "center_screen", "expanded_context"}

func (m ScanMode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "unknown"
	}
	return modeNames[m]
}

// MarshalText encodes the mode name.
func (m ScanMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText accepts the names ParseScanMode does.
func (m *ScanMode) UnmarshalText(b []byte) error {
	mode, ok := ParseScanMode(string(b))
	if !ok {
		return fmt.Errorf("unknown scan mode %q", b)
	}
	*m = mode
	return nil
}

// ParseScanMode accepts mode names plus the short aliases "mouse" and "center".
func ParseScanMode(s string) (ScanMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "follow_cursor", "mouse", "cursor":
		return FollowCursor, true
	case "center_screen", "center":
		return CenterScreen, true
	case "expanded_context", "expanded":
		return ExpandedContext, true
	}
	return 0, false
}

// Decision is the single finding surfaced in a cycle. Never mutated after emission.
type Decision struct {
	ID      string    `json:"id"`
	Finding Finding   `json:"finding"`
	Source  string    `json:"source"`
	Mode    ScanMode  `json:"mode"`
	At      time.Time `json:"at"`
}
