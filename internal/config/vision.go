package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/GriffinCanCode/league-vision/internal/errors"
	"github.com/GriffinCanCode/league-vision/internal/vision"
)

// Vision is the detector and capture configuration. A loaded Vision is shared
// read-only between cycles; replace it through Store instead of mutating it.
type Vision struct {
	FocusTitle     string       `yaml:"focus_title"`
	ScanMode       string       `yaml:"scan_mode"`
	IntervalMouse  int          `yaml:"scan_interval_mouse"`
	IntervalCenter int          `yaml:"scan_interval_center"`
	FocusBackoff   int          `yaml:"focus_backoff"`
	OCRThreshold   int          `yaml:"ocr_threshold"`
	LayoutHint     string       `yaml:"layout_hint"`
	TessdataPrefix string       `yaml:"tessdata_prefix"`
	Hover          HoverRegion  `yaml:"scan_region_hover"`
	Center         CenterRegion `yaml:"scan_region"`
	ExpandedDwell  int          `yaml:"expanded_dwell"`
	Resolution     Resolution   `yaml:"resolution_override"`

	Essence         KeywordGroup `yaml:"essence"`
	Ritual          KeywordGroup `yaml:"ritual"`
	MapCheck        MapCheck     `yaml:"map_check"`
	MapDeviceButton vision.Rect  `yaml:"map_device_button"`
	Altars          Altars       `yaml:"eldritch_altars"`
	Expedition      Expedition   `yaml:"expedition"`
	Syndicate       Syndicate    `yaml:"syndicate"`

	StashTabs    []string `yaml:"stash_tabs"`
	FoundMarkers []string `yaml:"found_markers"`
}

// HoverRegion sizes the cursor-anchored region. Offsets are relative to the cursor.
type HoverRegion struct {
	Width        int `yaml:"width"`
	Height       int `yaml:"height"`
	XOffset      int `yaml:"x_offset"`
	XOffsetRight int `yaml:"x_offset_right"`
	YOffset      int `yaml:"y_offset"`
}

// CenterRegion is a fractional sub-rectangle of the game window.
type CenterRegion struct {
	XOffset   float64 `yaml:"x_offset"`
	YOffset   float64 `yaml:"y_offset"`
	WidthPct  float64 `yaml:"width_pct"`
	HeightPct float64 `yaml:"height_pct"`
}

// Resolution replaces the window rectangle with a fixed size when enabled.
type Resolution struct {
	Enabled bool `yaml:"enabled"`
	Width   int  `yaml:"width"`
	Height  int  `yaml:"height"`
}

type KeywordGroup struct {
	Enabled  bool     `yaml:"enabled"`
	Keywords []string `yaml:"keywords"`
}

type MapCheck struct {
	Enabled         bool     `yaml:"enabled"`
	RequiredContext []string `yaml:"required_context"`
	BadMods         []string `yaml:"bad_mods"`
}

type Altars struct {
	Enabled            bool             `yaml:"enabled"`
	BadMods            []string         `yaml:"bad_mods"`
	Tiers              map[int][]string `yaml:"tiers"`
	MinTierToHighlight int              `yaml:"min_tier_to_highlight"`
}

type Expedition struct {
	Enabled       bool     `yaml:"enabled"`
	DomainKeyword string   `yaml:"domain_keyword"`
	ImmuneWarning []string `yaml:"immune_warning"`
	BadMods       []string `yaml:"bad_mods"`
}

// Goal pairs a subject with its desired state. Order is preserved from the file.
type Goal struct {
	Member string `yaml:"member"`
	Goal   string `yaml:"goal"`
}

type Syndicate struct {
	Enabled bool   `yaml:"enabled"`
	Goals   []Goal `yaml:"goals"`
	// ContextKeywords trigger the second recognition pass.
	ContextKeywords []string `yaml:"context_keywords"`
	MemoryTTL       int      `yaml:"memory_ttl"`
	FallbackTTL     int      `yaml:"fallback_ttl"`
}

// DefaultVision returns the built-in configuration.
func DefaultVision() Vision {
	return Vision{
		FocusTitle:     "Path of Exile",
		ScanMode:       "auto",
		IntervalMouse:  100,
		IntervalCenter: 500,
		FocusBackoff:   500,
		OCRThreshold:   70,
		LayoutHint:     "auto",
		Hover: HoverRegion{
			Width: 700, Height: 800,
			XOffset: -600, XOffsetRight: -100, YOffset: -800,
		},
		Center:        CenterRegion{XOffset: 0.2, YOffset: 0.1, WidthPct: 0.6, HeightPct: 0.8},
		ExpandedDwell: 3000,
		Resolution:    Resolution{Width: 1920, Height: 1080},
		Essence: KeywordGroup{
			Enabled:  true,
			Keywords: []string{"Hysteria", "Delirium", "Horror", "Insanity"},
		},
		Ritual: KeywordGroup{
			Enabled:  false,
			Keywords: []string{"Mirror", "Divine"},
		},
		MapCheck: MapCheck{
			Enabled:         true,
			RequiredContext: []string{"map tier", "item class: maps"},
			BadMods:         []string{"reflect", "cannot regenerate", "less recovery"},
		},
		Altars: Altars{
			Enabled: true,
			BadMods: []string{"projectiles are fired in random directions"},
			Tiers: map[int][]string{
				1: {"Mirror of Kalandra", "Divine Orb"},
				2: {"Exalted Orb"},
				3: {"Chaos Orb"},
			},
			MinTierToHighlight: 1,
		},
		Expedition: Expedition{
			Enabled:       true,
			DomainKeyword: "remnant",
			ImmuneWarning: []string{"fire", "cold", "lightning", "chaos", "physical"},
			BadMods:       []string{"reflect"},
		},
		Syndicate: Syndicate{
			Enabled: true,
			ContextKeywords: []string{
				"transportation", "fortification", "research", "intervention",
				"execute", "interrogate", "imprisoned", "intelligence",
			},
			MemoryTTL:   3000,
			FallbackTTL: 2000,
		},
		FoundMarkers: []string{"map tier", "item class: maps"},
	}
}

// ParseVision decodes YAML over the defaults and validates the result.
func ParseVision(data []byte) (Vision, error) {
	v := DefaultVision()
	// yaml.v3 merges into existing maps, so tiers are only defaulted when absent.
	tiers := v.Altars.Tiers
	v.Altars.Tiers = nil
	if err := yaml.Unmarshal(data, &v); err != nil {
		return Vision{}, apperrors.Wrap(err, apperrors.CodeConfigInvalid, "decode vision config")
	}
	if v.Altars.Tiers == nil {
		v.Altars.Tiers = tiers
	}
	if err := v.Validate(); err != nil {
		return Vision{}, err
	}
	return v, nil
}

// LoadVision reads and parses a YAML file.
func LoadVision(path string) (Vision, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Vision{}, apperrors.Wrap(err, apperrors.CodeConfigMissing, "vision config not found").
				WithMetadata("path", path)
		}
		return Vision{}, apperrors.Wrap(err, apperrors.CodeConfigInvalid, "read vision config").
			WithMetadata("path", path)
	}
	return ParseVision(data)
}

// MinIntervalMs is the shortest scan interval or focus backoff accepted.
const MinIntervalMs = 10

// Validate rejects values the region selector or scheduler cannot work with.
func (v Vision) Validate() error {
	invalid := func(field, msg string) error {
		return apperrors.New(apperrors.CodeConfigInvalid, msg).WithMetadata("field", field)
	}

	if v.IntervalMouse < MinIntervalMs || v.IntervalCenter < MinIntervalMs || v.FocusBackoff < MinIntervalMs {
		return invalid("scan_interval", fmt.Sprintf("intervals must be at least %d ms", MinIntervalMs))
	}
	if v.Hover.Width <= 0 || v.Hover.Height <= 0 {
		return invalid("scan_region_hover", "hover region needs a positive size")
	}
	c := v.Center
	for _, f := range []float64{c.XOffset, c.YOffset, c.WidthPct, c.HeightPct} {
		if f < 0 || f > 1 {
			return invalid("scan_region", "center region fractions must be within [0, 1]")
		}
	}
	if c.XOffset+c.WidthPct > 1+1e-9 || c.YOffset+c.HeightPct > 1+1e-9 {
		return invalid("scan_region", "center region exceeds the window")
	}
	if v.OCRThreshold < 0 || v.OCRThreshold > 255 {
		return invalid("ocr_threshold", "threshold must be within [0, 255]")
	}
	if _, ok := v.Mode(); !ok && !strings.EqualFold(v.ScanMode, "auto") && v.ScanMode != "" {
		return invalid("scan_mode", "unknown scan mode "+v.ScanMode)
	}
	if v.Resolution.Enabled && (v.Resolution.Width <= 0 || v.Resolution.Height <= 0) {
		return invalid("resolution_override", "override needs a positive size")
	}
	for tier := range v.Altars.Tiers {
		if tier < 1 {
			return invalid("eldritch_altars.tiers", "tiers start at 1")
		}
	}
	return nil
}

// Mode returns the configured fixed mode; false means automatic.
func (v Vision) Mode() (vision.ScanMode, bool) {
	if v.ScanMode == "" || strings.EqualFold(v.ScanMode, "auto") {
		return 0, false
	}
	return vision.ParseScanMode(v.ScanMode)
}

// Interval returns the polling interval for a mode.
func (v Vision) Interval(mode vision.ScanMode) time.Duration {
	if mode == vision.FollowCursor {
		return millis(v.IntervalMouse)
	}
	return millis(v.IntervalCenter)
}

func (v Vision) FocusBackoffDuration() time.Duration { return millis(v.FocusBackoff) }

func (v Vision) ExpandedDwellDuration() time.Duration { return millis(v.ExpandedDwell) }

func (s Syndicate) MemoryTTLDuration() time.Duration { return millis(s.MemoryTTL) }

func (s Syndicate) FallbackTTLDuration() time.Duration { return millis(s.FallbackTTL) }

// Keywords returns the enabled essence and ritual keywords in that order.
func (v Vision) Keywords() []string {
	var out []string
	if v.Essence.Enabled {
		out = append(out, v.Essence.Keywords...)
	}
	if v.Ritual.Enabled {
		out = append(out, v.Ritual.Keywords...)
	}
	return out
}

func millis(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }
