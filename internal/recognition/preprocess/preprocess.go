// Package preprocess holds the OpenCV strategies that prepare frames for recognition.
package preprocess

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	apperrors "github.com/GriffinCanCode/league-vision/internal/errors"
	"github.com/GriffinCanCode/league-vision/internal/recognition"
)

// Context strategy cutoffs.
const (
	LowThreshold  = 50
	HighThreshold = 100

	adaptiveBlockSize = 11
	adaptiveC         = 2
)

// HSVRange is an inclusive OpenCV HSV range (H 0-180, S and V 0-255).
type HSVRange struct {
	Lower, Upper [3]float64
}

// Hues of in-game UI text.
var (
	Gold  = []HSVRange{{Lower: [3]float64{15, 80, 80}, Upper: [3]float64{35, 255, 255}}}
	White = []HSVRange{{Lower: [3]float64{0, 0, 180}, Upper: [3]float64{180, 50, 255}}}
	Red   = []HSVRange{
		{Lower: [3]float64{0, 100, 100}, Upper: [3]float64{10, 255, 255}},
		{Lower: [3]float64{160, 100, 100}, Upper: [3]float64{180, 255, 255}},
	}
)

// Primary is the everyday set: one binary threshold at the configured cutoff.
func Primary(threshold int) recognition.StrategySet {
	return recognition.StrategySet{
		Name:       "primary",
		Strategies: []recognition.Strategy{Threshold{Cutoff: threshold}},
	}
}

// Context is the multi-strategy set run when the negotiation board is on screen.
func Context() recognition.StrategySet {
	return recognition.StrategySet{
		Name: "context",
		Strategies: []recognition.Strategy{
			Threshold{Cutoff: LowThreshold},
			Threshold{Cutoff: HighThreshold},
			Adaptive{},
			ColorMask{Ranges: UIText()},
		},
	}
}

// Sets serves Primary and Context to the scanner.
type Sets struct{}

func (Sets) Primary(threshold int) recognition.StrategySet { return Primary(threshold) }

func (Sets) Context() recognition.StrategySet { return Context() }

// UIText returns the gold, white and red ranges together.
func UIText() []HSVRange {
	out := make([]HSVRange, 0, len(Gold)+len(White)+len(Red))
	out = append(out, Gold...)
	out = append(out, White...)
	return append(out, Red...)
}

// Threshold converts to grayscale and applies a global binary threshold.
type Threshold struct {
	Cutoff int
}

func (t Threshold) Name() string { return fmt.Sprintf("threshold_%d", t.Cutoff) }

func (t Threshold) Apply(img image.Image) (image.Image, error) {
	gray, err := grayscale(img)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	out := gocv.NewMat()
	defer out.Close()
	gocv.Threshold(gray, &out, float32(t.Cutoff), 255, gocv.ThresholdBinary)
	return toImage(out)
}

// Adaptive applies Gaussian-weighted local thresholding.
type Adaptive struct{}

func (Adaptive) Name() string { return "adaptive" }

func (Adaptive) Apply(img image.Image) (image.Image, error) {
	gray, err := grayscale(img)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	out := gocv.NewMat()
	defer out.Close()
	gocv.AdaptiveThreshold(gray, &out, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinary, adaptiveBlockSize, adaptiveC)
	return toImage(out)
}

// ColorMask keeps only pixels inside any of the HSV ranges.
type ColorMask struct {
	Ranges []HSVRange
}

func (ColorMask) Name() string { return "color_mask" }

func (c ColorMask) Apply(img image.Image) (image.Image, error) {
	if len(c.Ranges) == 0 {
		return nil, apperrors.New(apperrors.CodeOCRInvalidImage, "color mask has no ranges")
	}
	src, err := toMat(img)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(src, &hsv, gocv.ColorBGRToHSV)

	combined := gocv.NewMat()
	defer combined.Close()
	for i, r := range c.Ranges {
		mask := gocv.NewMat()
		gocv.InRangeWithScalar(hsv,
			gocv.NewScalar(r.Lower[0], r.Lower[1], r.Lower[2], 0),
			gocv.NewScalar(r.Upper[0], r.Upper[1], r.Upper[2], 0),
			&mask)
		if i == 0 {
			mask.CopyTo(&combined)
		} else {
			gocv.BitwiseOr(combined, mask, &combined)
		}
		mask.Close()
	}
	return toImage(combined)
}

func toMat(img image.Image) (gocv.Mat, error) {
	if img == nil || img.Bounds().Empty() {
		return gocv.Mat{}, apperrors.New(apperrors.CodeOCRInvalidImage, "empty frame")
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.Mat{}, apperrors.Wrap(err, apperrors.CodeOCRInvalidImage, "convert frame")
	}
	return mat, nil
}

func grayscale(img image.Image) (gocv.Mat, error) {
	src, err := toMat(img)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer src.Close()

	gray := gocv.NewMat()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	return gray, nil
}

func toImage(m gocv.Mat) (image.Image, error) {
	img, err := m.ToImage()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeOCRInvalidImage, "convert mask")
	}
	return img, nil
}
