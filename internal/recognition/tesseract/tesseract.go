// Package tesseract adapts gosseract to the recognition Engine interface.
package tesseract

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"log/slog"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	apperrors "github.com/GriffinCanCode/league-vision/internal/errors"
	"github.com/GriffinCanCode/league-vision/internal/recognition"
	"github.com/GriffinCanCode/league-vision/internal/vision"
)

const defaultLanguage = "eng"

// Config controls the Tesseract client.
type Config struct {
	// TessdataPrefix points at the tessdata directory; empty uses the system default.
	TessdataPrefix string
	Languages      []string
	Logger         *slog.Logger
}

// Engine recognizes words with a single reusable Tesseract client.
// gosseract clients are not safe for concurrent use, so calls are serialized.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
	logger *slog.Logger
}

// New creates an engine. It fails with OCR_INIT_FAILED when the data path
// or language cannot be applied.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	langs := cfg.Languages
	if len(langs) == 0 {
		langs = []string{defaultLanguage}
	}

	client := gosseract.NewClient()
	if cfg.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(cfg.TessdataPrefix); err != nil {
			client.Close()
			return nil, apperrors.Wrap(err, apperrors.CodeOCRInitFailed, "set tessdata prefix").
				WithMetadata("prefix", cfg.TessdataPrefix)
		}
	}
	if err := client.SetLanguage(langs...); err != nil {
		client.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeOCRInitFailed, "set language").
			WithMetadata("languages", strings.Join(langs, "+"))
	}

	logger.Info("Tesseract engine ready", "version", client.Version(), "languages", langs)
	return &Engine{client: client, logger: logger}, nil
}

// Recognize returns the words found in img, in reading order.
func (e *Engine) Recognize(ctx context.Context, img image.Image, hint recognition.LayoutHint) ([]vision.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img == nil || img.Bounds().Empty() {
		return nil, apperrors.New(apperrors.CodeOCRInvalidImage, "empty frame")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeOCRInvalidImage, "encode frame")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client == nil {
		return nil, apperrors.New(apperrors.CodeOCRInitFailed, "engine closed")
	}
	if err := e.client.SetPageSegMode(pageSegMode(hint)); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeOCRExtractFailed, "set page seg mode")
	}
	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeOCRInvalidImage, "load frame")
	}
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeOCRExtractFailed, "extract words")
	}
	return tokensFrom(boxes, img.Bounds().Min), nil
}

// Close releases the Tesseract client.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}

func pageSegMode(h recognition.LayoutHint) gosseract.PageSegMode {
	switch h {
	case recognition.LayoutBlock:
		return gosseract.PSM_SINGLE_BLOCK
	case recognition.LayoutLine:
		return gosseract.PSM_SINGLE_LINE
	case recognition.LayoutSparse:
		return gosseract.PSM_SPARSE_TEXT
	default:
		return gosseract.PSM_AUTO
	}
}

// tokensFrom converts word boxes to tokens relative to the frame origin.
func tokensFrom(boxes []gosseract.BoundingBox, origin image.Point) []vision.Token {
	tokens := make([]vision.Token, 0, len(boxes))
	for _, b := range boxes {
		word := strings.TrimSpace(b.Word)
		if word == "" {
			continue
		}
		r := b.Box.Sub(origin)
		tokens = append(tokens, vision.Token{
			Text:   word,
			X:      r.Min.X,
			Y:      r.Min.Y,
			Width:  r.Dx(),
			Height: r.Dy(),
		})
	}
	return tokens
}
