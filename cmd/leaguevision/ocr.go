package main

import (
	"encoding/json"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/league-vision/internal/config"
	"github.com/GriffinCanCode/league-vision/internal/detect"
	apperrors "github.com/GriffinCanCode/league-vision/internal/errors"
	"github.com/GriffinCanCode/league-vision/internal/recognition"
	"github.com/GriffinCanCode/league-vision/internal/recognition/preprocess"
	"github.com/GriffinCanCode/league-vision/internal/recognition/tesseract"
	"github.com/GriffinCanCode/league-vision/internal/syndicate"
	"github.com/GriffinCanCode/league-vision/internal/vision"
)

// ocrReport is printed by the ocr command.
type ocrReport struct {
	Strategy string          `json:"strategy"`
	Text     string          `json:"text"`
	Tokens   []vision.Token  `json:"tokens"`
	Source   string          `json:"source,omitempty"`
	Finding  *vision.Finding `json:"finding,omitempty"`
	Found    bool            `json:"found"`
}

func newOCRCmd() *cobra.Command {
	var (
		set      string
		hideout  bool
		hintName string
	)

	cmd := &cobra.Command{
		Use:   "ocr <image>",
		Short: "Recognize an image file once and run the detectors over it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger := setupLogger(cfg)
			v := loadStore(cfg.VisionConfig, logger).Snapshot().Vision

			img, err := readImage(args[0])
			if err != nil {
				return err
			}

			prefix := cfg.TessdataPrefix
			if v.TessdataPrefix != "" {
				prefix = v.TessdataPrefix
			}
			engine, err := tesseract.New(tesseract.Config{TessdataPrefix: prefix, Logger: logger})
			if err != nil {
				return err
			}
			defer engine.Close()

			strategies := preprocess.Primary(v.OCRThreshold)
			if set == "context" {
				strategies = preprocess.Context()
			}
			hint := recognition.ParseLayoutHint(v.LayoutHint)
			if hintName != "" {
				hint = recognition.ParseLayoutHint(hintName)
			}

			pipeline := recognition.NewPipeline(engine, recognition.WithLogger(logger))
			res := pipeline.Run(cmd.Context(), img, vision.RectFromImage(img.Bounds()), strategies, hint)

			var negotiation detect.Detector
			if v.Syndicate.Enabled {
				negotiation = syndicate.New(v.Syndicate, logger)
			}
			eval := detect.Build(v, negotiation).Evaluate(detect.NewInput(res.Tokens, res.Text, time.Now()), hideout)

			report := ocrReport{Strategy: res.Strategy, Text: res.Text, Tokens: res.Tokens, Found: eval.Found}
			if eval.HasFinding() {
				f := eval.Finding
				report.Source, report.Finding = eval.Source, &f
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().StringVar(&set, "set", "primary", "strategy set: primary or context")
	cmd.Flags().BoolVar(&hideout, "hideout", false, "evaluate as if in a hideout")
	cmd.Flags().StringVar(&hintName, "layout", "", "layout hint override (auto, block, line, sparse)")
	return cmd
}

func readImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidArgument, "open image").WithMetadata("path", path)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeOCRInvalidImage, "decode image").WithMetadata("path", path)
	}
	return img, nil
}
