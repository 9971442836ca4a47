// Package geostamp stamps photos with a location and capture time panel.
//
// A photo's EXIF block is searched for GPS coordinates and the original
// capture timestamp. Together with a caller supplied address they are drawn
// onto a copy of the photo next to a small map thumbnail, and the result is
// encoded back into the photo's original container format.
//
// Basic usage:
//
//	stamper, err := geostamp.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer stamper.Close()
//
//	f, _ := os.Open("photo.jpg")
//	defer f.Close()
//
//	result, err := stamper.Process(ctx, f, types.Location{
//		Address: "Survey No. 3/4, Kondhwa",
//		City:    "Pune",
//		State:   "Maharashtra",
//		Country: "India",
//	})
//	if err != nil {
//		log.Fatal(err) // errors.Is(err, geostamp.ErrProcessingFailed)
//	}
//	os.WriteFile("photo_stamped."+result.Extension(), result.Data, 0644)
//
// Every failure is reported as a *ProcessingError. It matches
// ErrProcessingFailed with errors.Is and unwraps to the specific cause, such
// as exifmeta.ErrMissingGeoTag or overlay.ErrThumbnailUnavailable.
package geostamp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/geostamp/pkg/exifmeta"
	"github.com/menta2k/geostamp/pkg/overlay"
	"github.com/menta2k/geostamp/pkg/processing"
	"github.com/menta2k/geostamp/pkg/types"
)

// Version of the geostamp library
const Version = "1.0.0"

// DefaultThumbnailURL is the map thumbnail used when none is configured
const DefaultThumbnailURL = "https://i.postimg.cc/brvbvFQt/mapsthumbnail.png"

// ErrProcessingFailed is the single externally visible failure
var ErrProcessingFailed = errors.New("processing failed")

// Processing stages reported in ProcessingError
const (
	StageRead     = "read"
	StageDecode   = "decode"
	StageMetadata = "metadata"
	StageCompose  = "compose"
	StageEncode   = "encode"
	StageWrite    = "write"
)

// ProcessingError records the stage and cause of a failed run
type ProcessingError struct {
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing failed at %s: %v", e.Stage, e.Err)
}

// Is reports whether target is ErrProcessingFailed
func (e *ProcessingError) Is(target error) bool {
	return target == ErrProcessingFailed
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// Config holds the settings of a Stamper
type Config struct {
	Style        overlay.Style
	Processing   processing.Config
	ThumbnailURL string
}

// DefaultConfig returns the stock settings
func DefaultConfig() Config {
	return Config{
		Style:        overlay.DefaultStyle(),
		Processing:   processing.DefaultConfig(),
		ThumbnailURL: DefaultThumbnailURL,
	}
}

// Stamper runs the extract, compose and encode pipeline. It is safe for
// concurrent use.
type Stamper struct {
	processor  *processing.Processor
	compositor *overlay.Compositor
	log        logrus.FieldLogger
}

// New creates a Stamper with default configuration
func New() (*Stamper, error) {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a Stamper that fetches its thumbnail from
// cfg.ThumbnailURL.
func NewWithConfig(cfg Config) (*Stamper, error) {
	processor := processing.NewWithConfig(cfg.Processing)
	url := cfg.ThumbnailURL
	if url == "" {
		url = DefaultThumbnailURL
	}
	return newStamper(cfg, processor, processor.ThumbnailSource(url))
}

// NewWithThumbnails creates a Stamper with a custom thumbnail source
func NewWithThumbnails(cfg Config, thumbs overlay.ThumbnailSource) (*Stamper, error) {
	return newStamper(cfg, processing.NewWithConfig(cfg.Processing), thumbs)
}

func newStamper(cfg Config, processor *processing.Processor, thumbs overlay.ThumbnailSource) (*Stamper, error) {
	compositor, err := overlay.NewWithStyle(cfg.Style, thumbs)
	if err != nil {
		return nil, fmt.Errorf("failed to create compositor: %w", err)
	}
	log := logrus.StandardLogger()
	compositor.SetLogger(log)
	return &Stamper{
		processor:  processor,
		compositor: compositor,
		log:        log,
	}, nil
}

// SetLogger replaces the logger used for diagnostics
func (s *Stamper) SetLogger(log logrus.FieldLogger) {
	if log == nil {
		return
	}
	s.log = log
	s.compositor.SetLogger(log)
}

// Processor returns the underlying image processor
func (s *Stamper) Processor() *processing.Processor {
	return s.processor
}

// Close releases font resources
func (s *Stamper) Close() error {
	return s.compositor.Close()
}

// Process reads an encoded photo and returns the stamped photo in the same
// format. On failure no result is returned.
func (s *Stamper) Process(ctx context.Context, r io.Reader, loc types.Location) (*types.Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, s.fail(StageRead, err)
	}
	return s.ProcessBytes(ctx, data, loc)
}

// ProcessBytes is Process over an in-memory photo
func (s *Stamper) ProcessBytes(ctx context.Context, data []byte, loc types.Location) (*types.Result, error) {
	img, format, err := s.decode(data)
	if err != nil {
		return nil, s.fail(StageDecode, err)
	}

	geo, ts, err := s.extract(data)
	if err != nil {
		return nil, s.fail(StageMetadata, err)
	}

	out, lines, err := s.compositor.Compose(ctx, img, geo, ts, loc)
	if err != nil {
		return nil, s.fail(StageCompose, err)
	}

	encoded, err := s.processor.EncodeBytes(out, format)
	if err != nil {
		return nil, s.fail(StageEncode, err)
	}

	s.log.WithFields(logrus.Fields{
		"format": format,
		"width":  out.Bounds().Dx(),
		"height": out.Bounds().Dy(),
		"bytes":  len(encoded),
	}).Info("Stamped image")

	return &types.Result{
		Data:        encoded,
		Format:      format,
		ContentType: processing.ContentType(format),
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		Timestamp:   ts,
		Lines:       lines.Slice(),
	}, nil
}

// ProcessFile stamps inputPath and writes the result to outputPath
func (s *Stamper) ProcessFile(ctx context.Context, inputPath, outputPath string, loc types.Location) (*types.Result, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, s.fail(StageRead, err)
	}

	result, err := s.ProcessBytes(ctx, data, loc)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(outputPath, result.Data, 0644); err != nil {
		return nil, s.fail(StageWrite, err)
	}
	return result, nil
}

// Inspect returns the metadata the panel would be built from
func (s *Stamper) Inspect(r io.Reader) (*types.Inspection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, s.fail(StageRead, err)
	}

	img, format, err := s.decode(data)
	if err != nil {
		return nil, s.fail(StageDecode, err)
	}

	geo, ts, err := s.extract(data)
	if err != nil {
		return nil, s.fail(StageMetadata, err)
	}

	return &types.Inspection{
		GeoTags:   geo,
		Timestamp: ts,
		Format:    format,
		Width:     img.Bounds().Dx(),
		Height:    img.Bounds().Dy(),
	}, nil
}

// DebugOverlay outlines the thumbnail and panel regions and marks each text
// origin on a stamped result.
func (s *Stamper) DebugOverlay(result *types.Result) ([]byte, error) {
	img, format, err := s.processor.DecodeBytes(result.Data)
	if err != nil {
		return nil, err
	}

	var lines overlay.Lines
	copy(lines[:], result.Lines)
	layout := s.compositor.Layout(img.Bounds(), lines)

	size := s.compositor.Style().ThumbnailSize
	thumb := layout.Geometry.Thumbnail
	regions := []image.Rectangle{
		image.Rect(thumb.X, thumb.Y, thumb.X+size, thumb.Y+size),
		layout.Panel,
	}
	markers := layout.Origins[:]

	return s.processor.EncodeBytes(s.processor.CreateDebugOverlay(img, regions, markers), format)
}

// decode rejects images with an empty canvas along with undecodable ones
func (s *Stamper) decode(data []byte) (image.Image, string, error) {
	img, format, err := s.processor.DecodeBytes(data)
	if err != nil {
		return nil, "", err
	}
	if err := s.processor.ValidateImage(img); err != nil {
		return nil, "", err
	}
	return img, format, nil
}

func (s *Stamper) extract(data []byte) (exifmeta.GeoInfo, string, error) {
	block, err := exifmeta.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	geo, err := exifmeta.ExtractGeotagging(block)
	if err != nil {
		return nil, "", err
	}
	ts, err := exifmeta.ExtractCaptureTimestamp(block)
	if err != nil {
		return nil, "", err
	}
	return geo, ts, nil
}

func (s *Stamper) fail(stage string, err error) error {
	s.log.WithFields(logrus.Fields{
		"stage": stage,
		"cause": err.Error(),
	}).Error("Unable to process image")
	return &ProcessingError{Stage: stage, Err: err}
}
