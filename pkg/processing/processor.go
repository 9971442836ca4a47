package processing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/geostamp/pkg/overlay"
)

// ErrUnsupportedFormat is returned when an image cannot be decoded or
// re-encoded in its container format.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// DefaultUserAgent is sent with every remote image request
const DefaultUserAgent = "geostamp/1.0 (+https://github.com/menta2k/geostamp)"

// Processor decodes and encodes photos and fetches remote images
type Processor struct {
	config Config
	client *http.Client
}

// Config holds encoder and fetch settings
type Config struct {
	JPEGQuality  int
	WebPQuality  int
	WebPLossless bool
	// FetchTimeout bounds a remote fetch; zero means the caller's context
	// is the only limit.
	FetchTimeout time.Duration
	UserAgent    string
}

// DefaultConfig returns the stock encoder settings
func DefaultConfig() Config {
	return Config{
		JPEGQuality: 90,
		WebPQuality: 90,
		UserAgent:   DefaultUserAgent,
	}
}

// NewProcessor creates a processor with default configuration
func NewProcessor() *Processor {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a processor with custom configuration
func NewWithConfig(config Config) *Processor {
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	return &Processor{
		config: config,
		client: &http.Client{Timeout: config.FetchTimeout},
	}
}

// SetHTTPClient replaces the client used for remote fetches
func (p *Processor) SetHTTPClient(client *http.Client) {
	if client != nil {
		p.client = client
	}
}

// Config returns the processor configuration
func (p *Processor) Config() Config {
	return p.config
}

// LoadImageFromURL downloads and decodes an image with a single attempt
func (p *Processor) LoadImageFromURL(ctx context.Context, imageURL string) (image.Image, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", p.config.UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	img, _, err := p.DecodeBytes(imageData)
	return img, err
}

// ThumbnailSource returns a source that fetches imageURL on every call
func (p *Processor) ThumbnailSource(imageURL string) overlay.ThumbnailSource {
	return overlay.ThumbnailFunc(func(ctx context.Context) (image.Image, error) {
		return p.LoadImageFromURL(ctx, imageURL)
	})
}

// Decode reads an image and reports its container format
func (p *Processor) Decode(r io.Reader) (image.Image, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	return p.DecodeBytes(data)
}

// DecodeBytes decodes image data with every registered decoder and falls
// back to the libwebp decoder for WebP variants the pure Go one rejects.
func (p *Processor) DecodeBytes(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return img, format, nil
	}

	if wimg, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
		return wimg, "webp", nil
	}

	return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
}

// Encode writes img in the named container format
func (p *Processor) Encode(w io.Writer, img image.Image, format string) error {
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: p.config.JPEGQuality})
	case "png":
		return png.Encode(w, img)
	case "gif":
		return gif.Encode(w, img, nil)
	case "webp":
		opts := &webp.Options{Lossless: p.config.WebPLossless, Quality: float32(p.config.WebPQuality)}
		return webp.Encode(w, img, opts)
	case "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case "bmp":
		return bmp.Encode(w, img)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// EncodeBytes is Encode into a fresh buffer
func (p *Processor) EncodeBytes(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Encode(&buf, img, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ContentType returns the MIME type for a container format
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png", "gif", "webp", "tiff", "bmp":
		return "image/" + strings.ToLower(format)
	default:
		return "application/octet-stream"
	}
}

// ValidateImage rejects images with an empty canvas
func (p *Processor) ValidateImage(img image.Image) error {
	bounds := img.Bounds()
	if bounds.Dx() < 1 || bounds.Dy() < 1 {
		return fmt.Errorf("image too small: %dx%d", bounds.Dx(), bounds.Dy())
	}
	return nil
}

// CreateDebugOverlay outlines the given regions on a copy of img.
// Regions cycle through green, gold and blue; markers are drawn as red
// crosshairs.
func (p *Processor) CreateDebugOverlay(img image.Image, regions []image.Rectangle, markers []image.Point) *image.NRGBA {
	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()

	palette := []color.NRGBA{
		{0, 255, 0, 255},   // thumbnail
		{255, 204, 0, 255}, // panel
		{0, 170, 255, 255}, // text
	}
	red := color.NRGBA{255, 0, 0, 255}
	stroke := int(math.Max(2, 0.004*float64(minInt(w, h))))
	cross := int(math.Max(4, 0.01*float64(minInt(w, h))))

	for i, r := range regions {
		drawBox(nrgba, r, palette[i%len(palette)], stroke)
	}
	for _, m := range markers {
		drawHLine(nrgba, m.Y, m.X-cross, m.X+cross, red)
		drawVLine(nrgba, m.X, m.Y-cross, m.Y+cross, red)
	}

	return nrgba
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func drawBox(img *image.NRGBA, r image.Rectangle, color color.NRGBA, stroke int) {
	x0, y0, x1, y1 := r.Min.X, r.Min.Y, r.Max.X, r.Max.Y
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	for s := 0; s < stroke; s++ {
		drawHLine(img, y0+s, x0, x1, color)
		drawHLine(img, y1-1-s, x0, x1, color)
		drawVLine(img, x0+s, y0, y1, color)
		drawVLine(img, x1-1-s, y0, y1, color)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > img.Bounds().Dx() {
		x1 = img.Bounds().Dx()
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > img.Bounds().Dy() {
		y1 = img.Bounds().Dy()
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
