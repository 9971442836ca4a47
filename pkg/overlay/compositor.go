// Package overlay draws the location and capture time panel onto a photo.
package overlay

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"

	"github.com/menta2k/geostamp/pkg/exifmeta"
	"github.com/menta2k/geostamp/pkg/types"
)

// Compositor draws the information panel. It is safe for concurrent use.
type Compositor struct {
	style  Style
	thumbs ThumbnailSource
	log    logrus.FieldLogger

	// font faces keep glyph caches and are not safe for concurrent use
	mu    sync.Mutex
	fonts *FontSet
}

// Layout is the resolved placement of a panel on one image
type Layout struct {
	Geometry Geometry
	MaxWidth int
	Panel    image.Rectangle
	Origins  [LineCount]image.Point
}

// New creates a Compositor with the default style
func New(thumbs ThumbnailSource) (*Compositor, error) {
	return NewWithStyle(DefaultStyle(), thumbs)
}

// NewWithStyle creates a Compositor with a custom style. Fonts are loaded
// once here and reused for every image.
func NewWithStyle(style Style, thumbs ThumbnailSource) (*Compositor, error) {
	if err := style.Validate(); err != nil {
		return nil, fmt.Errorf("invalid overlay style: %w", err)
	}
	fonts, err := LoadFontSet(style.FontSource, style.FontPath, style.LargeFontSize, style.SmallFontSize)
	if err != nil {
		return nil, err
	}
	return &Compositor{
		style:  style,
		thumbs: thumbs,
		log:    logrus.StandardLogger(),
		fonts:  fonts,
	}, nil
}

// SetLogger replaces the logger used for layout diagnostics
func (c *Compositor) SetLogger(log logrus.FieldLogger) {
	if log != nil {
		c.log = log
	}
}

// Style returns the compositor's style
func (c *Compositor) Style() Style {
	return c.style
}

// Close releases the font faces
func (c *Compositor) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fonts.Close()
}

// Compose returns a copy of img with the thumbnail and information panel
// drawn on it, along with the panel text. img itself is never modified.
// Metadata is validated before the thumbnail is fetched.
func (c *Compositor) Compose(ctx context.Context, img image.Image, geo exifmeta.GeoInfo, ts string, loc types.Location) (*image.NRGBA, Lines, error) {
	lines, err := BuildLines(geo, ts, loc, c.style)
	if err != nil {
		return nil, Lines{}, err
	}

	thumb, err := c.fetchThumbnail(ctx)
	if err != nil {
		return nil, Lines{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	layout := c.layout(img.Bounds(), lines)
	c.log.WithFields(logrus.Fields{
		"width":     layout.Geometry.Width,
		"height":    layout.Geometry.Height,
		"max_width": layout.MaxWidth,
		"panel":     layout.Panel.String(),
	}).Debug("Composing overlay")

	b := NewBuilder().
		Thumbnail(thumb, toPoint(layout.Geometry.Thumbnail)).
		Panel(layout.Panel, c.style.PanelColor)
	for i, line := range lines {
		b.Text(c.faceFor(i), line, layout.Origins[i], c.style.TextColor)
	}
	return b.Render(img), lines, nil
}

// Layout computes the panel placement for lines on an image with the given
// bounds, without drawing anything.
func (c *Compositor) Layout(bounds image.Rectangle, lines Lines) Layout {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layout(bounds, lines)
}

func (c *Compositor) layout(bounds image.Rectangle, lines Lines) Layout {
	geo := ComputeGeometry(bounds)

	// every line is measured with the large face so the panel never clips
	maxWidth := 0
	for _, line := range lines {
		if w := measure(c.fonts.Large, line); w > maxWidth {
			maxWidth = w
		}
	}

	size := types.Size{
		W: maxWidth - c.style.PanelWidthOffset,
		H: LineCount*int(c.style.LargeFontSize) + 5,
	}
	if size.W < 0 {
		size.W = 0
	}

	var origins [LineCount]image.Point
	at := toPoint(geo.Text)
	for i := range lines {
		origins[i] = at
		at.Y += c.advance(i)
	}

	return Layout{
		Geometry: geo,
		MaxWidth: maxWidth,
		Panel:    geo.PanelRect(size, c.style.PanelPadding),
		Origins:  origins,
	}
}

func (c *Compositor) faceFor(line int) font.Face {
	if line == 0 {
		return c.fonts.Large
	}
	return c.fonts.Small
}

func (c *Compositor) advance(line int) int {
	if line == 0 {
		return int(c.style.LargeFontSize) + c.style.LargeLeading
	}
	return int(c.style.SmallFontSize) + c.style.SmallLeading
}

func (c *Compositor) fetchThumbnail(ctx context.Context) (image.Image, error) {
	if c.thumbs == nil {
		return nil, fmt.Errorf("%w: no thumbnail source configured", ErrThumbnailUnavailable)
	}
	thumb, err := c.thumbs.Thumbnail(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrThumbnailUnavailable, err)
	}
	if thumb == nil {
		return nil, fmt.Errorf("%w: empty image", ErrThumbnailUnavailable)
	}
	size := c.style.ThumbnailSize
	return imaging.Resize(thumb, size, size, imaging.Lanczos), nil
}
