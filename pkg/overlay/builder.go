package overlay

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Op is a single drawing step. Apply returns the canvas to use for the next
// step, which may be dst itself.
type Op interface {
	Apply(dst *image.NRGBA) *image.NRGBA
}

// Builder records drawing operations and replays them, in order, on a copy
// of a source image.
type Builder struct {
	ops []Op
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Thumbnail pastes img with its top-left corner at at, honouring alpha
func (b *Builder) Thumbnail(img image.Image, at image.Point) *Builder {
	b.ops = append(b.ops, pasteOp{img: img, at: at})
	return b
}

// Panel blends a filled rectangle over the canvas
func (b *Builder) Panel(r image.Rectangle, c color.NRGBA) *Builder {
	b.ops = append(b.ops, panelOp{rect: r, color: c})
	return b
}

// Text draws s with its line box top-left at at
func (b *Builder) Text(face font.Face, s string, at image.Point, c color.Color) *Builder {
	b.ops = append(b.ops, TextOp{Face: face, Text: s, At: at, Color: c})
	return b
}

// Ops returns the recorded operations
func (b *Builder) Ops() []Op {
	out := make([]Op, len(b.ops))
	copy(out, b.ops)
	return out
}

// Render applies every operation to a clone of src. src is not modified.
func (b *Builder) Render(src image.Image) *image.NRGBA {
	canvas := imaging.Clone(src)
	for _, op := range b.ops {
		canvas = op.Apply(canvas)
	}
	return canvas
}

type pasteOp struct {
	img image.Image
	at  image.Point
}

func (op pasteOp) Apply(dst *image.NRGBA) *image.NRGBA {
	return imaging.Overlay(dst, op.img, op.at, 1.0)
}

type panelOp struct {
	rect  image.Rectangle
	color color.NRGBA
}

func (op panelOp) Apply(dst *image.NRGBA) *image.NRGBA {
	if op.rect.Dx() <= 0 || op.rect.Dy() <= 0 {
		return dst
	}
	fill := imaging.New(op.rect.Dx(), op.rect.Dy(), op.color)
	return imaging.Overlay(dst, fill, op.rect.Min, 1.0)
}

// TextOp draws one line of text
type TextOp struct {
	Face  font.Face
	Text  string
	At    image.Point
	Color color.Color
}

func (op TextOp) Apply(dst *image.NRGBA) *image.NRGBA {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(op.Color),
		Face: op.Face,
		Dot:  fixed.P(op.At.X, op.At.Y).Add(fixed.Point26_6{Y: ascent(op.Face)}),
	}
	d.DrawString(op.Text)
	return dst
}
