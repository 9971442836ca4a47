package overlay

import (
	"image"

	"github.com/menta2k/geostamp/pkg/types"
)

// Anchor offsets relative to the horizontal midpoint and the bottom edge
const (
	thumbnailOffsetX = -365
	thumbnailOffsetY = -212
	panelOffsetX     = -175
	panelOffsetY     = -200
	textOffsetX      = -165
	textOffsetY      = -200
)

// Geometry holds the anchors of one image's overlay. Coordinates are relative
// to the image's top-left corner.
type Geometry struct {
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	Mid       int         `json:"mid"`
	Thumbnail types.Point `json:"thumbnail"`
	Panel     types.Point `json:"panel"`
	Text      types.Point `json:"text"`
}

// ComputeGeometry derives the overlay anchors from the image bounds
func ComputeGeometry(bounds image.Rectangle) Geometry {
	w, h := bounds.Dx(), bounds.Dy()
	mid := w / 2
	return Geometry{
		Width:     w,
		Height:    h,
		Mid:       mid,
		Thumbnail: types.Point{X: mid + thumbnailOffsetX, Y: h + thumbnailOffsetY},
		Panel:     types.Point{X: mid + panelOffsetX, Y: h + panelOffsetY},
		Text:      types.Point{X: mid + textOffsetX, Y: h + textOffsetY},
	}
}

// PanelRect returns the backing rectangle for a panel of the given size,
// shifted up and left by the padding.
func (g Geometry) PanelRect(size types.Size, padding int) image.Rectangle {
	min := image.Pt(g.Panel.X-padding, g.Panel.Y-padding)
	return image.Rectangle{Min: min, Max: min.Add(image.Pt(size.W, size.H))}
}

func toPoint(p types.Point) image.Point {
	return image.Pt(p.X, p.Y)
}
