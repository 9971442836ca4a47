package overlay

import (
	"fmt"
	"image/color"
)

// Font sources understood by LoadFontSet
const (
	FontSourceEmbedded = "embedded-default"
	FontSourcePath     = "path"
)

// Style holds the tunable constants of the information panel. The offsets
// are empirical; they are kept as data so deployments can adjust them.
type Style struct {
	TimezoneLabel string
	Attribution   string

	LargeFontSize float64
	SmallFontSize float64
	LargeLeading  int // extra advance after the large line
	SmallLeading  int // extra advance after each small line

	ThumbnailSize int
	// PanelWidthOffset is subtracted from the widest measured line
	PanelWidthOffset int
	PanelPadding     int
	PanelColor       color.NRGBA
	TextColor        color.NRGBA

	FontSource string
	FontPath   string
}

// DefaultStyle returns the stock panel layout
func DefaultStyle() Style {
	return Style{
		TimezoneLabel:    "IST (UTC+5:30)",
		Attribution:      "Social Welfare and Development Committee, VIT Pune",
		LargeFontSize:    35,
		SmallFontSize:    22,
		LargeLeading:     13,
		SmallLeading:     8,
		ThumbnailSize:    180,
		PanelWidthOffset: 290,
		PanelPadding:     10,
		PanelColor:       color.NRGBA{0, 0, 0, 128},
		TextColor:        color.NRGBA{255, 255, 255, 255},
		FontSource:       FontSourceEmbedded,
	}
}

// Validate checks the style for values the compositor cannot render
func (s Style) Validate() error {
	if s.LargeFontSize <= 0 || s.SmallFontSize <= 0 {
		return fmt.Errorf("font sizes must be positive (large=%v, small=%v)", s.LargeFontSize, s.SmallFontSize)
	}
	if s.ThumbnailSize <= 0 {
		return fmt.Errorf("thumbnail size must be positive, got %d", s.ThumbnailSize)
	}
	switch s.FontSource {
	case FontSourceEmbedded:
	case FontSourcePath:
		if s.FontPath == "" {
			return fmt.Errorf("font source %q requires a font path", FontSourcePath)
		}
	default:
		return fmt.Errorf("unknown font source %q", s.FontSource)
	}
	return nil
}
