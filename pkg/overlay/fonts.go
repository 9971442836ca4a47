package overlay

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// FontSet holds the two faces used by the panel
type FontSet struct {
	Large font.Face
	Small font.Face
}

// LoadFontSet parses the configured typeface and creates both faces.
// Faces use 72 DPI so that the size is in pixels.
func LoadFontSet(source, path string, large, small float64) (*FontSet, error) {
	data, err := fontData(source, path)
	if err != nil {
		return nil, err
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parse font: %v", ErrFontUnavailable, err)
	}

	largeFace, err := newFace(f, large)
	if err != nil {
		return nil, err
	}
	smallFace, err := newFace(f, small)
	if err != nil {
		largeFace.Close()
		return nil, err
	}
	return &FontSet{Large: largeFace, Small: smallFace}, nil
}

func fontData(source, path string) ([]byte, error) {
	switch source {
	case FontSourceEmbedded, "":
		return goregular.TTF, nil
	case FontSourcePath:
		if path == "" {
			return nil, fmt.Errorf("%w: no font path configured", ErrFontUnavailable)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFontUnavailable, err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: unknown font source %q", ErrFontUnavailable, source)
	}
}

func newFace(f *opentype.Font, size float64) (font.Face, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: face at %vpx: %v", ErrFontUnavailable, size, err)
	}
	return face, nil
}

// Close releases both faces
func (fs *FontSet) Close() error {
	if fs == nil {
		return nil
	}
	err := fs.Large.Close()
	if serr := fs.Small.Close(); err == nil {
		err = serr
	}
	return err
}

// measure returns the right edge of the inked area of s drawn at x=0
func measure(face font.Face, s string) int {
	bounds, _ := font.BoundString(face, s)
	if bounds.Max.X <= 0 {
		return 0
	}
	return bounds.Max.X.Ceil()
}

// ascent is the distance from the top of the line box to the baseline
func ascent(face font.Face) fixed.Int26_6 {
	return face.Metrics().Ascent
}
