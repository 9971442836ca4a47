package exifmeta

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// Decode reads the EXIF segment of a JPEG or TIFF stream and returns it as a
// Block. GPS tags are nested in a GPSBlock stored under the GPSInfo id.
func Decode(r io.Reader) (Block, error) {
	x, err := exif.Decode(r)
	if x == nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingMetadata, err)
	}
	if err != nil && exif.IsCriticalError(err) {
		return nil, fmt.Errorf("%w: %v", ErrMissingMetadata, err)
	}

	w := &blockWalker{
		block: make(Block),
		gps:   make(GPSBlock),
	}
	if err := x.Walk(w); err != nil {
		return nil, fmt.Errorf("walk exif: %w", err)
	}
	w.loadUnnamedGPS(x)

	gpsID, _ := Lookup(GPSInfoTag)
	if _, ok := w.block[gpsID]; ok || len(w.gps) > 0 {
		w.block[gpsID] = w.gps
	}
	return w.block, nil
}

// blockWalker sorts decoded tags into the main block and the GPS sub-block.
// goexif flattens every IFD into one namespace, so GPS tags are recognised
// by their field name rather than by id, since GPS ids overlap other IFDs.
type blockWalker struct {
	block Block
	gps   GPSBlock
}

func (w *blockWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if tag == nil {
		return nil
	}
	if isGPSField(name) {
		w.gps[tag.Id] = tagValue(tag)
		return nil
	}
	w.block[tag.Id] = tagValue(tag)
	return nil
}

// loadUnnamedGPS adds the GPS sub-IFD tags goexif has no field name for, such
// as GPSHPositioningError. goexif drops those while loading, so the sub-IFD
// is read again from the raw segment. Read failures were already reported by
// exif.Decode and are ignored here.
func (w *blockWalker) loadUnnamedGPS(x *exif.Exif) {
	ptr, err := x.Get(exif.GPSInfoIFDPointer)
	if err != nil || x.Tiff == nil {
		return
	}
	offset, err := ptr.Int64(0)
	if err != nil {
		return
	}

	r := bytes.NewReader(x.Raw)
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return
	}
	dir, _, err := tiff.DecodeDir(r, x.Tiff.Order)
	if err != nil {
		return
	}
	for _, tag := range dir.Tags {
		if _, ok := w.gps[tag.Id]; !ok {
			w.gps[tag.Id] = tagValue(tag)
		}
	}
}

func isGPSField(name exif.FieldName) bool {
	return name != exif.GPSInfoIFDPointer && strings.HasPrefix(string(name), "GPS")
}

// tagValue converts a TIFF tag into a plain Go value. Single element numeric
// tags collapse to scalars; longer ones stay slices.
func tagValue(tag *tiff.Tag) any {
	n := int(tag.Count)

	switch tag.Format() {
	case tiff.StringVal:
		s, err := tag.StringVal()
		if err != nil {
			return string(tag.Val)
		}
		return s
	case tiff.RatVal:
		vals := make([]float64, 0, n)
		for i := 0; i < n; i++ {
			num, den, err := tag.Rat2(i)
			if err != nil {
				break
			}
			vals = append(vals, float64(num)/float64(den))
		}
		if len(vals) == 1 {
			return vals[0]
		}
		return vals
	case tiff.IntVal:
		vals := make([]int64, 0, n)
		for i := 0; i < n; i++ {
			v, err := tag.Int64(i)
			if err != nil {
				break
			}
			vals = append(vals, v)
		}
		if len(vals) == 1 {
			return vals[0]
		}
		return vals
	case tiff.FloatVal:
		vals := make([]float64, 0, n)
		for i := 0; i < n; i++ {
			v, err := tag.Float(i)
			if err != nil {
				break
			}
			vals = append(vals, v)
		}
		if len(vals) == 1 {
			return vals[0]
		}
		return vals
	default:
		raw := make([]byte, len(tag.Val))
		copy(raw, tag.Val)
		return raw
	}
}
