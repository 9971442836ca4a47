// Package exifmeta resolves GPS and capture time metadata from EXIF blocks.
package exifmeta

import (
	"fmt"
)

// Block is a raw EXIF block keyed by tag id. A nil or empty Block means the
// image carried no metadata at all.
type Block map[uint16]any

// GPSBlock is the GPS sub-IFD of a Block, keyed by GPS sub-tag id.
type GPSBlock map[uint16]any

// GeoInfo maps GPS sub-tag names to their decoded values.
type GeoInfo map[string]any

// ExtractGeotagging returns every known GPS sub-tag present in the block's
// GPS sub-IFD, keyed by name.
func ExtractGeotagging(block Block) (GeoInfo, error) {
	if len(block) == 0 {
		return nil, ErrMissingMetadata
	}

	id, _ := Lookup(GPSInfoTag)
	raw, ok := block[id]
	if !ok {
		return nil, ErrMissingGeoTag
	}

	gps, ok := raw.(GPSBlock)
	if !ok {
		return nil, fmt.Errorf("%w: GPSInfo holds %T", ErrMissingGeoTag, raw)
	}

	info := make(GeoInfo, len(gps))
	for key, name := range GPSTags {
		if val, ok := gps[key]; ok {
			info[name] = val
		}
	}
	return info, nil
}

// ExtractCaptureTimestamp returns the DateTimeOriginal value unmodified.
func ExtractCaptureTimestamp(block Block) (string, error) {
	if len(block) == 0 {
		return "", ErrMissingMetadata
	}

	id, _ := Lookup(DateTimeOriginalTag)
	raw, ok := block[id]
	if !ok {
		return "", ErrMissingTimestamp
	}

	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: DateTimeOriginal holds %T", ErrMissingTimestamp, raw)
	}
	return s, nil
}
