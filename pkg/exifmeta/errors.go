package exifmeta

import "errors"

// Extraction errors
var (
	ErrMissingMetadata  = errors.New("no EXIF metadata found")
	ErrMissingGeoTag    = errors.New("no EXIF geotagging found")
	ErrMissingTimestamp = errors.New("no DateTimeOriginal tag found")
)
