package overlay

import "errors"

// Compositing errors
var (
	ErrIncompleteGeoData    = errors.New("GPS latitude/longitude missing or malformed")
	ErrMalformedTimestamp   = errors.New("capture timestamp too short to split into date and time")
	ErrThumbnailUnavailable = errors.New("thumbnail image unavailable")
	ErrFontUnavailable      = errors.New("font unavailable")
)
