package overlay

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/menta2k/geostamp/pkg/exifmeta"
	"github.com/menta2k/geostamp/pkg/types"
)

// LineCount is the number of lines in every panel
const LineCount = 5

// Lines is the ordered text of the panel. Line 0 is drawn with the large
// face, the rest with the small one.
type Lines [LineCount]string

// Slice returns the lines as a slice
func (l Lines) Slice() []string {
	return l[:]
}

// BuildLines assembles the panel text from the photo metadata and the
// supplied location.
func BuildLines(geo exifmeta.GeoInfo, ts string, loc types.Location, style Style) (Lines, error) {
	coords, err := CoordinateLine(geo)
	if err != nil {
		return Lines{}, err
	}
	date, clock, err := SplitTimestamp(ts)
	if err != nil {
		return Lines{}, err
	}

	return Lines{
		fmt.Sprintf("%s, %s, %s", loc.City, loc.State, loc.Country),
		loc.Address,
		coords,
		fmt.Sprintf("%s | %s | %s", date, clock, style.TimezoneLabel),
		style.Attribution,
	}, nil
}

// SplitTimestamp splits "YYYY:MM:DD HH:MM:SS" into its date and time parts.
// The content is not validated; only the length is.
func SplitTimestamp(ts string) (date, clock string, err error) {
	if len(ts) < 11 {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedTimestamp, ts)
	}
	return ts[:10], ts[11:], nil
}

// CoordinateLine renders the seconds component of latitude and longitude
func CoordinateLine(geo exifmeta.GeoInfo) (string, error) {
	lat, err := seconds(geo, exifmeta.GPSLatitudeTag)
	if err != nil {
		return "", err
	}
	lng, err := seconds(geo, exifmeta.GPSLongitudeTag)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Lat: %s | Lng: %s", formatFloat(lat), formatFloat(lng)), nil
}

func seconds(geo exifmeta.GeoInfo, name string) (float64, error) {
	raw, ok := geo[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s not present", ErrIncompleteGeoData, name)
	}
	dms, ok := raw.([]float64)
	if !ok || len(dms) != 3 {
		return 0, fmt.Errorf("%w: %s is %v", ErrIncompleteGeoData, name, raw)
	}
	return dms[2], nil
}

// formatFloat renders the shortest decimal form of v, keeping a trailing
// ".0" on whole numbers (45 renders as "45.0").
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if strings.ContainsAny(s, ".eIN") {
		return s
	}
	return s + ".0"
}
