package types

// Location holds the human supplied place description for a photo.
// Values are free text and are rendered as given.
type Location struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

// Point is an integer pixel position
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Size is an integer pixel extent
type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Result is the outcome of stamping a single photo
type Result struct {
	Data        []byte   `json:"-"`
	Format      string   `json:"format"`
	ContentType string   `json:"content_type"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	Timestamp   string   `json:"timestamp"`
	Lines       []string `json:"lines"`
}

// Extension returns the file extension matching the result format
func (r *Result) Extension() string {
	switch r.Format {
	case "jpeg":
		return "jpg"
	case "":
		return "bin"
	default:
		return r.Format
	}
}

// Inspection holds the metadata resolved from a photo without compositing
type Inspection struct {
	GeoTags   map[string]any `json:"geotags"`
	Timestamp string         `json:"timestamp"`
	Format    string         `json:"format"`
	Width     int            `json:"width"`
	Height    int            `json:"height"`
}
