package geostamp

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/geostamp/internal/exiftest"
	"github.com/menta2k/geostamp/pkg/exifmeta"
	"github.com/menta2k/geostamp/pkg/overlay"
	"github.com/menta2k/geostamp/pkg/types"
)

var location = types.Location{
	Address: "Survey No. 3/4, Kondhwa",
	City:    "Pune",
	State:   "Maharashtra",
	Country: "India",
}

func createTestImage(width, height int) image.Image {
	return imaging.New(width, height, color.NRGBA{255, 255, 255, 255})
}

func photo(t *testing.T, fx exiftest.Fixture) []byte {
	t.Helper()
	data, err := exiftest.JPEG(createTestImage(1000, 800), fx)
	require.NoError(t, err)
	return data
}

func thumbnailServer(t *testing.T) *httptest.Server {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, imaging.New(64, 64, color.NRGBA{255, 0, 0, 255})))
	data := buf.Bytes()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestStamper(t *testing.T, thumbnailURL string) *Stamper {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ThumbnailURL = thumbnailURL
	s, err := NewWithConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestProcessEndToEnd(t *testing.T) {
	srv := thumbnailServer(t)
	s := newTestStamper(t, srv.URL+"/mapsthumbnail.png")

	result, err := s.Process(context.Background(), bytes.NewReader(photo(t, exiftest.Sample())), location)
	require.NoError(t, err)

	assert.Equal(t, "jpeg", result.Format)
	assert.Equal(t, "image/jpeg", result.ContentType)
	assert.Equal(t, "jpg", result.Extension())
	assert.Equal(t, 1000, result.Width)
	assert.Equal(t, 800, result.Height)
	assert.Equal(t, "2024:03:15 14:22:01", result.Timestamp)
	assert.Equal(t, []string{
		"Pune, Maharashtra, India",
		"Survey No. 3/4, Kondhwa",
		"Lat: 45.2 | Lng: 12.9",
		"2024:03:15 | 14:22:01 | IST (UTC+5:30)",
		"Social Welfare and Development Committee, VIT Pune",
	}, result.Lines)

	out, format, err := image.Decode(bytes.NewReader(result.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, image.Rect(0, 0, 1000, 800), out.Bounds())

	// the panel corner at (315,590) is darkened; the top of the photo is not
	r, _, _, _ := out.At(318, 593).RGBA()
	assert.Less(t, r>>8, uint32(170), "panel should darken the photo")
	r, _, _, _ = out.At(10, 10).RGBA()
	assert.Greater(t, r>>8, uint32(230), "pixels outside the overlay stay bright")

	// thumbnail is red
	r, g, _, _ := out.At(200, 680).RGBA()
	assert.Greater(t, r>>8, uint32(200))
	assert.Less(t, g>>8, uint32(60))
}

func TestProcessTIFFWithoutGPS(t *testing.T) {
	srv := thumbnailServer(t)
	s := newTestStamper(t, srv.URL)

	// TIFF files carry their tags in the container itself; a plain encoder
	// output has an IFD0 but no GPS sub-IFD
	tiffData, err := s.Processor().EncodeBytes(createTestImage(600, 400), "tiff")
	require.NoError(t, err)

	_, err = s.ProcessBytes(context.Background(), tiffData, location)
	assert.ErrorIs(t, err, exifmeta.ErrMissingGeoTag)
	assert.ErrorIs(t, err, ErrProcessingFailed)
}

func TestProcessThumbnailFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()
	s := newTestStamper(t, srv.URL)

	result, err := s.Process(context.Background(), bytes.NewReader(photo(t, exiftest.Sample())), location)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrProcessingFailed)
	assert.ErrorIs(t, err, overlay.ErrThumbnailUnavailable)

	var perr *ProcessingError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, StageCompose, perr.Stage)
}

func TestProcessMetadataFailures(t *testing.T) {
	noGPS := exiftest.Sample()
	noGPS.LatitudeRef, noGPS.Latitude = "", nil
	noGPS.LongitudeRef, noGPS.Longitude = "", nil

	noTime := exiftest.Sample()
	noTime.DateTimeOriginal = ""

	emptyGPS := exiftest.Fixture{DateTimeOriginal: "2024:03:15 14:22:01", GPSPointer: true}

	plain, err := exiftest.PlainJPEG(createTestImage(100, 100))
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"no exif", plain, exifmeta.ErrMissingMetadata},
		{"no gps", photo(t, noGPS), exifmeta.ErrMissingGeoTag},
		{"no timestamp", photo(t, noTime), exifmeta.ErrMissingTimestamp},
		{"gps without coordinates", photo(t, emptyGPS), overlay.ErrIncompleteGeoData},
		{"not an image", []byte("hello"), ErrProcessingFailed},
	}

	calls := 0
	thumbs := overlay.ThumbnailFunc(func(context.Context) (image.Image, error) {
		calls++
		return createTestImage(10, 10), nil
	})
	s, err := NewWithThumbnails(DefaultConfig(), thumbs)
	require.NoError(t, err)
	defer s.Close()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.ProcessBytes(context.Background(), tt.data, location)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, ErrProcessingFailed)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Zero(t, calls, "invalid metadata must not trigger a thumbnail fetch")
}

func TestProcessEmptyCanvas(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, image.NewPaletted(image.Rect(0, 0, 10, 0), palette.Plan9), nil))

	calls := 0
	thumbs := overlay.ThumbnailFunc(func(context.Context) (image.Image, error) {
		calls++
		return createTestImage(10, 10), nil
	})
	s, err := NewWithThumbnails(DefaultConfig(), thumbs)
	require.NoError(t, err)
	defer s.Close()

	result, err := s.ProcessBytes(context.Background(), buf.Bytes(), location)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrProcessingFailed)

	var perr *ProcessingError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, StageDecode, perr.Stage)
	assert.Zero(t, calls)

	_, err = s.Inspect(bytes.NewReader(buf.Bytes()))
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, StageDecode, perr.Stage)
}

func TestInspect(t *testing.T) {
	s, err := NewWithThumbnails(DefaultConfig(), nil)
	require.NoError(t, err)
	defer s.Close()

	info, err := s.Inspect(bytes.NewReader(photo(t, exiftest.Sample())))
	require.NoError(t, err)
	assert.Equal(t, "2024:03:15 14:22:01", info.Timestamp)
	assert.Equal(t, "jpeg", info.Format)
	assert.Equal(t, 1000, info.Width)
	assert.Equal(t, "N", info.GeoTags["GPSLatitudeRef"])
	assert.Equal(t, []float64{18, 32, 45.2}, info.GeoTags["GPSLatitude"])
}

func TestProcessFileAndDebugOverlay(t *testing.T) {
	srv := thumbnailServer(t)
	s := newTestStamper(t, srv.URL)

	dir := t.TempDir()
	in := filepath.Join(dir, "photo.jpg")
	out := filepath.Join(dir, "photo_stamped.jpg")
	require.NoError(t, os.WriteFile(in, photo(t, exiftest.Sample()), 0644))

	result, err := s.ProcessFile(context.Background(), in, out, location)
	require.NoError(t, err)

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, result.Data, written)

	debug, err := s.DebugOverlay(result)
	require.NoError(t, err)
	img, _, err := image.Decode(bytes.NewReader(debug))
	require.NoError(t, err)
	assert.Equal(t, result.Width, img.Bounds().Dx())

	_, err = s.ProcessFile(context.Background(), filepath.Join(dir, "missing.jpg"), out, location)
	assert.ErrorIs(t, err, ErrProcessingFailed)
}

func TestProcessingError(t *testing.T) {
	err := &ProcessingError{Stage: StageEncode, Err: errors.New("boom")}
	assert.True(t, errors.Is(err, ErrProcessingFailed))
	assert.EqualError(t, err, "processing failed at encode: boom")
	assert.Equal(t, "boom", errors.Unwrap(err).Error())
}
