package exifmeta

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"reflect"
	"testing"

	"github.com/menta2k/geostamp/internal/exiftest"
)

func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	return img
}

func TestDecodeJPEG(t *testing.T) {
	data, err := exiftest.JPEG(createTestImage(32, 24), exiftest.Sample())
	if err != nil {
		t.Fatalf("Failed to build fixture: %v", err)
	}

	block, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	ts, err := ExtractCaptureTimestamp(block)
	if err != nil {
		t.Fatalf("ExtractCaptureTimestamp failed: %v", err)
	}
	if ts != "2024:03:15 14:22:01" {
		t.Errorf("Unexpected timestamp %q", ts)
	}

	info, err := ExtractGeotagging(block)
	if err != nil {
		t.Fatalf("ExtractGeotagging failed: %v", err)
	}
	if info["GPSLatitudeRef"] != "N" || info["GPSLongitudeRef"] != "E" {
		t.Errorf("Unexpected refs: %v / %v", info["GPSLatitudeRef"], info["GPSLongitudeRef"])
	}
	lat, ok := info["GPSLatitude"].([]float64)
	if !ok || len(lat) != 3 {
		t.Fatalf("Unexpected GPSLatitude %#v", info["GPSLatitude"])
	}
	if lat[0] != 18 || lat[1] != 32 || lat[2] != 45.2 {
		t.Errorf("Expected [18 32 45.2], got %v", lat)
	}
	lng, ok := info["GPSLongitude"].([]float64)
	if !ok || len(lng) != 3 || lng[2] != 12.9 {
		t.Errorf("Unexpected GPSLongitude %#v", info["GPSLongitude"])
	}
}

func TestDecodeTIFF(t *testing.T) {
	block, err := Decode(bytes.NewReader(exiftest.TIFF(exiftest.Sample())))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if _, err := ExtractGeotagging(block); err != nil {
		t.Errorf("ExtractGeotagging failed: %v", err)
	}
}

func TestDecodeKeepsUnnamedGPSTags(t *testing.T) {
	fx := exiftest.Sample()
	fx.HPositioningError = []exiftest.Rational{{5, 2}}
	data, err := exiftest.JPEG(createTestImage(16, 16), fx)
	if err != nil {
		t.Fatalf("Failed to build fixture: %v", err)
	}

	block, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	info, err := ExtractGeotagging(block)
	if err != nil {
		t.Fatalf("ExtractGeotagging failed: %v", err)
	}

	if got, ok := info["GPSHPositioningError"]; !ok || got != 2.5 {
		t.Errorf("Expected GPSHPositioningError 2.5, got %v (present %v)", got, ok)
	}
	if got := info["GPSLongitude"]; !reflect.DeepEqual(got, []float64{73, 51, 12.9}) {
		t.Errorf("Named tags must keep their values, got %v", got)
	}
	if len(info) != 5 {
		t.Errorf("Expected 5 GPS entries, got %d: %v", len(info), info)
	}
}

func TestDecodeWithoutGPS(t *testing.T) {
	fx := exiftest.Fixture{DateTimeOriginal: "2024:03:15 14:22:01"}
	data, err := exiftest.JPEG(createTestImage(16, 16), fx)
	if err != nil {
		t.Fatalf("Failed to build fixture: %v", err)
	}

	block, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if _, err := ExtractGeotagging(block); !errors.Is(err, ErrMissingGeoTag) {
		t.Errorf("Expected ErrMissingGeoTag, got %v", err)
	}
	if _, err := ExtractCaptureTimestamp(block); err != nil {
		t.Errorf("Expected timestamp, got %v", err)
	}
}

func TestDecodeWithoutTimestamp(t *testing.T) {
	fx := exiftest.Sample()
	fx.DateTimeOriginal = ""
	data, err := exiftest.JPEG(createTestImage(16, 16), fx)
	if err != nil {
		t.Fatalf("Failed to build fixture: %v", err)
	}

	block, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if _, err := ExtractCaptureTimestamp(block); !errors.Is(err, ErrMissingTimestamp) {
		t.Errorf("Expected ErrMissingTimestamp, got %v", err)
	}
}

func TestDecodeNoMetadata(t *testing.T) {
	data, err := exiftest.PlainJPEG(createTestImage(16, 16))
	if err != nil {
		t.Fatalf("Failed to build fixture: %v", err)
	}

	_, err = Decode(bytes.NewReader(data))
	if !errors.Is(err, ErrMissingMetadata) {
		t.Errorf("Expected ErrMissingMetadata, got %v", err)
	}
}
