// Package exiftest builds small EXIF payloads and JPEG files for tests.
package exiftest

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/jpeg"
	"sort"
)

// Rational is a TIFF RATIONAL as numerator/denominator.
type Rational [2]uint32

// Fixture describes the EXIF content to generate. Zero values are omitted.
type Fixture struct {
	DateTimeOriginal string
	LatitudeRef      string
	Latitude         []Rational
	LongitudeRef     string
	Longitude        []Rational
	// HPositioningError is GPS tag 0x1F, which goexif has no field name for.
	HPositioningError []Rational
	// GPSPointer forces an (empty) GPS IFD even when no GPS tags are set.
	GPSPointer bool
}

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

const (
	typeASCII    = 2
	typeLong     = 4
	typeRational = 5
)

var le = binary.LittleEndian

func ascii(tag uint16, s string) entry {
	b := append([]byte(s), 0)
	return entry{tag: tag, typ: typeASCII, count: uint32(len(b)), data: b}
}

func rationals(tag uint16, rs []Rational) entry {
	b := make([]byte, 0, 8*len(rs))
	for _, r := range rs {
		b = le.AppendUint32(b, r[0])
		b = le.AppendUint32(b, r[1])
	}
	return entry{tag: tag, typ: typeRational, count: uint32(len(rs)), data: b}
}

func long(tag uint16, v uint32) entry {
	return entry{tag: tag, typ: typeLong, count: 1, data: le.AppendUint32(nil, v)}
}

func ifdSize(n int) uint32 {
	return uint32(2 + 12*n + 4)
}

// writeIFD writes entries at the current buffer position; values that do not
// fit the 4 byte slot go to the data area starting at dataOff.
func writeIFD(buf *bytes.Buffer, entries []entry, dataOff uint32) []byte {
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	var data []byte
	_ = binary.Write(buf, le, uint16(len(entries)))
	for _, e := range entries {
		_ = binary.Write(buf, le, e.tag)
		_ = binary.Write(buf, le, e.typ)
		_ = binary.Write(buf, le, e.count)
		if len(e.data) <= 4 {
			slot := make([]byte, 4)
			copy(slot, e.data)
			buf.Write(slot)
			continue
		}
		_ = binary.Write(buf, le, dataOff+uint32(len(data)))
		data = append(data, e.data...)
		if len(data)%2 == 1 {
			data = append(data, 0)
		}
	}
	_ = binary.Write(buf, le, uint32(0))
	return data
}

// TIFF returns a little-endian TIFF stream carrying the EXIF described by s.
func TIFF(s Fixture) []byte {
	var exifEntries []entry
	if s.DateTimeOriginal != "" {
		exifEntries = append(exifEntries, ascii(0x9003, s.DateTimeOriginal))
	}

	var gpsEntries []entry
	if s.LatitudeRef != "" {
		gpsEntries = append(gpsEntries, ascii(0x0001, s.LatitudeRef))
	}
	if len(s.Latitude) > 0 {
		gpsEntries = append(gpsEntries, rationals(0x0002, s.Latitude))
	}
	if s.LongitudeRef != "" {
		gpsEntries = append(gpsEntries, ascii(0x0003, s.LongitudeRef))
	}
	if len(s.Longitude) > 0 {
		gpsEntries = append(gpsEntries, rationals(0x0004, s.Longitude))
	}
	if len(s.HPositioningError) > 0 {
		gpsEntries = append(gpsEntries, rationals(0x001F, s.HPositioningError))
	}
	withGPS := len(gpsEntries) > 0 || s.GPSPointer

	ifd0Count := 1
	if withGPS {
		ifd0Count++
	}

	// layout: header | IFD0 | Exif IFD | Exif data | GPS IFD | GPS data
	ifd0Off := uint32(8)
	exifOff := ifd0Off + ifdSize(ifd0Count)
	exifDataOff := exifOff + ifdSize(len(exifEntries))

	var exifBuf bytes.Buffer
	exifData := writeIFD(&exifBuf, exifEntries, exifDataOff)
	gpsOff := exifDataOff + uint32(len(exifData))
	gpsDataOff := gpsOff + ifdSize(len(gpsEntries))

	ifd0 := []entry{long(0x8769, exifOff)}
	if withGPS {
		ifd0 = append(ifd0, long(0x8825, gpsOff))
	}

	var out bytes.Buffer
	out.WriteString("II")
	_ = binary.Write(&out, le, uint16(0x2A))
	_ = binary.Write(&out, le, ifd0Off)
	writeIFD(&out, ifd0, 0)
	out.Write(exifBuf.Bytes())
	out.Write(exifData)

	if withGPS {
		var gpsBuf bytes.Buffer
		gpsData := writeIFD(&gpsBuf, gpsEntries, gpsDataOff)
		out.Write(gpsBuf.Bytes())
		out.Write(gpsData)
	}
	return out.Bytes()
}

// JPEG encodes img and splices an APP1 EXIF segment built from s right after
// the SOI marker.
func JPEG(img image.Image, s Fixture) ([]byte, error) {
	var enc bytes.Buffer
	if err := jpeg.Encode(&enc, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	plain := enc.Bytes()

	payload := append([]byte("Exif\x00\x00"), TIFF(s)...)

	var out bytes.Buffer
	out.Write(plain[:2])
	out.Write([]byte{0xFF, 0xE1})
	_ = binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(plain[2:])
	return out.Bytes(), nil
}

// PlainJPEG encodes img without any metadata.
func PlainJPEG(img image.Image) ([]byte, error) {
	var enc bytes.Buffer
	if err := jpeg.Encode(&enc, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

// Sample is the fixture used across tests: 18°32'45.2" N, 73°51'12.9" E taken
// 2024:03:15 14:22:01.
func Sample() Fixture {
	return Fixture{
		DateTimeOriginal: "2024:03:15 14:22:01",
		LatitudeRef:      "N",
		Latitude:         []Rational{{18, 1}, {32, 1}, {452, 10}},
		LongitudeRef:     "E",
		Longitude:        []Rational{{73, 1}, {51, 1}, {129, 10}},
	}
}
