package testutil

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"testing"
)

// TinyPNG returns an encoded PNG with the requested dimensions.
func TinyPNG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// PNGDataURI wraps a tiny PNG in a base64 data URI as clients send it.
func PNGDataURI(t testing.TB) string {
	t.Helper()
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(TinyPNG(t, 4, 4))
}
