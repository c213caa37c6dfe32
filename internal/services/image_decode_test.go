package services

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestDecodeBase64Image(t *testing.T) {
	raw := []byte("card bytes!")
	std := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name  string
		input string
	}{
		{"plain", std},
		{"data URL", "data:image/jpeg;base64," + std},
		{"surrounding whitespace", "  " + std + "\n"},
		{"unpadded", base64.RawStdEncoding.EncodeToString(raw)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeBase64Image(tt.input)
			require.NoError(t, err)
			assert.Equal(t, raw, got)
		})
	}
}

func TestDecodeBase64ImageErrors(t *testing.T) {
	_, err := DecodeBase64Image("")
	assert.ErrorIs(t, err, ErrNoImageData)

	_, err = DecodeBase64Image("data:image/png;base64,")
	assert.ErrorIs(t, err, ErrNoImageData)

	_, err = DecodeBase64Image("not base64 at all!!")
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestToPNGConvertsJPEG(t *testing.T) {
	out, err := ToPNG(testJPEG(t))
	require.NoError(t, err)
	assert.True(t, isPNG(out))

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
}

func TestToPNGPassesPNGThrough(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))))

	out, err := ToPNG(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), out)
}

func TestToPNGRejectsGarbage(t *testing.T) {
	_, err := ToPNG([]byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestIsHEICFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"heic brand", []byte("\x00\x00\x00\x18ftypheic\x00\x00"), true},
		{"mif1 brand", []byte("\x00\x00\x00\x18ftypmif1\x00\x00"), true},
		{"mp4 brand", []byte("\x00\x00\x00\x18ftypisom\x00\x00"), false},
		{"too short", []byte("ftyp"), false},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0, 0, 0, 0, 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isHEICFormat(tt.data))
		})
	}
}

func TestImageExtension(t *testing.T) {
	assert.Equal(t, ".jpg", ImageExtension(testJPEG(t)))
	assert.Equal(t, ".heic", ImageExtension([]byte("\x00\x00\x00\x18ftypheic\x00\x00")))
	assert.Equal(t, ".gif", ImageExtension([]byte("GIF89a......")))
	assert.Equal(t, ".bin", ImageExtension([]byte("??")))
}
