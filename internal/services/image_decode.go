package services

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/heic"
)

var ErrInvalidImage = errors.New("invalid image data")

// DecodeBase64Image strips an optional data URL prefix ("data:image/jpeg;base64,") and decodes
// the payload. Padded and unpadded encodings are both accepted.
func DecodeBase64Image(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	if strings.HasPrefix(data, "data:") {
		if idx := strings.Index(data, ","); idx != -1 {
			data = data[idx+1:]
		}
	}
	if data == "" {
		return nil, ErrNoImageData
	}

	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(data, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: base64: %v", ErrInvalidImage, err)
		}
	}
	return decoded, nil
}

// ToPNG converts a JPEG, GIF or HEIC/HEIF capture to PNG. PNG input is returned unchanged.
func ToPNG(imageData []byte) ([]byte, error) {
	if isPNG(imageData) {
		return imageData, nil
	}

	var img image.Image
	var err error
	if isHEICFormat(imageData) {
		// Phone cameras default to HEIC, which the standard library can't read
		img, err = heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("%w: decoding HEIC: %v", ErrInvalidImage, err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("%w: supported formats are JPEG, PNG, GIF, HEIC, HEIF: %v", ErrInvalidImage, err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// ImageExtension returns the file extension to store image data under
func ImageExtension(data []byte) string {
	switch {
	case isPNG(data):
		return ".png"
	case isHEICFormat(data):
		return ".heic"
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return ".jpg"
	case len(data) >= 6 && (string(data[:6]) == "GIF87a" || string(data[:6]) == "GIF89a"):
		return ".gif"
	}
	return ".bin"
}

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}

func isPNG(data []byte) bool {
	return bytes.HasPrefix(data, pngSignature)
}

// isHEICFormat checks for an ftyp box with a HEIC/HEIF brand at offset 4
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}
