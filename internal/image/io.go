package image

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	"image/png"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// I/O errors.
var (
	// ErrEmptyData is returned when image data is empty.
	ErrEmptyData = errors.New("image: empty data")

	// ErrInvalidDataURI is returned for a malformed "data:" URI.
	ErrInvalidDataURI = errors.New("image: invalid data URI")
)

// Decode decodes an image from r, auto-detecting the format.
// Supported formats: PNG, JPEG, GIF (first frame), WebP, BMP, TIFF.
// The returned string is the format name reported by the decoder.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("image: decode: %w", err)
	}
	return img, format, nil
}

// DecodeBytes decodes data that is either raw encoded image bytes or a
// "data:" URI such as "data:image/png;base64,iVBOR...".
func DecodeBytes(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyData
	}
	if bytes.HasPrefix(data, []byte("data:")) {
		raw, err := ParseDataURI(string(data))
		if err != nil {
			return nil, "", err
		}
		data = raw
	}
	return Decode(bytes.NewReader(data))
}

// ParseDataURI returns the payload of a "data:" URI. Both base64 and
// percent-encoded payloads are accepted.
func ParseDataURI(uri string) ([]byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, ErrInvalidDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, ErrInvalidDataURI
	}

	if strings.HasSuffix(meta, ";base64") {
		// Providers sometimes wrap long payloads; StdEncoding rejects whitespace.
		payload = strings.Map(func(r rune) rune {
			switch r {
			case '\n', '\r', ' ', '\t':
				return -1
			}
			return r
		}, payload)
		out, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDataURI, err)
		}
		if len(out) == 0 {
			return nil, ErrEmptyData
		}
		return out, nil
	}

	out, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDataURI, err)
	}
	if out == "" {
		return nil, ErrEmptyData
	}
	return []byte(out), nil
}

// ReadFile reads the raw bytes of an image file without decoding them.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("image: read file: %w", err)
	}
	return data, nil
}

// EncodePNG encodes img as PNG to w.
func EncodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("image: encode PNG: %w", err)
	}
	return nil
}

// EncodeJPEG encodes img as JPEG with the given quality (1-100).
// JPEG has no alpha channel; transparent pixels are written as black.
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	quality = min(max(quality, 1), 100)
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("image: encode JPEG: %w", err)
	}
	return nil
}

// SavePNG writes img as a PNG file at path.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("image: create file: %w", err)
	}
	if err := EncodePNG(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// EncodeToBytes encodes img as PNG and returns the bytes.
func EncodeToBytes(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
