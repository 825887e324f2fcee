// Package codec turns uploaded bytes into RGB frames and frames back into
// image containers.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// Format is an image container format.
type Format string

const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
	GIF  Format = "gif"
	BMP  Format = "bmp"
	TIFF Format = "tiff"
	WEBP Format = "webp"
)

var ErrUnsupportedFormat = errors.New("unsupported image format")

var contentTypes = map[Format]string{
	JPEG: "image/jpeg",
	PNG:  "image/png",
	GIF:  "image/gif",
	BMP:  "image/bmp",
	TIFF: "image/tiff",
	WEBP: "image/webp",
}

var extensions = map[Format]string{
	JPEG: ".jpg",
	PNG:  ".png",
	GIF:  ".gif",
	BMP:  ".bmp",
	TIFF: ".tiff",
	WEBP: ".webp",
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if ct, ok := contentTypes[f]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Extension returns the canonical file extension, dot included.
func (f Format) Extension() string {
	return extensions[f]
}

// Valid reports whether the format can be encoded.
func (f Format) Valid() bool {
	_, ok := contentTypes[f]
	return ok
}

// ParseFormat accepts names such as "jpg", "JPEG", ".png" or "image/webp".
func ParseFormat(name string) (Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimPrefix(name, "image/")
	name = strings.TrimPrefix(name, ".")

	switch name {
	case "jpg", "jpeg":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "gif":
		return GIF, nil
	case "bmp":
		return BMP, nil
	case "tif", "tiff":
		return TIFF, nil
	case "webp":
		return WEBP, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// FormatFromName picks the format from a filename extension.
func FormatFromName(filename string) (Format, error) {
	return ParseFormat(filepath.Ext(filename))
}

// Frame is a decoded image normalised to an opaque RGB buffer.
type Frame struct {
	Image  *image.RGBA
	Source Format
}

// Decode reads an image container, applies EXIF orientation and drops alpha.
func Decode(data []byte) (*Frame, error) {
	if len(data) == 0 {
		return nil, errors.New("failed to decode image: empty payload")
	}

	_, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	format, err := ParseFormat(name)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, errors.New("failed to decode image: decoded image is empty")
	}

	return &Frame{Image: toRGB(img), Source: format}, nil
}

// toRGB flattens img onto an opaque black canvas anchored at (0,0).
func toRGB(img image.Image) *image.RGBA {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), image.Black, image.Point{}, draw.Src)
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Over)
	return rgba
}

// Options tune encoding.
type Options struct {
	JPEGQuality int
}

// Encode writes img in the requested container format.
func Encode(img image.Image, format Format, opts Options) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case WEBP:
		if err := webp.Encode(&buf, img, &webp.Options{Lossless: true}); err != nil {
			return nil, fmt.Errorf("failed to encode webp: %w", err)
		}
	case JPEG, PNG, GIF, BMP, TIFF:
		quality := opts.JPEGQuality
		if quality <= 0 || quality > 100 {
			quality = 90
		}
		if err := imaging.Encode(&buf, img, imagingFormat(format), imaging.JPEGQuality(quality)); err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", format, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(format))
	}

	return buf.Bytes(), nil
}

func imagingFormat(f Format) imaging.Format {
	switch f {
	case JPEG:
		return imaging.JPEG
	case GIF:
		return imaging.GIF
	case BMP:
		return imaging.BMP
	case TIFF:
		return imaging.TIFF
	default:
		return imaging.PNG
	}
}

// OutputFormat keeps the source format when it can be written back, otherwise
// it falls back.
func OutputFormat(source, fallback Format) Format {
	if source.Valid() {
		return source
	}
	if fallback.Valid() {
		return fallback
	}
	return PNG
}
