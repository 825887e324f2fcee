package codec

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 5), B: 90, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"jpg", JPEG},
		{"JPEG", JPEG},
		{".png", PNG},
		{"image/webp", WEBP},
		{"tif", TIFF},
		{" gif ", GIF},
		{"bmp", BMP},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseFormat("txt")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFormat_ContentTypeAndExtension(t *testing.T) {
	require.Equal(t, "image/jpeg", JPEG.ContentType())
	require.Equal(t, ".jpg", JPEG.Extension())
	require.Equal(t, "image/png", PNG.ContentType())
	require.Equal(t, "application/octet-stream", Format("heic").ContentType())
	require.False(t, Format("heic").Valid())
}

func TestDecode_PNG(t *testing.T) {
	src := testImage(16, 9)

	frame, err := Decode(encodePNG(t, src))
	require.NoError(t, err)
	require.Equal(t, PNG, frame.Source)
	require.Equal(t, 16, frame.Image.Bounds().Dx())
	require.Equal(t, 9, frame.Image.Bounds().Dy())
	require.Equal(t, src.Pix, frame.Image.Pix)
}

func TestDecode_JPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(32, 24), &jpeg.Options{Quality: 95}))

	frame, err := Decode(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, JPEG, frame.Source)
	require.Equal(t, 32, frame.Image.Bounds().Dx())
}

func TestDecode_FlattensAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.NRGBA{R: 255, A: 0})
	src.Set(1, 0, color.NRGBA{G: 200, A: 255})

	frame, err := Decode(encodePNG(t, src))
	require.NoError(t, err)
	require.Equal(t, color.RGBA{A: 255}, frame.Image.RGBAAt(0, 0))
	require.Equal(t, color.RGBA{G: 200, A: 255}, frame.Image.RGBAAt(1, 0))
}

func TestDecode_Corrupted(t *testing.T) {
	_, err := Decode([]byte{0xFF, 0xD8, 0xFF, 0x00, 0x13, 0x37})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to decode image")

	_, err = Decode(nil)
	require.Error(t, err)
}

func TestEncode_RoundTrip(t *testing.T) {
	src := testImage(10, 10)

	for _, f := range []Format{PNG, BMP, TIFF, WEBP} {
		data, err := Encode(src, f, Options{})
		require.NoError(t, err, f)

		frame, err := Decode(data)
		require.NoError(t, err, f)
		require.Equal(t, f, frame.Source)
		require.Equal(t, src.Pix, frame.Image.Pix, "lossless %s", f)
	}

	data, err := Encode(src, JPEG, Options{JPEGQuality: 80})
	require.NoError(t, err)
	frame, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, JPEG, frame.Source)
}

func TestEncode_Unsupported(t *testing.T) {
	_, err := Encode(testImage(1, 1), Format("heic"), Options{})
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestOutputFormat(t *testing.T) {
	require.Equal(t, JPEG, OutputFormat(JPEG, PNG))
	require.Equal(t, PNG, OutputFormat(Format(""), PNG))
	require.Equal(t, WEBP, OutputFormat(Format("heic"), WEBP))
	require.Equal(t, PNG, OutputFormat(Format(""), Format("")))
}
