// Package imaging turns uploaded scans into the tensor layout the classifier
// was trained on.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Brownie44l1/alzdetect/internal/apperr"
)

const (
	// Size is the edge length, in pixels, of the model input.
	Size     = 176
	Channels = 3
)

// Shape is the NHWC shape of every NormalizedImage.
var Shape = []int64{1, Size, Size, Channels}

// NormalizedImage is a batch of one RGB image scaled to [0,1], stored NHWC.
type NormalizedImage struct {
	Data  []float32
	Shape []int64
}

// Validate reports whether the tensor has the fixed model input shape.
func (n *NormalizedImage) Validate() error {
	if n == nil {
		return fmt.Errorf("nil tensor")
	}
	if len(n.Shape) != len(Shape) {
		return fmt.Errorf("tensor rank %d, expected %d", len(n.Shape), len(Shape))
	}
	for i := range Shape {
		if n.Shape[i] != Shape[i] {
			return fmt.Errorf("tensor shape %v, expected %v", n.Shape, Shape)
		}
	}
	if len(n.Data) != Size*Size*Channels {
		return fmt.Errorf("tensor has %d values, expected %d", len(n.Data), Size*Size*Channels)
	}
	return nil
}

// MaxPixels caps the declared frame size of an upload so a small file
// cannot force a huge allocation.
const MaxPixels = 89_478_485

// Decode decodes any supported encoding (JPEG, PNG, BMP, TIFF, WebP).
func Decode(data []byte) (image.Image, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindUnsupportedImage, err, "cannot decode image, supported: JPEG, PNG, BMP, TIFF, WebP")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, "", apperr.New(apperr.KindUnsupportedImage, "",
			fmt.Sprintf("image of %dx%d pixels exceeds the %d pixel limit", cfg.Width, cfg.Height, MaxPixels))
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindUnsupportedImage, err, "cannot decode image, supported: JPEG, PNG, BMP, TIFF, WebP")
	}
	return img, format, nil
}

// Normalize decodes data and produces the model input tensor.
func Normalize(data []byte) (*NormalizedImage, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return FromImage(img)
}

// FromImage converts img to opaque RGB, stretches it to Size x Size and
// scales each channel by 1/255.
func FromImage(img image.Image) (*NormalizedImage, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, apperr.New(apperr.KindUnsupportedImage, "", fmt.Sprintf("image has empty bounds %v", b))
	}

	resized := resize.Resize(Size, Size, toRGB(img), resize.Bicubic)

	rb := resized.Bounds()
	if rb.Dx() != Size || rb.Dy() != Size {
		return nil, apperr.New(apperr.KindUnsupportedImage, "", fmt.Sprintf("resized to %dx%d, expected %dx%d", rb.Dx(), rb.Dy(), Size, Size))
	}

	data := make([]float32, Size*Size*Channels)
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			c := color.NRGBAModel.Convert(resized.At(rb.Min.X+x, rb.Min.Y+y)).(color.NRGBA)
			i := (y*Size + x) * Channels
			data[i] = float32(c.R) / 255.0
			data[i+1] = float32(c.G) / 255.0
			data[i+2] = float32(c.B) / 255.0
		}
	}

	return &NormalizedImage{Data: data, Shape: append([]int64(nil), Shape...)}, nil
}

// toRGB copies img into an opaque NRGBA image. Alpha is dropped rather than
// composited, so the colour channels keep their straight values.
func toRGB(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			c.A = 255
			dst.SetNRGBA(x-b.Min.X, y-b.Min.Y, c)
		}
	}
	return dst
}

// EncodePNG re-encodes an uploaded image as PNG for embedding in reports.
func EncodePNG(data []byte) ([]byte, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
