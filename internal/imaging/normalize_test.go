package imaging

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/alzdetect/internal/apperr"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func uniform(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestNormalize_ShapeAndRange(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 40, 90))
	for i := range gray.Pix {
		gray.Pix[i] = uint8(i * 7)
	}
	var jpg bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpg, uniform(300, 120, color.NRGBA{R: 10, G: 200, B: 90, A: 255}), nil))

	inputs := map[string][]byte{
		"gray portrait png":   encodePNG(t, gray),
		"wide jpeg":           jpg.Bytes(),
		"tiny png":            encodePNG(t, uniform(1, 1, color.White)),
		"translucent png":     encodePNG(t, uniform(500, 500, color.NRGBA{R: 255, A: 10})),
		"already sized input": encodePNG(t, uniform(Size, Size, color.Black)),
	}

	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			n, err := Normalize(data)
			require.NoError(t, err)
			assert.Equal(t, []int64{1, 176, 176, 3}, n.Shape)
			require.Len(t, n.Data, 176*176*3)
			require.NoError(t, n.Validate())
			for i, v := range n.Data {
				if v < 0 || v > 1 {
					t.Fatalf("value %d out of range: %f", i, v)
				}
			}
		})
	}
}

func TestNormalize_ScalesBy255(t *testing.T) {
	n, err := Normalize(encodePNG(t, uniform(64, 32, color.NRGBA{R: 255, G: 51, B: 0, A: 255})))
	require.NoError(t, err)

	assert.InDelta(t, 1.0, n.Data[0], 0.01)
	assert.InDelta(t, 0.2, n.Data[1], 0.01)
	assert.InDelta(t, 0.0, n.Data[2], 0.01)
}

func TestNormalize_DropsAlphaWithoutCompositing(t *testing.T) {
	n, err := Normalize(encodePNG(t, uniform(8, 8, color.NRGBA{R: 255, G: 0, B: 0, A: 1})))
	require.NoError(t, err)

	// Straight channel values survive even when nearly transparent.
	assert.InDelta(t, 1.0, n.Data[0], 0.01)
	assert.InDelta(t, 0.0, n.Data[1], 0.01)
}

func TestNormalize_StretchesNonSquareInput(t *testing.T) {
	// Left half red, right half blue on a wide image: after stretching the
	// left and right edges of the output keep their colours, which would not
	// hold if the image were cropped or letterboxed vertically.
	img := image.NewNRGBA(image.Rect(0, 0, 400, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 400; x++ {
			if x < 200 {
				img.Set(x, y, color.NRGBA{R: 255, A: 255})
			} else {
				img.Set(x, y, color.NRGBA{B: 255, A: 255})
			}
		}
	}
	n, err := Normalize(encodePNG(t, img))
	require.NoError(t, err)

	topLeft := n.Data[0:3]
	bottomRight := n.Data[len(n.Data)-3:]
	assert.InDelta(t, 1.0, topLeft[0], 0.01)
	assert.InDelta(t, 1.0, bottomRight[2], 0.01)
	mid := ((Size/2)*Size + 0) * Channels
	assert.InDelta(t, 1.0, n.Data[mid], 0.01, "no padding rows in the middle of the left edge")
}

func TestNormalize_Deterministic(t *testing.T) {
	data := encodePNG(t, uniform(33, 77, color.NRGBA{R: 12, G: 34, B: 56, A: 255}))
	a, err := Normalize(data)
	require.NoError(t, err)
	b, err := Normalize(data)
	require.NoError(t, err)
	assert.Equal(t, a.Data, b.Data)
}

func TestNormalize_UnsupportedImage(t *testing.T) {
	_, err := Normalize([]byte("definitely not an image"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnsupportedImage, apperr.KindOf(err))

	_, err = Normalize(nil)
	assert.Equal(t, apperr.KindUnsupportedImage, apperr.KindOf(err))
}

// pngHeader returns a PNG signature and IHDR chunk declaring w x h RGBA
// pixels, with no image data following.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A})

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // RGBA

	chunk := append([]byte("IHDR"), ihdr...)
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestNormalize_RejectsOversizedFrame(t *testing.T) {
	header := pngHeader(12000, 12000)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(header))
	require.NoError(t, err, "header must be a well-formed PNG")
	require.Equal(t, "png", format)
	require.Equal(t, 12000, cfg.Width)

	_, err = Normalize(header)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnsupportedImage, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "pixel limit")

	_, err = EncodePNG(pngHeader(60000, 60000))
	assert.Equal(t, apperr.KindUnsupportedImage, apperr.KindOf(err))
}

func TestNormalizedImage_Validate(t *testing.T) {
	bad := &NormalizedImage{Data: make([]float32, 10), Shape: []int64{1, 176, 176, 3}}
	assert.Error(t, bad.Validate())

	bad = &NormalizedImage{Data: make([]float32, 176*176*3), Shape: []int64{176, 176, 3}}
	assert.Error(t, bad.Validate())

	var nilImg *NormalizedImage
	assert.Error(t, nilImg.Validate())
}

func TestEncodePNG(t *testing.T) {
	var jpg bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpg, uniform(20, 20, color.White), nil))

	out, err := EncodePNG(jpg.Bytes())
	require.NoError(t, err)
	_, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
}
