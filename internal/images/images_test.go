package images

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeTestImage produces a solid-color JPEG of the given size.
func encodeTestImage(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestComputeBlurHash(t *testing.T) {
	data := encodeTestImage(t, 400, 300)

	hash, err := ComputeBlurHash(data)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	// 4x3 components produce a fixed-length hash.
	assert.Len(t, hash, 28)
}

func TestComputeBlurHash_RejectsGarbage(t *testing.T) {
	_, err := ComputeBlurHash([]byte("not an image"))
	assert.Error(t, err)
}

func TestDownscale_PreservesAspectRatio(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 800, 400))

	small := Downscale(img, 320, 320)
	assert.Equal(t, 320, small.Bounds().Dx())
	assert.Equal(t, 160, small.Bounds().Dy())
}

func TestDownscale_LeavesSmallImagesAlone(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 80))

	small := Downscale(img, 320, 320)
	assert.Equal(t, img.Bounds(), small.Bounds())
}

func TestThumbnail_BoundsOutput(t *testing.T) {
	data := encodeTestImage(t, 1600, 1200)

	thumb, err := Thumbnail(data)
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.LessOrEqual(t, img.Bounds().Dx(), 320)
	assert.LessOrEqual(t, img.Bounds().Dy(), 320)
	assert.Less(t, len(thumb), len(data))
}
