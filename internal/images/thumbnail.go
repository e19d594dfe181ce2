package images

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// thumbnailMaxDim bounds the longest edge of a cached preview thumbnail.
const thumbnailMaxDim = 320

// thumbnailQuality is the JPEG quality for re-encoded thumbnails.
const thumbnailQuality = 80

// Downscale scales img to fit within maxWidth x maxHeight, preserving the
// aspect ratio. Images already within bounds are returned unchanged.
func Downscale(img image.Image, maxWidth, maxHeight int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxWidth && h <= maxHeight {
		return img
	}

	ratio := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*ratio), int(float64(h)*ratio)))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// Thumbnail decodes image bytes, downscales to the preview bound, and
// re-encodes as JPEG. This is what listing screens cache instead of
// full-size card images.
func Thumbnail(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	small := Downscale(img, thumbnailMaxDim, thumbnailMaxDim)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, small, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
