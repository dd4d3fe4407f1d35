package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// ErrInvalidImage is returned when uploaded bytes are not a decodable image.
var ErrInvalidImage = errors.New("invalid image")

// MaxImageDimension bounds the width and height Decode accepts. Compressed
// uploads can declare sizes far beyond their byte length.
const MaxImageDimension = 8192

// Decode parses JPEG, PNG, GIF or WebP bytes. Images wider or taller than
// MaxImageDimension are rejected before any pixels are allocated.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidImage)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxImageDimension || cfg.Height > MaxImageDimension {
		return nil, fmt.Errorf("%w: %dx%d exceeds %dx%d", ErrInvalidImage,
			cfg.Width, cfg.Height, MaxImageDimension, MaxImageDimension)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}

// Resize scales img to size×size with bilinear interpolation.
func Resize(img image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// ToTensor resizes img to size×size and lays its RGB channels out as a
// [3, size, size] tensor with values in [0, 1]. Alpha is dropped.
func ToTensor(img image.Image, size int) Tensor {
	rgba := Resize(img, size)
	plane := size * size
	data := make([]float32, 3*plane)

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			off := rgba.PixOffset(x, y)
			i := y*size + x
			data[i] = float32(rgba.Pix[off]) / 255
			data[plane+i] = float32(rgba.Pix[off+1]) / 255
			data[2*plane+i] = float32(rgba.Pix[off+2]) / 255
		}
	}

	return Tensor{Shape: []int{3, size, size}, Data: data}
}
