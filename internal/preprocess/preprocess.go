// Package preprocess turns uploaded photos into model input tensors.
package preprocess

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/nfnt/resize"

	"github.com/foodvision/food-vision/internal/model"
)

// ErrDecode is returned when an upload is not a supported image.
var ErrDecode = errors.New("invalid image format, supported: JPEG, PNG")

const channels = 3

// Preprocessor resizes images to the network's input size and packs them
// channel-first with optional per-channel normalization.
type Preprocessor struct {
	size int
	mean [channels]float32
	std  [channels]float32
}

// New builds a preprocessor from model metadata.
func New(meta model.Metadata) *Preprocessor {
	p := &Preprocessor{
		size: meta.ImageSize,
		std:  [channels]float32{1, 1, 1},
	}
	if len(meta.Mean) == channels {
		copy(p.mean[:], meta.Mean)
	}
	if len(meta.Std) == channels {
		copy(p.std[:], meta.Std)
	}
	return p
}

// Decode reads a JPEG or PNG image and reports its format.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return img, format, nil
}

// Tensor converts img to a CHW float32 slice of length 3*size*size.
func (p *Preprocessor) Tensor(img image.Image) []float32 {
	targetSize := uint(p.size)
	resized := resize.Resize(targetSize, targetSize, img, resize.Lanczos3)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height

	inputData := make([]float32, channels*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()

			pixelIndex := y*width + x
			inputData[pixelIndex] = p.normalize(0, r)
			inputData[plane+pixelIndex] = p.normalize(1, g)
			inputData[2*plane+pixelIndex] = p.normalize(2, b)
		}
	}

	return inputData
}

func (p *Preprocessor) normalize(channel int, v uint32) float32 {
	return (float32(v)/65535.0 - p.mean[channel]) / p.std[channel]
}
