package classifier

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

// InputSize is the square edge, in pixels, the model expects.
const InputSize = 224

// ImageNet channel statistics the backbone was trained with.
var (
	channelMean = [3]float32{0.485, 0.456, 0.406}
	channelStd  = [3]float32{0.229, 0.224, 0.225}
)

// ErrDecodeImage wraps failures to parse the submitted bytes as an image.
var ErrDecodeImage = errors.New("decode image")

// Preprocess decodes an encoded image (JPEG, PNG, GIF or WEBP) and converts
// it into a normalized 1x3xInputSizexInputSize CHW tensor.
func Preprocess(data []byte) ([]float32, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeImage, err)
	}
	return tensorFromImage(img), nil
}

func tensorFromImage(img image.Image) []float32 {
	resized := resize.Resize(InputSize, InputSize, img, resize.Bilinear)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height
	out := make([]float32, 3*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			idx := y*width + x
			out[idx] = normalize(r, 0)
			out[plane+idx] = normalize(g, 1)
			out[2*plane+idx] = normalize(b, 2)
		}
	}
	return out
}

func normalize(v uint32, channel int) float32 {
	return (float32(v)/65535.0 - channelMean[channel]) / channelStd[channel]
}
