// Package preprocess turns uploaded image bytes into model input and a
// display copy.
package preprocess

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// InputSize is the square side the classifier was trained on.
	InputSize = 224
	// Channels is the number of colour channels fed to the model.
	Channels = 3
	// ThumbnailSize bounds both sides of the table thumbnail.
	ThumbnailSize = 120
)

// ErrDecode is returned when the bytes are not a readable image.
var ErrDecode = errors.New("decode error")

// Prepared holds the two independent outputs of Prepare.
type Prepared struct {
	Tensor   *Tensor
	Original *image.NRGBA
	Format   string
}

// Prepare decodes raw bytes and produces the model tensor and an untouched
// RGB copy of the image.
func Prepare(data []byte) (*Prepared, error) {
	original, format, err := Decode(data)
	if err != nil {
		return nil, err
	}

	return &Prepared{
		Tensor:   TensorFromImage(original),
		Original: original,
		Format:   format,
	}, nil
}

// Decode reads any registered image format and converts it to opaque RGB.
// Alpha is dropped, not composited against a background.
func Decode(data []byte) (*image.NRGBA, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty input", ErrDecode)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return toRGB(img), format, nil
}

func toRGB(img image.Image) *image.NRGBA {
	rgb := imaging.Clone(img)
	for i := 3; i < len(rgb.Pix); i += 4 {
		rgb.Pix[i] = 0xff
	}
	return rgb
}

// TensorFromImage resizes a copy of img to InputSize and scales to [0,1].
func TensorFromImage(img image.Image) *Tensor {
	// Resize works on its own copy; img is never written.
	working := imaging.Clone(img)
	resized := imaging.Resize(working, InputSize, InputSize, imaging.CatmullRom)

	t := NewTensor(1, InputSize, InputSize, Channels)
	idx := 0
	for y := 0; y < InputSize; y++ {
		row := resized.Pix[y*resized.Stride : y*resized.Stride+InputSize*4]
		for x := 0; x < InputSize; x++ {
			p := row[x*4 : x*4+3]
			t.Data[idx] = float32(p[0]) / 255
			t.Data[idx+1] = float32(p[1]) / 255
			t.Data[idx+2] = float32(p[2]) / 255
			idx += 3
		}
	}
	return t
}

// Thumbnail scales img down to fit ThumbnailSize without upscaling.
func Thumbnail(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() <= ThumbnailSize && b.Dy() <= ThumbnailSize {
		return imaging.Clone(img)
	}
	return imaging.Fit(img, ThumbnailSize, ThumbnailSize, imaging.Lanczos)
}

// ThumbnailDataURI renders the thumbnail as an inline PNG data URI.
func ThumbnailDataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Thumbnail(img)); err != nil {
		return "", fmt.Errorf("encode thumbnail: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
