package main

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"

	tf "github.com/galeone/tensorflow/tensorflow/go"
	"github.com/nfnt/resize"
	"golang.org/x/image/bmp"
)

// decodeImage decodes raster image from given reader, the decoder is
// chosen purely on file extension: .png, .gif, .bmp, anything else is
// treated as JPEG
func decodeImage(r io.Reader, fname string) (image.Image, error) {
	name := strings.ToLower(fname)
	switch {
	case strings.HasSuffix(name, ".png"):
		return png.Decode(r)
	case strings.HasSuffix(name, ".gif"):
		// first frame only
		return gif.Decode(r)
	case strings.HasSuffix(name, ".bmp"):
		return bmp.Decode(r)
	default:
		return jpeg.Decode(r)
	}
}

// normalizedPixels resizes given image with bilinear interpolation and
// yields a [1][h][w][3] array of (pixel-mean)/std normalized float32 values
func normalizedPixels(img image.Image, h, w int, mean, std float32) [][][][]float32 {
	resized := resize.Resize(uint(w), uint(h), img, resize.Bilinear)
	bounds := resized.Bounds()
	rows := make([][][]float32, h)
	for y := 0; y < h; y++ {
		cols := make([][]float32, w)
		for x := 0; x < w; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			cols[x] = []float32{
				(float32(r>>8) - mean) / std,
				(float32(g>>8) - mean) / std,
				(float32(b>>8) - mean) / std,
			}
		}
		rows[y] = cols
	}
	return [][][][]float32{rows}
}

// makeTensorFromImage decodes, resizes and normalizes image content from
// given reader and yields a [1, h, w, 3] float32 tensor suitable for
// image classification models
func makeTensorFromImage(r io.Reader, fname string, h, w int, mean, std float32) (*tf.Tensor, error) {
	if std == 0 {
		return nil, fmt.Errorf("input std must not be zero")
	}
	img, err := decodeImage(r, fname)
	if err != nil {
		return nil, fmt.Errorf("unable to decode %s: %v", fname, err)
	}
	return tf.NewTensor(normalizedPixels(img, h, w, mean, std))
}

// readTensorFromImageFile yields a normalized image tensor for given file,
// parameters come from the active configuration
func readTensorFromImageFile(fname string) (*tf.Tensor, error) {
	file, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return makeTensorFromImage(file, fname, _config.InputHeight, _config.InputWidth, float32(_config.InputMean), float32(_config.InputStd))
}
