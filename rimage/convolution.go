package rimage

import (
	"image"

	"github.com/pkg/errors"

	"github.com/smilesmith9879/G9/utils"
)

// BorderPad is an enum type for supported padding types.
type BorderPad int

const (
	// BorderConstant pads with zeros.
	BorderConstant BorderPad = iota
	// BorderReplicate repeats the edge pixel.
	BorderReplicate
	// BorderReflect mirrors the image about its edge (abc|cba).
	BorderReflect
)

// Kernel is a 2D filter indexed as Content[y][x].
type Kernel struct {
	Content [][]float64
	Width   int
	Height  int
}

// GetGaussian5 returns a 5x5 unnormalized gaussian kernel.
func GetGaussian5() *Kernel {
	return &Kernel{
		[][]float64{
			{1, 4, 7, 4, 1},
			{4, 16, 26, 16, 4},
			{7, 26, 41, 26, 7},
			{4, 16, 26, 16, 4},
			{1, 4, 7, 4, 1},
		},
		5,
		5,
	}
}

// Size returns the kernel dimensions.
func (k *Kernel) Size() image.Point {
	return image.Point{k.Width, k.Height}
}

// AbsSum returns the sum of absolute kernel values.
func (k *Kernel) AbsSum() float64 {
	sum := 0.
	for _, row := range k.Content {
		for _, v := range row {
			if v < 0 {
				sum -= v
			} else {
				sum += v
			}
		}
	}
	return sum
}

// Normalize returns a copy of the kernel whose absolute values sum to 1.
func (k *Kernel) Normalize() *Kernel {
	sum := k.AbsSum()
	out := make([][]float64, k.Height)
	for y := range out {
		out[y] = make([]float64, k.Width)
		for x := range out[y] {
			if sum == 0 {
				out[y][x] = k.Content[y][x]
				continue
			}
			out[y][x] = k.Content[y][x] / sum
		}
	}
	return &Kernel{out, k.Width, k.Height}
}

// PaddingGray pads a gray image so that a kernel of kernelSize anchored at anchor can be applied at
// every original pixel. The padded image has its origin at (0, 0).
func PaddingGray(img *image.Gray, kernelSize, anchor image.Point, border BorderPad) (*image.Gray, error) {
	if anchor.X < 0 || anchor.Y < 0 || anchor.X >= kernelSize.X || anchor.Y >= kernelSize.Y {
		return nil, errors.Errorf("anchor %v must lie inside kernel of size %v", anchor, kernelSize)
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, errors.New("cannot pad an empty image")
	}
	left, top := anchor.X, anchor.Y
	right, bottom := kernelSize.X-anchor.X-1, kernelSize.Y-anchor.Y-1
	padded := image.NewGray(image.Rect(0, 0, w+left+right, h+top+bottom))

	for y := 0; y < padded.Rect.Dy(); y++ {
		for x := 0; x < padded.Rect.Dx(); x++ {
			srcX, okX := borderIndex(x-left, w, border)
			srcY, okY := borderIndex(y-top, h, border)
			if !okX || !okY {
				continue
			}
			padded.SetGray(x, y, img.GrayAt(bounds.Min.X+srcX, bounds.Min.Y+srcY))
		}
	}
	return padded, nil
}

// borderIndex maps an out of range index into [0, n) according to the border type. It returns false
// when the pixel should stay zero.
func borderIndex(i, n int, border BorderPad) (int, bool) {
	if i >= 0 && i < n {
		return i, true
	}
	switch border {
	case BorderReplicate:
		if i < 0 {
			return 0, true
		}
		return n - 1, true
	case BorderReflect:
		for i < 0 || i >= n {
			if i < 0 {
				i = -i - 1
			}
			if i >= n {
				i = 2*n - i - 1
			}
		}
		return i, true
	default:
		return 0, false
	}
}

// ConvolveGray applies a convolution matrix (Kernel) to a grayscale image. The anchor represents the
// kernel position that is written to on the result image.
func ConvolveGray(img *image.Gray, kernel *Kernel, anchor image.Point, border BorderPad) (*image.Gray, error) {
	kernelSize := kernel.Size()
	padded, err := PaddingGray(img, kernelSize, anchor, border)
	if err != nil {
		return nil, err
	}
	originalSize := img.Bounds().Size()
	resultImage := image.NewGray(image.Rect(0, 0, originalSize.X, originalSize.Y))
	utils.ParallelForEachPixel(originalSize, func(x, y int) {
		sum := float64(0)
		for ky := 0; ky < kernelSize.Y; ky++ {
			row := padded.Pix[(y+ky)*padded.Stride+x:]
			for kx, k := range kernel.Content[ky] {
				sum += float64(row[kx]) * k
			}
		}
		sum = utils.ClampF64(sum, 0, 255)
		resultImage.Pix[y*resultImage.Stride+x] = uint8(sum + 0.5)
	})
	return resultImage, nil
}
