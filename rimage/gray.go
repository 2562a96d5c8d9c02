// Package rimage contains the image helpers the feature pipeline runs on: grayscale conversion,
// kernel convolution with border padding, and image pyramids.
package rimage

import (
	"image"
	"image/draw"
)

// MakeGray converts any image to an *image.Gray whose bounds start at the origin.
// Gray images already at the origin are returned as is.
func MakeGray(pic image.Image) *image.Gray {
	if g, ok := pic.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}
	bounds := pic.Bounds()
	result := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(result, result.Bounds(), pic, bounds.Min, draw.Src)
	return result
}

// SameImgSize compares images to see if they're the same size.
func SameImgSize(g1, g2 image.Image) bool {
	return g1.Bounds().Size() == g2.Bounds().Size()
}
