// Package keypoints contains the implementation of keypoints in an image. For now:
// - FAST keypoints
// - BRIEF descriptors
// - ORB keypoints (oriented FAST with rotated BRIEF over an image pyramid)
// - brute force hamming matching
package keypoints

import (
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
)

// KeyPoints is a slice of image.Point that contains several kps.
type KeyPoints []image.Point

// orientationRadius is the radius of the disk used to compute the intensity centroid of a corner.
const orientationRadius = 15

// computeMaskOrientationFAST returns, for every row offset in [-15, 15], the half width of the disk
// of radius 15 at that row.
func computeMaskOrientationFAST() []int {
	halfWidths := []int{15, 15, 15, 15, 14, 14, 14, 13, 13, 12, 11, 10, 9, 8, 6, 3}
	mask := make([]int, 2*orientationRadius+1)
	for dy := -orientationRadius; dy <= orientationRadius; dy++ {
		ady := dy
		if ady < 0 {
			ady = -ady
		}
		mask[dy+orientationRadius] = halfWidths[ady]
	}
	return mask
}

var orientationMask = computeMaskOrientationFAST()

// computeKeypointsOrientations returns the angle of the intensity centroid of the disk around every
// keypoint. Pixels outside the image count as zero.
func computeKeypointsOrientations(img *image.Gray, kps KeyPoints) []float64 {
	bnd := img.Bounds()
	inner := bnd.Inset(orientationRadius)
	orientations := make([]float64, len(kps))
	for i, kp := range kps {
		m01, m10 := 0, 0
		for dy := -orientationRadius; dy <= orientationRadius; dy++ {
			y := kp.Y + dy
			if y < bnd.Min.Y || y >= bnd.Max.Y {
				continue
			}
			halfWidth := orientationMask[dy+orientationRadius]
			rowSum := 0
			if kp.In(inner) {
				row := img.Pix[img.PixOffset(kp.X-halfWidth, y):]
				for dx := -halfWidth; dx <= halfWidth; dx++ {
					pixVal := int(row[dx+halfWidth])
					m10 += pixVal * dx
					rowSum += pixVal
				}
			} else {
				for dx := -halfWidth; dx <= halfWidth; dx++ {
					x := kp.X + dx
					if x < bnd.Min.X || x >= bnd.Max.X {
						continue
					}
					pixVal := int(img.GrayAt(x, y).Y)
					m10 += pixVal * dx
					rowSum += pixVal
				}
			}
			m01 += rowSum * dy
		}
		orientations[i] = math.Atan2(float64(m01), float64(m10))
	}
	return orientations
}

// RescaleKeypoints multiplies the keypoint coordinates by scaleFactor.
func RescaleKeypoints(kps KeyPoints, scaleFactor int) KeyPoints {
	rescaled := make(KeyPoints, len(kps))
	for i, kp := range kps {
		rescaled[i] = kp.Mul(scaleFactor)
	}
	return rescaled
}

// DrawKeypoints returns a copy of img with a translucent disk drawn on every keypoint.
func DrawKeypoints(img image.Image, kps KeyPoints) image.Image {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	dc := gg.NewContext(w, h)
	dc.DrawImage(img, 0, 0)

	dc.SetColor(color.NRGBA{0, 0, 255, 128})
	for _, p := range kps {
		dc.DrawCircle(float64(p.X), float64(p.Y), 3.0)
		dc.Fill()
	}
	return dc.Image()
}

// PlotKeypoints plots keypoints on image and saves the result as a png.
func PlotKeypoints(img image.Image, kps KeyPoints, outName string) error {
	return gg.SavePNG(outName, DrawKeypoints(img, kps))
}
