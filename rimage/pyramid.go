package rimage

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// minPyramidSize is the smallest side length a pyramid level may have.
const minPyramidSize = 32

// ImagePyramid contains successive downscalings of a gray image. Scales[i] is the factor that maps
// coordinates of Images[i] back to the original image.
type ImagePyramid struct {
	Images []*image.Gray
	Scales []int
}

// GetImagePyramid halves the image until either side would fall below 32 pixels or maxLevels is
// reached. maxLevels <= 0 means no level limit.
func GetImagePyramid(img *image.Gray, maxLevels int) (*ImagePyramid, error) {
	size := img.Bounds().Size()
	if size.X < minPyramidSize || size.Y < minPyramidSize {
		return nil, errors.Errorf("image of size %v is too small for a pyramid", size)
	}
	pyramid := &ImagePyramid{
		Images: []*image.Gray{img},
		Scales: []int{1},
	}
	current, scale := img, 1
	for maxLevels <= 0 || len(pyramid.Images) < maxLevels {
		w, h := current.Bounds().Dx()/2, current.Bounds().Dy()/2
		if w < minPyramidSize || h < minPyramidSize {
			break
		}
		current = MakeGray(imaging.Resize(current, w, h, imaging.Box))
		scale *= 2
		pyramid.Images = append(pyramid.Images, current)
		pyramid.Scales = append(pyramid.Scales, scale)
	}
	return pyramid, nil
}
