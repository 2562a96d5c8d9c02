package keypoints

import (
	"image"
	"math"
	"math/rand"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/smilesmith9879/G9/rimage"
)

// SamplingType stores 0 if a sampling of image points for BRIEF is uniform, 1 if gaussian.
type SamplingType int

const (
	uniform SamplingType = iota // 0
	normal                      // 1
)

// Descriptor is a binary descriptor packed into 64 bit words.
type Descriptor = []uint64

// Descriptors is a set of binary descriptors, one per keypoint.
type Descriptors [][]uint64

// SamplePairs are N pairs of points used to create the BRIEF Descriptors of a patch.
type SamplePairs struct {
	P0 []image.Point
	P1 []image.Point
	N  int
}

// GenerateSamplePairs generates n samples for a patch size with the chosen Sampling Type. The
// same seed always yields the same pairs, so descriptors from different frames are comparable.
func GenerateSamplePairs(dist SamplingType, n, patchSize int, seed int64) *SamplePairs {
	//nolint:gosec
	rng := rand.New(rand.NewSource(seed))
	half := patchSize / 2
	sample := func() int {
		switch dist {
		case normal:
			// isotropic gaussian with sigma^2 = S^2/25, clipped to the patch
			v := int(math.Round(rng.NormFloat64() * float64(patchSize) / 5))
			if v < -half {
				v = -half
			}
			if v > half {
				v = half
			}
			return v
		default:
			return rng.Intn(2*half+1) - half
		}
	}
	p0 := make([]image.Point, 0, n)
	p1 := make([]image.Point, 0, n)
	for i := 0; i < n; i++ {
		a := image.Point{sample(), sample()}
		b := image.Point{sample(), sample()}
		for a == b {
			b = image.Point{sample(), sample()}
		}
		p0 = append(p0, a)
		p1 = append(p1, b)
	}
	return &SamplePairs{P0: p0, P1: p1, N: n}
}

// BRIEFConfig stores the parameters.
type BRIEFConfig struct {
	N              int          `json:"n"` // number of samples taken
	Sampling       SamplingType `json:"sampling"`
	UseOrientation bool         `json:"use_orientation"`
	PatchSize      int          `json:"patch_size"`
	Seed           int64        `json:"seed"`
}

// DefaultBRIEFConfig returns the 256 bit rotated BRIEF configuration used for ORB.
func DefaultBRIEFConfig() *BRIEFConfig {
	return &BRIEFConfig{
		N:              256,
		Sampling:       normal,
		UseOrientation: true,
		PatchSize:      31,
		Seed:           42,
	}
}

// Validate ensures all parts of the BRIEFConfig are valid.
func (cfg *BRIEFConfig) Validate(path string) error {
	if cfg.N < 64 || cfg.N%64 != 0 {
		return goutils.NewConfigValidationError(path, errors.New("n must be a positive multiple of 64"))
	}
	if cfg.PatchSize < 3 {
		return goutils.NewConfigValidationError(path, errors.New("patch_size must be >= 3"))
	}
	if cfg.Sampling != uniform && cfg.Sampling != normal {
		return goutils.NewConfigValidationError(path, errors.Errorf("unknown sampling %d", cfg.Sampling))
	}
	return nil
}

// Radius returns the largest offset from a keypoint that a rotated sample pair can reach.
func (cfg *BRIEFConfig) Radius() int {
	return int(math.Ceil(float64(cfg.PatchSize/2)*math.Sqrt2)) + 1
}

// ComputeBRIEFDescriptors computes BRIEF descriptors on image img at keypoints kps. Keypoints whose
// rotated patch leaves the image get an all zero descriptor.
func ComputeBRIEFDescriptors(img *image.Gray, sp *SamplePairs, kps *FASTKeypoints, cfg *BRIEFConfig) (Descriptors, error) {
	if sp.N%64 != 0 {
		return nil, errors.Errorf("number of sample pairs must be a multiple of 64, got %d", sp.N)
	}
	// blur image
	kernel := rimage.GetGaussian5()
	normalized := kernel.Normalize()
	blurred, err := rimage.ConvolveGray(rimage.MakeGray(img), normalized, image.Point{2, 2}, rimage.BorderReflect)
	if err != nil {
		return nil, err
	}
	offset := img.Bounds().Min

	descs := make(Descriptors, len(kps.Points))
	bnd := blurred.Bounds()
	radius := cfg.Radius()
	for k, kpAbs := range kps.Points {
		kp := kpAbs.Sub(offset)
		descriptor := make(Descriptor, sp.N/64)
		descs[k] = descriptor
		if !kp.Add(image.Point{-radius, -radius}).In(bnd) || !kp.Add(image.Point{radius, radius}).In(bnd) {
			continue
		}
		cosTheta := 1.0
		sinTheta := 0.0
		if cfg.UseOrientation && kps.IsOriented() {
			angle := kps.Orientations[k]
			cosTheta = math.Cos(angle)
			sinTheta = math.Sin(angle)
		}
		for i := 0; i < sp.N; i++ {
			x0, y0 := float64(sp.P0[i].X), float64(sp.P0[i].Y)
			x1, y1 := float64(sp.P1[i].X), float64(sp.P1[i].Y)
			// rotate the sampled coordinates by the keypoint orientation
			outx0 := int(math.Round(cosTheta*x0 - sinTheta*y0))
			outy0 := int(math.Round(sinTheta*x0 + cosTheta*y0))
			outx1 := int(math.Round(cosTheta*x1 - sinTheta*y1))
			outy1 := int(math.Round(sinTheta*x1 + cosTheta*y1))
			p0Val := blurred.GrayAt(kp.X+outx0, kp.Y+outy0).Y
			p1Val := blurred.GrayAt(kp.X+outx1, kp.Y+outy1).Y
			if p0Val > p1Val {
				descriptor[i/64] |= 1 << (i % 64)
			}
		}
	}
	return descs, nil
}
