package keypoints

import (
	"image"
	"sort"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/smilesmith9879/G9/utils"
)

// FASTConfig holds the parameters necessary to compute the FAST keypoints.
type FASTConfig struct {
	// NMatchesCircle is the number of contiguous circle pixels that must all be brighter or darker.
	NMatchesCircle int `json:"n_matches"`
	// NMSWinSize is the side of the non-maximum suppression window. 0 disables suppression.
	NMSWinSize int `json:"nms_win_size"`
	// Threshold is the absolute intensity difference, in gray levels, for a circle pixel to count.
	Threshold float64 `json:"threshold"`
	Oriented  bool    `json:"oriented"`
}

// DefaultFASTConfig returns the FAST-9 configuration used for ORB.
func DefaultFASTConfig() *FASTConfig {
	return &FASTConfig{
		NMatchesCircle: 9,
		NMSWinSize:     3,
		Threshold:      20,
		Oriented:       true,
	}
}

// Validate ensures all parts of the FASTConfig are valid.
func (cfg *FASTConfig) Validate(path string) error {
	if cfg.NMatchesCircle < 1 || cfg.NMatchesCircle > len(CircleIdx) {
		return goutils.NewConfigValidationError(path, errors.Errorf("n_matches must be in [1, %d]", len(CircleIdx)))
	}
	if cfg.NMSWinSize < 0 {
		return goutils.NewConfigValidationError(path, errors.New("nms_win_size must be >= 0"))
	}
	if cfg.Threshold < 0 {
		return goutils.NewConfigValidationError(path, errors.New("threshold must be >= 0"))
	}
	return nil
}

// FASTKeypoints stores keypoint locations, their FAST scores and optionally their orientations.
type FASTKeypoints struct {
	Points       KeyPoints
	Scores       []float64
	Orientations []float64
}

// PixelPosition is a neighborhood offset.
type PixelPosition = image.Point

var (
	// CircleIdx contains the neighbors coordinates in a circle of radius 3 neighborhood.
	CircleIdx = []PixelPosition{
		{0, -3},
		{1, -3},
		{2, -2},
		{3, -1},
		{3, 0},
		{3, 1},
		{2, 2},
		{1, 3},
		{0, 3},
		{-1, 3},
		{-2, 2},
		{-3, 1},
		{-3, 0},
		{-3, -1},
		{-2, -2},
		{-1, -3},
	}
)

// fastRadius is the radius of the Bresenham circle.
const fastRadius = 3

// NewFASTKeypointsFromImage returns a pointer to a FASTKeypoints struct containing keypoints
// sorted by decreasing score.
func NewFASTKeypointsFromImage(img *image.Gray, cfg *FASTConfig) *FASTKeypoints {
	return detectFAST(img, cfg, 0, 0)
}

// detectFAST keeps the maxKeypoints strongest corners lying at least border pixels inside img, all of
// them when maxKeypoints <= 0, and only orients the kept ones.
func detectFAST(img *image.Gray, cfg *FASTConfig, border, maxKeypoints int) *FASTKeypoints {
	kps, scores := ComputeFAST(img, cfg)
	out := filterBorderKeypoints(&FASTKeypoints{Points: kps, Scores: scores}, img.Bounds(), border)
	if maxKeypoints > 0 && out.Len() > maxKeypoints {
		out.Points = out.Points[:maxKeypoints]
		out.Scores = out.Scores[:maxKeypoints]
	}
	if cfg.Oriented {
		out.Orientations = computeKeypointsOrientations(img, out.Points)
	}
	return out
}

// IsOriented returns true if FASTKeypoints contains orientations.
func (kps *FASTKeypoints) IsOriented() bool {
	return kps.Orientations != nil
}

// Len returns the number of keypoints.
func (kps *FASTKeypoints) Len() int {
	return len(kps.Points)
}

// circleSize is the number of pixels on the Bresenham circle.
const circleSize = 16

// compassIdx are the positions of CircleIdx straight above, right, below and left of the center.
var compassIdx = [4]int{0, 4, 8, 12}

// readCircle stores the values of the circle pixels around pt in vals. Pixels outside the image read
// as 0.
func readCircle(img *image.Gray, pt image.Point, vals *[circleSize]int) {
	bnd := img.Bounds()
	if pt.X-fastRadius >= bnd.Min.X && pt.X+fastRadius < bnd.Max.X &&
		pt.Y-fastRadius >= bnd.Min.Y && pt.Y+fastRadius < bnd.Max.Y {
		center := img.PixOffset(pt.X, pt.Y)
		for i, off := range CircleIdx {
			vals[i] = int(img.Pix[center+off.Y*img.Stride+off.X])
		}
		return
	}
	for i, off := range CircleIdx {
		q := pt.Add(off)
		if q.In(bnd) {
			vals[i] = int(img.Pix[img.PixOffset(q.X, q.Y)])
		} else {
			vals[i] = 0
		}
	}
}

// hasContiguousArc reports whether the circular bit set mask of circleSize bits contains at least n
// contiguous set bits.
func hasContiguousArc(mask uint32, n int) bool {
	if n <= 0 {
		return true
	}
	count := 0
	// walk the circle twice to handle arcs that wrap around
	for i := 0; i < 2*circleSize; i++ {
		if mask&(1<<(i%circleSize)) != 0 {
			count++
			if count >= n {
				return true
			}
		} else {
			count = 0
		}
	}
	return false
}

// cornerScore returns the FAST score of the pixel at pt, or 0 if it is not a corner. The score is the
// total contrast of the circle pixels on the winning side.
//
// An arc of n contiguous pixels covers at least n/4 of the compass pixels, so pixels failing that on
// both sides are rejected before the full circle is examined.
func cornerScore(img *image.Gray, pt image.Point, cfg *FASTConfig) float64 {
	var circle [circleSize]int
	readCircle(img, pt, &circle)
	p := float64(img.Pix[img.PixOffset(pt.X, pt.Y)])
	bright, dark := p+cfg.Threshold, p-cfg.Threshold

	minCompass := cfg.NMatchesCircle / 4
	nBright, nDark := 0, 0
	for _, i := range compassIdx {
		v := float64(circle[i])
		if v > bright {
			nBright++
		} else if v < dark {
			nDark++
		}
	}
	if nBright < minCompass && nDark < minCompass {
		return 0
	}

	var brightMask, darkMask uint32
	sumAbove, sumBelow := 0., 0.
	for i, c := range circle {
		v := float64(c)
		switch {
		case v > bright:
			brightMask |= 1 << i
		case v < dark:
			darkMask |= 1 << i
		}
		if d := v - p; d > 0 {
			sumAbove += d
		} else {
			sumBelow -= d
		}
	}
	score := 0.
	if nBright >= minCompass && hasContiguousArc(brightMask, cfg.NMatchesCircle) {
		score = sumAbove
	}
	if nDark >= minCompass && hasContiguousArc(darkMask, cfg.NMatchesCircle) && sumBelow > score {
		score = sumBelow
	}
	return score
}

// ComputeFAST computes the location of FAST keypoints and their scores. Keypoints are returned
// sorted by decreasing score, ties broken by row then column.
func ComputeFAST(img *image.Gray, cfg *FASTConfig) (KeyPoints, []float64) {
	bnd := img.Bounds()
	w, h := bnd.Dx(), bnd.Dy()
	if w <= 2*fastRadius || h <= 2*fastRadius {
		return KeyPoints{}, []float64{}
	}
	inner := image.Point{w - 2*fastRadius, h - 2*fastRadius}
	scores := make([]float64, w*h)
	utils.ParallelForEachPixel(inner, func(x, y int) {
		px, py := x+fastRadius, y+fastRadius
		scores[py*w+px] = cornerScore(img, image.Point{bnd.Min.X + px, bnd.Min.Y + py}, cfg)
	})

	kps := make(KeyPoints, 0)
	kpScores := make([]float64, 0)
	half := cfg.NMSWinSize / 2
	for y := fastRadius; y < h-fastRadius; y++ {
		for x := fastRadius; x < w-fastRadius; x++ {
			s := scores[y*w+x]
			if s <= 0 {
				continue
			}
			if half > 0 && !isLocalMaximum(scores, w, h, x, y, half) {
				continue
			}
			kps = append(kps, image.Point{bnd.Min.X + x, bnd.Min.Y + y})
			kpScores = append(kpScores, s)
		}
	}

	order := make([]int, len(kps))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return kpScores[order[i]] > kpScores[order[j]]
	})
	sortedKps := make(KeyPoints, len(kps))
	sortedScores := make([]float64, len(kps))
	for i, idx := range order {
		sortedKps[i] = kps[idx]
		sortedScores[i] = kpScores[idx]
	}
	return sortedKps, sortedScores
}

// isLocalMaximum reports whether the score at (x, y) is the maximum of its window. Equal scores keep
// only the first one in row major order.
func isLocalMaximum(scores []float64, w, h, x, y, half int) bool {
	s := scores[y*w+x]
	for dy := -half; dy <= half; dy++ {
		ny := y + dy
		if ny < 0 || ny >= h {
			continue
		}
		for dx := -half; dx <= half; dx++ {
			nx := x + dx
			if nx < 0 || nx >= w || (dx == 0 && dy == 0) {
				continue
			}
			other := scores[ny*w+nx]
			if other > s {
				return false
			}
			if other == s && (dy < 0 || (dy == 0 && dx < 0)) {
				return false
			}
		}
	}
	return true
}
