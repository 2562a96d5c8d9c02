package transform

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// RANSACConfig contains the parameters of the robust homography estimator.
type RANSACConfig struct {
	// Threshold is the maximum reprojection error, in pixels, for a correspondence to count as an inlier.
	Threshold float64 `json:"threshold_px"`
	// MaxIterations bounds the number of minimal samples drawn.
	MaxIterations int `json:"max_iterations"`
	// Confidence is the probability with which the adaptive stopping rule expects an outlier free sample.
	Confidence float64 `json:"confidence"`
	// Seed makes the sampling reproducible.
	Seed int64 `json:"seed"`
}

// DefaultRANSACConfig returns the estimator parameters used by the mapping pipeline.
func DefaultRANSACConfig() RANSACConfig {
	return RANSACConfig{
		Threshold:     5.0,
		MaxIterations: 2000,
		Confidence:    0.995,
		Seed:          1,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *RANSACConfig) Validate() error {
	if cfg.Threshold <= 0 {
		return errors.New("threshold_px must be > 0")
	}
	if cfg.MaxIterations < 1 {
		return errors.New("max_iterations must be >= 1")
	}
	if cfg.Confidence <= 0 || cfg.Confidence >= 1 {
		return errors.New("confidence must be in (0, 1)")
	}
	return nil
}

// EstimateHomographyRANSAC estimates the homography mapping pts1 onto pts2 while rejecting outliers.
// It returns the homography refit on all inliers and the indices of those inliers.
func EstimateHomographyRANSAC(pts1, pts2 []r2.Point, thresh float64, nMaxIteration int) (*Homography, []int, error) {
	cfg := DefaultRANSACConfig()
	cfg.Threshold = thresh
	cfg.MaxIterations = nMaxIteration
	return EstimateHomographyRANSACWithConfig(pts1, pts2, &cfg)
}

// EstimateHomographyRANSACWithConfig is EstimateHomographyRANSAC with explicit estimator parameters.
func EstimateHomographyRANSACWithConfig(pts1, pts2 []r2.Point, cfg *RANSACConfig) (*Homography, []int, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if len(pts1) != len(pts2) {
		return nil, nil, errors.New("sets of points pts1 and pts2 must have the same number of elements")
	}
	nPoints := len(pts1)
	if nPoints < 4 {
		return nil, nil, errors.Wrapf(ErrDegenerateHomography, "need at least 4 points, got %d", nPoints)
	}

	//nolint:gosec
	rng := rand.New(rand.NewSource(cfg.Seed))
	threshSq := cfg.Threshold * cfg.Threshold
	var bestInliers []int
	maxIterations := cfg.MaxIterations
	sample := make([]int, 4)
	sample1 := make([]r2.Point, 4)
	sample2 := make([]r2.Point, 4)

	for iter := 0; iter < maxIterations; iter++ {
		drawSample(rng, nPoints, sample)
		for i, idx := range sample {
			sample1[i] = pts1[idx]
			sample2[i] = pts2[idx]
		}
		if hasCollinearTriple(sample1) || hasCollinearTriple(sample2) {
			continue
		}
		h, err := EstimateHomographyDLT(sample1, sample2)
		if err != nil {
			continue
		}
		inliers := findInliers(h, pts1, pts2, threshSq)
		if len(inliers) <= len(bestInliers) {
			continue
		}
		bestInliers = inliers
		if len(bestInliers) == nPoints {
			break
		}
		if n := adaptiveIterations(len(bestInliers), nPoints, cfg.Confidence); n < maxIterations {
			maxIterations = n
		}
	}

	if len(bestInliers) < 4 {
		return nil, nil, ErrDegenerateHomography
	}
	in1 := make([]r2.Point, len(bestInliers))
	in2 := make([]r2.Point, len(bestInliers))
	for i, idx := range bestInliers {
		in1[i] = pts1[idx]
		in2[i] = pts2[idx]
	}
	refined, err := EstimateHomographyDLT(in1, in2)
	if err != nil {
		return nil, nil, err
	}
	return refined, findInliers(refined, pts1, pts2, threshSq), nil
}

// drawSample fills out with distinct random indices in [0, n).
func drawSample(rng *rand.Rand, n int, out []int) {
	for i := range out {
	redraw:
		idx := rng.Intn(n)
		for _, prev := range out[:i] {
			if prev == idx {
				goto redraw
			}
		}
		out[i] = idx
	}
}

func findInliers(h *Homography, pts1, pts2 []r2.Point, threshSq float64) []int {
	inliers := make([]int, 0, len(pts1))
	for i := range pts1 {
		d := h.Apply(pts1[i]).Sub(pts2[i])
		if d.Dot(d) <= threshSq {
			inliers = append(inliers, i)
		}
	}
	return inliers
}

// adaptiveIterations returns the number of samples needed to draw one outlier free minimal sample
// with the given confidence.
func adaptiveIterations(nInliers, nPoints int, confidence float64) int {
	inlierRatio := float64(nInliers) / float64(nPoints)
	pGood := math.Pow(inlierRatio, 4)
	if pGood >= 1 {
		return 0
	}
	if pGood <= 0 {
		return math.MaxInt32
	}
	n := math.Log(1-confidence) / math.Log(1-pGood)
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Ceil(n))
}

// hasCollinearTriple reports whether any 3 of the 4 points are (nearly) collinear or coincident.
func hasCollinearTriple(pts []r2.Point) bool {
	const eps = 1e-6
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			for k := j + 1; k < len(pts); k++ {
				area := pts[j].Sub(pts[i]).Cross(pts[k].Sub(pts[i]))
				if math.Abs(area) < eps {
					return true
				}
			}
		}
	}
	return false
}
