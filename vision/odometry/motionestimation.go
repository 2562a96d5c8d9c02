// Package odometry turns matched keypoints between two frames into planar camera motion and
// integrates that motion into a dead reckoned pose.
package odometry

import (
	"encoding/json"
	"image"
	"math"
	"os"
	"path/filepath"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/floats"

	"github.com/smilesmith9879/G9/logging"
	"github.com/smilesmith9879/G9/rimage/transform"
	"github.com/smilesmith9879/G9/vision/keypoints"
)

// ErrInsufficientMatches is returned when there are not enough correspondences, or not enough
// consistent ones, to estimate motion.
var ErrInsufficientMatches = errors.New("insufficient matches to estimate motion")

// MotionEstimationConfig contains the parameters needed for motion estimation between two video frames.
type MotionEstimationConfig struct {
	KeyPointCfg *keypoints.ORBConfig      `json:"kps"`
	MatchingCfg *keypoints.MatchingConfig `json:"matching"`
	RANSACCfg   transform.RANSACConfig    `json:"ransac"`
	// MaxMatches keeps only the best matches by descriptor distance. 0 keeps all.
	MaxMatches int `json:"max_matches"`
	// MinMatches is the smallest number of kept matches motion is estimated from.
	MinMatches int `json:"min_matches"`
}

// DefaultMotionEstimationConfig returns the configuration of the mapping pipeline: cross checked
// matching, the 30 best matches, at least 8 of them, and a 5 pixel RANSAC threshold.
func DefaultMotionEstimationConfig() *MotionEstimationConfig {
	return &MotionEstimationConfig{
		KeyPointCfg: keypoints.DefaultORBConfig(),
		MatchingCfg: &keypoints.MatchingConfig{DoCrossCheck: true},
		RANSACCfg:   transform.DefaultRANSACConfig(),
		MaxMatches:  30,
		MinMatches:  8,
	}
}

// LoadMotionEstimationConfig loads a motion estimation configuration from a json file. Missing
// keys keep their default value.
func LoadMotionEstimationConfig(path string) (*MotionEstimationConfig, error) {
	config := DefaultMotionEstimationConfig()
	//nolint:gosec
	configFile, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(configFile.Close)
	if err := json.NewDecoder(configFile).Decode(config); err != nil {
		return nil, errors.Wrapf(err, "cannot parse motion estimation config %q", path)
	}
	if err := config.Validate(path); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate ensures all parts of the config are valid.
func (config *MotionEstimationConfig) Validate(path string) error {
	if config.KeyPointCfg == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "kps")
	}
	if err := config.KeyPointCfg.Validate(path + ".kps"); err != nil {
		return err
	}
	if config.MatchingCfg == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "matching")
	}
	if err := config.RANSACCfg.Validate(); err != nil {
		return utils.NewConfigValidationError(path+".ransac", err)
	}
	if config.MinMatches < 4 {
		return utils.NewConfigValidationError(path, errors.New("min_matches must be >= 4"))
	}
	if config.MaxMatches != 0 && config.MaxMatches < config.MinMatches {
		return utils.NewConfigValidationError(path, errors.New("max_matches must be 0 or >= min_matches"))
	}
	return nil
}

// PlanarMotion is the image plane motion between two frames read off the homography that maps the
// first frame onto the second.
type PlanarMotion struct {
	Homography *transform.Homography
	// Translation is the last column of the homography, in pixels.
	Translation r2.Point
	// Yaw is atan2(H[1,0], H[0,0]) in degrees.
	Yaw     float64
	Inliers []int
	// MeanReprojectionError is the mean pixel error of the inliers.
	MeanReprojectionError float64
}

// NewPlanarMotionFromHomography reads translation and yaw off a homography.
func NewPlanarMotionFromHomography(h *transform.Homography) *PlanarMotion {
	return &PlanarMotion{
		Homography:  h,
		Translation: h.Translation(),
		Yaw:         h.Rotation() * 180 / math.Pi,
	}
}

// SelectBestMatches keeps the first maxMatches of matches sorted by ascending distance. It returns
// ErrInsufficientMatches when fewer than minMatches remain.
func SelectBestMatches(matches []keypoints.DescriptorMatch, maxMatches, minMatches int) ([]keypoints.DescriptorMatch, error) {
	if maxMatches > 0 && len(matches) > maxMatches {
		matches = matches[:maxMatches]
	}
	if len(matches) < minMatches {
		return nil, errors.Wrapf(ErrInsufficientMatches, "%d matches, need %d", len(matches), minMatches)
	}
	return matches, nil
}

// EstimatePlanarMotion robustly fits a homography to the correspondences and returns the motion it
// describes. Degenerate configurations are reported as ErrInsufficientMatches.
func EstimatePlanarMotion(pts1, pts2 []r2.Point, cfg *MotionEstimationConfig) (*PlanarMotion, error) {
	if len(pts1) < cfg.MinMatches {
		return nil, errors.Wrapf(ErrInsufficientMatches, "%d correspondences, need %d", len(pts1), cfg.MinMatches)
	}
	h, inliers, err := transform.EstimateHomographyRANSACWithConfig(pts1, pts2, &cfg.RANSACCfg)
	if err != nil {
		return nil, errors.Wrap(ErrInsufficientMatches, err.Error())
	}
	motion := NewPlanarMotionFromHomography(h)
	motion.Inliers = inliers
	errs := make([]float64, len(inliers))
	for i, idx := range inliers {
		errs[i] = h.ReprojectionError(pts1[idx], pts2[idx])
	}
	if len(errs) > 0 {
		motion.MeanReprojectionError = floats.Sum(errs) / float64(len(errs))
	}
	return motion, nil
}

// EstimateMotionFrom2Frames estimates the planar motion of the camera between frame img1 and frame
// img2. It also returns the matched keypoints of img2, the ones that supported the estimate.
func EstimateMotionFrom2Frames(img1, img2 image.Image, cfg *MotionEstimationConfig, logger logging.Logger,
) (*PlanarMotion, keypoints.KeyPoints, error) {
	extractor, err := keypoints.NewORBExtractor(cfg.KeyPointCfg)
	if err != nil {
		return nil, nil, err
	}
	orb1, kps1, err := extractor.Compute(img1)
	if err != nil {
		return nil, nil, err
	}
	orb2, kps2, err := extractor.Compute(img2)
	if err != nil {
		return nil, nil, err
	}
	matches, err := keypoints.MatchDescriptors(orb1, orb2, cfg.MatchingCfg)
	if err != nil {
		return nil, nil, err
	}
	best, err := SelectBestMatches(matches, cfg.MaxMatches, cfg.MinMatches)
	if err != nil {
		return nil, nil, err
	}
	matchedKps1, matchedKps2, err := keypoints.GetMatchingKeyPoints(best, kps1, kps2)
	if err != nil {
		return nil, nil, err
	}
	logger.Debugw("matched keypoints", "kps1", len(kps1), "kps2", len(kps2), "matches", len(matches), "kept", len(best))
	motion, err := EstimatePlanarMotion(
		ConvertImagePointSliceToFloatPointSlice(matchedKps1),
		ConvertImagePointSliceToFloatPointSlice(matchedKps2),
		cfg,
	)
	if err != nil {
		return nil, matchedKps2, err
	}
	return motion, matchedKps2, nil
}

// ConvertImagePointSliceToFloatPointSlice is a helper to convert slice of image.Point to a slice of r2.Point.
func ConvertImagePointSliceToFloatPointSlice(pts []image.Point) []r2.Point {
	ptsOut := make([]r2.Point, len(pts))
	for i, pt := range pts {
		ptsOut[i] = r2.Point{
			X: float64(pt.X),
			Y: float64(pt.Y),
		}
	}
	return ptsOut
}
