package slam

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/smilesmith9879/G9/rimage/transform"
	"github.com/smilesmith9879/G9/vision/keypoints"
	"github.com/smilesmith9879/G9/vision/odometry"
)

const (
	defaultDataRateMs     = 200
	defaultErrorBackoffMs = 500
	defaultMaxMatches     = 30
	defaultMinMatches     = 8
	defaultRANSACThresh   = 5.0
	defaultMotionScale    = 0.01
	defaultPixelScale     = 0.01
	defaultMaxMapPoints   = 1000
	defaultMaxTrajectory  = 100
	defaultGridSize       = 100
	defaultGridResolution = 0.1
)

// Config describes the mapping processor.
type Config struct {
	// DataRateMs is the period of the processing cycle.
	DataRateMs int `json:"data_rate_ms"`
	// ErrorBackoffMs replaces the period after a cycle fails.
	ErrorBackoffMs int `json:"error_backoff_ms"`

	MaxMatches        int     `json:"max_matches"`
	MinMatches        int     `json:"min_matches"`
	RANSACThresholdPx float64 `json:"ransac_threshold_px"`

	// MotionScale converts homography translation pixels into world units.
	MotionScale float64 `json:"motion_scale"`
	// PixelScale converts keypoint offsets from the frame center into world units.
	PixelScale float64 `json:"pixel_scale"`

	MaxMapPoints  int `json:"max_map_points"`
	MaxTrajectory int `json:"max_trajectory"`

	GridSize       int     `json:"grid_size"`
	GridResolution float64 `json:"grid_resolution"`

	ORB      *keypoints.ORBConfig      `json:"orb"`
	Matching *keypoints.MatchingConfig `json:"matching"`
	RANSAC   *transform.RANSACConfig   `json:"ransac,omitempty"`
}

// DefaultConfig returns the configuration of the robot: a 5 Hz cycle backing off for half a second
// after a fault, the 30 best of at least 8 cross checked ORB matches, and a 100x100 grid of 10 cm
// cells.
func DefaultConfig() *Config {
	ransac := transform.DefaultRANSACConfig()
	return &Config{
		DataRateMs:        defaultDataRateMs,
		ErrorBackoffMs:    defaultErrorBackoffMs,
		MaxMatches:        defaultMaxMatches,
		MinMatches:        defaultMinMatches,
		RANSACThresholdPx: defaultRANSACThresh,
		MotionScale:       defaultMotionScale,
		PixelScale:        defaultPixelScale,
		MaxMapPoints:      defaultMaxMapPoints,
		MaxTrajectory:     defaultMaxTrajectory,
		GridSize:          defaultGridSize,
		GridResolution:    defaultGridResolution,
		ORB:               keypoints.DefaultORBConfig(),
		Matching:          &keypoints.MatchingConfig{DoCrossCheck: true},
		RANSAC:            &ransac,
	}
}

// LoadConfig reads a json config file on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	conf := DefaultConfig()
	//nolint:gosec
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errors.Wrap(err, "cannot read slam config")
	}
	if err := json.Unmarshal(data, conf); err != nil {
		return nil, errors.Wrapf(err, "cannot parse slam config %q", path)
	}
	if err := conf.Validate(path); err != nil {
		return nil, err
	}
	return conf, nil
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.DataRateMs <= 0 {
		return utils.NewConfigValidationError(path, errors.New("data_rate_ms must be > 0"))
	}
	if conf.ErrorBackoffMs < 0 {
		return utils.NewConfigValidationError(path, errors.New("error_backoff_ms must not be negative"))
	}
	if conf.MinMatches < 4 {
		return utils.NewConfigValidationError(path, errors.New("min_matches must be >= 4"))
	}
	if conf.MaxMatches != 0 && conf.MaxMatches < conf.MinMatches {
		return utils.NewConfigValidationError(path, errors.New("max_matches must be 0 or >= min_matches"))
	}
	if conf.RANSACThresholdPx <= 0 {
		return utils.NewConfigValidationError(path, errors.New("ransac_threshold_px must be > 0"))
	}
	if conf.MaxMapPoints <= 0 || conf.MaxTrajectory <= 0 {
		return utils.NewConfigValidationError(path, errors.New("max_map_points and max_trajectory must be > 0"))
	}
	if conf.GridSize <= 0 || conf.GridResolution <= 0 {
		return utils.NewConfigValidationError(path, errors.New("grid_size and grid_resolution must be > 0"))
	}
	if conf.ORB == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "orb")
	}
	if err := conf.ORB.Validate(path + ".orb"); err != nil {
		return err
	}
	if conf.Matching == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "matching")
	}
	if conf.RANSAC != nil {
		if err := conf.RANSAC.Validate(); err != nil {
			return utils.NewConfigValidationError(path+".ransac", err)
		}
	}
	return nil
}

func (conf *Config) dataRate() time.Duration {
	return time.Duration(conf.DataRateMs) * time.Millisecond
}

func (conf *Config) errorBackoff() time.Duration {
	return time.Duration(conf.ErrorBackoffMs) * time.Millisecond
}

// motionConfig is the odometry view of the config. ransac_threshold_px wins over ransac.threshold_px.
func (conf *Config) motionConfig() *odometry.MotionEstimationConfig {
	ransac := transform.DefaultRANSACConfig()
	if conf.RANSAC != nil {
		ransac = *conf.RANSAC
	}
	ransac.Threshold = conf.RANSACThresholdPx
	return &odometry.MotionEstimationConfig{
		KeyPointCfg: conf.ORB,
		MatchingCfg: conf.Matching,
		RANSACCfg:   ransac,
		MaxMatches:  conf.MaxMatches,
		MinMatches:  conf.MinMatches,
	}
}
