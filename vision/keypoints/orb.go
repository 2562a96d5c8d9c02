package keypoints

import (
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/smilesmith9879/G9/rimage"
)

// ErrNoDescriptors is returned when an image yields no usable keypoint.
var ErrNoDescriptors = errors.New("no keypoints with descriptors found in image")

// ORBConfig contains the parameters / configs needed to compute ORB features.
type ORBConfig struct {
	// NFeatures caps the number of keypoints kept, strongest first.
	NFeatures       int          `json:"n_features"`
	Layers          int          `json:"n_layers"`
	DownscaleFactor int          `json:"downscale_factor"`
	FastConf        *FASTConfig  `json:"fast"`
	BRIEFConf       *BRIEFConfig `json:"brief"`
}

// DefaultORBConfig returns an ORB configuration keeping at most 500 features.
func DefaultORBConfig() *ORBConfig {
	return &ORBConfig{
		NFeatures:       500,
		Layers:          3,
		DownscaleFactor: 2,
		FastConf:        DefaultFASTConfig(),
		BRIEFConf:       DefaultBRIEFConfig(),
	}
}

// LoadORBConfiguration loads a ORBConfig from a json file.
func LoadORBConfiguration(file string) (*ORBConfig, error) {
	config := DefaultORBConfig()
	//nolint:gosec
	configFile, err := os.Open(filepath.Clean(file))
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(configFile.Close)
	if err := json.NewDecoder(configFile).Decode(config); err != nil {
		return nil, errors.Wrapf(err, "cannot parse ORB config %q", file)
	}
	if err := config.Validate(file); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate ensures all parts of the ORBConfig are valid.
func (config *ORBConfig) Validate(path string) error {
	if config.NFeatures < 1 {
		return utils.NewConfigValidationError(path, errors.New("n_features should be >= 1"))
	}
	if config.Layers < 1 {
		return utils.NewConfigValidationError(path, errors.New("n_layers should be >= 1"))
	}
	if config.DownscaleFactor != 2 {
		return utils.NewConfigValidationError(path, errors.New("downscale_factor must be 2"))
	}
	if config.FastConf == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "fast")
	}
	if err := config.FastConf.Validate(path + ".fast"); err != nil {
		return err
	}
	if config.BRIEFConf == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "brief")
	}
	return config.BRIEFConf.Validate(path + ".brief")
}

// ORBExtractor computes ORB features with a fixed set of BRIEF sample pairs.
type ORBExtractor struct {
	cfg         *ORBConfig
	samplePairs *SamplePairs
}

// NewORBExtractor validates the configuration and draws the BRIEF sample pairs once.
func NewORBExtractor(cfg *ORBConfig) (*ORBExtractor, error) {
	if err := cfg.Validate("orb"); err != nil {
		return nil, err
	}
	b := cfg.BRIEFConf
	return &ORBExtractor{
		cfg:         cfg,
		samplePairs: GenerateSamplePairs(b.Sampling, b.N, b.PatchSize, b.Seed),
	}, nil
}

type scoredKeypoint struct {
	point      image.Point
	score      float64
	descriptor Descriptor
}

// Compute returns the descriptors and the matching keypoint locations, in full resolution
// coordinates, of at most NFeatures keypoints sorted by decreasing FAST score. Keypoints too close to
// the border for a full descriptor are dropped.
func (e *ORBExtractor) Compute(img image.Image) (Descriptors, KeyPoints, error) {
	gray := rimage.MakeGray(img)
	pyramid, err := rimage.GetImagePyramid(gray, e.cfg.Layers)
	if err != nil {
		return nil, nil, err
	}
	radius := e.cfg.BRIEFConf.Radius()
	candidates := make([]scoredKeypoint, 0)
	for i, currentImage := range pyramid.Images {
		currentScale := pyramid.Scales[i]
		// the strongest NFeatures of a level contain all of its keypoints that can make the final cut
		inside := detectFAST(currentImage, e.cfg.FastConf, radius, e.cfg.NFeatures)
		descs, err := ComputeBRIEFDescriptors(currentImage, e.samplePairs, inside, e.cfg.BRIEFConf)
		if err != nil {
			return nil, nil, err
		}
		for k, kp := range RescaleKeypoints(inside.Points, currentScale) {
			candidates = append(candidates, scoredKeypoint{
				point:      kp,
				score:      inside.Scores[k],
				descriptor: descs[k],
			})
		}
	}
	if len(candidates) == 0 {
		return nil, nil, ErrNoDescriptors
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > e.cfg.NFeatures {
		candidates = candidates[:e.cfg.NFeatures]
	}
	descs := make(Descriptors, len(candidates))
	kps := make(KeyPoints, len(candidates))
	for i, c := range candidates {
		descs[i] = c.descriptor
		kps[i] = c.point
	}
	return descs, kps, nil
}

// ComputeORBKeypoints compute ORB keypoints on gray image.
func ComputeORBKeypoints(im *image.Gray, cfg *ORBConfig) (Descriptors, KeyPoints, error) {
	e, err := NewORBExtractor(cfg)
	if err != nil {
		return nil, nil, err
	}
	return e.Compute(im)
}

// filterBorderKeypoints keeps the keypoints at least radius pixels away from every image border.
func filterBorderKeypoints(kps *FASTKeypoints, bnd image.Rectangle, radius int) *FASTKeypoints {
	out := &FASTKeypoints{
		Points: make(KeyPoints, 0, kps.Len()),
		Scores: make([]float64, 0, kps.Len()),
	}
	if kps.IsOriented() {
		out.Orientations = make([]float64, 0, kps.Len())
	}
	if bnd.Dx() <= 2*radius || bnd.Dy() <= 2*radius {
		return out
	}
	inner := image.Rect(bnd.Min.X+radius, bnd.Min.Y+radius, bnd.Max.X-radius, bnd.Max.Y-radius)
	for i, kp := range kps.Points {
		if !kp.In(inner) {
			continue
		}
		out.Points = append(out.Points, kp)
		out.Scores = append(out.Scores, kps.Scores[i])
		if kps.IsOriented() {
			out.Orientations = append(out.Orientations, kps.Orientations[i])
		}
	}
	return out
}
