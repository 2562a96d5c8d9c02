package slam

import (
	"image"

	"github.com/pkg/errors"

	"github.com/smilesmith9879/G9/vision/keypoints"
	"github.com/smilesmith9879/G9/vision/odometry"
)

// ErrInsufficientMatches is returned for a frame that could not be registered to the previous one:
// too few matches, no keypoints on either side or a degenerate homography.
var ErrInsufficientMatches = odometry.ErrInsufficientMatches

// generation is the keypoints and descriptors of one frame.
type generation struct {
	id    int
	size  image.Point
	kps   keypoints.KeyPoints
	descs keypoints.Descriptors
}

func (g *generation) empty() bool {
	return g == nil || len(g.descs) == 0
}

// trackResult is what the tracker learned from one frame.
type trackResult struct {
	// bootstrap is set when there was nothing to match against.
	bootstrap bool
	// err is ErrInsufficientMatches, wrapped, when the frame could not be registered.
	err error
	// frameSize is the size of the current frame.
	frameSize image.Point
	// matches are the kept matches, sorted by ascending distance.
	matches []keypoints.DescriptorMatch
	// previous and current are the matched keypoints of both frames, in match order.
	previous, current keypoints.KeyPoints
}

// tracker matches the keypoints of each frame against the ones of the frame before. It only keeps
// one generation of history and is used from a single goroutine.
type tracker struct {
	extractor  *keypoints.ORBExtractor
	matching   *keypoints.MatchingConfig
	maxMatches int
	minMatches int

	frames int
	prev   *generation
}

func newTracker(conf *Config) (*tracker, error) {
	extractor, err := keypoints.NewORBExtractor(conf.ORB)
	if err != nil {
		return nil, err
	}
	return &tracker{
		extractor:  extractor,
		matching:   conf.Matching,
		maxMatches: conf.MaxMatches,
		minMatches: conf.MinMatches,
	}, nil
}

// track extracts the keypoints of img, matches them against the previous frame and makes img the
// new previous frame whatever the outcome.
func (t *tracker) track(img image.Image) trackResult {
	t.frames++
	cur := &generation{id: t.frames, size: img.Bounds().Size()}
	// cur is the reference even if extraction panics
	prev := t.prev
	t.prev = cur
	descs, kps, err := t.extractor.Compute(img)
	if err == nil {
		cur.descs, cur.kps = descs, kps
	}

	res := trackResult{frameSize: cur.size}
	if prev.empty() {
		res.bootstrap = true
		return res
	}
	if err != nil {
		res.err = errors.Wrap(ErrInsufficientMatches, err.Error())
		return res
	}
	matches, err := keypoints.MatchDescriptors(prev.descs, cur.descs, t.matching)
	if err != nil {
		res.err = errors.Wrap(ErrInsufficientMatches, err.Error())
		return res
	}
	best, err := odometry.SelectBestMatches(matches, t.maxMatches, t.minMatches)
	if err != nil {
		res.err = err
		return res
	}
	res.previous, res.current, err = keypoints.GetMatchingKeyPoints(best, prev.kps, cur.kps)
	if err != nil {
		res.err = errors.Wrap(ErrInsufficientMatches, err.Error())
		return res
	}
	res.matches = best
	return res
}

// reference returns the id of the frame the next one will be matched against, 0 before the first.
func (t *tracker) reference() int {
	if t.prev == nil {
		return 0
	}
	return t.prev.id
}
