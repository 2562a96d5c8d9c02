package keypoints

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/smilesmith9879/G9/utils"
)

// MatchingConfig contains the parameters for matching descriptors.
type MatchingConfig struct {
	DoCrossCheck bool `json:"do_cross_check"`
	// MaxDist rejects matches whose hamming distance is not below it. 0 disables the check.
	MaxDist int `json:"max_dist"`
}

// DescriptorMatch contains the index of a match in the first and second set of descriptors and
// their hamming distance.
type DescriptorMatch struct {
	Idx1     int
	Idx2     int
	Distance int
}

// MatchDescriptors takes 2 sets of descriptors and performs brute force matching. Every descriptor
// of desc1 is matched to its nearest neighbor in desc2; with cross check on, the pair is kept only
// if desc1[i] is also the nearest neighbor of desc2[j]. Matches are sorted by increasing distance,
// ties by Idx1.
func MatchDescriptors(desc1, desc2 Descriptors, cfg *MatchingConfig) ([]DescriptorMatch, error) {
	if len(desc1) == 0 || len(desc2) == 0 {
		return []DescriptorMatch{}, nil
	}
	distances, err := utils.DescriptorsHammingDistance(desc1, desc2)
	if err != nil {
		return nil, err
	}
	indices2 := utils.GetArgMinDistancesPerRowInt(distances)
	var backMatches []int
	if cfg.DoCrossCheck {
		backMatches = utils.GetArgMinDistancesPerRowInt(utils.Transpose(distances))
	}

	matches := make([]DescriptorMatch, 0, len(desc1))
	for i, j := range indices2 {
		if j < 0 {
			continue
		}
		if cfg.DoCrossCheck && backMatches[j] != i {
			continue
		}
		d := distances[i][j]
		if cfg.MaxDist > 0 && d >= cfg.MaxDist {
			continue
		}
		matches = append(matches, DescriptorMatch{Idx1: i, Idx2: j, Distance: d})
	}
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Distance < matches[b].Distance
	})
	return matches, nil
}

// GetMatchingKeyPoints takes the matches and the keypoints and returns the corresponding keypoints that are matched.
func GetMatchingKeyPoints(matches []DescriptorMatch, kps1, kps2 KeyPoints) (KeyPoints, KeyPoints, error) {
	matchedKps1 := make(KeyPoints, len(matches))
	matchedKps2 := make(KeyPoints, len(matches))
	for i, match := range matches {
		if match.Idx1 < 0 || match.Idx1 >= len(kps1) {
			return nil, nil, errors.Errorf("match %d refers to keypoint %d of the first set which has %d", i, match.Idx1, len(kps1))
		}
		if match.Idx2 < 0 || match.Idx2 >= len(kps2) {
			return nil, nil, errors.Errorf("match %d refers to keypoint %d of the second set which has %d", i, match.Idx2, len(kps2))
		}
		matchedKps1[i] = kps1[match.Idx1]
		matchedKps2[i] = kps2[match.Idx2]
	}
	return matchedKps1, matchedKps2, nil
}
