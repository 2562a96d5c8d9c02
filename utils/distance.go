package utils

import (
	"math"
	"math/bits"

	"github.com/pkg/errors"
)

// HammingDistanceUint64 returns the number of differing bits between two bit strings packed into
// uint64 words.
func HammingDistanceUint64(d1, d2 []uint64) (int, error) {
	if len(d1) != len(d2) {
		return -1, errors.Errorf("descriptors must have same length, got %d and %d", len(d1), len(d2))
	}
	distance := 0
	for i := range d1 {
		distance += bits.OnesCount64(d1[i] ^ d2[i])
	}
	return distance, nil
}

// DescriptorsHammingDistance computes the pairwise hamming distances between 2 sets of packed
// binary descriptors. Row i, column j is the distance between desc1[i] and desc2[j].
func DescriptorsHammingDistance(desc1, desc2 [][]uint64) ([][]int, error) {
	distances := make([][]int, len(desc1))
	for i := range desc1 {
		distances[i] = make([]int, len(desc2))
		for j := range desc2 {
			d, err := HammingDistanceUint64(desc1[i], desc2[j])
			if err != nil {
				return nil, err
			}
			distances[i][j] = d
		}
	}
	return distances, nil
}

// GetArgMinDistancesPerRowInt returns for each row the column index holding the minimum distance.
// Ties resolve to the lowest column index. Empty rows yield -1.
func GetArgMinDistancesPerRowInt(distances [][]int) []int {
	indices := make([]int, len(distances))
	for i, row := range distances {
		best, bestIdx := math.MaxInt, -1
		for j, d := range row {
			if d < best {
				best, bestIdx = d, j
			}
		}
		indices[i] = bestIdx
	}
	return indices
}

// Transpose returns the transpose of a rectangular int matrix.
func Transpose(m [][]int) [][]int {
	if len(m) == 0 {
		return [][]int{}
	}
	nCols := len(m[0])
	out := make([][]int, nCols)
	for j := 0; j < nCols; j++ {
		out[j] = make([]int, len(m))
		for i := range m {
			out[j][i] = m[i][j]
		}
	}
	return out
}
