package utils

import (
	"image"
	"math"
	"sync"
	"testing"

	"go.viam.com/test"
)

func TestAngles(t *testing.T) {
	test.That(t, DegToRad(180), test.ShouldAlmostEqual, math.Pi)
	test.That(t, RadToDeg(math.Pi/2), test.ShouldAlmostEqual, 90)
	test.That(t, ClampF64(300, 0, 255), test.ShouldEqual, 255)
	test.That(t, ClampF64(-3, 0, 255), test.ShouldEqual, 0)
	test.That(t, AbsInt(-4), test.ShouldEqual, 4)
	test.That(t, MaxInt(2, 7), test.ShouldEqual, 7)
	test.That(t, MinInt(2, 7), test.ShouldEqual, 2)
}

func TestHammingDistance(t *testing.T) {
	d, err := HammingDistanceUint64([]uint64{0b1011, 0}, []uint64{0b0001, 1 << 63})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldEqual, 3)

	_, err = HammingDistanceUint64([]uint64{1}, []uint64{1, 2})
	test.That(t, err, test.ShouldNotBeNil)

	desc1 := [][]uint64{{0}, {0xff}}
	desc2 := [][]uint64{{0xff}, {0x1}, {0}}
	distances, err := DescriptorsHammingDistance(desc1, desc2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, distances, test.ShouldResemble, [][]int{{8, 1, 0}, {0, 7, 8}})
	test.That(t, GetArgMinDistancesPerRowInt(distances), test.ShouldResemble, []int{2, 0})
	test.That(t, Transpose(distances), test.ShouldResemble, [][]int{{8, 0}, {1, 7}, {0, 8}})
	test.That(t, GetArgMinDistancesPerRowInt([][]int{{}}), test.ShouldResemble, []int{-1})
}

func TestParallelForEachPixel(t *testing.T) {
	size := image.Point{17, 9}
	var mu sync.Mutex
	seen := map[image.Point]int{}
	ParallelForEachPixel(size, func(x, y int) {
		mu.Lock()
		seen[image.Point{x, y}]++
		mu.Unlock()
	})
	test.That(t, len(seen), test.ShouldEqual, size.X*size.Y)
	for _, count := range seen {
		test.That(t, count, test.ShouldEqual, 1)
	}
}

func TestInt16FromBytesBE(t *testing.T) {
	test.That(t, Int16FromBytesBE([]byte{0x40, 0x00}), test.ShouldEqual, 16384)
	test.That(t, Int16FromBytesBE([]byte{0xFF, 0xFF}), test.ShouldEqual, -1)
	test.That(t, Int16FromBytesBE([]byte{0x80, 0x00, 0x12}), test.ShouldEqual, -32768)
}
