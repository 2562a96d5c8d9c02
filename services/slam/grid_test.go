package slam

import (
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestOccupancyGridMarkPosition(t *testing.T) {
	g := NewOccupancyGrid(100, 0.1)
	test.That(t, g.Count(Unknown), test.ShouldEqual, 100*100)
	cx, cy := g.Center()
	test.That(t, cx, test.ShouldEqual, 50)
	test.That(t, cy, test.ShouldEqual, 50)

	test.That(t, g.MarkPosition(r3.Vector{}), test.ShouldBeTrue)
	test.That(t, g.At(50, 50), test.ShouldEqual, CellOccupied)
	test.That(t, g.Count(Occupied), test.ShouldEqual, 1)
	test.That(t, g.Count(Free), test.ShouldEqual, 24)
	test.That(t, g.At(48, 52), test.ShouldEqual, CellFree)
	test.That(t, g.At(47, 50), test.ShouldEqual, CellUnknown)

	// one cell to the right: the old cell stays occupied
	test.That(t, g.MarkPosition(r3.Vector{X: 0.1}), test.ShouldBeTrue)
	test.That(t, g.At(50, 50), test.ShouldEqual, CellOccupied)
	test.That(t, g.At(51, 50), test.ShouldEqual, CellOccupied)
	test.That(t, g.Count(Occupied), test.ShouldEqual, 2)
	test.That(t, g.Count(Free), test.ShouldEqual, 28)
}

func TestOccupancyGridTruncation(t *testing.T) {
	g := NewOccupancyGrid(100, 0.1)
	x, y := g.CellOf(r3.Vector{X: 0.19, Y: -0.19})
	test.That(t, x, test.ShouldEqual, 51)
	test.That(t, y, test.ShouldEqual, 48)
	// 50 - 50.5 truncates toward zero, back into the grid
	x, _ = g.CellOf(r3.Vector{X: -5.05})
	test.That(t, x, test.ShouldEqual, 0)
	x, _ = g.CellOf(r3.Vector{X: -5.25})
	test.That(t, x, test.ShouldEqual, -2)
}

func TestOccupancyGridOutOfBounds(t *testing.T) {
	g := NewOccupancyGrid(100, 0.1)
	test.That(t, g.MarkPosition(r3.Vector{X: 5.5}), test.ShouldBeFalse)
	test.That(t, g.MarkPosition(r3.Vector{Y: -5.3}), test.ShouldBeFalse)
	test.That(t, g.Count(Unknown), test.ShouldEqual, 100*100)

	// on the edge only the in bounds part of the block is touched
	test.That(t, g.MarkPosition(r3.Vector{X: -5.0, Y: -5.0}), test.ShouldBeTrue)
	test.That(t, g.At(0, 0), test.ShouldEqual, CellOccupied)
	test.That(t, g.Count(Free), test.ShouldEqual, 8)
}

func TestOccupiedCellsAreMonotonic(t *testing.T) {
	g := NewOccupancyGrid(100, 0.1)
	//nolint:gosec
	rng := rand.New(rand.NewSource(7))
	occupied := map[int]bool{}
	for i := 0; i < 500; i++ {
		pos := r3.Vector{X: rng.Float64()*12 - 6, Y: rng.Float64()*12 - 6}
		g.MarkPosition(pos)
		for idx := range occupied {
			test.That(t, g.Cells[idx], test.ShouldBeGreaterThanOrEqualTo, OccupiedThreshold)
		}
		for idx, v := range g.Cells {
			if v >= OccupiedThreshold {
				occupied[idx] = true
			}
		}
	}
	test.That(t, len(occupied), test.ShouldBeGreaterThan, 0)
}

func TestOccupancyGridClone(t *testing.T) {
	g := NewOccupancyGrid(10, 0.5)
	c := g.Clone()
	g.MarkPosition(r3.Vector{})
	test.That(t, c.Count(Unknown), test.ShouldEqual, 100)
	test.That(t, c.Resolution, test.ShouldEqual, 0.5)
	test.That(t, StateOf(49), test.ShouldEqual, Unknown)
	test.That(t, StateOf(50), test.ShouldEqual, Occupied)
	test.That(t, StateOf(0), test.ShouldEqual, Free)
}
