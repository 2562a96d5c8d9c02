package slam

import (
	"image"
	"image/color"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"go.viam.com/test"
)

func nrgbaAt(img image.Image, x, y int) color.NRGBA {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

func TestRenderMap(t *testing.T) {
	grid := NewOccupancyGrid(100, 0.1)
	grid.MarkPosition(r3.Vector{X: -2.95, Y: -2.95})
	before := grid.Clone()
	data := &Data{
		Position:      r3.Vector{},
		Orientation:   Orientation{Yaw: 0},
		OccupancyGrid: grid,
		Trajectory:    []r3.Vector{{X: 2.05, Y: 2.05}, {X: 2.05, Y: 3.05}},
	}
	img, err := RenderMap(data, 100, 100)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds(), test.ShouldResemble, image.Rect(0, 0, 100, 100))

	test.That(t, nrgbaAt(img, 20, 20), test.ShouldResemble, occupiedColor)
	test.That(t, nrgbaAt(img, 22, 21), test.ShouldResemble, freeColor)
	test.That(t, nrgbaAt(img, 5, 90), test.ShouldResemble, unknownColor)
	test.That(t, nrgbaAt(img, 50, 50), test.ShouldResemble, robotColor)

	heading := nrgbaAt(img, 54, 50)
	test.That(t, heading.G, test.ShouldBeGreaterThan, 200)
	test.That(t, heading.R, test.ShouldBeLessThan, 60)

	// the trajectory runs from cell (70, 70) to (70, 80)
	path := nrgbaAt(img, 70, 75)
	test.That(t, path.B, test.ShouldBeGreaterThan, 200)
	test.That(t, path.R, test.ShouldBeLessThan, 60)

	// rendering does not touch the grid
	test.That(t, cmp.Equal(before, data.OccupancyGrid), test.ShouldBeTrue)
}

func TestRenderMapResize(t *testing.T) {
	data := &Data{OccupancyGrid: NewOccupancyGrid(100, 0.1)}
	img, err := RenderMap(data, 320, 240)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Size(), test.ShouldResemble, image.Point{320, 240})

	// the robot out of the grid is not drawn
	data.Position = r3.Vector{X: 100}
	img, err = RenderMap(data, 100, 100)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, nrgbaAt(img, 50, 50), test.ShouldResemble, unknownColor)

	_, err = RenderMap(data, 0, 10)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = RenderMap(&Data{}, 10, 10)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := newMapState(DefaultConfig())
	s.apply(cycleUpdate{frameSize: vga})
	data := s.snapshot()
	data.Trajectory[0].X = 42
	data.OccupancyGrid.Cells[0] = CellOccupied

	again := s.snapshot()
	test.That(t, again.Trajectory[0].X, test.ShouldEqual, 0)
	test.That(t, again.OccupancyGrid.Cells[0], test.ShouldEqual, CellUnknown)
	diff := cmp.Diff(again, data)
	test.That(t, diff, test.ShouldNotEqual, "")
	test.That(t, cmp.Diff(again, s.snapshot()), test.ShouldEqual, "")
}
