package slam

import (
	"image"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/smilesmith9879/G9/components/movementsensor"
	"github.com/smilesmith9879/G9/rimage/transform"
	"github.com/smilesmith9879/G9/vision/keypoints"
	"github.com/smilesmith9879/G9/vision/odometry"
)

var vga = image.Point{640, 480}

func motionFor(t *testing.T, vals ...float64) *odometry.PlanarMotion {
	t.Helper()
	h, err := transform.NewHomography(vals)
	test.That(t, err, test.ShouldBeNil)
	return odometry.NewPlanarMotionFromHomography(h)
}

func TestApplyIdentityMotion(t *testing.T) {
	s := newMapState(DefaultConfig())
	s.apply(cycleUpdate{
		motion:    odometry.NewPlanarMotionFromHomography(transform.IdentityHomography()),
		matched:   keypoints.KeyPoints{{320, 240}},
		frameSize: vga,
	})
	test.That(t, s.odometer.Position, test.ShouldResemble, r3.Vector{})
	test.That(t, s.orientation.Yaw, test.ShouldEqual, 0)
	test.That(t, s.mapPoints, test.ShouldResemble, []r3.Vector{{}})
	test.That(t, s.trajectory, test.ShouldHaveLength, 1)
	test.That(t, s.grid.At(50, 50), test.ShouldEqual, CellOccupied)
}

func TestApplyTranslation(t *testing.T) {
	s := newMapState(DefaultConfig())
	s.apply(cycleUpdate{motion: motionFor(t, 1, 0, 10, 0, 1, 0, 0, 0, 1), frameSize: vga})
	test.That(t, s.odometer.Position.X, test.ShouldAlmostEqual, 0.1)
	test.That(t, s.odometer.Position.Y, test.ShouldEqual, 0)

	// position integrates
	s.apply(cycleUpdate{motion: motionFor(t, 1, 0, 10, 0, 1, -20, 0, 0, 1), frameSize: vga})
	test.That(t, s.odometer.Position.X, test.ShouldAlmostEqual, 0.2)
	test.That(t, s.odometer.Position.Y, test.ShouldAlmostEqual, -0.2)
	test.That(t, s.trajectory, test.ShouldHaveLength, 2)
	test.That(t, s.trajectory[0].X, test.ShouldAlmostEqual, 0.1)
	test.That(t, s.cycles, test.ShouldEqual, 2)
}

func TestApplyYawOverwrites(t *testing.T) {
	s := newMapState(DefaultConfig())
	c, sn := math.Cos(math.Pi/6), math.Sin(math.Pi/6)
	s.apply(cycleUpdate{motion: motionFor(t, c, -sn, 0, sn, c, 0, 0, 0, 1), frameSize: vga})
	test.That(t, s.orientation.Yaw, test.ShouldAlmostEqual, 30)
	s.apply(cycleUpdate{motion: motionFor(t, c, -sn, 0, sn, c, 0, 0, 0, 1), frameSize: vga})
	test.That(t, s.orientation.Yaw, test.ShouldAlmostEqual, 30)
	s.apply(cycleUpdate{motion: odometry.NewPlanarMotionFromHomography(transform.IdentityHomography()), frameSize: vga})
	test.That(t, s.orientation.Yaw, test.ShouldEqual, 0)
}

func TestApplyWithoutMotion(t *testing.T) {
	s := newMapState(DefaultConfig())
	s.apply(cycleUpdate{motion: motionFor(t, 1, 0, 10, 0, 1, 5, 0, 0, 1), frameSize: vga})
	before := s.snapshot()

	tilt := movementsensor.Orientation{Roll: 3, Pitch: -2}
	s.apply(cycleUpdate{frameSize: vga, tilt: &tilt})
	after := s.snapshot()
	test.That(t, after.Position, test.ShouldResemble, before.Position)
	test.That(t, after.Orientation.Yaw, test.ShouldEqual, before.Orientation.Yaw)
	test.That(t, after.Orientation.Roll, test.ShouldEqual, 3)
	test.That(t, after.Orientation.Pitch, test.ShouldEqual, -2)
	test.That(t, after.MapSize, test.ShouldEqual, before.MapSize)
	test.That(t, after.OccupancyGrid, test.ShouldResemble, before.OccupancyGrid)
	// the trajectory still records the cycle
	test.That(t, after.Trajectory, test.ShouldHaveLength, 2)
	test.That(t, after.Trajectory[1], test.ShouldResemble, before.Position)
}

func TestProjectKeypoints(t *testing.T) {
	pos := r3.Vector{X: 1, Y: 2, Z: 7}
	pts := projectKeypoints(keypoints.KeyPoints{{320, 240}, {330, 220}, {0, 480}}, vga, pos, 0.01)
	test.That(t, pts[0], test.ShouldResemble, r3.Vector{X: 1, Y: 2})
	test.That(t, pts[1].X, test.ShouldAlmostEqual, 1.1)
	test.That(t, pts[1].Y, test.ShouldAlmostEqual, 1.8)
	test.That(t, pts[2].X, test.ShouldAlmostEqual, -2.2)
	test.That(t, pts[2].Y, test.ShouldAlmostEqual, 4.4)

	// the center follows the frame size
	pts = projectKeypoints(keypoints.KeyPoints{{160, 120}}, image.Point{320, 240}, r3.Vector{}, 0.01)
	test.That(t, pts[0], test.ShouldResemble, r3.Vector{})
}

func TestBoundedGrowth(t *testing.T) {
	s := newMapState(DefaultConfig())
	matched := make(keypoints.KeyPoints, 30)
	for i := range matched {
		matched[i] = image.Point{i, 0}
	}
	for i := 0; i < 150; i++ {
		s.apply(cycleUpdate{motion: motionFor(t, 1, 0, 1, 0, 1, 0, 0, 0, 1), matched: matched, frameSize: vga})
		test.That(t, len(s.trajectory), test.ShouldBeLessThanOrEqualTo, 100)
		test.That(t, len(s.mapPoints), test.ShouldBeLessThanOrEqualTo, 1000)
	}
	test.That(t, s.trajectory, test.ShouldHaveLength, 100)
	test.That(t, s.mapPoints, test.ShouldHaveLength, 1000)
	// the oldest entries went first
	test.That(t, s.trajectory[99].X, test.ShouldAlmostEqual, 1.5)
	test.That(t, s.trajectory[0].X, test.ShouldAlmostEqual, 0.51)
	test.That(t, s.mapPoints[999].X, test.ShouldAlmostEqual, 1.5+(29-320)*0.01)
}

func TestAppendFIFO(t *testing.T) {
	buf := appendFIFO(nil, 3, r3.Vector{X: 1}, r3.Vector{X: 2})
	buf = appendFIFO(buf, 3, r3.Vector{X: 3}, r3.Vector{X: 4})
	test.That(t, buf, test.ShouldResemble, []r3.Vector{{X: 2}, {X: 3}, {X: 4}})
	buf = appendFIFO(buf, 3, r3.Vector{X: 5}, r3.Vector{X: 6}, r3.Vector{X: 7}, r3.Vector{X: 8})
	test.That(t, buf, test.ShouldResemble, []r3.Vector{{X: 6}, {X: 7}, {X: 8}})
}
