package movementsensor

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestOrientationFromAcceleration(t *testing.T) {
	level := OrientationFromAcceleration(r3.Vector{Z: 1})
	test.That(t, level.Roll, test.ShouldAlmostEqual, 0)
	test.That(t, level.Pitch, test.ShouldAlmostEqual, 0)

	s := math.Sqrt2 / 2
	rolled := OrientationFromAcceleration(r3.Vector{Y: s, Z: s})
	test.That(t, rolled.Roll, test.ShouldAlmostEqual, 45)
	test.That(t, rolled.Pitch, test.ShouldAlmostEqual, 0)

	pitched := OrientationFromAcceleration(r3.Vector{X: -0.5, Z: math.Sqrt(3) / 2})
	test.That(t, pitched.Roll, test.ShouldAlmostEqual, 0)
	test.That(t, pitched.Pitch, test.ShouldAlmostEqual, 30)

	// lying on its side
	side := OrientationFromAcceleration(r3.Vector{Y: 1})
	test.That(t, side.Roll, test.ShouldAlmostEqual, 90)
}

func TestStaticSource(t *testing.T) {
	var src InertialSource = StaticSource{Accelerometer: r3.Vector{Y: 1}, Temperature: 21}
	test.That(t, src.Readings().Temperature, test.ShouldEqual, 21)
	test.That(t, src.Orientation().Roll, test.ShouldAlmostEqual, 90)
}

func TestEstimateBias(t *testing.T) {
	_, err := EstimateBias(nil)
	test.That(t, err, test.ShouldNotBeNil)

	samples := []Readings{
		{Accelerometer: r3.Vector{X: 0.01, Y: -0.02, Z: 1.03}, Gyroscope: r3.Vector{X: 1, Y: 2, Z: -1}},
		{Accelerometer: r3.Vector{X: 0.03, Y: 0.00, Z: 1.01}, Gyroscope: r3.Vector{X: 3, Y: 2, Z: -3}},
	}
	bias, err := EstimateBias(samples)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bias.Accelerometer.X, test.ShouldAlmostEqual, 0.02)
	test.That(t, bias.Accelerometer.Y, test.ShouldAlmostEqual, -0.01)
	test.That(t, bias.Accelerometer.Z, test.ShouldAlmostEqual, 0.02)
	test.That(t, bias.Gyroscope, test.ShouldResemble, r3.Vector{X: 2, Y: 2, Z: -2})

	corrected := bias.Apply(samples[0])
	test.That(t, corrected.Calibrated, test.ShouldBeTrue)
	test.That(t, corrected.Accelerometer.X, test.ShouldAlmostEqual, -0.01)
	test.That(t, corrected.Accelerometer.Z, test.ShouldAlmostEqual, 1.01)
	test.That(t, corrected.Gyroscope, test.ShouldResemble, r3.Vector{X: -1, Y: 0, Z: 1})
	test.That(t, samples[0].Calibrated, test.ShouldBeFalse)
}
