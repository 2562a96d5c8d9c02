package fake

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"github.com/smilesmith9879/G9/components/movementsensor"
)

func TestFakeSways(t *testing.T) {
	mockClock := clock.NewMock()
	ms, err := NewMovementSensor(&Config{RollAmplitude: 10, PitchAmplitude: -4, PeriodMs: 1000, Temperature: 25}, mockClock)
	test.That(t, err, test.ShouldBeNil)
	var _ movementsensor.InertialSource = ms

	test.That(t, ms.Orientation().Roll, test.ShouldAlmostEqual, 0)
	mockClock.Add(250 * time.Millisecond)
	o := ms.Orientation()
	test.That(t, o.Roll, test.ShouldAlmostEqual, 10)
	test.That(t, o.Pitch, test.ShouldAlmostEqual, -4)

	r := ms.Readings()
	test.That(t, r.Temperature, test.ShouldEqual, 25)
	derived := movementsensor.OrientationFromAcceleration(Gravity(movementsensor.Orientation{Roll: 10}))
	test.That(t, derived.Roll, test.ShouldAlmostEqual, 10)
	test.That(t, derived.Pitch, test.ShouldAlmostEqual, 0)
}

func TestFakeSet(t *testing.T) {
	ms, err := NewMovementSensor(&Config{}, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ms.Orientation(), test.ShouldResemble, movementsensor.Orientation{})

	ms.Set(movementsensor.Orientation{Roll: 5, Pitch: -3})
	test.That(t, ms.Orientation(), test.ShouldResemble, movementsensor.Orientation{Roll: 5, Pitch: -3})
	fromGravity := movementsensor.OrientationFromAcceleration(ms.Readings().Accelerometer)
	test.That(t, fromGravity.Pitch, test.ShouldAlmostEqual, -3)

	ms.Unset()
	test.That(t, ms.Orientation(), test.ShouldResemble, movementsensor.Orientation{})

	_, err = NewMovementSensor(&Config{RollAmplitude: 95}, nil)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewMovementSensor(&Config{PeriodMs: -1}, nil)
	test.That(t, err, test.ShouldNotBeNil)
}
