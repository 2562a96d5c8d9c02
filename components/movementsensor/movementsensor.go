// Package movementsensor defines the inertial measurement inputs of the robot: raw accelerometer and
// gyroscope readings, the tilt derived from them and the calibration bias applied to them.
package movementsensor

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/smilesmith9879/G9/utils"
)

// Readings is one sample of an inertial measurement unit. Acceleration is in g, angular velocity in
// degrees per second and temperature in degrees Celsius.
type Readings struct {
	Accelerometer r3.Vector `json:"accelerometer"`
	Gyroscope     r3.Vector `json:"gyroscope"`
	Temperature   float64   `json:"temperature"`
	Calibrated    bool      `json:"calibrated"`
}

// Orientation is the tilt of the robot in degrees.
type Orientation struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
}

// InertialSource provides the latest inertial readings and the tilt derived from them. Both calls
// must be non-blocking and safe for concurrent use.
type InertialSource interface {
	Readings() Readings
	Orientation() Orientation
}

// OrientationFromAcceleration derives roll and pitch from the gravity vector. A robot at rest on a
// flat floor reads (0, 0, 1) and has no tilt.
func OrientationFromAcceleration(a r3.Vector) Orientation {
	return Orientation{
		Roll:  utils.RadToDeg(math.Atan2(a.Y, math.Hypot(a.X, a.Z))),
		Pitch: utils.RadToDeg(math.Atan2(-a.X, math.Hypot(a.Y, a.Z))),
	}
}

// StaticSource is an InertialSource that always returns the same readings.
type StaticSource Readings

// Readings returns the fixed readings.
func (s StaticSource) Readings() Readings {
	return Readings(s)
}

// Orientation returns the tilt of the fixed readings.
func (s StaticSource) Orientation() Orientation {
	return OrientationFromAcceleration(s.Accelerometer)
}
