package movementsensor

import (
	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// CalibrationSamples is how many stationary readings a calibration averages.
const CalibrationSamples = 50

// Bias is the constant offset of a sensor at rest.
type Bias struct {
	Accelerometer r3.Vector `json:"accelerometer"`
	Gyroscope     r3.Vector `json:"gyroscope"`
}

// EstimateBias averages readings taken while the robot stands still on a flat floor. Gravity is
// expected on the z axis, so one g is removed from the z accelerometer bias.
func EstimateBias(samples []Readings) (Bias, error) {
	if len(samples) == 0 {
		return Bias{}, errors.New("cannot estimate bias without samples")
	}
	columns := make([][]float64, 6)
	for i := range columns {
		columns[i] = make([]float64, len(samples))
	}
	for i, s := range samples {
		columns[0][i] = s.Accelerometer.X
		columns[1][i] = s.Accelerometer.Y
		columns[2][i] = s.Accelerometer.Z
		columns[3][i] = s.Gyroscope.X
		columns[4][i] = s.Gyroscope.Y
		columns[5][i] = s.Gyroscope.Z
	}
	means := make([]float64, len(columns))
	for i, c := range columns {
		m, err := stats.Mean(c)
		if err != nil {
			return Bias{}, errors.Wrap(err, "cannot average samples")
		}
		means[i] = m
	}
	return Bias{
		Accelerometer: r3.Vector{X: means[0], Y: means[1], Z: means[2] - 1},
		Gyroscope:     r3.Vector{X: means[3], Y: means[4], Z: means[5]},
	}, nil
}

// Apply removes the bias from a reading and marks it calibrated.
func (b Bias) Apply(r Readings) Readings {
	r.Accelerometer = r.Accelerometer.Sub(b.Accelerometer)
	r.Gyroscope = r.Gyroscope.Sub(b.Gyroscope)
	r.Calibrated = true
	return r
}
