// Package fake is a fake inertial source for testing. It sways around roll and pitch on a sine wave
// unless an orientation is pinned with Set.
package fake

import (
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/smilesmith9879/G9/components/movementsensor"
	rutils "github.com/smilesmith9879/G9/utils"
)

// Config are the attributes of the fake movement sensor.
type Config struct {
	// RollAmplitude and PitchAmplitude are in degrees.
	RollAmplitude  float64 `json:"roll_amplitude,omitempty"`
	PitchAmplitude float64 `json:"pitch_amplitude,omitempty"`
	PeriodMs       int     `json:"period_ms,omitempty"`
	Temperature    float64 `json:"temperature,omitempty"`
}

// Validate checks the fake config.
func (conf *Config) Validate(path string) error {
	if conf.PeriodMs < 0 {
		return utils.NewConfigValidationError(path, errors.New("period_ms must not be negative"))
	}
	if math.Abs(conf.RollAmplitude) >= 90 || math.Abs(conf.PitchAmplitude) >= 90 {
		return utils.NewConfigValidationError(path, errors.New("amplitudes must be below 90 degrees"))
	}
	return nil
}

// MovementSensor is a fake movementsensor.InertialSource.
type MovementSensor struct {
	conf  Config
	clk   clock.Clock
	start time.Time

	mu     sync.Mutex
	pinned *movementsensor.Orientation
}

// NewMovementSensor returns a fake sensor. A nil clock uses the wall clock.
func NewMovementSensor(conf *Config, clk clock.Clock) (*MovementSensor, error) {
	if err := conf.Validate("fake"); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}
	return &MovementSensor{conf: *conf, clk: clk, start: clk.Now()}, nil
}

// Set pins the orientation until Unset is called.
func (f *MovementSensor) Set(o movementsensor.Orientation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pinned = &o
}

// Unset resumes swaying.
func (f *MovementSensor) Unset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pinned = nil
}

// Orientation returns the pinned orientation or the current point of the sway.
func (f *MovementSensor) Orientation() movementsensor.Orientation {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pinned != nil {
		return *f.pinned
	}
	if f.conf.PeriodMs == 0 {
		return movementsensor.Orientation{}
	}
	period := time.Duration(f.conf.PeriodMs) * time.Millisecond
	phase := 2 * math.Pi * float64(f.clk.Since(f.start)%period) / float64(period)
	return movementsensor.Orientation{
		Roll:  f.conf.RollAmplitude * math.Sin(phase),
		Pitch: f.conf.PitchAmplitude * math.Sin(phase),
	}
}

// Readings returns the gravity vector of the current orientation with a still gyroscope.
func (f *MovementSensor) Readings() movementsensor.Readings {
	o := f.Orientation()
	return movementsensor.Readings{
		Accelerometer: Gravity(o),
		Temperature:   f.conf.Temperature,
		Calibrated:    true,
	}
}

// Gravity returns the accelerometer reading of a robot at rest with the given tilt, in g.
func Gravity(o movementsensor.Orientation) r3.Vector {
	roll, pitch := rutils.DegToRad(o.Roll), rutils.DegToRad(o.Pitch)
	return r3.Vector{
		X: -math.Sin(pitch),
		Y: math.Sin(roll) * math.Cos(pitch),
		Z: math.Cos(roll) * math.Cos(pitch),
	}
}
