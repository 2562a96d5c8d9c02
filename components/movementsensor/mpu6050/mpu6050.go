// Package mpu6050 reads an MPU-6050 6-axis accelerometer and gyroscope. The chip is configured for
// its default ranges (+/- 2 g and +/- 250 degrees per second) and polled in the background; the
// latest sample is kept in memory so readers never touch the bus.
//
// The bus itself is abstracted behind BlockReader so the driver can sit on any I2C implementation.
package mpu6050

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/smilesmith9879/G9/components/movementsensor"
	"github.com/smilesmith9879/G9/logging"
	rutils "github.com/smilesmith9879/G9/utils"
)

// Register map.
const (
	DefaultAddress   = 0x68
	AlternateAddress = 0x69

	regSampleRateDivider = 0x19
	regConfig            = 0x1A
	regGyroConfig        = 0x1B
	regAccelConfig       = 0x1C
	regInterruptEnable   = 0x38
	regAccelXOutH        = 0x3B
	regPowerManagement   = 0x6B

	blockLength = 14

	maxAcceleration = 2.0   // g
	maxRotation     = 250.0 // degrees per second
)

// BlockReader is the I2C access the driver needs.
type BlockReader interface {
	ReadBlockData(ctx context.Context, register byte, length uint8) ([]byte, error)
	WriteByteData(ctx context.Context, register, value byte) error
}

// Config is used to configure the chip.
type Config struct {
	UseAlternateI2CAddress bool `json:"use_alt_i2c_address,omitempty"`
	// PollRateHz defaults to 50, the sample rate the chip is programmed with.
	PollRateHz int `json:"poll_rate_hz,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.PollRateHz < 0 {
		return utils.NewConfigValidationError(path, errors.New("poll_rate_hz must not be negative"))
	}
	return nil
}

// Address returns the I2C address selected by the config.
func (conf *Config) Address() byte {
	if conf.UseAlternateI2CAddress {
		return AlternateAddress
	}
	return DefaultAddress
}

// Sensor is a polled MPU-6050. It implements movementsensor.InertialSource.
type Sensor struct {
	bus    BlockReader
	period time.Duration
	clk    clock.Clock
	logger logging.Logger

	mu       sync.Mutex
	readings movementsensor.Readings
	bias     *movementsensor.Bias
	lastErr  error

	workers *utils.StoppableWorkers
	// closer is released on Close.
	closer io.Closer
}

// NewSensor wakes the chip up, programs its ranges and starts polling it.
func NewSensor(ctx context.Context, bus BlockReader, conf *Config, clk clock.Clock, logger logging.Logger) (*Sensor, error) {
	if err := conf.Validate("mpu6050"); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}
	rate := conf.PollRateHz
	if rate == 0 {
		rate = 50
	}
	s := &Sensor{
		bus:    bus,
		period: time.Second / time.Duration(rate),
		clk:    clk,
		logger: logger,
	}
	for _, w := range []struct{ register, value byte }{
		{regPowerManagement, 0},
		{regSampleRateDivider, 19}, // 1 kHz / (1 + 19) = 50 Hz
		{regConfig, 4},             // 21 Hz low pass
		{regGyroConfig, 0},
		{regAccelConfig, 0},
		{regInterruptEnable, 1},
	} {
		if err := bus.WriteByteData(ctx, w.register, w.value); err != nil {
			return nil, errors.Wrapf(err, "cannot write register %#x", w.register)
		}
	}
	// one synchronous read so the first Readings call is not a zero value
	if err := s.poll(ctx); err != nil {
		return nil, err
	}
	s.workers = utils.NewBackgroundStoppableWorkers(s.run)
	logger.Infow("MPU6050 initialized", "poll_period", s.period)
	return s, nil
}

func (s *Sensor) run(ctx context.Context) {
	ticker := s.clk.Ticker(s.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.poll(ctx); err != nil {
				s.logger.Debugw("error reading MPU6050", "error", err)
			}
		}
	}
}

func (s *Sensor) poll(ctx context.Context) error {
	raw, err := s.readRaw(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	if err != nil {
		return err
	}
	if s.bias != nil {
		raw = s.bias.Apply(raw)
	}
	s.readings = raw
	return nil
}

func (s *Sensor) readRaw(ctx context.Context) (movementsensor.Readings, error) {
	data, err := s.bus.ReadBlockData(ctx, regAccelXOutH, blockLength)
	if err != nil {
		return movementsensor.Readings{}, err
	}
	return DecodeBlock(data)
}

// Calibrate averages n readings taken wait apart and applies the resulting bias to every later
// reading. The robot must stand still on a flat floor while it runs.
func (s *Sensor) Calibrate(ctx context.Context, n int, wait time.Duration) (movementsensor.Bias, error) {
	if n <= 0 {
		n = movementsensor.CalibrationSamples
	}
	s.logger.Info("starting IMU calibration, keep the robot stationary")
	samples := make([]movementsensor.Readings, 0, n)
	for i := 0; i < n; i++ {
		r, err := s.readRaw(ctx)
		if err != nil {
			return movementsensor.Bias{}, errors.Wrap(err, "calibration read failed")
		}
		samples = append(samples, r)
		if wait > 0 && i < n-1 {
			select {
			case <-ctx.Done():
				return movementsensor.Bias{}, ctx.Err()
			case <-s.clk.After(wait):
			}
		}
	}
	bias, err := movementsensor.EstimateBias(samples)
	if err != nil {
		return movementsensor.Bias{}, err
	}
	s.mu.Lock()
	s.bias = &bias
	s.readings = bias.Apply(samples[len(samples)-1])
	s.mu.Unlock()
	s.logger.Infow("IMU calibration complete", "accel_bias", bias.Accelerometer, "gyro_bias", bias.Gyroscope)
	return bias, nil
}

// Readings returns the latest sample.
func (s *Sensor) Readings() movementsensor.Readings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readings
}

// Orientation returns the tilt of the latest sample.
func (s *Sensor) Orientation() movementsensor.Orientation {
	return movementsensor.OrientationFromAcceleration(s.Readings().Accelerometer)
}

// LastError returns the error of the latest poll, if any.
func (s *Sensor) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Close stops polling and releases the bus the sensor owns, if any.
func (s *Sensor) Close(_ context.Context) error {
	s.workers.Stop()
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// DecodeBlock converts the 14 bytes starting at ACCEL_XOUT_H: three accelerations, the temperature
// and three angular velocities, each a big endian int16.
func DecodeBlock(data []byte) (movementsensor.Readings, error) {
	if len(data) < blockLength {
		return movementsensor.Readings{}, errors.Errorf("expected %d bytes, got %d", blockLength, len(data))
	}
	return movementsensor.Readings{
		Accelerometer: toVector(data[0:6], maxAcceleration),
		// Taken straight from the register map.
		Temperature: float64(rutils.Int16FromBytesBE(data[6:8]))/340.0 + 36.53,
		Gyroscope:   toVector(data[8:14], maxRotation),
	}, nil
}

func toVector(data []byte, maxValue float64) r3.Vector {
	return r3.Vector{
		X: setScale(rutils.Int16FromBytesBE(data[0:2]), maxValue),
		Y: setScale(rutils.Int16FromBytesBE(data[2:4]), maxValue),
		Z: setScale(rutils.Int16FromBytesBE(data[4:6]), maxValue),
	}
}

// Given a value, scales it so that the range of int16s becomes the range of +/- maxValue.
func setScale(value int16, maxValue float64) float64 {
	return float64(value) * maxValue / (1 << 15)
}
