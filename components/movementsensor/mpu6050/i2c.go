package mpu6050

import (
	"context"
	"io"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/smilesmith9879/G9/components/movementsensor"
	"github.com/smilesmith9879/G9/logging"
)

// I2CDevice is a BlockReader for one device on a periph I2C bus.
type I2CDevice struct {
	dev    *i2c.Dev
	closer io.Closer
}

// NewI2CDevice talks to the device at addr on bus. Closing the device closes bus when it is an
// i2c.BusCloser.
func NewI2CDevice(bus i2c.Bus, addr byte) *I2CDevice {
	d := &I2CDevice{dev: &i2c.Dev{Bus: bus, Addr: uint16(addr)}}
	if c, ok := bus.(i2c.BusCloser); ok {
		d.closer = c
	}
	return d
}

// ReadBlockData writes the register address and reads length bytes back in one transaction.
func (d *I2CDevice) ReadBlockData(ctx context.Context, register byte, length uint8) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	if err := d.dev.Tx([]byte{register}, buf); err != nil {
		return nil, errors.Wrapf(err, "cannot read %d bytes from register %#x of %s", length, register, d.dev)
	}
	return buf, nil
}

// WriteByteData writes value to register.
func (d *I2CDevice) WriteByteData(ctx context.Context, register, value byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.dev.Tx([]byte{register, value}, nil); err != nil {
		return errors.Wrapf(err, "cannot write register %#x of %s", register, d.dev)
	}
	return nil
}

// Close releases the bus.
func (d *I2CDevice) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

// OpenI2C initializes the host drivers and opens the named I2C bus, the first one when busName is
// empty, for the chip selected by conf.
func OpenI2C(busName string, conf *Config) (*I2CDevice, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "cannot initialize host drivers")
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open i2c bus %q", busName)
	}
	return NewI2CDevice(bus, conf.Address()), nil
}

// NewCalibratedSensor starts a sensor on dev and calibrates it with samples taken one poll period
// apart. dev is closed on failure and when the sensor is closed.
func NewCalibratedSensor(ctx context.Context, dev *I2CDevice, conf *Config, clk clock.Clock, logger logging.Logger,
) (*Sensor, error) {
	s, err := NewSensor(ctx, dev, conf, clk, logger)
	if err != nil {
		return nil, multierr.Combine(err, dev.Close())
	}
	s.closer = dev
	if _, err := s.Calibrate(ctx, movementsensor.CalibrationSamples, s.period); err != nil {
		return nil, multierr.Combine(err, s.Close(ctx))
	}
	return s, nil
}
