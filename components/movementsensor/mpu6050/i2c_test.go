package mpu6050

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"periph.io/x/conn/v3/physic"

	"github.com/smilesmith9879/G9/logging"
)

// fakeI2CBus answers every read with block and stores every register write.
type fakeI2CBus struct {
	mu     sync.Mutex
	addrs  map[uint16]bool
	regs   map[byte]byte
	block  []byte
	err    error
	closed bool
}

func newFakeI2CBus(values ...int16) *fakeI2CBus {
	block := make([]byte, blockLength)
	for i, v := range values {
		binary.BigEndian.PutUint16(block[2*i:], uint16(v))
	}
	return &fakeI2CBus{addrs: map[uint16]bool{}, regs: map[byte]byte{}, block: block}
}

func (b *fakeI2CBus) String() string { return "fake-i2c" }

func (b *fakeI2CBus) SetSpeed(f physic.Frequency) error { return nil }

func (b *fakeI2CBus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addrs[addr] = true
	if b.err != nil {
		return b.err
	}
	if len(r) == 0 {
		if len(w) == 2 {
			b.regs[w[0]] = w[1]
		}
		return nil
	}
	copy(r, b.block)
	return nil
}

func (b *fakeI2CBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func TestI2CDevice(t *testing.T) {
	bus := newFakeI2CBus(1, 2, 3)
	conf := &Config{UseAlternateI2CAddress: true}
	dev := NewI2CDevice(bus, conf.Address())
	ctx := context.Background()

	test.That(t, dev.WriteByteData(ctx, regPowerManagement, 7), test.ShouldBeNil)
	test.That(t, bus.regs[regPowerManagement], test.ShouldEqual, 7)
	data, err := dev.ReadBlockData(ctx, regAccelXOutH, blockLength)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, data, test.ShouldResemble, bus.block)
	test.That(t, bus.addrs, test.ShouldResemble, map[uint16]bool{uint16(AlternateAddress): true})

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = dev.ReadBlockData(cancelled, regAccelXOutH, blockLength)
	test.That(t, err, test.ShouldBeError, context.Canceled)

	bus.err = errors.New("nack")
	_, err = dev.ReadBlockData(ctx, regAccelXOutH, blockLength)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "nack")
	test.That(t, dev.WriteByteData(ctx, regConfig, 1), test.ShouldNotBeNil)

	test.That(t, dev.Close(), test.ShouldBeNil)
	test.That(t, bus.closed, test.ShouldBeTrue)
}

func TestNewCalibratedSensor(t *testing.T) {
	logger := logging.NewTestLogger(t)
	// 0.5 g sideways and 1 g down at rest
	bus := newFakeI2CBus(0, 8192, 16384)
	conf := &Config{PollRateHz: 1000}
	s, err := NewCalibratedSensor(context.Background(), NewI2CDevice(bus, conf.Address()), conf, nil, logger)
	test.That(t, err, test.ShouldBeNil)

	r := s.Readings()
	test.That(t, r.Calibrated, test.ShouldBeTrue)
	test.That(t, r.Accelerometer, test.ShouldResemble, r3.Vector{Z: 1})
	test.That(t, s.Orientation().Roll, test.ShouldEqual, 0)

	test.That(t, s.Close(context.Background()), test.ShouldBeNil)
	test.That(t, bus.closed, test.ShouldBeTrue)
	test.That(t, bus.addrs, test.ShouldResemble, map[uint16]bool{uint16(DefaultAddress): true})
	test.That(t, bus.regs[regSampleRateDivider], test.ShouldEqual, 19)

	broken := newFakeI2CBus()
	broken.err = errors.New("no device")
	_, err = NewCalibratedSensor(context.Background(), NewI2CDevice(broken, DefaultAddress), conf, nil, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, broken.closed, test.ShouldBeTrue)
}
