package main

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/disintegration/imaging"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/smilesmith9879/G9/logging"
)

func TestRunReplaySynthetic(t *testing.T) {
	dir := t.TempDir()
	opts := options{
		duration:     700 * time.Millisecond,
		mapOut:       filepath.Join(dir, "map.png"),
		telemetryOut: filepath.Join(dir, "telemetry.jsonl"),
		frameOut:     filepath.Join(dir, "frame.jpg"),
		keypointsOut: filepath.Join(dir, "keypoints.png"),
		size:         64,
		step:         4,
		debugCycles:  true,
	}
	err := runReplay(context.Background(), opts, clock.New(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	img, err := imaging.Open(opts.mapOut)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 64)
	_, err = os.Stat(opts.telemetryOut)
	test.That(t, err, test.ShouldBeNil)
	frame, err := imaging.Open(opts.frameOut)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, frame.Bounds().Size(), test.ShouldResemble, image.Point{640, 480})
	drawn, err := imaging.Open(opts.keypointsOut)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, drawn.Bounds().Size(), test.ShouldResemble, image.Point{640, 480})
}

func TestRunReplayORBConfig(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := options{
		orbConfig:    filepath.Join(dir, "orb.json"),
		keypointsOut: filepath.Join(dir, "keypoints.png"),
		duration:     time.Minute,
		step:         4,
	}
	test.That(t, os.WriteFile(opts.orbConfig, []byte(`{"n_features": 50}`), 0o600), test.ShouldBeNil)
	test.That(t, runReplay(ctx, opts, clock.New(), logging.NewTestLogger(t)), test.ShouldBeNil)
	_, err := os.Stat(opts.keypointsOut)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, os.WriteFile(opts.orbConfig, []byte(`{"n_features": 0}`), 0o600), test.ShouldBeNil)
	test.That(t, runReplay(ctx, opts, clock.New(), logging.NewTestLogger(t)), test.ShouldNotBeNil)
}

func TestNewInertialSource(t *testing.T) {
	logger := logging.NewTestLogger(t)
	imu, closeIMU, err := newInertialSource(context.Background(), options{}, clock.New(), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, imu, test.ShouldNotBeNil)
	test.That(t, closeIMU(), test.ShouldBeNil)

	_, _, err = newInertialSource(context.Background(), options{imuBus: "no-such-i2c-bus"}, clock.New(), logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRunReplayFrames(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		frame := imaging.New(64, 48, color.NRGBA{uint8(60 * i), 30, 30, 255})
		test.That(t, imaging.Save(frame, filepath.Join(dir, string(rune('a'+i))+".png")), test.ShouldBeNil)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := options{frames: dir, fps: 10, duration: time.Minute, mapOut: filepath.Join(t.TempDir(), "map.png"), size: 32}
	err := runReplay(ctx, opts, clock.New(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	_, err = os.Stat(opts.mapOut)
	test.That(t, err, test.ShouldBeNil)

	opts.frames = filepath.Join(dir, "missing")
	test.That(t, runReplay(ctx, opts, clock.New(), logging.NewTestLogger(t)), test.ShouldNotBeNil)
	opts.frames = dir
	opts.config = filepath.Join(dir, "missing.json")
	test.That(t, runReplay(ctx, opts, clock.New(), logging.NewTestLogger(t)), test.ShouldNotBeNil)
}

func TestWriteTrajectoryPlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plot.png")
	test.That(t, writeTrajectoryPlot(nil, nil, path), test.ShouldNotBeNil)
	err := writeTrajectoryPlot(
		[]r3.Vector{{}, {X: 0.1}, {X: 0.2, Y: 0.05}},
		[]r3.Vector{{X: -1, Y: 1}, {X: 1, Y: -1}},
		path,
	)
	test.That(t, err, test.ShouldBeNil)
	img, err := imaging.Open(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldBeGreaterThan, 100)
}

func TestNewApp(t *testing.T) {
	app := newApp()
	test.That(t, app.Name, test.ShouldEqual, "slamreplay")
	names := map[string]bool{}
	for _, f := range app.Flags {
		names[f.Names()[0]] = true
	}
	for _, want := range []string{flagFrames, flagConfig, flagDuration, flagMapOut, flagPlotOut, flagSize, flagDebug, flagIMUBus, flagORBConfig, flagFrameOut, flagKeypointsOut} {
		test.That(t, names[want], test.ShouldBeTrue)
	}
}
