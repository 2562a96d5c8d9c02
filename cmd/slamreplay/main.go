// Package main runs the mapping pipeline on recorded frames, or on a synthetic panning scene, and
// writes the resulting map and trajectory.
package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/smilesmith9879/G9/components/camera"
	fakecamera "github.com/smilesmith9879/G9/components/camera/fake"
	"github.com/smilesmith9879/G9/components/camera/replay"
	"github.com/smilesmith9879/G9/components/movementsensor"
	fakeimu "github.com/smilesmith9879/G9/components/movementsensor/fake"
	"github.com/smilesmith9879/G9/components/movementsensor/mpu6050"
	"github.com/smilesmith9879/G9/logging"
	"github.com/smilesmith9879/G9/services/slam"
	"github.com/smilesmith9879/G9/vision/keypoints"
)

const (
	flagFrames       = "frames"
	flagFPS          = "fps"
	flagConfig       = "config"
	flagDuration     = "duration"
	flagMapOut       = "map-out"
	flagPlotOut      = "plot-out"
	flagTelemetryOut = "telemetry-out"
	flagSize         = "size"
	flagStep         = "step"
	flagDebug        = "debug"
	flagDebugCycles  = "debug-cycles"
	flagIMUBus       = "imu-bus"
	flagIMUAltAddr   = "imu-alt-addr"
	flagORBConfig    = "orb-config"
	flagFrameOut     = "frame-out"
	flagKeypointsOut = "keypoints-out"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "slamreplay",
		Usage: "run visual SLAM on a directory of frames or a synthetic scene",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagFrames,
				Usage: "replay the png and jpeg images of `DIR` in name order instead of the synthetic scene",
			},
			&cli.IntFlag{
				Name:  flagFPS,
				Value: camera.DefaultConfig().FrameRate,
				Usage: "frame rate of the replay",
			},
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load the slam configuration from `FILE`",
			},
			&cli.DurationFlag{
				Name:  flagDuration,
				Value: 10 * time.Second,
				Usage: "how long to run",
			},
			&cli.StringFlag{
				Name:  flagMapOut,
				Value: "map.png",
				Usage: "write the occupancy grid visualization to `FILE`",
			},
			&cli.StringFlag{
				Name:  flagPlotOut,
				Usage: "write a trajectory chart to `FILE`",
			},
			&cli.StringFlag{
				Name:  flagTelemetryOut,
				Usage: "append one json snapshot summary per second to `FILE`",
			},
			&cli.IntFlag{
				Name:  flagSize,
				Value: slam.DefaultVisualizationSize,
				Usage: "side of the map visualization in pixels",
			},
			&cli.IntFlag{
				Name:  flagStep,
				Value: 4,
				Usage: "pixels the synthetic scene pans by per frame",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.BoolFlag{
				Name:  flagDebugCycles,
				Usage: "log the outcome of every cycle without enabling debug logging elsewhere",
			},
			&cli.StringFlag{
				Name:  flagIMUBus,
				Usage: "read tilt from an MPU-6050 on I2C bus `NAME` instead of the simulated sensor",
			},
			&cli.BoolFlag{
				Name:  flagIMUAltAddr,
				Usage: "the MPU-6050 answers on 0x69 instead of 0x68",
			},
			&cli.StringFlag{
				Name:  flagORBConfig,
				Usage: "load the ORB parameters from `FILE`",
			},
			&cli.StringFlag{
				Name:  flagFrameOut,
				Usage: "write the last camera frame as JPEG to `FILE`",
			},
			&cli.StringFlag{
				Name:  flagKeypointsOut,
				Usage: "write the last camera frame with its ORB keypoints as PNG to `FILE`",
			},
		},
		Action: func(c *cli.Context) error {
			logger := logging.NewLogger("slamreplay")
			if c.Bool(flagDebug) {
				logger = logging.NewDebugLogger("slamreplay")
			}
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runReplay(ctx, optionsFromContext(c), clock.New(), logger)
		},
	}
}

type options struct {
	frames       string
	fps          int
	config       string
	duration     time.Duration
	mapOut       string
	plotOut      string
	telemetryOut string
	size         int
	step         int
	debugCycles  bool
	imuBus       string
	imuAltAddr   bool
	orbConfig    string
	frameOut     string
	keypointsOut string
}

func optionsFromContext(c *cli.Context) options {
	return options{
		frames:       c.String(flagFrames),
		fps:          c.Int(flagFPS),
		config:       c.String(flagConfig),
		duration:     c.Duration(flagDuration),
		mapOut:       c.String(flagMapOut),
		plotOut:      c.String(flagPlotOut),
		telemetryOut: c.String(flagTelemetryOut),
		size:         c.Int(flagSize),
		step:         c.Int(flagStep),
		debugCycles:  c.Bool(flagDebugCycles),
		imuBus:       c.String(flagIMUBus),
		imuAltAddr:   c.Bool(flagIMUAltAddr),
		orbConfig:    c.String(flagORBConfig),
		frameOut:     c.String(flagFrameOut),
		keypointsOut: c.String(flagKeypointsOut),
	}
}

func runReplay(ctx context.Context, opts options, clk clock.Clock, logger logging.Logger) (err error) {
	conf := slam.DefaultConfig()
	if opts.config != "" {
		if conf, err = slam.LoadConfig(opts.config); err != nil {
			return err
		}
	}
	if opts.orbConfig != "" {
		if conf.ORB, err = keypoints.LoadORBConfiguration(opts.orbConfig); err != nil {
			return err
		}
	}

	var frames camera.FrameSource
	if opts.frames != "" {
		var cam *replay.Camera
		cam, err = replay.NewCamera(&replay.Config{Dir: opts.frames, FrameRate: opts.fps}, clk, logger.Sublogger("camera"))
		if err != nil {
			return err
		}
		cam.Start()
		defer func() {
			err = multierr.Combine(err, cam.Close(context.Background()))
		}()
		frames = cam
	} else {
		cam, err := fakecamera.NewCamera(&fakecamera.Config{StepX: opts.step, StepY: opts.step / 2, Seed: 1})
		if err != nil {
			return err
		}
		frames = cam
	}

	imu, closeIMU, err := newInertialSource(ctx, opts, clk, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, closeIMU())
	}()
	procOpts := []slam.Option{slam.WithClock(clk)}
	if opts.debugCycles {
		procOpts = append(procOpts, slam.WithDebugCycles())
	}
	proc, err := slam.NewProcessor(frames, imu, conf, logger.Sublogger("slam"), procOpts...)
	if err != nil {
		return err
	}

	telemetry := io.Discard
	if opts.telemetryOut != "" {
		//nolint:gosec
		f, err := os.OpenFile(filepath.Clean(opts.telemetryOut), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return errors.Wrap(err, "cannot open telemetry output")
		}
		defer goutils.UncheckedErrorFunc(f.Close)
		telemetry = f
	}
	collector, err := slam.NewCollector(proc, loggingCapture(clk, logger), slam.CollectorParams{
		Name:     "telemetry",
		Interval: time.Second,
		Target:   telemetry,
		Clock:    clk,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	proc.Start()
	collector.Collect()
	select {
	case <-ctx.Done():
		logger.Info("interrupted")
	case <-clk.After(opts.duration):
	}
	proc.Stop()
	if err := collector.Close(); err != nil {
		logger.Warnw("telemetry output failed", "error", err)
	}

	stats := proc.Stats()
	data := proc.Data()
	logger.Infow("replay finished",
		"processed", stats.Processed,
		"bootstraps", stats.Bootstraps,
		"insufficient", stats.Insufficient,
		"faults", stats.Faults,
		"position", data.Position,
		"map_size", data.MapSize,
	)
	return multierr.Combine(
		writeOutputs(proc, data, opts, logger),
		writeFrameOutputs(frames, conf.ORB, opts, logger),
	)
}

// newInertialSource opens the MPU-6050 named by opts and calibrates it, or simulates a gently swaying
// robot when no bus is given.
func newInertialSource(ctx context.Context, opts options, clk clock.Clock, logger logging.Logger,
) (movementsensor.InertialSource, func() error, error) {
	if opts.imuBus == "" {
		imu, err := fakeimu.NewMovementSensor(&fakeimu.Config{RollAmplitude: 3, PitchAmplitude: 1.5, PeriodMs: 4000}, clk)
		if err != nil {
			return nil, nil, err
		}
		return imu, func() error { return nil }, nil
	}
	conf := &mpu6050.Config{UseAlternateI2CAddress: opts.imuAltAddr}
	dev, err := mpu6050.OpenI2C(opts.imuBus, conf)
	if err != nil {
		return nil, nil, err
	}
	imu, err := mpu6050.NewCalibratedSensor(ctx, dev, conf, clk, logger.Sublogger("imu"))
	if err != nil {
		return nil, nil, err
	}
	return imu, func() error { return imu.Close(context.Background()) }, nil
}

// loggingCapture summarizes every snapshot and logs it.
func loggingCapture(clk clock.Clock, logger logging.Logger) slam.CaptureFunc {
	summarize := slam.SummaryCapture(clk)
	return func(ctx context.Context, data slam.Data) (interface{}, error) {
		rec, err := summarize(ctx, data)
		if err != nil {
			return nil, err
		}
		s := rec.(slam.Summary)
		logger.Infow("slam",
			"x", s.Position.X,
			"y", s.Position.Y,
			"yaw", s.Orientation.Yaw,
			"roll", s.Orientation.Roll,
			"pitch", s.Orientation.Pitch,
			"map_size", s.MapSize,
			"trajectory", s.TrajectoryLength,
		)
		return s, nil
	}
}

func writeOutputs(proc *slam.Processor, data slam.Data, opts options, logger logging.Logger) error {
	var errs error
	if opts.mapOut != "" {
		img, err := slam.RenderMap(&data, opts.size, opts.size)
		if err == nil {
			err = imaging.Save(img, opts.mapOut)
		}
		if err != nil {
			errs = multierr.Append(errs, errors.Wrap(err, "cannot write map"))
		} else {
			logger.Infow("wrote map", "path", opts.mapOut)
		}
	}
	if opts.plotOut != "" {
		if err := writeTrajectoryPlot(data.Trajectory, proc.MapPoints(), opts.plotOut); err != nil {
			errs = multierr.Append(errs, errors.Wrap(err, "cannot write trajectory plot"))
		} else {
			logger.Infow("wrote trajectory plot", "path", opts.plotOut)
		}
	}
	return errs
}
