// Package slam implements the visual localization and mapping of the robot. A background cycle pulls
// the latest camera frame, registers it against the previous one with ORB features and a RANSAC
// homography, dead reckons the position from it, overlays the tilt of the inertial sensor and grows a
// bounded landmark map, a bounded trajectory and an occupancy grid.
//
// Position integrates the homography translation while yaw is overwritten with the rotation of the
// latest homography; roll and pitch only come from the inertial sensor.
package slam

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	goutils "go.viam.com/utils"

	"github.com/smilesmith9879/G9/components/camera"
	"github.com/smilesmith9879/G9/components/movementsensor"
	"github.com/smilesmith9879/G9/logging"
	"github.com/smilesmith9879/G9/vision/odometry"
)

// ErrNilSource is returned when a processor is built without a frame source.
var ErrNilSource = errors.New("slam needs a frame source")

// faultLogEvery is how many consecutive faults are counted between two error logs.
const faultLogEvery = 10

// Stats counts what the cycles did.
type Stats struct {
	// Processed counts frames applied to the map state, registered or not.
	Processed uint64 `json:"processed"`
	// Bootstraps counts frames that were only stored as a reference.
	Bootstraps uint64 `json:"bootstraps"`
	// Insufficient counts frames that could not be registered.
	Insufficient uint64 `json:"insufficient"`
	// Idle counts cycles without a frame.
	Idle   uint64 `json:"idle"`
	Faults uint64 `json:"faults"`
}

// Option customizes a Processor.
type Option func(*Processor)

// WithClock makes the cycle wait on clk instead of the wall clock.
func WithClock(clk clock.Clock) Option {
	return func(p *Processor) {
		p.clk = clk
	}
}

// WithDebugCycles logs the outcome of every cycle at debug level, whatever the level of the logger.
func WithDebugCycles() Option {
	return func(p *Processor) {
		p.debugCycles = true
	}
}

// Processor runs the mapping cycle. It is idle until Start is called and can be started and
// stopped any number of times. All accessors are safe for concurrent use.
type Processor struct {
	camera    camera.FrameSource
	imu       movementsensor.InertialSource
	conf      *Config
	motionCfg *odometry.MotionEstimationConfig
	clk       clock.Clock
	logger    logging.Logger

	debugCycles bool

	// tracker is only used by the cycle.
	tracker *tracker

	mu    sync.Mutex
	state *mapState

	lifecycleMu sync.Mutex
	workers     *goutils.StoppableWorkers

	activeWorkers     atomic.Int32
	consecutiveFaults int
	processed         atomic.Uint64
	bootstraps        atomic.Uint64
	insufficient      atomic.Uint64
	idle              atomic.Uint64
	faults            atomic.Uint64
}

// NewProcessor returns an idle processor reading frames from cam and tilt from imu. imu may be nil,
// in which case roll and pitch stay at zero.
func NewProcessor(cam camera.FrameSource, imu movementsensor.InertialSource, conf *Config, logger logging.Logger,
	opts ...Option,
) (*Processor, error) {
	if cam == nil {
		return nil, ErrNilSource
	}
	if conf == nil {
		conf = DefaultConfig()
	}
	if err := conf.Validate("slam"); err != nil {
		return nil, err
	}
	tr, err := newTracker(conf)
	if err != nil {
		return nil, err
	}
	p := &Processor{
		camera:    cam,
		imu:       imu,
		conf:      conf,
		motionCfg: conf.motionConfig(),
		clk:       clock.New(),
		logger:    logger,
		tracker:   tr,
		state:     newMapState(conf),
	}
	for _, opt := range opts {
		opt(p)
	}
	if imu == nil {
		logger.Warn("no inertial source, roll and pitch will stay at 0")
	}
	logger.Infow("SLAM processor initialized",
		"data_rate_ms", conf.DataRateMs,
		"grid_size", conf.GridSize,
		"grid_resolution", conf.GridResolution,
		"n_features", conf.ORB.NFeatures,
	)
	return p, nil
}

// Start starts the background cycle. Starting a running processor does nothing.
func (p *Processor) Start() {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()
	if p.workers != nil {
		return
	}
	p.workers = goutils.NewBackgroundStoppableWorkers(p.run)
	p.logger.Info("SLAM processing started")
}

// Stop stops the background cycle and waits for it to return. The map state is kept, so a later
// Start resumes where it stopped. Stopping an idle processor does nothing.
func (p *Processor) Stop() {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()
	if p.workers == nil {
		return
	}
	p.workers.Stop()
	p.workers = nil
	p.logger.Info("SLAM processing stopped")
}

// Running reports whether the background cycle is active.
func (p *Processor) Running() bool {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()
	return p.workers != nil
}

// Close stops the processor.
func (p *Processor) Close(_ context.Context) error {
	p.Stop()
	return nil
}

// Stats returns the cycle counters.
func (p *Processor) Stats() Stats {
	return Stats{
		Processed:    p.processed.Load(),
		Bootstraps:   p.bootstraps.Load(),
		Insufficient: p.insufficient.Load(),
		Idle:         p.idle.Load(),
		Faults:       p.faults.Load(),
	}
}

func (p *Processor) run(ctx context.Context) {
	p.activeWorkers.Inc()
	defer p.activeWorkers.Dec()
	if p.debugCycles {
		ctx = logging.EnableDebugMode(ctx, "slam")
	}
	for {
		if ctx.Err() != nil {
			return
		}
		delay := p.nextDelay(p.runCycle(ctx))
		if !p.sleep(ctx, delay) {
			return
		}
	}
}

// nextDelay records the outcome of a cycle and returns how long to wait before the next one.
func (p *Processor) nextDelay(err error) time.Duration {
	if err == nil {
		if p.consecutiveFaults > 0 {
			p.logger.Infow("SLAM processing recovered", "faults", p.consecutiveFaults)
			p.consecutiveFaults = 0
		}
		return p.conf.dataRate()
	}
	p.faults.Inc()
	p.consecutiveFaults++
	if p.consecutiveFaults%faultLogEvery == 1 {
		p.logger.Errorw("error in SLAM processing", "error", err, "consecutive", p.consecutiveFaults)
	}
	return p.conf.errorBackoff()
}

func (p *Processor) sleep(ctx context.Context, d time.Duration) bool {
	timer := p.clk.Timer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// runCycle processes one frame and turns a panic into an error.
func (p *Processor) runCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic in SLAM cycle: %v", r)
		}
	}()
	return p.processFrame(ctx)
}

// processFrame runs one cycle. Everything expensive happens before the state lock is taken; the
// writes of the cycle are then applied together.
func (p *Processor) processFrame(ctx context.Context) error {
	frame, ok := p.camera.Frame()
	if !ok || frame == nil {
		p.idle.Inc()
		return nil
	}
	res := p.tracker.track(frame)
	if res.bootstrap {
		p.bootstraps.Inc()
		p.logger.CDebugw(ctx, "stored reference frame", "frame", p.tracker.reference())
		return nil
	}

	update := cycleUpdate{frameSize: res.frameSize}
	if res.err == nil {
		motion, err := odometry.EstimatePlanarMotion(
			odometry.ConvertImagePointSliceToFloatPointSlice(res.previous),
			odometry.ConvertImagePointSliceToFloatPointSlice(res.current),
			p.motionCfg,
		)
		if err != nil {
			res.err = err
		} else {
			update.motion = motion
			update.matched = res.current
		}
	}
	if res.err != nil {
		p.insufficient.Inc()
		p.logger.CDebugw(ctx, "skipping pose update", "frame", p.tracker.reference(), "reason", res.err)
	} else {
		p.logger.CDebugw(ctx, "registered frame",
			"frame", p.tracker.reference(),
			"matches", len(res.matches),
			"inliers", len(update.motion.Inliers),
			"translation", update.motion.Translation,
			"yaw", update.motion.Yaw,
		)
	}
	if p.imu != nil {
		tilt := p.imu.Orientation()
		update.tilt = &tilt
	}

	p.mu.Lock()
	p.state.apply(update)
	p.mu.Unlock()
	p.processed.Inc()
	return nil
}
