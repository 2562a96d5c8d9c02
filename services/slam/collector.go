package slam

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	goutils "go.viam.com/utils"
	"golang.org/x/sync/errgroup"

	"github.com/smilesmith9879/G9/logging"
)

// Snapshotter is the read side of a Processor, the only thing a telemetry consumer needs.
type Snapshotter interface {
	Data() Data
}

// CaptureFunc turns one snapshot into the record a collector writes.
type CaptureFunc func(ctx context.Context, data Data) (interface{}, error)

// Summary is the record written by SummaryCapture.
type Summary struct {
	Time             time.Time   `json:"time"`
	Position         r3.Vector   `json:"position"`
	Orientation      Orientation `json:"orientation"`
	TrajectoryLength int         `json:"trajectory_length"`
	MapSize          int         `json:"map_size"`
	OccupiedCells    int         `json:"occupied_cells"`
	FreeCells        int         `json:"free_cells"`
	Cycles           int         `json:"cycles"`
}

// SummaryCapture returns a CaptureFunc summarizing the snapshot, stamped with clk.
func SummaryCapture(clk clock.Clock) CaptureFunc {
	return func(ctx context.Context, data Data) (interface{}, error) {
		s := Summary{
			Time:             clk.Now().UTC(),
			Position:         data.Position,
			Orientation:      data.Orientation,
			TrajectoryLength: len(data.Trajectory),
			MapSize:          data.MapSize,
			Cycles:           data.Cycles,
		}
		if data.OccupancyGrid != nil {
			s.OccupiedCells = data.OccupancyGrid.Count(Occupied)
			s.FreeCells = data.OccupancyGrid.Count(Free)
		}
		return s, nil
	}
}

// CollectorParams configure a Collector.
type CollectorParams struct {
	Name     string
	Interval time.Duration
	// Target receives one json document per capture.
	Target    io.Writer
	QueueSize int
	Clock     clock.Clock
	Logger    logging.Logger
}

// Collector pulls a snapshot every Interval, captures it and writes the result to Target. Capturing
// and writing run in separate goroutines joined by a bounded queue.
type Collector struct {
	src     Snapshotter
	capture CaptureFunc
	params  CollectorParams

	captured atomic.Uint64
	failed   atomic.Uint64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// NewCollector returns a collector that does nothing until Collect is called.
func NewCollector(src Snapshotter, capture CaptureFunc, params CollectorParams) (*Collector, error) {
	if src == nil || capture == nil {
		return nil, errors.New("collector needs a snapshot source and a capture function")
	}
	if params.Interval <= 0 {
		return nil, errors.New("collector interval must be > 0")
	}
	if params.Target == nil {
		params.Target = io.Discard
	}
	if params.QueueSize <= 0 {
		params.QueueSize = 10
	}
	if params.Clock == nil {
		params.Clock = clock.New()
	}
	if params.Logger == nil {
		params.Logger = logging.NewBlankLogger(params.Name)
	}
	return &Collector{src: src, capture: capture, params: params}, nil
}

// Collect starts collecting in the background. Collecting twice does nothing.
func (c *Collector) Collect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	goutils.PanicCapturingGo(func() {
		defer close(done)
		queue := make(chan interface{}, c.params.QueueSize)
		errs, ctx := errgroup.WithContext(ctx)
		errs.Go(func() error {
			defer close(queue)
			return c.captureLoop(ctx, queue)
		})
		errs.Go(func() error {
			return c.write(queue)
		})
		err := errs.Wait()
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
	})
}

func (c *Collector) captureLoop(ctx context.Context, queue chan<- interface{}) error {
	ticker := c.params.Clock.Ticker(c.params.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		rec, err := c.capture(ctx, c.src.Data())
		if err != nil {
			c.failed.Inc()
			c.params.Logger.Debugw("capture failed", "collector", c.params.Name, "error", err)
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case queue <- rec:
			c.captured.Inc()
		}
	}
}

func (c *Collector) write(queue <-chan interface{}) error {
	enc := json.NewEncoder(c.params.Target)
	for rec := range queue {
		if err := enc.Encode(rec); err != nil {
			return errors.Wrapf(err, "collector %q cannot write", c.params.Name)
		}
	}
	return nil
}

// Close stops collecting, waits for the queue to drain and returns the write error, if any.
func (c *Collector) Close() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Captured returns how many records were queued for writing.
func (c *Collector) Captured() uint64 {
	return c.captured.Load()
}

// Failed returns how many captures returned an error.
func (c *Collector) Failed() uint64 {
	return c.failed.Load()
}
