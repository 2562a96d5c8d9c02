// Package replay implements a camera that plays back a directory of still images at a fixed frame
// rate, publishing each one into a mailbox the way a live capture loop would.
package replay

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.viam.com/utils"

	"github.com/smilesmith9879/G9/components/camera"
	"github.com/smilesmith9879/G9/logging"
	"github.com/smilesmith9879/G9/rimage"
)

var supportedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// Config are the attributes of a replay camera.
type Config struct {
	Dir       string `json:"dir"`
	FrameRate int    `json:"frame_rate"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	// Loop restarts from the first image after the last one instead of holding the last frame.
	Loop bool `json:"loop,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.Dir == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "dir")
	}
	if conf.FrameRate <= 0 {
		return utils.NewConfigValidationError(path, errors.New("frame_rate must be > 0"))
	}
	if conf.Width < 0 || conf.Height < 0 {
		return utils.NewConfigValidationError(path, errors.New("width and height must not be negative"))
	}
	return nil
}

// Camera replays decoded images. It implements camera.FrameSource.
type Camera struct {
	frames  []image.Image
	period  time.Duration
	loop    bool
	mailbox *camera.Mailbox
	clk     clock.Clock
	logger  logging.Logger

	next     atomic.Int64
	finished atomic.Bool

	mu      sync.Mutex
	workers *utils.StoppableWorkers
}

// NewCamera decodes every supported image of conf.Dir, in file name order.
func NewCamera(conf *Config, clk clock.Clock, logger logging.Logger) (*Camera, error) {
	if err := conf.Validate("replay"); err != nil {
		return nil, err
	}
	paths, err := listImages(conf.Dir)
	if err != nil {
		return nil, err
	}
	frames := make([]image.Image, 0, len(paths))
	for _, p := range paths {
		img, err := imaging.Open(p)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot decode %q", p)
		}
		frames = append(frames, img)
	}
	return newCamera(frames, conf, clk, logger), nil
}

// NewCameraFromImages replays in-memory frames.
func NewCameraFromImages(frames []image.Image, conf *Config, clk clock.Clock, logger logging.Logger) (*Camera, error) {
	if len(frames) == 0 {
		return nil, errors.New("no frames to replay")
	}
	if conf.FrameRate <= 0 {
		return nil, errors.New("frame_rate must be > 0")
	}
	return newCamera(frames, conf, clk, logger), nil
}

func newCamera(frames []image.Image, conf *Config, clk clock.Clock, logger logging.Logger) *Camera {
	if clk == nil {
		clk = clock.New()
	}
	logger.Infow("replay camera loaded", "frames", len(frames), "fps", conf.FrameRate, "loop", conf.Loop)
	if conf.Width == 0 && conf.Height == 0 {
		mismatched := 0
		for _, f := range frames[1:] {
			if !rimage.SameImgSize(frames[0], f) {
				mismatched++
			}
		}
		if mismatched > 0 {
			logger.Warnw("frames differ in size from the first one, set width and height to resize them",
				"first", frames[0].Bounds().Size(), "mismatched", mismatched)
		}
	}
	return &Camera{
		frames:  frames,
		period:  time.Second / time.Duration(conf.FrameRate),
		loop:    conf.Loop,
		mailbox: camera.NewMailbox(conf.Width, conf.Height),
		clk:     clk,
		logger:  logger,
	}
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !supportedExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		return nil, errors.Errorf("no png or jpeg images in %q", dir)
	}
	sort.Strings(paths)
	return paths, nil
}

// Start begins publishing frames. Starting a started camera does nothing.
func (c *Camera) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.workers != nil {
		return
	}
	c.workers = utils.NewBackgroundStoppableWorkers(c.run)
}

// Stop stops publishing. The last published frame stays available. Stopping a stopped camera does
// nothing.
func (c *Camera) Stop() {
	c.mu.Lock()
	workers := c.workers
	c.workers = nil
	c.mu.Unlock()
	if workers != nil {
		workers.Stop()
	}
}

// Close stops the camera.
func (c *Camera) Close(_ context.Context) error {
	c.Stop()
	return nil
}

func (c *Camera) run(ctx context.Context) {
	ticker := c.clk.Ticker(c.period)
	defer ticker.Stop()
	for {
		if !c.publishNext() {
			c.logger.Debug("replay reached the last frame")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// publishNext publishes the next frame and reports whether there are more to come.
func (c *Camera) publishNext() bool {
	idx := int(c.next.Load())
	if idx >= len(c.frames) {
		if !c.loop {
			c.finished.Store(true)
			return false
		}
		idx = 0
	}
	c.mailbox.Publish(c.frames[idx])
	c.next.Store(int64(idx + 1))
	return true
}

// Frame returns the latest published frame.
func (c *Camera) Frame() (image.Image, bool) {
	return c.mailbox.Frame()
}

// Len returns the number of frames in the replay.
func (c *Camera) Len() int {
	return len(c.frames)
}

// Finished reports whether a non looping replay published its last frame.
func (c *Camera) Finished() bool {
	return c.finished.Load()
}

// Stats returns the mailbox counters.
func (c *Camera) Stats() camera.MailboxStats {
	return c.mailbox.Stats()
}
