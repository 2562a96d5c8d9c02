// Package fake implements a fake camera that looks at a random textured wall while panning across it
// by a fixed number of pixels per frame.
package fake

import (
	"image"
	"image/color"
	"image/draw"
	"math/rand"
	"sync"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

const (
	initialWidth  = 640
	initialHeight = 480
	blockSize     = 8
)

// Config are the attributes of the fake camera config.
type Config struct {
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
	// StepX and StepY are the pixels the view moves by between two frames.
	StepX int   `json:"step_x,omitempty"`
	StepY int   `json:"step_y,omitempty"`
	Seed  int64 `json:"seed,omitempty"`
}

// Validate checks that the config attributes are valid for a fake camera.
func (conf *Config) Validate(path string) error {
	if conf.Width < 0 || conf.Height < 0 {
		return utils.NewConfigValidationError(path, errors.New("width and height must not be negative"))
	}
	if conf.StepX < 0 || conf.StepY < 0 {
		return utils.NewConfigValidationError(path, errors.New("step_x and step_y must not be negative"))
	}
	return nil
}

// Camera is a fake camera. Every call to Frame returns the current view and then pans it.
type Camera struct {
	Width, Height int
	stepX, stepY  int

	mu     sync.Mutex
	wall   *image.Gray
	offset image.Point
	frames int
}

// NewCamera returns a new fake camera. A zero width or height defaults to 640x480.
func NewCamera(conf *Config) (*Camera, error) {
	if err := conf.Validate("fake"); err != nil {
		return nil, err
	}
	width, height := conf.Width, conf.Height
	if width == 0 || height == 0 {
		width, height = initialWidth, initialHeight
	}
	return &Camera{
		Width:  width,
		Height: height,
		stepX:  conf.StepX,
		stepY:  conf.StepY,
		wall:   texturedWall(2*width, 2*height, conf.Seed),
	}, nil
}

// texturedWall fills an image with square blocks of random intensity, which gives FAST plenty of
// corners and makes every neighborhood unique.
func texturedWall(w, h int, seed int64) *image.Gray {
	//nolint:gosec
	rng := rand.New(rand.NewSource(seed))
	wall := image.NewGray(image.Rect(0, 0, w, h))
	for by := 0; by < h; by += blockSize {
		for bx := 0; bx < w; bx += blockSize {
			v := color.Gray{uint8(rng.Intn(256))}
			draw.Draw(wall, image.Rect(bx, by, bx+blockSize, by+blockSize), &image.Uniform{v}, image.Point{}, draw.Src)
		}
	}
	return wall
}

// Frame returns the current view of the wall and moves the view by the configured step. When the view
// would leave the wall it jumps back to the origin.
func (c *Camera) Frame() (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	view := c.View(c.offset)
	c.frames++
	next := c.offset.Add(image.Point{c.stepX, c.stepY})
	if next.X+c.Width > c.wall.Rect.Dx() || next.Y+c.Height > c.wall.Rect.Dy() {
		next = image.Point{}
	}
	c.offset = next
	return view, true
}

// View returns the frame seen from the given offset on the wall, without moving the camera.
func (c *Camera) View(offset image.Point) *image.Gray {
	view := image.NewGray(image.Rect(0, 0, c.Width, c.Height))
	draw.Draw(view, view.Bounds(), c.wall, offset, draw.Src)
	return view
}

// Frames returns how many frames were served.
func (c *Camera) Frames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// Offset returns the position of the next view on the wall.
func (c *Camera) Offset() image.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset
}
