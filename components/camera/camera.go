// Package camera defines the frame source the mapping pipeline polls, and a single slot mailbox
// that capture loops publish into.
package camera

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// A FrameSource returns the most recently captured frame on demand. Frame never blocks; ok is false
// when nothing has been captured yet. Successive calls may return the same frame. Callers must not
// modify the returned image.
type FrameSource interface {
	Frame() (img image.Image, ok bool)
}

// FrameSourceFunc adapts a function to a FrameSource.
type FrameSourceFunc func() (image.Image, bool)

// Frame calls f.
func (f FrameSourceFunc) Frame() (image.Image, bool) {
	return f()
}

// Config describes the stream a capture loop produces.
type Config struct {
	Width       int `json:"width"`
	Height      int `json:"height"`
	FrameRate   int `json:"frame_rate"`
	JPEGQuality int `json:"jpeg_quality"`
}

// DefaultConfig is a 640x480 stream at 10 fps.
func DefaultConfig() Config {
	return Config{
		Width:       640,
		Height:      480,
		FrameRate:   10,
		JPEGQuality: 70,
	}
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.Width <= 0 || conf.Height <= 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("resolution must be positive, got %dx%d", conf.Width, conf.Height))
	}
	if conf.FrameRate <= 0 {
		return utils.NewConfigValidationError(path, errors.New("frame_rate must be > 0"))
	}
	if conf.JPEGQuality < 1 || conf.JPEGQuality > 100 {
		return utils.NewConfigValidationError(path, errors.New("jpeg_quality must be in [1, 100]"))
	}
	return nil
}

// EncodeJPEG returns the latest frame of src encoded as JPEG. ok is false when src has no frame.
func EncodeJPEG(src FrameSource, quality int) ([]byte, bool, error) {
	img, ok := src.Frame()
	if !ok {
		return nil, false, nil
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, true, errors.Wrap(err, "cannot encode frame")
	}
	return buf.Bytes(), true, nil
}
