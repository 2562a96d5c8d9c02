package main

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/smilesmith9879/G9/components/camera"
	"github.com/smilesmith9879/G9/logging"
	"github.com/smilesmith9879/G9/rimage"
	"github.com/smilesmith9879/G9/vision/keypoints"
)

const jpegQuality = 90

// errNoFrame is returned when a frame output is requested but the camera never produced a frame.
var errNoFrame = errors.New("the camera has no frame")

// writeFrameOutputs saves the latest frame of src as JPEG and, separately, with its ORB keypoints
// drawn on it.
func writeFrameOutputs(src camera.FrameSource, orb *keypoints.ORBConfig, opts options, logger logging.Logger) error {
	var errs error
	if opts.frameOut != "" {
		if err := writeFrameJPEG(src, opts.frameOut); err != nil {
			errs = multierr.Append(errs, errors.Wrap(err, "cannot write frame"))
		} else {
			logger.Infow("wrote frame", "path", opts.frameOut)
		}
	}
	if opts.keypointsOut != "" {
		if n, err := writeKeypoints(src, orb, opts.keypointsOut); err != nil {
			errs = multierr.Append(errs, errors.Wrap(err, "cannot write keypoints"))
		} else {
			logger.Infow("wrote keypoints", "path", opts.keypointsOut, "keypoints", n)
		}
	}
	return errs
}

func writeFrameJPEG(src camera.FrameSource, path string) error {
	data, ok, err := camera.EncodeJPEG(src, jpegQuality)
	if err != nil {
		return err
	}
	if !ok {
		return errNoFrame
	}
	//nolint:gosec
	return os.WriteFile(path, data, 0o644)
}

// writeKeypoints plots the ORB keypoints of the latest frame and returns how many there were. A frame
// without any keypoint is still written.
func writeKeypoints(src camera.FrameSource, orb *keypoints.ORBConfig, path string) (int, error) {
	frame, ok := src.Frame()
	if !ok || frame == nil {
		return 0, errNoFrame
	}
	_, kps, err := keypoints.ComputeORBKeypoints(rimage.MakeGray(frame), orb)
	if err != nil && !errors.Is(err, keypoints.ErrNoDescriptors) {
		return 0, err
	}
	return len(kps), keypoints.PlotKeypoints(frame, kps, path)
}
