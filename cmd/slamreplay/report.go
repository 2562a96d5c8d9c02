package main

import (
	"image/color"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// writeTrajectoryPlot charts the landmarks and the trajectory on the ground plane and saves the
// chart to path. The image format follows the file extension.
func writeTrajectoryPlot(trajectory, landmarks []r3.Vector, path string) error {
	if len(trajectory) == 0 && len(landmarks) == 0 {
		return errors.New("nothing to plot")
	}
	p := plot.New()
	p.Title.Text = "SLAM trajectory"
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.Add(plotter.NewGrid())

	if len(landmarks) > 0 {
		scatter, err := plotter.NewScatter(toXYs(landmarks))
		if err != nil {
			return err
		}
		scatter.GlyphStyle.Color = color.NRGBA{128, 128, 128, 255}
		scatter.GlyphStyle.Radius = vg.Points(1)
		p.Add(scatter)
		p.Legend.Add("landmarks", scatter)
	}
	if len(trajectory) > 0 {
		line, points, err := plotter.NewLinePoints(toXYs(trajectory))
		if err != nil {
			return err
		}
		line.Color = color.NRGBA{0, 0, 255, 255}
		line.Width = vg.Points(1)
		points.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(line, points)
		p.Legend.Add("trajectory", line)
	}
	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}

func toXYs(pts []r3.Vector) plotter.XYs {
	xys := make(plotter.XYs, len(pts))
	for i, pt := range pts {
		xys[i] = plotter.XY{X: pt.X, Y: pt.Y}
	}
	return xys
}
