package style

import (
	"github.com/anthonynsimon/bild/effect"

	"github.com/bryanchriswhite/stylecam/internal/frame"
)

// CartoonStyle flattens color regions with a median filter and inks
// strong edges black on top.
type CartoonStyle struct{}

func (s *CartoonStyle) Name() string { return "cartoon" }

func (s *CartoonStyle) Apply(f *frame.Frame, params Params) (*frame.Frame, error) {
	smoothing := params.Float("smoothing", 5)
	edgeThreshold := params.Int("edge_threshold", 48)
	if smoothing < 1 {
		smoothing = 1
	}
	if edgeThreshold < 1 {
		edgeThreshold = 1
	}

	img := f.ToRGBA()
	smoothed := effect.Median(img, smoothing)
	edges := effect.EdgeDetection(img, 1.0)

	// Ink pixels whose edge response exceeds the threshold.
	for i := 0; i < len(smoothed.Pix); i += 4 {
		lum := luminance(edges.Pix[i], edges.Pix[i+1], edges.Pix[i+2])
		if int(lum) > edgeThreshold {
			smoothed.Pix[i] = 0
			smoothed.Pix[i+1] = 0
			smoothed.Pix[i+2] = 0
		}
	}

	return result(smoothed, f), nil
}

func (s *CartoonStyle) ParamSpecs() []ParamSpec {
	return []ParamSpec{
		{Name: "smoothing", Label: "Smoothing", Type: ParamFloat, Min: 1, Max: 15, Step: 1, Default: 5.0},
		{Name: "edge_threshold", Label: "Edge Threshold", Type: ParamInt, Min: 1, Max: 255, Step: 1, Default: 48},
	}
}
