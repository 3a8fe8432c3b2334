package base

import "github.com/sugarme/gotch/nn"

// NewScoreHead creates the 1x1 convolution that maps a feature map of cIn
// channels to per-class scores.
func NewScoreHead(p *nn.Path, cIn, classes int64) *nn.Conv2D {
	return Conv2d(p, cIn, classes, 1, 0, 1)
}
