package encoder

import (
	ts "github.com/sugarme/gotch/tensor"
)

// Encoder is encoder interface for a image segmentation model.
//
// ForwardAll returns the feature taps ordered from the shallowest
// (highest resolution) to the deepest one.
type Encoder interface {
	ForwardAll(x *ts.Tensor, train bool) []*ts.Tensor
	Channels() []int64
}
