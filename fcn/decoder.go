package fcn

import (
	"errors"
	"fmt"

	ts "github.com/sugarme/gotch/tensor"
)

// ErrConfig is matched by every decoder configuration error.
var ErrConfig = errors.New("invalid decoder configuration")

// ConfigError reports a length or value mismatch detected before any layer
// is built or any block is run.
type ConfigError struct {
	Op       string
	Field    string
	Expected int
	Actual   int
}

func (e *ConfigError) Error() string {
	if e.Field == "classes" {
		return fmt.Sprintf("%v: classes must be positive, got %v", e.Op, e.Actual)
	}
	return fmt.Sprintf("%v: expected %v of length %v, got %v", e.Op, e.Field, e.Expected, e.Actual)
}

// Unwrap lets errors.Is(err, ErrConfig) match.
func (e *ConfigError) Unwrap() error {
	return ErrConfig
}

// Accumulated is the running decoded tensor threaded through the blocks.
// The zero value holds nothing and is what the first block receives.
type Accumulated struct {
	tensor *ts.Tensor
}

// Some wraps x as a present accumulator.
func Some(x *ts.Tensor) Accumulated {
	return Accumulated{tensor: x}
}

// Get returns the accumulated tensor and whether there is one.
func (a Accumulated) Get() (*ts.Tensor, bool) {
	return a.tensor, a.tensor != nil
}

// IsEmpty reports whether nothing has been accumulated yet.
func (a Accumulated) IsEmpty() bool {
	return a.tensor == nil
}

// Block transforms one pyramid feature together with the accumulated result
// into a new accumulated result. It returns a newly allocated tensor, or x
// itself to pass the feature through.
type Block interface {
	ForwardBlock(x *ts.Tensor, acc Accumulated, train bool) (*ts.Tensor, error)
}

// BlockFunc adapts an ordinary function to the Block interface.
type BlockFunc func(x *ts.Tensor, acc Accumulated, train bool) (*ts.Tensor, error)

// ForwardBlock implements Block for BlockFunc.
func (f BlockFunc) ForwardBlock(x *ts.Tensor, acc Accumulated, train bool) (*ts.Tensor, error) {
	return f(x, acc, train)
}

// Decode folds blocks over the feature pyramid.
//
// pyramid is ordered from the largest receptive field to the smallest; its
// last element is the input image. blocks[i] is applied to pyramid[i] and
// to the result of blocks[i-1]. The first block sees an empty accumulator,
// the last one is expected to only crop to the input's shape.
//
// Intermediate results are dropped once consumed. Pyramid tensors are
// owned by the caller and never dropped, even when a block passes one
// through as its result.
func Decode(pyramid []*ts.Tensor, blocks []Block, train bool) (*ts.Tensor, error) {
	if len(pyramid) == 0 {
		return nil, &ConfigError{Op: "Decode", Field: "pyramid", Expected: 1, Actual: 0}
	}
	if len(blocks) != len(pyramid) {
		return nil, &ConfigError{Op: "Decode", Field: "blocks", Expected: len(pyramid), Actual: len(blocks)}
	}

	var acc Accumulated
	for i, feat := range pyramid {
		next, err := blocks[i].ForwardBlock(feat, acc, train)
		if prev, ok := acc.Get(); ok && prev != next && !contains(pyramid, prev) {
			prev.MustDrop()
		}
		if err != nil {
			return nil, err
		}
		acc = Some(next)
	}

	decoded, _ := acc.Get()
	return decoded, nil
}

func contains(xs []*ts.Tensor, x *ts.Tensor) bool {
	for _, t := range xs {
		if t == x {
			return true
		}
	}
	return false
}
