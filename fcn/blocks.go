package fcn

import (
	"fmt"

	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/fcn/base"
)

// Upsampling is the kernel and stride of a learnable upsampling layer.
type Upsampling struct {
	KernelSize []int64
	Stride     []int64
}

// Upsampling policy of the VGG decoder.
var (
	// StepUpsampling doubles the resolution, matching the stride between
	// two adjacent VGG pooling stages.
	StepUpsampling = Upsampling{KernelSize: []int64{4, 4}, Stride: []int64{2, 2}}
	// FinalUpsampling brings the shallowest decoded level back to input
	// resolution in one step.
	FinalUpsampling = Upsampling{KernelSize: []int64{16, 16}, Stride: []int64{8, 8}}
)

// UpsamplingAt returns the upsampling used for deconvolution block `level`
// out of `levels` blocks.
func UpsamplingAt(level, levels int) Upsampling {
	if level == levels-1 {
		return FinalUpsampling
	}
	return StepUpsampling
}

// DeconvConfig parameterizes a DeconvBlock.
type DeconvConfig struct {
	Name       string // parameter scope, e.g. "feat1"
	Classes    int64
	Scale      float64 // multiplies the feature before scoring
	Upsampling Upsampling
	Crop       base.CropOffset
}

// DeconvBlock scores a feature, merges it with the accumulated scores and
// upsamples the sum.
//
//	score   = conv1x1(x * scale)
//	merged  = acc empty ? score : crop(acc) + crop(score)
//	upscore = convTranspose(merged)
type DeconvBlock struct {
	Config  DeconvConfig
	score   *nn.Conv2D
	upscore *nn.ConvTranspose2D
}

// NewDeconvBlock creates a DeconvBlock for features of cIn channels.
// Parameters are registered under p.Sub(cfg.Name).
func NewDeconvBlock(p *nn.Path, cIn int64, cfg DeconvConfig) *DeconvBlock {
	bp := p.Sub(cfg.Name)
	return &DeconvBlock{
		Config:  cfg,
		score:   base.NewScoreHead(bp.Sub("score"), cIn, cfg.Classes),
		upscore: base.ConvTranspose2d(bp.Sub("upscore"), cfg.Classes, cfg.Classes, cfg.Upsampling.KernelSize, cfg.Upsampling.Stride),
	}
}

// ForwardBlock implements Block for DeconvBlock.
func (b *DeconvBlock) ForwardBlock(x *ts.Tensor, acc Accumulated, train bool) (*ts.Tensor, error) {
	scaled := x.MustMul1(ts.FloatScalar(b.Config.Scale), false)
	score := b.score.ForwardT(scaled, train)
	scaled.MustDrop()

	merged := score
	if y, ok := acc.Get(); ok {
		var err error
		merged, err = cropAdd(y, score, b.Config.Crop)
		score.MustDrop()
		if err != nil {
			return nil, fmt.Errorf("%v: %w", b.Config.Name, err)
		}
	}

	upscore := b.upscore.Forward(merged)
	merged.MustDrop()

	return upscore, nil
}

// cropAdd crops a and b to their common spatial size and sums them.
func cropAdd(a, b *ts.Tensor, offset base.CropOffset) (*ts.Tensor, error) {
	size := base.CommonSize(base.SpatialSize(a), base.SpatialSize(b))
	ac, err := base.CropLike(a, size, offset)
	if err != nil {
		return nil, err
	}
	bc, err := base.CropLike(b, size, offset)
	if err != nil {
		ac.MustDrop()
		return nil, err
	}
	sum := ac.MustAdd(bc, true)
	bc.MustDrop()

	return sum, nil
}

// ScoreBlock crops the accumulated scores to the spatial size of its
// feature, which is the input image.
type ScoreBlock struct {
	Crop base.CropOffset
}

// NewScoreBlock creates a ScoreBlock.
func NewScoreBlock(crop base.CropOffset) *ScoreBlock {
	return &ScoreBlock{Crop: crop}
}

// ForwardBlock implements Block for ScoreBlock.
func (b *ScoreBlock) ForwardBlock(x *ts.Tensor, acc Accumulated, train bool) (*ts.Tensor, error) {
	y, ok := acc.Get()
	if !ok {
		return nil, fmt.Errorf("score: nothing accumulated to crop")
	}

	out, err := base.CropLike(y, base.SpatialSize(x), b.Crop)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}

	return out, nil
}
