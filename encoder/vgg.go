package encoder

import (
	"fmt"

	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/fcn/base"
)

// maxpool marks a pooling layer in a VGG stage layout.
const maxpool int64 = -1

// Stage layouts follow torchvision `features.N` numbering so that ImageNet
// weights can be loaded with VarStore.LoadPartial.
var (
	vgg16Layout = [][]int64{
		{64, 64, maxpool},
		{128, 128, maxpool},
		{256, 256, 256, maxpool},
		{512, 512, 512, maxpool},
		{512, 512, 512, maxpool},
	}
	vgg19Layout = [][]int64{
		{64, 64, maxpool},
		{128, 128, maxpool},
		{256, 256, 256, 256, maxpool},
		{512, 512, 512, 512, maxpool},
		{512, 512, 512, 512, maxpool},
	}
)

// VGGConfig holds the fully-convolutional head options of a VGG encoder.
type VGGConfig struct {
	FCDim   int64   // channels of fc6 and fc7
	Dropout float64 // dropout probability after fc6 and fc7
}

// DefaultVGGConfig returns the original FCN head: 4096 channels, dropout 0.5.
func DefaultVGGConfig() *VGGConfig {
	return &VGGConfig{
		FCDim:   4096,
		Dropout: 0.5,
	}
}

// VGGEncoder is a VGG backbone with fc6/fc7 converted to convolutions.
type VGGEncoder struct {
	stages []*nn.SequentialT
	fc     *nn.SequentialT
	fcDim  int64
}

// ForwardAll implements Encoder interface for VGGEncoder.
//
// It returns pool3, pool4 and fc7 taps (strides 8, 16 and 32).
func (e *VGGEncoder) ForwardAll(x *ts.Tensor, train bool) []*ts.Tensor {
	xn := rgbNormalize(x)
	x1 := e.stages[0].ForwardT(xn, train)
	xn.MustDrop()
	x2 := e.stages[1].ForwardT(x1, train)
	x1.MustDrop()
	pool3 := e.stages[2].ForwardT(x2, train)
	x2.MustDrop()
	pool4 := e.stages[3].ForwardT(pool3, train)
	pool5 := e.stages[4].ForwardT(pool4, train)
	fc7 := e.fc.ForwardT(pool5, train)
	pool5.MustDrop()

	return []*ts.Tensor{pool3, pool4, fc7}
}

// Channels implements Encoder interface for VGGEncoder.
func (e *VGGEncoder) Channels() []int64 {
	return []int64{256, 512, e.fcDim}
}

// NewVGG16Encoder creates a VGG16 encoder.
func NewVGG16Encoder(p *nn.Path, cfg *VGGConfig) *VGGEncoder {
	return newVGGEncoder(p, vgg16Layout, cfg)
}

// NewVGG19Encoder creates a VGG19 encoder.
func NewVGG19Encoder(p *nn.Path, cfg *VGGConfig) *VGGEncoder {
	return newVGGEncoder(p, vgg19Layout, cfg)
}

func newVGGEncoder(p *nn.Path, layout [][]int64, cfg *VGGConfig) *VGGEncoder {
	if cfg == nil {
		cfg = DefaultVGGConfig()
	}

	features := p.Sub("features")
	var (
		stages []*nn.SequentialT
		cIn    int64 = 3
		idx    int   = 0
	)
	for _, layers := range layout {
		stage := nn.SeqT()
		for _, cOut := range layers {
			if cOut == maxpool {
				stage.AddFn(nn.NewFunc(func(xs *ts.Tensor) *ts.Tensor {
					// ceil mode keeps odd sizes from shrinking the pyramid too early
					return xs.MustMaxPool2d([]int64{2, 2}, []int64{2, 2}, []int64{0, 0}, []int64{1, 1}, true, false)
				}))
				idx++
				continue
			}
			stage.Add(base.Conv2dRelu(features.Sub(fmt.Sprint(idx)), cIn, cOut, 3, 1, 1))
			cIn = cOut
			idx += 2 // conv + relu
		}
		stages = append(stages, stage)
	}

	return &VGGEncoder{
		stages: stages,
		fc:     fcLayers(p, cIn, cfg),
		fcDim:  cfg.FCDim,
	}
}

// fcLayers creates fc6 (7x7 conv) and fc7 (1x1 conv), each followed by
// ReLU and dropout.
func fcLayers(p *nn.Path, cIn int64, cfg *VGGConfig) *nn.SequentialT {
	dropout := cfg.Dropout
	seq := nn.SeqT()
	seq.Add(base.Conv2dRelu(p.Sub("fc6"), cIn, cfg.FCDim, 7, 3, 1))
	seq.Add(nn.NewFuncT(func(xs *ts.Tensor, train bool) *ts.Tensor {
		return ts.MustDropout(xs, dropout, train)
	}))
	seq.Add(base.Conv2dRelu(p.Sub("fc7"), cfg.FCDim, cfg.FCDim, 1, 0, 1))
	seq.Add(nn.NewFuncT(func(xs *ts.Tensor, train bool) *ts.Tensor {
		return ts.MustDropout(xs, dropout, train)
	}))

	return seq
}

func rgbNormalize(x *ts.Tensor) *ts.Tensor {
	meanVals := []float32{0.485, 0.456, 0.406} // image RGB mean
	sdVals := []float32{0.229, 0.224, 0.225}   // image RGB standard error

	device := x.MustDevice()
	mean := ts.MustOfSlice(meanVals).MustView([]int64{1, 3, 1, 1}, true).MustTo(device, true)
	sd := ts.MustOfSlice(sdVals).MustView([]int64{1, 3, 1, 1}, true).MustTo(device, true)

	// x = (x - mean)/sd
	n := x.MustSub(mean, false).MustDiv(sd, true)
	mean.MustDrop()
	sd.MustDrop()

	return n
}
