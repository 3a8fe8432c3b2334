package base

import (
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
)

// Conv2d creates Conv2D module.
func Conv2d(p *nn.Path, cIn, cOut, ksize, padding, stride int64) *nn.Conv2D {
	config := nn.DefaultConv2DConfig()
	config.Stride = []int64{stride, stride}
	config.Padding = []int64{padding, padding}

	return nn.NewConv2D(p, cIn, cOut, ksize, config)
}

// Conv2dRelu creates a SequentialT composing of a biased Conv2D and a ReLU activation.
// This is the plain VGG convolution unit (no batch norm).
func Conv2dRelu(p *nn.Path, cIn, cOut, ksize, padding, stride int64) *nn.SequentialT {
	seq := nn.SeqT()
	seq.Add(Conv2d(p, cIn, cOut, ksize, padding, stride))
	seq.AddFn(nn.NewFunc(func(xs *ts.Tensor) *ts.Tensor {
		return xs.MustRelu(false)
	}))

	return seq
}

// ConvTranspose2d creates a bias-free transposed convolution used for
// learnable upsampling. Output spatial size is (in-1)*stride + ksize.
func ConvTranspose2d(p *nn.Path, cIn, cOut int64, ksize, stride []int64) *nn.ConvTranspose2D {
	config := &nn.ConvTranspose2DConfig{
		Stride:        stride,
		Padding:       []int64{0, 0},
		OutputPadding: []int64{0, 0},
		Dilation:      []int64{1, 1},
		Groups:        1,
		Bias:          false,
		WsInit:        nn.NewKaimingUniformInit(),
		BsInit:        nn.NewConstInit(0),
	}

	return nn.NewConvTranspose2D(p, cIn, cOut, ksize, config)
}
