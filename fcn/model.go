package fcn

import (
	"fmt"
	"log"

	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/fcn/encoder"
)

// Backbone names a supported encoder.
type Backbone string

const (
	VGG16 Backbone = "vgg16"
	VGG19 Backbone = "vgg19"
)

// Config holds FCN model options. Scales weight the fc7, pool4 and pool3
// taps, in that order.
type Config struct {
	Backbone Backbone
	Classes  int64
	Scales   []float64
	Encoder  *encoder.VGGConfig
}

// DefaultConfig returns FCN-8s on VGG16 for the 21 PASCAL VOC classes.
func DefaultConfig() *Config {
	return &Config{
		Backbone: VGG16,
		Classes:  21,
		Scales:   []float64{1, 1e-2, 1e-4},
		Encoder:  encoder.DefaultVGGConfig(),
	}
}

// FCN is a Fully Convolutional Network for semantic segmentation.
// Ref: https://arxiv.org/abs/1411.4038
type FCN struct {
	encoder encoder.Encoder
	decoder *VGGDecoder
}

// NewFCN creates FCN. Encoder parameters live at the root of p so that
// torchvision VGG weights load as is; decoder parameters are under
// "decoder".
func NewFCN(p *nn.Path, cfg *Config) (*FCN, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	// 3 encoder taps plus the input image
	if err := validateVGG("NewFCN", 4, cfg.Scales, cfg.Classes); err != nil {
		return nil, err
	}

	var enc encoder.Encoder
	switch cfg.Backbone {
	case VGG16, "":
		enc = encoder.NewVGG16Encoder(p, cfg.Encoder)
	case VGG19:
		enc = encoder.NewVGG19Encoder(p, cfg.Encoder)
	default:
		err := fmt.Errorf("Unsupported backbone: %q", cfg.Backbone)
		return nil, err
	}

	dec, err := NewVGGDecoder(p.Sub("decoder"), pyramidChannels(enc.Channels()), cfg.Scales, cfg.Classes)
	if err != nil {
		return nil, err
	}

	return &FCN{
		encoder: enc,
		decoder: dec,
	}, nil
}

// FCNVGG16 creates FCN-8s with VGG16 backbone.
func FCNVGG16(p *nn.Path, classes int64) (*FCN, error) {
	cfg := DefaultConfig()
	cfg.Classes = classes
	return NewFCN(p, cfg)
}

// pyramidChannels returns the tap channels deepest first, followed by the
// 3 image channels.
func pyramidChannels(taps []int64) []int64 {
	var channels []int64
	for i := len(taps) - 1; i >= 0; i-- {
		channels = append(channels, taps[i])
	}

	return append(channels, 3)
}

// Forward returns class logits of shape [B classes H W] for images x of
// shape [B 3 H W] with values in [0, 1].
func (m *FCN) Forward(x *ts.Tensor, train bool) (*ts.Tensor, error) {
	taps := m.encoder.ForwardAll(x, train)
	defer func() {
		for _, t := range taps {
			t.MustDrop()
		}
	}()

	var pyramid []*ts.Tensor
	for i := len(taps) - 1; i >= 0; i-- {
		pyramid = append(pyramid, taps[i])
	}
	pyramid = append(pyramid, x)

	return m.decoder.ForwardFeatures(pyramid, train)
}

// ForwardT implements ts.ModuleT for FCN struct.
func (m *FCN) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	logits, err := m.Forward(x, train)
	if err != nil {
		log.Fatalf("FCN forward failed: %v\n", err)
	}

	return logits
}

// Predict returns the per-pixel class index map [B H W].
func (m *FCN) Predict(x *ts.Tensor) (*ts.Tensor, error) {
	var (
		pred *ts.Tensor
		err  error
	)
	ts.NoGrad(func() {
		var logits *ts.Tensor
		logits, err = m.Forward(x, false)
		if err != nil {
			return
		}
		pred = logits.MustArgmax([]int64{1}, false, true)
	})

	return pred, err
}
