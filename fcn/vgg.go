package fcn

import (
	"fmt"

	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/fcn/base"
)

// VGGDecoder is the FCN decoder for VGG backbones: one DeconvBlock per
// encoder level followed by a ScoreBlock cropping to the input image.
type VGGDecoder struct {
	blocks []Block
}

// VGGBlockConfigs returns the DeconvBlock configurations for a pyramid of
// len(scales)+1 levels. Block i is named "feat{i+1}".
func VGGBlockConfigs(scales []float64, classes int64) []DeconvConfig {
	configs := make([]DeconvConfig, len(scales))
	for i, scale := range scales {
		configs[i] = DeconvConfig{
			Name:       fmt.Sprintf("feat%d", i+1),
			Classes:    classes,
			Scale:      scale,
			Upsampling: UpsamplingAt(i, len(scales)),
			Crop:       base.Centered(),
		}
	}

	return configs
}

func validateVGG(op string, levels int, scales []float64, classes int64) error {
	if levels < 2 {
		return &ConfigError{Op: op, Field: "pyramid", Expected: 2, Actual: levels}
	}
	if len(scales) != levels-1 {
		return &ConfigError{Op: op, Field: "scales", Expected: levels - 1, Actual: len(scales)}
	}
	if classes <= 0 {
		return &ConfigError{Op: op, Field: "classes", Expected: 1, Actual: int(classes)}
	}

	return nil
}

// NewVGGDecoder creates VGGDecoder.
//
// channels lists the channel count of every pyramid level, raw input
// included, in pyramid order. Nothing is registered in p when validation
// fails.
func NewVGGDecoder(p *nn.Path, channels []int64, scales []float64, classes int64) (*VGGDecoder, error) {
	if err := validateVGG("NewVGGDecoder", len(channels), scales, classes); err != nil {
		return nil, err
	}

	var blocks []Block
	for i, cfg := range VGGBlockConfigs(scales, classes) {
		blocks = append(blocks, NewDeconvBlock(p, channels[i], cfg))
	}
	blocks = append(blocks, NewScoreBlock(base.Centered()))

	return &VGGDecoder{blocks: blocks}, nil
}

// Blocks returns the decoder blocks in pyramid order.
func (d *VGGDecoder) Blocks() []Block {
	return d.blocks
}

// ForwardFeatures decodes a feature pyramid into class scores at input
// resolution.
func (d *VGGDecoder) ForwardFeatures(pyramid []*ts.Tensor, train bool) (*ts.Tensor, error) {
	return Decode(pyramid, d.blocks, train)
}

// DecodeVGG builds a VGGDecoder sized after the given pyramid and runs it
// once. Use NewVGGDecoder to keep the layers across calls.
func DecodeVGG(p *nn.Path, pyramid []*ts.Tensor, scales []float64, classes int64, train bool) (*ts.Tensor, error) {
	if err := validateVGG("DecodeVGG", len(pyramid), scales, classes); err != nil {
		return nil, err
	}

	channels := make([]int64, len(pyramid))
	for i, feat := range pyramid {
		channels[i] = feat.MustSize()[1]
	}

	dec, err := NewVGGDecoder(p, channels, scales, classes)
	if err != nil {
		return nil, err
	}

	return dec.ForwardFeatures(pyramid, train)
}
