package encoder_test

import (
	"testing"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
	"github.com/stretchr/testify/assert"

	"github.com/sugarme/fcn/encoder"
)

func TestVGG16Taps(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	var enc encoder.Encoder = encoder.NewVGG16Encoder(vs.Root(), &encoder.VGGConfig{FCDim: 64, Dropout: 0.5})

	assert.Equal(t, []int64{256, 512, 64}, enc.Channels())

	image := ts.MustRand([]int64{2, 3, 64, 64}, gotch.Float, gotch.CPU)
	taps := enc.ForwardAll(image, false)
	assert.Len(t, taps, 3)
	assert.Equal(t, []int64{2, 256, 8, 8}, taps[0].MustSize()) // pool3
	assert.Equal(t, []int64{2, 512, 4, 4}, taps[1].MustSize()) // pool4
	assert.Equal(t, []int64{2, 64, 2, 2}, taps[2].MustSize())  // fc7

	for _, x := range taps {
		x.MustDrop()
	}
}

func TestVGGLayerNames(t *testing.T) {
	cfg := &encoder.VGGConfig{FCDim: 64, Dropout: 0.5}

	vs16 := nn.NewVarStore(gotch.CPU)
	encoder.NewVGG16Encoder(vs16.Root(), cfg)
	vars16 := vs16.Variables()
	// 13 convs + fc6 + fc7, weight and bias each
	assert.Len(t, vars16, 30)
	assert.Contains(t, vars16, "features.28.weight")
	assert.NotContains(t, vars16, "features.30.weight")
	fc6 := vars16["fc6.weight"]
	assert.Equal(t, []int64{64, 512, 7, 7}, fc6.MustSize())

	vs19 := nn.NewVarStore(gotch.CPU)
	encoder.NewVGG19Encoder(vs19.Root(), cfg)
	vars19 := vs19.Variables()
	assert.Len(t, vars19, 36)
	assert.Contains(t, vars19, "features.34.weight")
}

func TestDefaultVGGConfig(t *testing.T) {
	cfg := encoder.DefaultVGGConfig()
	assert.Equal(t, int64(4096), cfg.FCDim)
	assert.Equal(t, 0.5, cfg.Dropout)
}
