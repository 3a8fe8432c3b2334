package fcn_test

import (
	"errors"
	"testing"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/sugarme/fcn/fcn"
)

func TestUpsamplingAt(t *testing.T) {
	assert.Equal(t, fcn.StepUpsampling, fcn.UpsamplingAt(0, 3))
	assert.Equal(t, fcn.StepUpsampling, fcn.UpsamplingAt(1, 3))
	assert.Equal(t, fcn.FinalUpsampling, fcn.UpsamplingAt(2, 3))
	assert.Equal(t, fcn.FinalUpsampling, fcn.UpsamplingAt(0, 1))

	assert.Equal(t, []int64{4, 4}, fcn.StepUpsampling.KernelSize)
	assert.Equal(t, []int64{2, 2}, fcn.StepUpsampling.Stride)
	assert.Equal(t, []int64{16, 16}, fcn.FinalUpsampling.KernelSize)
	assert.Equal(t, []int64{8, 8}, fcn.FinalUpsampling.Stride)
}

func TestVGGBlockConfigs(t *testing.T) {
	scales := []float64{1, 1e-2, 1e-4, 1e-6}
	configs := fcn.VGGBlockConfigs(scales, 21)
	require.Len(t, configs, 4)

	names := []string{"feat1", "feat2", "feat3", "feat4"}
	for i, cfg := range configs {
		assert.Equal(t, names[i], cfg.Name)
		assert.Equal(t, int64(21), cfg.Classes)
		assert.Equal(t, scales[i], cfg.Scale)
		assert.True(t, cfg.Crop.IsCentered())
		if i < len(configs)-1 {
			assert.Equal(t, fcn.StepUpsampling, cfg.Upsampling, "block %d", i)
		} else {
			assert.Equal(t, fcn.FinalUpsampling, cfg.Upsampling, "block %d", i)
		}
	}
}

// VGGDecoderSuite exercises VGGDecoder against a fresh VarStore per test.
type VGGDecoderSuite struct {
	suite.Suite
	vs *nn.VarStore
}

func (s *VGGDecoderSuite) SetupTest() {
	s.vs = nn.NewVarStore(gotch.CPU)
}

func (s *VGGDecoderSuite) TestBuildsOneBlockPerLevel() {
	dec, err := fcn.NewVGGDecoder(s.vs.Root(), []int64{16, 8, 3}, []float64{1, 1e-2}, 21)
	require.NoError(s.T(), err)

	blocks := dec.Blocks()
	require.Len(s.T(), blocks, 3)

	b0, ok := blocks[0].(*fcn.DeconvBlock)
	require.True(s.T(), ok)
	assert.Equal(s.T(), "feat1", b0.Config.Name)
	assert.Equal(s.T(), 1.0, b0.Config.Scale)
	assert.Equal(s.T(), fcn.StepUpsampling, b0.Config.Upsampling)

	b1, ok := blocks[1].(*fcn.DeconvBlock)
	require.True(s.T(), ok)
	assert.Equal(s.T(), "feat2", b1.Config.Name)
	assert.Equal(s.T(), 1e-2, b1.Config.Scale)
	assert.Equal(s.T(), fcn.FinalUpsampling, b1.Config.Upsampling)

	score, ok := blocks[2].(*fcn.ScoreBlock)
	require.True(s.T(), ok)
	assert.True(s.T(), score.Crop.IsCentered())

	vars := s.vs.Variables()
	for _, name := range []string{"feat1.score.weight", "feat1.score.bias", "feat1.upscore.weight", "feat2.score.weight", "feat2.upscore.weight"} {
		assert.Contains(s.T(), vars, name)
	}
	assert.NotContains(s.T(), vars, "feat1.upscore.bias")
	w1 := vars["feat1.score.weight"]
	w2 := vars["feat2.score.weight"]
	assert.Equal(s.T(), []int64{21, 16, 1, 1}, w1.MustSize())
	assert.Equal(s.T(), []int64{21, 8, 1, 1}, w2.MustSize())
}

func (s *VGGDecoderSuite) TestScalesMismatchBuildsNothing() {
	dec, err := fcn.NewVGGDecoder(s.vs.Root(), []int64{16, 8, 3}, []float64{1}, 21)
	assert.Nil(s.T(), dec)
	require.True(s.T(), errors.Is(err, fcn.ErrConfig))

	var cerr *fcn.ConfigError
	require.True(s.T(), errors.As(err, &cerr))
	assert.Equal(s.T(), "scales", cerr.Field)
	assert.Equal(s.T(), 2, cerr.Expected)
	assert.Equal(s.T(), 1, cerr.Actual)
	assert.Empty(s.T(), s.vs.Variables())
}

func (s *VGGDecoderSuite) TestRejectsBadClasses() {
	_, err := fcn.NewVGGDecoder(s.vs.Root(), []int64{16, 3}, []float64{1}, 0)
	assert.True(s.T(), errors.Is(err, fcn.ErrConfig))

	var cerr *fcn.ConfigError
	require.True(s.T(), errors.As(err, &cerr))
	assert.Equal(s.T(), "classes", cerr.Field)
	assert.Equal(s.T(), 0, cerr.Actual)
	assert.Equal(s.T(), "NewVGGDecoder: classes must be positive, got 0", err.Error())
	assert.Empty(s.T(), s.vs.Variables())
}

// Pyramid [p0 p1 p2] with scales [s0 s1] and 21 classes.
//
//	p0 4x4   -> upscore 4x4/2   -> 10x10
//	p1 8x8   -> crop to 8x8, add, upscore 16x16/8 -> 72x72
//	p2 64x64 -> crop 72x72 to 64x64
func (s *VGGDecoderSuite) TestDecodeVGG() {
	pyramid := []*ts.Tensor{
		ts.MustRand([]int64{2, 16, 4, 4}, gotch.Float, gotch.CPU),
		ts.MustRand([]int64{2, 8, 8, 8}, gotch.Float, gotch.CPU),
		ts.MustRand([]int64{2, 3, 64, 64}, gotch.Float, gotch.CPU),
	}

	out, err := fcn.DecodeVGG(s.vs.Root(), pyramid, []float64{1, 1e-2}, 21, false)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []int64{2, 21, 64, 64}, out.MustSize())
	out.MustDrop()

	for _, p := range pyramid {
		p.MustDrop()
	}
}

func (s *VGGDecoderSuite) TestDecodeVGGScalesMismatch() {
	pyramid := []*ts.Tensor{
		ts.MustRand([]int64{1, 16, 4, 4}, gotch.Float, gotch.CPU),
		ts.MustRand([]int64{1, 8, 8, 8}, gotch.Float, gotch.CPU),
		ts.MustRand([]int64{1, 3, 64, 64}, gotch.Float, gotch.CPU),
	}

	_, err := fcn.DecodeVGG(s.vs.Root(), pyramid, []float64{1}, 21, false)
	var cerr *fcn.ConfigError
	require.True(s.T(), errors.As(err, &cerr))
	assert.Equal(s.T(), 2, cerr.Expected)
	assert.Empty(s.T(), s.vs.Variables())
}

func (s *VGGDecoderSuite) TestForwardFeaturesPyramidMismatch() {
	dec, err := fcn.NewVGGDecoder(s.vs.Root(), []int64{16, 8, 3}, []float64{1, 1e-2}, 21)
	require.NoError(s.T(), err)

	pyramid := []*ts.Tensor{
		ts.MustRand([]int64{1, 16, 4, 4}, gotch.Float, gotch.CPU),
		ts.MustRand([]int64{1, 3, 64, 64}, gotch.Float, gotch.CPU),
	}
	_, err = dec.ForwardFeatures(pyramid, false)
	assert.True(s.T(), errors.Is(err, fcn.ErrConfig))
}

func TestVGGDecoderSuite(t *testing.T) {
	suite.Run(t, new(VGGDecoderSuite))
}
