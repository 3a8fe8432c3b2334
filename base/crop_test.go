package base_test

import (
	"testing"

	"github.com/sugarme/gotch"
	ts "github.com/sugarme/gotch/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sugarme/fcn/base"
)

func TestCropOffsetStart(t *testing.T) {
	tests := []struct {
		name      string
		offset    base.CropOffset
		in, out   [2]int64
		top, left int64
		fail      bool
	}{
		{"centered even", base.Centered(), [2]int64{72, 72}, [2]int64{64, 64}, 4, 4, false},
		{"centered odd", base.Centered(), [2]int64{10, 9}, [2]int64{7, 7}, 1, 1, false},
		{"centered same", base.Centered(), [2]int64{5, 5}, [2]int64{5, 5}, 0, 0, false},
		{"centered larger", base.Centered(), [2]int64{5, 5}, [2]int64{6, 5}, 0, 0, true},
		{"offset", base.Offset(2, 3), [2]int64{10, 10}, [2]int64{4, 4}, 2, 3, false},
		{"offset overflow", base.Offset(7, 0), [2]int64{10, 10}, [2]int64{4, 4}, 0, 0, true},
		{"offset negative", base.Offset(-1, 0), [2]int64{10, 10}, [2]int64{4, 4}, 0, 0, true},
	}

	for _, tc := range tests {
		top, left, err := tc.offset.Start(tc.in[0], tc.in[1], tc.out[0], tc.out[1])
		if tc.fail {
			assert.Error(t, err, tc.name)
			continue
		}
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.top, top, tc.name)
		assert.Equal(t, tc.left, left, tc.name)
	}
}

func TestCropOffsetString(t *testing.T) {
	assert.Equal(t, "centered", base.Centered().String())
	assert.Equal(t, "(1, 2)", base.Offset(1, 2).String())
}

func TestCommonSize(t *testing.T) {
	assert.Equal(t, []int64{7, 8}, base.CommonSize([]int64{7, 10}, []int64{9, 8}))
}

func TestCropLike(t *testing.T) {
	vals := make([]float32, 2*5*5)
	for i := range vals {
		vals[i] = float32(i)
	}
	x := ts.MustOfSlice(vals).MustView([]int64{1, 2, 5, 5}, true)

	out, err := base.CropLike(x, []int64{2, 3}, base.Offset(1, 2))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 2, 3}, out.MustSize())
	assert.Equal(t, []float64{7, 8, 9, 12, 13, 14, 32, 33, 34, 37, 38, 39}, out.Float64Values())

	_, err = base.CropLike(x, []int64{6, 5}, base.Centered())
	assert.Error(t, err)

	flat := ts.MustRand([]int64{4, 4}, gotch.Float, gotch.CPU)
	_, err = base.CropLike(flat, []int64{2, 2}, base.Centered())
	assert.Error(t, err)
}
