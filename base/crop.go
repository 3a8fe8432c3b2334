package base

import (
	"fmt"

	ts "github.com/sugarme/gotch/tensor"
)

// CropOffset tells CropLike where the kept window starts.
type CropOffset struct {
	centered bool
	top      int64
	left     int64
}

// Centered keeps the middle of the input, dropping (in-target)/2 rows and
// columns at the top-left.
func Centered() CropOffset {
	return CropOffset{centered: true}
}

// Offset keeps the window starting at (top, left).
func Offset(top, left int64) CropOffset {
	return CropOffset{top: top, left: left}
}

// IsCentered reports whether o is the centered policy.
func (o CropOffset) IsCentered() bool {
	return o.centered
}

// String implements fmt.Stringer.
func (o CropOffset) String() string {
	if o.centered {
		return "centered"
	}
	return fmt.Sprintf("(%d, %d)", o.top, o.left)
}

// Start returns the top-left corner of a target window of height h and
// width w inside an input of height inH and width inW.
func (o CropOffset) Start(inH, inW, h, w int64) (top, left int64, err error) {
	if h > inH || w > inW {
		err = fmt.Errorf("Cannot crop [%v %v] to larger size [%v %v]", inH, inW, h, w)
		return 0, 0, err
	}

	if o.centered {
		return (inH - h) / 2, (inW - w) / 2, nil
	}

	if o.top < 0 || o.left < 0 || o.top+h > inH || o.left+w > inW {
		err = fmt.Errorf("Crop window %v of size [%v %v] exceeds input [%v %v]", o, h, w, inH, inW)
		return 0, 0, err
	}

	return o.top, o.left, nil
}

// CropLike crops the spatial dimensions (H, W) of a NCHW tensor x to
// size = [h, w]. A new tensor is always returned; x is left untouched.
func CropLike(x *ts.Tensor, size []int64, offset CropOffset) (*ts.Tensor, error) {
	xSize := x.MustSize()
	if len(xSize) != 4 {
		err := fmt.Errorf("Expected 4D tensor [N C H W]. Got %v dimensions.", len(xSize))
		return nil, err
	}
	if len(size) != 2 {
		err := fmt.Errorf("Expected target size [H W]. Got %v.", size)
		return nil, err
	}

	top, left, err := offset.Start(xSize[2], xSize[3], size[0], size[1])
	if err != nil {
		return nil, err
	}

	rows := x.MustNarrow(2, top, size[0], false)
	out := rows.MustNarrow(3, left, size[1], true)

	return out, nil
}

// SpatialSize returns [H W] of a NCHW tensor.
func SpatialSize(x *ts.Tensor) []int64 {
	size := x.MustSize()
	return size[len(size)-2:]
}

// CommonSize returns the element-wise minimum of two [H W] sizes.
func CommonSize(a, b []int64) []int64 {
	h, w := a[0], a[1]
	if b[0] < h {
		h = b[0]
	}
	if b[1] < w {
		w = b[1]
	}
	return []int64{h, w}
}
