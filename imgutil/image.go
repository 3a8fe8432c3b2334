package imgutil

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/tiff"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/sugarme/gotch"
	ts "github.com/sugarme/gotch/tensor"
	"github.com/sugarme/gotch/vision"
	"golang.org/x/image/draw"
)

// ReadImage reads image from file.
// TIFF goes through chai2010/tiff, which handles more TIFF variants than
// the x/image decoder used by imaging.
func ReadImage(filename string) (image.Image, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".tiff", ".tif":
		f, err := os.Open(filename)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return tiff.Decode(f)
	default:
		return imaging.Open(filename)
	}
}

// Save writes img to filename; the format follows the file extension.
func Save(img image.Image, filename string) error {
	return imaging.Save(img, filename)
}

// Resize rescales img to w x h with Lanczos3 resampling.
func Resize(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	return resize.Resize(uint(w), uint(h), img, resize.Lanczos3)
}

// ResizeNearest rescales img to w x h with nearest-neighbour sampling.
// Paletted images stay paletted with the same colour indices.
func ResizeNearest(img image.Image, w, h int) image.Image {
	rec := image.Rect(0, 0, w, h)
	var dst draw.Image
	if pm, ok := img.(*image.Paletted); ok {
		dst = image.NewPaletted(rec, pm.Palette)
	} else {
		dst = image.NewRGBA(rec)
	}
	draw.NearestNeighbor.Scale(dst, rec, img, img.Bounds(), draw.Src, nil)

	return dst
}

// LoadTensor reads an image file straight into a float tensor of shape
// [1 3 H W] with values in [0, 1]. TIFF files are decoded with ReadImage.
func LoadTensor(filename string) (*ts.Tensor, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".tiff", ".tif":
		img, err := ReadImage(filename)
		if err != nil {
			return nil, err
		}
		return ToTensor(img), nil
	default:
		x, err := vision.Load(filename)
		if err != nil {
			return nil, err
		}
		return chwToInput(x), nil
	}
}

// ToTensor converts img into a float tensor of shape [1 3 H W] with values
// in [0, 1].
func ToTensor(img image.Image) *ts.Tensor {
	nrgba := imaging.Clone(img)
	w, h := int64(nrgba.Rect.Dx()), int64(nrgba.Rect.Dy())

	hwc := ts.MustOfSlice(nrgba.Pix).MustView([]int64{h, w, 4}, true)
	rgb := hwc.MustNarrow(2, 0, 3, true)
	chw := rgb.MustPermute([]int64{2, 0, 1}, true)

	return chwToInput(chw)
}

// chwToInput turns a uint8 [3 H W] tensor into a contiguous float
// [1 3 H W] batch scaled to [0, 1]. x is consumed.
func chwToInput(x *ts.Tensor) *ts.Tensor {
	f := x.MustTotype(gotch.Float, true)
	scaled := f.MustDiv1(ts.FloatScalar(255), true)
	batch := scaled.MustUnsqueeze(0, true)

	return batch.MustContiguous(true)
}

// ClassMap extracts the class indices of a single prediction of shape
// [H W] or [1 H W], returning them in row-major order with the map size.
func ClassMap(pred *ts.Tensor) (classes []int64, w, h int, err error) {
	size := pred.MustSize()
	switch {
	case len(size) == 2:
	case len(size) == 3 && size[0] == 1:
		size = size[1:]
	default:
		err = fmt.Errorf("Expected class map of shape [H W] or [1 H W]. Got %v", size)
		return nil, 0, 0, err
	}

	return pred.Int64Values(), int(size[1]), int(size[0]), nil
}

// Overlay blends mask over img with the given opacity (0-255) and returns
// the composite at img's size.
func Overlay(img, mask image.Image, alpha uint8) *image.RGBA {
	rec := image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy())
	dst := image.NewRGBA(rec)
	draw.Draw(dst, rec, img, img.Bounds().Min, draw.Src)

	m := Resize(mask, rec.Dx(), rec.Dy())
	opacity := image.NewUniform(color.Alpha{alpha})
	draw.DrawMask(dst, rec, m, m.Bounds().Min, opacity, image.Point{}, draw.Over)

	return dst
}
