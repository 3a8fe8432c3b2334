package metric

import (
	"fmt"
	"math"
	"reflect"

	ts "github.com/sugarme/gotch/tensor"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultIgnoreLabel marks "void" pixels such as object borders in PASCAL
// VOC masks.
const DefaultIgnoreLabel int64 = 255

// Confusion is a classes x classes confusion matrix of pixel counts.
// Rows are ground-truth classes, columns predicted classes.
type Confusion struct {
	classes int
	ignore  int64
	ignored int64
	counts  *mat.Dense
}

// NewConfusion creates an empty confusion matrix. classes must be positive.
// Target pixels labelled DefaultIgnoreLabel are skipped.
func NewConfusion(classes int) *Confusion {
	return &Confusion{
		classes: classes,
		ignore:  DefaultIgnoreLabel,
		counts:  mat.NewDense(classes, classes, nil),
	}
}

// SetIgnoreLabel changes the target label whose pixels are skipped.
func (c *Confusion) SetIgnoreLabel(label int64) {
	c.ignore = label
}

// IgnoreLabel returns the skipped target label.
func (c *Confusion) IgnoreLabel() int64 {
	return c.ignore
}

// Ignored returns the number of skipped target pixels.
func (c *Confusion) Ignored() int64 {
	return c.ignored
}

// Classes returns the number of classes.
func (c *Confusion) Classes() int {
	return c.classes
}

// At returns the count of pixels of class `target` predicted as `pred`.
func (c *Confusion) At(target, pred int) int64 {
	return int64(c.counts.At(target, pred))
}

// Add accumulates pixel-wise class indices. Both slices must have the same
// length and hold values in [0, classes), except for target pixels equal to
// the ignore label, which are skipped whatever their prediction.
func (c *Confusion) Add(pred, target []int64) error {
	if len(pred) != len(target) {
		err := fmt.Errorf("Prediction and target differ in length: %v vs %v", len(pred), len(target))
		return err
	}

	n := int64(c.classes)
	for i := range pred {
		p, t := pred[i], target[i]
		if t == c.ignore {
			continue
		}
		if p < 0 || p >= n || t < 0 || t >= n {
			err := fmt.Errorf("Class index out of range [0, %v): pred=%v target=%v", n, p, t)
			return err
		}
	}
	for i := range pred {
		if target[i] == c.ignore {
			c.ignored++
			continue
		}
		t, p := int(target[i]), int(pred[i])
		c.counts.Set(t, p, c.counts.At(t, p)+1)
	}

	return nil
}

// AddTensors accumulates class-index tensors of identical shape, e.g. the
// [B H W] output of an argmax and its ground-truth mask.
func (c *Confusion) AddTensors(pred, target *ts.Tensor) error {
	pSize := pred.MustSize()
	tSize := target.MustSize()
	if !reflect.DeepEqual(pSize, tSize) {
		err := fmt.Errorf("Prediction shape %v does not match target shape %v", pSize, tSize)
		return err
	}

	return c.Add(pred.Int64Values(), target.Int64Values())
}

// Total returns the number of accumulated pixels.
func (c *Confusion) Total() int64 {
	return int64(mat.Sum(c.counts))
}

// PixelAccuracy returns the ratio of correctly classified pixels.
func (c *Confusion) PixelAccuracy() float64 {
	total := c.Total()
	if total == 0 {
		return math.NaN()
	}

	return mat.Trace(c.counts) / float64(total)
}

// stats returns true positives, false positives and false negatives of class k.
func (c *Confusion) stats(k int) (tp, fp, fn int64) {
	tp = c.At(k, k)
	predicted := int64(floats.Sum(mat.Col(nil, k, c.counts)))
	actual := int64(floats.Sum(mat.Row(nil, k, c.counts)))
	return tp, predicted - tp, actual - tp
}

// IoU returns the per-class intersection over union. Classes absent from
// both prediction and target are NaN.
func (c *Confusion) IoU() []float64 {
	ious := make([]float64, c.classes)
	for k := range ious {
		tp, fp, fn := c.stats(k)
		union := tp + fp + fn
		if union == 0 {
			ious[k] = math.NaN()
			continue
		}
		ious[k] = float64(tp) / float64(union)
	}

	return ious
}

// MeanIoU averages IoU over the classes that appear.
func (c *Confusion) MeanIoU() float64 {
	return nanMean(c.IoU())
}

// Dice returns the per-class Dice coefficient 2TP / (2TP + FP + FN).
// Classes absent from both prediction and target are NaN.
func (c *Confusion) Dice() []float64 {
	dices := make([]float64, c.classes)
	for k := range dices {
		tp, fp, fn := c.stats(k)
		denom := 2*tp + fp + fn
		if denom == 0 {
			dices[k] = math.NaN()
			continue
		}
		dices[k] = float64(2*tp) / float64(denom)
	}

	return dices
}

func nanMean(vals []float64) float64 {
	var (
		sum float64
		n   int
	)
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}

	return sum / float64(n)
}
