package main

import (
	"fmt"
	"image"
	"log"
	"path/filepath"
	"time"

	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/fcn/imgutil"
	"github.com/sugarme/fcn/metric"
)

func runPredict() error {
	start := time.Now()

	_, net, err := newModel()
	if err != nil {
		return err
	}
	palette, err := loadPalette()
	if err != nil {
		return err
	}

	img, err := imgutil.ReadImage(ImagePath)
	if err != nil {
		return err
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()

	var x *ts.Tensor
	if ImageSize > 0 {
		x = imgutil.ToTensor(imgutil.Resize(img, ImageSize, ImageSize))
	} else {
		x, err = imgutil.LoadTensor(ImagePath)
		if err != nil {
			return err
		}
	}
	x = x.MustTo(Device, true)
	pred, err := net.Predict(x)
	x.MustDrop()
	if err != nil {
		return err
	}
	classes, pw, ph, err := imgutil.ClassMap(pred)
	pred.MustDrop()
	if err != nil {
		return err
	}

	mask, err := imgutil.MaskImage(classes, pw, ph, palette)
	if err != nil {
		return err
	}

	dir, err := runDir()
	if err != nil {
		return err
	}

	var out image.Image = mask
	if pw != w || ph != h {
		// nearest keeps class colours intact
		out = imgutil.ResizeNearest(mask, w, h)
	}
	if err := imgutil.Save(out, filepath.Join(dir, "mask.png")); err != nil {
		return err
	}
	overlay := imgutil.Overlay(img, out, uint8(Alpha))
	if err := imgutil.Save(overlay, filepath.Join(dir, "overlay.png")); err != nil {
		return err
	}
	if err := plotClassHistogram(classes, palette, filepath.Join(dir, "classes.png")); err != nil {
		return err
	}

	if MaskPath != "" {
		if err := evaluate(classes, pw, ph); err != nil {
			return err
		}
	}

	log.Printf("Prediction saved to %v. Taken time: %0.2fs\n", dir, time.Since(start).Seconds())
	return nil
}

// evaluate compares the prediction with a paletted ground-truth mask.
func evaluate(pred []int64, w, h int) error {
	gt, err := readClassMask(MaskPath, w, h)
	if err != nil {
		return err
	}

	c := metric.NewConfusion(int(Classes))
	c.SetIgnoreLabel(Ignore)
	if err := c.Add(pred, gt); err != nil {
		return err
	}

	fmt.Printf("pixel accuracy: %6.4f\t mean IoU: %6.4f\t ignored pixels: %v\n", c.PixelAccuracy(), c.MeanIoU(), c.Ignored())
	for k, iou := range c.IoU() {
		fmt.Printf("class %02d\t IoU: %6.4f\n", k, iou)
	}

	return nil
}

// readClassMask reads a paletted mask, resized to w x h, as class indices.
func readClassMask(path string, w, h int) ([]int64, error) {
	img, err := imgutil.ReadImage(path)
	if err != nil {
		return nil, err
	}
	if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
		img = imgutil.ResizeNearest(img, w, h)
	}

	return imgutil.ClassIndices(img)
}
