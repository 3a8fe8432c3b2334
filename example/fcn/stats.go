package main

import (
	"fmt"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/sugarme/fcn/imgutil"
)

// runStats plots the class frequencies of an existing mask.
func runStats() error {
	if MaskPath == "" {
		return fmt.Errorf("'stats' task needs a -mask file")
	}
	palette, err := loadPalette()
	if err != nil {
		return err
	}

	img, err := imgutil.ReadImage(MaskPath)
	if err != nil {
		return err
	}
	classes, err := imgutil.ClassIndices(img)
	if err != nil {
		return err
	}

	dir, err := runDir()
	if err != nil {
		return err
	}
	out := filepath.Join(dir, "classes.png")
	if err := plotClassHistogram(classes, palette, out); err != nil {
		return err
	}
	fmt.Printf("Class histogram saved to %v\n", out)

	return nil
}

// plotClassHistogram saves a bar chart of the pixel share of every class.
func plotClassHistogram(classes []int64, palette *imgutil.Palette, file string) error {
	n := palette.Len()
	counts := make(plotter.Values, n)
	for _, c := range classes {
		if c >= 0 && int(c) < n {
			counts[c]++
		}
	}
	total := float64(len(classes))
	if total == 0 {
		return fmt.Errorf("Empty class map")
	}
	for i := range counts {
		counts[i] = counts[i] / total * 100
	}

	p, err := plot.New()
	if err != nil {
		return err
	}
	p.Title.Text = "Class distribution"
	p.Y.Label.Text = "pixels (%)"

	bars, err := plotter.NewBarChart(counts, vg.Points(8))
	if err != nil {
		return err
	}
	p.Add(bars)
	p.NominalX(palette.Names...)

	width := vg.Length(n) * 0.4 * vg.Inch
	if width < 4*vg.Inch {
		width = 4 * vg.Inch
	}

	return p.Save(width, 4*vg.Inch, file)
}
