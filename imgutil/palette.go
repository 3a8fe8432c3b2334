package imgutil

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/go-gota/gota/dataframe"
)

// VOCClasses are the PASCAL VOC segmentation classes, background first.
var VOCClasses = []string{
	"background", "aeroplane", "bicycle", "bird", "boat", "bottle", "bus",
	"car", "cat", "chair", "cow", "diningtable", "dog", "horse", "motorbike",
	"person", "pottedplant", "sheep", "sofa", "train", "tvmonitor",
}

// Palette maps class indices to names and display colours.
type Palette struct {
	Names  []string
	Colors color.Palette
}

// Len returns the number of classes in the palette.
func (p *Palette) Len() int {
	return len(p.Colors)
}

// VOCPalette returns the PASCAL VOC colour map for n classes. Names come
// from VOCClasses where available.
func VOCPalette(n int) *Palette {
	p := &Palette{
		Names:  make([]string, n),
		Colors: make(color.Palette, n),
	}
	for i := 0; i < n; i++ {
		var r, g, b uint8
		c := i
		for j := 0; j < 8; j++ {
			r |= uint8((c>>0)&1) << (7 - j)
			g |= uint8((c>>1)&1) << (7 - j)
			b |= uint8((c>>2)&1) << (7 - j)
			c >>= 3
		}
		p.Colors[i] = color.RGBA{r, g, b, 255}
		if i < len(VOCClasses) {
			p.Names[i] = VOCClasses[i]
		} else {
			p.Names[i] = fmt.Sprintf("class%d", i)
		}
	}

	return p
}

// ReadPalette reads a CSV with header `name,r,g,b`; row i describes class i.
func ReadPalette(r io.Reader) (*Palette, error) {
	df := dataframe.ReadCSV(r, dataframe.HasHeader(true))
	if df.Err != nil {
		return nil, df.Err
	}

	have := make(map[string]bool)
	for _, n := range df.Names() {
		have[n] = true
	}
	for _, col := range []string{"name", "r", "g", "b"} {
		if !have[col] {
			err := fmt.Errorf("Palette CSV is missing column %q", col)
			return nil, err
		}
	}

	names := df.Col("name").Records()
	var channels [3][]int
	for i, col := range []string{"r", "g", "b"} {
		vals, err := df.Col(col).Int()
		if err != nil {
			return nil, fmt.Errorf("Palette column %q: %w", col, err)
		}
		for _, v := range vals {
			if v < 0 || v > 255 {
				err := fmt.Errorf("Palette column %q: value %v out of [0, 255]", col, v)
				return nil, err
			}
		}
		channels[i] = vals
	}

	p := &Palette{
		Names:  names,
		Colors: make(color.Palette, len(names)),
	}
	for i := range names {
		p.Colors[i] = color.RGBA{uint8(channels[0][i]), uint8(channels[1][i]), uint8(channels[2][i]), 255}
	}

	return p, nil
}

// MaskImage renders a row-major class map of size w x h with the palette.
// Classes beyond the palette are drawn with colour 0.
func MaskImage(classes []int64, w, h int, p *Palette) (*image.Paletted, error) {
	if len(classes) != w*h {
		err := fmt.Errorf("Class map has %v values, expected %v x %v", len(classes), w, h)
		return nil, err
	}
	if p.Len() == 0 || p.Len() > 256 {
		err := fmt.Errorf("Palette must hold 1 to 256 colours, got %v", p.Len())
		return nil, err
	}

	img := image.NewPaletted(image.Rect(0, 0, w, h), p.Colors)
	n := int64(p.Len())
	for i, c := range classes {
		if c < 0 || c >= n {
			c = 0
		}
		img.Pix[i] = uint8(c)
	}

	return img, nil
}

// ClassIndices returns the row-major palette indices of a paletted mask.
func ClassIndices(img image.Image) ([]int64, error) {
	pm, ok := img.(*image.Paletted)
	if !ok {
		err := fmt.Errorf("Expected a paletted mask image. Got %T", img)
		return nil, err
	}

	b := pm.Bounds()
	classes := make([]int64, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			classes = append(classes, int64(pm.ColorIndexAt(x, y)))
		}
	}

	return classes, nil
}
