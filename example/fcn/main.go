package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sugarme/gotch"

	"github.com/sugarme/fcn/fcn"
	"github.com/sugarme/fcn/imgutil"
	"github.com/sugarme/fcn/metric"
)

// flag variables
var (
	ImagePath   string
	MaskPath    string
	ModelPath   string
	ModelFrom   string
	PalettePath string
	OutPath     string
	Backbone    string
	Cuda        bool
	task        string
	Device      gotch.Device
)

// hyperparameters
var (
	Classes   int64   // number of segmentation classes
	Ignore    int64   // ground-truth label excluded from evaluation
	ScalesStr string  // comma separated decoder scales
	ImageSize int     // resize input to ImageSize x ImageSize; 0 keeps original size
	Alpha     int     // overlay opacity (0-255)
	FCDim     int64   // fc6/fc7 channels
	Dropout   float64 // fc6/fc7 dropout
)

func init() {
	flag.StringVar(&ImagePath, "image", "./input/image.png", "specify input image file")
	flag.StringVar(&MaskPath, "mask", "", "specify optional ground-truth mask (paletted PNG) to evaluate against")
	flag.StringVar(&ModelPath, "model", "", "specify full path to model weight '.ot' file.")
	flag.StringVar(&ModelFrom, "from", "checkpoint", "specify how to load weights: 'checkpoint' or 'pretrained'")
	flag.StringVar(&PalettePath, "palette", "", "specify class palette CSV (name,r,g,b). Default: PASCAL VOC colours")
	flag.StringVar(&OutPath, "out", "./output", "specify output directory")
	flag.StringVar(&Backbone, "backbone", string(fcn.VGG16), "specify encoder backbone: vgg16 or vgg19")
	flag.BoolVar(&Cuda, "cuda", false, "specify whether using CUDA or not.")
	flag.StringVar(&task, "task", "predict", "specify task to run: model, predict or stats")
	flag.Int64Var(&Classes, "classes", 21, "specify number of classes")
	flag.Int64Var(&Ignore, "ignore", metric.DefaultIgnoreLabel, "specify ground-truth label skipped during evaluation")
	flag.StringVar(&ScalesStr, "scales", "1,0.01,0.0001", "specify decoder scales for fc7, pool4 and pool3")
	flag.IntVar(&ImageSize, "size", 0, "specify square input size")
	flag.IntVar(&Alpha, "alpha", 128, "specify mask overlay opacity")
	flag.Int64Var(&FCDim, "fc", 4096, "specify fc6/fc7 channels")
	flag.Float64Var(&Dropout, "dropout", 0.5, "specify fc6/fc7 dropout")
}

func main() {
	flag.Parse()

	Device = gotch.CPU
	if Cuda {
		Device = gotch.NewCuda().CudaIfAvailable()
	}

	var err error
	switch task {
	case "model":
		err = runCheckModel()
	case "predict":
		err = runPredict()
	case "stats":
		err = runStats()
	default:
		err = fmt.Errorf("Unknown 'task' name %q. Please specify valid 'task' flag to run.", task)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// modelConfig builds fcn.Config from flags.
func modelConfig() (*fcn.Config, error) {
	scales, err := parseScales(ScalesStr)
	if err != nil {
		return nil, err
	}

	cfg := fcn.DefaultConfig()
	cfg.Backbone = fcn.Backbone(Backbone)
	cfg.Classes = Classes
	cfg.Scales = scales
	cfg.Encoder.FCDim = FCDim
	cfg.Encoder.Dropout = Dropout

	return cfg, nil
}

func parseScales(s string) ([]float64, error) {
	var scales []float64
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("Invalid scale %q: %w", f, err)
		}
		scales = append(scales, v)
	}

	return scales, nil
}

func loadPalette() (*imgutil.Palette, error) {
	if PalettePath == "" {
		return imgutil.VOCPalette(int(Classes)), nil
	}

	f, err := os.Open(PalettePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return imgutil.ReadPalette(f)
}

// runDir creates a fresh output directory for this run.
func runDir() (string, error) {
	dir := filepath.Join(OutPath, uuid.New().String())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	return dir, nil
}
