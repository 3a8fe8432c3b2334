package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/fcn/fcn"
)

// newModel creates the FCN and loads weights if a weight file is given.
func newModel() (*nn.VarStore, *fcn.FCN, error) {
	cfg, err := modelConfig()
	if err != nil {
		return nil, nil, err
	}

	vs := nn.NewVarStore(Device)
	net, err := fcn.NewFCN(vs.Root(), cfg)
	if err != nil {
		return nil, nil, err
	}

	if ModelPath != "" {
		if err := loadWeights(vs, ModelPath, ModelFrom); err != nil {
			return nil, nil, err
		}
	}

	return vs, net, nil
}

// loadWeights loads a full checkpoint, or only the matching variables of a
// pretrained backbone (e.g. torchvision VGG16).
func loadWeights(vs *nn.VarStore, fpath string, from string) error {
	modelPath, err := filepath.Abs(fpath)
	if err != nil {
		return err
	}

	switch from {
	case "checkpoint":
		return vs.Load(modelPath)
	case "pretrained":
		missings, err := vs.LoadPartial(modelPath)
		if err != nil {
			return err
		}
		fmt.Printf("Num of missings: %v\n", len(missings))
		for _, m := range missings {
			fmt.Printf("Missing Var: %v\n", m)
		}
		return nil
	default:
		return fmt.Errorf("Invalid load option. Expected 'checkpoint' or 'pretrained'. Got: %v", from)
	}
}

func runCheckModel() error {
	vs, net, err := newModel()
	if err != nil {
		return err
	}
	printVars(vs)

	size := int64(ImageSize)
	if size == 0 {
		size = 224
	}
	image := ts.MustRand([]int64{1, 3, size, size}, gotch.Float, Device)
	defer image.MustDrop()

	var logits *ts.Tensor
	ts.NoGrad(func() {
		logits, err = net.Forward(image, false)
	})
	if err != nil {
		return err
	}
	fmt.Printf("input: %v\tlogits: %v\n", image.MustSize(), logits.MustSize())
	logits.MustDrop()

	return nil
}

// printVars print variables sorted by name
func printVars(vs *nn.VarStore) {
	vars := vs.Variables()
	names := make([]string, 0, len(vars))
	for n := range vars {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		x := vars[n]
		fmt.Printf("%v \t\t %v\n", n, x.MustSize())
	}
}
