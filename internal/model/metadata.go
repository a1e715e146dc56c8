package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/Brownie44l1/alzdetect/internal/imaging"
)

// DefaultMetadata describes the Keras MRI model exported to ONNX.
func DefaultMetadata() Metadata {
	classes := make([]string, len(DefaultLabels))
	for i, l := range DefaultLabels {
		classes[i] = string(l)
	}
	return Metadata{
		InputShape:  append([]int64(nil), imaging.Shape...),
		OutputShape: []int64{1, int64(len(DefaultLabels))},
		Classes:     classes,
		ImageSize:   imaging.Size,
		InputName:   "input",
		OutputName:  "output",
	}
}

// LoadMetadata reads metadata from path, filling unset fields from
// DefaultMetadata. A missing file yields the defaults.
func LoadMetadata(path string) (Metadata, error) {
	meta := DefaultMetadata()
	if path == "" {
		return meta, meta.Validate()
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return meta, meta.Validate()
	}
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	var fromFile Metadata
	if err := json.Unmarshal(raw, &fromFile); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}

	if len(fromFile.InputShape) > 0 {
		meta.InputShape = fromFile.InputShape
	}
	if len(fromFile.OutputShape) > 0 {
		meta.OutputShape = fromFile.OutputShape
	}
	if len(fromFile.Classes) > 0 {
		meta.Classes = fromFile.Classes
	}
	if fromFile.ImageSize > 0 {
		meta.ImageSize = fromFile.ImageSize
	}
	if fromFile.InputName != "" {
		meta.InputName = fromFile.InputName
	}
	if fromFile.OutputName != "" {
		meta.OutputName = fromFile.OutputName
	}

	return meta, meta.Validate()
}

// Validate checks that the metadata matches the fixed preprocessing
// contract and that the output layer has one slot per class.
func (m Metadata) Validate() error {
	if len(m.Classes) == 0 {
		return fmt.Errorf("metadata lists no classes")
	}
	if m.ImageSize != imaging.Size {
		return fmt.Errorf("image_size %d, preprocessing produces %d", m.ImageSize, imaging.Size)
	}
	if !equalShape(m.InputShape, imaging.Shape) {
		return fmt.Errorf("input_shape %v, preprocessing produces %v", m.InputShape, imaging.Shape)
	}
	if len(m.OutputShape) == 0 {
		return fmt.Errorf("output_shape is empty")
	}
	if width := m.OutputShape[len(m.OutputShape)-1]; int(width) != len(m.Classes) {
		return fmt.Errorf("output layer has %d units but %d classes are listed", width, len(m.Classes))
	}
	return nil
}

func equalShape(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
