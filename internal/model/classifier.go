package model

import (
	"fmt"

	"github.com/Brownie44l1/alzdetect/internal/apperr"
	"github.com/Brownie44l1/alzdetect/internal/imaging"
)

// Reasons attached to inference errors.
const (
	ReasonMalformedTensor  = "MalformedTensor"
	ReasonExecutionFailed  = "ExecutionFailed"
	ReasonUnexpectedOutput = "UnexpectedOutput"
)

func inferenceError(reason string, cause error, message string) *apperr.Error {
	return &apperr.Error{Kind: apperr.KindInference, Reason: reason, Message: message, Cause: cause}
}

// Classifier owns the single loaded model and maps normalized images to
// class labels. It is safe to share across requests; the model is never
// modified after load.
type Classifier struct {
	runner   Runner
	Metadata Metadata
	labels   []ClassLabel
}

// NewClassifier wraps an already loaded runner. meta must have passed Validate.
func NewClassifier(runner Runner, meta Metadata) (*Classifier, error) {
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model metadata: %w", err)
	}
	return &Classifier{
		runner:   runner,
		Metadata: meta,
		labels:   meta.Labels(),
	}, nil
}

// Load reads metadata, loads the ONNX model and returns a ready classifier.
func Load(modelPath, metadataPath, libraryPath string) (*Classifier, error) {
	meta, err := LoadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}
	runner, err := NewONNXRunner(modelPath, libraryPath, meta)
	if err != nil {
		return nil, err
	}
	c, err := NewClassifier(runner, meta)
	if err != nil {
		runner.Close()
		return nil, err
	}
	return c, nil
}

// Labels returns the class labels in output order.
func (c *Classifier) Labels() []ClassLabel {
	return append([]ClassLabel(nil), c.labels...)
}

// Classify runs the model on img and returns the most probable class. Every
// failure is an inference error; nothing is retried.
func (c *Classifier) Classify(img *imaging.NormalizedImage) (*Prediction, error) {
	if err := img.Validate(); err != nil {
		return nil, inferenceError(ReasonMalformedTensor, err, "malformed input tensor")
	}
	return c.Predict(img.Data)
}

// Predict runs the model on a raw NHWC tensor.
func (c *Classifier) Predict(input []float32) (*Prediction, error) {
	if want := imaging.Size * imaging.Size * imaging.Channels; len(input) != want {
		return nil, inferenceError(ReasonMalformedTensor,
			fmt.Errorf("expected %d values, got %d", want, len(input)), "malformed input tensor")
	}

	output, err := c.runner.Run(input)
	if err != nil {
		return nil, inferenceError(ReasonExecutionFailed, err, "model execution failed")
	}
	if len(output) != len(c.labels) {
		return nil, inferenceError(ReasonUnexpectedOutput,
			fmt.Errorf("model returned %d scores for %d classes", len(output), len(c.labels)), "unexpected output shape")
	}

	idx := Argmax(output)
	probabilities := make(map[ClassLabel]float32, len(c.labels))
	for i, label := range c.labels {
		probabilities[label] = output[i]
	}

	return &Prediction{
		Label:         c.labels[idx],
		Index:         idx,
		Confidence:    output[idx],
		Probabilities: probabilities,
	}, nil
}

// Ready reports whether a model is loaded and has classes to predict.
func (c *Classifier) Ready() bool {
	return c != nil && c.runner != nil && len(c.labels) > 0
}

func (c *Classifier) Close() {
	if c.runner != nil {
		c.runner.Close()
	}
}

// Argmax returns the index of the largest score. Ties resolve to the lowest
// index.
func Argmax(scores []float32) int {
	maxIdx := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[maxIdx] {
			maxIdx = i
		}
	}
	return maxIdx
}
