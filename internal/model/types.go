package model

// ClassLabel is one of the diagnostic categories the classifier can output.
type ClassLabel string

const (
	MildDemented     ClassLabel = "Mild Demented"
	ModerateDemented ClassLabel = "Moderate Demented"
	NonDemented      ClassLabel = "Non Demented"
	VeryMildDemented ClassLabel = "Very Mild Demented"
)

// DefaultLabels lists the classes in the order of the model's output layer.
// The order is part of the model and must not be changed on its own.
var DefaultLabels = []ClassLabel{MildDemented, ModerateDemented, NonDemented, VeryMildDemented}

// Metadata describes the tensors and classes of a model artifact.
type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
	InputName   string   `json:"input_name"`
	OutputName  string   `json:"output_name"`
}

// Labels returns the classes as ClassLabels, in output order.
func (m Metadata) Labels() []ClassLabel {
	labels := make([]ClassLabel, len(m.Classes))
	for i, c := range m.Classes {
		labels[i] = ClassLabel(c)
	}
	return labels
}

// PredictionRequest carries an already normalized NHWC tensor.
type PredictionRequest struct {
	Image []float32 `json:"image"`
}

// Prediction is the outcome of one forward pass.
type Prediction struct {
	Label         ClassLabel             `json:"class"`
	Index         int                    `json:"index"`
	Confidence    float32                `json:"confidence"`
	Probabilities map[ClassLabel]float32 `json:"predictions"`
}
