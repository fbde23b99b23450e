package btune

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/btune-go/btune/compress"
	"github.com/btune-go/btune/format"
	"github.com/btune-go/btune/pipeline"
)

// Classifier artifact file names inside the models directory.
const (
	metadataFileName = "metadata.json"
	modelFileName    = "model.json"
)

var errEmptyMetadata = errors.New("Empty metadata")

// prediction is the parameter tuple a classifier category maps to.
type prediction struct {
	Codec     format.CodecID
	Filter    format.Filter
	Clevel    int
	Splitmode format.SplitMode
}

type modelCategory struct {
	Codec     uint8 `json:"codec"`
	Filter    uint8 `json:"filter"`
	Clevel    int   `json:"clevel"`
	Splitmode int32 `json:"splitmode"`
}

type modelMetadata struct {
	Categories []modelCategory `json:"categories"`
	// ModelChecksum, when set, is the hex xxhash64 of the model file.
	ModelChecksum string `json:"model_checksum,omitempty"`
}

type modelLayer struct {
	// Weights is row-major [outputs][inputs].
	Weights [][]float64 `json:"weights"`
	Biases  []float64   `json:"biases"`
}

type modelFile struct {
	Means  []float64    `json:"means"`
	Stds   []float64    `json:"stds"`
	Layers []modelLayer `json:"layers"`
}

// inferenceModel is a per-dataset classifier: feature normalisation
// followed by dense layers with ReLU between them; the last layer's
// argmax selects a category.
type inferenceModel struct {
	meta modelMetadata
	net  modelFile
}

// initModel wires the inference front-end at Init time. Any failure here
// only disables inference; the tuner falls back to pure search.
func (t *Tuner) initModel() {
	t.inferenceCount = 0
	if t.config.ModelsDir == "" || t.config.UseInference == 0 {
		return
	}
	model, err := loadModel(t.config.ModelsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "INFO: btune inference disabled: %v\n", err)
		return
	}
	t.model = model
	t.histogram = make([]int, len(model.meta.Categories))
	t.inferenceCount = t.config.UseInference
}

func loadModel(dir string) (*inferenceModel, error) {
	metaBytes, err := os.ReadFile(filepath.Join(dir, metadataFileName))
	if err != nil {
		return nil, fmt.Errorf("cannot read model metadata: %w", err)
	}
	var meta modelMetadata
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, fmt.Errorf("cannot parse model metadata: %w", err)
	}
	if len(meta.Categories) == 0 {
		return nil, errEmptyMetadata
	}

	modelBytes, err := os.ReadFile(filepath.Join(dir, modelFileName))
	if err != nil {
		return nil, fmt.Errorf("cannot read model: %w", err)
	}
	if meta.ModelChecksum != "" {
		want, perr := strconv.ParseUint(meta.ModelChecksum, 16, 64)
		if perr != nil {
			return nil, fmt.Errorf("malformed model checksum %q: %w", meta.ModelChecksum, perr)
		}
		if got := xxhash.Sum64(modelBytes); got != want {
			return nil, fmt.Errorf("model checksum mismatch: %016x != %016x", got, want)
		}
	}

	var net modelFile
	if err := json.Unmarshal(modelBytes, &net); err != nil {
		return nil, fmt.Errorf("cannot parse model: %w", err)
	}
	model := &inferenceModel{meta: meta, net: net}
	if err := model.validate(); err != nil {
		return nil, err
	}

	return model, nil
}

func (m *inferenceModel) validate() error {
	if len(m.net.Means) != featureCount || len(m.net.Stds) != featureCount {
		return fmt.Errorf("model normalisation expects %d features", featureCount)
	}
	if len(m.net.Layers) == 0 {
		return errors.New("model has no layers")
	}
	inputs := featureCount
	for i, layer := range m.net.Layers {
		if len(layer.Weights) == 0 || len(layer.Weights) != len(layer.Biases) {
			return fmt.Errorf("layer %d has inconsistent shape", i)
		}
		for _, row := range layer.Weights {
			if len(row) != inputs {
				return fmt.Errorf("layer %d expects %d inputs, weights have %d", i, inputs, len(row))
			}
		}
		inputs = len(layer.Weights)
	}
	if inputs != len(m.meta.Categories) {
		return fmt.Errorf("model emits %d outputs for %d categories", inputs, len(m.meta.Categories))
	}

	return nil
}

// predict runs the classifier and returns the winning category index.
func (m *inferenceModel) predict(features []float64) int {
	x := make([]float64, featureCount)
	for i, f := range features {
		std := m.net.Stds[i]
		if std == 0 {
			std = 1
		}
		x[i] = (f - m.net.Means[i]) / std
	}

	for li, layer := range m.net.Layers {
		y := make([]float64, len(layer.Weights))
		for o, row := range layer.Weights {
			sum := layer.Biases[o]
			for i, w := range row {
				sum += w * x[i]
			}
			// ReLU on the hidden layers; the output layer stays linear
			// since only the argmax matters.
			if li < len(m.net.Layers)-1 {
				sum = math.Max(sum, 0)
			}
			y[o] = sum
		}
		x = y
	}

	best := 0
	for i, v := range x {
		if v > x[best] {
			best = i
		}
	}

	return best
}

// inferencePredict runs the model on the current chunk, updates the
// prediction histogram, and returns the predicted tuple. A nil return
// reverts this step to the search state machine.
func (t *Tuner) inferencePredict(cctx *pipeline.Context) *prediction {
	if t.model == nil {
		return nil
	}
	fv, err := t.computeFeatures(cctx)
	if err != nil {
		return nil
	}
	idx := t.model.predict(fv.slice())
	t.histogram[idx]++
	pred := t.categoryTuple(idx)
	if pred != nil {
		t.tracer.inference(idx, pred)
	}

	return pred
}

// mostPredicted returns the tuple of the category the model emitted most
// often, used to seed the search when inference ends. Returns nil when no
// predictions were made.
func (t *Tuner) mostPredicted() *prediction {
	if t.model == nil || len(t.histogram) == 0 {
		return nil
	}
	best, count := 0, 0
	for i, n := range t.histogram {
		if n > count {
			best, count = i, n
		}
	}
	if count == 0 {
		return nil
	}

	return t.categoryTuple(best)
}

// categoryTuple maps a category index onto a usable parameter tuple,
// dropping predictions for codecs missing from the registry.
func (t *Tuner) categoryTuple(idx int) *prediction {
	cat := t.model.meta.Categories[idx]
	codec := format.CodecID(cat.Codec)
	if !compress.Has(codec) {
		return nil
	}
	clevel := cat.Clevel
	if clevel < 1 {
		clevel = 1
	} else if clevel > 9 {
		clevel = 9
	}
	splitmode := format.SplitMode(cat.Splitmode)
	if splitmode != format.SplitAlways && splitmode != format.SplitNever {
		splitmode = format.SplitAuto
	}

	return &prediction{
		Codec:     codec,
		Filter:    format.Filter(cat.Filter),
		Clevel:    clevel,
		Splitmode: splitmode,
	}
}
