package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"net/http"
)

// ErrPrediction wraps every failure of the model call itself.
var ErrPrediction = errors.New("failed to predict class or calories")

// Prediction is the combined result of classifying a photo and estimating
// its calories.
type Prediction struct {
	PredictedClass    string  `json:"predicted_class"`
	Probability       float64 `json:"probability"`
	EstimatedCalories float64 `json:"estimated_calories"`
}

// Gateway pairs a food classifier with a calorie regressor.
type Gateway struct {
	classifier *Model
	regressor  *Model
}

// NewGateway checks the two models' kinds and returns a gateway over them.
func NewGateway(classifier, regressor *Model) (*Gateway, error) {
	if classifier == nil || classifier.Manifest.Kind != KindClassification {
		return nil, fmt.Errorf("classifier must be a %s model", KindClassification)
	}
	if len(classifier.Manifest.Classes) == 0 {
		return nil, fmt.Errorf("classifier %s has no classes", classifier.Manifest.Name)
	}
	if regressor == nil || regressor.Manifest.Kind != KindRegression {
		return nil, fmt.Errorf("regressor must be a %s model", KindRegression)
	}
	return &Gateway{classifier: classifier, regressor: regressor}, nil
}

// LoadGateway loads the classifier and regressor manifests and binds both
// to HTTP predictors sharing client.
func LoadGateway(classifierPath, regressorPath string, client *http.Client) (*Gateway, error) {
	classifier, err := LoadModel(classifierPath, KindClassification, client)
	if err != nil {
		return nil, fmt.Errorf("failed to load classifier: %w", err)
	}
	regressor, err := LoadModel(regressorPath, KindRegression, client)
	if err != nil {
		return nil, fmt.Errorf("failed to load regressor: %w", err)
	}
	return NewGateway(classifier, regressor)
}

// Classes returns the labels the classifier can predict.
func (g *Gateway) Classes() []string {
	return g.classifier.Manifest.Classes
}

// Classify returns the most probable label and its probability in [0, 1].
func (g *Gateway) Classify(ctx context.Context, img image.Image) (string, float64, error) {
	m := g.classifier.Manifest
	outputs, err := g.classifier.predictor.Predict(ctx, ToTensor(img, m.ImageSize))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrPrediction, err)
	}
	if len(outputs) != len(m.Classes) {
		return "", 0, fmt.Errorf("%w: classifier returned %d outputs for %d classes", ErrPrediction, len(outputs), len(m.Classes))
	}

	best := -1
	for i, p := range outputs {
		if math.IsNaN(float64(p)) {
			continue
		}
		if best < 0 || p > outputs[best] {
			best = i
		}
	}
	if best < 0 {
		return "", 0, fmt.Errorf("%w: classifier returned no finite scores", ErrPrediction)
	}

	confidence := math.Min(math.Max(float64(outputs[best]), 0), 1)
	return m.Classes[best], confidence, nil
}

// EstimateCalories returns the regressor's calorie estimate. Negative
// estimates are clamped to zero.
func (g *Gateway) EstimateCalories(ctx context.Context, img image.Image) (float64, error) {
	outputs, err := g.regressor.predictor.Predict(ctx, ToTensor(img, g.regressor.Manifest.ImageSize))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPrediction, err)
	}
	if len(outputs) == 0 {
		return 0, fmt.Errorf("%w: regressor returned no outputs", ErrPrediction)
	}

	kcal := float64(outputs[0])
	if math.IsNaN(kcal) || math.IsInf(kcal, 0) {
		return 0, fmt.Errorf("%w: regressor returned %v", ErrPrediction, kcal)
	}
	return math.Max(kcal, 0), nil
}

// Analyze decodes a photo and runs both models on it.
// Undecodable input yields ErrInvalidImage; model failures yield ErrPrediction.
func (g *Gateway) Analyze(ctx context.Context, data []byte) (*Prediction, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}

	label, confidence, err := g.Classify(ctx, img)
	if err != nil {
		return nil, err
	}

	kcal, err := g.EstimateCalories(ctx, img)
	if err != nil {
		return nil, err
	}

	return &Prediction{
		PredictedClass:    label,
		Probability:       confidence,
		EstimatedCalories: kcal,
	}, nil
}
