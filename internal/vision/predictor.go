package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Tensor is a dense float32 array in row-major order.
type Tensor struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"image"`
}

// Predictor runs a model on a prepared input tensor and returns its raw
// outputs.
type Predictor interface {
	Predict(ctx context.Context, input Tensor) ([]float32, error)
}

// PredictorFunc adapts a function to the Predictor interface.
type PredictorFunc func(ctx context.Context, input Tensor) ([]float32, error)

// Predict calls f.
func (f PredictorFunc) Predict(ctx context.Context, input Tensor) ([]float32, error) {
	return f(ctx, input)
}

type predictResponse struct {
	Outputs []float32 `json:"outputs"`
}

// maxResponseBytes bounds how much of a model server reply is read.
const maxResponseBytes = 4 << 20

// HTTPPredictor posts tensors to a model-serving endpoint.
type HTTPPredictor struct {
	endpoint string
	client   *http.Client
}

// NewHTTPPredictor creates a predictor for endpoint. A nil client means
// http.DefaultClient.
func NewHTTPPredictor(endpoint string, client *http.Client) *HTTPPredictor {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPPredictor{endpoint: endpoint, client: client}
}

// Predict sends the tensor as JSON and decodes the "outputs" array.
// Failures are returned as-is; there is no retry.
func (p *HTTPPredictor) Predict(ctx context.Context, input Tensor) ([]float32, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode prediction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build prediction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call model server: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read model server response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model server returned %d: %s", resp.StatusCode, bytes.TrimSpace(payload))
	}

	var out predictResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("failed to decode model server response: %w", err)
	}
	if len(out.Outputs) == 0 {
		return nil, fmt.Errorf("model server returned no outputs")
	}

	return out.Outputs, nil
}
