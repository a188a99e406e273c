package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// PredictRequest is the body of POST /predict on the inference backend
type PredictRequest struct {
	Inputs    string `json:"inputs"`
	Truncate  bool   `json:"truncate"`
	RawScores bool   `json:"raw_scores"`
}

// LabelScore is one class probability returned by the backend
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// ClassifierInfo describes the classification head of the served model
type ClassifierInfo struct {
	ID2Label map[string]string `json:"id2label"`
}

// ModelType tells which kind of model the backend serves
type ModelType struct {
	Classifier *ClassifierInfo `json:"classifier,omitempty"`
}

// InfoResponse is the body of GET /info on the inference backend
type InfoResponse struct {
	ModelID        string    `json:"model_id"`
	ModelSHA       string    `json:"model_sha,omitempty"`
	ModelDType     string    `json:"model_dtype,omitempty"`
	ModelType      ModelType `json:"model_type"`
	MaxInputLength int       `json:"max_input_length,omitempty"`
	Version        string    `json:"version,omitempty"`
}

// ErrorResponse is the error body returned by the backend
type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
}

// InferenceClient is an HTTP client for a text-classification backend
// speaking the text-embeddings-inference protocol.
type InferenceClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewInferenceClient creates a new backend client
func NewInferenceClient(baseURL string, timeout time.Duration) *InferenceClient {
	return &InferenceClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Predict classifies a single text and returns the probability of every class
func (c *InferenceClient) Predict(ctx context.Context, text string) ([]LabelScore, error) {
	body, err := json.Marshal(PredictRequest{Inputs: text, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var result []LabelScore
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result, nil
}

// Info fetches metadata of the served model
func (c *InferenceClient) Info(ctx context.Context) (*InfoResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/info", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var result InfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// Health returns nil once the backend has loaded its model
func (c *InferenceClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference backend not ready: status %d", resp.StatusCode)
	}

	return nil
}

func statusError(resp *http.Response) error {
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("inference backend returned status %d", resp.StatusCode)
	}

	var e ErrorResponse
	if json.Unmarshal(respBody, &e) == nil && e.Error != "" {
		return fmt.Errorf("inference backend returned status %d: %s", resp.StatusCode, e.Error)
	}
	return fmt.Errorf("inference backend returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
}
