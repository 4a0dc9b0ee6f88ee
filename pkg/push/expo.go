package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Compile-time check to ensure ExpoClient implements BridgeSender
var _ BridgeSender = (*ExpoClient)(nil)

// ExpoClient delivers push batches through the Expo push API. The API
// accepts a JSON array of messages and answers with an overall HTTP status;
// it offers no per-token delivery granularity.
type ExpoClient struct {
	BaseURL     string
	AccessToken string
	httpClient  *http.Client
}

// NewExpoClient creates a new ExpoClient
func NewExpoClient(baseURL, accessToken string) *ExpoClient {
	return &ExpoClient{
		BaseURL:     baseURL,
		AccessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SendBatch posts the message batch to the Expo push endpoint
func (c *ExpoClient) SendBatch(ctx context.Context, messages []BridgeMessage) error {
	if len(messages) == 0 {
		return nil
	}

	jsonBody, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.AccessToken != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.AccessToken))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
