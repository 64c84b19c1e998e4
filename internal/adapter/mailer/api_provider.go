package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"brokerdesk/internal/domain"
)

// APIProvider delivers mail through an HTTP transactional-email API. It is
// the primary path and makes exactly one attempt per Send; the gateway falls
// through to SMTP on failure, so there is no local retry here.
type APIProvider struct {
	endpoint   string
	apiKey     string
	from       string
	httpClient *http.Client
}

type apiSendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

type apiSendResponse struct {
	ID string `json:"id"`
}

// NewAPIProvider creates a new APIProvider
func NewAPIProvider(endpoint, apiKey, from string) *APIProvider {
	return &APIProvider{
		endpoint: endpoint,
		apiKey:   apiKey,
		from:     from,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name identifies the provider in receipts and logs
func (p *APIProvider) Name() string {
	return "api"
}

// Send posts the message to the transactional-email API
func (p *APIProvider) Send(ctx context.Context, msg domain.Message) (string, error) {
	payload := apiSendRequest{
		From:    p.from,
		To:      msg.Recipients,
		Subject: msg.Subject,
		Text:    msg.Body,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach mail API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("mail API error (status %d): %s", resp.StatusCode, string(body))
	}

	var out apiSendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.ID == "" {
		// Delivery succeeded; the receipt just gets a local ID.
		return uuid.NewString(), nil
	}

	return out.ID, nil
}
