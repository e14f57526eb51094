// Package whatsapp implements the messaging gateway client. Every dealership
// workshop authenticates with its own credential; the gateway base URL is
// shared deployment-wide.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"workshop_portal_backend/platform/apperr"
	"workshop_portal_backend/platform/config"
	"workshop_portal_backend/platform/logger"

	"golang.org/x/time/rate"
)

// Credentials is the per-workshop gateway credential pair.
type Credentials struct {
	APIKey   string
	DeviceID string
}

type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	log     *logger.Logger
}

type sendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type sendResponse struct {
	Results struct {
		MessageID string `json:"message_id"`
	} `json:"results"`
}

func NewClient(cfg config.GatewayConfig, log *logger.Logger) *Client {
	if cfg.GetGatewayURL() == "" {
		return nil
	}

	timeout := cfg.GetGatewayTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	sendsPerSecond := cfg.GetGatewaySendsPerSecond()
	if sendsPerSecond <= 0 {
		sendsPerSecond = 5
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.GetGatewayURL(), "/"),
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(sendsPerSecond), 1),
		log:     log,
	}
}

// SendMessage delivers a message to a gateway-form phone number and returns
// the gateway's message id when it reports one.
func (c *Client) SendMessage(ctx context.Context, creds Credentials, phoneNumber, message string) (string, error) {
	if c == nil {
		return "", apperr.Gateway("messaging gateway not configured")
	}
	if creds.APIKey == "" {
		return "", apperr.Gateway("missing gateway credential")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("gateway send limiter: %w", err)
	}

	payload := sendRequest{
		Phone:   phoneNumber,
		Message: message,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	url := fmt.Sprintf("%s/send/message", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", formatAuthHeader(creds.APIKey))
	if creds.DeviceID != "" {
		req.Header.Set("X-Device-Id", creds.DeviceID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.KindGateway, "whatsapp request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		return "", apperr.Gateway(fmt.Sprintf("whatsapp gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	var parsed sendResponse
	_ = json.Unmarshal(data, &parsed)

	c.log.Info("whatsapp sent", "phone", phoneNumber, "message_id", parsed.Results.MessageID)
	return parsed.Results.MessageID, nil
}

func formatAuthHeader(apiKey string) string {
	if strings.HasPrefix(strings.ToLower(apiKey), "basic ") {
		return apiKey
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(apiKey))
	return "Basic " + encoded
}
