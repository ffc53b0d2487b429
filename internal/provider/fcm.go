package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/models"
)

const defaultFCMEndpoint = "https://fcm.googleapis.com/fcm/send"

// FCMOpts holds configuration options for the FCM adapter.
type FCMOpts struct {
	ServerKey string
	Endpoint  string
	Client    *http.Client
}

// FCMOption defines a configuration option for the FCM adapter.
type FCMOption func(*FCMOpts)

func WithFCMServerKey(key string) FCMOption {
	return func(o *FCMOpts) { o.ServerKey = key }
}

func WithFCMEndpoint(url string) FCMOption {
	return func(o *FCMOpts) { o.Endpoint = url }
}

func WithFCMHTTPClient(c *http.Client) FCMOption {
	return func(o *FCMOpts) { o.Client = c }
}

// FCMAdapter delivers push notifications through the Firebase Cloud
// Messaging HTTP API.
type FCMAdapter struct {
	serverKey string
	endpoint  string
	client    *http.Client
}

var _ Adapter = (*FCMAdapter)(nil)

// NewFCMAdapter builds the adapter. Falls back to the FCM_SERVER_KEY
// environment variable when no key option is given; errors when no key is
// available at all, so callers register the adapter only when configured.
func NewFCMAdapter(opts ...FCMOption) (*FCMAdapter, error) {
	var cfg FCMOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.ServerKey == "" {
		cfg.ServerKey = os.Getenv("FCM_SERVER_KEY")
	}
	if cfg.ServerKey == "" {
		return nil, fmt.Errorf("FCM server key must be provided")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultFCMEndpoint
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}
	return &FCMAdapter{
		serverKey: cfg.ServerKey,
		endpoint:  cfg.Endpoint,
		client:    cfg.Client,
	}, nil
}

func (a *FCMAdapter) Name() models.ProviderName {
	return models.ProviderFCM
}

type fcmRequest struct {
	To           string            `json:"to"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Results []struct {
		MessageID string `json:"message_id"`
		Error     string `json:"error"`
	} `json:"results"`
}

// Send pushes one message to a device token.
func (a *FCMAdapter) Send(ctx context.Context, identity, title, body string, data map[string]string) (models.SendResult, error) {
	if identity == "" {
		err := models.NewProviderError(models.ProviderFCM, false, "empty device token")
		return models.SendResult{Err: err.Message}, err
	}

	payload, err := json.Marshal(fcmRequest{
		To:           identity,
		Notification: fcmNotification{Title: title, Body: body},
		Data:         data,
	})
	if err != nil {
		perr := models.NewProviderError(models.ProviderFCM, false, "encode request: %v", err)
		return models.SendResult{Err: perr.Message}, perr
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		perr := models.NewProviderError(models.ProviderFCM, false, "build request: %v", err)
		return models.SendResult{Err: perr.Message}, perr
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+a.serverKey)

	resp, err := a.client.Do(req)
	if err != nil {
		// Timeouts and connection failures are transient.
		perr := models.NewProviderError(models.ProviderFCM, true, "request failed: %v", err)
		return models.SendResult{Err: perr.Message}, perr
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		perr := models.NewProviderError(models.ProviderFCM, false, "rejected credentials: HTTP %d", resp.StatusCode)
		return models.SendResult{Err: perr.Message}, perr
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		perr := models.NewProviderError(models.ProviderFCM, true, "server error: HTTP %d", resp.StatusCode)
		return models.SendResult{Err: perr.Message}, perr
	case resp.StatusCode != http.StatusOK:
		perr := models.NewProviderError(models.ProviderFCM, false, "unexpected status: HTTP %d", resp.StatusCode)
		return models.SendResult{Err: perr.Message}, perr
	}

	var parsed fcmResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		perr := models.NewProviderError(models.ProviderFCM, true, "decode response: %v", err)
		return models.SendResult{Err: perr.Message}, perr
	}

	if parsed.Failure > 0 || parsed.Success == 0 {
		reason := "unknown"
		if len(parsed.Results) > 0 && parsed.Results[0].Error != "" {
			reason = parsed.Results[0].Error
		}
		// NotRegistered / InvalidRegistration mean the token is gone for good.
		retriable := reason != "NotRegistered" && reason != "InvalidRegistration" && reason != "MismatchSenderId"
		perr := models.NewProviderError(models.ProviderFCM, retriable, "delivery rejected: %s", reason)
		return models.SendResult{Err: perr.Message}, perr
	}

	messageID := ""
	if len(parsed.Results) > 0 {
		messageID = parsed.Results[0].MessageID
	}
	slog.Debug("FCMAdapter.Send: delivered", "message_id", messageID)
	return models.SendResult{Success: true, MessageID: messageID}, nil
}
