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
	"strings"
	"time"

	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/models"
)

const defaultOneSignalEndpoint = "https://onesignal.com/api/v1/notifications"

// OneSignalOpts holds configuration options for the OneSignal adapter.
type OneSignalOpts struct {
	AppID    string
	APIKey   string
	Endpoint string
	Client   *http.Client
}

// OneSignalOption defines a configuration option for the OneSignal adapter.
type OneSignalOption func(*OneSignalOpts)

func WithOneSignalAppID(id string) OneSignalOption {
	return func(o *OneSignalOpts) { o.AppID = id }
}

func WithOneSignalAPIKey(key string) OneSignalOption {
	return func(o *OneSignalOpts) { o.APIKey = key }
}

func WithOneSignalEndpoint(url string) OneSignalOption {
	return func(o *OneSignalOpts) { o.Endpoint = url }
}

func WithOneSignalHTTPClient(c *http.Client) OneSignalOption {
	return func(o *OneSignalOpts) { o.Client = c }
}

// OneSignalAdapter delivers push notifications through the OneSignal REST
// API. It targets individual player IDs; broadcast segments are not used
// because audience fan-out happens before the outbox.
type OneSignalAdapter struct {
	appID    string
	apiKey   string
	endpoint string
	client   *http.Client
}

var _ Adapter = (*OneSignalAdapter)(nil)

// NewOneSignalAdapter builds the adapter. Falls back to the ONESIGNAL_APP_ID
// and ONESIGNAL_API_KEY environment variables; errors when either is missing.
func NewOneSignalAdapter(opts ...OneSignalOption) (*OneSignalAdapter, error) {
	var cfg OneSignalOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AppID == "" {
		cfg.AppID = os.Getenv("ONESIGNAL_APP_ID")
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("ONESIGNAL_API_KEY")
	}
	if cfg.AppID == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("OneSignal app ID and API key must be provided")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultOneSignalEndpoint
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}
	return &OneSignalAdapter{
		appID:    cfg.AppID,
		apiKey:   cfg.APIKey,
		endpoint: cfg.Endpoint,
		client:   cfg.Client,
	}, nil
}

func (a *OneSignalAdapter) Name() models.ProviderName {
	return models.ProviderOneSignal
}

type oneSignalRequest struct {
	AppID            string            `json:"app_id"`
	IncludePlayerIDs []string          `json:"include_player_ids"`
	Headings         map[string]string `json:"headings"`
	Contents         map[string]string `json:"contents"`
	Data             map[string]string `json:"data,omitempty"`
}

type oneSignalResponse struct {
	ID         string          `json:"id"`
	Recipients int             `json:"recipients"`
	Errors     json.RawMessage `json:"errors"`
}

// Send pushes one message to a player ID.
func (a *OneSignalAdapter) Send(ctx context.Context, identity, title, body string, data map[string]string) (models.SendResult, error) {
	if identity == "" {
		err := models.NewProviderError(models.ProviderOneSignal, false, "empty player ID")
		return models.SendResult{Err: err.Message}, err
	}

	// The app is Arabic-facing; "en" is OneSignal's mandatory default key.
	payload, err := json.Marshal(oneSignalRequest{
		AppID:            a.appID,
		IncludePlayerIDs: []string{identity},
		Headings:         map[string]string{"en": title, "ar": title},
		Contents:         map[string]string{"en": body, "ar": body},
		Data:             data,
	})
	if err != nil {
		perr := models.NewProviderError(models.ProviderOneSignal, false, "encode request: %v", err)
		return models.SendResult{Err: perr.Message}, perr
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		perr := models.NewProviderError(models.ProviderOneSignal, false, "build request: %v", err)
		return models.SendResult{Err: perr.Message}, perr
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		perr := models.NewProviderError(models.ProviderOneSignal, true, "request failed: %v", err)
		return models.SendResult{Err: perr.Message}, perr
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		perr := models.NewProviderError(models.ProviderOneSignal, false, "rejected credentials: HTTP %d", resp.StatusCode)
		return models.SendResult{Err: perr.Message}, perr
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		perr := models.NewProviderError(models.ProviderOneSignal, true, "server error: HTTP %d", resp.StatusCode)
		return models.SendResult{Err: perr.Message}, perr
	case resp.StatusCode != http.StatusOK:
		perr := models.NewProviderError(models.ProviderOneSignal, false, "unexpected status: HTTP %d", resp.StatusCode)
		return models.SendResult{Err: perr.Message}, perr
	}

	var parsed oneSignalResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		perr := models.NewProviderError(models.ProviderOneSignal, true, "decode response: %v", err)
		return models.SendResult{Err: perr.Message}, perr
	}

	if len(parsed.Errors) > 0 && string(parsed.Errors) != "null" {
		reason := strings.TrimSpace(string(parsed.Errors))
		// An unsubscribed or invalid player ID never becomes deliverable.
		retriable := !strings.Contains(reason, "not subscribed") && !strings.Contains(reason, "invalid_player_ids")
		perr := models.NewProviderError(models.ProviderOneSignal, retriable, "delivery rejected: %s", reason)
		return models.SendResult{Err: perr.Message}, perr
	}
	if parsed.Recipients == 0 {
		perr := models.NewProviderError(models.ProviderOneSignal, false, "no recipients matched player ID")
		return models.SendResult{Err: perr.Message}, perr
	}

	slog.Debug("OneSignalAdapter.Send: delivered", "message_id", parsed.ID, "recipients", parsed.Recipients)
	return models.SendResult{Success: true, MessageID: parsed.ID}, nil
}
