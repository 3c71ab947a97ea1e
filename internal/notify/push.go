// Package notify delivers push notifications to rider devices. The transport
// is the Expo push gateway; delivery failures are surfaced as AppErrors so
// schedulers can log and move on without retry storms.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"rideaware/internal/types"
)

// Notifier sends a notification to the device identified by deviceID.
type Notifier interface {
	Send(ctx context.Context, deviceID, title, body string) error
}

// TokenStore looks up the registered push token for a device.
type TokenStore interface {
	GetByDevice(ctx context.Context, deviceID string) (*types.DeviceToken, error)
}

// PushNotifier sends notifications through the Expo push API using tokens
// registered per device.
type PushNotifier struct {
	tokens     TokenStore
	httpClient *http.Client
	endpoint   string
	logger     *slog.Logger
}

// PushConfig holds settings for creating a PushNotifier.
type PushConfig struct {
	Endpoint string
	Timeout  time.Duration
	Logger   *slog.Logger
}

// NewPushNotifier creates a PushNotifier backed by the given token store.
func NewPushNotifier(tokens TokenStore, cfg PushConfig) *PushNotifier {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://exp.host/--/api/v2/push/send"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &PushNotifier{
		tokens:     tokens,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		endpoint:   cfg.Endpoint,
		logger:     cfg.Logger,
	}
}

type pushMessage struct {
	To    string `json:"to"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound"`
}

// Send implements Notifier. Returns ErrCodeNotifyNoToken when the device has
// no registered token and ErrCodeNotifyDeliveryFailed when the gateway
// rejects the message.
func (p *PushNotifier) Send(ctx context.Context, deviceID, title, body string) error {
	tok, err := p.tokens.GetByDevice(ctx, deviceID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(pushMessage{
		To:    tok.Token,
		Title: title,
		Body:  body,
		Sound: "default",
	})
	if err != nil {
		return types.NewAppError(types.ErrCodeNotifyDeliveryFailed, "failed to encode push message", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return types.NewAppError(types.ErrCodeNotifyDeliveryFailed, "failed to build push request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return types.NewAppError(types.ErrCodeNotifyDeliveryFailed, "push gateway unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.NewAppError(
			types.ErrCodeNotifyDeliveryFailed,
			fmt.Sprintf("push gateway returned %d", resp.StatusCode),
			nil,
		)
	}

	p.logger.Debug("push notification delivered",
		"device_id", deviceID,
		"title", title,
	)
	return nil
}
