// Package push is the operator push-notification gateway client.
// Strictly best-effort: failures are logged and never propagated.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"sasquatch_backend/platform/config"
	"sasquatch_backend/platform/logger"
)

// Notification is the payload shape the gateway expects.
type Notification struct {
	Heading string            `json:"heading"`
	Content string            `json:"content"`
	Data    map[string]string `json:"data,omitempty"`
}

// Client posts notifications to the push provider. Nil when unconfigured.
type Client struct {
	url    string
	appID  string
	apiKey string
	http   *http.Client
	log    *logger.Logger
}

// NewClient creates the push client, or nil when push is not configured.
func NewClient(cfg config.PushConfig, log *logger.Logger) *Client {
	if !cfg.IsPushEnabled() {
		return nil
	}

	return &Client{
		url:    cfg.GetPushURL(),
		appID:  cfg.GetPushAppID(),
		apiKey: cfg.GetPushAPIKey(),
		http:   &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

// Notify delivers a push notification to the operator app. Errors are
// logged here and swallowed; no caller treats push failure as its own.
func (c *Client) Notify(ctx context.Context, n Notification) {
	if c == nil {
		return
	}

	payload := map[string]interface{}{
		"app_id":            c.appID,
		"headings":          map[string]string{"en": n.Heading},
		"contents":          map[string]string{"en": n.Content},
		"included_segments": []string{"All"},
	}
	if len(n.Data) > 0 {
		payload["data"] = n.Data
	}

	body, err := json.Marshal(payload)
	if err != nil {
		c.log.Error("push payload marshal failed", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(body))
	if err != nil {
		c.log.Error("push request build failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("push request failed", "error", err)
		return
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		c.log.Error("push provider rejected notification",
			"status", resp.StatusCode,
			"body", strings.TrimSpace(string(data)),
		)
		return
	}

	c.log.Info("push notification sent", "heading", n.Heading)
}
