// Package sms is the outbound SMS gateway client. Sends are best-effort:
// callers decide whether a failure matters (notification-only sends log
// and move on; nurture sends release their claim for a same-day retry).
package sms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sasquatch_backend/platform/config"
	"sasquatch_backend/platform/logger"
	"sasquatch_backend/platform/phone"

	"golang.org/x/time/rate"
)

// Message kinds, used for logging and provider-side tagging.
const (
	KindCustomer = "customer"
	KindPartner  = "partner"
	KindAdmin    = "admin"
)

// Client talks to the SMS provider's REST API. A nil Client swallows all
// sends, so callers don't need to guard against disabled configuration.
type Client struct {
	baseURL    string
	accountSID string
	authToken  string
	from       string
	adminPhone string
	http       *http.Client
	limiter    *rate.Limiter
	log        *logger.Logger
}

// NewClient creates the gateway client, or nil when SMS is not configured.
func NewClient(cfg config.SMSConfig, log *logger.Logger) *Client {
	if !cfg.IsSMSEnabled() {
		return nil
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.GetSMSBaseURL(), "/"),
		accountSID: cfg.GetSMSAccountSID(),
		authToken:  cfg.GetSMSAuthToken(),
		from:       cfg.GetSMSFromNumber(),
		adminPhone: cfg.GetAdminPhone(),
		http:       &http.Client{Timeout: 15 * time.Second},
		// One outbound pipe to the provider; keep bursts off their rate caps.
		limiter: rate.NewLimiter(rate.Limit(5), 10),
		log:     log,
	}
}

// SendCustomerSMS sends a message to a customer phone number.
func (c *Client) SendCustomerSMS(ctx context.Context, to, body string) error {
	return c.send(ctx, KindCustomer, to, body)
}

// SendPartnerSMS sends a message to a partner phone number.
func (c *Client) SendPartnerSMS(ctx context.Context, to, body string) error {
	return c.send(ctx, KindPartner, to, body)
}

// SendAdminSMS sends a message to the configured operator phone.
func (c *Client) SendAdminSMS(ctx context.Context, body string) error {
	if c == nil || c.adminPhone == "" {
		return nil
	}
	return c.send(ctx, KindAdmin, c.adminPhone, body)
}

func (c *Client) send(ctx context.Context, kind, to, body string) error {
	if c == nil {
		return nil
	}

	normalized := phone.Normalize(to)
	if normalized == "" {
		return fmt.Errorf("empty destination number")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	form := url.Values{}
	form.Set("To", normalized)
	form.Set("From", c.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.OutboundSMS(kind, normalized, err)
		return fmt.Errorf("sms request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("sms provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		c.log.OutboundSMS(kind, normalized, err)
		return err
	}

	c.log.OutboundSMS(kind, normalized, nil)
	return nil
}
