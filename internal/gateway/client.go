package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/habeasdata/consent-campaigns/internal/config"
)

// StatusCreated is the provider's success code for a sent message. Every
// other status, including transport errors, counts as a failed send.
const StatusCreated = http.StatusCreated

// Connection states reported by the instance endpoint.
const (
	StateOpen       = "open"
	StateClose      = "close"
	StateConnecting = "connecting"
	StateUnknown    = "unknown"
	StateError      = "error"
)

// Client talks to an Evolution-API-compatible WhatsApp gateway. All methods
// convert transport failures into reportable outcomes; none of them panic
// or propagate a crash into a dispatch pass.
type Client struct {
	httpClient   *http.Client
	cfg          *config.GatewayConfig
	publicDomain string
	logger       *logrus.Logger
}

// SendResult is the outcome of one send attempt. Status is nil when the
// request never reached the provider; Body then carries the error message.
type SendResult struct {
	Status *int
	Body   string
}

// OK reports whether the provider confirmed the message as created.
func (r SendResult) OK() bool {
	return r.Status != nil && *r.Status == StatusCreated
}

type sendTextPayload struct {
	Number      string        `json:"number"`
	Options     sendOptions   `json:"options"`
	TextMessage sendTextInner `json:"textMessage"`
}

type sendOptions struct {
	Delay    int    `json:"delay"`
	Presence string `json:"presence"`
}

type sendTextInner struct {
	Text string `json:"text"`
}

// NewClient creates a gateway client. publicDomain is the origin consent
// links are built under; it comes from config, not ambient lookups.
func NewClient(cfg *config.GatewayConfig, publicDomain string, logger *logrus.Logger) *Client {
	timeout := 30 * time.Second
	if cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		cfg:          cfg,
		publicDomain: publicDomain,
		logger:       logger,
	}
}

// AuthLink builds the public consent URL for a token.
func (c *Client) AuthLink(token string) string {
	return fmt.Sprintf("%s/auth/%s", strings.TrimRight(c.publicDomain, "/"), token)
}

// SendText renders the template and posts the message. A template error is
// returned as a failed SendResult carrying the error text, matching the
// transport-failure shape, so callers have one bookkeeping path.
func (c *Client) SendText(ctx context.Context, phone, name, token, template string) SendResult {
	message, err := RenderTemplate(template, name, c.AuthLink(token))
	if err != nil {
		c.logger.WithError(err).WithField("phone", phone).Warn("Message template rejected")
		return SendResult{Body: err.Error()}
	}

	payload := sendTextPayload{
		Number: phone,
		// The provider simulates typing before delivery; the delay is a
		// provider contract detail, not client pacing.
		Options:     sendOptions{Delay: 1200, Presence: "composing"},
		TextMessage: sendTextInner{Text: message},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return SendResult{Body: fmt.Sprintf("failed to marshal send payload: %v", err)}
	}

	url := fmt.Sprintf("%s/message/sendText/%s", c.cfg.BaseURL, c.cfg.Instance)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return SendResult{Body: fmt.Sprintf("failed to create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.cfg.APIKey)

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"phone":    phone,
			"duration": time.Since(startTime),
		}).Error("Gateway send failed")
		return SendResult{Body: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return SendResult{Body: fmt.Sprintf("failed to read gateway response: %v", err)}
	}

	status := resp.StatusCode
	c.logger.WithFields(logrus.Fields{
		"phone":      phone,
		"statusCode": status,
		"duration":   time.Since(startTime),
	}).Debug("Gateway send completed")

	return SendResult{Status: &status, Body: string(body)}
}

// ConnectionState reports the WhatsApp instance state: open, close,
// connecting, unknown or error.
func (c *Client) ConnectionState(ctx context.Context) string {
	url := fmt.Sprintf("%s/instance/connectionState/%s", c.cfg.BaseURL, c.cfg.Instance)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return StateError
	}
	req.Header.Set("apikey", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Debug("Gateway connection state check failed")
		return StateError
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return StateUnknown
	}

	var state struct {
		Instance struct {
			State string `json:"state"`
		} `json:"instance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return StateUnknown
	}
	if state.Instance.State == "" {
		return StateUnknown
	}

	return state.Instance.State
}

// ConnectQR ensures the instance exists and returns the base64 pairing QR
// image, with any data-URI prefix stripped.
func (c *Client) ConnectQR(ctx context.Context) (string, error) {
	createPayload, _ := json.Marshal(map[string]string{"instanceName": c.cfg.Instance})
	createURL := fmt.Sprintf("%s/instance/create", c.cfg.BaseURL)
	createReq, err := http.NewRequestWithContext(ctx, http.MethodPost, createURL, bytes.NewBuffer(createPayload))
	if err != nil {
		return "", fmt.Errorf("failed to create instance request: %w", err)
	}
	createReq.Header.Set("Content-Type", "application/json")
	createReq.Header.Set("apikey", c.cfg.APIKey)

	// The create call is idempotent on the provider side; an "already
	// exists" response is fine, so only transport errors matter here.
	if resp, err := c.httpClient.Do(createReq); err != nil {
		return "", fmt.Errorf("failed to ensure gateway instance: %w", err)
	} else {
		resp.Body.Close()
	}

	connectURL := fmt.Sprintf("%s/instance/connect/%s", c.cfg.BaseURL, c.cfg.Instance)
	connectReq, err := http.NewRequestWithContext(ctx, http.MethodGet, connectURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create connect request: %w", err)
	}
	connectReq.Header.Set("apikey", c.cfg.APIKey)

	resp, err := c.httpClient.Do(connectReq)
	if err != nil {
		return "", fmt.Errorf("failed to get pairing QR: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway returned status %d for connect", resp.StatusCode)
	}

	var connect struct {
		Base64 string `json:"base64"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&connect); err != nil {
		return "", fmt.Errorf("failed to decode connect response: %w", err)
	}
	if connect.Base64 == "" {
		return "", fmt.Errorf("gateway returned no QR image")
	}

	qr := connect.Base64
	if idx := strings.Index(qr, ","); idx >= 0 {
		qr = qr[idx+1:]
	}

	return qr, nil
}
