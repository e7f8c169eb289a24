// Package gmail sends mail through the Gmail REST API using an OAuth2
// refresh token.
package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"golang.org/x/oauth2"

	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
)

const (
	DefaultBaseURL  = "https://gmail.googleapis.com"
	DefaultTokenURL = "https://oauth2.googleapis.com/token"
	ScopeSend       = "https://www.googleapis.com/auth/gmail.send"

	maxResponseSizeBytes = 1 << 20
)

type Config struct {
	ClientID     string        `envconfig:"CLIENT_ID" split_words:"true"`
	ClientSecret string        `envconfig:"CLIENT_SECRET" split_words:"true"`
	RefreshToken string        `envconfig:"REFRESH_TOKEN" split_words:"true"`
	FromAddress  string        `envconfig:"FROM_ADDRESS" split_words:"true"`
	FromName     string        `envconfig:"FROM_NAME" split_words:"true" default:"Sales Team"`
	BaseURL      string        `envconfig:"BASE_URL" split_words:"true" default:"https://gmail.googleapis.com"`
	TokenURL     string        `envconfig:"TOKEN_URL" split_words:"true" default:"https://oauth2.googleapis.com/token"`
	Timeout      time.Duration `split_words:"true" default:"15s"`
}

// Configured reports whether enough credentials are present to send.
func (c Config) Configured() bool {
	return strings.TrimSpace(c.ClientID) != "" &&
		strings.TrimSpace(c.RefreshToken) != "" &&
		strings.TrimSpace(c.FromAddress) != ""
}

type Client struct {
	baseURL    string
	from       *mail.Address
	httpClient *http.Client
	now        func() time.Time
}

type Option func(*clientOptions)

type clientOptions struct {
	base *http.Client
	now  func() time.Time
}

// WithBaseHTTPClient sets the transport used for both token refresh and API
// calls.
func WithBaseHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		if client != nil {
			o.base = client
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *clientOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func NewClient(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	if !cfg.Configured() {
		return nil, errors.New("gmail client id, refresh token and from address are required")
	}

	o := clientOptions{base: &http.Client{}, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	base := *o.base
	base.Timeout = timeout

	tokenURL := strings.TrimSpace(cfg.TokenURL)
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	oauth := &oauth2.Config{
		ClientID:     strings.TrimSpace(cfg.ClientID),
		ClientSecret: strings.TrimSpace(cfg.ClientSecret),
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
		Scopes:       []string{ScopeSend},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &base)
	httpClient := oauth.Client(ctx, &oauth2.Token{RefreshToken: strings.TrimSpace(cfg.RefreshToken)})
	httpClient.Timeout = timeout

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		from:       &mail.Address{Name: cfg.FromName, Address: strings.TrimSpace(cfg.FromAddress)},
		httpClient: httpClient,
		now:        o.now,
	}, nil
}

type sendRequest struct {
	Raw string `json:"raw"`
}

type sendResponse struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) Send(ctx context.Context, msg contractx.OutgoingEmail) (string, error) {
	raw, err := c.compose(msg)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(sendRequest{Raw: base64.URLEncoding.EncodeToString(raw)})
	if err != nil {
		return "", fmt.Errorf("marshal gmail request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/gmail/v1/users/me/messages/send", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build gmail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute gmail request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return "", fmt.Errorf("read gmail response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr apiError
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("gmail http status=%d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("gmail http status=%d body=%s", resp.StatusCode, string(payload))
	}

	var out sendResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", fmt.Errorf("decode gmail response: %w", err)
	}
	return out.ID, nil
}

// compose renders an RFC 5322 plain-text message.
func (c *Client) compose(msg contractx.OutgoingEmail) ([]byte, error) {
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return nil, fmt.Errorf("%w: recipient is empty", contractx.ErrValidation)
	}

	var h mail.Header
	h.SetDate(c.now())
	h.SetAddressList("From", []*mail.Address{c.from})
	h.SetAddressList("To", []*mail.Address{{Name: msg.ToName, Address: to}})
	h.SetSubject(msg.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generate message id: %w", err)
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create message writer: %w", err)
	}
	if _, err := io.WriteString(w, msg.Body); err != nil {
		return nil, fmt.Errorf("write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close message writer: %w", err)
	}
	return buf.Bytes(), nil
}
