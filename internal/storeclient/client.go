// Package storeclient talks to the storage API of a running CloudNav server.
package storeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"cloudnav/internal/auth"
	"cloudnav/internal/domain"
)

var ErrUnauthorized = errors.New("server rejected the password")

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// SaveConfigRequest is the body of a saveConfig call.
type SaveConfigRequest struct {
	SaveConfig string `json:"saveConfig"`
	Config     any    `json:"config"`
}

// DataPayload carries the link and category lists. Nil lists are omitted
// and left unchanged by the server.
type DataPayload struct {
	Links      []domain.LinkItem `json:"links,omitempty"`
	Categories []domain.Category `json:"categories,omitempty"`
}

// CreateLinkRequest is the body of POST /api/link.
type CreateLinkRequest struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	CategoryID  string `json:"categoryId"`
	Icon        string `json:"icon"`
	Description string `json:"description,omitempty"`
}

// CreateLinkResponse is returned by POST /api/link.
type CreateLinkResponse struct {
	Success   bool            `json:"success"`
	Link      domain.LinkItem `json:"link"`
	Duplicate bool            `json:"duplicate"`
}

// AuthResponse is returned for an authOnly check.
type AuthResponse struct {
	Success            bool `json:"success"`
	PasswordExpiryDays int  `json:"passwordExpiryDays"`
}

// Client is a storage API client bound to one credential.
type Client struct {
	baseURL    string
	credential domain.Credential
	http       *http.Client
	log        logrus.FieldLogger
}

// New creates a Client. httpClient may be nil.
func New(baseURL string, cred domain.Credential, httpClient *http.Client, logger logrus.FieldLogger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		credential: cred,
		http:       httpClient,
		log:        logger.WithField("component", "storeclient"),
	}
}

// Credential returns the password the client sends.
func (c *Client) Credential() domain.Credential {
	return c.credential
}

// BaseURL returns the server origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SaveConfig posts {saveConfig: kind, config: payload}. Failures are logged
// here and returned; callers on the fire-and-forget path drop the error.
func (c *Client) SaveConfig(ctx context.Context, kind string, payload any) error {
	err := c.do(ctx, http.MethodPost, "/api/storage", SaveConfigRequest{SaveConfig: kind, Config: payload}, nil)
	if err != nil {
		c.log.WithError(err).WithField("kind", kind).Error("Failed to save config")
		return err
	}
	c.log.WithField("kind", kind).Debug("Config saved")
	return nil
}

// LoadWebsite fetches the site settings with defaults applied by the server.
func (c *Client) LoadWebsite(ctx context.Context) (domain.SiteSettings, error) {
	var s domain.SiteSettings
	if err := c.do(ctx, http.MethodGet, "/api/storage?getConfig="+domain.ConfigKindWebsite, nil, &s); err != nil {
		return domain.SiteSettings{}, err
	}
	return s, nil
}

// LoadData fetches the link and category lists.
func (c *Client) LoadData(ctx context.Context) ([]domain.LinkItem, []domain.Category, error) {
	var p DataPayload
	if err := c.do(ctx, http.MethodGet, "/api/storage", nil, &p); err != nil {
		return nil, nil, err
	}
	return p.Links, p.Categories, nil
}

// UpdateLinks replaces the stored link list.
func (c *Client) UpdateLinks(ctx context.Context, links []domain.LinkItem) error {
	if links == nil {
		links = []domain.LinkItem{}
	}
	return c.do(ctx, http.MethodPost, "/api/storage", struct {
		Links []domain.LinkItem `json:"links"`
	}{links}, nil)
}

// CreateLink adds one link the way the browser extension does.
func (c *Client) CreateLink(ctx context.Context, req CreateLinkRequest) (CreateLinkResponse, error) {
	var out CreateLinkResponse
	err := c.do(ctx, http.MethodPost, "/api/link", req, &out)
	return out, err
}

// CheckAuth verifies the credential and returns the configured expiry.
func (c *Client) CheckAuth(ctx context.Context) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/storage", map[string]bool{"authOnly": true}, &out)
	return out, err
}

// Download fetches a binary resource, e.g. the extension archive.
func (c *Client) Download(ctx context.Context, path string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := checkStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.credential.Valid() {
		req.Header.Set(auth.HeaderName, string(c.credential))
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	req, err := c.newRequest(ctx, method, path, payload)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := checkStatus(resp.StatusCode, body); err != nil {
		return err
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func checkStatus(code int, body []byte) error {
	if code >= 200 && code < 300 {
		return nil
	}
	if code == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	var e struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &e)
	return &StatusError{Code: code, Message: e.Error}
}
