package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"garment-studio/core"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrNetwork marks failures to reach the design service at all.
var ErrNetwork = errors.New("design service unreachable")

// APIError is a non-2xx answer from the design service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("design service returned %d", e.StatusCode)
	}
	return fmt.Sprintf("design service returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to the design-storage REST API. An empty token means an
// anonymous shopper.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func New(baseURL, token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

func (c *Client) Authenticated() bool {
	return c.token != ""
}

type (
	productResponse struct {
		Product core.BaseProduct `json:"product"`
	}

	designResponse struct {
		Design core.SavedDesign `json:"design"`
	}

	errorResponse struct {
		Message string `json:"message"`
	}
)

func (c *Client) GetBaseProduct(ctx context.Context) (*core.BaseProduct, error) {
	var resp productResponse
	if err := c.do(ctx, http.MethodGet, "/api/products/custom-tshirt", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

// CreateDesign saves a design and returns its id.
func (c *Client) CreateDesign(ctx context.Context, req core.CreateDesignRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", errors.Wrap(err, "encode design")
	}
	var resp designResponse
	if err := c.do(ctx, http.MethodPost, "/api/custom-designs", body, &resp); err != nil {
		return "", err
	}
	if resp.Design.ID == "" {
		return "", errors.New("design service returned no design id")
	}
	return resp.Design.ID, nil
}

// GetDesign loads one of the caller's saved designs.
func (c *Client) GetDesign(ctx context.Context, id string) (*core.SavedDesign, error) {
	var resp designResponse
	if err := c.do(ctx, http.MethodGet, "/api/custom-designs/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Design, nil
}

// FetchImage downloads the bytes behind an image reference. References without
// a scheme resolve against the base URL.
func (c *Client) FetchImage(ctx context.Context, ref string) ([]byte, error) {
	target := ref
	if !strings.Contains(ref, "://") {
		target = c.baseURL + "/" + strings.TrimLeft(ref, "/")
	}
	return c.send(ctx, http.MethodGet, target, "image/*", nil)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	data, err := c.send(ctx, method, c.baseURL+path, "application/json", body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, target, accept string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", accept)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	log := logrus.WithFields(logrus.Fields{"method": method, "url": target})
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Warn("Design service request failed")
		return nil, errors.Wrapf(ErrNetwork, "%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(ErrNetwork, "read %s response: %v", target, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload errorResponse
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Message = payload.Message
		}
		log.WithField("status", resp.StatusCode).Warn("Design service rejected request")
		return nil, apiErr
	}
	return data, nil
}
