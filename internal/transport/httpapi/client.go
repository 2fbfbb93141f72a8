package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"toastd/internal/storage"
)

// Client talks to a running toastd API. It backs the CLI subcommands.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("toastd: %s", http.StatusText(e.Status))
	}
	return fmt.Sprintf("toastd: %s (%d)", e.Message, e.Status)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound
}

// NewClient accepts "host:port" or a full http(s) URL.
func NewClient(addr, token string) *Client {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		addr = DefaultAddr
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &Client{
		base:  strings.TrimRight(addr, "/"),
		token: strings.TrimSpace(token),
		http:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&e)
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Create adds a toast and returns its id.
func (c *Client) Create(ctx context.Context, req CreateRequest) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/toasts", req, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) List(ctx context.Context) ([]ToastView, error) {
	var st StateView
	if err := c.do(ctx, http.MethodGet, "/toasts", nil, &st); err != nil {
		return nil, err
	}
	return st.Toasts, nil
}

func (c *Client) Update(ctx context.Context, id string, req PatchRequest) (ToastView, error) {
	var out ToastView
	err := c.do(ctx, http.MethodPatch, "/toasts/"+url.PathEscape(id), req, &out)
	return out, err
}

// Dismiss closes one toast. An empty id dismisses all of them.
func (c *Client) Dismiss(ctx context.Context, id string) error {
	if id == "" {
		return c.do(ctx, http.MethodPost, "/toasts/dismiss", nil, nil)
	}
	return c.do(ctx, http.MethodPost, "/toasts/"+url.PathEscape(id)+"/dismiss", nil, nil)
}

// Remove drops one toast immediately. An empty id removes all of them.
func (c *Client) Remove(ctx context.Context, id string) error {
	if id == "" {
		return c.do(ctx, http.MethodDelete, "/toasts", nil, nil)
	}
	return c.do(ctx, http.MethodDelete, "/toasts/"+url.PathEscape(id), nil, nil)
}

// History returns up to limit lifecycle entries, newest first.
func (c *Client) History(ctx context.Context, limit int) ([]storage.Entry, error) {
	path := "/toasts/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out HistoryView
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}
