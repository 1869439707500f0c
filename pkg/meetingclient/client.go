// Package meetingclient is the client side of the meetings API: an HTTP
// client, an explicit state container with pure transitions, and the thin
// form and detail-view boundary built on top of them.
package meetingclient

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
)

// Meeting is the denormalized meeting returned by the server.
type Meeting struct {
	ID            string       `json:"_id"`
	Agenda        string       `json:"agenda"`
	Location      string       `json:"location"`
	Related       string       `json:"related"`
	DateTime      string       `json:"dateTime"`
	Notes         string       `json:"notes"`
	Timestamp     time.Time    `json:"timestamp"`
	CreatedByName string       `json:"createdByName"`
	Attendes      []ContactRef `json:"attendes"`
	AttendesLead  []LeadRef    `json:"attendesLead"`
}

// ContactRef is a resolved contact attendee.
type ContactRef struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
}

// LeadRef is a resolved lead attendee.
type LeadRef struct {
	ID       string `json:"_id"`
	LeadName string `json:"leadName"`
}

// CreateRequest is the payload of POST /meetings/add.
type CreateRequest struct {
	Agenda       string   `json:"agenda"`
	Attendes     []string `json:"attendes"`
	AttendesLead []string `json:"attendesLead"`
	Location     string   `json:"location,omitempty"`
	Related      string   `json:"related"`
	DateTime     string   `json:"dateTime"`
	Notes        string   `json:"notes,omitempty"`
}

// APIError is a non-2xx response. Message, Errors and Detail are copied
// verbatim from the server body when present.
type APIError struct {
	Status  int               `json:"-"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
	Detail  string            `json:"error,omitempty"`
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

// Client talks to the meetings API mounted at BaseURL (e.g. http://host:8080/api).
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithToken sends token as a bearer credential.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient overrides the transport.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// NewClient returns a client for the API at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List fetches the meetings visible to the caller. createBy narrows the
// result for admin callers and is ignored by the server otherwise.
func (c *Client) List(ctx context.Context, createBy string) ([]Meeting, error) {
	path := "/meetings"
	if createBy != "" {
		path += "?createBy=" + url.QueryEscape(createBy)
	}
	var out []Meeting
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one meeting.
func (c *Client) Get(ctx context.Context, id string) (*Meeting, error) {
	var out Meeting
	if err := c.do(ctx, http.MethodGet, "/meetings/view/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create adds a meeting owned by the caller.
func (c *Client) Create(ctx context.Context, req CreateRequest) (*Meeting, error) {
	var out Meeting
	if err := c.do(ctx, http.MethodPost, "/meetings/add", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete soft deletes one meeting.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/meetings/delete/"+url.PathEscape(id), nil, nil)
}

// DeleteMany soft deletes several meetings and returns how many changed.
func (c *Client) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	var out struct {
		DeletedCount int64 `json:"deletedCount"`
	}
	if err := c.do(ctx, http.MethodPost, "/meetings/deleteMany", ids, &out); err != nil {
		return 0, err
	}
	return out.DeletedCount, nil
}

// Calendar downloads one meeting as an iCalendar document.
func (c *Client) Calendar(ctx context.Context, id string) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodGet, "/meetings/view/"+url.PathEscape(id)+"/ics", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("meetingclient: decode %s %s: %w", method, path, err)
	}
	return nil
}

// send performs the request and converts non-2xx responses to *APIError.
func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("meetingclient: encode body: %w", err)
		}
		rdr = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("meetingclient: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("meetingclient: %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return nil, apiErr
}
