package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/jwalitptl/patient-directory/internal/model"
)

var (
	// ErrNoBaseURL is returned when the directory has no remote API configured.
	ErrNoBaseURL = errors.New("remote base url is not configured")
	// ErrInvalidBaseURL wraps a base that is not an absolute http(s) URL.
	ErrInvalidBaseURL = errors.New("invalid remote base url")
)

// PatientSource is the interface the directory depends on for its initial load.
type PatientSource interface {
	FetchPatients(ctx context.Context) ([]model.Patient, error)
}

// Client calls the remote patient API.
type Client struct {
	baseURL    *url.URL
	baseErr    error
	httpClient *http.Client
}

// NewClient constructs a Client.
// A missing or malformed base never fails construction; every fetch then
// returns the configuration error so it surfaces as a load failure.
// timeout controls the HTTP client request timeout, zero means none.
func NewClient(base string, timeout time.Duration) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
	c.baseURL, c.baseErr = parseBase(base)
	return c
}

func parseBase(base string) (*url.URL, error) {
	if base == "" {
		return nil, ErrNoBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w %q: scheme must be http or https", ErrInvalidBaseURL, base)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w %q: missing host", ErrInvalidBaseURL, base)
	}
	return u, nil
}

// Err reports the base URL configuration error, if any.
func (c *Client) Err() error {
	return c.baseErr
}

// remotePatient mirrors the upstream record loosely; demo data is not strictly typed.
type remotePatient struct {
	ID          json.RawMessage `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Website     string          `json:"website"`
	Avatar      interface{}     `json:"avatar"`
	CreatedAt   string          `json:"createdAt"`
}

// FetchPatients implements PatientSource.
func (c *Client) FetchPatients(ctx context.Context) ([]model.Patient, error) {
	if c.baseErr != nil {
		return nil, c.baseErr
	}

	// build URL: base + /users
	u := *c.baseURL // copy
	u.Path = path.Join("/", c.baseURL.Path, "users")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("patients api status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var records []remotePatient
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if records == nil {
		return nil, errors.New("decode response: expected a JSON array")
	}

	patients := make([]model.Patient, 0, len(records))
	for i, r := range records {
		id, err := decodeID(r.ID)
		if err != nil {
			return nil, fmt.Errorf("decode record %d: %w", i, err)
		}
		avatar, _ := r.Avatar.(string)
		patients = append(patients, model.Patient{
			ID:          id,
			Name:        r.Name,
			Description: r.Description,
			Website:     r.Website,
			Avatar:      avatar,
			CreatedAt:   r.CreatedAt,
		})
	}
	return patients, nil
}

// decodeID accepts a JSON string or number.
func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", errors.New("missing id")
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("id must be a string or number: %w", err)
	}
	return n.String(), nil
}
