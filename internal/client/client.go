// Package client talks to the journey API on behalf of journeyctl. Requests
// are never retried.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"backend-journeylog/internal/httpclient"
	"backend-journeylog/internal/journey"
)

// APIError is returned for any non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.Status)
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: strings.TrimRight(baseURL, "/")}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.New(httpclient.DefaultConfig())
	}
	return c
}

// Token is the bearer token sent with each request.
func (c *Client) Token() string { return c.token }

func (c *Client) SetToken(token string) { c.token = token }

// Login exchanges credentials for an access token and keeps it on the client.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/user/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/plain")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return "", err
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(string(raw))
	c.token = token
	return token, nil
}

// UserJourneys returns the journeys of userID. Documents that are not
// journeys are skipped.
func (c *Client) UserJourneys(ctx context.Context, userID string) ([]journey.Journey, error) {
	var docs []json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/journey/user/"+url.PathEscape(userID), nil, &docs); err != nil {
		return nil, err
	}
	out := make([]journey.Journey, 0, len(docs))
	for _, doc := range docs {
		j, ok, err := journey.Decode(doc)
		if err != nil || !ok {
			continue
		}
		out = append(out, j)
	}
	return out, nil
}

func (c *Client) Journey(ctx context.Context, id string) (journey.Journey, error) {
	var doc json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/journey/"+url.PathEscape(id), nil, &doc); err != nil {
		return journey.Journey{}, err
	}
	return decodeJourney(doc)
}

func (c *Client) CreateJourney(ctx context.Context, p journey.Partial) (journey.Journey, error) {
	var doc json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/api/journey", journey.EncodePartial(p), &doc); err != nil {
		return journey.Journey{}, err
	}
	return decodeJourney(doc)
}

func (c *Client) UpdateJourney(ctx context.Context, id string, p journey.Partial) (journey.Journey, error) {
	var doc json.RawMessage
	if err := c.do(ctx, http.MethodPut, "/api/journey/"+url.PathEscape(id), journey.EncodePartial(p), &doc); err != nil {
		return journey.Journey{}, err
	}
	return decodeJourney(doc)
}

func (c *Client) DeleteJourney(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/journey/"+url.PathEscape(id), nil, nil)
}

func (c *Client) RefreshMeteo(ctx context.Context, id string) (journey.Journey, error) {
	var doc json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/api/journey/"+url.PathEscape(id)+"/meteo/refresh", nil, &doc); err != nil {
		return journey.Journey{}, err
	}
	return decodeJourney(doc)
}

// Meteo fetches the forecast snapshot for a point on a day.
func (c *Client) Meteo(ctx context.Context, at journey.GeoPoint, date time.Time) (journey.Meteo, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(at.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(at.Longitude, 'f', -1, 64))
	q.Set("date", date.UTC().Format("2006-01-02"))

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/meteo?"+q.Encode(), nil, &raw); err != nil {
		return journey.Meteo{}, err
	}
	p, err := journey.DecodePartial(raw)
	if err != nil {
		return journey.Meteo{}, err
	}
	return journey.NewMeteo(p), nil
}

// UploadImage stores an image for the journey and returns its URL.
func (c *Client) UploadImage(ctx context.Context, id, filename string, r io.Reader) (string, error) {
	return c.upload(ctx, "/api/journey/"+url.PathEscape(id)+"/upload/image", filename, r)
}

// UploadGpx stores a GPX track for the journey and returns its URL.
func (c *Client) UploadGpx(ctx context.Context, id, filename string, r io.Reader) (string, error) {
	return c.upload(ctx, "/api/journey/"+url.PathEscape(id)+"/upload/gpx", filename, r)
}

func (c *Client) upload(ctx context.Context, path, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var location string
	if err := c.send(req, &location); err != nil {
		return "", err
	}
	return location, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
}

func decodeJourney(doc []byte) (journey.Journey, error) {
	j, ok, err := journey.Decode(doc)
	if err != nil {
		return journey.Journey{}, err
	}
	if !ok {
		return journey.Journey{}, fmt.Errorf("response is not a journey")
	}
	return j, nil
}
