package supabase

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

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx reply from Supabase. GoTrue and Storage use different
// field names for the message, so all known ones are decoded.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: status %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase: status %d: %s", e.Status, e.Message)
}

type errorBody struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
}

func decodeAPIError(status int, body []byte) *APIError {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	msg := firstNonEmpty(eb.Msg, eb.ErrorDescription, eb.Message, eb.Error)
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{Status: status, Code: firstNonEmpty(eb.ErrorCode, eb.Error), Message: msg}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// base carries what every Supabase sub-client needs.
type base struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

var defaultClient = &http.Client{Timeout: defaultTimeout}

func newBase(baseURL, apiKey string, hc *http.Client) base {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return base{BaseURL: baseURL, APIKey: apiKey, Client: hc}
}

func (b *base) httpClient() *http.Client {
	if b.Client != nil {
		return b.Client
	}
	return defaultClient
}

func (b *base) endpoint(path string, query url.Values) (string, error) {
	if b.BaseURL == "" {
		return "", fmt.Errorf("supabase: SUPABASE_URL is not set")
	}
	u := strings.TrimRight(b.BaseURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u, nil
}

// do sends a request and decodes a JSON reply into out (if non-nil).
// bearer defaults to the API key, matching @supabase/supabase-js.
func (b *base) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType, bearer string, out interface{}) error {
	u, err := b.endpoint(path, query)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if bearer == "" {
		bearer = b.APIKey
	}
	req.Header.Set("apikey", b.APIKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := b.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("supabase request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp.StatusCode, respBody)
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("supabase response decode: %w", err)
	}
	return nil
}

func (b *base) doJSON(ctx context.Context, method, path string, query url.Values, payload interface{}, bearer string, out interface{}) error {
	var body io.Reader
	if payload != nil {
		bs, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(bs)
	}
	return b.do(ctx, method, path, query, body, "application/json", bearer, out)
}
