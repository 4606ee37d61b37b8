package supabase

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// StorageClient uploads objects to Supabase Storage (/storage/v1).
type StorageClient struct {
	base
	// ServiceKey, when set, is used as the bearer so uploads bypass storage RLS.
	ServiceKey string
}

func NewStorageClient(baseURL, anonKey, serviceKey string, hc *http.Client) *StorageClient {
	return &StorageClient{base: newBase(baseURL, anonKey, hc), ServiceKey: serviceKey}
}

// Upload stores data under bucket/key. userToken is used when no service key is configured.
func (c *StorageClient) Upload(ctx context.Context, bucket, key, contentType string, data []byte, userToken string) error {
	if bucket == "" || key == "" {
		return fmt.Errorf("supabase storage: bucket and key are required")
	}
	bearer := c.ServiceKey
	if bearer == "" {
		bearer = userToken
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	path := fmt.Sprintf("/storage/v1/object/%s/%s", url.PathEscape(bucket), escapeKey(key))
	return c.do(ctx, http.MethodPost, path, nil, bytes.NewReader(data), contentType, bearer, nil)
}

// PublicURL is the URL of an object in a public bucket. No request is made.
func (c *StorageClient) PublicURL(bucket, key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", strings.TrimRight(c.BaseURL, "/"), url.PathEscape(bucket), escapeKey(key))
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
