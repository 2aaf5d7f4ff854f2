package storage

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrInvalidKey = errors.New("storage: invalid object key")

const maxErrorBodyBytes = 32 << 10

type SupabaseConfig struct {
	URL        string
	ServiceKey string
	Bucket     string
	HTTPClient *http.Client
}

// Supabase stores objects in a public Supabase Storage bucket.
type Supabase struct {
	baseURL    string
	serviceKey string
	bucket     string
	http       *http.Client
}

func NewSupabase(cfg SupabaseConfig) (*Supabase, error) {
	parsed, err := url.Parse(cfg.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("storage: SUPABASE_URL must be an absolute URL")
	}
	if cfg.ServiceKey == "" {
		return nil, fmt.Errorf("storage: SUPABASE_SERVICE_KEY is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: bucket is required")
	}
	client := cfg.HTTPClient
	if client == nil {
		transport := http.DefaultTransport
		if base, ok := http.DefaultTransport.(*http.Transport); ok {
			cloned := base.Clone()
			cloned.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			transport = cloned
		}
		client = &http.Client{Timeout: 60 * time.Second, Transport: transport}
	}
	return &Supabase{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		serviceKey: cfg.ServiceKey,
		bucket:     cfg.Bucket,
		http:       client,
	}, nil
}

// Put uploads the object, overwriting any existing one, and returns its
// public URL.
func (s *Supabase) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.objectURL(key), body)
	if err != nil {
		return "", fmt.Errorf("storage: create request: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")
	req.Header.Set("Cache-Control", "max-age=31536000")
	if err := s.do(req); err != nil {
		return "", fmt.Errorf("storage: upload %s: %w", key, err)
	}
	return s.PublicURL(key), nil
}

func (s *Supabase) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.objectURL(key), nil)
	if err != nil {
		return fmt.Errorf("storage: create request: %w", err)
	}
	if err := s.do(req); err != nil {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

func (s *Supabase) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, escapeKey(key))
}

func (s *Supabase) objectURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, escapeKey(key))
}

func (s *Supabase) do(req *http.Request) error {
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
