package confirm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chainwatch/internal/hmacauth"
)

const DefaultConfirmPath = "/_market/land/confirm"

// HTTPSink POSTs confirmations to the marketplace. Delivery is fire-once: a
// failure is returned to the caller and never retried here.
type HTTPSink struct {
	url    string
	client *http.Client
	signer *hmacauth.Signer
}

type HTTPSinkConfig struct {
	BaseURL string
	Path    string
	Secret  string
	Timeout time.Duration
}

func NewHTTPSink(cfg HTTPSinkConfig) (*HTTPSink, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("confirm sink base url is required")
	}
	path := cfg.Path
	if path == "" {
		path = DefaultConfirmPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSink{
		url:    base + path,
		client: &http.Client{Timeout: timeout},
		signer: &hmacauth.Signer{Secret: cfg.Secret},
	}, nil
}

func (s *HTTPSink) URL() string { return s.url }

func (s *HTTPSink) Confirm(ctx context.Context, c Confirmation) error {
	body, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal confirmation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build confirm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.signer.Sign(req, body)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post confirmation: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("confirm endpoint returned %d", resp.StatusCode)
	}
	return nil
}
