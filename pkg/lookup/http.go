package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HTTPService is a Service implementation that talks to a sibling lookup
// process over JSON/HTTP. The sibling owns the browser automation; this
// adapter only moves the call contract across the wire.
type HTTPService struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger

	mu        sync.Mutex
	cancelCtx context.Context
	cancelFn  context.CancelFunc
}

// HTTPConfig holds configuration for the HTTP lookup adapter.
type HTTPConfig struct {
	// BaseURL is the root of the lookup process, e.g. "http://127.0.0.1:8787".
	BaseURL string

	// Timeout bounds a single lookup call. Lookups drive a real browser and
	// routinely take tens of seconds; default is 120s.
	Timeout time.Duration

	// Logger is the zap logger instance. Required.
	Logger *zap.Logger
}

// wireError is the error body returned by the lookup process.
type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewHTTPService creates an HTTP lookup adapter.
func NewHTTPService(config HTTPConfig) (*HTTPService, error) {
	if config.BaseURL == "" {
		return nil, errors.New("base URL cannot be empty")
	}
	if config.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if config.Timeout <= 0 {
		config.Timeout = 120 * time.Second
	}

	s := &HTTPService{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		client:  &http.Client{Timeout: config.Timeout},
		logger:  config.Logger,
	}
	s.cancelCtx, s.cancelFn = context.WithCancel(context.Background())
	return s, nil
}

// Lookup performs one availability check against the sibling process.
func (s *HTTPService) Lookup(ctx context.Context, postalCode, address string, onProgress ProgressFunc) (*Result, error) {
	if s.cancelRequested() {
		return nil, ErrCancelled
	}

	// Tie the request lifetime to both the caller's context and the
	// service-level cancel flag.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.currentCancelCtx(), cancel)
	defer stop()

	if onProgress != nil {
		onProgress(fmt.Sprintf("検索開始: %s %s", postalCode, address))
	}

	body, err := json.Marshal(map[string]string{
		"postalCode": postalCode,
		"address":    address,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode lookup request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/lookup", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build lookup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if s.cancelRequested() || ctx.Err() != nil {
			return nil, ErrCancelled
		}
		// The sibling process being unreachable is exactly the class of
		// failure a session reset recovers from.
		return nil, NewTransientDriverError("lookup service unreachable", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewTransientDriverError("failed reading lookup response", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var result Result
		if err := json.Unmarshal(payload, &result); err != nil {
			return nil, fmt.Errorf("malformed lookup response: %w", err)
		}
		if onProgress != nil && result.Message != "" {
			onProgress(result.Message)
		}
		return &result, nil

	case http.StatusServiceUnavailable:
		werr := decodeWireError(payload)
		return nil, NewTransientDriverError(werr.Message, nil)

	case http.StatusConflict:
		// The sibling aborted the search because its cancel flag was set.
		return nil, ErrCancelled

	default:
		werr := decodeWireError(payload)
		return nil, fmt.Errorf("lookup failed with status %d: %s", resp.StatusCode, werr.Message)
	}
}

// ResetSession asks the sibling process to rebuild its browser session.
func (s *HTTPService) ResetSession(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/session/reset", nil)
	if err != nil {
		return fmt.Errorf("failed to build reset request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("session reset failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("session reset failed with status %d", resp.StatusCode)
	}

	s.logger.Info("lookup session reset")
	return nil
}

// RequestCancel aborts in-flight lookups and rejects new ones until
// ClearCancel is called. Repeated calls are no-ops.
func (s *HTTPService) RequestCancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelFn()
}

// ClearCancel re-arms the service after a cancellation. Repeated calls are
// no-ops.
func (s *HTTPService) ClearCancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelCtx.Err() != nil {
		s.cancelCtx, s.cancelFn = context.WithCancel(context.Background())
	}
}

func (s *HTTPService) currentCancelCtx() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelCtx
}

func (s *HTTPService) cancelRequested() bool {
	return s.currentCancelCtx().Err() != nil
}

func decodeWireError(payload []byte) wireError {
	var werr wireError
	if err := json.Unmarshal(payload, &werr); err != nil || werr.Message == "" {
		werr.Message = strings.TrimSpace(string(payload))
	}
	return werr
}
