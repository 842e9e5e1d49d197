package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/grpweb/grpweb/internal/session"
	"go.uber.org/zap"
)

const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerAccept        = "Accept"
	headerRequestID     = "X-Request-ID"
	jsonContentType     = "application/json"
	maxErrorBodyBytes   = 64 << 10
)

var (
	// ErrUnauthorized reports a 401 response. Outside of Login the session
	// has already been cleared when it is returned.
	ErrUnauthorized = errors.New("gateway: unauthorized")

	errMissingBaseURL      = errors.New("gateway: base url required")
	errMissingSessionStore = errors.New("gateway: session store required")
)

// RequestError describes any non-401 failure: a non-2xx response, a
// transport error, or an undecodable body.
type RequestError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("request failed: %d", e.StatusCode)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Config describes how the gateway reaches the API.
type Config struct {
	BaseURL    string
	Store      session.Store
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Gateway performs authenticated JSON requests against the API.
type Gateway struct {
	baseURL    string
	store      session.Store
	httpClient *http.Client
	logger     *zap.Logger
}

// New constructs a Gateway with validated configuration.
func New(cfg Config) (*Gateway, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errMissingBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("gateway: invalid base url: %w", err)
	}
	if cfg.Store == nil {
		return nil, errMissingSessionStore
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		baseURL:    baseURL,
		store:      cfg.Store,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Do sends body (when non-nil) as JSON to path and decodes a successful
// response into out (when non-nil).
func (g *Gateway) Do(ctx context.Context, method, path string, body any, out any) error {
	return g.send(ctx, method, path, body, out, true)
}

func (g *Gateway) send(ctx context.Context, method, path string, body any, out any, logoutOnUnauthorized bool) error {
	requestID := uuid.NewString()
	logger := g.logger.With(
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
	)

	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return &RequestError{Method: method, Path: path, Err: fmt.Errorf("encode request: %w", err)}
		}
		payload = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, payload)
	if err != nil {
		return &RequestError{Method: method, Path: path, Err: err}
	}
	request.Header.Set(headerContentType, jsonContentType)
	request.Header.Set(headerAccept, jsonContentType)
	request.Header.Set(headerRequestID, requestID)

	token, ok, err := g.store.Token(ctx)
	if err != nil {
		logger.Warn("session token unreadable", zap.Error(err))
	}
	if ok {
		request.Header.Set(headerAuthorization, "Bearer "+token)
	}

	response, err := g.httpClient.Do(request)
	if err != nil {
		logger.Debug("request transport failed", zap.Error(err))
		return &RequestError{Method: method, Path: path, Err: err}
	}
	defer response.Body.Close()

	logger.Debug("response received", zap.Int("status", response.StatusCode))

	if response.StatusCode == http.StatusUnauthorized {
		if !logoutOnUnauthorized {
			return ErrUnauthorized
		}
		if err := g.store.Logout(ctx); err != nil {
			logger.Error("failed to clear session after unauthorized response", zap.Error(err))
		}
		return ErrUnauthorized
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return &RequestError{
			Method:     method,
			Path:       path,
			StatusCode: response.StatusCode,
			Message:    readServerMessage(response.Body),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil
	}

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return &RequestError{Method: method, Path: path, StatusCode: response.StatusCode, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &RequestError{
			Method:     method,
			Path:       path,
			StatusCode: response.StatusCode,
			Err:        fmt.Errorf("decode response: %w", err),
		}
	}
	return nil
}

func readServerMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	if err != nil || len(data) == 0 {
		return ""
	}
	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return ""
	}
	return strings.TrimSpace(envelope.Message)
}
