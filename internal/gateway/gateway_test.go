package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/grpweb/grpweb/internal/session"
)

type positionPayload struct {
	PositionID   *int64 `json:"position_id,omitempty"`
	PositionCode string `json:"position_code"`
	PositionName string `json:"position_name"`
}

func newTestGateway(t *testing.T, handler http.HandlerFunc, token string) (*Gateway, *session.MemoryStore) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := session.NewMemoryStore(token)
	gateway, err := New(Config{BaseURL: server.URL + "/", Store: store, HTTPClient: server.Client()})
	if err != nil {
		t.Fatalf("failed to construct gateway: %v", err)
	}
	return gateway, store
}

func TestDoAttachesBearerTokenAndBody(t *testing.T) {
	var (
		gotAuthorization string
		gotRequestID     string
		gotContentType   string
		gotBody          positionPayload
	)
	gateway, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuthorization = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"position_id":1,"position_code":"PRES","position_name":"President"}`)
	}, "token-123")

	var created positionPayload
	err := gateway.Do(context.Background(), http.MethodPost, "/positions",
		positionPayload{PositionCode: "PRES", PositionName: "President"}, &created)
	if err != nil {
		t.Fatalf("unexpected request error: %v", err)
	}
	if gotAuthorization != "Bearer token-123" {
		t.Fatalf("unexpected authorization header %q", gotAuthorization)
	}
	if gotRequestID == "" {
		t.Fatalf("expected request id header")
	}
	if gotContentType != "application/json" {
		t.Fatalf("unexpected content type %q", gotContentType)
	}
	if gotBody.PositionCode != "PRES" || gotBody.PositionID != nil {
		t.Fatalf("unexpected request body %+v", gotBody)
	}
	if created.PositionID == nil || *created.PositionID != 1 {
		t.Fatalf("expected decoded identifier, got %+v", created)
	}
}

func TestDoOmitsAuthorizationWithoutSession(t *testing.T) {
	var hasAuthorization bool
	gateway, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, hasAuthorization = r.Header["Authorization"]
		_, _ = io.WriteString(w, `[]`)
	}, "")

	var records []positionPayload
	if err := gateway.Do(context.Background(), http.MethodGet, "/positions", nil, &records); err != nil {
		t.Fatalf("unexpected request error: %v", err)
	}
	if hasAuthorization {
		t.Fatalf("expected no authorization header without a session")
	}
}

func TestDoClearsSessionOnUnauthorized(t *testing.T) {
	gateway, store := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"unauthorized"}`)
	}, "stale-token")

	err := gateway.Do(context.Background(), http.MethodDelete, "/messages/5", nil, nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
	if _, ok, _ := store.Token(context.Background()); ok {
		t.Fatalf("expected session to be cleared after 401")
	}
}

func TestDoSurfacesServerMessage(t *testing.T) {
	gateway, store := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"error":"duplicate","message":"position code already exists"}`)
	}, "token")

	err := gateway.Do(context.Background(), http.MethodPost, "/positions", positionPayload{}, nil)
	var requestErr *RequestError
	if !errors.As(err, &requestErr) {
		t.Fatalf("expected request error, got %v", err)
	}
	if requestErr.StatusCode != http.StatusConflict {
		t.Fatalf("unexpected status %d", requestErr.StatusCode)
	}
	if requestErr.Error() != "position code already exists" {
		t.Fatalf("unexpected message %q", requestErr.Error())
	}
	if _, ok, _ := store.Token(context.Background()); !ok {
		t.Fatalf("non-401 failures must keep the session")
	}
}

func TestDoReportsStatusWithoutMessage(t *testing.T) {
	gateway, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `oops`)
	}, "token")

	err := gateway.Do(context.Background(), http.MethodGet, "/messages", nil, nil)
	var requestErr *RequestError
	if !errors.As(err, &requestErr) {
		t.Fatalf("expected request error, got %v", err)
	}
	if requestErr.Message != "" {
		t.Fatalf("expected no server message, got %q", requestErr.Message)
	}
	if requestErr.Error() != "request failed: 500" {
		t.Fatalf("unexpected error text %q", requestErr.Error())
	}
}

func TestDoTreatsDecodeFailureAsRequestError(t *testing.T) {
	gateway, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"truncated":`)
	}, "token")

	var records []positionPayload
	err := gateway.Do(context.Background(), http.MethodGet, "/positions", nil, &records)
	var requestErr *RequestError
	if !errors.As(err, &requestErr) {
		t.Fatalf("expected request error, got %v", err)
	}
	if requestErr.Err == nil {
		t.Fatalf("expected wrapped decode error")
	}
}

func TestDoTreatsTransportFailureAsRequestError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	gateway, err := New(Config{BaseURL: baseURL, Store: session.NewMemoryStore("token")})
	if err != nil {
		t.Fatalf("failed to construct gateway: %v", err)
	}
	err = gateway.Do(context.Background(), http.MethodGet, "/messages", nil, nil)
	var requestErr *RequestError
	if !errors.As(err, &requestErr) {
		t.Fatalf("expected request error, got %v", err)
	}
}

func TestDoAcceptsEmptySuccessBody(t *testing.T) {
	gateway, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, "token")

	var out map[string]any
	if err := gateway.Do(context.Background(), http.MethodDelete, "/positions/1", nil, &out); err != nil {
		t.Fatalf("unexpected error for empty body: %v", err)
	}
}

func TestNewRequiresBaseURLAndStore(t *testing.T) {
	if _, err := New(Config{Store: session.NewMemoryStore("")}); err == nil {
		t.Fatalf("expected error for missing base url")
	}
	if _, err := New(Config{BaseURL: "http://localhost"}); err == nil {
		t.Fatalf("expected error for missing store")
	}
}
