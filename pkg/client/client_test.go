package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/smartcontract/0xabc" {
			t.Errorf("Expected path /api/smartcontract/0xabc, got %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET method, got %s", r.Method)
		}
		if r.URL.RawQuery != "" {
			t.Errorf("Expected no query, got %s", r.URL.RawQuery)
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Expected Accept application/json, got %s", r.Header.Get("Accept"))
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("Expected X-Request-ID header")
		}

		w.Write([]byte(`{"address":"0xabc","verified":true}`))
	}))
	defer server.Close()

	client := New(server.URL+"/api/", "")
	resp, err := client.Get(context.Background(), "smartcontract/0xabc", url.Values{})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if string(resp) != `{"address":"0xabc","verified":true}` {
		t.Errorf("Get() = %s, want body unchanged", resp)
	}
}

func TestClient_GetWithParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "2" {
			t.Errorf("Expected page=2, got %s", r.URL.Query().Get("page"))
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := New(server.URL, "")
	if _, err := client.Get(context.Background(), "/smartcontract", url.Values{"page": {"2"}}); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
}

func TestClient_Post(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/smartcontract/verify/0xabc" {
			t.Errorf("Expected path /smartcontract/verify/0xabc, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST method, got %s", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected Content-Type application/json, got %s", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("X-API-Key") != "my-api-key" {
			t.Errorf("Expected X-API-Key header, got %s", r.Header.Get("X-API-Key"))
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if body["sourceCode"] != "contract A {}" {
			t.Errorf("Expected sourceCode to be forwarded, got %v", body["sourceCode"])
		}

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"verified":true}`))
	}))
	defer server.Close()

	client := New(server.URL, "my-api-key")
	resp, err := client.Post(context.Background(), "smartcontract/verify/0xabc", map[string]string{
		"sourceCode": "contract A {}",
	})
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if string(resp) != `{"verified":true}` {
		t.Errorf("Post() = %s", resp)
	}
}

func TestClient_NoAPIKeyHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["X-Api-Key"]; ok {
			t.Error("X-API-Key should not be sent without an API key")
		}
		if r.Header.Get("User-Agent") != "contractscan/test" {
			t.Errorf("Expected User-Agent contractscan/test, got %s", r.Header.Get("User-Agent"))
		}
	}))
	defer server.Close()

	client := New(server.URL, "", WithUserAgent("contractscan/test"))
	resp, err := client.Get(context.Background(), "smartcontract/0x1", nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resp != nil {
		t.Errorf("Get() = %s, want nil for empty body", resp)
	}
}

func TestClient_ErrorHandling(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{
				"code":    "NOT_FOUND",
				"message": "Smart contract not found",
			},
		})
	}))
	defer server.Close()

	client := New(server.URL, "")
	_, err := client.Get(context.Background(), "smartcontract/0xdead", nil)
	if err == nil {
		t.Fatal("Expected error for 404 response")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("APIError.StatusCode = %d, want 404", apiErr.StatusCode)
	}
	if apiErr.Code != "NOT_FOUND" {
		t.Errorf("APIError.Code = %s, want NOT_FOUND", apiErr.Code)
	}
	if apiErr.Error() != "NOT_FOUND: Smart contract not found" {
		t.Errorf("APIError.Error() = %s", apiErr.Error())
	}
}

func TestClient_ErrorFormats(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantCode    string
		wantMessage string
	}{
		{
			name:        "top-level message",
			status:      http.StatusBadRequest,
			body:        `{"message":"Invalid compiler version"}`,
			wantCode:    "HTTP_400",
			wantMessage: "Invalid compiler version",
		},
		{
			name:        "string error field",
			status:      http.StatusUnprocessableEntity,
			body:        `{"error":"bytecode mismatch"}`,
			wantCode:    "HTTP_422",
			wantMessage: "bytecode mismatch",
		},
		{
			name:        "plain text body",
			status:      http.StatusBadGateway,
			body:        "upstream unavailable",
			wantCode:    "HTTP_502",
			wantMessage: "upstream unavailable",
		},
		{
			name:        "empty body",
			status:      http.StatusInternalServerError,
			body:        "",
			wantCode:    "HTTP_500",
			wantMessage: "500 Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := New(server.URL, "").Post(context.Background(), "smartcontract/verify/0x1", nil)

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Expected APIError, got %T (%v)", err, err)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", apiErr.Code, tt.wantCode)
			}
			if apiErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMessage)
			}
		})
	}
}

func TestClient_LongErrorBodyKeepsValidUTF8(t *testing.T) {
	// 511 ASCII bytes put the cut inside the first multi-byte rune
	body := strings.Repeat("a", maxErrorBody-1) + strings.Repeat("é", 10)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(body))
	}))
	defer server.Close()

	_, err := New(server.URL, "").Get(context.Background(), "smartcontract/0x1", nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %T (%v)", err, err)
	}
	if !utf8.ValidString(apiErr.Message) {
		t.Errorf("Message is not valid UTF-8: %q", apiErr.Message)
	}
	if want := strings.Repeat("a", maxErrorBody-1) + "..."; apiErr.Message != want {
		t.Errorf("Message = %q, want %q", apiErr.Message, want)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "h"},
		{"héllo", 3, "hé"},
		{"日本", 4, "日"},
	}

	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(server.URL, "").Get(ctx, "smartcontract/0x1", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Get() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestClient_WithHTTPClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	var used bool
	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		used = true
		return http.DefaultTransport.RoundTrip(r)
	})}

	if _, err := New(server.URL, "", WithHTTPClient(hc)).Get(context.Background(), "x", nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !used {
		t.Error("custom HTTP client was not used")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
