package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func authHandler(keys []string) http.Handler {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return BearerAuthMiddleware(keys)(next)
}

func TestBearerAuth_Disabled(t *testing.T) {
	h := authHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/universes/u1/search", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("no keys configured should pass through, got %d", rec.Code)
	}
}

func TestBearerAuth_ValidToken(t *testing.T) {
	h := authHandler([]string{"secret-1", "secret-2"})

	req := httptest.NewRequest(http.MethodGet, "/v1/universes/u1/search", nil)
	req.Header.Set("Authorization", "Bearer secret-2")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token rejected: %d", rec.Code)
	}
}

func TestBearerAuth_Rejections(t *testing.T) {
	h := authHandler([]string{"secret"})

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic secret"},
		{"wrong token", "Bearer nope"},
		{"bare token", "secret"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/universes/u1/search", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
			var body ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body.Code != CodeUnauthorized {
				t.Errorf("error code = %q, want %q", body.Code, CodeUnauthorized)
			}
		})
	}
}

func TestBearerAuth_ExemptPaths(t *testing.T) {
	h := authHandler([]string{"secret"})

	for _, path := range []string{"/health", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s should bypass auth, got %d", path, rec.Code)
		}
	}
}
