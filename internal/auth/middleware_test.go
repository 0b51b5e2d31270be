package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler(t *testing.T, wantClaims bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ClaimsFromContext(r.Context()); ok != wantClaims {
			t.Fatalf("claims present = %v, want %v", ok, wantClaims)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_AcceptsBearerToken(t *testing.T) {
	secret := []byte("test-secret")
	token, err := Issue(secret, "ops", nil, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/stations/jazz/skip", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	Middleware(secret)(okHandler(t, true)).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMiddleware_Rejects(t *testing.T) {
	secret := []byte("test-secret")
	token, _ := Issue(secret, "ops", nil, time.Hour)

	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"no token", func(r *http.Request) {}},
		{"garbage", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }},
		{"basic scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic "+token) }},
		{"query token without upgrade", func(r *http.Request) {
			r.URL.RawQuery = "token=" + token
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/stations/jazz/skip", nil)
			tt.setup(req)
			rr := httptest.NewRecorder()
			Middleware(secret)(okHandler(t, true)).ServeHTTP(rr, req)
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}
			if rr.Header().Get("WWW-Authenticate") != "Bearer" {
				t.Fatal("missing WWW-Authenticate")
			}
		})
	}
}

func TestMiddleware_AcceptsQueryTokenForWebSocketUpgrade(t *testing.T) {
	secret := []byte("test-secret")
	token, _ := Issue(secret, "ops", nil, time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?token="+token, nil)
	req.Header.Set("Upgrade", "websocket")
	rr := httptest.NewRecorder()

	Middleware(secret)(okHandler(t, true)).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for websocket query token auth, got %d", rr.Code)
	}
}

func TestMiddleware_OpenWithoutSecret(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stations/jazz/skip", nil)
	rr := httptest.NewRecorder()
	Middleware(nil)(okHandler(t, false)).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !Permits(req, "jazz") {
		t.Fatal("open server should permit every station")
	}

	scoped := req.WithContext(WithClaims(req.Context(), &Claims{Stations: []string{"lofi"}}))
	if Permits(scoped, "jazz") {
		t.Fatal("scoped claims permitted another station")
	}
}
