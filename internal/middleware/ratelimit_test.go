package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func testRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(1.0 / 60.0),
		GeneralBurst:    3,
		AuthRate:        rate.Limit(1.0 / 60.0),
		AuthBurst:       2,
		CleanupInterval: time.Hour,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiter_General_BurstThenReject(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		req.RemoteAddr = "192.0.2.1:54321"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, w.Result().StatusCode)
		}
	}

	// バーストを超えた4リクエスト目は429
	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.RemoteAddr = "192.0.2.1:54321"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("Retry-After header not set")
	}
}

// 認証系バケットはAPI全般バケットとは独立に枯渇する
func TestRateLimiter_AuthBucket_IndependentOfGeneral(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	authHandler := rl.AuthMiddleware()(okHandler())
	generalHandler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "192.0.2.2:1000"
		w := httptest.NewRecorder()
		authHandler.ServeHTTP(w, req)
		if w.Result().StatusCode != http.StatusOK {
			t.Fatalf("auth request %d: status = %d, want 200", i+1, w.Result().StatusCode)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "192.0.2.2:1000"
	w := httptest.NewRecorder()
	authHandler.ServeHTTP(w, req)
	if w.Result().StatusCode != http.StatusTooManyRequests {
		t.Fatalf("auth status = %d, want 429", w.Result().StatusCode)
	}

	// 認証系が枯渇してもAPI全般は通る
	req2 := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req2.RemoteAddr = "192.0.2.2:1000"
	w2 := httptest.NewRecorder()
	generalHandler.ServeHTTP(w2, req2)
	if w2.Result().StatusCode != http.StatusOK {
		t.Errorf("general status = %d, want 200", w2.Result().StatusCode)
	}
}

// クライアントごとに独立したリミッターが割り当てられる
func TestRateLimiter_PerClientIsolation(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.AuthMiddleware()(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "192.0.2.10:1000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
	}

	// 別クライアントは制限されない
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "192.0.2.11:1000"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 for distinct client", w.Result().StatusCode)
	}
	if got := rl.AuthLimiterCount(); got != 2 {
		t.Errorf("AuthLimiterCount = %d, want 2", got)
	}
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{"remote addr host part", "192.0.2.1:54321", "", "192.0.2.1"},
		{"xff single", "10.0.0.1:1000", "203.0.113.5", "203.0.113.5"},
		{"xff chain takes first", "10.0.0.1:1000", "203.0.113.5, 10.0.0.2", "203.0.113.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := clientKey(req); got != tt.want {
				t.Errorf("clientKey = %q, want %q", got, tt.want)
			}
		})
	}
}
