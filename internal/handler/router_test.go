package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kensuke/heimdall/internal/metrics"
	"github.com/kensuke/heimdall/internal/middleware"
	"github.com/kensuke/heimdall/internal/model"
	"github.com/kensuke/heimdall/internal/session"
	"github.com/kensuke/heimdall/internal/token"
)

func testRouter(t *testing.T) (http.Handler, *token.Codec, *middleware.RateLimiter) {
	t.Helper()

	codec, err := token.NewCodec("test-secret", 7*24*time.Hour)
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}

	transport := session.NewTransport(session.CookieConfig{
		SameSite: http.SameSiteLaxMode,
		MaxAge:   604800,
	})

	rl := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(1000, 1000))
	t.Cleanup(rl.Stop)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	router := NewRouter(&RouterDeps{
		Logger:            slog.New(slog.NewJSONHandler(os.Stderr, nil)),
		CORSAllowedOrigin: "http://localhost:3000",
		CSRFConfig:        middleware.CSRFConfig{},
		GatekeeperConfig: middleware.GatekeeperConfig{
			PublicPrefixes: []string{"/login", "/signup", "/auth", "/api/public"},
			LoginPath:      "/login",
		},
		RateLimiter: rl,
		Transport:   transport,
		Verifier:    codec,
		AuthService: &mockAuthService{
			loginFn: func(ctx context.Context, email, password string) (*model.User, string, error) {
				return &model.User{ID: "user-1", Email: email}, "signed", nil
			},
			signupFn: func(ctx context.Context, fullName, phone, email, password string) (string, string, error) {
				return "user-1", "signed", nil
			},
		},
		OTPService: &mockOTPService{
			createFn: func(ctx context.Context, name, email string) (*model.OTP, error) {
				return &model.OTP{ID: "otp-1"}, nil
			},
			redeemFn: func(ctx context.Context, id, code string) error { return nil },
		},
		UserService: &mockUserService{
			getFn: func(ctx context.Context, id string) (*model.User, error) {
				return &model.User{ID: id, FullName: "山田太郎"}, nil
			},
		},
		Collector: collector,
		Gatherer:  reg,
	})

	return router, codec, rl
}

// ヘルスチェックは認証なしで到達できる
func TestRouter_Health_PubliclyReachable(t *testing.T) {
	router, _, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Result().StatusCode)
	}
}

// 保護ルートへの未認証アクセスはログインへリダイレクトされる
func TestRouter_ProtectedRoute_RedirectsWithoutToken(t *testing.T) {
	router, _, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
}

// 有効なトークンがあれば保護ルートに到達できる
func TestRouter_ProtectedRoute_PassesWithValidToken(t *testing.T) {
	router, codec, _ := testRouter(t)

	signed, err := codec.Mint(model.Claims{UserID: "user-1"})
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: signed})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body userResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.ID != "user-1" {
		t.Errorf("id = %q, want user-1", body.ID)
	}
}

// CSRFトークン取得エンドポイントは認証なしで到達できる
func TestRouter_CSRFToken_PubliclyReachable(t *testing.T) {
	router, _, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["token"] == "" {
		t.Error("token is empty")
	}
}

// CSRFトークンなしのPOSTは403になる
func TestRouter_Login_WithoutCSRF_Returns403(t *testing.T) {
	router, _, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", jsonBody(t, map[string]string{
		"email":    "taro@example.com",
		"password": "password123",
	}))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Result().StatusCode)
	}
}

// CSRFトークンのペアがそろったPOSTはハンドラーまで到達する
func TestRouter_Login_WithCSRF_Succeeds(t *testing.T) {
	router, _, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", jsonBody(t, map[string]string{
		"email":    "taro@example.com",
		"password": "password123",
	}))
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "csrf-abc"})
	req.Header.Set("X-CSRF-Token", "csrf-abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if c := sessionCookie(t, resp); c == nil || c.Value != "signed" {
		t.Errorf("session cookie = %v, want signed", c)
	}
}

// /metricsはPrometheusフォーマットを返す
func TestRouter_Metrics_Exposed(t *testing.T) {
	router, _, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Result().StatusCode)
	}
}
