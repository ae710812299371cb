package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kensuke/heimdall/internal/metrics"
	"github.com/kensuke/heimdall/internal/middleware"
	"github.com/kensuke/heimdall/internal/session"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	GatekeeperConfig  middleware.GatekeeperConfig
	RateLimiter       *middleware.RateLimiter

	// セッション
	Transport *session.Transport
	Verifier  TokenVerifier

	// サービス
	AuthService AuthServiceInterface
	OTPService  OTPServiceInterface
	UserService UserServiceInterface

	// メトリクス
	Collector *metrics.Collector
	Gatherer  prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → CORS → Gatekeeper → CSRF → RateLimit(General)
//
// ゲートキーパーは全ルートに適用され、公開/保護の分類はパスのみから決まる。
// 認証系エンドポイント（/auth/*）には認証専用レート制限を追加で適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	var recorder middleware.DecisionRecorder
	if deps.Collector != nil {
		recorder = deps.Collector
	}
	r.Use(middleware.NewGatekeeperMiddleware(deps.GatekeeperConfig, deps.Transport, deps.Verifier, recorder))
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
	r.Use(deps.RateLimiter.GeneralMiddleware())

	var authMetrics AuthMetricsRecorder
	if deps.Collector != nil {
		authMetrics = deps.Collector
	}
	authHandler := NewAuthHandler(deps.AuthService, deps.OTPService, deps.Verifier, deps.Transport, authMetrics)
	userHandler := NewUserHandler(deps.UserService, deps.Verifier, deps.Transport)

	// --- 認証系ルート（公開、認証専用レート制限を追加） ---
	r.Route("/auth", func(r chi.Router) {
		r.Use(deps.RateLimiter.AuthMiddleware())

		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)

		r.Route("/otp", func(r chi.Router) {
			r.Post("/", authHandler.CreateOTP)
			r.Post("/resend", authHandler.ResendOTP)
			r.Post("/verify", authHandler.VerifyOTP)
		})
	})

	// --- 保護ルート ---
	r.Route("/api/users", func(r chi.Router) {
		r.Get("/me", userHandler.Me)
		r.Patch("/me", userHandler.UpdateProfile)
		r.Put("/me/password", userHandler.UpdatePassword)
	})

	// --- 運用系ルート（常に公開） ---
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)
	r.Get("/health", healthHandler)
	if deps.Gatherer != nil {
		r.Get("/metrics", metrics.Handler(deps.Gatherer).ServeHTTP)
	}

	return r
}

// healthHandler はヘルスチェックエンドポイント。
// GET /health
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
