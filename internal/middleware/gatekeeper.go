// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kensuke/heimdall/internal/model"
	"github.com/kensuke/heimdall/internal/session"
	"github.com/kensuke/heimdall/internal/token"
)

// Decision はゲートキーパーのリクエスト単位の判定結果を表す。
type Decision string

const (
	// DecisionPublicPass は公開ルートの素通しを表す。
	DecisionPublicPass Decision = "public_pass"
	// DecisionNoTokenRedirect はトークン不在によるリダイレクトを表す。
	DecisionNoTokenRedirect Decision = "no_token_redirect"
	// DecisionInvalidTokenRedirect はトークン無効（改ざん・期限切れ・不正
	// フォーマット）によるリダイレクトを表す。外部挙動はトークン不在と同じ。
	DecisionInvalidTokenRedirect Decision = "invalid_token_redirect"
	// DecisionAuthenticatedPass は認証済みリクエストの素通しを表す。
	DecisionAuthenticatedPass Decision = "authenticated_pass"
)

// alwaysPublicPrefixes は設定に関わらず常に公開扱いするパス。
// ログインページ自身の静的依存やヘルスチェックをゲートすると
// リダイレクトループになるため、フレームワーク・アセット系は素通しする。
var alwaysPublicPrefixes = []string{
	"/static",
	"/favicon.ico",
	"/health",
	"/metrics",
	"/api/csrf-token",
}

// TokenVerifier はゲートキーパーが必要とするトークン検証インターフェース。
// token.Codecの部分集合として定義する。
type TokenVerifier interface {
	Verify(tokenString string) (*model.Claims, error)
}

// DecisionRecorder はゲートキーパーの判定結果を記録するインターフェース。
// metrics.Collectorの部分集合として定義する。
type DecisionRecorder interface {
	RecordGatekeeperDecision(decision string)
}

// GatekeeperConfig はゲートキーパーの設定。
type GatekeeperConfig struct {
	// PublicPrefixes は公開ルートのプレフィックスリスト。
	// 先頭から順に評価し、最初に一致したものが勝つ。
	PublicPrefixes []string
	// LoginPath は未認証リクエストのリダイレクト先。
	LoginPath string
}

// NewGatekeeperMiddleware は全ルートを公開/保護に分類し、
// 保護ルートへの未認証アクセスをログインへリダイレクトするミドルウェアを返す。
//
// 判定はリクエスト単体から決まり、リクエスト間で状態を共有しない:
//
//  1. パスが公開プレフィックスに一致 → 素通し
//  2. Cookieにトークンがない → ログインへリダイレクト
//  3. トークンの検証に失敗（改ざん・期限切れ） → ログインへリダイレクト
//  4. 検証成功 → 素通し（クレーム注入は行わない。
//     後段ハンドラーはCookieを読み直してユーザーを導出する）
//
// 認証失敗がこの層で5xxになることはない。常にリダイレクトへ退避する。
func NewGatekeeperMiddleware(config GatekeeperConfig, transport *session.Transport, verifier TokenVerifier, recorder DecisionRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. ルート分類
			if isPublicPath(r.URL.Path, config.PublicPrefixes) {
				record(recorder, DecisionPublicPass)
				next.ServeHTTP(w, r)
				return
			}

			// 2. トークン取得
			tokenString, ok := transport.Read(r)
			if !ok {
				slog.Info("gatekeeper: no token",
					slog.String("path", r.URL.Path),
				)
				record(recorder, DecisionNoTokenRedirect)
				http.Redirect(w, r, config.LoginPath, http.StatusTemporaryRedirect)
				return
			}

			// 3. トークン検証
			if _, err := verifier.Verify(tokenString); err != nil {
				// 期限切れと改ざんはログ・メトリクス上でのみ区別する
				reason := "invalid"
				if errors.Is(err, token.ErrTokenExpired) {
					reason = "expired"
				}
				slog.Warn("gatekeeper: token rejected",
					slog.String("path", r.URL.Path),
					slog.String("reason", reason),
				)
				record(recorder, DecisionInvalidTokenRedirect)
				http.Redirect(w, r, config.LoginPath, http.StatusTemporaryRedirect)
				return
			}

			// 4. 認証済み
			record(recorder, DecisionAuthenticatedPass)
			next.ServeHTTP(w, r)
		})
	}
}

// isPublicPath はパスを公開/保護に分類する。
// 純粋関数であり、パス文字列のみから決まる。
func isPublicPath(path string, publicPrefixes []string) bool {
	for _, prefix := range alwaysPublicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func record(recorder DecisionRecorder, decision Decision) {
	if recorder != nil {
		recorder.RecordGatekeeperDecision(string(decision))
	}
}
