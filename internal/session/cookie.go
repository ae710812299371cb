// Package session はセッショントークンのCookie入出力を提供する。
// ヘッダー操作のみを行い、I/Oや副作用を持たない。
package session

import "net/http"

// CookieName はセッショントークンを保持するCookieの名前。
const CookieName = "token"

// CookieConfig はセッションCookieの属性設定。
// SameSite=Noneはフロントエンドを別オリジンに置くデプロイ構成向けで、
// クロスサイト送信を許す分、露出が広がる。同一オリジン構成ではLaxを使う。
type CookieConfig struct {
	Domain   string
	Secure   bool
	SameSite http.SameSite
	MaxAge   int // 秒。トークンの有効期間と揃える
}

// Transport はセッショントークンをCookieとして読み書きする。
type Transport struct {
	config CookieConfig
}

// NewTransport はTransportを生成する。
func NewTransport(config CookieConfig) *Transport {
	return &Transport{config: config}
}

// Attach はトークンをHTTP OnlyのセッションCookieとしてレスポンスに設定する。
func (t *Transport) Attach(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Domain:   t.config.Domain,
		MaxAge:   t.config.MaxAge,
		HttpOnly: true,
		Secure:   t.config.Secure,
		SameSite: t.config.SameSite,
	})
}

// Read はリクエストからセッショントークンを取り出す。
// Cookieが存在しない場合は空文字列とfalseを返す。
func (t *Transport) Read(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// Clear はセッションCookieを削除する（ログアウト）。
func (t *Transport) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Domain:   t.config.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   t.config.Secure,
		SameSite: t.config.SameSite,
	})
}
