// Package token はセッショントークンの発行と検証を提供する。
// トークンはHMAC-SHA256で署名された自己完結型のクレームセットであり、
// サーバー側にセッション状態を持たない。失効リストがないため、
// 発行済みトークンは有効期限まで有効であり続ける。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kensuke/heimdall/internal/model"
)

// 検証失敗の種別。ゲートキーパーはどちらもリダイレクトとして扱うが、
// ログとメトリクスでは区別する。
var (
	// ErrTokenExpired はトークンの有効期限切れを表す。
	ErrTokenExpired = errors.New("token has expired")
	// ErrTokenInvalid は署名不一致・改ざん・不正フォーマットを表す。
	ErrTokenInvalid = errors.New("token is invalid")
)

// customClaims はJWTペイロードの内部表現。
// 標準クレーム（sub, iat, exp）に表示用フィールドを加える。
type customClaims struct {
	jwt.RegisteredClaims
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// Codec はセッショントークンの発行・検証を行う。
// 署名シークレットは構築時に注入し、プロセス起動後は変更しない。
// シークレットをローテーションすると既存トークンはすべて無効になる。
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec はCodecを生成する。シークレットが空の場合はエラーを返す
// （署名不能なCodecは構成エラーであり、起動時に検出すべきであるため）。
func NewCodec(secret string, ttl time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token: signing secret must not be empty")
	}
	return &Codec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock は現在時刻関数を差し替えたCodecを返す。
// テストで有効期限を決定的に検証するために使う。
func (c *Codec) WithClock(now func() time.Time) *Codec {
	clone := *c
	clone.now = now
	return &clone
}

// Mint はクレームセットから署名済みトークンを発行する。
// 有効期限は現在時刻 + TTL（既定7日）で固定される。
func (c *Codec) Mint(claims model.Claims) (string, error) {
	now := c.now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, customClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		FullName: claims.FullName,
		Email:    claims.Email,
		Phone:    claims.Phone,
	})

	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Verify はトークンを検証し、クレームセットを返す。
// 署名不一致・改ざん・不正フォーマットはErrTokenInvalid、
// 有効期限切れはErrTokenExpiredを返す。
func (c *Codec) Verify(tokenString string) (*model.Claims, error) {
	claims := &customClaims{}

	parsed, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	out := &model.Claims{
		UserID:   claims.Subject,
		FullName: claims.FullName,
		Email:    claims.Email,
		Phone:    claims.Phone,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.Expiry = claims.ExpiresAt.Time
	}

	return out, nil
}
