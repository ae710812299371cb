// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashは認証処理の内部でのみ参照し、APIレスポンスには含めない。
type User struct {
	ID           string
	FullName     string
	Email        string
	Phone        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OTP はサインアップ検証用のワンタイムパスワードを表す。
// ユーザーには紐付かず、IDをクライアントが保持して照合に使う。
type OTP struct {
	ID         string
	Code       string
	ExpiresAt  time.Time
	IsConsumed bool
	IsVerified bool
	CreatedAt  time.Time
}

// IsExpired は指定時刻時点でOTPが期限切れかどうかを返す。
// 有効期限ちょうどの時刻は期限切れとして扱う。
func (o *OTP) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// Claims はセッショントークンに埋め込むクレームセットを表す。
// 表示用フィールド（FullName, Email, Phone）はレンダリングコスト削減のための
// キャッシュであり、真正のデータはusersテーブルが持つ。
type Claims struct {
	UserID   string
	FullName string
	Email    string
	Phone    string
	IssuedAt time.Time
	Expiry   time.Time
}
