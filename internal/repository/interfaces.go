// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/kensuke/heimdall/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレス完全一致でユーザーを検索する。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// email一意制約違反の場合はmodel.ErrEmailTakenを返す。
	Create(ctx context.Context, user *model.User) error

	// UpdateProfile は表示名と電話番号を更新する。
	// 対象ユーザーが存在しない場合はmodel.ErrUserNotFoundを返す。
	UpdateProfile(ctx context.Context, id, fullName, phone string) error

	// UpdatePassword はパスワードダイジェストを更新する。
	// 対象ユーザーが存在しない場合はmodel.ErrUserNotFoundを返す。
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// OTPRepository はワンタイムパスワードの永続化インターフェース。
type OTPRepository interface {
	// Create はOTPレコードを作成する。
	Create(ctx context.Context, otp *model.OTP) error

	// FindByID は指定IDのOTPを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.OTP, error)

	// ConsumeByID は未消費のOTPを消費済みに遷移させる。
	// 条件付きUPDATE（is_consumed = FALSEの行のみ）で実行し、
	// 遷移できた場合にtrueを返す。既に消費済みの場合はfalseを返す。
	// 同一IDへの並行呼び出しでtrueを得るのは必ず1つだけになる。
	ConsumeByID(ctx context.Context, id string) (bool, error)

	// DeleteExpiredBefore は有効期限が指定時刻より前のOTPを物理削除し、
	// 削除件数を返す。クリーンアップワーカーから呼ぶ。
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
