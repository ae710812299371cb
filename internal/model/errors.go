// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, otp, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeTokenInvalid       = "TOKEN_INVALID"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodeOTPNotFound        = "OTP_NOT_FOUND"
	ErrCodeOTPExpired         = "OTP_EXPIRED"
	ErrCodeOTPAlreadyConsumed = "OTP_ALREADY_CONSUMED"
	ErrCodeOTPCodeMismatch    = "OTP_CODE_MISMATCH"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
)

// ドメインエラーのセンチネル値。
// サービス層はこれを返し、ハンドラー層でAPIErrorに変換する。
var (
	// ErrUnauthorized は認証失敗を表す。
	// アカウント列挙を防ぐため「メール未登録」と「パスワード不一致」を区別しない。
	ErrUnauthorized = errors.New("invalid email or password")

	// ErrEmailTaken はメールアドレスの一意制約違反を表す。
	ErrEmailTaken = errors.New("email is already registered")

	// ErrOTPNotFound は指定IDのOTPが存在しないことを表す。
	ErrOTPNotFound = errors.New("otp not found")

	// ErrOTPExpired はOTPの有効期限切れを表す。
	ErrOTPExpired = errors.New("otp has expired")

	// ErrOTPAlreadyConsumed はOTPが消費済みであることを表す。
	ErrOTPAlreadyConsumed = errors.New("otp has already been consumed")

	// ErrOTPCodeMismatch は入力コードと保存コードの不一致を表す。
	ErrOTPCodeMismatch = errors.New("otp code does not match")

	// ErrUserNotFound は指定IDのユーザーが存在しないことを表す。
	ErrUserNotFound = errors.New("user not found")
)

// NewUnauthorizedError は認証失敗エラーを生成する。
// 原因（メール未登録/パスワード不一致）はログにのみ残し、レスポンスでは区別しない。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewTokenInvalidError はトークン無効エラーを生成する。
func NewTokenInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenInvalid,
		Message:  "セッションが無効です。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewOTPNotFoundError はOTP未検出エラーを生成する。
func NewOTPNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeOTPNotFound,
		Message:  "確認コードが見つかりません。",
		Category: "otp",
		Action:   "コードを再送信してください。",
	}
}

// NewOTPExpiredError はOTP期限切れエラーを生成する。
func NewOTPExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeOTPExpired,
		Message:  "確認コードの有効期限が切れています。",
		Category: "otp",
		Action:   "コードを再送信してください。",
	}
}

// NewOTPAlreadyConsumedError はOTP消費済みエラーを生成する。
func NewOTPAlreadyConsumedError() *APIError {
	return &APIError{
		Code:     ErrCodeOTPAlreadyConsumed,
		Message:  "この確認コードは既に使用されています。",
		Category: "otp",
		Action:   "コードを再送信してください。",
	}
}

// NewOTPCodeMismatchError はOTPコード不一致エラーを生成する。
func NewOTPCodeMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodeOTPCodeMismatch,
		Message:  "確認コードが正しくありません。",
		Category: "otp",
		Action:   "メールに記載されたコードを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
