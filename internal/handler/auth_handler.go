// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kensuke/heimdall/internal/middleware"
	"github.com/kensuke/heimdall/internal/model"
	"github.com/kensuke/heimdall/internal/session"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Login は資格情報を検証し、ユーザーと署名済みトークンを返す。
	Login(ctx context.Context, email, password string) (*model.User, string, error)
	// Signup は新規ユーザーを作成し、新規IDと署名済みトークンを返す。
	Signup(ctx context.Context, fullName, phone, email, password string) (string, string, error)
}

// OTPServiceInterface はOTPハンドラーが必要とするサービスインターフェース。
type OTPServiceInterface interface {
	// Create は新しいOTPを発行し、メールで配送する。
	Create(ctx context.Context, recipientName, recipientEmail string) (*model.OTP, error)
	// Redeem はOTPを検証し、成功時に消費済みへ遷移させる。
	Redeem(ctx context.Context, id, suppliedCode string) error
}

// TokenVerifier はCookieのトークンからクレームを導出するインターフェース。
type TokenVerifier interface {
	Verify(tokenString string) (*model.Claims, error)
}

// AuthMetricsRecorder は認証系メトリクス記録のインターフェース。
// metrics.Collectorの部分集合として定義する。
type AuthMetricsRecorder interface {
	RecordLoginSuccess()
	RecordLoginFailure()
	RecordSignup()
	RecordOTPIssued()
	RecordOTPRedeem(result string)
}

// AuthHandler は認証・OTP関連のHTTPハンドラー。
type AuthHandler struct {
	auth      AuthServiceInterface
	otp       OTPServiceInterface
	verifier  TokenVerifier
	transport *session.Transport
	metrics   AuthMetricsRecorder
}

// NewAuthHandler はAuthHandlerを生成する。metricsはnil可。
func NewAuthHandler(auth AuthServiceInterface, otp OTPServiceInterface, verifier TokenVerifier, transport *session.Transport, metrics AuthMetricsRecorder) *AuthHandler {
	return &AuthHandler{
		auth:      auth,
		otp:       otp,
		verifier:  verifier,
		transport: transport,
		metrics:   metrics,
	}
}

// signupRequest はユーザー登録リクエストのボディ。
type signupRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// createOTPRequest はOTP発行・再送リクエストのボディ。
type createOTPRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// verifyOTPRequest はOTP検証リクエストのボディ。
type verifyOTPRequest struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

// userResponse はユーザー情報のAPIレスポンス。パスワード関連は含めない。
type userResponse struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// Signup はユーザー登録を処理する。
// 成功時はセッションCookieを設定し、作成されたユーザーIDを返す。
// POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	if reason := validateSignup(&req); reason != "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError(reason))
		return
	}

	userID, signed, err := h.auth.Signup(r.Context(), req.FullName, req.Phone, req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.transport.Attach(w, signed)
	if h.metrics != nil {
		h.metrics.RecordSignup()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": userID})
}

// Login は資格情報を検証し、成功時にセッションCookieを設定する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	if req.Email == "" || req.Password == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("メールアドレスとパスワードは必須です"))
		return
	}

	user, signed, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if h.metrics != nil && errors.Is(err, model.ErrUnauthorized) {
			h.metrics.RecordLoginFailure()
		}
		handleServiceError(w, err)
		return
	}

	h.transport.Attach(w, signed)
	if h.metrics != nil {
		h.metrics.RecordLoginSuccess()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// Logout はセッションCookieを削除する。
// トークンはステートレスなのでサーバー側の破棄対象はない。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.transport.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のログインユーザー情報をトークンのクレームから返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.currentClaims(r)
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenInvalidError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(userResponse{
		ID:       claims.UserID,
		FullName: claims.FullName,
		Email:    claims.Email,
		Phone:    claims.Phone,
	})
}

// CreateOTP は確認コードを発行し、メールで配送する。
// POST /auth/otp
func (h *AuthHandler) CreateOTP(w http.ResponseWriter, r *http.Request) {
	h.issueOTP(w, r)
}

// ResendOTP は確認コードを再送する。
// 再送は常に新規コードの発行であり、旧コードは期限まで有効なまま残る。
// POST /auth/otp/resend
func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	h.issueOTP(w, r)
}

func (h *AuthHandler) issueOTP(w http.ResponseWriter, r *http.Request) {
	var req createOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	if req.Email == "" || !strings.Contains(req.Email, "@") {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("メールアドレスが正しくありません"))
		return
	}

	record, err := h.otp.Create(r.Context(), req.Name, req.Email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordOTPIssued()
	}

	// コード自体はメールでのみ届く。レスポンスにはIDだけを返す。
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": record.ID})
}

// VerifyOTP は確認コードを検証し、成功時に消費済みへ遷移させる。
// POST /auth/otp/verify
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	if req.ID == "" || req.Code == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("IDとコードは必須です"))
		return
	}

	if err := h.otp.Redeem(r.Context(), req.ID, req.Code); err != nil {
		h.recordRedeem(err)
		handleServiceError(w, err)
		return
	}

	h.recordRedeem(nil)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"verified": true})
}

// currentClaims はCookieのトークンを検証してクレームを返す。
// ゲートキーパーはクレームを注入しないため、ハンドラーが読み直す。
func (h *AuthHandler) currentClaims(r *http.Request) (*model.Claims, bool) {
	tokenString, ok := h.transport.Read(r)
	if !ok {
		return nil, false
	}
	claims, err := h.verifier.Verify(tokenString)
	if err != nil {
		return nil, false
	}
	return claims, true
}

func (h *AuthHandler) recordRedeem(err error) {
	if h.metrics == nil {
		return
	}
	switch {
	case err == nil:
		h.metrics.RecordOTPRedeem("success")
	case errors.Is(err, model.ErrOTPNotFound):
		h.metrics.RecordOTPRedeem("not_found")
	case errors.Is(err, model.ErrOTPExpired):
		h.metrics.RecordOTPRedeem("expired")
	case errors.Is(err, model.ErrOTPAlreadyConsumed):
		h.metrics.RecordOTPRedeem("already_consumed")
	case errors.Is(err, model.ErrOTPCodeMismatch):
		h.metrics.RecordOTPRedeem("code_mismatch")
	default:
		h.metrics.RecordOTPRedeem("error")
	}
}

// validateSignup は登録入力の必須チェックを行う。
// 問題があれば理由を、なければ空文字列を返す。
func validateSignup(req *signupRequest) string {
	if req.FullName == "" {
		return "氏名は必須です"
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return "メールアドレスが正しくありません"
	}
	if len(req.Password) < 8 {
		return "パスワードは8文字以上にしてください"
	}
	return ""
}

// toUserResponse はmodel.UserからAPIレスポンスに変換する。
func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:       user.ID,
		FullName: user.FullName,
		Email:    user.Email,
		Phone:    user.Phone,
	}
}

// writeInvalidRequest はJSON解析失敗の統一レスポンスを書き込む。
func writeInvalidRequest(w http.ResponseWriter) {
	middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// センチネルエラーをAPIErrorへマッピングし、それ以外は内部エラーとして扱う。
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrUnauthorized):
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
	case errors.Is(err, model.ErrEmailTaken):
		middleware.WriteErrorResponse(w, http.StatusConflict, model.NewEmailTakenError())
	case errors.Is(err, model.ErrOTPNotFound):
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewOTPNotFoundError())
	case errors.Is(err, model.ErrOTPExpired):
		middleware.WriteErrorResponse(w, http.StatusGone, model.NewOTPExpiredError())
	case errors.Is(err, model.ErrOTPAlreadyConsumed):
		middleware.WriteErrorResponse(w, http.StatusConflict, model.NewOTPAlreadyConsumedError())
	case errors.Is(err, model.ErrOTPCodeMismatch):
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewOTPCodeMismatchError())
	case errors.Is(err, model.ErrUserNotFound):
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError())
	default:
		slog.Error("internal server error", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
	}
}
