package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kensuke/heimdall/internal/middleware"
	"github.com/kensuke/heimdall/internal/model"
	"github.com/kensuke/heimdall/internal/session"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Get は指定IDのユーザーを取得する。
	Get(ctx context.Context, id string) (*model.User, error)
	// UpdateProfile は表示名と電話番号を更新する。
	UpdateProfile(ctx context.Context, id, fullName, phone string) error
	// UpdatePassword はパスワードを更新する。
	UpdatePassword(ctx context.Context, id, newPassword string) error
}

// UserHandler はユーザープロフィール管理のHTTPハンドラー。
// 対象ユーザーはCookieのトークンから導出する。URLでのID指定は受け付けない。
type UserHandler struct {
	service   UserServiceInterface
	verifier  TokenVerifier
	transport *session.Transport
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, verifier TokenVerifier, transport *session.Transport) *UserHandler {
	return &UserHandler{
		service:   service,
		verifier:  verifier,
		transport: transport,
	}
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
type updateProfileRequest struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

// updatePasswordRequest はパスワード更新リクエストのボディ。
type updatePasswordRequest struct {
	Password string `json:"password"`
}

// Me は現在のユーザーのプロフィールをストレージから取得して返す。
// トークンにキャッシュされた表示フィールドと違い、常に最新の値を返す。
// GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUserID(r)
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenInvalidError())
		return
	}

	user, err := h.service.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// UpdateProfile は表示名と電話番号を更新する。
// PATCH /api/users/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUserID(r)
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenInvalidError())
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	if strings.TrimSpace(req.FullName) == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("氏名は必須です"))
		return
	}

	if err := h.service.UpdateProfile(r.Context(), userID, req.FullName, req.Phone); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdatePassword はパスワードを更新する。
// PUT /api/users/me/password
func (h *UserHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUserID(r)
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenInvalidError())
		return
	}

	var req updatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	if len(req.Password) < 8 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("パスワードは8文字以上にしてください"))
		return
	}

	if err := h.service.UpdatePassword(r.Context(), userID, req.Password); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// currentUserID はCookieのトークンを検証してユーザーIDを返す。
func (h *UserHandler) currentUserID(r *http.Request) (string, bool) {
	tokenString, ok := h.transport.Read(r)
	if !ok {
		return "", false
	}
	claims, err := h.verifier.Verify(tokenString)
	if err != nil {
		return "", false
	}
	return claims.UserID, true
}
