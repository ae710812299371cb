package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kensuke/heimdall/internal/model"
	"github.com/kensuke/heimdall/internal/session"
)

type mockUserService struct {
	getFn            func(ctx context.Context, id string) (*model.User, error)
	updateProfileFn  func(ctx context.Context, id, fullName, phone string) error
	updatePasswordFn func(ctx context.Context, id, newPassword string) error
}

func (m *mockUserService) Get(ctx context.Context, id string) (*model.User, error) {
	return m.getFn(ctx, id)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, id, fullName, phone string) error {
	return m.updateProfileFn(ctx, id, fullName, phone)
}

func (m *mockUserService) UpdatePassword(ctx context.Context, id, newPassword string) error {
	return m.updatePasswordFn(ctx, id, newPassword)
}

func authedVerifier(userID string) *mockVerifier {
	return &mockVerifier{
		verifyFn: func(tokenString string) (*model.Claims, error) {
			return &model.Claims{UserID: userID}, nil
		},
	}
}

func authedRequest(t *testing.T, method, path string, body map[string]string) *http.Request {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, jsonBody(t, body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "signed-token"})
	return req
}

func TestUserMe_ReturnsStoredProfile(t *testing.T) {
	svc := &mockUserService{
		getFn: func(ctx context.Context, id string) (*model.User, error) {
			if id != "user-1" {
				t.Errorf("id = %q, want user-1", id)
			}
			return &model.User{
				ID:       "user-1",
				FullName: "山田太郎",
				Email:    "taro@example.com",
				Phone:    "090-0000-0000",
			}, nil
		},
	}
	h := NewUserHandler(svc, authedVerifier("user-1"), testTransport())

	w := httptest.NewRecorder()
	h.Me(w, authedRequest(t, http.MethodGet, "/api/users/me", nil))

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body userResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.ID != "user-1" || body.FullName != "山田太郎" {
		t.Errorf("body = %+v", body)
	}
}

func TestUserMe_NoToken_Returns401(t *testing.T) {
	h := NewUserHandler(&mockUserService{}, &mockVerifier{}, testTransport())

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	w := httptest.NewRecorder()
	h.Me(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Result().StatusCode)
	}
}

func TestUserMe_UserDeleted_Returns404(t *testing.T) {
	svc := &mockUserService{
		getFn: func(ctx context.Context, id string) (*model.User, error) {
			return nil, model.ErrUserNotFound
		},
	}
	h := NewUserHandler(svc, authedVerifier("user-gone"), testTransport())

	w := httptest.NewRecorder()
	h.Me(w, authedRequest(t, http.MethodGet, "/api/users/me", nil))

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Result().StatusCode)
	}
}

func TestUpdateProfile_Success(t *testing.T) {
	var gotName, gotPhone string
	svc := &mockUserService{
		updateProfileFn: func(ctx context.Context, id, fullName, phone string) error {
			gotName, gotPhone = fullName, phone
			return nil
		},
	}
	h := NewUserHandler(svc, authedVerifier("user-1"), testTransport())

	w := httptest.NewRecorder()
	h.UpdateProfile(w, authedRequest(t, http.MethodPatch, "/api/users/me", map[string]string{
		"full_name": "山田次郎",
		"phone":     "080-1111-2222",
	}))

	if w.Result().StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Result().StatusCode)
	}
	if gotName != "山田次郎" || gotPhone != "080-1111-2222" {
		t.Errorf("service received (%q, %q)", gotName, gotPhone)
	}
}

func TestUpdateProfile_EmptyName_Returns400(t *testing.T) {
	svc := &mockUserService{
		updateProfileFn: func(ctx context.Context, id, fullName, phone string) error {
			t.Fatal("service should not be called")
			return nil
		},
	}
	h := NewUserHandler(svc, authedVerifier("user-1"), testTransport())

	w := httptest.NewRecorder()
	h.UpdateProfile(w, authedRequest(t, http.MethodPatch, "/api/users/me", map[string]string{
		"full_name": "   ",
	}))

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Result().StatusCode)
	}
}

func TestUpdatePassword_Success(t *testing.T) {
	var gotPassword string
	svc := &mockUserService{
		updatePasswordFn: func(ctx context.Context, id, newPassword string) error {
			gotPassword = newPassword
			return nil
		},
	}
	h := NewUserHandler(svc, authedVerifier("user-1"), testTransport())

	w := httptest.NewRecorder()
	h.UpdatePassword(w, authedRequest(t, http.MethodPut, "/api/users/me/password", map[string]string{
		"password": "new-password-123",
	}))

	if w.Result().StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Result().StatusCode)
	}
	if gotPassword != "new-password-123" {
		t.Errorf("service received %q", gotPassword)
	}
}

func TestUpdatePassword_TooShort_Returns400(t *testing.T) {
	svc := &mockUserService{
		updatePasswordFn: func(ctx context.Context, id, newPassword string) error {
			t.Fatal("service should not be called")
			return nil
		},
	}
	h := NewUserHandler(svc, authedVerifier("user-1"), testTransport())

	w := httptest.NewRecorder()
	h.UpdatePassword(w, authedRequest(t, http.MethodPut, "/api/users/me/password", map[string]string{
		"password": "short",
	}))

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Result().StatusCode)
	}
}
