package mailer

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*BrevoClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewBrevoClient(server.Client(), slog.Default(), "test-api-key", 2)
	client.endpoint = server.URL
	return client, server
}

func TestSendOTP_Success(t *testing.T) {
	var gotAPIKey string
	var gotBody brevoRequest

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("api-key")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotBody); err != nil {
			t.Errorf("failed to parse request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"messageId": "msg-1"})
	})

	err := client.SendOTP(context.Background(), "Test User", "test@example.com", "1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAPIKey != "test-api-key" {
		t.Errorf("api-key header = %q, want %q", gotAPIKey, "test-api-key")
	}
	if len(gotBody.To) != 1 || gotBody.To[0].Email != "test@example.com" {
		t.Errorf("recipient = %+v, want test@example.com", gotBody.To)
	}
	if gotBody.TemplateID != 2 {
		t.Errorf("templateId = %d, want 2", gotBody.TemplateID)
	}
	if gotBody.Params["OTP_CODE"] != "1234" {
		t.Errorf("OTP_CODE param = %q, want %q", gotBody.Params["OTP_CODE"], "1234")
	}
	if gotBody.Params["NAME"] != "Test User" {
		t.Errorf("NAME param = %q, want %q", gotBody.Params["NAME"], "Test User")
	}
}

func TestSendOTP_APIError_ReturnsError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "invalid api key"})
	})

	err := client.SendOTP(context.Background(), "Test User", "test@example.com", "1234")
	if err == nil {
		t.Fatal("expected error for API failure")
	}
}

// 2xxでもmessageIdが無ければ失敗として扱う
func TestSendOTP_MissingMessageID_ReturnsError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{})
	})

	err := client.SendOTP(context.Background(), "Test User", "test@example.com", "1234")
	if err == nil {
		t.Fatal("expected error for missing messageId")
	}
}
