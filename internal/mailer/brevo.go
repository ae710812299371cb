// Package mailer はトランザクションメールの送信を提供する。
// Brevo（旧Sendinblue）のテンプレート送信APIを使用する。
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// defaultEndpoint はBrevoトランザクションメールAPIのエンドポイント。
const defaultEndpoint = "https://api.brevo.com/v3/smtp/email"

// BrevoClient はBrevoのトランザクションメールAPIクライアント。
// OTP確認コードをテンプレートメールとして配送する。
type BrevoClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	templateID int
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewBrevoClient はBrevoClientの新しいインスタンスを生成する。
func NewBrevoClient(httpClient *http.Client, logger *slog.Logger, apiKey string, templateID int) *BrevoClient {
	return &BrevoClient{
		httpClient: httpClient,
		logger:     logger,
		apiKey:     apiKey,
		templateID: templateID,
		endpoint:   defaultEndpoint,
	}
}

// brevoRequest はBrevo送信APIのリクエストボディ。
type brevoRequest struct {
	To         []brevoRecipient  `json:"to"`
	TemplateID int               `json:"templateId"`
	Params     map[string]string `json:"params"`
}

type brevoRecipient struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// brevoResponse はBrevo送信APIのレスポンスボディ。
type brevoResponse struct {
	MessageID string `json:"messageId"`
	Message   string `json:"message"` // エラー時のみ
}

// SendOTP は確認コードをテンプレートメールで配送する。
// 失敗は呼び出し元でログに残し、周辺処理を失敗させない想定。
func (c *BrevoClient) SendOTP(ctx context.Context, name, email, code string) error {
	body, err := json.Marshal(brevoRequest{
		To:         []brevoRecipient{{Email: email, Name: name}},
		TemplateID: c.templateID,
		Params: map[string]string{
			"OTP_CODE": code,
			"NAME":     name,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal brevo request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create brevo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("brevo api call failed",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("brevo api call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read brevo response: %w", err)
	}

	var parsed brevoResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fmt.Errorf("failed to parse brevo response: %w", err)
	}

	// 成功時はmessageIdが返る
	if resp.StatusCode >= 200 && resp.StatusCode < 300 && parsed.MessageID != "" {
		return nil
	}

	c.logger.Error("brevo api returned error",
		slog.Int("http_status", resp.StatusCode),
		slog.String("message", parsed.Message),
	)
	return fmt.Errorf("brevo api returned status %d: %s", resp.StatusCode, parsed.Message)
}
