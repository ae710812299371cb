// Package otp はワンタイムパスワードの発行・配送・消費を提供する。
// コードは固定幅の数値で有効期間は短く（既定5分）、消費は1回限り。
// 短い数値空間への総当たりはレート制限と有効期限で抑える。
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/kensuke/heimdall/internal/model"
	"github.com/kensuke/heimdall/internal/repository"
)

// コードは4桁固定（1000〜9999）。
const (
	codeMin = 1000
	codeMax = 9999
)

// Mailer はOTPコードの配送インターフェース。
type Mailer interface {
	// SendOTP は確認コードを宛先にメール送信する。
	SendOTP(ctx context.Context, name, email, code string) error
}

// Service はOTPの発行と消費を行う。
type Service struct {
	otps   repository.OTPRepository
	mailer Mailer
	ttl    time.Duration
	now    func() time.Time
}

// NewService はServiceを生成する。ttlはコードの有効期間（既定5分）。
func NewService(otps repository.OTPRepository, mailer Mailer, ttl time.Duration) *Service {
	return &Service{
		otps:   otps,
		mailer: mailer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock は現在時刻関数を差し替えたServiceを返す。
// テストで有効期限を決定的に検証するために使う。
func (s *Service) WithClock(now func() time.Time) *Service {
	clone := *s
	clone.now = now
	return &clone
}

// Create は新しいOTPを発行し、永続化してからメールで配送する。
// 配送失敗は永続化をロールバックしない（コードは有効なまま残る）。
// メールが届かなかった場合、呼び出し側は再送（新規Create）を提供する。
func (s *Service) Create(ctx context.Context, recipientName, recipientEmail string) (*model.OTP, error) {
	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate otp code: %w", err)
	}

	now := s.now()
	record := &model.OTP{
		ID:         uuid.New().String(),
		Code:       code,
		ExpiresAt:  now.Add(s.ttl),
		IsConsumed: false,
		IsVerified: false,
		CreatedAt:  now,
	}

	if err := s.otps.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist otp: %w", err)
	}

	// 配送失敗はログに残すのみで、発行自体は成功として扱う
	if err := s.mailer.SendOTP(ctx, recipientName, recipientEmail, code); err != nil {
		slog.Error("failed to deliver otp email",
			slog.String("otp_id", record.ID),
			slog.String("error", err.Error()),
		)
	}

	slog.Info("otp issued", slog.String("otp_id", record.ID))
	return record, nil
}

// Redeem はOTPを検証し、成功時に消費済みへ遷移させる。
// 検証順序: 存在 → 有効期限 → 消費済み → コード照合。
// チェックと遷移はリポジトリの条件付きUPDATEで原子的に行われるため、
// 同一IDへの並行リデンプションで成功するのは必ず1つだけになる。
func (s *Service) Redeem(ctx context.Context, id, suppliedCode string) error {
	record, err := s.otps.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find otp: %w", err)
	}
	if record == nil {
		return model.ErrOTPNotFound
	}

	// 期限切れは消費状態に関わらず拒否する
	if record.IsExpired(s.now()) {
		return model.ErrOTPExpired
	}

	if record.IsConsumed {
		return model.ErrOTPAlreadyConsumed
	}

	if subtle.ConstantTimeCompare([]byte(suppliedCode), []byte(record.Code)) != 1 {
		return model.ErrOTPCodeMismatch
	}

	consumed, err := s.otps.ConsumeByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to consume otp: %w", err)
	}
	if !consumed {
		// 並行リデンプションに敗れた側はここに到達する
		return model.ErrOTPAlreadyConsumed
	}

	slog.Info("otp redeemed", slog.String("otp_id", id))
	return nil
}

// generateCode は[codeMin, codeMax]から一様にコードを引く。
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", codeMin+n.Int64()), nil
}
