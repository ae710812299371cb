package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kensuke/heimdall/internal/model"
	"github.com/kensuke/heimdall/internal/repository"
	"github.com/kensuke/heimdall/internal/token"
)

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	users  repository.UserRepository
	hasher PasswordHasher
	codec  *token.Codec
	now    func() time.Time
}

// NewService はServiceを生成する。
func NewService(users repository.UserRepository, hasher PasswordHasher, codec *token.Codec) *Service {
	return &Service{
		users:  users,
		hasher: hasher,
		codec:  codec,
		now:    time.Now,
	}
}

// VerifyCredentials はメールアドレスとパスワードを照合し、ユーザーを返す。
// アカウント列挙を防ぐため「メール未登録」と「パスワード不一致」は
// どちらもmodel.ErrUnauthorizedとして返す。原因の区別はログにのみ残す。
// 返却するユーザーのダイジェストは消去する。
func (s *Service) VerifyCredentials(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		slog.Warn("login failed: unknown email")
		return nil, model.ErrUnauthorized
	}

	if !s.hasher.Compare(password, user.PasswordHash) {
		slog.Warn("login failed: password mismatch",
			slog.String("user_id", user.ID),
		)
		return nil, model.ErrUnauthorized
	}

	// ダイジェストはVerifier内部の照合にのみ使い、外へ出さない
	user.PasswordHash = ""
	return user, nil
}

// Login は資格情報を検証し、成功時にセッショントークンを発行する。
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := s.VerifyCredentials(ctx, email, password)
	if err != nil {
		return nil, "", err
	}

	signed, err := s.codec.Mint(model.Claims{
		UserID:   user.ID,
		FullName: user.FullName,
		Email:    user.Email,
		Phone:    user.Phone,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to mint session token: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return user, signed, nil
}

// Register は新規ユーザーを作成する。
// 入力の必須チェックは境界（ハンドラー）が済ませている前提。
// email一意制約違反はmodel.ErrEmailTakenとして返る。
// 戻り値は新規IDのみで、パスワードやダイジェストは返さない。
func (s *Service) Register(ctx context.Context, fullName, phone, email, password string) (string, error) {
	digest, err := s.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New().String(),
		FullName:     fullName,
		Email:        email,
		Phone:        phone,
		PasswordHash: digest,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return "", err
	}

	slog.Info("new user created",
		slog.String("user_id", user.ID),
	)
	return user.ID, nil
}

// Signup は新規ユーザーを作成し、セッショントークンを発行する。
func (s *Service) Signup(ctx context.Context, fullName, phone, email, password string) (string, string, error) {
	userID, err := s.Register(ctx, fullName, phone, email, password)
	if err != nil {
		return "", "", err
	}

	signed, err := s.codec.Mint(model.Claims{
		UserID:   userID,
		FullName: fullName,
		Email:    email,
		Phone:    phone,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to mint session token: %w", err)
	}

	return userID, signed, nil
}
