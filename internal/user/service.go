// Package user はユーザープロフィールの参照・更新を提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kensuke/heimdall/internal/auth"
	"github.com/kensuke/heimdall/internal/model"
	"github.com/kensuke/heimdall/internal/repository"
)

// Service はユーザープロフィールに関するビジネスロジックを提供する。
type Service struct {
	users  repository.UserRepository
	hasher auth.PasswordHasher
}

// NewService はServiceを生成する。
func NewService(users repository.UserRepository, hasher auth.PasswordHasher) *Service {
	return &Service{
		users:  users,
		hasher: hasher,
	}
}

// Get は指定IDのユーザーを取得する。
// パスワードダイジェストは返却前に消去する。
func (s *Service) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.ErrUserNotFound
	}

	user.PasswordHash = ""
	return user, nil
}

// UpdateProfile は表示名と電話番号を更新する。
// 注意: トークンにキャッシュされた表示フィールドは次回ログインまで古いまま残る。
func (s *Service) UpdateProfile(ctx context.Context, id, fullName, phone string) error {
	if err := s.users.UpdateProfile(ctx, id, fullName, phone); err != nil {
		return err
	}

	slog.Info("profile updated", slog.String("user_id", id))
	return nil
}

// UpdatePassword はパスワードを更新する。
// 入力の長さ検証は境界（ハンドラー）が済ませている前提。
func (s *Service) UpdatePassword(ctx context.Context, id, newPassword string) error {
	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, id, digest); err != nil {
		return err
	}

	slog.Info("password updated", slog.String("user_id", id))
	return nil
}
