// Package auth は資格情報の検証とユーザー登録、セッショントークンの発行を提供する。
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher はパスワードの一方向ハッシュ化と照合のインターフェース。
// ダイジェストから元のパスワードは復元できない。
type PasswordHasher interface {
	// Hash はパスワードのダイジェストを生成する。
	Hash(password string) (string, error)
	// Compare はパスワードとダイジェストを定数時間で照合する。
	Compare(password, digest string) bool
}

// bcryptCost はbcryptのワークファクター。
// 調整可能だが、既存ダイジェストとの互換性はbcrypt側が保証する。
const bcryptCost = 10

// BcryptHasher はbcryptによるPasswordHasher実装。
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher はデフォルトのワークファクターでBcryptHasherを生成する。
func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{cost: bcryptCost}
}

// Hash はパスワードのbcryptダイジェストを生成する。
func (h *BcryptHasher) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Compare はパスワードとダイジェストを照合する。
func (h *BcryptHasher) Compare(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

// compile-time interface check
var _ PasswordHasher = (*BcryptHasher)(nil)
