package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kensuke/heimdall/internal/model"
)

// PostgresOTPRepo はPostgreSQLを使用したOTPリポジトリ。
type PostgresOTPRepo struct {
	db *sql.DB
}

// NewPostgresOTPRepo はPostgresOTPRepoを生成する。
func NewPostgresOTPRepo(db *sql.DB) *PostgresOTPRepo {
	return &PostgresOTPRepo{db: db}
}

// Create はOTPレコードを作成する。
func (r *PostgresOTPRepo) Create(ctx context.Context, otp *model.OTP) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO otps (id, otp_code, expires_at, is_consumed, is_verified, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		otp.ID, otp.Code, otp.ExpiresAt, otp.IsConsumed, otp.IsVerified, otp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert otp: %w", err)
	}
	return nil
}

// FindByID は指定IDのOTPを取得する。見つからない場合はnilを返す。
func (r *PostgresOTPRepo) FindByID(ctx context.Context, id string) (*model.OTP, error) {
	otp := &model.OTP{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, otp_code, expires_at, is_consumed, is_verified, created_at
		 FROM otps WHERE id = $1`,
		id,
	).Scan(&otp.ID, &otp.Code, &otp.ExpiresAt, &otp.IsConsumed, &otp.IsVerified, &otp.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find otp by ID: %w", err)
	}

	return otp, nil
}

// ConsumeByID は未消費のOTPを消費済みに遷移させる。
// 読み取り後の書き込みでは並行リデンプションが両方成功しうるため、
// 条件付きUPDATE1文でチェックと遷移を原子的に行う。
func (r *PostgresOTPRepo) ConsumeByID(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE otps SET is_consumed = TRUE, is_verified = TRUE
		 WHERE id = $1 AND is_consumed = FALSE`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to consume otp: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// DeleteExpiredBefore は有効期限が指定時刻より前のOTPを物理削除する。
func (r *PostgresOTPRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM otps WHERE expires_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired otps: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// compile-time interface check
var _ OTPRepository = (*PostgresOTPRepo)(nil)
