// Package cleanup は期限切れワンタイムパスワードの自動削除ジョブを提供する。
// 有効期限から保持期間（デフォルト24時間）を超過したOTPレコードを
// 日次バッチで削除する。消費済みレコードも期限切れ後は削除対象となる。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kensuke/heimdall/internal/repository"
)

// CleanupJob は期限切れOTPの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	otps   repository.OTPRepository
	logger *slog.Logger
	now    func() time.Time

	// RetentionPeriod は有効期限経過後にレコードを保持する期間。
	// 期限切れ直後の消費試行がOTP_ALREADY_CONSUMEDではなく
	// OTP_EXPIREDとして報告できるよう、即時削除はしない。
	RetentionPeriod time.Duration
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの保持期間は24時間。
func NewCleanupJob(otps repository.OTPRepository, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		otps:            otps,
		logger:          logger,
		now:             time.Now,
		RetentionPeriod: 24 * time.Hour,
	}
}

// WithClock は現在時刻の取得関数を差し替えたCleanupJobを返す。テスト用。
func (j *CleanupJob) WithClock(now func() time.Time) *CleanupJob {
	clone := *j
	clone.now = now
	return &clone
}

// Run は保持期間を超過した期限切れOTPを削除する。
// expires_atが現在時刻よりRetentionPeriod以上過去のレコードをDELETEする。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := j.now()

	cutoff := start.Add(-j.RetentionPeriod)

	deletedCount, err := j.otps.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("OTPクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Time("cutoff", cutoff),
		)
		return fmt.Errorf("OTPクリーンアップの実行に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("OTPクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Time("cutoff", cutoff),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start は指定間隔のティッカーでクリーンアップジョブを起動する。
// 起動直後に1回実行し、以降はコンテキストがキャンセルされるまで繰り返す。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("OTPクリーンアップスケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	if err := j.Run(ctx); err != nil {
		j.logger.Error("OTPクリーンアップの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("OTPクリーンアップスケジューラを停止しました")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("OTPクリーンアップの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
