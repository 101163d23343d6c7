// Package cleanup は期限切れセッションの自動削除ジョブを提供する。
// 検証はexpires_atの比較で行われるため、このジョブは衛生目的であり
// 実行されなくても認可の正しさには影響しない。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/haffnet/portal/internal/repository"
)

// SweepRecorder は削除件数のメトリクス記録のインターフェース。
type SweepRecorder interface {
	RecordSessionsSwept(count int64)
}

// CleanupJob は期限切れセッションの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	sessions repository.SessionRepository
	logger   *slog.Logger
	metrics  SweepRecorder

	// now はテストで時刻を注入するためのクロック。
	now func() time.Time
}

// NewCleanupJob は新しいCleanupJobを生成する。
// metricsはnilでもよい（記録をスキップする）。
func NewCleanupJob(sessions repository.SessionRepository, logger *slog.Logger, metrics SweepRecorder) *CleanupJob {
	return &CleanupJob{
		sessions: sessions,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Run は現在時刻より前に期限切れとなったセッションを削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deleted, err := j.sessions.DeleteExpiredBefore(ctx, j.now())
	if err != nil {
		j.logger.Error("セッションクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to sweep expired sessions: %w", err)
	}

	if j.metrics != nil {
		j.metrics.RecordSessionsSwept(deleted)
	}

	j.logger.Info("セッションクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// RunPeriodically はintervalごとにRunを実行し続ける。
// コンテキストのキャンセルで停止する。起動直後に1回実行する。
func (j *CleanupJob) RunPeriodically(ctx context.Context, interval time.Duration) {
	if err := j.Run(ctx); err != nil {
		j.logger.Error("initial session sweep failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("session sweep failed", slog.String("error", err.Error()))
			}
		case <-ctx.Done():
			return
		}
	}
}
