// Package cleanup は期限切れセッションの自動削除ジョブを提供する。
// sessionsテーブルからexpires_atを過ぎた行を定期的に削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SessionCleanupJob は期限切れセッションの削除ジョブ。
// 削除対象がなくてもエラーにならない冪等な処理として実行される。
type SessionCleanupJob struct {
	db     Executor
	logger *slog.Logger
	now    func() time.Time

	// GracePeriod は期限切れ後も削除せずに残しておく猶予期間（デフォルト: 0）
	GracePeriod time.Duration
}

// NewSessionCleanupJob は新しいSessionCleanupJobを生成する。
func NewSessionCleanupJob(db Executor, logger *slog.Logger) *SessionCleanupJob {
	return &SessionCleanupJob{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// Run は期限切れセッションを削除する。
// expires_atが（現在時刻 - GracePeriod）より前のセッションをDELETEする。
func (j *SessionCleanupJob) Run(ctx context.Context) error {
	start := time.Now()
	cutoff := j.now().Add(-j.GracePeriod)

	result, err := j.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, cutoff)
	if err != nil {
		j.logger.Error("セッションクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Time("cutoff", cutoff),
		)
		return fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	j.logger.Info("セッションクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Time("cutoff", cutoff),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// RunEvery はintervalごとにRunを実行し、ctxがキャンセルされるまでブロックする。
// 起動直後に1回実行する。個々の実行エラーはログに記録して次回に持ち越す。
func (j *SessionCleanupJob) RunEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	_ = j.Run(ctx)
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("セッションクリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
