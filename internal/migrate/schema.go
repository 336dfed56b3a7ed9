package migrate

import (
	"database/sql"

	"coordconv/internal/logger"
)

// 背景：首次运行自动创建任务历史表，批量任务与逐文件结果分表保存
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；删除任务时级联删除其文件记录
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _coord_jobs (
			id TEXT PRIMARY KEY,
			direction TEXT NOT NULL,
			output_dir TEXT NOT NULL,
			lng_col TEXT NOT NULL,
			lat_col TEXT NOT NULL,
			files INT NOT NULL,
			status TEXT NOT NULL DEFAULT 'running',
			succeeded INT NOT NULL DEFAULT 0,
			failed INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			finished_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_coord_jobs_created ON _coord_jobs(created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS _coord_job_files (
			job_id TEXT NOT NULL REFERENCES _coord_jobs(id) ON DELETE CASCADE,
			idx INT NOT NULL,
			file TEXT NOT NULL,
			ok BOOLEAN NOT NULL,
			output TEXT NOT NULL DEFAULT '',
			rows INT NOT NULL DEFAULT 0,
			failed_rows INT NOT NULL DEFAULT 0,
			reason TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (job_id, idx)
		)`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
