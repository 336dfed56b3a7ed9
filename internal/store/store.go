// 包 store：任务历史的 PostgreSQL 数据访问层，记录每次批量转换及其逐文件结果
package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"coordconv/internal/logger"
	"coordconv/internal/pipeline"
)

const (
	StatusRunning   = "running"
	StatusDone      = "done"
	StatusCancelled = "cancelled"
)

// Store：数据库访问入口，持有连接池
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

// Open：使用 DSN 打开数据库连接并配置连接池参数
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// JobRecord：一次批量任务的历史记录
type JobRecord struct {
	ID         string     `json:"id"`
	Direction  string     `json:"direction"`
	OutputDir  string     `json:"output_dir"`
	Files      int        `json:"files"`
	Status     string     `json:"status"`
	Succeeded  int        `json:"succeeded"`
	Failed     int        `json:"failed"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// CreateJob：任务开始前登记
func (s *Store) CreateJob(ctx context.Context, id string, job pipeline.Job) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO _coord_jobs(id, direction, output_dir, lng_col, lat_col, files, status) VALUES($1, $2, $3, $4, $5, $6, $7)",
		id, job.Direction.String(), job.OutputDir, job.LngCol, job.LatCol, len(job.Files), StatusRunning)
	return err
}

// RecordFile：写入单个文件的结果；非文件事件忽略
// 约束：同一 (job_id, idx) 重复写入时覆盖
func (s *Store) RecordFile(ctx context.Context, id string, e pipeline.Event) error {
	if e.Kind != pipeline.EventFileSucceeded && e.Kind != pipeline.EventFileFailed {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO _coord_job_files(job_id, idx, file, ok, output, rows, failed_rows, reason) VALUES($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (job_id, idx) DO UPDATE SET file=EXCLUDED.file, ok=EXCLUDED.ok, output=EXCLUDED.output, rows=EXCLUDED.rows, failed_rows=EXCLUDED.failed_rows, reason=EXCLUDED.reason`,
		id, e.Index, e.File, e.Kind == pipeline.EventFileSucceeded, e.Output, e.Rows, e.Failed, e.Reason)
	return err
}

// FinishJob：写入终态与成功/失败文件数
func (s *Store) FinishJob(ctx context.Context, id, status string, succeeded, failed int) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE _coord_jobs SET status=$2, succeeded=$3, failed=$4, finished_at=now() WHERE id=$1",
		id, status, succeeded, failed)
	return err
}

// RecentJobs：按创建时间倒序返回最近的任务；limit<=0 时取 20
func (s *Store) RecentJobs(ctx context.Context, limit int) ([]JobRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, direction, output_dir, files, status, succeeded, failed, created_at, finished_at FROM _coord_jobs ORDER BY created_at DESC LIMIT $1",
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []JobRecord
	for rows.Next() {
		var r JobRecord
		var fin sql.NullTime
		if err := rows.Scan(&r.ID, &r.Direction, &r.OutputDir, &r.Files, &r.Status, &r.Succeeded, &r.Failed, &r.CreatedAt, &fin); err != nil {
			return nil, err
		}
		if fin.Valid {
			t := fin.Time
			r.FinishedAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Observer：把流水线事件落库；写库失败只记录日志，不影响转换
func (s *Store) Observer(id string) pipeline.Observer {
	return &historyObserver{st: s, id: id}
}

type historyObserver struct {
	st        *Store
	id        string
	succeeded int
	failed    int
}

func (h *historyObserver) OnEvent(e pipeline.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var err error
	switch e.Kind {
	case pipeline.EventFileSucceeded:
		h.succeeded++
		err = h.st.RecordFile(ctx, h.id, e)
	case pipeline.EventFileFailed:
		h.failed++
		err = h.st.RecordFile(ctx, h.id, e)
	case pipeline.EventFinished:
		status := StatusDone
		if e.Cancelled {
			status = StatusCancelled
		}
		err = h.st.FinishJob(ctx, h.id, status, h.succeeded, h.failed)
	}
	if err != nil {
		logger.L().Warn("history_write_failed", "job", h.id, "kind", string(e.Kind), "err", err)
	}
}
