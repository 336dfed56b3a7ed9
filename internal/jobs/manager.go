// 包 jobs：异步批量任务管理
// 背景：HTTP 服务与目录监听提交的任务在后台运行，调用方凭任务 ID 轮询状态或请求取消
// 约束：输出到同一目录的任务串行执行，避免输出文件名消歧时互相竞争；不同目录的任务并发执行
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"coordconv/internal/logger"
	"coordconv/internal/pipeline"
	"coordconv/internal/store"
)

var ErrNotFound = errors.New("job not found")

// Status：任务生命周期
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
)

// FileOutcome：单个文件的处理结果
type FileOutcome struct {
	Index      int    `json:"index"`
	File       string `json:"file"`
	OK         bool   `json:"ok"`
	Message    string `json:"message"`
	Output     string `json:"output,omitempty"`
	Rows       int    `json:"rows,omitempty"`
	FailedRows int    `json:"failed_rows,omitempty"`
}

// State：任务快照，对外只返回副本
type State struct {
	ID         string        `json:"id"`
	Status     Status        `json:"status"`
	Percent    int           `json:"percent"`
	Job        pipeline.Job  `json:"job"`
	Files      []FileOutcome `json:"files"`
	CreatedAt  time.Time     `json:"created_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}

// Failed：失败文件数
func (s State) Failed() int {
	n := 0
	for _, f := range s.Files {
		if !f.OK {
			n++
		}
	}
	return n
}

func (s State) clone() State {
	s.Files = append([]FileOutcome(nil), s.Files...)
	s.Job.Files = append([]string(nil), s.Job.Files...)
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		s.FinishedAt = &t
	}
	return s
}

type entry struct {
	mu     sync.Mutex
	state  State
	worker *pipeline.Worker
	done   chan struct{}
}

// Manager：任务注册表
type Manager struct {
	mu   sync.Mutex
	jobs map[string]*entry
	dirs map[string]*sync.Mutex
	wg   sync.WaitGroup

	rc      *redis.Client
	ttl     time.Duration
	history *store.Store
	onEvent func(id string, e pipeline.Event)
}

// Option：Manager 构造选项
type Option func(*Manager)

// WithRedis：任务状态镜像到 coordjob:<id>，ttl 为键过期时间
func WithRedis(rc *redis.Client, ttl time.Duration) Option {
	return func(m *Manager) { m.rc, m.ttl = rc, ttl }
}

// WithHistory：任务与逐文件结果写入 PostgreSQL
func WithHistory(st *store.Store) Option {
	return func(m *Manager) { m.history = st }
}

// WithEventHook：每个流水线事件的回调，用于命令行输出
func WithEventHook(f func(id string, e pipeline.Event)) Option {
	return func(m *Manager) { m.onEvent = f }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{jobs: map[string]*entry{}, dirs: map[string]*sync.Mutex{}}
	for _, o := range opts {
		o(m)
	}
	return m
}

func redisKey(id string) string { return "coordjob:" + id }

// Submit：校验配置后登记任务并在后台执行，返回任务 ID；配置错误同步返回
func (m *Manager) Submit(job pipeline.Job) (string, error) {
	if err := job.Validate(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	e := &entry{
		state: State{ID: id, Status: StatusQueued, Job: job, Files: []FileOutcome{}, CreatedAt: time.Now()},
		done:  make(chan struct{}),
	}
	opts := []pipeline.Option{pipeline.WithObserver(pipeline.ObserverFunc(func(ev pipeline.Event) { m.apply(e, ev) }))}
	if m.history != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := m.history.CreateJob(ctx, id, job); err != nil {
			logger.L().Warn("history_create_failed", "job", id, "err", err)
		} else {
			opts = append(opts, pipeline.WithObserver(m.history.Observer(id)))
		}
		cancel()
	}
	e.worker = pipeline.NewWorker(job, opts...)

	m.mu.Lock()
	m.jobs[id] = e
	lock := m.dirLock(job.OutputDir)
	m.mu.Unlock()
	m.mirror(e)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(e.done)
		lock.Lock()
		defer lock.Unlock()
		e.mu.Lock()
		e.state.Status = StatusRunning
		e.mu.Unlock()
		logger.L().Info("job_start", "job", id, "files", len(job.Files))
		if err := e.worker.Run(context.Background(), func(pipeline.Event) {}); err != nil {
			// 排队期间输出目录被删除等情况
			logger.L().Error("job_invalid", "job", id, "err", err)
			m.apply(e, pipeline.Event{Kind: pipeline.EventFinished, Index: len(job.Files), Cancelled: true})
		}
	}()
	logger.L().Debug("job_submitted", "job", id, "output_dir", job.OutputDir)
	return id, nil
}

// dirLock：调用方持有 m.mu
func (m *Manager) dirLock(dir string) *sync.Mutex {
	key := filepath.Clean(dir)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}
	l, ok := m.dirs[key]
	if !ok {
		l = &sync.Mutex{}
		m.dirs[key] = l
	}
	return l
}

func (m *Manager) apply(e *entry, ev pipeline.Event) {
	e.mu.Lock()
	switch ev.Kind {
	case pipeline.EventProgress:
		e.state.Percent = ev.Percent
	case pipeline.EventFileSucceeded, pipeline.EventFileFailed:
		e.state.Files = append(e.state.Files, FileOutcome{
			Index:      ev.Index,
			File:       ev.File,
			OK:         ev.Kind == pipeline.EventFileSucceeded,
			Message:    ev.Message,
			Output:     ev.Output,
			Rows:       ev.Rows,
			FailedRows: ev.Failed,
		})
	case pipeline.EventFinished:
		now := time.Now()
		e.state.FinishedAt = &now
		e.state.Status = StatusDone
		if ev.Cancelled {
			e.state.Status = StatusCancelled
		}
	}
	id := e.state.ID
	e.mu.Unlock()
	m.mirror(e)
	if m.onEvent != nil {
		m.onEvent(id, ev)
	}
}

// mirror：写 Redis 失败只记日志
func (m *Manager) mirror(e *entry) {
	if m.rc == nil {
		return
	}
	e.mu.Lock()
	st := e.state.clone()
	e.mu.Unlock()
	b, err := json.Marshal(st)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.rc.Set(ctx, redisKey(st.ID), b, m.ttl).Err(); err != nil {
		logger.L().Warn("job_mirror_failed", "job", st.ID, "err", err)
	}
}

// Get：先查本进程，再查 Redis 镜像（其他实例提交的任务）
func (m *Manager) Get(ctx context.Context, id string) (State, error) {
	m.mu.Lock()
	e, ok := m.jobs[id]
	m.mu.Unlock()
	if ok {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.state.clone(), nil
	}
	if m.rc != nil {
		s, err := m.rc.Get(ctx, redisKey(id)).Bytes()
		if err == nil {
			var st State
			if json.Unmarshal(s, &st) == nil {
				return st, nil
			}
		}
	}
	return State{}, ErrNotFound
}

// Cancel：请求停止；已结束的任务不受影响
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	e, ok := m.jobs[id]
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	e.worker.Stop()
	logger.L().Info("job_cancel_requested", "job", id)
	return nil
}

// Done：任务结束时关闭的通道
func (m *Manager) Done(id string) (<-chan struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.done, nil
}

// List：本进程内的任务，按提交时间倒序
func (m *Manager) List() []State {
	m.mu.Lock()
	out := make([]State, 0, len(m.jobs))
	for _, e := range m.jobs {
		e.mu.Lock()
		out = append(out, e.state.clone())
		e.mu.Unlock()
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Shutdown：停止全部任务并等待退出，ctx 到期则放弃等待
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	for _, e := range m.jobs {
		e.worker.Stop()
	}
	m.mu.Unlock()
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Prune：移除结束时间早于 now-ttl 的任务，返回移除数量；Redis 镜像由键过期自行清理
func (m *Manager) Prune(now time.Time, ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.jobs {
		e.mu.Lock()
		fin := e.state.FinishedAt
		e.mu.Unlock()
		if fin != nil && now.Sub(*fin) > ttl {
			delete(m.jobs, id)
			n++
		}
	}
	return n
}

// StartJanitor：后台按 every 周期清理已结束的任务，ctx 取消后退出
func (m *Manager) StartJanitor(ctx context.Context, every, ttl time.Duration) {
	l := logger.L()
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				if n := m.Prune(now, ttl); n > 0 {
					l.Info("jobs_pruned", "count", n)
				}
			}
		}
	}()
}
