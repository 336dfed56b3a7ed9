package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"coordconv/internal/logger"
	"coordconv/internal/metrics"
)

// Worker：单个批量任务的执行体，在独立协程中顺序处理文件
// 约束：与调用方之间只有事件流与“继续运行”标记两条通道；Stop 与 ctx 取消等价，均在行/文件之间生效
type Worker struct {
	job       Job
	running   atomic.Bool
	observers []Observer
}

// Option：Worker 构造选项
type Option func(*Worker)

// WithObserver：追加事件旁路
func WithObserver(o Observer) Option {
	return func(w *Worker) {
		if o != nil {
			w.observers = append(w.observers, o)
		}
	}
}

func NewWorker(job Job, opts ...Option) *Worker {
	w := &Worker{job: job}
	w.running.Store(true)
	for _, o := range opts {
		o(w)
	}
	return w
}

// Job：只读副本
func (w *Worker) Job() Job { return w.job }

// Stop：请求停止，当前行或当前文件处理完后退出
func (w *Worker) Stop() { w.running.Store(false) }

// Running：继续运行标记
func (w *Worker) Running() bool { return w.running.Load() }

// Start：校验配置后在后台协程运行，返回事件通道；通道在 Finished 事件之后关闭
// 约束：通道容量足以容纳全部事件，调用方不读取也不会阻塞流水线
func (w *Worker) Start(ctx context.Context) (<-chan Event, error) {
	if err := w.job.Validate(); err != nil {
		return nil, err
	}
	ch := make(chan Event, 2*len(w.job.Files)+1)
	go func() {
		defer close(ch)
		w.run(ctx, func(e Event) { ch <- e })
	}()
	return ch, nil
}

// Run：同步运行，事件经 emit 回调发出；配置错误时不发出任何事件
func (w *Worker) Run(ctx context.Context, emit func(Event)) error {
	if err := w.job.Validate(); err != nil {
		return err
	}
	w.run(ctx, emit)
	return nil
}

func (w *Worker) keepGoing(ctx context.Context) func() bool {
	return func() bool { return w.running.Load() && ctx.Err() == nil }
}

func (w *Worker) run(ctx context.Context, emit func(Event)) {
	l := logger.L()
	keep := w.keepGoing(ctx)
	send := func(e Event) {
		for _, o := range w.observers {
			o.OnEvent(e)
		}
		emit(e)
	}
	total := len(w.job.Files)
	l.Info("batch_start", "files", total, "direction", w.job.Direction.String(), "output_dir", w.job.OutputDir)
	metrics.JobsRunning.Inc()
	defer metrics.JobsRunning.Dec()

	succeeded, failed := 0, 0
	stopped := false
	for i, path := range w.job.Files {
		if !keep() {
			stopped = true
			break
		}
		send(progressEvent(i, total))
		begin := time.Now()
		res, err := ConvertFile(w.job, path, keep)
		metrics.FileDurationMs.Observe(float64(time.Since(begin).Milliseconds()))
		metrics.RowsTotal.WithLabelValues("ok").Add(float64(res.Rows - len(res.RowErrors)))
		metrics.RowsTotal.WithLabelValues("failed").Add(float64(len(res.RowErrors)))
		if err != nil {
			if errors.Is(err, ErrCancelled) {
				stopped = true
			}
			failed++
			metrics.FilesTotal.WithLabelValues("failed").Inc()
			l.Error("file_convert_error", "file", path, "err", err)
			send(failedEvent(i, path, err))
			continue
		}
		succeeded++
		metrics.FilesTotal.WithLabelValues("ok").Inc()
		l.Info("file_convert_ok", "file", path, "output", res.Output, "rows", res.Rows, "failed_rows", len(res.RowErrors))
		send(succeededEvent(i, path, res))
	}
	status := "done"
	if stopped {
		status = "cancelled"
	}
	metrics.JobsTotal.WithLabelValues(status).Inc()
	l.Info("batch_finished", "succeeded", succeeded, "failed", failed, "cancelled", stopped)
	send(Event{Kind: EventFinished, Index: total, Cancelled: stopped})
}
