package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"coordconv/internal/config"
	"coordconv/internal/jobs"
	"coordconv/internal/logger"
	"coordconv/internal/pipeline"
	"coordconv/internal/table"
	"coordconv/internal/transform"
	"coordconv/internal/utils"
	"coordconv/internal/watch"
)

type watchFlags struct {
	convertFlags
	debounce  time.Duration
	recursive bool
	dedupe    bool
}

func newWatchCmd(cfg config.Config) *cobra.Command {
	f := watchFlags{
		convertFlags: convertFlags{
			output:    cfg.OutputDir,
			lng:       cfg.LngCol,
			lat:       cfg.LatCol,
			direction: cfg.Direction,
			encoding:  cfg.Encoding,
			history:   cfg.History,
		},
		debounce:  cfg.WatchDebounce,
		recursive: cfg.WatchRecursive,
		dedupe:    cfg.RedisEnabled,
	}
	cmd := &cobra.Command{
		Use:   "watch DIR",
		Short: "监听目录，新表格文件写入完成后自动转换",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			if f.output == "" {
				f.output = args[0]
			}
			return runWatch(ctx, cmd.OutOrStdout(), f, args[0])
		},
	}
	cmd.Flags().StringVarP(&f.output, "output", "o", f.output, "输出目录，默认与监听目录相同")
	cmd.Flags().StringVar(&f.lng, "lng", f.lng, "经度列名，留空时逐个文件按表头猜测")
	cmd.Flags().StringVar(&f.lat, "lat", f.lat, "纬度列名，留空时逐个文件按表头猜测")
	cmd.Flags().StringVarP(&f.direction, "direction", "d", f.direction, "转换方向")
	cmd.Flags().StringVar(&f.encoding, "encoding", f.encoding, "CSV 编码")
	cmd.Flags().BoolVar(&f.history, "history", f.history, "把任务记录写入 PostgreSQL")
	cmd.Flags().DurationVar(&f.debounce, "debounce", f.debounce, "文件最后一次变化后的静默时长")
	cmd.Flags().BoolVarP(&f.recursive, "recursive", "r", f.recursive, "同时监听子目录")
	cmd.Flags().BoolVar(&f.dedupe, "dedupe", f.dedupe, "经 Redis 在多个监听实例间去重")
	return cmd
}

// lockedWriter：任务回调来自多个协程
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, format, args...)
}

func runWatch(ctx context.Context, out io.Writer, f watchFlags, dir string) error {
	d, err := transform.ParseDirection(f.direction)
	if err != nil {
		return err
	}
	lw := &lockedWriter{w: out}
	opts := []jobs.Option{jobs.WithEventHook(func(id string, e pipeline.Event) {
		switch e.Kind {
		case pipeline.EventFileSucceeded:
			lw.printf("✅ %s\n", e.Message)
		case pipeline.EventFileFailed:
			lw.printf("❌ %s\n", e.Message)
		}
	})}
	if f.history {
		if st, err := openHistory(ctx); err != nil {
			logger.L().Warn("history_disabled", "err", err)
		} else {
			defer st.Close()
			opts = append(opts, jobs.WithHistory(st))
		}
	}
	wopts := watch.Options{Debounce: f.debounce, Recursive: f.recursive}
	if f.dedupe {
		rc := utils.OpenRedisFromEnv()
		defer rc.Close()
		wopts.Dedupe = watch.NewDedupe(rc, 24*time.Hour)
	}
	mgr := jobs.NewManager(opts...)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = mgr.Shutdown(sctx)
	}()

	lw.printf("监听 %s，输出到 %s，%s\n", dir, f.output, d.Label())
	return watch.Run(ctx, dir, wopts, func(files []string) {
		for _, file := range files {
			lng, lat, err := guessMissing(f.lng, f.lat, file, table.Options{Encoding: f.encoding})
			if err != nil {
				lw.printf("❌ 处理文件 %s 时出错: %v\n", file, err)
				continue
			}
			job := pipeline.Job{Files: []string{file}, OutputDir: f.output, LngCol: lng, LatCol: lat, Direction: d, Encoding: f.encoding}
			if _, err := mgr.Submit(job); err != nil {
				lw.printf("❌ 处理文件 %s 时出错: %v\n", file, err)
			}
		}
	})
}
