package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"coordconv/internal/config"
	"coordconv/internal/logger"
	"coordconv/internal/pipeline"
	"coordconv/internal/table"
	"coordconv/internal/transform"
)

type convertFlags struct {
	output    string
	lng       string
	lat       string
	direction string
	encoding  string
	history   bool
}

func newConvertCmd(cfg config.Config) *cobra.Command {
	f := convertFlags{
		output:    cfg.OutputDir,
		lng:       cfg.LngCol,
		lat:       cfg.LatCol,
		direction: cfg.Direction,
		encoding:  cfg.Encoding,
		history:   cfg.History,
	}
	cmd := &cobra.Command{
		Use:   "convert FILE...",
		Short: "转换一批 CSV / Excel 文件，结果写入输出目录",
		Example: `  coordconv convert a.csv b.xlsx -o out --lng 经度 --lat 纬度 -d gcj02-wgs84
  coordconv convert *.csv -o out -d bd09-gcj02`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runConvert(ctx, cmd.OutOrStdout(), f, args)
		},
	}
	cmd.Flags().StringVarP(&f.output, "output", "o", f.output, "输出目录")
	cmd.Flags().StringVar(&f.lng, "lng", f.lng, "经度列名，留空时按表头猜测")
	cmd.Flags().StringVar(&f.lat, "lat", f.lat, "纬度列名，留空时按表头猜测")
	cmd.Flags().StringVarP(&f.direction, "direction", "d", f.direction, "转换方向，如 gcj02-wgs84、bd09->gcj02 或序号 0-5")
	cmd.Flags().StringVar(&f.encoding, "encoding", f.encoding, "CSV 编码：utf-8、utf-8-sig、gbk、gb18030")
	cmd.Flags().BoolVar(&f.history, "history", f.history, "把任务记录写入 PostgreSQL")
	return cmd
}

// guessMissing：未指定的列名按第一个文件的表头补齐
func guessMissing(lng, lat, file string, opts table.Options) (string, string, error) {
	if lng != "" && lat != "" {
		return lng, lat, nil
	}
	t, err := table.Peek(file, 0, opts)
	if err != nil {
		return lng, lat, err
	}
	gLng, gLat := table.GuessColumns(t.Header)
	if lng == "" {
		lng = gLng
	}
	if lat == "" {
		lat = gLat
	}
	if lng == "" || lat == "" {
		return lng, lat, fmt.Errorf("%w: 无法从表头 %v 识别经纬度列", pipeline.ErrNoColumns, t.Header)
	}
	return lng, lat, nil
}

func runConvert(ctx context.Context, out io.Writer, f convertFlags, files []string) error {
	dir, err := transform.ParseDirection(f.direction)
	if err != nil {
		return err
	}
	lng, lat, err := guessMissing(f.lng, f.lat, files[0], table.Options{Encoding: f.encoding})
	if err != nil {
		return err
	}
	job := pipeline.Job{Files: files, OutputDir: f.output, LngCol: lng, LatCol: lat, Direction: dir, Encoding: f.encoding}
	if err := job.Validate(); err != nil {
		return err
	}

	var opts []pipeline.Option
	if f.history {
		st, err := openHistory(ctx)
		if err != nil {
			logger.L().Warn("history_disabled", "err", err)
		} else {
			defer st.Close()
			id := uuid.NewString()
			if err := st.CreateJob(ctx, id, job); err != nil {
				logger.L().Warn("history_create_failed", "err", err)
			} else {
				opts = append(opts, pipeline.WithObserver(st.Observer(id)))
			}
		}
	}

	fmt.Fprintf(out, "开始转换 %d 个文件：%s，经度列 %s，纬度列 %s\n", len(files), dir.Label(), lng, lat)
	begin := time.Now()
	events, err := pipeline.NewWorker(job, opts...).Start(ctx)
	if err != nil {
		return err
	}
	failed := 0
	for e := range events {
		switch e.Kind {
		case pipeline.EventProgress:
			fmt.Fprintf(out, "进度: %d%%\n", e.Percent)
		case pipeline.EventFileSucceeded:
			fmt.Fprintf(out, "✅ %s\n", e.Message)
			if e.Failed > 0 {
				fmt.Fprintf(out, "   %d/%d 行经纬度无效，转换结果留空\n", e.Failed, e.Rows)
			}
		case pipeline.EventFileFailed:
			failed++
			fmt.Fprintf(out, "❌ %s\n", e.Message)
		case pipeline.EventFinished:
			if e.Cancelled {
				fmt.Fprintln(out, "已停止")
			}
			fmt.Fprintf(out, "完成，用时 %s\n", time.Since(begin).Round(time.Millisecond))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d/%d", ErrFilesFailed, failed, len(files))
	}
	return nil
}
