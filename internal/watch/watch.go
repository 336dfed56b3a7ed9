// 包 watch：监听输入目录，新出现或被改写的表格文件在静默一段时间后提交转换
// 约束：转换输出（converted_ 前缀）、隐藏文件与 Office 锁文件（~$ 前缀）一律忽略，避免输出目录与输入目录相同时自我触发
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"coordconv/internal/logger"
	"coordconv/internal/metrics"
	"coordconv/internal/naming"
	"coordconv/internal/table"
)

// Options：Debounce 为文件最后一次变化后的静默时长
type Options struct {
	Debounce  time.Duration
	Recursive bool
	Dedupe    *Dedupe
}

// Eligible：是否为可提交的输入文件（只看文件名）
// 约束：.txt 虽可按分隔文本显式转换，监听目录里多为说明文件，不自动提交
func Eligible(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, naming.Prefix) || strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") {
		return false
	}
	if strings.EqualFold(filepath.Ext(base), ".txt") {
		return false
	}
	return table.Supported(base)
}

// Run：阻塞直至 ctx 取消；submit 每次收到一批已静默的文件，按路径排序
func Run(ctx context.Context, dir string, opts Options, submit func([]string)) error {
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := addDirs(w, dir, opts.Recursive); err != nil {
		return err
	}
	l := logger.L()
	l.Info("watch_start", "dir", dir, "recursive", opts.Recursive, "debounce_ms", opts.Debounce.Milliseconds())

	pending := map[string]time.Time{}
	interval := opts.Debounce / 2
	if interval <= 0 {
		interval = opts.Debounce
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			l.Info("watch_stop", "dir", dir)
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if opts.Recursive && ev.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := addDirs(w, ev.Name, true); err != nil {
						l.Warn("watch_add_error", "dir", ev.Name, "err", err)
					}
					continue
				}
			}
			if !Eligible(ev.Name) {
				continue
			}
			l.Debug("watch_event", "op", ev.Op.String(), "file", ev.Name)
			pending[ev.Name] = time.Now()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.Error("watch_error", "err", err)
		case now := <-tick.C:
			ready := flush(ctx, pending, now, opts)
			if len(ready) > 0 {
				metrics.WatchEventsTotal.Add(float64(len(ready)))
				l.Info("watch_submit", "files", len(ready))
				submit(ready)
			}
		}
	}
}

// flush：取出静默超过 Debounce 的文件；已删除或非普通文件直接丢弃
func flush(ctx context.Context, pending map[string]time.Time, now time.Time, opts Options) []string {
	var ready []string
	for p, last := range pending {
		if now.Sub(last) < opts.Debounce {
			continue
		}
		delete(pending, p)
		fi, err := os.Stat(p)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		first, err := opts.Dedupe.FirstSeen(ctx, p, fi)
		if err != nil {
			logger.L().Warn("watch_dedupe_error", "file", p, "err", err)
		}
		if !first {
			logger.L().Debug("watch_duplicate", "file", p)
			continue
		}
		ready = append(ready, p)
	}
	sort.Strings(ready)
	return ready
}

func addDirs(w *fsnotify.Watcher, root string, recursive bool) error {
	if !recursive {
		return w.Add(root)
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && p != root {
				return filepath.SkipDir
			}
			return w.Add(p)
		}
		return nil
	})
}
