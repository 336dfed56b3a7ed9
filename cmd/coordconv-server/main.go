// 服务入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coordconv/internal/api"
	"coordconv/internal/config"
	"coordconv/internal/jobs"
	"coordconv/internal/logger"
	"coordconv/internal/metrics"
	"coordconv/internal/middleware"
	"coordconv/internal/migrate"
	"coordconv/internal/pointcache"
	"coordconv/internal/store"
	"coordconv/internal/utils"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	l := logger.Setup()
	l.Debug("log_init_ok")
	l.Debug("config_api_base", "base", cfg.APIBase)

	var st *store.Store
	if cfg.PostgresEnabled {
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			l.Error("db_open_error", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			// 历史记录不是必需功能，数据库不可用时照常提供转换
			l.Error("db_ping_error", "err", err)
		} else if err := migrate.EnsureSchema(db); err != nil {
			l.Error("schema_error", "err", err)
		} else {
			st = store.AttachDB(db)
			l.Info("db_ready")
		}
	} else {
		l.Info("db_disabled")
	}

	var rc *redis.Client
	if cfg.RedisEnabled {
		rc = utils.OpenRedisFromEnv()
		defer rc.Close()
		if err := rc.Ping(context.Background()).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
		}
	} else {
		l.Info("redis_disabled")
	}

	opts := []jobs.Option{}
	if rc != nil {
		opts = append(opts, jobs.WithRedis(rc, cfg.JobTTL))
	}
	if st != nil {
		opts = append(opts, jobs.WithHistory(st))
	}
	mgr := jobs.NewManager(opts...)
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	mgr.StartJanitor(janitorCtx, cfg.JobTTL/24+time.Minute, cfg.JobTTL)

	cache, err := pointcache.New(cfg.PointCacheSize, cfg.PointCacheTTL, rc)
	if err != nil {
		l.Error("point_cache_error", "err", err)
		os.Exit(1)
	}

	apiMux := api.BuildRoutes(api.Deps{
		Jobs:       mgr,
		Cache:      cache,
		History:    st,
		MaxPoints:  cfg.MaxPointsPerCall,
		OutputRoot: cfg.AllowedOutputRoot,
	})
	mux := http.NewServeMux()
	mux.Handle(cfg.APIBase+"/", http.StripPrefix(cfg.APIBase, middleware.RateLimit(cfg.RateLimitQPS)(apiMux)))
	mux.Handle(cfg.APIBase+"/metrics", metrics.Handler())

	handler := logger.AccessMiddleware(l)(mux)
	s := &http.Server{Addr: cfg.Addr, Handler: handler}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	idle := make(chan struct{})
	go func() {
		defer close(idle)
		<-ctx.Done()
		l.Info("shutdown_begin")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := s.Shutdown(sctx); err != nil {
			l.Error("http_shutdown_error", "err", err)
		}
		if err := mgr.Shutdown(sctx); err != nil {
			l.Error("jobs_shutdown_error", "err", err)
		}
	}()

	l.Info("listening", "addr", cfg.Addr)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("listen_error", "err", err)
		os.Exit(1)
	}
	<-idle
	l.Info("shutdown_done")
}
