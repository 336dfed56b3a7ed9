package logger

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// recorder：记录响应状态码与字节数
type recorder struct {
	http.ResponseWriter
	code    int
	written int64
}

func (rw *recorder) WriteHeader(code int) {
	rw.code = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// accessLevel：5xx 为 error，4xx 为 warn，其余 debug；任务提交与取消另有业务日志
func accessLevel(code int) slog.Level {
	switch {
	case code >= 500:
		return slog.LevelError
	case code >= 400:
		return slog.LevelWarn
	}
	return slog.LevelDebug
}

// AccessMiddleware：HTTP 访问日志
// 约束：不读取请求体，/jobs 提交的服务端路径只出现在业务日志中
func AccessMiddleware(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &recorder{ResponseWriter: w, code: http.StatusOK}
			begin := time.Now()
			next.ServeHTTP(rw, r)
			l.Log(context.Background(), accessLevel(rw.code), "http_access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.code,
				"bytes", rw.written,
				"duration_ms", time.Since(begin).Milliseconds(),
				"remote", r.RemoteAddr,
			)
		})
	}
}
