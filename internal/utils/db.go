// 包 utils：外部依赖（PostgreSQL、Redis）的连接构建，统一从环境变量读取
package utils

import (
	"database/sql"
	"net/url"
	"os"
	"strconv"

	_ "github.com/lib/pq"
)

// BuildPostgresDSN：PG_HOST/PG_PORT/PG_USER/PG_PASSWORD/PG_DB/PG_SSLMODE，缺省连本机 coordconv 库
func BuildPostgresDSN(getenv func(string) string) string {
	host := envOr(getenv, "PG_HOST", "localhost")
	port := envOr(getenv, "PG_PORT", "5432")
	u := &url.URL{
		Scheme:   "postgres",
		Host:     host + ":" + port,
		Path:     "/" + envOr(getenv, "PG_DB", "coordconv"),
		RawQuery: "sslmode=" + envOr(getenv, "PG_SSLMODE", "disable"),
	}
	user := envOr(getenv, "PG_USER", "postgres")
	if pass := getenv("PG_PASSWORD"); pass != "" {
		u.User = url.UserPassword(user, pass)
	} else {
		u.User = url.User(user)
	}
	return u.String()
}

// OpenPostgresFromEnv：打开连接池；sql.Open 不建立连接，调用方需 Ping
func OpenPostgresFromEnv() (*sql.DB, error) {
	db, err := sql.Open("postgres", BuildPostgresDSN(os.Getenv))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(envInt(os.Getenv, "PG_MAX_OPEN_CONNS", 10))
	db.SetMaxIdleConns(envInt(os.Getenv, "PG_MAX_IDLE_CONNS", 5))
	return db, nil
}

func envOr(getenv func(string) string, k, def string) string {
	if v := getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(getenv func(string) string, k string, def int) int {
	if v := getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
