// 包 config：集中读取 .env 与环境变量，命令行参数在此基础上覆盖
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config：进程级配置；零值字段由 Load 填入默认值
type Config struct {
	OutputDir string
	LngCol    string
	LatCol    string
	Direction string
	Encoding  string

	History bool

	Addr              string
	APIBase           string
	JobTTL            time.Duration
	PointCacheTTL     time.Duration
	PointCacheSize    int
	MaxPointsPerCall  int
	WatchDebounce     time.Duration
	WatchRecursive    bool
	RedisEnabled      bool
	PostgresEnabled   bool
	ShutdownTimeout   time.Duration
	AllowedOutputRoot string
	RateLimitQPS      int
}

// LoadDotenv：依次尝试 ./.env 与 data/env/.env，已存在的环境变量不被覆盖
func LoadDotenv() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
}

// Load：读取 .env 后从环境变量构建配置
func Load() Config {
	LoadDotenv()
	return FromEnv(os.Getenv)
}

// FromEnv：getenv 可替换，便于测试
func FromEnv(getenv func(string) string) Config {
	c := Config{
		OutputDir:         getenv("COORD_OUTPUT_DIR"),
		LngCol:            getenv("COORD_LNG_COL"),
		LatCol:            getenv("COORD_LAT_COL"),
		Direction:         str(getenv, "COORD_DIRECTION", "gcj02-wgs84"),
		Encoding:          str(getenv, "COORD_ENCODING", "utf-8"),
		History:           boolean(getenv, "COORD_HISTORY", false),
		Addr:              str(getenv, "ADDR", ":8080"),
		APIBase:           str(getenv, "API_BASE", "/api"),
		JobTTL:            seconds(getenv, "COORD_JOB_TTL_S", 86400),
		PointCacheTTL:     seconds(getenv, "COORD_POINT_CACHE_TTL_S", 3600),
		PointCacheSize:    integer(getenv, "COORD_POINT_CACHE_SIZE", 4096),
		MaxPointsPerCall:  integer(getenv, "COORD_MAX_POINTS", 10000),
		WatchDebounce:     time.Duration(integer(getenv, "COORD_WATCH_DEBOUNCE_MS", 500)) * time.Millisecond,
		WatchRecursive:    boolean(getenv, "COORD_WATCH_RECURSIVE", false),
		RedisEnabled:      boolean(getenv, "REDIS_ENABLE", false),
		PostgresEnabled:   boolean(getenv, "PG_ENABLE", false),
		ShutdownTimeout:   seconds(getenv, "SHUTDOWN_TIMEOUT_S", 10),
		AllowedOutputRoot: getenv("COORD_OUTPUT_ROOT"),
	}
	if boolean(getenv, "RATE_LIMIT_ENABLED", false) {
		c.RateLimitQPS = integer(getenv, "RATE_LIMIT_QPS", 200)
	}
	// 路由前缀不带结尾斜杠；"/" 视为挂在根路径，前缀为空
	if b := strings.Trim(c.APIBase, "/"); b != "" {
		c.APIBase = "/" + b
	} else {
		c.APIBase = ""
	}
	return c
}

func str(getenv func(string) string, k, def string) string {
	if v := strings.TrimSpace(getenv(k)); v != "" {
		return v
	}
	return def
}

// integer：解析失败或非正数时回退到默认值
func integer(getenv func(string) string, k string, def int) int {
	if v := getenv(k); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func seconds(getenv func(string) string, k string, def int) time.Duration {
	return time.Duration(integer(getenv, k, def)) * time.Second
}

func boolean(getenv func(string) string, k string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(getenv(k))) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return def
}
