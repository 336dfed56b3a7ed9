package utils

import (
	"os"

	"github.com/redis/go-redis/v9"

	"coordconv/internal/logger"
)

// RedisOptions：REDIS_HOST/REDIS_PORT/REDIS_PASS/REDIS_DB；REDIS_DB 解析失败回退到 0
func RedisOptions(getenv func(string) string) *redis.Options {
	addr := envOr(getenv, "REDIS_HOST", "127.0.0.1") + ":" + envOr(getenv, "REDIS_PORT", "6379")
	return &redis.Options{Addr: addr, Password: getenv("REDIS_PASS"), DB: envInt(getenv, "REDIS_DB", 0)}
}

// OpenRedisFromEnv：创建客户端，不做连通性检查
func OpenRedisFromEnv() *redis.Client {
	opts := RedisOptions(os.Getenv)
	logger.L().Debug("redis_env", "addr", opts.Addr, "db", opts.DB)
	return redis.NewClient(opts)
}
