// 包 pointcache：单点换算结果的两级缓存（进程内 LRU + Redis）
// 背景：/convert 接口的调用方常反复提交同一批点位；本地命中免去序列化，Redis 在多实例间共享
// 约束：键使用坐标的精确十进制表示，不做量化；值只保存换算后的坐标
package pointcache

import (
	"context"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/paulmach/orb"
	"github.com/redis/go-redis/v9"

	"coordconv/internal/metrics"
	"coordconv/internal/transform"
)

type entry struct {
	p   orb.Point
	exp time.Time
}

// Cache：rc 为空时只使用本地层
type Cache struct {
	local *lru.Cache
	rc    *redis.Client
	ttl   time.Duration
}

func New(size int, ttl time.Duration, rc *redis.Client) (*Cache, error) {
	l, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cache{local: l, rc: rc, ttl: ttl}, nil
}

// Key：方向 + 坐标的最短精确表示，不同输入不会共用一条缓存
func Key(d transform.Direction, p orb.Point) string {
	return "coordpt:" + d.String() + ":" + strconv.FormatFloat(p[0], 'g', -1, 64) + ":" + strconv.FormatFloat(p[1], 'g', -1, 64)
}

// Convert：先查本地，再查 Redis，都未命中时计算并回填两级缓存
func (c *Cache) Convert(ctx context.Context, d transform.Direction, p orb.Point) orb.Point {
	k := Key(d, p)
	if v, ok := c.local.Get(k); ok {
		it := v.(entry)
		if time.Now().Before(it.exp) {
			metrics.PointCacheHitsTotal.WithLabelValues("lru").Inc()
			return it.p
		}
		c.local.Remove(k)
	}
	if c.rc != nil {
		if s, err := c.rc.Get(ctx, k).Result(); err == nil {
			if q, ok := decode(s); ok {
				metrics.PointCacheHitsTotal.WithLabelValues("redis").Inc()
				c.local.Add(k, entry{p: q, exp: time.Now().Add(c.ttl)})
				return q
			}
		}
	}
	q := transform.Convert(d, p)
	c.local.Add(k, entry{p: q, exp: time.Now().Add(c.ttl)})
	if c.rc != nil {
		c.rc.Set(ctx, k, encode(q), c.ttl)
	}
	return q
}

func (c *Cache) Len() int { return c.local.Len() }

func encode(p orb.Point) string {
	return strconv.FormatFloat(p[0], 'f', -1, 64) + "," + strconv.FormatFloat(p[1], 'f', -1, 64)
}

func decode(s string) (orb.Point, bool) {
	a, b, ok := strings.Cut(s, ",")
	if !ok {
		return orb.Point{}, false
	}
	x, err1 := strconv.ParseFloat(a, 64)
	y, err2 := strconv.ParseFloat(b, 64)
	if err1 != nil || err2 != nil {
		return orb.Point{}, false
	}
	return orb.Point{x, y}, true
}
