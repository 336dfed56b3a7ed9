package watch

import (
	"context"
	"hash/fnv"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// 文档注释：计算布隆过滤器位置
// 参数：data 为参与哈希的字节序列，m 为位图大小，k 为哈希次数
// 背景：使用 FNV64a 结合索引扰动生成 k 个位置，用于 GetBit/SetBit
func bloomPositions(data []byte, m uint32, k int) []int64 {
	pos := make([]int64, k)
	for i := 0; i < k; i++ {
		h := fnv.New64a()
		h.Write([]byte{byte(i)})
		h.Write(data)
		pos[i] = int64(uint32(h.Sum64() % uint64(m)))
	}
	return pos
}

// Dedupe：多个监听实例共享同一输入目录时，同一文件版本只提交一次
// 背景：文件版本以 路径+大小+修改时间 标识，写入 Redis 位图，TTL 内视为已处理
// 约束：位图按 TTL 窗口轮换（coordwatch:bloom:<窗口序号>），查询当前与上一窗口，
// 旧窗口随过期自然删除，误判率不随运行时长累积；rc 为空时全部放行
type Dedupe struct {
	rc  *redis.Client
	key string
	m   uint32
	k   int
	ttl time.Duration
	now func() time.Time
}

func NewDedupe(rc *redis.Client, ttl time.Duration) *Dedupe {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Dedupe{rc: rc, key: "coordwatch:bloom", m: 1 << 20, k: 4, ttl: ttl, now: time.Now}
}

func fingerprint(path string, fi os.FileInfo) []byte {
	return []byte(path + "|" + strconv.FormatInt(fi.Size(), 10) + "|" + strconv.FormatInt(fi.ModTime().UnixNano(), 10))
}

// windowKey：offset 为相对当前窗口的偏移（0 当前，-1 上一个）
func (d *Dedupe) windowKey(offset int64) string {
	w := d.now().UnixNano()/int64(d.ttl) + offset
	return d.key + ":" + strconv.FormatInt(w, 10)
}

func (d *Dedupe) contains(ctx context.Context, key string, positions []int64) (bool, error) {
	for _, p := range positions {
		b, err := d.rc.GetBit(ctx, key, p).Result()
		if err != nil {
			return false, err
		}
		if b == 0 {
			return false, nil
		}
	}
	return true, nil
}

// FirstSeen：true 表示首次见到（已写入当前窗口位图）；Redis 出错时放行
func (d *Dedupe) FirstSeen(ctx context.Context, path string, fi os.FileInfo) (bool, error) {
	if d == nil || d.rc == nil {
		return true, nil
	}
	positions := bloomPositions(fingerprint(path, fi), d.m, d.k)
	cur := d.windowKey(0)
	for _, key := range []string{cur, d.windowKey(-1)} {
		seen, err := d.contains(ctx, key, positions)
		if err != nil {
			return true, err
		}
		if seen {
			return false, nil
		}
	}
	for _, p := range positions {
		_, _ = d.rc.SetBit(ctx, cur, p, 1).Result()
	}
	// 写入只发生在窗口内，键最晚在窗口结束后两个 TTL 内过期
	_ = d.rc.Expire(ctx, cur, 2*d.ttl).Err()
	return true, nil
}
