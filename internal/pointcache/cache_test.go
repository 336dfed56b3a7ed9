package pointcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/paulmach/orb"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coordconv/internal/transform"
)

func TestConvertLocalOnly(t *testing.T) {
	c, err := New(2, time.Minute, nil)
	require.NoError(t, err)
	p := orb.Point{116.397, 39.908}
	want := transform.Convert(transform.GCJ02ToWGS84, p)

	assert.Equal(t, want, c.Convert(context.Background(), transform.GCJ02ToWGS84, p))
	assert.Equal(t, want, c.Convert(context.Background(), transform.GCJ02ToWGS84, p))
	assert.Equal(t, 1, c.Len())

	c.Convert(context.Background(), transform.GCJ02ToBD09, p)
	c.Convert(context.Background(), transform.BD09ToGCJ02, p)
	assert.Equal(t, 2, c.Len())
}

func TestConvertFillsRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c, err := New(8, time.Minute, rc)
	require.NoError(t, err)

	p := orb.Point{121.4737, 31.2304}
	got := c.Convert(context.Background(), transform.WGS84ToGCJ02, p)
	s, err := mr.Get(Key(transform.WGS84ToGCJ02, p))
	require.NoError(t, err)
	q, ok := decode(s)
	require.True(t, ok)
	assert.Equal(t, got, q)

	// 新实例只有 Redis 层命中
	c2, err := New(8, time.Minute, rc)
	require.NoError(t, err)
	require.NoError(t, mr.Set(Key(transform.WGS84ToGCJ02, p), "1.5,2.5"))
	assert.Equal(t, orb.Point{1.5, 2.5}, c2.Convert(context.Background(), transform.WGS84ToGCJ02, p))
}

func TestNearbyPointsDoNotShareEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c, err := New(8, time.Minute, rc)
	require.NoError(t, err)

	d := transform.WGS84ToGCJ02
	a := orb.Point{116.39700001, 39.908}
	b := orb.Point{116.39700004, 39.908}
	assert.NotEqual(t, Key(d, a), Key(d, b))
	assert.Equal(t, "coordpt:wgs84-gcj02:116.39700001:39.908", Key(d, a))

	assert.Equal(t, transform.Convert(d, a), c.Convert(context.Background(), d, a))
	assert.Equal(t, transform.Convert(d, b), c.Convert(context.Background(), d, b))
	assert.Equal(t, 2, c.Len())

	// Redis 层同样按精确坐标区分
	c2, err := New(8, time.Minute, rc)
	require.NoError(t, err)
	assert.Equal(t, transform.Convert(d, b), c2.Convert(context.Background(), d, b))
}

func TestExpiredLocalEntryIsRecomputed(t *testing.T) {
	c, err := New(4, -time.Second, nil)
	require.NoError(t, err)
	p := orb.Point{113.3, 23.1}
	c.local.Add(Key(transform.BD09ToWGS84, p), entry{p: orb.Point{0, 0}, exp: time.Now().Add(-time.Minute)})
	assert.Equal(t, transform.Convert(transform.BD09ToWGS84, p), c.Convert(context.Background(), transform.BD09ToWGS84, p))
}

func TestDecode(t *testing.T) {
	_, ok := decode("1.0")
	assert.False(t, ok)
	_, ok = decode("a,b")
	assert.False(t, ok)
	p, ok := decode("-1.25,3")
	assert.True(t, ok)
	assert.Equal(t, orb.Point{-1.25, 3}, p)
}
