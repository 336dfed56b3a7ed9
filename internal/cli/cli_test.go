package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coordconv/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfg := config.FromEnv(func(string) string { return "" })
	cmd := NewRootCmd(cfg)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConvertGuessesColumns(t *testing.T) {
	in := filepath.Join(t.TempDir(), "pois.csv")
	require.NoError(t, os.WriteFile(in, []byte("名称,经度,纬度\nA,116.397,39.908\n"), 0o644))
	outDir := t.TempDir()

	out, err := execute(t, "convert", in, "-o", outDir, "-d", "gcj02->wgs84")
	require.NoError(t, err)
	assert.Contains(t, out, "进度: 100%")
	assert.Contains(t, out, "✅ 成功转换: pois.csv")

	b, err := os.ReadFile(filepath.Join(outDir, "converted_pois.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	assert.Equal(t, "名称,经度,纬度,经度_converted,纬度_converted", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "A,116.397,39.908,116.3907566"), lines[1])
}

func TestConvertReportsFailedFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.csv")
	require.NoError(t, os.WriteFile(good, []byte("lng,lat\n1,2\n"), 0o644))
	missing := filepath.Join(dir, "missing.csv")

	out, err := execute(t, "convert", good, missing, "-o", t.TempDir(), "--lng", "lng", "--lat", "lat", "-d", "0")
	assert.ErrorIs(t, err, ErrFilesFailed)
	assert.Contains(t, out, "✅ 成功转换: good.csv")
	assert.Contains(t, out, "❌ 处理文件 missing.csv 时出错")
}

func TestConvertRejectsBadConfig(t *testing.T) {
	in := filepath.Join(t.TempDir(), "a.csv")
	require.NoError(t, os.WriteFile(in, []byte("foo,bar\n1,2\n"), 0o644))

	_, err := execute(t, "convert", in, "-o", t.TempDir())
	assert.Error(t, err)

	_, err = execute(t, "convert", in, "-o", t.TempDir(), "--lng", "foo", "--lat", "bar", "-d", "wgs84-wgs84")
	assert.Error(t, err)

	_, err = execute(t, "convert", in, "--lng", "foo", "--lat", "bar")
	assert.Error(t, err)
}

func TestColumns(t *testing.T) {
	in := filepath.Join(t.TempDir(), "a.csv")
	require.NoError(t, os.WriteFile(in, []byte("id,Longitude,Latitude\n1,2,3\n"), 0o644))
	out, err := execute(t, "columns", in)
	require.NoError(t, err)
	assert.Contains(t, out, "1\tLongitude")
	assert.Contains(t, out, "猜测经度列: Longitude")
	assert.Contains(t, out, "猜测纬度列: Latitude")
}

func TestPoint(t *testing.T) {
	out, err := execute(t, "point", "116.397", "39.908", "-d", "gcj02-wgs84")
	require.NoError(t, err)
	assert.Contains(t, out, "116.3907566214522,39.906596646092765")
	assert.Contains(t, out, "往返误差")

	out, err = execute(t, "point", "2.35", "48.85", "-d", "wgs84-gcj02")
	require.NoError(t, err)
	assert.Contains(t, out, "2.35,48.85")
	assert.Contains(t, out, "国境范围外")

	_, err = execute(t, "point", "x", "1")
	assert.Error(t, err)
}

func TestDirections(t *testing.T) {
	out, err := execute(t, "directions")
	require.NoError(t, err)
	assert.Equal(t, 6, strings.Count(out, "\n"))
	assert.Contains(t, out, "5\twgs84-bd09")
}
