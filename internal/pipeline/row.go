package pipeline

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"coordconv/internal/transform"
)

var (
	ErrNullCoordinate = errors.New("经纬度为空")
	ErrBadCoordinate  = errors.New("坐标不是有效数字")
)

// 与表格工具一致的空值记号
var nullTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {}, "-NaN": {}, "-nan": {},
	"1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {},
	"n/a": {}, "nan": {}, "null": {},
}

// RowResult：单行转换结果，Err 非空时 Point 无意义
type RowResult struct {
	Point orb.Point
	Err   error
}

func (r RowResult) OK() bool { return r.Err == nil }

// RowError：行级诊断，Row 为数据行序号（从 1 开始，不含表头）
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Row, e.Err) }

func (e RowError) Unwrap() error { return e.Err }

// ParseCoordinate：单元格转为有限浮点数；空值与非数字分别返回 ErrNullCoordinate / ErrBadCoordinate
func ParseCoordinate(v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return 0, ErrNullCoordinate
	case float64:
		if math.IsNaN(x) {
			return 0, ErrNullCoordinate
		}
		if math.IsInf(x, 0) {
			return 0, fmt.Errorf("%w: %v", ErrBadCoordinate, x)
		}
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		if _, ok := nullTokens[s]; ok {
			return 0, ErrNullCoordinate
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, fmt.Errorf("%w: %q", ErrBadCoordinate, x)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: %v", ErrBadCoordinate, v)
}

// ConvertRow：读取一行的两个坐标单元格并转换
func ConvertRow(d transform.Direction, lng, lat any) RowResult {
	x, err := ParseCoordinate(lng)
	if err != nil {
		return RowResult{Err: err}
	}
	y, err := ParseCoordinate(lat)
	if err != nil {
		return RowResult{Err: err}
	}
	return RowResult{Point: transform.Convert(d, orb.Point{x, y})}
}

// Columns：把逐行结果展开为两列，失败行为 (nil, nil)；同时收集行级诊断
func Columns(results []RowResult) (lngs, lats []any, errs []RowError) {
	lngs = make([]any, len(results))
	lats = make([]any, len(results))
	for i, r := range results {
		if !r.OK() {
			errs = append(errs, RowError{Row: i + 1, Err: r.Err})
			continue
		}
		lngs[i] = r.Point.Lon()
		lats[i] = r.Point.Lat()
	}
	return lngs, lats, errs
}
