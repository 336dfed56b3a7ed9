package transform

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Datum：参考坐标系
type Datum int

const (
	GCJ02 Datum = iota
	BD09
	WGS84
)

func (d Datum) String() string {
	switch d {
	case GCJ02:
		return "gcj02"
	case BD09:
		return "bd09"
	case WGS84:
		return "wgs84"
	}
	return "datum(" + strconv.Itoa(int(d)) + ")"
}

// ParseDatum：大小写不敏感，兼容 "GCJ-02"、"BD-09" 写法
func ParseDatum(s string) (Datum, error) {
	k := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "")
	switch k {
	case "gcj02", "gcj":
		return GCJ02, nil
	case "bd09", "bd", "baidu":
		return BD09, nil
	case "wgs84", "wgs", "gps":
		return WGS84, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDatum, s)
}

// Direction：一次批量任务的转换方向，取值顺序与界面下拉框的序号一致（0..5）
type Direction int

const (
	GCJ02ToWGS84 Direction = iota
	GCJ02ToBD09
	BD09ToGCJ02
	WGS84ToGCJ02
	BD09ToWGS84
	WGS84ToBD09
)

var (
	ErrUnknownDirection = errors.New("unknown conversion direction")
	ErrUnknownDatum     = errors.New("unknown datum")
	ErrUnsupportedPair  = errors.New("unsupported datum pair")
)

var pairs = [...]struct{ from, to Datum }{
	GCJ02ToWGS84: {GCJ02, WGS84},
	GCJ02ToBD09:  {GCJ02, BD09},
	BD09ToGCJ02:  {BD09, GCJ02},
	WGS84ToGCJ02: {WGS84, GCJ02},
	BD09ToWGS84:  {BD09, WGS84},
	WGS84ToBD09:  {WGS84, BD09},
}

// Directions：全部六个方向，按序号排列
func Directions() []Direction {
	return []Direction{GCJ02ToWGS84, GCJ02ToBD09, BD09ToGCJ02, WGS84ToGCJ02, BD09ToWGS84, WGS84ToBD09}
}

func (d Direction) Valid() bool { return d >= GCJ02ToWGS84 && d <= WGS84ToBD09 }

// From / To：非法方向返回 -1，String 展示为 datum(-1)
func (d Direction) From() Datum {
	if !d.Valid() {
		return -1
	}
	return pairs[d].from
}

func (d Direction) To() Datum {
	if !d.Valid() {
		return -1
	}
	return pairs[d].to
}

// Inverse：反向转换；六个方向两两互逆，非法方向原样返回
func (d Direction) Inverse() Direction {
	if !d.Valid() {
		return d
	}
	inv, _ := Lookup(d.To(), d.From())
	return inv
}

func (d Direction) String() string {
	if !d.Valid() {
		return "direction(" + strconv.Itoa(int(d)) + ")"
	}
	return d.From().String() + "-" + d.To().String()
}

// Label：日志与界面展示用的中文名称
func (d Direction) Label() string {
	names := map[Datum]string{GCJ02: "GCJ02(火星坐标)", BD09: "BD09(百度坐标)", WGS84: "WGS84(GPS坐标)"}
	if !d.Valid() {
		return d.String()
	}
	return names[d.From()] + " -> " + names[d.To()]
}

// Lookup：按源/目标坐标系查找方向；相同坐标系或未知组合属于配置错误，在任务开始前拒绝
func Lookup(from, to Datum) (Direction, error) {
	for _, d := range Directions() {
		if pairs[d].from == from && pairs[d].to == to {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: %s -> %s", ErrUnsupportedPair, from, to)
}

// ParseDirection：接受 "gcj02-wgs84"、"gcj02_to_wgs84"、"GCJ02->WGS84" 或序号 "0".."5"
func ParseDirection(s string) (Direction, error) {
	t := strings.ToLower(strings.TrimSpace(s))
	if t == "" {
		return 0, ErrUnknownDirection
	}
	if n, err := strconv.Atoi(t); err == nil {
		d := Direction(n)
		if !d.Valid() {
			return 0, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
		}
		return d, nil
	}
	for _, sep := range []string{"->", "_to_", ":", "-", "_"} {
		// "gcj-02-wgs84" 含多个 "-"，逐个位置尝试切分
		for off := 0; off < len(t); {
			i := strings.Index(t[off:], sep)
			if i < 0 {
				break
			}
			i += off
			from, err1 := ParseDatum(t[:i])
			to, err2 := ParseDatum(t[i+len(sep):])
			if err1 == nil && err2 == nil {
				return Lookup(from, to)
			}
			off = i + len(sep)
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

// MarshalText / UnmarshalText：JSON 请求体中以字符串形式出现
func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDirection, int(d))
	}
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
