// 包 transform：GCJ-02 / BD-09 / WGS84 三种坐标系之间的互转
// 背景：国内互联网地图使用加偏坐标，批量文件需要在三者之间换算后才能与 GPS 数据或其他地图叠加。
// 约束：公式为公开的经验近似式，正反转换不是严格互逆，往返存在米级残差，保留原样不做修正；
// 中国范围以外的点在涉及 GCJ-02 偏移的转换中原样返回。
package transform

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

const (
	xPi = 3.14159265358979324 * 3000.0 / 180.0
	pi  = 3.1415926535897932384626
	// 克拉索夫斯基椭球长半轴与偏心率平方
	krasovskyA  = 6378245.0
	krasovskyEE = 0.00669342162296594323
)

// Convert：按方向转换一个点（X 为经度，Y 为纬度）
func Convert(d Direction, p orb.Point) orb.Point {
	var lng, lat float64
	switch d {
	case GCJ02ToWGS84:
		lng, lat = GCJ02ToWGS84Point(p[0], p[1])
	case GCJ02ToBD09:
		lng, lat = GCJ02ToBD09Point(p[0], p[1])
	case BD09ToGCJ02:
		lng, lat = BD09ToGCJ02Point(p[0], p[1])
	case WGS84ToGCJ02:
		lng, lat = WGS84ToGCJ02Point(p[0], p[1])
	case BD09ToWGS84:
		lng, lat = BD09ToWGS84Point(p[0], p[1])
	case WGS84ToBD09:
		lng, lat = WGS84ToBD09Point(p[0], p[1])
	default:
		return p
	}
	return orb.Point{lng, lat}
}

// Residual：先按 d 转换再按其反向转换回来，与原点的距离（米）
func Residual(d Direction, p orb.Point) float64 {
	back := Convert(d.Inverse(), Convert(d, p))
	return geo.Distance(p, back)
}

// OutOfChina：粗略矩形判定，范围外不施加 GCJ-02 偏移
func OutOfChina(lng, lat float64) bool {
	return !(lng > 73.66 && lng < 135.05 && lat > 3.86 && lat < 53.55)
}

// GCJ02ToBD09Point：火星坐标转百度坐标，全球适用
func GCJ02ToBD09Point(lng, lat float64) (float64, float64) {
	z := math.Sqrt(lng*lng+lat*lat) + 0.00002*math.Sin(lat*xPi)
	theta := math.Atan2(lat, lng) + 0.000003*math.Cos(lng*xPi)
	return z*math.Cos(theta) + 0.0065, z*math.Sin(theta) + 0.006
}

// BD09ToGCJ02Point：百度坐标转火星坐标，全球适用
func BD09ToGCJ02Point(lng, lat float64) (float64, float64) {
	x := lng - 0.0065
	y := lat - 0.006
	z := math.Sqrt(x*x+y*y) - 0.00002*math.Sin(y*xPi)
	theta := math.Atan2(y, x) - 0.000003*math.Cos(x*xPi)
	return z * math.Cos(theta), z * math.Sin(theta)
}

// WGS84ToGCJ02Point：GPS 坐标加偏为火星坐标
func WGS84ToGCJ02Point(lng, lat float64) (float64, float64) {
	if OutOfChina(lng, lat) {
		return lng, lat
	}
	dLng, dLat := offset(lng, lat)
	return lng + dLng, lat + dLat
}

// GCJ02ToWGS84Point：火星坐标纠偏为 GPS 坐标（一次迭代近似）
func GCJ02ToWGS84Point(lng, lat float64) (float64, float64) {
	if OutOfChina(lng, lat) {
		return lng, lat
	}
	dLng, dLat := offset(lng, lat)
	mgLng := lng + dLng
	mgLat := lat + dLat
	return lng*2 - mgLng, lat*2 - mgLat
}

// BD09ToWGS84Point：BD-09 -> GCJ-02 -> WGS84
func BD09ToWGS84Point(lng, lat float64) (float64, float64) {
	return GCJ02ToWGS84Point(BD09ToGCJ02Point(lng, lat))
}

// WGS84ToBD09Point：WGS84 -> GCJ-02 -> BD-09
func WGS84ToBD09Point(lng, lat float64) (float64, float64) {
	return GCJ02ToBD09Point(WGS84ToGCJ02Point(lng, lat))
}

// offset：GCJ-02 相对 WGS84 的经纬度偏移量（度）
func offset(lng, lat float64) (float64, float64) {
	dLat := transformLat(lng-105.0, lat-35.0)
	dLng := transformLng(lng-105.0, lat-35.0)
	radLat := lat / 180.0 * pi
	magic := math.Sin(radLat)
	magic = 1 - krasovskyEE*magic*magic
	sqrtMagic := math.Sqrt(magic)
	dLat = (dLat * 180.0) / ((krasovskyA * (1 - krasovskyEE)) / (magic * sqrtMagic) * pi)
	dLng = (dLng * 180.0) / (krasovskyA / sqrtMagic * math.Cos(radLat) * pi)
	return dLng, dLat
}

func transformLat(x, y float64) float64 {
	ret := -100.0 + 2.0*x + 3.0*y + 0.2*y*y + 0.1*x*y + 0.2*math.Sqrt(math.Abs(x))
	ret += (20.0*math.Sin(6.0*x*pi) + 20.0*math.Sin(2.0*x*pi)) * 2.0 / 3.0
	ret += (20.0*math.Sin(y*pi) + 40.0*math.Sin(y/3.0*pi)) * 2.0 / 3.0
	ret += (160.0*math.Sin(y/12.0*pi) + 320*math.Sin(y*pi/30.0)) * 2.0 / 3.0
	return ret
}

func transformLng(x, y float64) float64 {
	ret := 300.0 + x + 2.0*y + 0.1*x*x + 0.1*x*y + 0.1*math.Sqrt(math.Abs(x))
	ret += (20.0*math.Sin(6.0*x*pi) + 20.0*math.Sin(2.0*x*pi)) * 2.0 / 3.0
	ret += (20.0*math.Sin(x*pi) + 40.0*math.Sin(x/3.0*pi)) * 2.0 / 3.0
	ret += (150.0*math.Sin(x/12.0*pi) + 300.0*math.Sin(x/30.0*pi)) * 2.0 / 3.0
	return ret
}
