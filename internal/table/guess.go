package table

import "strings"

var (
	lngCandidates = []string{"lng", "longitude", "经度", "lon", "x"}
	latCandidates = []string{"lat", "latitude", "纬度", "y"}
)

// GuessColumns：从表头推测经纬度列
// 先找与候选词完全相同的列名，再退回到包含候选词的第一列；找不到时返回空串
func GuessColumns(header []string) (lng, lat string) {
	return guess(header, lngCandidates), guess(header, latCandidates)
}

func guess(header []string, candidates []string) string {
	for _, h := range header {
		k := strings.ToLower(strings.TrimSpace(h))
		for _, c := range candidates {
			if k == c {
				return h
			}
		}
	}
	for _, h := range header {
		k := strings.ToLower(h)
		for _, c := range candidates {
			if strings.Contains(k, c) {
				return h
			}
		}
	}
	return ""
}
