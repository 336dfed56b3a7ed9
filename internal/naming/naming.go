// 包 naming：输出文件命名，保证不覆盖输出目录中已有文件
package naming

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"coordconv/internal/table"
)

// Prefix：输出文件名固定前缀
const Prefix = "converted_"

// Choose：依次尝试 converted_<base><ext>、converted_1_<base><ext>、converted_2_<base><ext>…，
// 返回第一个 exists 判定为不存在的名称
// 约束：纯函数，目录访问由 exists 提供，便于脱离文件系统测试
func Choose(base, ext string, exists func(name string) bool) string {
	name := Prefix + base + ext
	for counter := 1; exists(name); counter++ {
		name = Prefix + strconv.Itoa(counter) + "_" + base + ext
	}
	return name
}

// FromSet：以已有文件名集合作为判定依据
func FromSet(existing map[string]struct{}) func(string) bool {
	return func(name string) bool {
		_, ok := existing[name]
		return ok
	}
}

// InDir：为输入文件在输出目录中选定输出路径；扩展名先按输出格式确定再做去重
// 约束：先查后写非原子，同一输出目录的任务需由调用方串行化
func InDir(dir, input string, f table.Format) string {
	inputName := filepath.Base(input)
	ext := filepath.Ext(inputName)
	base := strings.TrimSuffix(inputName, ext)
	name := Choose(base, f.OutputExt(ext), func(name string) bool {
		_, err := os.Lstat(filepath.Join(dir, name))
		return err == nil
	})
	return filepath.Join(dir, name)
}
