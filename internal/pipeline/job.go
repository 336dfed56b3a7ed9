// 包 pipeline：批量坐标转换流水线
// 背景：逐文件读取表格、逐行换算坐标、追加转换列后写出新文件，通过事件流向调用方报告进度与结果。
// 约束：文件严格按给定顺序串行处理；单行失败记为空值继续，单文件失败上报后继续下一个文件。
package pipeline

import (
	"errors"
	"fmt"
	"os"

	"coordconv/internal/table"
	"coordconv/internal/transform"
)

var (
	ErrNoFiles        = errors.New("no input files")
	ErrNoOutputDir    = errors.New("output directory not set")
	ErrOutputNotDir   = errors.New("output path is not a directory")
	ErrNoColumns      = errors.New("longitude and latitude columns must both be set")
	ErrColumnNotFound = errors.New("column not found")
	ErrCancelled      = errors.New("conversion cancelled")
)

// Job：一次批量转换的全部配置，运行期间不可变
type Job struct {
	Files     []string            `json:"files"`
	OutputDir string              `json:"output_dir"`
	LngCol    string              `json:"lng_col"`
	LatCol    string              `json:"lat_col"`
	Direction transform.Direction `json:"direction"`
	Encoding  string              `json:"encoding,omitempty"`
}

// Validate：配置错误在任务开始前拒绝
func (j Job) Validate() error {
	if len(j.Files) == 0 {
		return ErrNoFiles
	}
	if j.OutputDir == "" {
		return ErrNoOutputDir
	}
	fi, err := os.Stat(j.OutputDir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoOutputDir, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: %s", ErrOutputNotDir, j.OutputDir)
	}
	if j.LngCol == "" || j.LatCol == "" {
		return ErrNoColumns
	}
	if !j.Direction.Valid() {
		return fmt.Errorf("%w: %d", transform.ErrUnknownDirection, int(j.Direction))
	}
	return table.ValidEncoding(j.Encoding)
}

// ConvertedColumns：转换结果列名
func (j Job) ConvertedColumns() (string, string) {
	return j.LngCol + "_converted", j.LatCol + "_converted"
}

func (j Job) tableOptions() table.Options {
	return table.Options{Encoding: j.Encoding}
}
