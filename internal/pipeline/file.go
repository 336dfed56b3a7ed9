package pipeline

import (
	"fmt"
	"path/filepath"

	"coordconv/internal/logger"
	"coordconv/internal/naming"
	"coordconv/internal/table"
)

// FileResult：单文件处理结果
type FileResult struct {
	Input     string
	Output    string
	Rows      int
	RowErrors []RowError
}

// ConvertFile：读取、逐行转换、追加转换列并写出一个文件
// 参数：keepGoing 在每行之前调用，返回 false 时放弃该文件（不写出）并返回 ErrCancelled
// 异常：读取失败、格式不支持、列不存在、写出失败均作为文件级错误返回
func ConvertFile(job Job, path string, keepGoing func() bool) (FileResult, error) {
	res := FileResult{Input: path}
	name := filepath.Base(path)
	format, err := table.DetectFormat(path)
	if err != nil {
		return res, err
	}
	opts := job.tableOptions()
	t, err := table.ReadAs(path, format, opts)
	if err != nil {
		return res, err
	}
	lngIdx, ok := t.Column(job.LngCol)
	if !ok {
		return res, fmt.Errorf("%w: %s", ErrColumnNotFound, job.LngCol)
	}
	latIdx, ok := t.Column(job.LatCol)
	if !ok {
		return res, fmt.Errorf("%w: %s", ErrColumnNotFound, job.LatCol)
	}

	results := make([]RowResult, 0, len(t.Rows))
	for i := range t.Rows {
		if keepGoing != nil && !keepGoing() {
			return res, ErrCancelled
		}
		r := ConvertRow(job.Direction, t.Cell(i, lngIdx), t.Cell(i, latIdx))
		if !r.OK() {
			logger.L().Warn("row_convert_failed", "file", name, "row", i+1, "err", r.Err)
		}
		results = append(results, r)
	}
	lngs, lats, rowErrs := Columns(results)
	res.Rows = len(results)
	res.RowErrors = rowErrs

	lngOut, latOut := job.ConvertedColumns()
	if err := t.SetColumn(lngOut, lngs); err != nil {
		return res, err
	}
	if err := t.SetColumn(latOut, lats); err != nil {
		return res, err
	}

	out := naming.InDir(job.OutputDir, path, format)
	if err := table.Write(out, format, t, opts); err != nil {
		return res, err
	}
	res.Output = out
	logger.L().Debug("file_written", "file", name, "output", out, "rows", res.Rows, "failed_rows", len(rowErrs))
	return res, nil
}
