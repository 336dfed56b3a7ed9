// 包 table：批量转换的表格读写，按扩展名区分分隔文本与电子表格
package table

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Format：文件格式族
type Format int

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatSpreadsheet
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatSpreadsheet:
		return "spreadsheet"
	}
	return "unknown"
}

// OutputExt：输出文件扩展名；电子表格一律输出 .xlsx
func (f Format) OutputExt(inputExt string) string {
	if f == FormatSpreadsheet {
		return ".xlsx"
	}
	return inputExt
}

// FormatByExt：仅按扩展名判断
func FormatByExt(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt", ".tsv":
		return FormatCSV
	case ".xlsx", ".xlsm", ".xls":
		return FormatSpreadsheet
	}
	return FormatUnknown
}

// Supported：扩展名属于可处理的格式
func Supported(path string) bool { return FormatByExt(path) != FormatUnknown }

// DetectFormat：优先扩展名；扩展名未知时读取文件头识别内容类型
func DetectFormat(path string) (Format, error) {
	if f := FormatByExt(path); f != FormatUnknown {
		return f, nil
	}
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return FormatUnknown, err
	}
	for x := m; x != nil; x = x.Parent() {
		switch x.String() {
		case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "application/vnd.ms-excel":
			return FormatSpreadsheet, nil
		case "text/csv", "text/tab-separated-values":
			return FormatCSV, nil
		}
	}
	return FormatUnknown, fmt.Errorf("%w: %s (%s)", ErrUnsupportedFormat, filepath.Base(path), m.String())
}

// spreadsheetKind：电子表格子格式，决定读取实现
func spreadsheetKind(path string) string {
	if strings.ToLower(filepath.Ext(path)) == ".xls" {
		return "xls"
	}
	return "xlsx"
}
