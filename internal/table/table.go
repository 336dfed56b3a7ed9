package table

import (
	"fmt"
	"os"
	"path/filepath"
)

// Table：整表驻留内存；单元格取值为 string、float64 或 nil（空值）
type Table struct {
	Header []string
	Rows   [][]any
}

// Options：读写选项；Encoding 只作用于分隔文本
type Options struct {
	Encoding  string
	Delimiter rune
}

// Column：按列名定位列序号
func (t *Table) Column(name string) (int, bool) {
	for i, h := range t.Header {
		if h == name {
			return i, true
		}
	}
	return -1, false
}

// Cell：越界返回 nil，兼容参差行
func (t *Table) Cell(row, col int) any {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return nil
	}
	return t.Rows[row][col]
}

// AppendColumn：在末尾追加一列，values 长度必须等于行数
func (t *Table) AppendColumn(name string, values []any) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("column %q has %d values for %d rows", name, len(values), len(t.Rows))
	}
	width := len(t.Header)
	t.Header = append(t.Header, name)
	for i := range t.Rows {
		for len(t.Rows[i]) < width {
			t.Rows[i] = append(t.Rows[i], nil)
		}
		t.Rows[i] = append(t.Rows[i], values[i])
	}
	return nil
}

// SetColumn：同名列已存在时原位覆盖，否则追加
func (t *Table) SetColumn(name string, values []any) error {
	i, ok := t.Column(name)
	if !ok {
		return t.AppendColumn(name, values)
	}
	if len(values) != len(t.Rows) {
		return fmt.Errorf("column %q has %d values for %d rows", name, len(values), len(t.Rows))
	}
	for r := range t.Rows {
		for len(t.Rows[r]) <= i {
			t.Rows[r] = append(t.Rows[r], nil)
		}
		t.Rows[r][i] = values[r]
	}
	return nil
}

// Read：按格式整表读取
func Read(path string, opts Options) (*Table, error) {
	f, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	return ReadAs(path, f, opts)
}

// ReadAs：跳过格式探测，调用方已确定格式
func ReadAs(path string, f Format, opts Options) (*Table, error) {
	switch f {
	case FormatCSV:
		return readCSV(path, opts, -1)
	case FormatSpreadsheet:
		return readSpreadsheet(path, -1)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
}

// Peek：只取表头与前 n 行，用于字段识别
func Peek(path string, n int, opts Options) (*Table, error) {
	f, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	switch f {
	case FormatCSV:
		return readCSV(path, opts, n)
	case FormatSpreadsheet:
		return readSpreadsheet(path, n)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
}

// Write：按格式写出；电子表格固定写为 xlsx
func Write(path string, f Format, t *Table, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	switch f {
	case FormatCSV:
		return writeCSV(path, t, opts)
	case FormatSpreadsheet:
		return writeXLSX(path, t)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
}

// fromRecords：首行作为表头，其余行补齐到表头宽度；limit<0 表示不限行数
func fromRecords(records [][]string, limit int) *Table {
	t := &Table{}
	if len(records) == 0 {
		return t
	}
	t.Header = append([]string(nil), records[0]...)
	for _, rec := range records[1:] {
		if limit >= 0 && len(t.Rows) >= limit {
			break
		}
		t.Rows = append(t.Rows, padRow(rec, len(t.Header)))
	}
	return t
}

func padRow(rec []string, width int) []any {
	n := width
	if len(rec) > n {
		n = len(rec)
	}
	row := make([]any, n)
	for i := range row {
		if i < len(rec) {
			row[i] = rec[i]
		}
	}
	return row
}
