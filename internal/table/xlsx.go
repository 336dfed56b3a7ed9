package table

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

const outputSheet = "Sheet1"

var ErrEmptyWorkbook = errors.New("workbook has no sheets")

// readSpreadsheet：读取第一个工作表；xlsx/xlsm 取原始单元格值，避免显示格式截断小数位
func readSpreadsheet(path string, limit int) (*Table, error) {
	if spreadsheetKind(path) == "xls" {
		return readXLS(path, limit)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyWorkbook, filepath.Base(path))
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	return fromRecords(rows, limit), nil
}

// readXLS：旧版 BIFF 格式，仅读取
func readXLS(path string, limit int) (*Table, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, err
	}
	if wb == nil || wb.NumSheets() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyWorkbook, filepath.Base(path))
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("%w: %s", ErrEmptyWorkbook, filepath.Base(path))
	}
	var records [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := xlsRow(sheet, i)
		if row == nil {
			records = append(records, nil)
			continue
		}
		rec := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			rec = append(rec, row.Col(j))
		}
		records = append(records, rec)
		if limit >= 0 && len(records) > limit {
			break
		}
	}
	return fromRecords(trimTrailingEmpty(records), limit), nil
}

// xlsRow：xls.WorkSheet.Row 对没有任何记录的行会解引用空指针，这里转为 nil
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

// trimTrailingEmpty：去掉末尾的空行（无单元格或单元格全为空串）
func trimTrailingEmpty(records [][]string) [][]string {
	for len(records) > 0 && blankRecord(records[len(records)-1]) {
		records = records[:len(records)-1]
	}
	return records
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if v != "" {
			return false
		}
	}
	return true
}

// writeXLSX：流式写出到 Sheet1；形如数值的文本写为数值单元格
func writeXLSX(path string, t *Table) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	sw, err := f.NewStreamWriter(outputSheet)
	if err != nil {
		return err
	}
	header := make([]interface{}, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}
	for r, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		vals := make([]interface{}, len(row))
		for i, v := range row {
			vals[i] = xlsxValue(v)
		}
		if err := sw.SetRow(cell, vals); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.SaveAs(path)
}

func xlsxValue(v any) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case string:
		if n, ok := plainNumber(x); ok {
			return n
		}
		return x
	}
	return v
}

// plainNumber：只接受普通十进制写法，保留 "007"、"+86"、"1e5" 等文本原样
func plainNumber(s string) (float64, bool) {
	if s == "" || strings.TrimSpace(s) != s || strings.ContainsAny(s, "eExX+_") {
		return 0, false
	}
	digits := strings.TrimPrefix(s, "-")
	if len(digits) > 1 && digits[0] == '0' && digits[1] != '.' {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
