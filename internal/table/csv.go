package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	ErrUnknownEncoding = errors.New("unknown text encoding")
	ErrInvalidText     = errors.New("file is not valid text in the selected encoding")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// textEncoding：按名称返回编码；utf-8 读取时自动剥离 BOM，utf-8-sig 写出时带 BOM
func textEncoding(name string) (encoding.Encoding, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-") {
	case "", "utf-8", "utf8":
		return unicode.UTF8, nil
	case "utf-8-sig", "utf8-sig":
		return unicode.UTF8BOM, nil
	case "gbk", "cp936":
		return simplifiedchinese.GBK, nil
	case "gb18030":
		return simplifiedchinese.GB18030, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
}

// ValidEncoding：配置阶段校验编码名称
func ValidEncoding(name string) error {
	_, err := textEncoding(name)
	return err
}

func delimiterFor(path string, opts Options) rune {
	if opts.Delimiter != 0 {
		return opts.Delimiter
	}
	if strings.ToLower(filepath.Ext(path)) == ".tsv" {
		return '\t'
	}
	return ','
}

func readCSV(path string, opts Options, limit int) (*Table, error) {
	enc, err := textEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}
	var src io.Reader
	if enc == unicode.UTF8 || enc == unicode.UTF8BOM {
		// utf-8 严格校验：非法字节直接判定文件失败，不替换为 U+FFFD
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		raw = bytes.TrimPrefix(raw, utf8BOM)
		if !utf8.Valid(raw) {
			return nil, fmt.Errorf("%w: %s 不是有效的 utf-8 文本，可尝试 --encoding gbk", ErrInvalidText, filepath.Base(path))
		}
		src = bytes.NewReader(raw)
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		src = transform.NewReader(f, enc.NewDecoder())
	}
	r := csv.NewReader(src)
	r.Comma = delimiterFor(path, opts)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		records = append(records, rec)
		if limit >= 0 && len(records) > limit {
			break
		}
	}
	return fromRecords(records, limit), nil
}

func writeCSV(path string, t *Table, opts Options) (err error) {
	enc, err := textEncoding(opts.Encoding)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	var dst io.WriteCloser = nopCloser{f}
	if enc != unicode.UTF8 {
		dst = transform.NewWriter(f, enc.NewEncoder())
	}
	w := csv.NewWriter(dst)
	w.Comma = delimiterFor(path, opts)
	if err := w.Write(t.Header); err != nil {
		return err
	}
	rec := make([]string, 0, len(t.Header))
	for _, row := range t.Rows {
		rec = rec[:0]
		for _, v := range row {
			rec = append(rec, FormatCell(v))
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return dst.Close()
}

// FormatCell：单元格文本形式；空值为空串，浮点数取最短表示
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	}
	return fmt.Sprint(v)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
