package tablestore

import (
	"bytes"
	"encoding/csv"
	"errors"
	"rank-annotation-backend/utils"
)

var ErrEmptyTable = errors.New("table has no header row")

/*
Table 是内存中的表格，Rows 中每一行都被补齐到与表头同宽。
*/
type Table struct {
	Header []string
	Rows   [][]string
}

func (t *Table) normalize() {
	width := len(t.Header)
	for i, row := range t.Rows {
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			t.Rows[i] = padded
		} else if len(row) > width {
			t.Rows[i] = row[:width]
		}
	}
}

func (t *Table) Clone() *Table {
	ret := &Table{
		Header: append([]string(nil), t.Header...),
		Rows:   make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		ret.Rows[i] = append([]string(nil), row...)
	}
	return ret
}

/*
EncodeCSV 把表格编码为 CSV，包含双引号的字段按 "" 转义。
*/
func (t *Table) EncodeCSV() ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(t.Header); err != nil {
		return nil, utils.WrapError(err, "write csv header fail")
	}

	for i, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return nil, utils.WrapErrorf(err, "write csv row [%d] fail", i+FirstDataRow)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, utils.WrapError(err, "flush csv fail")
	}

	return buf.Bytes(), nil
}

/*
DecodeCSV 解析 CSV 文本，第一行为表头。引号内的逗号和换行不作为分隔，
行宽不一致时按表头补齐或截断。
*/
func DecodeCSV(data []byte) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, utils.WrapError(err, "parse csv fail")
	}

	if len(records) == 0 {
		return nil, ErrEmptyTable
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = trimBOM(header[0])
	}

	t := &Table{
		Header: header,
		Rows:   records[1:],
	}
	t.normalize()

	return t, nil
}

func trimBOM(s string) string {
	const bom = "\uFEFF"
	if len(s) >= len(bom) && s[:len(bom)] == bom {
		return s[len(bom):]
	}
	return s
}
