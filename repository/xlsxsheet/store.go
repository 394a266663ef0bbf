package xlsxsheet

import (
	"bytes"
	"context"
	"errors"
	"github.com/xuri/excelize/v2"
	"os"
	"rank-annotation-backend/repository/tablestore"
	"rank-annotation-backend/utils"
	"strings"
	"sync"
)

var ErrNoSheet = errors.New("no sheet in workbook")

type Config struct {
	// xlsx 文件路径
	Path string
	// 工作表名，为空时使用第一个工作表
	Sheet string
}

/*
Store 把表格保存在磁盘上的 xlsx 文件中。每次操作都重新打开文件，
所有操作在同一把锁下执行，写入后立即保存。
*/
type Store struct {
	mu     sync.Mutex
	config Config
}

/*
Open 打开 xlsx 文件，文件不存在时创建一个只有空工作表的文件。
*/
func Open(config *Config) (*Store, error) {
	s := &Store{config: *config}

	if _, err := os.Stat(config.Path); errors.Is(err, os.ErrNotExist) {
		if err := s.write(&tablestore.Table{}); err != nil {
			return nil, err
		}
	}

	f, err := s.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := s.sheetName(f); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(s.config.Path)
	if err != nil {
		return nil, utils.WrapErrorf(err, "open workbook [%s] fail", s.config.Path)
	}
	return f, nil
}

func (s *Store) sheetName(f *excelize.File) (string, error) {
	sheets := f.GetSheetList()
	if len(s.config.Sheet) != 0 {
		for _, name := range sheets {
			if name == s.config.Sheet {
				return name, nil
			}
		}
		return "", utils.WrapErrorf(ErrNoSheet, "sheet [%s]", s.config.Sheet)
	}

	if len(sheets) == 0 {
		return "", ErrNoSheet
	}
	return sheets[0], nil
}

// 调用方持有锁
func (s *Store) read() (*tablestore.Table, error) {
	f, err := s.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name, err := s.sheetName(f)
	if err != nil {
		return nil, err
	}

	return readSheet(f, name)
}

func readSheet(f *excelize.File, name string) (*tablestore.Table, error) {
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, utils.WrapErrorf(err, "read rows of sheet [%s] fail", name)
	}

	t := &tablestore.Table{}
	if len(rows) == 0 {
		return t, nil
	}

	t.Header = rows[0]
	for _, row := range rows[1:] {
		padded := make([]string, len(t.Header))
		copy(padded, row)
		t.Rows = append(t.Rows, padded)
	}
	return t, nil
}

// 调用方持有锁，用 table 覆盖整个工作表
func (s *Store) write(table *tablestore.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	name := s.config.Sheet
	if len(name) == 0 {
		name = "Sheet1"
	}
	if name != "Sheet1" {
		if err := f.SetSheetName("Sheet1", name); err != nil {
			return utils.WrapErrorf(err, "rename sheet to [%s] fail", name)
		}
	}

	rows := append([][]string{table.Header}, table.Rows...)
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+tablestore.HeaderRow)
		if err != nil {
			return utils.WrapError(err, "convert coordinates fail")
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(name, cell, &values); err != nil {
			return utils.WrapErrorf(err, "write row [%d] fail", i+tablestore.HeaderRow)
		}
	}

	return utils.WrapErrorf(f.SaveAs(s.config.Path), "save workbook [%s] fail", s.config.Path)
}

func (s *Store) Export(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.read()
	if err != nil {
		return nil, err
	}
	return t.EncodeCSV()
}

func (s *Store) Header(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.read()
	if err != nil {
		return nil, err
	}
	return t.Header, nil
}

func (s *Store) Column(ctx context.Context, col int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.read()
	if err != nil {
		return nil, err
	}
	if col < 0 || col >= len(t.Header) {
		return nil, utils.WrapErrorf(tablestore.ErrColumnOutOfRange, "column [%d]", col)
	}

	ret := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		ret[i] = row[col]
	}
	return ret, nil
}

func (s *Store) Row(ctx context.Context, row int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.read()
	if err != nil {
		return nil, err
	}

	i := row - tablestore.FirstDataRow
	if i < 0 || i >= len(t.Rows) {
		return nil, utils.WrapErrorf(tablestore.ErrRowOutOfRange, "row [%d]", row)
	}
	return t.Rows[i], nil
}

func (s *Store) Update(ctx context.Context, row int, cells map[int]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	name, err := s.sheetName(f)
	if err != nil {
		return err
	}
	t, err := readSheet(f, name)
	if err != nil {
		return err
	}

	if i := row - tablestore.FirstDataRow; i < 0 || i >= len(t.Rows) {
		return utils.WrapErrorf(tablestore.ErrRowOutOfRange, "row [%d]", row)
	}

	for col, value := range cells {
		if col < 0 || col >= len(t.Header) {
			return utils.WrapErrorf(tablestore.ErrColumnOutOfRange, "column [%d]", col)
		}
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return utils.WrapError(err, "convert coordinates fail")
		}
		if err := f.SetCellStr(name, cell, value); err != nil {
			return utils.WrapErrorf(err, "set cell [%s] fail", cell)
		}
	}

	return utils.WrapError(f.Save(), "save workbook fail")
}

func (s *Store) AddColumns(ctx context.Context, names []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	name, err := s.sheetName(f)
	if err != nil {
		return err
	}
	t, err := readSheet(f, name)
	if err != nil {
		return err
	}

	existing := make(map[string]struct{}, len(t.Header))
	for _, h := range t.Header {
		existing[h] = struct{}{}
	}
	for i, column := range names {
		if _, ok := existing[column]; ok {
			return utils.WrapErrorf(tablestore.ErrDuplicateColumn, "column [%s]", column)
		}
		cell, err := excelize.CoordinatesToCellName(len(t.Header)+i+1, tablestore.HeaderRow)
		if err != nil {
			return utils.WrapError(err, "convert coordinates fail")
		}
		if err := f.SetCellStr(name, cell, column); err != nil {
			return utils.WrapErrorf(err, "set cell [%s] fail", cell)
		}
	}

	return utils.WrapError(f.Save(), "save workbook fail")
}

func (s *Store) Import(ctx context.Context, table *tablestore.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(table)
}

// 这些工作表通常只有说明文字
var skipSheets = map[string]bool{
	"info":     true,
	"metadata": true,
	"about":    true,
	"readme":   true,
	"notes":    true,
}

/*
ReadTable 读取上传的 xlsx 文件，使用第一个不是说明页的工作表。
*/
func ReadTable(content []byte) (*tablestore.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, utils.WrapError(err, "open workbook fail")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}

	name := sheets[len(sheets)-1]
	for _, sheet := range sheets {
		if !skipSheets[strings.ToLower(sheet)] {
			name = sheet
			break
		}
	}

	t, err := readSheet(f, name)
	if err != nil {
		return nil, err
	}
	if len(t.Header) == 0 {
		return nil, tablestore.ErrEmptyTable
	}
	return t, nil
}
