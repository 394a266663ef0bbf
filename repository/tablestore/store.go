package tablestore

import (
	"context"
	"errors"
)

/*
行号约定与电子表格一致：表头是第 HeaderRow 行，第一行数据是第 FirstDataRow 行。
列下标从 0 开始。
*/
const (
	HeaderRow    = 1
	FirstDataRow = 2
)

var (
	ErrRowOutOfRange    = errors.New("row out of range")
	ErrColumnOutOfRange = errors.New("column out of range")
	ErrDuplicateColumn  = errors.New("column already exists")
)

/*
Store 是表格存储的读写边界。实现不提供事务和行锁，每个单元格的写入都是后写覆盖先写。

	Export 导出表头和全部数据行，格式为 CSV；
	Header 读取表头；
	Column 读取某一列在所有数据行上的值，下标 i 对应第 FirstDataRow+i 行；
	Row 读取一行，row 为表格行号；
	Update 按列下标写入一行中的若干单元格；
	AddColumns 在表头末尾追加列，已存在的同名列返回 ErrDuplicateColumn；
*/
type Store interface {
	Export(ctx context.Context) ([]byte, error)
	Header(ctx context.Context) ([]string, error)
	Column(ctx context.Context, col int) ([]string, error)
	Row(ctx context.Context, row int) ([]string, error)
	Update(ctx context.Context, row int, cells map[int]string) error
	AddColumns(ctx context.Context, names []string) error
}

/*
Importer 由支持整体替换内容的存储实现，用于上传新的表格。
*/
type Importer interface {
	Import(ctx context.Context, table *Table) error
}
