package sheetdb

import (
	"gorm.io/gorm"
	"time"
)

/*
Sheet 记录一张表格的元信息。

	Name 表格名，同一个数据库中可以保存多张表格；
	RowCount 数据行数量，不含表头；
*/
type Sheet struct {
	gorm.Model
	Name     string `gorm:"type:varchar(64);uniqueIndex:idx_sheets_name"`
	RowCount int
}

/*
SheetColumn 是表头中的一列。

	Position 列下标，从 0 开始；
	Name 表头中的原始列名；
*/
type SheetColumn struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time

	SheetName string `gorm:"type:varchar(64);uniqueIndex:idx_sheet_columns_pos"`
	Position  int    `gorm:"uniqueIndex:idx_sheet_columns_pos"`
	Name      string `gorm:"type:varchar(128)"`
}

/*
SheetCell 是一个非空单元格，没有记录的单元格视为空字符串。

	Row 表格行号，第一行数据为 tablestore.FirstDataRow；
	Col 列下标；
*/
type SheetCell struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	SheetName string `gorm:"type:varchar(64);uniqueIndex:idx_sheet_cells_pos"`
	Row       int    `gorm:"uniqueIndex:idx_sheet_cells_pos"`
	Col       int    `gorm:"uniqueIndex:idx_sheet_cells_pos"`
	Value     string `gorm:"type:text"`
}
