package sheetdb

import (
	"context"
	"errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"rank-annotation-backend/repository/tablestore"
	"rank-annotation-backend/utils"
)

/*
Store 把一张表格保存在 MySQL 中，每个非空单元格一条记录。
单元格写入使用 upsert，与电子表格一样后写覆盖先写。
*/
type Store struct {
	db   *gorm.DB
	name string
}

func NewStore(db *gorm.DB, name string) *Store {
	return &Store{db: db, name: name}
}

func (s *Store) sheet(tx *gorm.DB) (*Sheet, error) {
	var sheet Sheet
	err := tx.Where("name = ?", s.name).Take(&sheet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Sheet{Name: s.name}, nil
	}
	if err != nil {
		return nil, utils.WrapErrorf(err, "find sheet [%s] fail", s.name)
	}
	return &sheet, nil
}

func (s *Store) Header(ctx context.Context) ([]string, error) {
	return s.header(s.db.WithContext(ctx))
}

func (s *Store) header(tx *gorm.DB) ([]string, error) {
	var columns []SheetColumn
	err := tx.Where("sheet_name = ?", s.name).Order("position").Find(&columns).Error
	if err != nil {
		return nil, utils.WrapError(err, "find columns fail")
	}

	ret := make([]string, len(columns))
	for i, c := range columns {
		ret[i] = c.Name
	}
	return ret, nil
}

func (s *Store) Column(ctx context.Context, col int) ([]string, error) {
	tx := s.db.WithContext(ctx)

	header, err := s.header(tx)
	if err != nil {
		return nil, err
	}
	if col < 0 || col >= len(header) {
		return nil, utils.WrapErrorf(tablestore.ErrColumnOutOfRange, "column [%d]", col)
	}

	sheet, err := s.sheet(tx)
	if err != nil {
		return nil, err
	}

	var cells []SheetCell
	err = tx.Where("sheet_name = ? AND col = ?", s.name, col).Find(&cells).Error
	if err != nil {
		return nil, utils.WrapErrorf(err, "find cells of column [%d] fail", col)
	}

	ret := make([]string, sheet.RowCount)
	for _, c := range cells {
		i := c.Row - tablestore.FirstDataRow
		if i >= 0 && i < len(ret) {
			ret[i] = c.Value
		}
	}
	return ret, nil
}

func (s *Store) Row(ctx context.Context, row int) ([]string, error) {
	tx := s.db.WithContext(ctx)

	header, err := s.header(tx)
	if err != nil {
		return nil, err
	}

	sheet, err := s.sheet(tx)
	if err != nil {
		return nil, err
	}
	if row < tablestore.FirstDataRow || row-tablestore.FirstDataRow >= sheet.RowCount {
		return nil, utils.WrapErrorf(tablestore.ErrRowOutOfRange, "row [%d]", row)
	}

	var cells []SheetCell
	err = tx.Where("sheet_name = ? AND `row` = ?", s.name, row).Find(&cells).Error
	if err != nil {
		return nil, utils.WrapErrorf(err, "find cells of row [%d] fail", row)
	}

	ret := make([]string, len(header))
	for _, c := range cells {
		if c.Col >= 0 && c.Col < len(ret) {
			ret[c.Col] = c.Value
		}
	}
	return ret, nil
}

func (s *Store) Update(ctx context.Context, row int, cells map[int]string) error {
	tx := s.db.WithContext(ctx)

	header, err := s.header(tx)
	if err != nil {
		return err
	}

	sheet, err := s.sheet(tx)
	if err != nil {
		return err
	}
	if row < tablestore.FirstDataRow || row-tablestore.FirstDataRow >= sheet.RowCount {
		return utils.WrapErrorf(tablestore.ErrRowOutOfRange, "row [%d]", row)
	}

	records := make([]SheetCell, 0, len(cells))
	for col, value := range cells {
		if col < 0 || col >= len(header) {
			return utils.WrapErrorf(tablestore.ErrColumnOutOfRange, "column [%d]", col)
		}
		records = append(records, SheetCell{SheetName: s.name, Row: row, Col: col, Value: value})
	}
	if len(records) == 0 {
		return nil
	}

	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sheet_name"}, {Name: "row"}, {Name: "col"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&records).Error
	return utils.WrapErrorf(err, "upsert cells of row [%d] fail", row)
}

func (s *Store) AddColumns(ctx context.Context, names []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		header, err := s.header(tx.Clauses(clause.Locking{Strength: "UPDATE"}))
		if err != nil {
			return err
		}

		existing := make(map[string]struct{}, len(header))
		for _, name := range header {
			existing[name] = struct{}{}
		}

		columns := make([]SheetColumn, 0, len(names))
		for i, name := range names {
			if _, ok := existing[name]; ok {
				return utils.WrapErrorf(tablestore.ErrDuplicateColumn, "column [%s]", name)
			}
			columns = append(columns, SheetColumn{SheetName: s.name, Position: len(header) + i, Name: name})
		}
		if len(columns) == 0 {
			return nil
		}

		return utils.WrapError(tx.Create(&columns).Error, "create columns fail")
	})
}

/*
Table 读出整张表格。
*/
func (s *Store) Table(ctx context.Context) (*tablestore.Table, error) {
	tx := s.db.WithContext(ctx)

	header, err := s.header(tx)
	if err != nil {
		return nil, err
	}

	sheet, err := s.sheet(tx)
	if err != nil {
		return nil, err
	}

	var cells []SheetCell
	err = tx.Where("sheet_name = ?", s.name).Find(&cells).Error
	if err != nil {
		return nil, utils.WrapError(err, "find cells fail")
	}

	table := &tablestore.Table{Header: header, Rows: make([][]string, sheet.RowCount)}
	for i := range table.Rows {
		table.Rows[i] = make([]string, len(header))
	}
	for _, c := range cells {
		i := c.Row - tablestore.FirstDataRow
		if i >= 0 && i < len(table.Rows) && c.Col >= 0 && c.Col < len(header) {
			table.Rows[i][c.Col] = c.Value
		}
	}
	return table, nil
}

func (s *Store) Export(ctx context.Context) ([]byte, error) {
	table, err := s.Table(ctx)
	if err != nil {
		return nil, err
	}
	return table.EncodeCSV()
}

/*
Import 在一个事务中用 table 替换表格的全部内容。
*/
func (s *Store) Import(ctx context.Context, table *tablestore.Table) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("sheet_name = ?", s.name).Delete(&SheetCell{}).Error
		if err != nil {
			return utils.WrapError(err, "delete cells fail")
		}

		err = tx.Where("sheet_name = ?", s.name).Delete(&SheetColumn{}).Error
		if err != nil {
			return utils.WrapError(err, "delete columns fail")
		}

		sheet, err := s.sheet(tx)
		if err != nil {
			return err
		}
		sheet.RowCount = len(table.Rows)
		if err := tx.Save(sheet).Error; err != nil {
			return utils.WrapError(err, "save sheet fail")
		}

		columns := make([]SheetColumn, len(table.Header))
		for i, name := range table.Header {
			columns[i] = SheetColumn{SheetName: s.name, Position: i, Name: name}
		}
		if len(columns) != 0 {
			if err := tx.Create(&columns).Error; err != nil {
				return utils.WrapError(err, "create columns fail")
			}
		}

		var cells []SheetCell
		for i, row := range table.Rows {
			for col, value := range row {
				if value == "" || col >= len(table.Header) {
					continue
				}
				cells = append(cells, SheetCell{SheetName: s.name, Row: i + tablestore.FirstDataRow, Col: col, Value: value})
			}
		}
		if len(cells) != 0 {
			if err := tx.CreateInBatches(&cells, 500).Error; err != nil {
				return utils.WrapError(err, "create cells fail")
			}
		}

		return nil
	})
}
