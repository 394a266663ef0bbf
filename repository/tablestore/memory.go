package tablestore

import (
	"context"
	"rank-annotation-backend/utils"
	"sync"
)

/*
Memory 是进程内的表格存储，调试模式和测试使用。
*/
type Memory struct {
	mu    sync.RWMutex
	table *Table
}

func NewMemory(table *Table) *Memory {
	t := table.Clone()
	t.normalize()
	return &Memory{table: t}
}

func (m *Memory) Export(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.table.EncodeCSV()
}

func (m *Memory) Header(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]string(nil), m.table.Header...), nil
}

func (m *Memory) Column(ctx context.Context, col int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if col < 0 || col >= len(m.table.Header) {
		return nil, utils.WrapErrorf(ErrColumnOutOfRange, "column [%d]", col)
	}

	ret := make([]string, len(m.table.Rows))
	for i, row := range m.table.Rows {
		ret[i] = row[col]
	}
	return ret, nil
}

func (m *Memory) Row(ctx context.Context, row int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	i := row - FirstDataRow
	if i < 0 || i >= len(m.table.Rows) {
		return nil, utils.WrapErrorf(ErrRowOutOfRange, "row [%d]", row)
	}
	return append([]string(nil), m.table.Rows[i]...), nil
}

func (m *Memory) Update(ctx context.Context, row int, cells map[int]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := row - FirstDataRow
	if i < 0 || i >= len(m.table.Rows) {
		return utils.WrapErrorf(ErrRowOutOfRange, "row [%d]", row)
	}

	for col := range cells {
		if col < 0 || col >= len(m.table.Header) {
			return utils.WrapErrorf(ErrColumnOutOfRange, "column [%d]", col)
		}
	}

	for col, value := range cells {
		m.table.Rows[i][col] = value
	}
	return nil
}

func (m *Memory) AddColumns(ctx context.Context, names []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing := make(map[string]struct{}, len(m.table.Header))
	for _, name := range m.table.Header {
		existing[name] = struct{}{}
	}
	for _, name := range names {
		if _, ok := existing[name]; ok {
			return utils.WrapErrorf(ErrDuplicateColumn, "column [%s]", name)
		}
	}

	m.table.Header = append(m.table.Header, names...)
	m.table.normalize()
	return nil
}

func (m *Memory) Import(ctx context.Context, table *Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t := table.Clone()
	t.normalize()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.table = t
	return nil
}

// Snapshot 返回当前内容的拷贝
func (m *Memory) Snapshot() *Table {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.table.Clone()
}
