package xlsxsheet

import (
	"bytes"
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"path/filepath"
	"rank-annotation-backend/repository/tablestore"
	"testing"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	store, err := Open(&Config{Path: filepath.Join(t.TempDir(), "sheet.xlsx"), Sheet: "sentences"})
	require.Nil(t, err)

	header, err := store.Header(ctx)
	require.Nil(t, err)
	assert.Equal(t, 0, len(header))

	require.Nil(t, store.Import(ctx, &tablestore.Table{
		Header: []string{"id", "sentence"},
		Rows: [][]string{
			{"0", `say "hi", then leave`},
			{"1", "second"},
		},
	}))

	ids, err := store.Column(ctx, 0)
	require.Nil(t, err)
	assert.Equal(t, []string{"0", "1"}, ids)

	require.Nil(t, store.AddColumns(ctx, []string{"Annotator_1_Rankings", "Annotator_1_Comments"}))
	assert.ErrorIs(t, store.AddColumns(ctx, []string{"id"}), tablestore.ErrDuplicateColumn)

	require.Nil(t, store.Update(ctx, 3, map[int]string{2: "ca,no", 3: "fine"}))
	row, err := store.Row(ctx, 3)
	require.Nil(t, err)
	assert.Equal(t, []string{"1", "second", "ca,no", "fine"}, row)

	row, err = store.Row(ctx, 2)
	require.Nil(t, err)
	assert.Equal(t, []string{"0", `say "hi", then leave`, "", ""}, row)

	_, err = store.Row(ctx, 4)
	assert.ErrorIs(t, err, tablestore.ErrRowOutOfRange)
	assert.ErrorIs(t, store.Update(ctx, 1, map[int]string{0: "x"}), tablestore.ErrRowOutOfRange)
	assert.ErrorIs(t, store.Update(ctx, 2, map[int]string{4: "x"}), tablestore.ErrColumnOutOfRange)

	data, err := store.Export(ctx)
	require.Nil(t, err)
	table, err := tablestore.DecodeCSV(data)
	require.Nil(t, err)
	assert.Equal(t, []string{"id", "sentence", "Annotator_1_Rankings", "Annotator_1_Comments"}, table.Header)
	assert.Equal(t, "ca,no", table.Rows[1][2])

	// 重新打开后内容仍然存在
	reopened, err := Open(&store.config)
	require.Nil(t, err)
	row, err = reopened.Row(ctx, 3)
	require.Nil(t, err)
	assert.Equal(t, "fine", row[3])
}

func TestOpen_UnknownSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheet.xlsx")
	_, err := Open(&Config{Path: path})
	require.Nil(t, err)

	_, err = Open(&Config{Path: path, Sheet: "missing"})
	assert.ErrorIs(t, err, ErrNoSheet)
}

func TestReadTable(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	require.Nil(t, f.SetSheetName("Sheet1", "README"))
	require.Nil(t, f.SetCellStr("README", "A1", "instructions"))
	_, err := f.NewSheet("data")
	require.Nil(t, err)
	require.Nil(t, f.SetSheetRow("data", "A1", &[]interface{}{"ID", "Sentence", "ad"}))
	require.Nil(t, f.SetSheetRow("data", "A2", &[]interface{}{"3", "hello"}))

	buf := &bytes.Buffer{}
	require.Nil(t, f.Write(buf))

	table, err := ReadTable(buf.Bytes())
	require.Nil(t, err)
	assert.Equal(t, []string{"ID", "Sentence", "ad"}, table.Header)
	assert.Equal(t, [][]string{{"3", "hello", ""}}, table.Rows)

	_, err = ReadTable([]byte("not a workbook"))
	assert.NotNil(t, err)
}
