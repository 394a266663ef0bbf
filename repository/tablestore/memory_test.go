package tablestore

import (
	"context"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestDecodeCSV_Quoted(t *testing.T) {
	data := []byte("\uFEFFid,sentence\n1,\"Hello, \"\"world\"\"\"\n2,\"multi\nline\"\n3\n")

	table, err := DecodeCSV(data)
	require.Nil(t, err)

	assert.Equal(t, []string{"id", "sentence"}, table.Header)
	require.Equal(t, 3, len(table.Rows))
	assert.Equal(t, `Hello, "world"`, table.Rows[0][1])
	assert.Equal(t, "multi\nline", table.Rows[1][1])
	assert.Equal(t, []string{"3", ""}, table.Rows[2])
}

func TestDecodeCSV_Empty(t *testing.T) {
	_, err := DecodeCSV([]byte(""))
	assert.True(t, errors.Is(err, ErrEmptyTable))
}

func TestTable_EncodeRoundTrip(t *testing.T) {
	table := &Table{
		Header: []string{"id", "comment"},
		Rows:   [][]string{{"1", `says "hi", twice`}},
	}

	data, err := table.EncodeCSV()
	require.Nil(t, err)
	assert.Equal(t, "id,comment\n1,\"says \"\"hi\"\", twice\"\n", string(data))
}

func TestMemory_ReadWrite(t *testing.T) {
	ctx := context.TODO()
	m := NewMemory(&Table{
		Header: []string{"id", "sentence"},
		Rows:   [][]string{{"0", "a"}, {"1", "b"}},
	})

	col, err := m.Column(ctx, 0)
	require.Nil(t, err)
	assert.Equal(t, []string{"0", "1"}, col)

	require.Nil(t, m.AddColumns(ctx, []string{"extra"}))
	require.True(t, errors.Is(m.AddColumns(ctx, []string{"extra"}), ErrDuplicateColumn))

	require.Nil(t, m.Update(ctx, 3, map[int]string{2: "x"}))

	row, err := m.Row(ctx, 3)
	require.Nil(t, err)
	assert.Equal(t, []string{"1", "b", "x"}, row)

	_, err = m.Row(ctx, 1)
	assert.True(t, errors.Is(err, ErrRowOutOfRange))

	err = m.Update(ctx, 2, map[int]string{7: "x"})
	assert.True(t, errors.Is(err, ErrColumnOutOfRange))

	header, err := m.Header(ctx)
	require.Nil(t, err)
	assert.Equal(t, []string{"id", "sentence", "extra"}, header)
}

func TestMemory_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMemory(&Table{Header: []string{"id"}})
	_, err := m.Export(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}
