package sheet

import (
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"rank-annotation-backend/domain/fault"
	"testing"
)

const csvHeader = "ID,Sentence,AD,An,bo,CA,op,pa,no,Annotator 1 Rankings,annotator_1_comments,ANNOTATOR_2_RANKINGS,Annotator_2_Comments\n"

func TestParseCSV_ColumnVariants(t *testing.T) {
	data := csvHeader +
		`3,"Hello, ""friend""",a,b,c,d,e,f,g,"ca,an,bo,op,pa,no,ad",looks fine,,` + "\n"

	records, err := ParseCSV([]byte(data), DefaultConfig())
	require.Nil(t, err)
	require.Equal(t, 1, len(records))

	rec := records[0]
	assert.Equal(t, "3", rec.ID)
	assert.Equal(t, 3, rec.Number)
	assert.Equal(t, `Hello, "friend"`, rec.Sentence)
	assert.Equal(t, 2, rec.Row)
	assert.Equal(t, []string{"ad", "an", "bo", "ca", "op", "pa", "no"}, rec.CandidateKeys())
	assert.Equal(t, "d", rec.Candidates[3].Text)

	assert.Equal(t, []string{"ca", "an", "bo", "op", "pa", "no", "ad"}, rec.Round(1).Ranking)
	assert.Equal(t, "looks fine", rec.Round(1).Comment)
	assert.False(t, rec.Round(2).Complete())
	// 第三轮的列不存在，视为未完成
	assert.False(t, rec.Round(3).Complete())
}

func TestParseCSV_DiscardRows(t *testing.T) {
	data := csvHeader +
		"0,first,a,b,c,d,e,f,g,,,,\n" +
		",no id,a,b,c,d,e,f,g,,,,\n" +
		"2,,a,b,c,d,e,f,g,,,,\n" +
		"3,missing one,a,b,c,d,e,f,,,,,\n" +
		"99,out of range,a,b,c,d,e,f,g,,,,\n" +
		"abc,no digits,a,b,c,d,e,f,g,,,,\n" +
		"s-49,last valid,a,b,c,d,e,f,g,,,,\n"

	records, err := ParseCSV([]byte(data), DefaultConfig())
	require.Nil(t, err)
	require.Equal(t, 2, len(records))

	assert.Equal(t, "0", records[0].ID)
	assert.Equal(t, 2, records[0].Row)
	assert.Equal(t, "s-49", records[1].ID)
	assert.Equal(t, 49, records[1].Number)
	assert.Equal(t, 8, records[1].Row)
}

func TestParseTable_OutOfRangeID(t *testing.T) {
	cfg := DefaultConfig()
	table := DemoTable(cfg, "99", "7")

	records, err := ParseTable(table.Header, table.Rows, cfg)
	require.Nil(t, err)
	require.Equal(t, 1, len(records))
	assert.Equal(t, "7", records[0].ID)
	assert.Equal(t, 3, records[0].Row)
}

func TestParseTable_MissingRequiredColumn(t *testing.T) {
	_, err := ParseTable([]string{"id", "sentence", "ad", "an"}, nil, DefaultConfig())
	require.NotNil(t, err)
	assert.Equal(t, fault.ParseFailed, fault.KindOf(err))
	assert.Contains(t, err.Error(), "bo")

	_, err = ParseTable([]string{"sentence"}, nil, DefaultConfig())
	assert.True(t, errors.Is(err, fault.New(fault.ParseFailed, "")))
}

func TestResolveSchema_MissingRoundColumns(t *testing.T) {
	header := []string{"id", "sentence", "ad", "an", "bo", "ca", "op", "pa", "no", "annotator1_rankings", "Annotator 1 Comment"}

	schema, err := ResolveSchema(header, DefaultConfig())
	require.Nil(t, err)

	assert.Equal(t, 9, schema.RankingsIndex(1))
	assert.Equal(t, 10, schema.CommentsIndex(1))
	assert.Equal(t, -1, schema.RankingsIndex(2))
	assert.Equal(t, -1, schema.RankingsIndex(RoundNone))
	assert.Equal(t, []string{
		"Annotator_2_Rankings", "Annotator_2_Comments",
		"Annotator_3_Rankings", "Annotator_3_Comments",
	}, schema.MissingRoundColumns())
}

func TestDecodeRanking(t *testing.T) {
	assert.Nil(t, DecodeRanking(""))
	assert.Nil(t, DecodeRanking(" , "))
	assert.Equal(t, []string{"ca", "no"}, DecodeRanking(" ca, no ,"))
	assert.Equal(t, "ca,no", EncodeRanking([]string{"ca", "no"}))
}
