package sheet

import (
	"rank-annotation-backend/domain/fault"
	"rank-annotation-backend/repository/tablestore"
	"regexp"
	"strconv"
	"strings"
)

var idNumberPattern = regexp.MustCompile(`\d+`)

/*
ParseIDNumber 取出 ID 中的第一段数字。没有数字时 ok 为 false。
*/
func ParseIDNumber(id string) (int, bool) {
	digits := idNumberPattern.FindString(id)
	if digits == "" {
		return 0, false
	}

	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (c *Config) InRange(number int) bool {
	return number >= c.MinID && number <= c.MaxID
}

/*
ParseCSV 解析表格导出的 CSV 文本。
*/
func ParseCSV(data []byte, config *Config) ([]SentenceRecord, error) {
	table, err := tablestore.DecodeCSV(data)
	if err != nil {
		return nil, fault.Wrap(fault.ParseFailed, err, "decode export")
	}

	return ParseTable(table.Header, table.Rows, config)
}

/*
ParseTable 把表头和数据行转换为 SentenceRecord，不满足条件的行直接丢弃：

	缺少 id 或原文；
	非空候选译文少于候选列数；
	id 中的数字不在有效范围内；

表头缺少必需列时返回 ParseFailed。
*/
func ParseTable(header []string, rows [][]string, config *Config) ([]SentenceRecord, error) {
	schema, err := ResolveSchema(header, config)
	if err != nil {
		return nil, err
	}

	ret := make([]SentenceRecord, 0, len(rows))
	for i, row := range rows {
		record, ok := schema.parseRow(row, config)
		if !ok {
			continue
		}

		record.Row = i + tablestore.FirstDataRow
		ret = append(ret, record)
	}

	return ret, nil
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (s *Schema) parseRow(row []string, config *Config) (SentenceRecord, bool) {
	record := SentenceRecord{
		ID:       cellAt(row, s.ID),
		Sentence: cellAt(row, s.Sentence),
	}

	if record.ID == "" || record.Sentence == "" {
		return record, false
	}

	number, ok := ParseIDNumber(record.ID)
	if !ok || !config.InRange(number) {
		return record, false
	}
	record.Number = number

	record.Candidates = make([]Candidate, 0, len(s.Keys))
	for i, key := range s.Keys {
		text := cellAt(row, s.Candidates[i])
		if text == "" {
			return record, false
		}
		record.Candidates = append(record.Candidates, Candidate{Key: key, Text: text})
	}

	for _, r := range AllRounds {
		record.Rounds[r.index()] = RoundState{
			Ranking: DecodeRanking(cellAt(row, s.RankingsIndex(r))),
			Comment: cellAt(row, s.CommentsIndex(r)),
		}
	}

	return record, true
}
