package sheet

import (
	"fmt"
	"rank-annotation-backend/repository/tablestore"
)

/*
DemoTable 生成一张示例表格，ids 中每个 id 一行，候选列齐全，轮次列为空。
调试模式的内存表格和测试使用。
*/
func DemoTable(config *Config, ids ...string) *tablestore.Table {
	header := []string{"id", "sentence"}
	header = append(header, config.CandidateKeys...)
	for _, r := range AllRounds {
		header = append(header, RankingsColumn(r), CommentsColumn(r))
	}

	t := &tablestore.Table{Header: header}
	for _, id := range ids {
		row := []string{id, fmt.Sprintf("sentence %s", id)}
		for _, key := range config.CandidateKeys {
			row = append(row, fmt.Sprintf("%s translation of %s", key, id))
		}
		for range AllRounds {
			row = append(row, "", "")
		}
		t.Rows = append(t.Rows, row)
	}

	return t
}
