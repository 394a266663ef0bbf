package sheet

import (
	"fmt"
	"strings"
)

const RoundCount = 3

/*
Round 表示第几轮标注，取值 1..RoundCount，RoundNone 表示不需要标注。
*/
type Round int

const RoundNone Round = 0

var AllRounds = []Round{1, 2, 3}

func (r Round) Valid() bool {
	return r >= 1 && int(r) <= RoundCount
}

func (r Round) index() int {
	return int(r) - 1
}

/*
RankingsColumn 和 CommentsColumn 是写回表格时使用的规范列名，
列不存在时按此名称创建。
*/
func RankingsColumn(r Round) string {
	return fmt.Sprintf("Annotator_%d_Rankings", int(r))
}

func CommentsColumn(r Round) string {
	return fmt.Sprintf("Annotator_%d_Comments", int(r))
}

/*
Candidate 是一条候选译文。Key 是稳定的列标识（如 ca、no），Text 只用于展示。
*/
type Candidate struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

type RoundState struct {
	Ranking []string `json:"ranking,omitempty"`
	Comment string   `json:"comment,omitempty"`
}

// 只看排序是否为空，评论不参与判断
func (s RoundState) Complete() bool {
	return len(s.Ranking) != 0
}

/*
SentenceRecord 是表格中一行句子数据的解析结果。

	ID 外部标识；
	Number 从 ID 中解析出的整数，用于有效范围过滤；
	Sentence 原文；
	Candidates 按配置中候选列顺序排列的候选译文；
	Row 在表格中的行号（表头为第 1 行），只作为提示，提交时会重新定位；
	Rounds 三轮标注的状态；
*/
type SentenceRecord struct {
	ID         string
	Number     int
	Sentence   string
	Candidates []Candidate
	Row        int
	Rounds     [RoundCount]RoundState
}

func (r SentenceRecord) Round(n Round) RoundState {
	if !n.Valid() {
		return RoundState{}
	}
	return r.Rounds[n.index()]
}

func (r SentenceRecord) CandidateKeys() []string {
	ret := make([]string, len(r.Candidates))
	for i, c := range r.Candidates {
		ret[i] = c.Key
	}
	return ret
}

/*
EncodeRanking 把列标识序列化为写入单元格的文本。
*/
func EncodeRanking(keys []string) string {
	return strings.Join(keys, ",")
}

/*
DecodeRanking 解析单元格中的排序，忽略空白项。空单元格返回 nil。
*/
func DecodeRanking(cell string) []string {
	var ret []string
	for _, item := range strings.Split(cell, ",") {
		if item = strings.TrimSpace(item); item != "" {
			ret = append(ret, item)
		}
	}
	return ret
}
