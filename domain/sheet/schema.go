package sheet

import (
	"fmt"
	"rank-annotation-backend/domain/fault"
	"regexp"
	"strings"
)

/*
Config 描述表格的结构约定。

	CandidateKeys 候选译文的列标识，封闭集合，顺序即规范顺序；
	MinID/MaxID 句子 ID 中数字部分的有效范围（闭区间）；
*/
type Config struct {
	CandidateKeys []string
	MinID         int
	MaxID         int
}

func DefaultConfig() *Config {
	return &Config{
		CandidateKeys: []string{"ad", "an", "bo", "ca", "op", "pa", "no"},
		MinID:         0,
		MaxID:         49,
	}
}

func GenerateTestConfig() *Config {
	return DefaultConfig()
}

// 规范名，仅在本包内使用
const (
	canonicalID       = "id"
	canonicalSentence = "sentence"
)

func canonicalCandidate(key string) string {
	return "candidate:" + key
}

func canonicalRankings(r Round) string {
	return fmt.Sprintf("rankings:%d", int(r))
}

func canonicalComments(r Round) string {
	return fmt.Sprintf("comments:%d", int(r))
}

/*
aliasTable 列出每个规范名可以接受的表头写法（已规范化），按优先级排列。
*/
func (c *Config) aliasTable() map[string][]string {
	table := map[string][]string{
		canonicalID:       {"id", "sentence_id", "sentenceid", "sid"},
		canonicalSentence: {"sentence", "source", "source_sentence", "source_text", "original"},
	}

	for _, key := range c.CandidateKeys {
		k := normalizeColumnName(key)
		table[canonicalCandidate(key)] = []string{k, k + "_translation", "translation_" + k, k + "_text"}
	}

	for _, r := range AllRounds {
		n := int(r)
		table[canonicalRankings(r)] = []string{
			fmt.Sprintf("annotator_%d_rankings", n),
			fmt.Sprintf("annotator_%d_ranking", n),
			fmt.Sprintf("annotator%d_rankings", n),
			fmt.Sprintf("annotator%d_ranking", n),
			fmt.Sprintf("round_%d_rankings", n),
			fmt.Sprintf("rankings_%d", n),
		}
		table[canonicalComments(r)] = []string{
			fmt.Sprintf("annotator_%d_comments", n),
			fmt.Sprintf("annotator_%d_comment", n),
			fmt.Sprintf("annotator%d_comments", n),
			fmt.Sprintf("annotator%d_comment", n),
			fmt.Sprintf("round_%d_comments", n),
			fmt.Sprintf("comments_%d", n),
		}
	}

	return table
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

/*
normalizeColumnName 统一大小写，并把连续的非字母数字字符替换为一个下划线，
"Annotator 1 Rankings" 与 "annotator_1_rankings" 得到相同结果。
*/
func normalizeColumnName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = nonAlphanumeric.ReplaceAllString(n, "_")
	return strings.Trim(n, "_")
}

/*
Schema 是表头解析后的列下标，-1 表示该列不存在。
*/
type Schema struct {
	Header     []string
	Keys       []string
	ID         int
	Sentence   int
	Candidates []int
	Rankings   [RoundCount]int
	Comments   [RoundCount]int
}

/*
ResolveSchema 按别名表解析表头。缺少 id、原文或任意候选列时返回 ParseFailed；
轮次列缺失不算错误，对应轮次视为未完成。
*/
func ResolveSchema(header []string, config *Config) (*Schema, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		n := normalizeColumnName(name)
		if _, exist := positions[n]; !exist && n != "" {
			positions[n] = i
		}
	}

	aliases := config.aliasTable()
	lookup := func(canonical string) int {
		for _, spelling := range aliases[canonical] {
			if idx, ok := positions[spelling]; ok {
				return idx
			}
		}
		return -1
	}

	s := &Schema{
		Header:     header,
		Keys:       append([]string(nil), config.CandidateKeys...),
		ID:         lookup(canonicalID),
		Sentence:   lookup(canonicalSentence),
		Candidates: make([]int, len(config.CandidateKeys)),
	}

	if s.ID < 0 {
		return nil, fault.New(fault.ParseFailed, "required column [id] not found in header %q", header)
	}
	if s.Sentence < 0 {
		return nil, fault.New(fault.ParseFailed, "required column [sentence] not found in header %q", header)
	}

	for i, key := range config.CandidateKeys {
		s.Candidates[i] = lookup(canonicalCandidate(key))
		if s.Candidates[i] < 0 {
			return nil, fault.New(fault.ParseFailed, "required candidate column [%s] not found in header %q", key, header)
		}
	}

	for _, r := range AllRounds {
		s.Rankings[r.index()] = lookup(canonicalRankings(r))
		s.Comments[r.index()] = lookup(canonicalComments(r))
	}

	return s, nil
}

func (s *Schema) RankingsIndex(r Round) int {
	if !r.Valid() {
		return -1
	}
	return s.Rankings[r.index()]
}

func (s *Schema) CommentsIndex(r Round) int {
	if !r.Valid() {
		return -1
	}
	return s.Comments[r.index()]
}

/*
MissingRoundColumns 返回需要新建的轮次列（规范名），按轮次顺序排列。
*/
func (s *Schema) MissingRoundColumns() []string {
	var ret []string
	for _, r := range AllRounds {
		if s.Rankings[r.index()] < 0 {
			ret = append(ret, RankingsColumn(r))
		}
		if s.Comments[r.index()] < 0 {
			ret = append(ret, CommentsColumn(r))
		}
	}
	return ret
}
