package assign

import (
	"rank-annotation-backend/domain/sheet"
)

/*
Classify 返回句子当前需要的轮次：按 1、2、3 的顺序找到第一个排序为空的轮次。
三轮均已完成，或候选译文数据不完整时返回 sheet.RoundNone。
*/
func Classify(record *sheet.SentenceRecord) sheet.Round {
	if !candidatesComplete(record) {
		return sheet.RoundNone
	}

	for _, r := range sheet.AllRounds {
		if !record.Round(r).Complete() {
			return r
		}
	}

	return sheet.RoundNone
}

func candidatesComplete(record *sheet.SentenceRecord) bool {
	if len(record.Candidates) == 0 {
		return false
	}

	seen := make(map[string]struct{}, len(record.Candidates))
	for _, c := range record.Candidates {
		if c.Key == "" || c.Text == "" {
			return false
		}
		if _, dup := seen[c.Key]; dup {
			return false
		}
		seen[c.Key] = struct{}{}
	}
	return true
}

/*
Progress 统计每个轮次待标注的句子数量。
*/
type Progress struct {
	Total    int                 `json:"total"`
	Needed   map[sheet.Round]int `json:"needed"`
	Finished int                 `json:"finished"`
}

func Summarize(records []sheet.SentenceRecord) *Progress {
	p := &Progress{
		Total:  len(records),
		Needed: make(map[sheet.Round]int, sheet.RoundCount),
	}
	for _, r := range sheet.AllRounds {
		p.Needed[r] = 0
	}

	for i := range records {
		r := Classify(&records[i])
		if r == sheet.RoundNone {
			p.Finished++
			continue
		}
		p.Needed[r]++
	}

	return p
}
