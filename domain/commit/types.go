package commit

import (
	"context"
	"rank-annotation-backend/domain/fault"
	"rank-annotation-backend/domain/sheet"
	"time"
)

/*
Submission 是标注者对一条句子的提交。

	ID 句子 id；
	RowHint 加载时的行号，提交时不作为依据；
	Ranking 候选列标识的排列，不是译文文本；
	Comment 标注者的评论；
	Token 同一次标注的重试使用相同的 Token，为空时不做去重；
*/
type Submission struct {
	ID      string   `json:"id"`
	RowHint int      `json:"rowIndex"`
	Ranking []string `json:"rankings"`
	Comment string   `json:"comment,omitempty"`
	Token   string   `json:"token,omitempty"`
}

/*
Result 是单条提交的结果，失败时 Kind 和 Error 说明原因。
*/
type Result struct {
	ID              string      `json:"id"`
	Row             int         `json:"row,omitempty"`
	Round           sheet.Round `json:"round,omitempty"`
	Success         bool        `json:"success"`
	Kind            fault.Kind  `json:"errorKind,omitempty"`
	Error           string      `json:"error,omitempty"`
	VerifiedRanking []string    `json:"verifiedRanking,omitempty"`
	VerifiedComment string      `json:"verifiedComment,omitempty"`
}

func failure(id string, err error) Result {
	kind := fault.KindOf(err)
	if kind == fault.None {
		kind = fault.TransportFailed
	}
	return Result{
		ID:    id,
		Kind:  kind,
		Error: err.Error(),
	}
}

func AllSucceeded(results []Result) bool {
	for _, r := range results {
		if !r.Success {
			return false
		}
	}
	return true
}

/*
Committer 把一组提交写回表格，每条提交对应一个结果。
返回 error 表示整批请求失败（如网络错误），此时结果为空，可以整体重试。
*/
type Committer interface {
	Commit(ctx context.Context, submissions []Submission) ([]Result, error)
}

/*
Event 是写入成功后发布的事件。
*/
type Event struct {
	EventID     string      `json:"eventId"`
	SentenceID  string      `json:"sentenceId"`
	Row         int         `json:"row"`
	Round       sheet.Round `json:"round"`
	Ranking     []string    `json:"ranking"`
	Comment     string      `json:"comment"`
	CommittedAt time.Time   `json:"committedAt"`
}

type Publisher interface {
	PublishCommitted(ctx context.Context, event *Event) error
}

type Alerter interface {
	AlertVerificationFailed(submission *Submission, result *Result)
}
