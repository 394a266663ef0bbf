package session

import (
	"rank-annotation-backend/domain/commit"
	"rank-annotation-backend/domain/sheet"
)

type EntryView struct {
	ID       string            `json:"id"`
	Row      int               `json:"rowIndex"`
	Round    sheet.Round       `json:"round"`
	Sentence string            `json:"sentence"`
	Items    []sheet.Candidate `json:"items"`
	Comment  string            `json:"comment"`
	Status   EntryStatus       `json:"status"`
	Result   *commit.Result    `json:"result,omitempty"`
}

/*
View 是会话的只读快照，用于返回给前端。
*/
type View struct {
	ID        string      `json:"id"`
	State     State       `json:"state"`
	Round     sheet.Round `json:"round"`
	Exhausted bool        `json:"exhausted"`
	Sentences []EntryView `json:"sentences"`
	Error     string      `json:"error,omitempty"`
	Gate      *Gate       `json:"gate"`
}

func (s *Session) View() *View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := &View{
		ID:        s.id,
		State:     s.state,
		Round:     s.round,
		Exhausted: s.state == StateReady && len(s.entries) == 0,
		Sentences: make([]EntryView, len(s.entries)),
		Gate:      s.check(),
	}
	if s.lastErr != nil {
		v.Error = s.lastErr.Error()
	}

	for i, e := range s.entries {
		v.Sentences[i] = EntryView{
			ID:       e.ID,
			Row:      e.Row,
			Round:    e.Round,
			Sentence: e.Sentence,
			Items:    append([]sheet.Candidate(nil), e.Items...),
			Comment:  e.Comment,
			Status:   e.Status,
			Result:   e.Result,
		}
	}
	return v
}
