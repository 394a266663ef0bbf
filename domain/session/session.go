package session

import (
	"context"
	"errors"
	"fmt"
	"github.com/sirupsen/logrus"
	"rank-annotation-backend/domain/assign"
	"rank-annotation-backend/domain/commit"
	"rank-annotation-backend/domain/fault"
	"rank-annotation-backend/domain/sheet"
	"rank-annotation-backend/metrics"
	"strings"
	"sync"
	"time"
)

type State string

const (
	StateLoading    State = "loading"
	StateReady      State = "ready"
	StateEditing    State = "editing"
	StateSubmitting State = "submitting"
	StateDone       State = "done"
	StateError      State = "error"
)

type EntryStatus string

const (
	EntryPending   EntryStatus = "pending"
	EntryCommitted EntryStatus = "committed"
	// 该句三轮都已被其他标注者填写，本次标注作废
	EntryDiscarded EntryStatus = "discarded"
)

var (
	ErrBusy             = errors.New("session is busy")
	ErrUnknownSentence  = errors.New("sentence not in this session")
	ErrIndexOutOfRange  = errors.New("index out of range")
	ErrEntryNotEditable = errors.New("sentence is no longer editable")
)

/*
BatchLoader 为会话选出批次，owner 是会话 id。
*/
type BatchLoader interface {
	Load(ctx context.Context, owner string) (*assign.Batch, error)
	Release(ctx context.Context, owner string, ids []string)
}

/*
Entry 是会话中的一条句子。Items 是 (列标识, 展示文本) 对的列表，
调整顺序时两者一起移动，Initial 记录随机生成的初始顺序。
*/
type Entry struct {
	ID       string
	Row      int
	Round    sheet.Round
	Sentence string
	Initial  []sheet.Candidate
	Items    []sheet.Candidate
	Comment  string
	Status   EntryStatus
	Result   *commit.Result
}

func (e *Entry) Ranking() []string {
	ret := make([]string, len(e.Items))
	for i, item := range e.Items {
		ret[i] = item.Key
	}
	return ret
}

func (e *Entry) reordered() bool {
	for i := range e.Items {
		if e.Items[i].Key != e.Initial[i].Key {
			return true
		}
	}
	return false
}

func (e *Entry) commented() bool {
	return strings.TrimSpace(e.Comment) != ""
}

/*
Session 保存一个标注者当前的批次和编辑状态。同一会话内的操作串行执行，
提交期间不允许修改。
*/
type Session struct {
	mu    sync.Mutex
	id    string
	state State
	round sheet.Round
	// 每次加载加一，区分同一会话不同批次中的同一句子
	generation int
	entries    []*Entry
	lastErr    error
	loader     BatchLoader
	committer  commit.Committer
	logger     *logrus.Logger
	touchedAt  time.Time
}

func New(id string, loader BatchLoader, committer commit.Committer, logger *logrus.Logger) *Session {
	return &Session{
		id:        id,
		state:     StateLoading,
		loader:    loader,
		committer: committer,
		logger:    logger,
		touchedAt: time.Now(),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

/*
Load 重新读取表格并选出一个新批次，之前的编辑内容被丢弃。
没有可标注的句子时进入 Ready 状态并且批次为空。
*/
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateSubmitting {
		s.mu.Unlock()
		return ErrBusy
	}
	previous := s.pendingIDs()
	s.state = StateLoading
	s.entries = nil
	s.lastErr = nil
	s.mu.Unlock()

	if len(previous) != 0 {
		s.loader.Release(ctx, s.id, previous)
	}

	batch, err := s.loader.Load(ctx, s.id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.state = StateError
		s.lastErr = err
		return err
	}

	s.generation++
	s.round = batch.Round
	s.entries = make([]*Entry, len(batch.Items))
	for i, item := range batch.Items {
		s.entries[i] = &Entry{
			ID:       item.Record.ID,
			Row:      item.Record.Row,
			Round:    item.Round,
			Sentence: item.Record.Sentence,
			Initial:  append([]sheet.Candidate(nil), item.Display...),
			Items:    append([]sheet.Candidate(nil), item.Display...),
			Status:   EntryPending,
		}
	}
	s.state = StateReady
	return nil
}

// 调用方持有锁
func (s *Session) pendingIDs() []string {
	var ret []string
	for _, e := range s.entries {
		if e.Status == EntryPending {
			ret = append(ret, e.ID)
		}
	}
	return ret
}

// 调用方持有锁
func (s *Session) editable(sentenceID string) (*Entry, error) {
	if s.state == StateSubmitting {
		return nil, ErrBusy
	}

	for _, e := range s.entries {
		if e.ID != sentenceID {
			continue
		}
		if e.Status != EntryPending {
			return nil, ErrEntryNotEditable
		}
		return e, nil
	}
	return nil, ErrUnknownSentence
}

/*
Reorder 把位置 from 的候选移动到位置 to（先移除再插入）。
*/
func (s *Session) Reorder(sentenceID string, from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.editable(sentenceID)
	if err != nil {
		return err
	}

	n := len(e.Items)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("move [%d] to [%d] among %d items: %w", from, to, n, ErrIndexOutOfRange)
	}

	e.Items = splice(e.Items, from, to)
	s.state = StateEditing
	return nil
}

func splice(items []sheet.Candidate, from, to int) []sheet.Candidate {
	moved := items[from]
	ret := make([]sheet.Candidate, 0, len(items))
	ret = append(ret, items[:from]...)
	ret = append(ret, items[from+1:]...)

	ret = append(ret[:to], append([]sheet.Candidate{moved}, ret[to:]...)...)
	return ret
}

func (s *Session) SetComment(sentenceID string, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.editable(sentenceID)
	if err != nil {
		return err
	}

	e.Comment = text
	s.state = StateEditing
	return nil
}

/*
Missing 说明一条句子还不满足提交条件。
*/
type Missing struct {
	ID             string `json:"id"`
	OrderUnchanged bool   `json:"orderUnchanged"`
	CommentEmpty   bool   `json:"commentEmpty"`
}

type Gate struct {
	Ready   bool      `json:"ready"`
	Missing []Missing `json:"missing,omitempty"`
}

func (g *Gate) Message() string {
	parts := make([]string, 0, len(g.Missing))
	for _, m := range g.Missing {
		var needs []string
		if m.OrderUnchanged {
			needs = append(needs, "ranking still in initial order")
		}
		if m.CommentEmpty {
			needs = append(needs, "comment is empty")
		}
		parts = append(parts, fmt.Sprintf("sentence [%s]: %s", m.ID, strings.Join(needs, ", ")))
	}
	return strings.Join(parts, "; ")
}

/*
Check 检查所有待提交的句子：排序必须与初始随机顺序不同，评论去掉空白后不能为空。
*/
func (s *Session) Check() *Gate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.check()
}

func (s *Session) check() *Gate {
	g := &Gate{}
	pending := 0
	for _, e := range s.entries {
		if e.Status != EntryPending {
			continue
		}
		pending++

		m := Missing{ID: e.ID, OrderUnchanged: !e.reordered(), CommentEmpty: !e.commented()}
		if m.OrderUnchanged || m.CommentEmpty {
			g.Missing = append(g.Missing, m)
		}
	}

	g.Ready = pending != 0 && len(g.Missing) == 0 && s.state != StateSubmitting
	return g
}

func (s *Session) CanSubmit() bool {
	return s.Check().Ready
}

/*
Report 是一次提交的结果。Results 只包含本次提交的句子。
*/
type Report struct {
	Success bool            `json:"success"`
	State   State           `json:"state"`
	Results []commit.Result `json:"results"`
}

/*
Submit 提交所有待提交的句子。不满足提交条件时返回 ValidationFailed，不会调用 committer。
全部成功时进入 Done；否则回到 Editing，失败的句子保留编辑内容以便重试，
三轮都已填满的句子标记为作废。
*/
func (s *Session) Submit(ctx context.Context) (*Report, error) {
	s.mu.Lock()
	if s.state == StateSubmitting {
		s.mu.Unlock()
		return nil, ErrBusy
	}

	gate := s.check()
	if !gate.Ready {
		s.mu.Unlock()
		metrics.SubmitsTotal.WithLabelValues(metrics.SubmitRejected).Inc()
		if len(gate.Missing) == 0 {
			return nil, fault.New(fault.ValidationFailed, "nothing to submit, load a new batch")
		}
		return nil, fault.New(fault.ValidationFailed, "%s", gate.Message())
	}

	var entries []*Entry
	var submissions []commit.Submission
	for _, e := range s.entries {
		if e.Status != EntryPending {
			continue
		}
		entries = append(entries, e)
		submissions = append(submissions, commit.Submission{
			ID:      e.ID,
			RowHint: e.Row,
			Ranking: e.Ranking(),
			Comment: strings.TrimSpace(e.Comment),
			Token:   s.token(e.ID),
		})
	}
	s.state = StateSubmitting
	s.lastErr = nil
	s.mu.Unlock()

	results, err := s.committer.Commit(ctx, submissions)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.state = StateEditing
		s.lastErr = err
		metrics.SubmitsTotal.WithLabelValues(metrics.SubmitFailed).Inc()
		s.logger.WithError(err).Errorf("session [%s] submit %d sentences fail", s.id, len(submissions))
		return nil, err
	}

	allSucceeded := commit.AllSucceeded(results)
	var committed []string
	for i, e := range entries {
		if i >= len(results) {
			break
		}
		r := results[i]
		e.Result = &r
		switch {
		case r.Success:
			e.Status = EntryCommitted
			e.Row = r.Row
			committed = append(committed, e.ID)
		case r.Kind == fault.AllRoundsFilled:
			e.Status = EntryDiscarded
		}
	}

	if allSucceeded {
		s.state = StateDone
		metrics.SubmitsTotal.WithLabelValues(metrics.SubmitDone).Inc()
	} else {
		s.state = StateEditing
		s.lastErr = fault.New(resultKind(results), "%d of %d sentences failed to commit", countFailed(results), len(results))
		metrics.SubmitsTotal.WithLabelValues(metrics.SubmitFailed).Inc()
	}

	if len(committed) != 0 {
		s.loader.Release(ctx, s.id, committed)
	}

	return &Report{
		Success: allSucceeded,
		State:   s.state,
		Results: results,
	}, nil
}

// 重试时保持不变，coordinator 据此识别已经写入的提交
func (s *Session) token(sentenceID string) string {
	return fmt.Sprintf("%s/%d/%s", s.id, s.generation, sentenceID)
}

func countFailed(results []commit.Result) int {
	n := 0
	for _, r := range results {
		if !r.Success {
			n++
		}
	}
	return n
}

// 第一个失败结果的类别
func resultKind(results []commit.Result) fault.Kind {
	for _, r := range results {
		if !r.Success {
			return r.Kind
		}
	}
	return fault.None
}

/*
Close 释放会话仍然持有的租约。
*/
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	ids := s.pendingIDs()
	s.entries = nil
	s.mu.Unlock()

	if len(ids) != 0 {
		s.loader.Release(ctx, s.id, ids)
	}
}
