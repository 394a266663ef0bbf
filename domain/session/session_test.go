package session

import (
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"math/rand"
	"rank-annotation-backend/domain/assign"
	"rank-annotation-backend/domain/commit"
	"rank-annotation-backend/domain/fault"
	"rank-annotation-backend/domain/sheet"
	"rank-annotation-backend/logging"
	"rank-annotation-backend/repository/leasestore"
	"rank-annotation-backend/repository/tablestore"
	"sort"
	"testing"
	"time"
)

type env struct {
	store  *tablestore.Memory
	leaser *leasestore.Memory
	loader *assign.Loader
	coord  *commit.Coordinator
}

func newEnv(ids ...string) *env {
	cfg := assign.GenerateTestConfig()
	store := tablestore.NewMemory(sheet.DemoTable(cfg.Sheet, ids...))
	leaser := leasestore.NewMemory()
	return &env{
		store:  store,
		leaser: leaser,
		loader: assign.NewLoader(store, leaser, cfg, rand.New(rand.NewSource(11))),
		coord:  commit.NewCoordinator(store, commit.GenerateTestConfig()),
	}
}

func (e *env) newSession(id string, committer commit.Committer) *Session {
	if committer == nil {
		committer = e.coord
	}
	return New(id, e.loader, committer, logging.NewLogger())
}

// 把每句的第一个候选移到最后并填写评论
func annotateAll(t *testing.T, s *Session) {
	for _, v := range s.View().Sentences {
		require.Nil(t, s.Reorder(v.ID, 0, len(v.Items)-1))
		require.Nil(t, s.SetComment(v.ID, "comment on "+v.ID))
	}
}

type failingCommitter struct {
	calls int
}

func (c *failingCommitter) Commit(ctx context.Context, submissions []commit.Submission) ([]commit.Result, error) {
	c.calls++
	return nil, fault.New(fault.TransportFailed, "connection reset")
}

// 第一次提交写入表格后丢失响应
type lostResponseCommitter struct {
	next   commit.Committer
	calls  int
	tokens [][]string
}

func (c *lostResponseCommitter) Commit(ctx context.Context, submissions []commit.Submission) ([]commit.Result, error) {
	c.calls++
	var tokens []string
	for _, sub := range submissions {
		tokens = append(tokens, sub.Token)
	}
	c.tokens = append(c.tokens, tokens)

	results, err := c.next.Commit(ctx, submissions)
	if c.calls == 1 {
		return nil, fault.New(fault.TransportFailed, "read response timeout")
	}
	return results, err
}

func TestSession_Load(t *testing.T) {
	e := newEnv("0", "1", "2")
	s := e.newSession("alice", nil)
	assert.Equal(t, StateLoading, s.State())

	require.Nil(t, s.Load(context.Background()))
	assert.Equal(t, StateReady, s.State())

	v := s.View()
	require.Equal(t, 3, len(v.Sentences))
	assert.Equal(t, sheet.Round(1), v.Round)
	assert.False(t, v.Exhausted)
	for _, entry := range v.Sentences {
		assert.Equal(t, EntryPending, entry.Status)
		assert.Equal(t, 7, len(entry.Items))
	}
}

func TestSession_LoadError(t *testing.T) {
	cfg := assign.GenerateTestConfig()
	store := tablestore.NewMemory(&tablestore.Table{Header: []string{"nothing"}})
	loader := assign.NewLoader(store, nil, cfg, nil)
	s := New("alice", loader, nil, logging.NewLogger())

	err := s.Load(context.Background())
	assert.Equal(t, fault.ParseFailed, fault.KindOf(err))
	assert.Equal(t, StateError, s.State())
	assert.NotEmpty(t, s.View().Error)
}

func TestSession_Exhausted(t *testing.T) {
	e := newEnv()
	s := e.newSession("alice", nil)

	require.Nil(t, s.Load(context.Background()))
	v := s.View()
	assert.Equal(t, StateReady, v.State)
	assert.True(t, v.Exhausted)
	assert.False(t, s.CanSubmit())

	_, err := s.Submit(context.Background())
	assert.Equal(t, fault.ValidationFailed, fault.KindOf(err))
}

func TestSession_ReorderKeepsPairsAligned(t *testing.T) {
	e := newEnv("0")
	s := e.newSession("alice", nil)
	require.Nil(t, s.Load(context.Background()))

	before := s.View().Sentences[0].Items
	require.Nil(t, s.Reorder("0", 1, 4))
	after := s.View().Sentences[0].Items
	assert.Equal(t, StateEditing, s.State())

	expected := []sheet.Candidate{before[0], before[2], before[3], before[4], before[1], before[5], before[6]}
	assert.Equal(t, expected, after)
	for _, item := range after {
		assert.Equal(t, item.Key+" translation of 0", item.Text)
	}

	require.Nil(t, s.Reorder("0", 6, 0))
	assert.Equal(t, before[6], s.View().Sentences[0].Items[0])

	assert.ErrorIs(t, s.Reorder("0", 0, 7), ErrIndexOutOfRange)
	assert.ErrorIs(t, s.Reorder("0", -1, 2), ErrIndexOutOfRange)
	assert.ErrorIs(t, s.Reorder("42", 0, 1), ErrUnknownSentence)
	assert.ErrorIs(t, s.SetComment("42", "x"), ErrUnknownSentence)
}

func TestSession_Gate(t *testing.T) {
	e := newEnv("0", "1")
	s := e.newSession("alice", nil)
	require.Nil(t, s.Load(context.Background()))
	ids := []string{s.View().Sentences[0].ID, s.View().Sentences[1].ID}

	assert.False(t, s.CanSubmit())

	require.Nil(t, s.Reorder(ids[0], 0, 1))
	require.Nil(t, s.SetComment(ids[0], "fine"))
	require.Nil(t, s.SetComment(ids[1], "   "))

	gate := s.Check()
	assert.False(t, gate.Ready)
	require.Equal(t, 1, len(gate.Missing))
	assert.Equal(t, Missing{ID: ids[1], OrderUnchanged: true, CommentEmpty: true}, gate.Missing[0])

	// 移动后又移回原位，等同于没有调整
	require.Nil(t, s.Reorder(ids[1], 0, 1))
	require.Nil(t, s.Reorder(ids[1], 1, 0))
	require.Nil(t, s.SetComment(ids[1], "ok"))
	assert.False(t, s.CanSubmit())

	_, err := s.Submit(context.Background())
	require.NotNil(t, err)
	assert.Equal(t, fault.ValidationFailed, fault.KindOf(err))
	assert.Contains(t, err.Error(), "sentence ["+ids[1]+"]: ranking still in initial order")
	assert.Equal(t, StateEditing, s.State())

	require.Nil(t, s.Reorder(ids[1], 2, 5))
	assert.True(t, s.CanSubmit())
}

func TestSession_GateBlocksCommit(t *testing.T) {
	e := newEnv("0")
	committer := &failingCommitter{}
	s := e.newSession("alice", committer)
	require.Nil(t, s.Load(context.Background()))
	require.Nil(t, s.SetComment("0", "no reorder"))

	_, err := s.Submit(context.Background())
	assert.Equal(t, fault.ValidationFailed, fault.KindOf(err))
	assert.Equal(t, 0, committer.calls)
}

func TestSession_SubmitDone(t *testing.T) {
	e := newEnv("0", "1", "2")
	s := e.newSession("alice", nil)
	require.Nil(t, s.Load(context.Background()))
	annotateAll(t, s)
	require.True(t, s.CanSubmit())

	report, err := s.Submit(context.Background())
	require.Nil(t, err)
	assert.True(t, report.Success)
	assert.Equal(t, StateDone, report.State)
	require.Equal(t, 3, len(report.Results))

	data, err := e.store.Export(context.Background())
	require.Nil(t, err)
	records, err := sheet.ParseCSV(data, sheet.GenerateTestConfig())
	require.Nil(t, err)

	views := map[string]EntryView{}
	for _, v := range s.View().Sentences {
		views[v.ID] = v
		assert.Equal(t, EntryCommitted, v.Status)
	}
	for _, rec := range records {
		v := views[rec.ID]
		keys := make([]string, len(v.Items))
		for i, item := range v.Items {
			keys[i] = item.Key
		}
		assert.Equal(t, keys, rec.Round(1).Ranking)
		assert.Equal(t, "comment on "+rec.ID, rec.Round(1).Comment)

		sorted := append([]string(nil), rec.Round(1).Ranking...)
		sort.Strings(sorted)
		canonical := rec.CandidateKeys()
		sort.Strings(canonical)
		assert.Equal(t, canonical, sorted)
	}

	// 提交成功后释放租约
	busy, err := e.leaser.Busy(context.Background(), "bob", []string{"0", "1", "2"})
	require.Nil(t, err)
	assert.Equal(t, 0, len(busy))

	assert.ErrorIs(t, s.SetComment("0", "edit after done"), ErrEntryNotEditable)
}

func TestSession_TransportFailureKeepsEdits(t *testing.T) {
	e := newEnv("0", "1")
	committer := &failingCommitter{}
	s := e.newSession("alice", committer)
	require.Nil(t, s.Load(context.Background()))
	annotateAll(t, s)
	before := s.View().Sentences

	_, err := s.Submit(context.Background())
	assert.Equal(t, fault.TransportFailed, fault.KindOf(err))
	assert.Equal(t, 1, committer.calls)

	v := s.View()
	assert.Equal(t, StateEditing, v.State)
	assert.Contains(t, v.Error, "connection reset")
	assert.Equal(t, before, v.Sentences)
	assert.True(t, s.CanSubmit())

	// 换成可用的 committer 后重试
	s.committer = e.coord
	report, err := s.Submit(context.Background())
	require.Nil(t, err)
	assert.True(t, report.Success)
	assert.Equal(t, StateDone, s.State())
}

func TestSession_PartialFailure(t *testing.T) {
	e := newEnv("0", "1")
	s := e.newSession("alice", nil)
	require.Nil(t, s.Load(context.Background()))
	annotateAll(t, s)

	// 另一个标注者在提交前填满了句子 1 的三轮，并删除了句子 0
	table := e.store.Snapshot()
	var keep [][]string
	for _, row := range table.Rows {
		if row[0] == "0" {
			continue
		}
		for i, name := range table.Header {
			for _, r := range sheet.AllRounds {
				if name == sheet.RankingsColumn(r) {
					row[i] = "ad,an,bo,ca,op,pa,no"
				}
			}
		}
		keep = append(keep, row)
	}
	table.Rows = keep
	require.Nil(t, e.store.Import(context.Background(), table))

	report, err := s.Submit(context.Background())
	require.Nil(t, err)
	assert.False(t, report.Success)
	assert.Equal(t, StateEditing, report.State)

	statuses := map[string]EntryStatus{}
	for _, v := range s.View().Sentences {
		statuses[v.ID] = v.Status
		require.NotNil(t, v.Result)
	}
	assert.Equal(t, EntryPending, statuses["0"])
	assert.Equal(t, EntryDiscarded, statuses["1"])
	assert.NotEmpty(t, s.View().Error)
	assert.ErrorIs(t, s.SetComment("1", "x"), ErrEntryNotEditable)

	// 句子 0 重新出现后只重试失败的那一条
	require.Nil(t, e.store.Import(context.Background(), sheet.DemoTable(sheet.GenerateTestConfig(), "0")))
	report, err = s.Submit(context.Background())
	require.Nil(t, err)
	require.Equal(t, 1, len(report.Results))
	assert.Equal(t, "0", report.Results[0].ID)
	assert.True(t, report.Success)
	assert.Equal(t, StateDone, s.State())
}

func TestSession_ReloadReleasesLeases(t *testing.T) {
	e := newEnv("0", "1")
	s := e.newSession("alice", nil)
	require.Nil(t, s.Load(context.Background()))

	busy, _ := e.leaser.Busy(context.Background(), "bob", []string{"0", "1"})
	assert.Equal(t, 2, len(busy))

	s.Close(context.Background())
	busy, _ = e.leaser.Busy(context.Background(), "bob", []string{"0", "1"})
	assert.Equal(t, 0, len(busy))
}

func TestRegistry(t *testing.T) {
	e := newEnv("0")
	registry := NewRegistry(e.loader, e.coord, time.Minute)
	now := time.Now()
	registry.now = func() time.Time { return now }

	s := registry.Create()
	require.Nil(t, s.Load(context.Background()))
	other := registry.Create()
	assert.NotEqual(t, s.ID(), other.ID())
	assert.Equal(t, 2, registry.Len())

	got, ok := registry.Get(s.ID())
	require.True(t, ok)
	assert.Same(t, s, got)

	now = now.Add(30 * time.Second)
	registry.Get(s.ID())
	now = now.Add(45 * time.Second)

	assert.Equal(t, 1, registry.Sweep(context.Background()))
	_, ok = registry.Get(other.ID())
	assert.False(t, ok)
	_, ok = registry.Get(s.ID())
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, registry.Sweep(context.Background()))
	busy, _ := e.leaser.Busy(context.Background(), "bob", []string{"0"})
	assert.Equal(t, 0, len(busy))

	registry.StartSweeper(time.Hour)
	registry.Stop()
	registry.Stop()
}

func TestSplice(t *testing.T) {
	items := []sheet.Candidate{{Key: "a"}, {Key: "b"}, {Key: "c"}}
	assert.Equal(t, []sheet.Candidate{{Key: "b"}, {Key: "c"}, {Key: "a"}}, splice(items, 0, 2))
	assert.Equal(t, []sheet.Candidate{{Key: "c"}, {Key: "a"}, {Key: "b"}}, splice(items, 2, 0))
	assert.Equal(t, []sheet.Candidate{{Key: "a"}, {Key: "b"}, {Key: "c"}}, splice(items, 1, 1))
	assert.Equal(t, "a", items[0].Key)
}

func TestSession_RetryAfterLostResponse(t *testing.T) {
	e := newEnv("3")
	committer := &lostResponseCommitter{next: e.coord}
	s := e.newSession("alice", committer)
	require.Nil(t, s.Load(context.Background()))
	annotateAll(t, s)

	_, err := s.Submit(context.Background())
	assert.Equal(t, fault.TransportFailed, fault.KindOf(err))
	assert.Equal(t, StateEditing, s.State())

	report, err := s.Submit(context.Background())
	require.Nil(t, err)
	assert.True(t, report.Success)
	assert.Equal(t, StateDone, report.State)
	assert.Equal(t, sheet.Round(1), report.Results[0].Round)

	require.Equal(t, 2, len(committer.tokens))
	assert.Equal(t, committer.tokens[0], committer.tokens[1])
	assert.NotEmpty(t, committer.tokens[0][0])

	records, err := e.loader.Records(context.Background())
	require.Nil(t, err)
	require.Equal(t, 1, len(records))
	assert.True(t, records[0].Round(1).Complete())
	assert.False(t, records[0].Round(2).Complete())
}

func TestSession_TokenChangesOnReload(t *testing.T) {
	e := newEnv("3")
	s := e.newSession("alice", nil)

	require.Nil(t, s.Load(context.Background()))
	first := s.token("3")
	require.Nil(t, s.Load(context.Background()))
	second := s.token("3")

	assert.NotEqual(t, first, second)
	assert.NotEqual(t, first, e.newSession("bob", nil).token("3"))
}
