package assign

import (
	"context"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"math/rand"
	"rank-annotation-backend/domain/fault"
	"rank-annotation-backend/domain/sheet"
	"rank-annotation-backend/repository/leasestore"
	"rank-annotation-backend/repository/tablestore"
	"sort"
	"testing"
	"time"
)

func newRecord(id string, rankings ...string) sheet.SentenceRecord {
	cfg := sheet.DefaultConfig()
	rec := sheet.SentenceRecord{ID: id, Sentence: "sentence " + id}
	for _, key := range cfg.CandidateKeys {
		rec.Candidates = append(rec.Candidates, sheet.Candidate{Key: key, Text: key + " text"})
	}
	for i, r := range rankings {
		rec.Rounds[i].Ranking = sheet.DecodeRanking(r)
	}
	return rec
}

const filled = "ca,an,bo,op,pa,no,ad"

func TestClassify(t *testing.T) {
	rec := newRecord("5", filled, filled, "")
	assert.Equal(t, sheet.Round(3), Classify(&rec))

	rec = newRecord("1")
	assert.Equal(t, sheet.Round(1), Classify(&rec))

	// 第一轮为空时即使后面的轮次有数据也先返回第一轮
	rec = newRecord("2", "", filled, "")
	assert.Equal(t, sheet.Round(1), Classify(&rec))

	rec = newRecord("3", filled, filled, filled)
	assert.Equal(t, sheet.RoundNone, Classify(&rec))

	rec = newRecord("4")
	rec.Candidates[2].Text = ""
	assert.Equal(t, sheet.RoundNone, Classify(&rec))

	rec = newRecord("4")
	rec.Candidates = nil
	assert.Equal(t, sheet.RoundNone, Classify(&rec))
}

func TestSelectBatch_SmallBucket(t *testing.T) {
	records := []sheet.SentenceRecord{newRecord("0"), newRecord("1"), newRecord("2")}

	batch := SelectBatch(records, 5, rand.New(rand.NewSource(1)))
	require.Equal(t, 3, len(batch.Items))
	assert.Equal(t, sheet.Round(1), batch.Round)

	ids := batch.IDs()
	sort.Strings(ids)
	assert.Equal(t, []string{"0", "1", "2"}, ids)
	for _, item := range batch.Items {
		assert.Equal(t, sheet.Round(1), item.Round)
	}
}

func TestSelectBatch_Priority(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for seed := 0; seed < 50; seed++ {
		var records []sheet.SentenceRecord
		for i := 0; i < 20; i++ {
			records = append(records, newRecord(string(rune('a'+i)), filled, filled))
		}
		for i := 0; i < 10; i++ {
			records = append(records, newRecord(string(rune('A'+i)), filled))
		}
		lone := rng.Intn(len(records))
		records[lone] = newRecord("lone")

		batch := SelectBatch(records, 5, rng)
		require.Equal(t, 1, len(batch.Items))
		assert.Equal(t, "lone", batch.Items[0].Record.ID)
		assert.Equal(t, sheet.Round(1), batch.Round)
	}
}

func TestSelectBatch_SampleWithoutReplacement(t *testing.T) {
	var records []sheet.SentenceRecord
	for i := 0; i < 12; i++ {
		records = append(records, newRecord(string(rune('a'+i)), filled))
	}
	records = append(records, newRecord("done", filled, filled, filled))

	rng := rand.New(rand.NewSource(7))
	seen := make(map[string]bool)
	for i := 0; i < 30; i++ {
		batch := SelectBatch(records, 5, rng)
		require.Equal(t, 5, len(batch.Items))
		assert.Equal(t, sheet.Round(2), batch.Round)

		ids := make(map[string]bool)
		for _, id := range batch.IDs() {
			assert.False(t, ids[id], "duplicate id %s", id)
			assert.NotEqual(t, "done", id)
			ids[id] = true
			seen[id] = true
		}
	}
	assert.Equal(t, 12, len(seen))
}

func TestSelectBatch_Permutation(t *testing.T) {
	records := []sheet.SentenceRecord{newRecord("0")}
	batch := SelectBatch(records, 5, rand.New(rand.NewSource(3)))
	require.Equal(t, 1, len(batch.Items))

	item := batch.Items[0]
	require.Equal(t, 7, len(item.Display))
	for i, p := range item.Permutation {
		assert.Equal(t, item.Record.Candidates[p], item.Display[i])
	}

	keys := make([]string, len(item.Display))
	for i, c := range item.Display {
		keys[i] = c.Key
	}
	sort.Strings(keys)
	canonical := item.Record.CandidateKeys()
	sort.Strings(canonical)
	assert.Equal(t, canonical, keys)
	// 规范顺序保持不变
	assert.Equal(t, sheet.DefaultConfig().CandidateKeys, item.Record.CandidateKeys())
}

func TestSelectBatch_Exhausted(t *testing.T) {
	batch := SelectBatch(nil, 5, rand.New(rand.NewSource(1)))
	assert.True(t, batch.Empty())
	assert.Equal(t, sheet.RoundNone, batch.Round)

	records := []sheet.SentenceRecord{newRecord("0", filled, filled, filled)}
	batch = SelectBatch(records, 5, rand.New(rand.NewSource(1)))
	assert.True(t, batch.Empty())
}

func TestSelectBatchAvoiding(t *testing.T) {
	var records []sheet.SentenceRecord
	for i := 0; i < 8; i++ {
		records = append(records, newRecord(string(rune('a'+i))))
	}
	records = append(records, newRecord("z", filled))

	busy := map[string]bool{"a": true, "b": true, "c": true, "d": true, "e": true}
	batch := SelectBatchAvoiding(records, 5, rand.New(rand.NewSource(9)), func(id string) bool { return busy[id] })
	require.Equal(t, 5, len(batch.Items))

	ids := batch.IDs()
	idle := 0
	for _, id := range ids {
		if !busy[id] {
			idle++
		}
		assert.NotEqual(t, "z", id)
	}
	assert.Equal(t, 3, idle)

	// 桶内全部被占用时仍然从该桶中选择
	all := func(string) bool { return true }
	batch = SelectBatchAvoiding(records, 5, rand.New(rand.NewSource(9)), all)
	assert.Equal(t, sheet.Round(1), batch.Round)
	assert.Equal(t, 5, len(batch.Items))
}

func TestSummarize(t *testing.T) {
	records := []sheet.SentenceRecord{
		newRecord("0"),
		newRecord("1", filled),
		newRecord("2", filled),
		newRecord("3", filled, filled, filled),
	}

	p := Summarize(records)
	assert.Equal(t, 4, p.Total)
	assert.Equal(t, 1, p.Finished)
	assert.Equal(t, 1, p.Needed[1])
	assert.Equal(t, 2, p.Needed[2])
	assert.Equal(t, 0, p.Needed[3])
}

type failingStore struct {
	tablestore.Store
}

func (failingStore) Export(ctx context.Context) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func TestLoader_Load(t *testing.T) {
	cfg := GenerateTestConfig()
	store := tablestore.NewMemory(sheet.DemoTable(cfg.Sheet, "0", "1", "2"))
	leaser := leasestore.NewMemory()

	loader := NewLoader(store, leaser, cfg, rand.New(rand.NewSource(1)))
	batch, err := loader.Load(context.Background(), "alice")
	require.Nil(t, err)
	assert.Equal(t, 3, len(batch.Items))
	assert.Equal(t, sheet.Round(1), batch.Round)

	busy, err := leaser.Busy(context.Background(), "bob", []string{"0", "1", "2"})
	require.Nil(t, err)
	assert.Equal(t, 3, len(busy))

	loader.Release(context.Background(), "alice", batch.IDs())
	busy, err = leaser.Busy(context.Background(), "bob", []string{"0", "1", "2"})
	require.Nil(t, err)
	assert.Equal(t, 0, len(busy))
}

func TestLoader_PrefersUnleased(t *testing.T) {
	cfg := GenerateTestConfig()
	cfg.BatchSize = 2
	store := tablestore.NewMemory(sheet.DemoTable(cfg.Sheet, "0", "1", "2", "3"))
	leaser := leasestore.NewMemory()
	loader := NewLoader(store, leaser, cfg, rand.New(rand.NewSource(5)))

	first, err := loader.Load(context.Background(), "alice")
	require.Nil(t, err)
	second, err := loader.Load(context.Background(), "bob")
	require.Nil(t, err)

	ids := append(first.IDs(), second.IDs()...)
	sort.Strings(ids)
	assert.Equal(t, []string{"0", "1", "2", "3"}, ids)
}

func TestLoader_Errors(t *testing.T) {
	cfg := GenerateTestConfig()

	loader := NewLoader(failingStore{}, nil, cfg, nil)
	_, err := loader.Load(context.Background(), "alice")
	assert.Equal(t, fault.FetchFailed, fault.KindOf(err))
	assert.True(t, fault.FetchFailed.Retryable())

	store := tablestore.NewMemory(&tablestore.Table{Header: []string{"id", "text"}, Rows: [][]string{{"1", "x"}}})
	loader = NewLoader(store, nil, cfg, nil)
	_, err = loader.Load(context.Background(), "alice")
	assert.Equal(t, fault.ParseFailed, fault.KindOf(err))
}

func TestLoader_Exhausted(t *testing.T) {
	cfg := GenerateTestConfig()
	table := sheet.DemoTable(cfg.Sheet, "0")
	header := table.Header
	for i, name := range header {
		for _, r := range sheet.AllRounds {
			if name == sheet.RankingsColumn(r) {
				table.Rows[0][i] = filled
			}
		}
	}

	loader := NewLoader(tablestore.NewMemory(table), leasestore.NewMemory(), cfg, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	batch, err := loader.Load(ctx, "alice")
	require.Nil(t, err)
	assert.True(t, batch.Empty())

	progress, err := loader.Progress(ctx)
	require.Nil(t, err)
	assert.Equal(t, 1, progress.Finished)
}
