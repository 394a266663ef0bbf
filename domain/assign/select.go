package assign

import (
	"math/rand"
	"rank-annotation-backend/domain/sheet"
)

const DefaultBatchSize = 5

/*
Assignment 是分配给标注者的一条句子。

	Record 表格中的原始记录，Candidates 保持规范顺序；
	Round 选中时该句需要的轮次，提交时会重新确认；
	Display 随机打乱后展示给标注者的候选顺序；
	Permutation Display[i] 对应 Record.Candidates[Permutation[i]]；
*/
type Assignment struct {
	Record      sheet.SentenceRecord
	Round       sheet.Round
	Display     []sheet.Candidate
	Permutation []int
}

type Batch struct {
	Round sheet.Round
	Items []Assignment
}

func (b *Batch) Empty() bool {
	return len(b.Items) == 0
}

func (b *Batch) IDs() []string {
	ret := make([]string, len(b.Items))
	for i, item := range b.Items {
		ret[i] = item.Record.ID
	}
	return ret
}

/*
SelectBatch 从需要最低轮次的桶中无放回地均匀抽取至多 batchSize 条句子，
不同轮次的句子不会出现在同一批次。所有句子都已完成时返回空批次。
*/
func SelectBatch(records []sheet.SentenceRecord, batchSize int, rng *rand.Rand) *Batch {
	return SelectBatchAvoiding(records, batchSize, rng, nil)
}

/*
SelectBatchAvoiding 与 SelectBatch 相同，但在选中的桶内优先选择 busy 返回 false 的句子，
不足时再用 busy 的句子补足。busy 只影响桶内的取舍，不会让批次落到更高的轮次。
只有桶内没有 busy 的句子时，抽样才是均匀的。
*/
func SelectBatchAvoiding(records []sheet.SentenceRecord, batchSize int, rng *rand.Rand, busy func(id string) bool) *Batch {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var buckets [sheet.RoundCount + 1][]int
	for i := range records {
		r := Classify(&records[i])
		if r == sheet.RoundNone {
			continue
		}
		buckets[r] = append(buckets[r], i)
	}

	for _, r := range sheet.AllRounds {
		bucket := buckets[r]
		if len(bucket) == 0 {
			continue
		}

		rng.Shuffle(len(bucket), func(i, j int) {
			bucket[i], bucket[j] = bucket[j], bucket[i]
		})
		if busy != nil {
			bucket = preferIdle(bucket, records, busy)
		}
		if len(bucket) > batchSize {
			bucket = bucket[:batchSize]
		}

		batch := &Batch{Round: r, Items: make([]Assignment, 0, len(bucket))}
		for _, idx := range bucket {
			batch.Items = append(batch.Items, newAssignment(records[idx], r, rng))
		}
		return batch
	}

	return &Batch{Round: sheet.RoundNone}
}

// 稳定划分，保持洗牌后的相对顺序
func preferIdle(bucket []int, records []sheet.SentenceRecord, busy func(id string) bool) []int {
	idle := make([]int, 0, len(bucket))
	var taken []int
	for _, idx := range bucket {
		if busy(records[idx].ID) {
			taken = append(taken, idx)
		} else {
			idle = append(idle, idx)
		}
	}
	return append(idle, taken...)
}

func newAssignment(record sheet.SentenceRecord, round sheet.Round, rng *rand.Rand) Assignment {
	perm := rng.Perm(len(record.Candidates))
	display := make([]sheet.Candidate, len(perm))
	for i, p := range perm {
		display[i] = record.Candidates[p]
	}

	return Assignment{
		Record:      record,
		Round:       round,
		Display:     display,
		Permutation: perm,
	}
}
