package assign

import (
	"context"
	"github.com/sirupsen/logrus"
	"math/rand"
	"rank-annotation-backend/domain/fault"
	"rank-annotation-backend/domain/sheet"
	"rank-annotation-backend/logging"
	"rank-annotation-backend/metrics"
	"rank-annotation-backend/repository/tablestore"
	"strconv"
	"sync"
	"time"
)

/*
Leaser 记录哪些句子已经分配给了某个会话，避免同时在线的标注者拿到同一批句子。
租约只是偏好，不参与正确性判断，所有错误都只记录日志。
*/
type Leaser interface {
	// Busy 返回 ids 中被其他 owner 持有的句子
	Busy(ctx context.Context, owner string, ids []string) (map[string]bool, error)
	Acquire(ctx context.Context, owner string, ids []string, ttl time.Duration) error
	Release(ctx context.Context, owner string, ids []string) error
}

type Config struct {
	Sheet     *sheet.Config
	BatchSize int
	LeaseTTL  time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Sheet:     sheet.DefaultConfig(),
		BatchSize: DefaultBatchSize,
		LeaseTTL:  30 * time.Minute,
	}
}

func GenerateTestConfig() *Config {
	return DefaultConfig()
}

/*
Loader 每次都从表格重新读取全部数据，解析后选出一个批次。
*/
type Loader struct {
	store  tablestore.Store
	leaser Leaser
	config *Config
	logger *logrus.Logger

	rngLock sync.Mutex
	rng     *rand.Rand
}

/*
NewLoader 创建 Loader，leaser 可以为 nil；rng 为 nil 时使用当前时间作为种子。
*/
func NewLoader(store tablestore.Store, leaser Leaser, config *Config, rng *rand.Rand) *Loader {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Loader{
		store:  store,
		leaser: leaser,
		config: config,
		logger: logging.NewLogger(),
		rng:    rng,
	}
}

/*
Records 读取并解析表格。读取失败返回 FetchFailed，表头不合法返回 ParseFailed。
*/
func (l *Loader) Records(ctx context.Context) ([]sheet.SentenceRecord, error) {
	data, err := l.store.Export(ctx)
	if err != nil {
		return nil, fault.Wrap(fault.FetchFailed, err, "export sheet")
	}

	records, err := sheet.ParseCSV(data, l.config.Sheet)
	if err != nil {
		l.logger.WithError(err).Errorf("parse sheet export fail")
		return nil, err
	}

	return records, nil
}

func (l *Loader) Progress(ctx context.Context) (*Progress, error) {
	records, err := l.Records(ctx)
	if err != nil {
		return nil, err
	}
	return Summarize(records), nil
}

/*
Load 为 owner 选出一个批次并尝试为其中的句子加租约。
没有可分配的句子时返回空批次而不是错误。
*/
func (l *Loader) Load(ctx context.Context, owner string) (*Batch, error) {
	records, err := l.Records(ctx)
	if err != nil {
		return nil, err
	}

	busy := l.busyFilter(ctx, owner, records)

	l.rngLock.Lock()
	batch := SelectBatchAvoiding(records, l.config.BatchSize, l.rng, busy)
	l.rngLock.Unlock()

	if batch.Empty() {
		l.logger.Infof("no eligible sentence left among [%d] records", len(records))
		metrics.BatchesServedTotal.WithLabelValues(metrics.RoundExhausted).Inc()
		return batch, nil
	}

	metrics.BatchesServedTotal.WithLabelValues(strconv.Itoa(int(batch.Round))).Inc()
	l.logger.Debugf("select batch %v of round [%d] for [%s]", batch.IDs(), batch.Round, owner)

	if l.leaser != nil {
		if err := l.leaser.Acquire(ctx, owner, batch.IDs(), l.config.LeaseTTL); err != nil {
			l.logger.WithError(err).Warnf("acquire lease for [%s] fail", owner)
		}
	}

	return batch, nil
}

func (l *Loader) Release(ctx context.Context, owner string, ids []string) {
	if l.leaser == nil || len(ids) == 0 {
		return
	}
	if err := l.leaser.Release(ctx, owner, ids); err != nil {
		l.logger.WithError(err).Warnf("release lease of [%s] fail", owner)
	}
}

func (l *Loader) busyFilter(ctx context.Context, owner string, records []sheet.SentenceRecord) func(string) bool {
	if l.leaser == nil || len(records) == 0 {
		return nil
	}

	ids := make([]string, len(records))
	for i := range records {
		ids[i] = records[i].ID
	}

	busy, err := l.leaser.Busy(ctx, owner, ids)
	if err != nil {
		l.logger.WithError(err).Warnf("query leases fail, selecting without them")
		return nil
	}

	return func(id string) bool {
		return busy[id]
	}
}
