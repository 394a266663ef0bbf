package commit

import (
	"context"
	"errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"rank-annotation-backend/domain/fault"
	"rank-annotation-backend/domain/sheet"
	"rank-annotation-backend/logging"
	"rank-annotation-backend/metrics"
	"rank-annotation-backend/repository/tablestore"
	"strings"
	"sync"
	"time"
)

type Config struct {
	Sheet *sheet.Config
	// 单条提交的超时时间，0 表示只使用调用方的 context
	Timeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Sheet:   sheet.DefaultConfig(),
		Timeout: 15 * time.Second,
	}
}

func GenerateTestConfig() *Config {
	return DefaultConfig()
}

/*
Coordinator 直接对表格执行提交。每条提交都重新读取表格状态：
按 id 重新定位行，重新读取三轮排序，选择第一个空的轮次写入，最后回读校验。
*/
type Coordinator struct {
	store     tablestore.Store
	config    *Config
	publisher Publisher
	alerter   Alerter
	locks     *keyLock
	tokens    *tokenCache
	// 串行化轮次列的创建
	schemaLock sync.Mutex
	logger     *logrus.Logger
	now        func() time.Time
}

func NewCoordinator(store tablestore.Store, config *Config) *Coordinator {
	return &Coordinator{
		store:  store,
		config: config,
		locks:  newKeyLock(),
		tokens: newTokenCache(tokenTTL),
		logger: logging.NewLogger(),
		now:    time.Now,
	}
}

func (c *Coordinator) WithPublisher(publisher Publisher) *Coordinator {
	c.publisher = publisher
	return c
}

func (c *Coordinator) WithAlerter(alerter Alerter) *Coordinator {
	c.alerter = alerter
	return c
}

/*
Commit 逐条执行提交，单条失败不影响其他提交。本地执行不会整体失败，error 总是 nil。
*/
func (c *Coordinator) Commit(ctx context.Context, submissions []Submission) ([]Result, error) {
	results := make([]Result, len(submissions))
	for i := range submissions {
		results[i] = c.CommitOne(ctx, &submissions[i])
	}
	return results, nil
}

func (c *Coordinator) CommitOne(ctx context.Context, submission *Submission) Result {
	copied := *submission
	submission = &copied

	begin := time.Now()
	result := c.commitOne(ctx, submission)
	metrics.CommitDuration.Observe(time.Since(begin).Seconds())

	if result.Success {
		metrics.CommitsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	} else {
		metrics.CommitsTotal.WithLabelValues(string(result.Kind)).Inc()
		c.logger.Warnf("commit sentence [%s] fail with kind [%s]: %s", submission.ID, result.Kind, result.Error)
	}

	if result.Kind == fault.VerificationFailed && c.alerter != nil {
		c.alerter.AlertVerificationFailed(submission, &result)
	}

	return result
}

func (c *Coordinator) commitOne(ctx context.Context, submission *Submission) Result {
	if err := c.validate(submission); err != nil {
		c.logger.WithError(err).Errorf("reject payload %#v", submission)
		return failure(submission.ID, err)
	}

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	unlock := c.locks.Lock(submission.ID)
	defer unlock()

	// 上一次提交已经写入但结果没有返回给调用方
	if done, ok := c.tokens.Get(submission.Token); ok {
		c.logger.Infof("sentence [%s] already committed with token [%s] to round [%d]", submission.ID, submission.Token, done.Round)
		return done
	}

	schema, err := c.ensureSchema(ctx)
	if err != nil {
		return failure(submission.ID, err)
	}

	row, err := c.locate(ctx, schema, submission)
	if err != nil {
		return failure(submission.ID, err)
	}

	cells, err := c.store.Row(ctx, row)
	if err != nil {
		return failure(submission.ID, fault.Wrap(fault.TransportFailed, err, "read row [%d]", row))
	}

	ranking := sheet.EncodeRanking(submission.Ranking)
	comment := strings.TrimSpace(submission.Comment)

	// 内容相同不代表是同一次提交，不同标注者可能给出相同的排序和评论
	round := sheet.RoundNone
	for _, r := range sheet.AllRounds {
		if !roundAt(schema, cells, r).Complete() {
			round = r
			break
		}
	}

	if round == sheet.RoundNone {
		return Result{
			ID:    submission.ID,
			Row:   row,
			Kind:  fault.AllRoundsFilled,
			Error: fault.New(fault.AllRoundsFilled, "all %d rounds of sentence [%s] are filled", sheet.RoundCount, submission.ID).Error(),
		}
	}

	err = c.store.Update(ctx, row, map[int]string{
		schema.RankingsIndex(round): ranking,
		schema.CommentsIndex(round): comment,
	})
	if err != nil {
		return failure(submission.ID, fault.Wrap(fault.TransportFailed, err, "write round [%d] of row [%d]", round, row))
	}

	result, err := c.verify(ctx, schema, submission.ID, row, round, ranking, comment)
	if err != nil {
		return failure(submission.ID, err)
	}

	if result.Success {
		c.tokens.Put(submission.Token, result)
		c.logger.Infof("sentence [%s] committed to round [%d] at row [%d]", submission.ID, round, row)
		c.publish(ctx, submission, &result)
	}
	return result
}

/*
validate 在任何读写之前检查排序是否恰好是候选列标识的一个排列。
*/
func (c *Coordinator) validate(submission *Submission) error {
	submission.ID = strings.TrimSpace(submission.ID)
	if submission.ID == "" {
		return fault.New(fault.PayloadShapeInvalid, "sentence id is empty")
	}

	return ValidateRanking(submission.Ranking, c.config.Sheet.CandidateKeys)
}

func ValidateRanking(ranking []string, keys []string) error {
	if len(ranking) != len(keys) {
		return fault.New(fault.PayloadShapeInvalid, "expect %d column keys, got %d", len(keys), len(ranking))
	}

	known := make(map[string]bool, len(keys))
	for _, k := range keys {
		known[k] = false
	}

	for _, k := range ranking {
		used, ok := known[k]
		if !ok {
			return fault.New(fault.PayloadShapeInvalid, "unknown column key [%s]", k)
		}
		if used {
			return fault.New(fault.PayloadShapeInvalid, "duplicated column key [%s]", k)
		}
		known[k] = true
	}

	return nil
}

/*
ensureSchema 读取表头，缺少轮次列时先创建。
*/
func (c *Coordinator) ensureSchema(ctx context.Context) (*sheet.Schema, error) {
	header, err := c.store.Header(ctx)
	if err != nil {
		return nil, fault.Wrap(fault.TransportFailed, err, "read header")
	}

	schema, err := sheet.ResolveSchema(header, c.config.Sheet)
	if err != nil {
		return nil, err
	}

	missing := schema.MissingRoundColumns()
	if len(missing) == 0 {
		return schema, nil
	}

	c.schemaLock.Lock()
	defer c.schemaLock.Unlock()

	c.logger.Infof("create missing round columns %v", missing)
	err = c.store.AddColumns(ctx, missing)
	if err != nil && !errors.Is(err, tablestore.ErrDuplicateColumn) {
		return nil, fault.Wrap(fault.TransportFailed, err, "add columns %v", missing)
	}

	header, err = c.store.Header(ctx)
	if err != nil {
		return nil, fault.Wrap(fault.TransportFailed, err, "read header")
	}

	return sheet.ResolveSchema(header, c.config.Sheet)
}

/*
locate 扫描 id 列重新确定行号，忽略提交中的行号提示。
id 重复时使用第一行。
*/
func (c *Coordinator) locate(ctx context.Context, schema *sheet.Schema, submission *Submission) (int, error) {
	ids, err := c.store.Column(ctx, schema.ID)
	if err != nil {
		return 0, fault.Wrap(fault.TransportFailed, err, "read id column")
	}

	row := 0
	for i, id := range ids {
		if strings.TrimSpace(id) != submission.ID {
			continue
		}
		if row != 0 {
			c.logger.Warnf("sentence id [%s] appears in both row [%d] and row [%d], using the first", submission.ID, row, i+tablestore.FirstDataRow)
			break
		}
		row = i + tablestore.FirstDataRow
	}

	if row == 0 {
		return 0, fault.New(fault.RowNotFound, "sentence [%s] not found in sheet", submission.ID)
	}

	if submission.RowHint != 0 && submission.RowHint != row {
		c.logger.Infof("sentence [%s] moved from row [%d] to row [%d]", submission.ID, submission.RowHint, row)
	}
	return row, nil
}

func (c *Coordinator) verify(ctx context.Context, schema *sheet.Schema, id string, row int, round sheet.Round, ranking, comment string) (Result, error) {
	cells, err := c.store.Row(ctx, row)
	if err != nil {
		return Result{}, fault.Wrap(fault.TransportFailed, err, "read back row [%d]", row)
	}

	rankIdx, commentIdx := schema.RankingsIndex(round), schema.CommentsIndex(round)
	gotRanking, gotComment := cellAt(cells, rankIdx), cellAt(cells, commentIdx)

	result := Result{
		ID:              id,
		Row:             row,
		Round:           round,
		VerifiedRanking: sheet.DecodeRanking(gotRanking),
		VerifiedComment: gotComment,
	}

	if gotRanking != ranking || gotComment != comment {
		result.Kind = fault.VerificationFailed
		result.Error = fault.New(fault.VerificationFailed,
			"row [%d] round [%d] reads back ranking [%s] comment [%s]", row, round, gotRanking, gotComment).Error()
		return result, nil
	}

	result.Success = true
	return result, nil
}

func (c *Coordinator) publish(ctx context.Context, submission *Submission, result *Result) {
	if c.publisher == nil {
		return
	}

	event := &Event{
		EventID:     uuid.NewString(),
		SentenceID:  submission.ID,
		Row:         result.Row,
		Round:       result.Round,
		Ranking:     result.VerifiedRanking,
		Comment:     result.VerifiedComment,
		CommittedAt: c.now(),
	}
	if err := c.publisher.PublishCommitted(ctx, event); err != nil {
		c.logger.WithError(err).Warnf("publish commit event of sentence [%s] fail", submission.ID)
	}
}

func cellAt(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

func roundAt(schema *sheet.Schema, cells []string, r sheet.Round) sheet.RoundState {
	return sheet.RoundState{
		Ranking: sheet.DecodeRanking(cellAt(cells, schema.RankingsIndex(r))),
		Comment: cellAt(cells, schema.CommentsIndex(r)),
	}
}
