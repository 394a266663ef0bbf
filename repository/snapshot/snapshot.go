package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"rank-annotation-backend/repository/tablestore"
	"rank-annotation-backend/utils"
	"time"
)

type Config struct {
	Bucket string
	Region string
	// 为空时使用 AWS 默认地址，MinIO 等兼容服务需要填写
	Endpoint string
	// 对象键前缀
	Prefix string
}

func GenerateTestConfig() *Config {
	return &Config{
		Bucket:   "ranker-test",
		Region:   "us-east-1",
		Endpoint: "http://localhost:9000",
		Prefix:   "snapshots/",
	}
}

type putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

/*
Archiver 把表格的 CSV 导出上传到 S3，用于留档和回滚。
*/
type Archiver struct {
	client putter
	config Config
	now    func() time.Time
}

func NewS3Client(ctx context.Context, cfg *Config) (*s3.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, utils.WrapError(err, "load aws config fail")
	}

	opts := []func(*s3.Options){}
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsCfg, opts...), nil
}

func New(ctx context.Context, cfg *Config) (*Archiver, error) {
	client, err := NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newArchiver(client, cfg), nil
}

func newArchiver(client putter, cfg *Config) *Archiver {
	return &Archiver{
		client: client,
		config: *cfg,
		now:    time.Now,
	}
}

/*
Archive 导出 store 的当前内容并上传，返回对象键。
*/
func (a *Archiver) Archive(ctx context.Context, store tablestore.Store) (string, error) {
	data, err := store.Export(ctx)
	if err != nil {
		return "", utils.WrapError(err, "export sheet fail")
	}

	now := a.now().UTC()
	key := fmt.Sprintf("%s%s.csv", a.config.Prefix, now.Format("20060102T150405Z"))

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
		Metadata: map[string]string{
			"source":      "rank-annotation-backend",
			"exported-at": now.Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", utils.WrapErrorf(err, "put object [%s] to bucket [%s] fail", key, a.config.Bucket)
	}

	return key, nil
}
