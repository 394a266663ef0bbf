package snapshot

import (
	"context"
	"errors"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"rank-annotation-backend/repository/tablestore"
	"testing"
	"time"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestArchive(t *testing.T) {
	store := tablestore.NewMemory(&tablestore.Table{
		Header: []string{"id", "sentence"},
		Rows:   [][]string{{"0", "a, b"}},
	})

	fake := &fakePutter{}
	archiver := newArchiver(fake, GenerateTestConfig())
	archiver.now = func() time.Time {
		return time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	}

	key, err := archiver.Archive(context.Background(), store)
	require.Nil(t, err)
	assert.Equal(t, "snapshots/20240301T083000Z.csv", key)
	assert.Equal(t, "ranker-test", *fake.input.Bucket)
	assert.Equal(t, "text/csv", *fake.input.ContentType)
	assert.Equal(t, "id,sentence\n0,\"a, b\"\n", string(fake.body))
}

func TestArchive_PutFail(t *testing.T) {
	store := tablestore.NewMemory(&tablestore.Table{Header: []string{"id"}})
	archiver := newArchiver(&fakePutter{err: errors.New("access denied")}, GenerateTestConfig())

	_, err := archiver.Archive(context.Background(), store)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
