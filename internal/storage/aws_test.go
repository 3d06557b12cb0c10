package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamotypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/ignite/leadops/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo keeps items in memory keyed by PK.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]dynamotypes.AttributeValue
	table string
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]dynamotypes.AttributeValue)}
}

func pkOf(m map[string]dynamotypes.AttributeValue) string {
	return m["PK"].(*dynamotypes.AttributeValueMemberS).Value
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.table = aws.ToString(in.TableName)
	f.items[pkOf(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[pkOf(in.Key)]}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, pkOf(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestDynamoCache(t *testing.T) {
	fake := newFakeDynamo()
	c := NewDynamoCache(fake, "leadops-cache")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "list-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "list-1", []byte(`[{"email":"a@x.com"}]`), time.Hour))
	assert.Equal(t, "leadops-cache", fake.table)
	assert.Contains(t, fake.items, "RECIPIENTS#list-1")

	data, ok, err := c.Get(ctx, "list-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"email":"a@x.com"}]`, string(data))

	now = now.Add(61 * time.Minute)
	_, ok, err = c.Get(ctx, "list-1")
	require.NoError(t, err)
	assert.False(t, ok, "expired item must read as a miss")

	require.NoError(t, c.Delete(ctx, "list-1"))
	assert.Empty(t, fake.items)
}

func TestDynamoCache_RefusesOversizedPayload(t *testing.T) {
	fake := newFakeDynamo()
	c := NewDynamoCache(fake, "leadops-cache")
	ctx := context.Background()

	big := bytes.Repeat([]byte("a"), maxDynamoPayload+1)
	err := c.Set(ctx, "list-big", big, time.Hour)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Empty(t, fake.items, "oversized payload must not reach DynamoDB")

	require.NoError(t, c.Set(ctx, "list-ok", big[:maxDynamoPayload], time.Hour))
	assert.Contains(t, fake.items, "RECIPIENTS#list-ok")
}

// fakeS3 keeps objects in memory keyed by bucket/key.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	k := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[k] = data
	f.types[k] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if aws.ToString(in.Bucket) == "" {
		return nil, errors.New("bucket required")
	}
	return &s3.HeadBucketOutput{}, nil
}

func TestS3Archive(t *testing.T) {
	fake := newFakeS3()
	a := NewS3Archive(fake, "leadops-uploads")
	ctx := context.Background()

	require.NoError(t, a.Put(ctx, "uploads/org-1/leads.csv", []byte("email\na@x.com"), "text/csv"))
	assert.Equal(t, "text/csv", fake.types["leadops-uploads/uploads/org-1/leads.csv"])

	data, err := a.Get(ctx, "uploads/org-1/leads.csv")
	require.NoError(t, err)
	assert.Equal(t, "email\na@x.com", string(data))

	_, err = a.Get(ctx, "uploads/org-1/missing.csv")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, a.Ping(ctx))
}

func TestLocalArchive(t *testing.T) {
	a, err := NewLocalArchive(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, a.Put(ctx, "uploads/org-1/2026/03/01/list.csv", []byte("email\nb@x.com"), "text/csv"))
	data, err := a.Get(ctx, "uploads/org-1/2026/03/01/list.csv")
	require.NoError(t, err)
	assert.Equal(t, "email\nb@x.com", string(data))

	_, err = a.Get(ctx, "uploads/none.csv")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, a.Put(ctx, "../escape.csv", []byte("x"), "text/csv"))
}

func TestNewAWSConfig_StaticCredentials(t *testing.T) {
	cfg := config.StorageConfig{
		AWSRegion: "eu-west-1",
		AccessKey: "AKIDEXAMPLE",
		SecretKey: "secret",
	}
	awsCfg, err := NewAWSConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", awsCfg.Region)

	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIDEXAMPLE", creds.AccessKeyID)
}
