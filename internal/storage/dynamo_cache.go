package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client the cache uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

const dynamoCacheSK = "CACHE"

// maxDynamoPayload keeps Data under DynamoDB's 400 KB item limit with room
// for the key and bookkeeping attributes.
const maxDynamoPayload = 390 * 1024

// DynamoDBItem represents a cached payload stored in DynamoDB.
type DynamoDBItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Data      []byte `dynamodbav:"Data"`
	Timestamp string `dynamodbav:"Timestamp"`
	TTL       int64  `dynamodbav:"TTL,omitempty"`
}

// DynamoCache is a durable cache on a single-table DynamoDB layout
// (PK/SK with a TTL attribute). DynamoDB deletes expired items lazily, so Get
// also checks the TTL itself. Payloads over maxDynamoPayload are refused with
// ErrTooLarge, so very large lists are served from the repository instead.
type DynamoCache struct {
	client    DynamoAPI
	tableName string
	now       func() time.Time
}

// NewDynamoCache creates a DynamoDB-backed cache.
func NewDynamoCache(client DynamoAPI, tableName string) *DynamoCache {
	return &DynamoCache{client: client, tableName: tableName, now: time.Now}
}

func dynamoKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "RECIPIENTS#" + key},
		"SK": &types.AttributeValueMemberS{Value: dynamoCacheSK},
	}
}

// Get returns the cached bytes for key.
func (c *DynamoCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key:       dynamoKey(key),
	})
	if err != nil {
		return nil, false, fmt.Errorf("getting item from DynamoDB: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, false, nil
	}

	var item DynamoDBItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, false, fmt.Errorf("unmarshaling item: %w", err)
	}
	if item.TTL > 0 && c.now().Unix() >= item.TTL {
		return nil, false, nil
	}
	return item.Data, true, nil
}

// Set stores data under key. A zero ttl never expires.
func (c *DynamoCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if len(data) > maxDynamoPayload {
		return fmt.Errorf("%w: %d bytes for %s", ErrTooLarge, len(data), key)
	}
	now := c.now().UTC()
	item := DynamoDBItem{
		PK:        "RECIPIENTS#" + key,
		SK:        dynamoCacheSK,
		Data:      data,
		Timestamp: now.Format(time.RFC3339),
	}
	if ttl > 0 {
		item.TTL = now.Add(ttl).Unix()
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshaling item: %w", err)
	}
	_, err = c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("putting item to DynamoDB: %w", err)
	}
	return nil
}

// Delete removes key.
func (c *DynamoCache) Delete(ctx context.Context, key string) error {
	_, err := c.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key:       dynamoKey(key),
	})
	if err != nil {
		return fmt.Errorf("deleting item from DynamoDB: %w", err)
	}
	return nil
}
