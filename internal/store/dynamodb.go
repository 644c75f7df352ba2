package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DefaultTable is the table forecasts are written to.
const DefaultTable = "weather_forecasts"

// Attribute names of the forecast table.
const (
	attrLocationKey = "location_key"
	attrTTL         = "ttl"
)

// DynamoAPI is the subset of *dynamodb.Client used by DynamoBackend.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoConfig holds connection settings for DynamoDB (or a local emulator).
type DynamoConfig struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// NewDynamoClient builds a DynamoDB client. Static credentials are used when given,
// otherwise the default AWS credential chain applies.
func NewDynamoClient(ctx context.Context, cfg DynamoConfig) (*dynamodb.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// Ensure DynamoBackend implements Backend
var _ Backend = (*DynamoBackend)(nil)

// DynamoBackend stores one item per location key. DynamoDB's TTL reaper removes
// expired items eventually, typically within days.
type DynamoBackend struct {
	client DynamoAPI
	table  string
}

// NewDynamoBackend creates a DynamoBackend writing to table.
func NewDynamoBackend(client DynamoAPI, table string) *DynamoBackend {
	if table == "" {
		table = DefaultTable
	}
	return &DynamoBackend{client: client, table: table}
}

// PutRecord writes record, replacing any existing item with the same key.
func (d *DynamoBackend) PutRecord(ctx context.Context, record Record) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put item %s: %w", record.Key, err)
	}
	return nil
}

// GetRecord returns the item for key or ErrNotFound.
func (d *DynamoBackend) GetRecord(ctx context.Context, key string) (Record, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key: map[string]types.AttributeValue{
			attrLocationKey: &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return Record{}, fmt.Errorf("get item %s: %w", key, err)
	}
	if len(out.Item) == 0 {
		return Record{}, ErrNotFound
	}

	var record Record
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal record %s: %w", key, err)
	}
	return record, nil
}

// Close is a no-op; the SDK client holds no long-lived connections of its own.
func (d *DynamoBackend) Close() error {
	return nil
}
