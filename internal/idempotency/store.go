package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/imrishuroy/authorizenet-gateway/internal/aws"
)

// DefaultTTL is how long a claim is kept. Authorize.Net retries a notification for a few
// days at most.
const DefaultTTL = 30 * 24 * time.Hour

// DefaultLease is how long an IN_PROGRESS claim belongs to its owner. It must outlast the
// longest invocation (the Lambda maximum is 15 minutes); after it, a redelivery may take
// the claim over.
const DefaultLease = 15 * time.Minute

// Store encapsulates idempotency operations against DynamoDB.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	ttlWindow time.Duration // default TTL window when creating entries
	lease     time.Duration
	nowFunc   func() time.Time
}

// NewStore returns a configured Store.
// tableName: DynamoDB table name for idempotency entries.
// ttlWindow: default TTL window (e.g., DefaultTTL)
func NewStore(client aws.DynamoDBAPI, tableName string, ttlWindow time.Duration) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		ttlWindow: ttlWindow,
		lease:     DefaultLease,
		nowFunc:   time.Now,
	}
}

// WithLease overrides DefaultLease.
func (s *Store) WithLease(lease time.Duration) *Store {
	s.lease = lease
	return s
}

// ErrConditionFailed indicates a conditional update found the record in an unexpected state.
var ErrConditionFailed = errors.New("conditional check failed")

// Key is the idempotency key for processing transactionID against a recurring payment.
func Key(recurringPaymentID, transactionID string) string {
	return recurringPaymentID + "#" + transactionID
}

// CreateIfNotExists creates an idempotency record with status IN_PROGRESS if the key does not exist.
// Returns (created=true, nil) if successfully created.
// Returns (created=false, nil) if the record already exists (caller should Get to inspect).
// Returns (created=false, err) on other errors.
func (s *Store) CreateIfNotExists(ctx context.Context, recurringPaymentID, transactionID, orderID string) (bool, error) {
	now := s.nowFunc()
	rec := IdempotencyRecord{
		IdempotencyKey:     Key(recurringPaymentID, transactionID),
		Status:             StatusInProgress,
		RecurringPaymentID: recurringPaymentID,
		TransactionID:      transactionID,
		OrderID:            orderID,
		Attempts:           1,
		CreatedAt:          now,
		UpdatedAt:          now,
		ExpiresAt:          now.Add(s.ttlWindow).Unix(),
		LeaseExpiresAt:     now.Add(s.lease).Unix(),
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return false, fmt.Errorf("marshal record: %w", err)
	}

	input := &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(idempotency_key)"),
	}

	_, err = s.client.PutItem(ctx, input)
	if err != nil {
		if isConditionFailure(err) {
			return false, nil
		}
		return false, fmt.Errorf("put item: %w", err)
	}

	return true, nil
}

// Get retrieves an idempotency record by key. If not found, returns (nil, nil).
func (s *Store) Get(ctx context.Context, key string) (*IdempotencyRecord, error) {
	input := &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       recordKey(key),
	}
	out, err := s.client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec IdempotencyRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return &rec, nil
}

// Reclaim moves a FAILED record back to IN_PROGRESS so a redelivered notification can retry
// it. Only one caller wins; the others get ErrConditionFailed.
func (s *Store) Reclaim(ctx context.Context, key string) error {
	return s.takeOver(ctx, key, "#s = :failed", map[string]types.AttributeValue{
		":failed": &types.AttributeValueMemberS{Value: StatusFailed},
	})
}

// ReclaimExpired takes over an IN_PROGRESS record whose lease has run out, i.e. whose owner
// died between claiming and marking the outcome. Only one caller wins; the others get
// ErrConditionFailed.
func (s *Store) ReclaimExpired(ctx context.Context, key string) error {
	return s.takeOver(ctx, key, "#s = :inprogress AND lease_expires_at < :now", map[string]types.AttributeValue{
		":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(s.nowFunc().Unix(), 10)},
	})
}

func (s *Store) takeOver(ctx context.Context, key, condition string, condValues map[string]types.AttributeValue) error {
	now := s.nowFunc()
	values := map[string]types.AttributeValue{
		":inprogress": &types.AttributeValueMemberS{Value: StatusInProgress},
		":one":        &types.AttributeValueMemberN{Value: "1"},
		":ua":         &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		":lease":      &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Add(s.lease).Unix(), 10)},
	}
	for k, v := range condValues {
		values[k] = v
	}
	input := &dyn.UpdateItemInput{
		TableName:           &s.tableName,
		Key:                 recordKey(key),
		UpdateExpression:    awsString("SET #s = :inprogress, attempts = attempts + :one, updated_at = :ua, lease_expires_at = :lease"),
		ConditionExpression: &condition,
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: values,
	}
	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		if isConditionFailure(err) {
			return ErrConditionFailed
		}
		return fmt.Errorf("update item (reclaim): %w", err)
	}
	return nil
}

// Claim reserves transactionID for recurringPaymentID. It returns true when the caller owns
// the processing: the record was new, a FAILED record was reclaimed, or an IN_PROGRESS
// record's lease had expired. A DONE record, or one IN_PROGRESS under a live lease, belongs
// to someone else and Claim returns false.
func (s *Store) Claim(ctx context.Context, recurringPaymentID, transactionID, orderID string) (bool, error) {
	created, err := s.CreateIfNotExists(ctx, recurringPaymentID, transactionID, orderID)
	if err != nil || created {
		return created, err
	}

	key := Key(recurringPaymentID, transactionID)
	rec, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}
	switch {
	case rec.Status == StatusFailed:
		err = s.Reclaim(ctx, key)
	case rec.Status == StatusInProgress && rec.LeaseExpiresAt < s.nowFunc().Unix():
		err = s.ReclaimExpired(ctx, key)
	default:
		return false, nil
	}
	if err != nil {
		if errors.Is(err, ErrConditionFailed) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// MarkDone sets status to DONE and records what processing did.
// The record must still be IN_PROGRESS.
func (s *Store) MarkDone(ctx context.Context, key, outcome string) error {
	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName:           &s.tableName,
		Key:                 recordKey(key),
		UpdateExpression:    awsString("SET #s = :done, outcome = :o, updated_at = :ua"),
		ConditionExpression: awsString("#s = :inprogress"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":done":       &types.AttributeValueMemberS{Value: StatusDone},
			":inprogress": &types.AttributeValueMemberS{Value: StatusInProgress},
			":o":          &types.AttributeValueMemberS{Value: outcome},
			":ua":         &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	}
	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		if isConditionFailure(err) {
			return ErrConditionFailed
		}
		return fmt.Errorf("update item (mark done): %w", err)
	}
	return nil
}

// MarkFailed marks the idempotency record as FAILED and optionally stores a note.
func (s *Store) MarkFailed(ctx context.Context, key, note string) error {
	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              recordKey(key),
		UpdateExpression: awsString("SET #s = :failed, note = :n, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":failed": &types.AttributeValueMemberS{Value: StatusFailed},
			":n":      &types.AttributeValueMemberS{Value: note},
			":ua":     &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	}
	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		return fmt.Errorf("update item (mark failed): %w", err)
	}
	return nil
}

func isConditionFailure(err error) bool {
	var sc smithy.APIError
	return errors.As(err, &sc) && sc.ErrorCode() == "ConditionalCheckFailedException"
}

func recordKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"idempotency_key": &types.AttributeValueMemberS{Value: key},
	}
}

// Helper
func awsString(s string) *string { return &s }
