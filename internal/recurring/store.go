package recurring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/imrishuroy/authorizenet-gateway/internal/aws"
	"github.com/imrishuroy/authorizenet-gateway/internal/orders"
)

// InitialOrderIndex is the global secondary index keyed by initial_order_id.
const InitialOrderIndex = "initial_order_id-index"

var (
	// ErrHistoryNotEmpty is returned by RecordFirstPayment when another writer recorded a
	// cycle first.
	ErrHistoryNotEmpty = errors.New("recurring payment history is not empty")
	// ErrInitialOrderMissing is returned by RecordFirstPayment when the initial order is gone.
	ErrInitialOrderMissing = errors.New("initial order does not exist")
	// ErrTransactionConflict is returned by RecordFirstPayment when DynamoDB canceled the
	// transaction for a reason other than its conditions; the write can be retried.
	ErrTransactionConflict = errors.New("first payment transaction canceled")
	// ErrExists is returned by Create when the id is taken.
	ErrExists = errors.New("recurring payment already exists")
)

// Store persists recurring payments and stamps their initial orders.
type Store struct {
	client      aws.DynamoDBAPI
	tableName   string
	ordersTable string
	nowFunc     func() time.Time
}

// NewStore returns a Store. ordersTable is written to when the first cycle is recorded.
func NewStore(client aws.DynamoDBAPI, tableName, ordersTable string) *Store {
	return &Store{
		client:      client,
		tableName:   tableName,
		ordersTable: ordersTable,
		nowFunc:     time.Now,
	}
}

// Create stores a new recurring payment.
func (s *Store) Create(ctx context.Context, p Payment) error {
	now := s.nowFunc()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.History == nil {
		p.History = []History{}
	}
	p.HistoryCount = len(p.History)

	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal recurring payment: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(recurring_payment_id)"),
	})
	if err != nil {
		var cf *types.ConditionalCheckFailedException
		if errors.As(err, &cf) {
			return ErrExists
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Get fetches a recurring payment by id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, id string) (*Payment, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       paymentKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var p Payment
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal recurring payment: %w", err)
	}
	return &p, nil
}

// SearchByInitialOrder returns every recurring payment anchored at orderID.
func (s *Store) SearchByInitialOrder(ctx context.Context, orderID string) ([]Payment, error) {
	var (
		result    []Payment
		startFrom map[string]types.AttributeValue
	)
	for {
		out, err := s.client.Query(ctx, &dyn.QueryInput{
			TableName:              &s.tableName,
			IndexName:              awsString(InitialOrderIndex),
			KeyConditionExpression: awsString("initial_order_id = :o"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":o": &types.AttributeValueMemberS{Value: orderID},
			},
			ExclusiveStartKey: startFrom,
		})
		if err != nil {
			return nil, fmt.Errorf("query by initial order: %w", err)
		}
		for _, item := range out.Items {
			var p Payment
			if err := attributevalue.UnmarshalMap(item, &p); err != nil {
				return nil, fmt.Errorf("unmarshal recurring payment: %w", err)
			}
			result = append(result, p)
		}
		if len(out.LastEvaluatedKey) == 0 {
			return result, nil
		}
		startFrom = out.LastEvaluatedKey
	}
}

// RecordFirstPayment appends the first history entry for orderID and stamps the initial
// order with transactionID, in one transaction. The append is conditional on the history
// still being empty, so concurrent first-cycle notifications record at most one entry.
func (s *Store) RecordFirstPayment(ctx context.Context, p Payment, orderID string, status orders.PaymentStatus, transactionID string) error {
	now := s.nowFunc()
	entry, err := attributevalue.MarshalList([]History{{OrderID: orderID, CreatedAt: now}})
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}

	stampAttr := "capture_transaction_id"
	if status == orders.PaymentStatusAuthorized {
		stampAttr = "authorization_transaction_id"
	}
	ua := &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)}

	input := &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Update: &types.Update{
					TableName:           &s.tableName,
					Key:                 paymentKey(p.RecurringPaymentID),
					UpdateExpression:    awsString("SET history = list_append(if_not_exists(history, :empty), :entry), history_count = :one, updated_at = :ua"),
					ConditionExpression: awsString("history_count = :zero"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
						":entry": &types.AttributeValueMemberL{Value: entry},
						":zero":  &types.AttributeValueMemberN{Value: "0"},
						":one":   &types.AttributeValueMemberN{Value: "1"},
						":ua":    ua,
					},
				},
			},
			{
				Update: &types.Update{
					TableName:           &s.ordersTable,
					Key:                 map[string]types.AttributeValue{"order_id": &types.AttributeValueMemberS{Value: p.InitialOrderID}},
					UpdateExpression:    awsString("SET " + stampAttr + " = :tx, updated_at = :ua"),
					ConditionExpression: awsString("attribute_exists(order_id)"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":tx": &types.AttributeValueMemberS{Value: transactionID},
						":ua": ua,
					},
				},
			},
		},
	}

	_, err = s.client.TransactWriteItems(ctx, input)
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			return fmt.Errorf("%w: %v", canceledBecause(tce), err)
		}
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

// canceledBecause maps the cancellation reasons of RecordFirstPayment's transaction, which
// are reported in item order: 0 is the recurring payment, 1 the initial order.
func canceledBecause(tce *types.TransactionCanceledException) error {
	code := func(i int) string {
		if i >= len(tce.CancellationReasons) || tce.CancellationReasons[i].Code == nil {
			return ""
		}
		return *tce.CancellationReasons[i].Code
	}
	switch {
	case code(0) == conditionalCheckFailed:
		return ErrHistoryNotEmpty
	case code(1) == conditionalCheckFailed:
		return ErrInitialOrderMissing
	default:
		return ErrTransactionConflict
	}
}

const conditionalCheckFailed = "ConditionalCheckFailed"

func paymentKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"recurring_payment_id": &types.AttributeValueMemberS{Value: id},
	}
}

func awsString(s string) *string { return &s }
