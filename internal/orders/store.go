package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/imrishuroy/authorizenet-gateway/internal/aws"
)

// GUIDIndex is the global secondary index keyed by order_guid.
const GUIDIndex = "order_guid-index"

// batchGetLimit is the DynamoDB BatchGetItem key limit.
const batchGetLimit = 100

var (
	// ErrStatusMismatch is returned when a conditional payment update finds another status.
	ErrStatusMismatch = errors.New("status mismatch/conditional failed")
	// ErrExists is returned by Create when the order id is taken.
	ErrExists = errors.New("order already exists")
)

// Store encapsulates operations on the orders table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Create stores a new order. order.OrderID and order.OrderGUID must be set by the caller.
func (s *Store) Create(ctx context.Context, order Order) error {
	now := s.nowFunc()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	if order.PaymentStatus == "" {
		order.PaymentStatus = PaymentStatusPending
	}

	item, err := attributevalue.MarshalMap(order)
	if err != nil {
		return fmt.Errorf("marshal order item: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(order_id)"),
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

// Get fetches an order by order_id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       orderKey(orderID),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// GetByGUID looks an order up through the GUID index. Returns (nil, nil) if not found.
func (s *Store) GetByGUID(ctx context.Context, guid string) (*Order, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              awsString(GUIDIndex),
		KeyConditionExpression: awsString("order_guid = :g"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":g": &types.AttributeValueMemberS{Value: guid},
		},
		Limit: awsInt32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query by guid: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Items[0], &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// GetByIDs fetches the orders with the given ids. Missing ids are skipped; order of the
// result is unspecified.
func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]Order, error) {
	seen := make(map[string]struct{}, len(ids))
	keys := make([]map[string]types.AttributeValue, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, orderKey(id))
	}

	var result []Order
	for start := 0; start < len(keys); start += batchGetLimit {
		end := start + batchGetLimit
		if end > len(keys) {
			end = len(keys)
		}
		pending := map[string]types.KeysAndAttributes{
			s.tableName: {Keys: keys[start:end]},
		}
		// UnprocessedKeys are resubmitted until DynamoDB has served them all.
		for len(pending) > 0 {
			out, err := s.client.BatchGetItem(ctx, &dyn.BatchGetItemInput{RequestItems: pending})
			if err != nil {
				return nil, fmt.Errorf("batch get: %w", err)
			}
			for _, item := range out.Responses[s.tableName] {
				var o Order
				if err := attributevalue.UnmarshalMap(item, &o); err != nil {
					return nil, fmt.Errorf("unmarshal order: %w", err)
				}
				result = append(result, o)
			}
			pending = out.UnprocessedKeys
		}
	}
	return result, nil
}

// ApplyPayment writes the non-empty fields of upd. When expected is set the update only
// succeeds if the current payment status equals it; otherwise ErrStatusMismatch.
func (s *Store) ApplyPayment(ctx context.Context, orderID string, expected PaymentStatus, upd PaymentUpdate) error {
	now := s.nowFunc()
	sets := []string{"updated_at = :ua"}
	values := map[string]types.AttributeValue{
		":ua": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
	}
	names := map[string]string{}
	add := func(attr, placeholder, value string) {
		if value == "" {
			return
		}
		sets = append(sets, attr+" = "+placeholder)
		values[placeholder] = &types.AttributeValueMemberS{Value: value}
	}
	if upd.Status != "" {
		names["#s"] = "payment_status"
		add("#s", ":new", string(upd.Status))
	}
	add("authorization_transaction_id", ":aid", upd.AuthorizationTransactionID)
	add("authorization_transaction_code", ":acode", upd.AuthorizationTransactionCode)
	add("authorization_transaction_result", ":ares", upd.AuthorizationTransactionResult)
	add("capture_transaction_id", ":cid", upd.CaptureTransactionID)
	add("capture_transaction_result", ":cres", upd.CaptureTransactionResult)
	add("subscription_transaction_id", ":sid", upd.SubscriptionTransactionID)
	add("avs_result", ":avs", upd.AvsResult)
	add("masked_credit_card_number", ":mcc", upd.MaskedCreditCardNumber)
	add("card_expiration_month", ":cem", upd.CardExpirationMonth)
	add("card_expiration_year", ":cey", upd.CardExpirationYear)
	if upd.RefundedAmount.IsPositive() {
		sets = append(sets, "refunded_amount = :ra")
		values[":ra"] = moneyAttr(upd.RefundedAmount)
	}

	condition := "attribute_exists(order_id)"
	if expected != "" {
		names["#s"] = "payment_status"
		condition += " AND #s = :expected"
		values[":expected"] = &types.AttributeValueMemberS{Value: string(expected)}
	}

	input := &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       orderKey(orderID),
		UpdateExpression:          awsString("SET " + strings.Join(sets, ", ")),
		ExpressionAttributeValues: values,
		ConditionExpression:       &condition,
	}
	if len(names) > 0 {
		input.ExpressionAttributeNames = names
	}

	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		var sc *types.ConditionalCheckFailedException
		if errors.As(err, &sc) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

func orderKey(orderID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"order_id": &types.AttributeValueMemberS{Value: orderID},
	}
}

func awsString(s string) *string { return &s }

func awsInt32(v int32) *int32 { return &v }
