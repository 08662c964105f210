package recurring

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamo stores items per table: table -> pk value -> item.
type mockDynamo struct {
	mu       sync.Mutex
	tables   map[string]map[string]map[string]types.AttributeValue
	pageSize int // Query page size; 0 means a single page

	// returned by TransactWriteItems before any condition is checked
	transactErr error
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{tables: map[string]map[string]map[string]types.AttributeValue{}}
}

func (m *mockDynamo) table(name string) map[string]map[string]types.AttributeValue {
	if _, ok := m.tables[name]; !ok {
		m.tables[name] = map[string]map[string]types.AttributeValue{}
	}
	return m.tables[name]
}

func pk(key map[string]types.AttributeValue) string {
	for _, attr := range []string{"recurring_payment_id", "order_id"} {
		if v, ok := key[attr].(*types.AttributeValueMemberS); ok {
			return v.Value
		}
	}
	return ""
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tbl := m.table(*params.TableName)
	k := pk(params.Item)
	if k == "" {
		return nil, errors.New("no primary key in put item")
	}
	if params.ConditionExpression != nil && strings.HasPrefix(*params.ConditionExpression, "attribute_not_exists") {
		if _, exists := tbl[k]; exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	tbl[k] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.table(*params.TableName)[pk(params.Key)]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := params.ExpressionAttributeValues[":o"].(*types.AttributeValueMemberS).Value
	var matches []map[string]types.AttributeValue
	for _, item := range m.table(*params.TableName) {
		if v, ok := item["initial_order_id"].(*types.AttributeValueMemberS); ok && v.Value == want {
			matches = append(matches, item)
		}
	}
	start := 0
	if params.ExclusiveStartKey != nil {
		start, _ = strconv.Atoi(params.ExclusiveStartKey["offset"].(*types.AttributeValueMemberN).Value)
	}
	if m.pageSize == 0 || start+m.pageSize >= len(matches) {
		return &dyn.QueryOutput{Items: matches[start:]}, nil
	}
	end := start + m.pageSize
	next := map[string]types.AttributeValue{
		"offset": &types.AttributeValueMemberN{Value: strconv.Itoa(end)},
	}
	return &dyn.QueryOutput{Items: matches[start:end], LastEvaluatedKey: next}, nil
}

func (m *mockDynamo) BatchGetItem(ctx context.Context, params *dyn.BatchGetItemInput, optFns ...func(*dyn.Options)) (*dyn.BatchGetItemOutput, error) {
	return &dyn.BatchGetItemOutput{}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	return nil, errors.New("UpdateItem not supported by mock")
}

func (m *mockDynamo) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.transactErr != nil {
		return nil, m.transactErr
	}
	// first pass: every condition must hold; reasons are reported per item like DynamoDB does
	reasons := make([]types.CancellationReason, len(params.TransactItems))
	canceled := false
	for i, it := range params.TransactItems {
		reasons[i] = types.CancellationReason{Code: awsString("None")}
		u := it.Update
		if u == nil {
			continue
		}
		item, exists := m.table(*u.TableName)[pk(u.Key)]
		failed := false
		switch *u.ConditionExpression {
		case "history_count = :zero":
			n, ok := item["history_count"].(*types.AttributeValueMemberN)
			failed = !exists || !ok || n.Value != "0"
		case "attribute_exists(order_id)":
			failed = !exists
		}
		if failed {
			reasons[i].Code = awsString("ConditionalCheckFailed")
			canceled = true
		}
	}
	if canceled {
		return nil, &types.TransactionCanceledException{CancellationReasons: reasons}
	}
	// second pass: apply
	for _, it := range params.TransactItems {
		u := it.Update
		if u == nil {
			continue
		}
		item := m.table(*u.TableName)[pk(u.Key)]
		vals := u.ExpressionAttributeValues
		if strings.Contains(*u.UpdateExpression, "list_append") {
			var history []types.AttributeValue
			if l, ok := item["history"].(*types.AttributeValueMemberL); ok {
				history = append(history, l.Value...)
			}
			history = append(history, vals[":entry"].(*types.AttributeValueMemberL).Value...)
			item["history"] = &types.AttributeValueMemberL{Value: history}
			item["history_count"] = vals[":one"]
		} else {
			attr := strings.Fields(strings.TrimPrefix(*u.UpdateExpression, "SET "))[0]
			item[attr] = vals[":tx"]
		}
		item["updated_at"] = vals[":ua"]
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}
