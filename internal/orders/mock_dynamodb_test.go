package orders

import (
	"context"
	"errors"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamo is an in-memory orders table keyed by order_id.
// NOTE: only the expressions the Store issues are understood.
type mockDynamo struct {
	mu              sync.Mutex
	items           map[string]map[string]types.AttributeValue
	unprocessedOnce bool // when set, the first BatchGetItem defers its last key
	batchCalls      int
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func keyOf(m map[string]types.AttributeValue) string {
	if v, ok := m["order_id"].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := keyOf(params.Item)
	if k == "" {
		return nil, errors.New("no primary key in put item")
	}
	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(order_id)" {
		if _, exists := m.items[k]; exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	m.items[k] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[keyOf(params.Key)]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if params.IndexName == nil || *params.IndexName != GUIDIndex {
		return nil, errors.New("unsupported query")
	}
	want := params.ExpressionAttributeValues[":g"].(*types.AttributeValueMemberS).Value
	var out []map[string]types.AttributeValue
	for _, item := range m.items {
		if g, ok := item["order_guid"].(*types.AttributeValueMemberS); ok && g.Value == want {
			out = append(out, item)
		}
	}
	return &dyn.QueryOutput{Items: out}, nil
}

func (m *mockDynamo) BatchGetItem(ctx context.Context, params *dyn.BatchGetItemInput, optFns ...func(*dyn.Options)) (*dyn.BatchGetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	out := &dyn.BatchGetItemOutput{Responses: map[string][]map[string]types.AttributeValue{}}
	for table, ka := range params.RequestItems {
		keys := ka.Keys
		if m.unprocessedOnce && len(keys) > 1 {
			m.unprocessedOnce = false
			out.UnprocessedKeys = map[string]types.KeysAndAttributes{table: {Keys: keys[len(keys)-1:]}}
			keys = keys[:len(keys)-1]
		}
		for _, k := range keys {
			if item, ok := m.items[keyOf(k)]; ok {
				out.Responses[table] = append(out.Responses[table], item)
			}
		}
	}
	return out, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, exists := m.items[keyOf(params.Key)]
	if params.ConditionExpression != nil {
		cond := *params.ConditionExpression
		if strings.Contains(cond, "attribute_exists(order_id)") && !exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
		if strings.Contains(cond, "#s = :expected") {
			curr, ok := item["payment_status"].(*types.AttributeValueMemberS)
			expected := params.ExpressionAttributeValues[":expected"].(*types.AttributeValueMemberS).Value
			if !ok || curr.Value != expected {
				return nil, &types.ConditionalCheckFailedException{}
			}
		}
	}
	if !exists {
		return nil, errors.New("item not found")
	}
	expr := strings.TrimPrefix(*params.UpdateExpression, "SET ")
	for _, assignment := range strings.Split(expr, ", ") {
		parts := strings.SplitN(assignment, " = ", 2)
		attr := parts[0]
		if resolved, ok := params.ExpressionAttributeNames[attr]; ok {
			attr = resolved
		}
		item[attr] = params.ExpressionAttributeValues[parts[1]]
	}
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

func (m *mockDynamo) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	return &dyn.TransactWriteItemsOutput{}, nil
}
