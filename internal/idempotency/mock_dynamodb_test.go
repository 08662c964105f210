package idempotency

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// simpleMock is a very small in-memory mock for PutItem/GetItem/UpdateItem used in unit tests.
// It understands the handful of expressions the store issues and nothing more.
type simpleMock struct {
	mu          sync.Mutex
	table       map[string]map[string]types.AttributeValue
	putCalls    int
	getCalls    int
	updateCalls int
	updateErr   error
}

func newSimpleMock() *simpleMock {
	return &simpleMock{
		table: map[string]map[string]types.AttributeValue{},
	}
}

func (m *simpleMock) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	keyAttr, ok := params.Item["idempotency_key"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, errors.New("missing key")
	}
	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(idempotency_key)" {
		if _, exists := m.table[keyAttr.Value]; exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	m.table[keyAttr.Value] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *simpleMock) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	keyAttr, ok := params.Key["idempotency_key"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, errors.New("missing key")
	}
	item, ok := m.table[keyAttr.Value]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	// copy: UpdateItem mutates stored items in place
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return &dyn.GetItemOutput{Item: out}, nil
}

// holds evaluates "#s = :x" and "attr < :n" (numeric) conditions.
func (m *simpleMock) holds(item map[string]types.AttributeValue, cond string, vals map[string]types.AttributeValue) bool {
	if lhs, rhs, ok := strings.Cut(cond, " < "); ok {
		cur, isNum := item[strings.TrimSpace(lhs)].(*types.AttributeValueMemberN)
		if !isNum {
			return false
		}
		a, _ := strconv.ParseInt(cur.Value, 10, 64)
		b, _ := strconv.ParseInt(vals[strings.TrimSpace(rhs)].(*types.AttributeValueMemberN).Value, 10, 64)
		return a < b
	}
	want := strings.TrimSpace(strings.TrimPrefix(cond, "#s ="))
	cur, _ := item["status"].(*types.AttributeValueMemberS)
	return cur != nil && cur.Value == vals[want].(*types.AttributeValueMemberS).Value
}

// UpdateItem supports "#s = :x" and "attr < :n" conditions joined by AND, and SET clauses of the form "a = :v" and
// "a = a + :v".
func (m *simpleMock) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	keyAttr, ok := params.Key["idempotency_key"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, errors.New("missing key")
	}
	item, ok := m.table[keyAttr.Value]
	if !ok {
		return nil, errors.New("item not found")
	}
	vals := params.ExpressionAttributeValues

	if params.ConditionExpression != nil {
		for _, cond := range strings.Split(*params.ConditionExpression, " AND ") {
			if !m.holds(item, cond, vals) {
				return nil, &types.ConditionalCheckFailedException{}
			}
		}
	}

	for _, clause := range strings.Split(strings.TrimPrefix(*params.UpdateExpression, "SET "), ",") {
		parts := strings.SplitN(clause, "=", 2)
		attr := strings.TrimSpace(parts[0])
		if name, ok := params.ExpressionAttributeNames[attr]; ok {
			attr = name
		}
		rhs := strings.TrimSpace(parts[1])
		if strings.Contains(rhs, "+") {
			n, _ := strconv.Atoi(item[attr].(*types.AttributeValueMemberN).Value)
			inc, _ := strconv.Atoi(vals[strings.TrimSpace(strings.Split(rhs, "+")[1])].(*types.AttributeValueMemberN).Value)
			item[attr] = &types.AttributeValueMemberN{Value: strconv.Itoa(n + inc)}
			continue
		}
		item[attr] = vals[rhs]
	}
	m.table[keyAttr.Value] = item
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

func (m *simpleMock) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	return nil, errors.New("Query not supported by mock")
}

func (m *simpleMock) BatchGetItem(ctx context.Context, params *dyn.BatchGetItemInput, optFns ...func(*dyn.Options)) (*dyn.BatchGetItemOutput, error) {
	return nil, errors.New("BatchGetItem not supported by mock")
}

func (m *simpleMock) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	return nil, errors.New("TransactWriteItems not supported by mock")
}
