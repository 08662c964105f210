package payment

import (
	"context"
	"sync"
	"time"

	"github.com/imrishuroy/authorizenet-gateway/internal/anet"
	"github.com/imrishuroy/authorizenet-gateway/internal/idempotency"
	"github.com/imrishuroy/authorizenet-gateway/internal/orders"
	"github.com/imrishuroy/authorizenet-gateway/internal/recurring"
)

// fakeClient records every request and answers from canned responses.
type fakeClient struct {
	mu sync.Mutex

	txResp  *anet.CreateTransactionResponse
	txErr   error
	txCalls []*anet.CreateTransactionRequest

	details      *anet.GetTransactionDetailsResponse
	detailsErr   error
	detailsCalls int

	subResp    *anet.CreateSubscriptionResponse
	subErr     error
	subCalls   []*anet.CreateSubscriptionRequest
	cancelResp *anet.CancelSubscriptionResponse
	cancelErr  error
	cancelIDs  []string
}

func (f *fakeClient) CreateTransaction(ctx context.Context, req *anet.CreateTransactionRequest) (*anet.CreateTransactionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txCalls = append(f.txCalls, req)
	return f.txResp, f.txErr
}

func (f *fakeClient) GetTransactionDetails(ctx context.Context, transID string) (*anet.GetTransactionDetailsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailsCalls++
	return f.details, f.detailsErr
}

func (f *fakeClient) CreateSubscription(ctx context.Context, req *anet.CreateSubscriptionRequest) (*anet.CreateSubscriptionResponse, error) {
	f.subCalls = append(f.subCalls, req)
	return f.subResp, f.subErr
}

func (f *fakeClient) CancelSubscription(ctx context.Context, subscriptionID string) (*anet.CancelSubscriptionResponse, error) {
	f.cancelIDs = append(f.cancelIDs, subscriptionID)
	return f.cancelResp, f.cancelErr
}

func approved(transID, authCode string) *anet.CreateTransactionResponse {
	return &anet.CreateTransactionResponse{
		Messages: anet.Messages{ResultCode: anet.ResultCodeOk},
		TransactionResponse: &anet.TransactionResponse{
			ResponseCode:  "1",
			TransID:       transID,
			AuthCode:      authCode,
			AvsResultCode: "Y",
			Messages:      []anet.TransactionMessage{{Code: "1", Description: "This transaction has been approved."}},
		},
	}
}

func detailsResponse(ok bool, status, txType, description string) *anet.GetTransactionDetailsResponse {
	resp := &anet.GetTransactionDetailsResponse{
		Transaction: &anet.TransactionDetails{
			TransID:           "60100",
			TransactionType:   txType,
			TransactionStatus: status,
			Order:             &anet.OrderInfo{Description: description},
		},
		Messages: anet.Messages{ResultCode: anet.ResultCodeOk},
	}
	if !ok {
		resp.Messages = anet.Messages{
			ResultCode: anet.ResultCodeError,
			Message:    []anet.Message{{Code: "E00027", Text: "The transaction was unsuccessful."}},
		}
	}
	return resp
}

// memStore backs both repositories so RecordFirstPayment can stamp the initial order.
type memStore struct {
	mu        sync.Mutex
	orders    map[string]*orders.Order
	payments  map[string]*recurring.Payment
	firstPays int

	firstPayErr error // returned by RecordFirstPayment without writing
}

func newMemStore() *memStore {
	return &memStore{orders: map[string]*orders.Order{}, payments: map[string]*recurring.Payment{}}
}

func (m *memStore) GetByGUID(ctx context.Context, guid string) (*orders.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.OrderGUID == guid {
			c := *o
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetByIDs(ctx context.Context, ids []string) ([]orders.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []orders.Order
	for _, id := range ids {
		if o, ok := m.orders[id]; ok {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memStore) SearchByInitialOrder(ctx context.Context, orderID string) ([]recurring.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []recurring.Payment
	for _, p := range m.payments {
		if p.InitialOrderID == orderID {
			c := *p
			c.History = append([]recurring.History(nil), p.History...)
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) RecordFirstPayment(ctx context.Context, p recurring.Payment, orderID string, status orders.PaymentStatus, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.firstPayErr != nil {
		return m.firstPayErr
	}
	stored := m.payments[p.RecurringPaymentID]
	if len(stored.History) != 0 {
		return recurring.ErrHistoryNotEmpty
	}
	m.firstPays++
	stored.History = append(stored.History, recurring.History{OrderID: orderID, CreatedAt: time.Now()})
	stored.HistoryCount = 1
	initial := m.orders[p.InitialOrderID]
	if status == orders.PaymentStatusAuthorized {
		initial.AuthorizationTransactionID = transactionID
	} else {
		initial.CaptureTransactionID = transactionID
	}
	return nil
}

type fakeAdvancer struct {
	mu      sync.Mutex
	calls   []recurring.CycleResult
	history *memStore // when set, each advance appends a new order to the history
	err     error
}

func (f *fakeAdvancer) ProcessNextRecurringPayment(ctx context.Context, p recurring.Payment, result recurring.CycleResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, result)
	if f.history != nil && !result.RecurringPaymentFailed {
		f.history.mu.Lock()
		id := p.RecurringPaymentID + "-cycle-" + result.CaptureTransactionID + result.AuthorizationTransactionID
		f.history.orders[id] = &orders.Order{
			OrderID:                    id,
			AuthorizationTransactionID: result.AuthorizationTransactionID,
			CaptureTransactionID:       result.CaptureTransactionID,
		}
		stored := f.history.payments[p.RecurringPaymentID]
		stored.History = append(stored.History, recurring.History{OrderID: id})
		f.history.mu.Unlock()
	}
	return nil
}

// memClaims mirrors the idempotency table's state machine, leases included.
type memClaims struct {
	mu         sync.Mutex
	status     map[string]string
	leaseUntil map[string]time.Time
	now        func() time.Time
}

func newMemClaims() *memClaims {
	return &memClaims{status: map[string]string{}, leaseUntil: map[string]time.Time{}, now: time.Now}
}

func (c *memClaims) Claim(ctx context.Context, recurringPaymentID, transactionID, orderID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := idempotency.Key(recurringPaymentID, transactionID)
	now := c.now()
	switch st := c.status[key]; {
	case st == "", st == idempotency.StatusFailed,
		st == idempotency.StatusInProgress && now.After(c.leaseUntil[key]):
		c.status[key] = idempotency.StatusInProgress
		c.leaseUntil[key] = now.Add(idempotency.DefaultLease)
		return true, nil
	default:
		return false, nil
	}
}

func (c *memClaims) MarkDone(ctx context.Context, key, outcome string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status[key] = idempotency.StatusDone
	return nil
}

func (c *memClaims) MarkFailed(ctx context.Context, key, note string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status[key] = idempotency.StatusFailed
	return nil
}

type countingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCountingMetrics() *countingMetrics { return &countingMetrics{counts: map[string]int{}} }

func (m *countingMetrics) Count(ctx context.Context, name string, dimensions map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[name]++
	return nil
}
