package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/inkwell/inkwell/internal/model"
	"github.com/inkwell/inkwell/internal/razorpay"
	"github.com/inkwell/inkwell/internal/repository/memory"
	"github.com/inkwell/inkwell/internal/repository/storetest"
)

const testKeySecret = "test_secret"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPlans() model.PlanCatalog {
	return model.NewPlanCatalog(
		model.Plan{ID: model.PlanFree, Name: "Free Plan", Credits: 10000},
		model.Plan{ID: model.PlanPremium, Name: "Premium Plan", Price: 999, Credits: 2000000},
		model.Plan{ID: model.PlanEnterprise, Name: "Enterprise Plan", Price: 2499, Credits: 5000000},
	)
}

func seedAccount(t *testing.T, store *memory.Store, balance int64) *model.Account {
	t.Helper()
	account := storetest.NewAccount(balance)
	if err := store.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	return account
}

func balanceOf(t *testing.T, store *memory.Store, accountID string) int64 {
	t.Helper()
	account, err := store.GetAccountByID(context.Background(), accountID)
	if err != nil {
		t.Fatalf("GetAccountByID failed: %v", err)
	}
	return account.CreditBalance
}

// fakeGenerator returns output from fn and counts calls.
type fakeGenerator struct {
	calls atomic.Int64
	fn    func(ctx context.Context, prompt string) (string, error)
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls.Add(1)
	return g.fn(ctx, prompt)
}

func fixedOutput(text string) *fakeGenerator {
	return &fakeGenerator{fn: func(context.Context, string) (string, error) { return text, nil }}
}

// fakeGateway keeps orders in memory and verifies signatures with
// testKeySecret.
type fakeGateway struct {
	configured bool
	createErr  error
	fetchErr   error

	mu     sync.Mutex
	seq    int
	orders map[string]*razorpay.Order
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{configured: true, orders: make(map[string]*razorpay.Order)}
}

func (g *fakeGateway) Configured() bool { return g.configured }

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

func (g *fakeGateway) CreateOrder(_ context.Context, req razorpay.OrderRequest) (*razorpay.Order, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	g.seq++
	order := &razorpay.Order{
		ID:       fmt.Sprintf("order_%04d", g.seq),
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
		Notes:    req.Notes,
	}
	g.orders[order.ID] = order
	return order, nil
}

func (g *fakeGateway) FetchOrder(_ context.Context, orderID string) (*razorpay.Order, error) {
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	order, ok := g.orders[orderID]
	if !ok {
		return nil, &razorpay.APIError{StatusCode: 400, Code: "BAD_REQUEST_ERROR", Description: "The id provided does not exist"}
	}
	return order, nil
}

func (g *fakeGateway) VerifyPaymentSignature(orderID, paymentID, signature string) error {
	return razorpay.VerifyPaymentSignature(testKeySecret, orderID, paymentID, signature)
}

// fakeLocker fails every Lock call with err.
type fakeLocker struct{ err error }

func (l fakeLocker) Lock(context.Context, string) (func(), error) {
	return nil, l.err
}

// fakeAuthCache records deleted keys.
type fakeAuthCache struct {
	mu      sync.Mutex
	deleted []string
}

func (c *fakeAuthCache) DeleteAuthContext(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, key)
	return nil
}

var errUpstream = errors.New("gemini: HTTP 503 UNAVAILABLE: model overloaded")
