package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/catalog"
	"github.com/inkwell/inkwell/internal/handler/dto"
	"github.com/inkwell/inkwell/internal/model"
	"github.com/inkwell/inkwell/internal/razorpay"
	"github.com/inkwell/inkwell/internal/repository/memory"
	"github.com/inkwell/inkwell/internal/repository/storetest"
	"github.com/inkwell/inkwell/internal/service"
)

const gatewaySecret = "handler_test_secret"

var errUpstream = errors.New("gemini: HTTP 503 UNAVAILABLE: model overloaded")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPlans() model.PlanCatalog {
	return model.NewPlanCatalog(
		model.Plan{ID: model.PlanFree, Name: "Free Plan", Credits: 10000},
		model.Plan{ID: model.PlanPremium, Name: "Premium Plan", Price: 999, Credits: 2000000},
		model.Plan{ID: model.PlanEnterprise, Name: "Enterprise Plan", Price: 2499, Credits: 5000000},
	)
}

// stubGenerator records prompts and returns a fixed text.
type stubGenerator struct {
	calls  atomic.Int64
	output string
	err    error

	mu      sync.Mutex
	prompts []string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.calls.Add(1)
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	return g.output, nil
}

func (g *stubGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

// stubGateway keeps orders in memory and checks signatures against
// gatewaySecret.
type stubGateway struct {
	configured bool

	mu     sync.Mutex
	seq    int
	orders map[string]*razorpay.Order
}

func (g *stubGateway) Configured() bool { return g.configured }

func (g *stubGateway) KeyID() string { return "rzp_test_handler" }

func (g *stubGateway) CreateOrder(_ context.Context, req razorpay.OrderRequest) (*razorpay.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	order := &razorpay.Order{
		ID:       fmt.Sprintf("order_h%03d", g.seq),
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
		Notes:    req.Notes,
	}
	g.orders[order.ID] = order
	return order, nil
}

func (g *stubGateway) FetchOrder(_ context.Context, id string) (*razorpay.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	order, ok := g.orders[id]
	if !ok {
		return nil, &razorpay.APIError{StatusCode: http.StatusBadRequest, Code: "BAD_REQUEST_ERROR"}
	}
	return order, nil
}

func (g *stubGateway) VerifyPaymentSignature(orderID, paymentID, signature string) error {
	return razorpay.VerifyPaymentSignature(gatewaySecret, orderID, paymentID, signature)
}

// recordingAuthCache records deleted cache keys.
type recordingAuthCache struct {
	mu      sync.Mutex
	deleted []string
}

func (c *recordingAuthCache) DeleteAuthContext(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, key)
	return nil
}

type fixture struct {
	store     *memory.Store
	generator *stubGenerator
	gateway   *stubGateway
	authCache *recordingAuthCache
	router    chi.Router
}

// newFixture wires real services over a memory store and mounts the handlers
// on a bare chi router. Use asAccount to authenticate requests.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	templates, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog.Load failed: %v", err)
	}

	f := &fixture{
		store:     memory.New(),
		generator: &stubGenerator{output: "generated text"},
		gateway:   &stubGateway{configured: true, orders: make(map[string]*razorpay.Order)},
		authCache: &recordingAuthCache{},
	}

	logger := quietLogger()
	resp := NewResponder(logger, false)
	plans := testPlans()

	accounts := service.NewAccountService(f.store, plans, f.authCache,
		service.AccountConfig{TokenTTL: time.Hour, TokenEnv: auth.EnvTest}, logger)
	generations := service.NewGenerationService(f.store, f.generator, nil, nil, logger)
	billing := service.NewBillingService(f.store, plans, f.gateway, "INR", nil, logger)

	content := NewContentHandler(generations, templates, resp)
	billingHandler := NewBillingHandler(billing, accounts, resp)
	accountHandler := NewAccountHandler(accounts, resp)
	templateHandler := NewTemplateHandler(templates)

	r := chi.NewRouter()
	r.Post("/generate", content.Generate)
	r.Get("/history", content.History)
	r.Get("/history/{id}", content.GetGeneration)
	r.Get("/plans", billingHandler.Plans)
	r.Post("/billing/order", billingHandler.CreateOrder)
	r.Post("/billing/verify", billingHandler.Verify)
	r.Post("/auth/register", accountHandler.Register)
	r.Post("/auth/login", accountHandler.Login)
	r.Post("/auth/logout", accountHandler.Logout)
	r.Get("/users/me", accountHandler.Me)
	r.Get("/users/usage", accountHandler.Usage)
	r.Put("/users/profile", accountHandler.UpdateProfile)
	r.Get("/templates", templateHandler.List)
	r.Get("/templates/{slug}", templateHandler.Get)
	f.router = r

	return f
}

func (f *fixture) seedAccount(t *testing.T, balance int64) *model.Account {
	t.Helper()
	account := storetest.NewAccount(balance)
	if err := f.store.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	return account
}

func (f *fixture) balanceOf(t *testing.T, accountID string) int64 {
	t.Helper()
	account, err := f.store.GetAccountByID(context.Background(), accountID)
	if err != nil {
		t.Fatalf("GetAccountByID failed: %v", err)
	}
	return account.CreditBalance
}

// do serves a request. A non-nil authCtx is attached as if the auth
// middleware had run.
func (f *fixture) do(t *testing.T, method, path string, body any, authCtx *model.AuthContext) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authCtx != nil {
		req = req.WithContext(auth.ContextWithAuth(req.Context(), authCtx))
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func asAccount(account *model.Account) *model.AuthContext {
	return &model.AuthContext{
		TokenID:   "tok_" + account.ID,
		AccountID: account.ID,
		Plan:      account.Plan,
		Scopes:    model.DefaultScopes,
		CacheKey:  "cache_" + account.ID,
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response: %v (body %q)", err, rec.Body.String())
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body dto.ErrorResponse
	decodeBody(t, rec, &body)
	return body.Error.Code
}
