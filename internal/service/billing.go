package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/inkwell/inkwell/internal/metrics"
	"github.com/inkwell/inkwell/internal/model"
	"github.com/inkwell/inkwell/internal/razorpay"
	"github.com/inkwell/inkwell/internal/repository"
)

// Order note keys binding an order to an account and plan.
const (
	noteAccountID = "accountId"
	notePlanID    = "planId"
)

// PaymentGateway creates and inspects orders and checks checkout signatures.
type PaymentGateway interface {
	Configured() bool
	KeyID() string
	CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error)
	FetchOrder(ctx context.Context, orderID string) (*razorpay.Order, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) error
}

// BillingService sells plan upgrades and applies verified payments.
type BillingService struct {
	store    repository.AccountStore
	plans    model.PlanCatalog
	gateway  PaymentGateway
	currency string
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewBillingService creates a BillingService. A nil gateway leaves payments
// disabled.
func NewBillingService(store repository.AccountStore, plans model.PlanCatalog, gateway PaymentGateway, currency string, recorder metrics.Recorder, logger *slog.Logger) *BillingService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BillingService{
		store:    store,
		plans:    plans,
		gateway:  gateway,
		currency: currency,
		metrics:  recorder,
		logger:   logger,
	}
}

// PlanListing is the public plan table.
type PlanListing struct {
	Plans          map[model.PlanID]model.Plan `json:"plans"`
	PaymentEnabled bool                        `json:"payment_enabled"`
	KeyID          string                      `json:"key_id,omitempty"`
	Currency       string                      `json:"currency"`
}

// OrderHandle is what a client needs to open the gateway checkout.
type OrderHandle struct {
	OrderID  string       `json:"order_id"`
	Amount   int64        `json:"amount"`
	Currency string       `json:"currency"`
	Receipt  string       `json:"receipt"`
	PlanID   model.PlanID `json:"plan_id"`
	KeyID    string       `json:"key_id"`
}

// VerifyInput carries the gateway's checkout callback fields.
type VerifyInput struct {
	OrderID   string
	PaymentID string
	Signature string
	PlanID    model.PlanID
	AccountID string
}

func (s *BillingService) configured() bool {
	return s.gateway != nil && s.gateway.Configured()
}

// ListPlans returns the purchasable plans and whether checkout is available.
func (s *BillingService) ListPlans() PlanListing {
	listing := PlanListing{
		Plans:          s.plans.Paid(),
		PaymentEnabled: s.configured(),
		Currency:       s.currency,
	}
	if listing.PaymentEnabled {
		listing.KeyID = s.gateway.KeyID()
	}
	return listing
}

// CreateOrder opens a gateway order for a paid plan.
func (s *BillingService) CreateOrder(ctx context.Context, accountID string, planID model.PlanID) (*OrderHandle, error) {
	plan, ok := s.plans.Purchasable(planID)
	if !ok {
		return nil, ErrInvalidPlan
	}
	if !s.configured() {
		s.metrics.IncOrderCreated(metrics.StatusRejected)
		return nil, ErrPaymentUnavailable
	}

	if _, err := s.store.GetAccountByID(ctx, accountID); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, newError(KindNotFound, "account not found", err)
		}
		return nil, internal("failed to load account", err)
	}

	order, err := s.gateway.CreateOrder(ctx, razorpay.OrderRequest{
		Amount:   plan.AmountMinorUnits(),
		Currency: s.currency,
		Receipt:  "rcpt_" + ulid.Make().String(),
		Notes: map[string]string{
			noteAccountID: accountID,
			notePlanID:    string(plan.ID),
		},
	})
	if err != nil {
		s.metrics.IncOrderCreated(metrics.StatusFailed)
		s.logger.Error("failed to create order",
			slog.String("account_id", accountID),
			slog.String("plan_id", string(plan.ID)),
			slog.String("error", err.Error()),
		)
		return nil, newError(KindPaymentGateway, ErrPaymentGateway.Message, err)
	}

	s.metrics.IncOrderCreated(metrics.StatusSuccess)
	s.logger.Info("order created",
		slog.String("account_id", accountID),
		slog.String("plan_id", string(plan.ID)),
		slog.String("order_id", order.ID),
		slog.Int64("amount", order.Amount),
	)

	return &OrderHandle{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Receipt:  order.Receipt,
		PlanID:   plan.ID,
		KeyID:    s.gateway.KeyID(),
	}, nil
}

// VerifyAndApplyPayment checks the checkout signature and order binding,
// then resets the account to the plan's grant. Each order applies once; a
// replay returns ErrPaymentApplied. Any failure leaves the account unchanged.
func (s *BillingService) VerifyAndApplyPayment(ctx context.Context, input VerifyInput) (*model.AccountView, error) {
	if !s.configured() {
		return nil, ErrPaymentUnavailable
	}
	if input.OrderID == "" || input.PaymentID == "" || input.Signature == "" || input.PlanID == "" {
		return nil, invalidInput("razorpay_order_id, razorpay_payment_id, razorpay_signature and plan_id are required")
	}

	if err := s.gateway.VerifyPaymentSignature(input.OrderID, input.PaymentID, input.Signature); err != nil {
		s.metrics.IncPaymentVerified(metrics.StatusRejected)
		s.logger.Warn("payment_signature_rejected",
			slog.String("account_id", input.AccountID),
			slog.String("order_id", input.OrderID),
			slog.String("payment_id", input.PaymentID),
		)
		return nil, newError(KindInvalidSignature, ErrInvalidSignature.Message, err)
	}

	plan, ok := s.plans.Purchasable(input.PlanID)
	if !ok {
		s.metrics.IncPaymentVerified(metrics.StatusRejected)
		return nil, ErrInvalidPlan
	}

	order, err := s.gateway.FetchOrder(ctx, input.OrderID)
	if err != nil {
		s.metrics.IncPaymentVerified(metrics.StatusFailed)
		return nil, newError(KindPaymentGateway, ErrPaymentGateway.Message, err)
	}
	if order.Notes[noteAccountID] != input.AccountID ||
		order.Notes[notePlanID] != string(plan.ID) ||
		order.Amount != plan.AmountMinorUnits() {
		s.metrics.IncPaymentVerified(metrics.StatusRejected)
		s.logger.Warn("payment_order_mismatch",
			slog.String("account_id", input.AccountID),
			slog.String("order_id", input.OrderID),
			slog.String("plan_id", string(plan.ID)),
		)
		return nil, ErrOrderMismatch
	}

	account, err := s.store.ApplyPayment(context.WithoutCancel(ctx), &model.Payment{
		OrderID:   input.OrderID,
		PaymentID: input.PaymentID,
		AccountID: input.AccountID,
		PlanID:    plan.ID,
		Credits:   plan.Credits,
		AppliedAt: time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrPaymentApplied) {
			s.metrics.IncPaymentVerified(metrics.StatusRejected)
			s.logger.Warn("payment_replayed",
				slog.String("account_id", input.AccountID),
				slog.String("order_id", input.OrderID),
				slog.String("payment_id", input.PaymentID),
			)
			return nil, ErrPaymentApplied
		}
		s.metrics.IncPaymentVerified(metrics.StatusFailed)
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, newError(KindNotFound, "account not found", err)
		}
		return nil, internal("failed to apply plan", err)
	}

	s.metrics.IncPaymentVerified(metrics.StatusSuccess)
	s.logger.Info("plan upgraded",
		slog.String("account_id", account.ID),
		slog.String("plan_id", string(plan.ID)),
		slog.String("order_id", input.OrderID),
		slog.String("payment_id", input.PaymentID),
		slog.Int64("credit_balance", account.CreditBalance),
	)

	view := account.View()
	return &view, nil
}
