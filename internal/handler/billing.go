package handler

import (
	"log/slog"
	"net/http"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/handler/dto"
	"github.com/inkwell/inkwell/internal/service"
)

// BillingHandler handles plan listing and checkout.
type BillingHandler struct {
	billing  *service.BillingService
	accounts *service.AccountService
	resp     *Responder
	logger   *slog.Logger
}

// NewBillingHandler creates a new BillingHandler. accounts is used to drop
// cached auth contexts after a plan change and may be nil.
func NewBillingHandler(billing *service.BillingService, accounts *service.AccountService, resp *Responder) *BillingHandler {
	return &BillingHandler{
		billing:  billing,
		accounts: accounts,
		resp:     resp,
		logger:   resp.Logger(),
	}
}

// Plans handles GET /api/v1/plans.
func (h *BillingHandler) Plans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.billing.ListPlans())
}

// CreateOrder handles POST /api/v1/billing/order.
func (h *BillingHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	accountID := auth.AccountIDFromContext(r.Context())
	if accountID == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req dto.CreateOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.billing.CreateOrder(r.Context(), accountID, req.PlanID)
	if err != nil {
		h.resp.ServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// Verify handles POST /api/v1/billing/verify.
func (h *BillingHandler) Verify(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req dto.VerifyPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.billing.VerifyAndApplyPayment(r.Context(), service.VerifyInput{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
		PlanID:    req.PlanID,
		AccountID: authCtx.AccountID,
	})
	if err != nil {
		h.resp.ServiceError(w, r, err)
		return
	}

	// The cached context still carries the old plan's rate limit tier.
	if h.accounts != nil {
		h.accounts.ForgetAuth(r.Context(), authCtx)
	}

	writeJSON(w, http.StatusOK, dto.VerifyPaymentResponse{
		Message: "Payment verified, plan upgraded",
		Account: *account,
	})
}
