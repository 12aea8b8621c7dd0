package dto

import "github.com/inkwell/inkwell/internal/model"

// CreateOrderRequest is the body of POST /api/v1/billing/order.
type CreateOrderRequest struct {
	PlanID model.PlanID `json:"plan_id" validate:"required"`
}

// VerifyPaymentRequest is the checkout callback forwarded by the client.
// Field names follow the gateway's checkout response.
type VerifyPaymentRequest struct {
	OrderID   string       `json:"razorpay_order_id" validate:"required,max=64"`
	PaymentID string       `json:"razorpay_payment_id" validate:"required,max=64"`
	Signature string       `json:"razorpay_signature" validate:"required,max=256"`
	PlanID    model.PlanID `json:"plan_id" validate:"required"`
}

// VerifyPaymentResponse is returned after a plan grant is applied.
type VerifyPaymentResponse struct {
	Message string            `json:"message"`
	Account model.AccountView `json:"account"`
}
