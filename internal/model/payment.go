package model

import "time"

// Payment is a verified checkout applied to an account. OrderID is unique:
// an order grants its plan at most once.
type Payment struct {
	OrderID   string
	PaymentID string
	AccountID string
	PlanID    PlanID
	Credits   int64
	AppliedAt time.Time
}
