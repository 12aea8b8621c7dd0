// Package model defines domain entities for the application.
package model

import "time"

// Account is a registered user plus billing and quota state.
type Account struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"` // Never serialize
	Plan          PlanID    `json:"plan"`
	CreditBalance int64     `json:"credit_balance"`
	CreditCeiling int64     `json:"credit_ceiling"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasCredits reports whether the account may start a generation.
// Only a strictly positive balance qualifies.
func (a *Account) HasCredits() bool {
	return a.CreditBalance > 0
}

// PercentageUsed derives the share of the current grant already consumed.
// It is never stored. A non-positive ceiling yields 0.
func (a *Account) PercentageUsed() float64 {
	if a.CreditCeiling <= 0 {
		return 0
	}
	return float64(a.CreditCeiling-a.CreditBalance) / float64(a.CreditCeiling) * 100
}

// AccountView is the client-facing account representation (no secrets).
type AccountView struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Plan          PlanID    `json:"plan"`
	CreditBalance int64     `json:"credit_balance"`
	CreditCeiling int64     `json:"credit_ceiling"`
	CreatedAt     time.Time `json:"created_at"`
}

// View converts an Account into its client-facing form.
func (a *Account) View() AccountView {
	return AccountView{
		ID:            a.ID,
		Name:          a.Name,
		Email:         a.Email,
		Plan:          a.Plan,
		CreditBalance: a.CreditBalance,
		CreditCeiling: a.CreditCeiling,
		CreatedAt:     a.CreatedAt,
	}
}

// Usage is the derived quota summary for an account.
type Usage struct {
	CreditBalance  int64   `json:"credit_balance"`
	CreditCeiling  int64   `json:"credit_ceiling"`
	Plan           PlanID  `json:"plan"`
	PercentageUsed float64 `json:"percentage_used"`
}

// Usage returns the account's quota summary.
func (a *Account) Usage() Usage {
	return Usage{
		CreditBalance:  a.CreditBalance,
		CreditCeiling:  a.CreditCeiling,
		Plan:           a.Plan,
		PercentageUsed: a.PercentageUsed(),
	}
}
