// Package repository defines the persistence contract for accounts, access
// tokens and generation records. Implementations live in the postgres, mongo
// and memory subpackages.
package repository

import (
	"context"
	"errors"

	"github.com/inkwell/inkwell/internal/model"
)

// Common errors returned by every Store implementation.
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrEmailExists        = errors.New("email already exists")
	ErrTokenNotFound      = errors.New("access token not found")
	ErrGenerationNotFound = errors.New("generation not found")
	ErrPaymentApplied     = errors.New("payment already applied")
)

// Store is the full persistence surface used by the services.
type Store interface {
	AccountStore
	TokenStore
	GenerationStore

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close(ctx context.Context) error
}

// AccountStore persists accounts and their credit ledger.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	UpdateAccountProfile(ctx context.Context, id string, update ProfileUpdate) (*model.Account, error)

	// DebitCredits subtracts record.OutputLength from the owning account and
	// appends record, as one unit. The subtraction is relative to the stored
	// balance; the result may be negative. Returns the updated account.
	DebitCredits(ctx context.Context, record *model.GenerationRecord) (*model.Account, error)

	// ApplyPlanGrant sets plan and resets balance and ceiling to credits.
	ApplyPlanGrant(ctx context.Context, accountID string, plan model.PlanID, credits int64) (*model.Account, error)

	// ApplyPayment records payment and resets its account to the plan's
	// grant, as one unit. An order already applied returns ErrPaymentApplied
	// and leaves the account unchanged.
	ApplyPayment(ctx context.Context, payment *model.Payment) (*model.Account, error)
}

// ProfileUpdate carries the optional profile changes. Nil fields are kept.
type ProfileUpdate struct {
	Name         *string
	Email        *string
	PasswordHash *string
}

// IsEmpty reports whether the update changes nothing.
func (u ProfileUpdate) IsEmpty() bool {
	return u.Name == nil && u.Email == nil && u.PasswordHash == nil
}

// TokenStore persists hashed access tokens.
type TokenStore interface {
	CreateAccessToken(ctx context.Context, token *model.AccessToken) error
	// GetAccessTokensByPrefix returns unrevoked tokens with the given prefix.
	GetAccessTokensByPrefix(ctx context.Context, prefix string) ([]*model.AccessToken, error)
	RevokeAccessToken(ctx context.Context, id string) error
	UpdateAccessTokenLastUsed(ctx context.Context, id string) error
}

// GenerationStore reads the append-only generation log.
type GenerationStore interface {
	// ListGenerations returns one page of an account's records, newest first,
	// and the account's total record count.
	ListGenerations(ctx context.Context, accountID string, page Page) ([]*model.GenerationRecord, int64, error)
	// GetGeneration returns ErrGenerationNotFound for records owned by others.
	GetGeneration(ctx context.Context, accountID, id string) (*model.GenerationRecord, error)
}

// Page selects a window of results.
type Page struct {
	Offset int
	Limit  int
}
