// Package memory implements repository.Store with mutex-guarded maps.
// It backs unit tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/inkwell/inkwell/internal/model"
	"github.com/inkwell/inkwell/internal/repository"
)

// Store is an in-process repository.Store.
type Store struct {
	mu          sync.Mutex
	accounts    map[string]*model.Account
	emails      map[string]string // email -> account id
	tokens      map[string]*model.AccessToken
	generations map[string][]*model.GenerationRecord // account id -> records in insert order
	payments    map[string]*model.Payment            // order id -> payment

	now func() time.Time
}

var _ repository.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		accounts:    make(map[string]*model.Account),
		emails:      make(map[string]string),
		tokens:      make(map[string]*model.AccessToken),
		generations: make(map[string][]*model.GenerationRecord),
		payments:    make(map[string]*model.Payment),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateAccount stores a copy of account.
func (s *Store) CreateAccount(_ context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.emails[account.Email]; ok {
		return repository.ErrEmailExists
	}
	a := *account
	s.accounts[a.ID] = &a
	s.emails[a.Email] = a.ID
	return nil
}

// GetAccountByID returns a copy of the account.
func (s *Store) GetAccountByID(_ context.Context, id string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	out := *a
	return &out, nil
}

// GetAccountByEmail returns a copy of the account registered with email.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	s.mu.Lock()
	id, ok := s.emails[email]
	s.mu.Unlock()
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return s.GetAccountByID(ctx, id)
}

// UpdateAccountProfile applies the non-nil fields of update.
func (s *Store) UpdateAccountProfile(_ context.Context, id string, update repository.ProfileUpdate) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	if update.Email != nil && *update.Email != a.Email {
		if _, taken := s.emails[*update.Email]; taken {
			return nil, repository.ErrEmailExists
		}
		delete(s.emails, a.Email)
		a.Email = *update.Email
		s.emails[a.Email] = a.ID
	}
	if update.Name != nil {
		a.Name = *update.Name
	}
	if update.PasswordHash != nil {
		a.PasswordHash = *update.PasswordHash
	}
	a.UpdatedAt = s.now()

	out := *a
	return &out, nil
}

// DebitCredits subtracts and records under a single lock.
func (s *Store) DebitCredits(_ context.Context, record *model.GenerationRecord) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[record.AccountID]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	a.CreditBalance -= record.OutputLength
	a.UpdatedAt = s.now()

	rec := *record
	rec.InputFields = model.NewFields(record.InputFields.Entries()...)
	s.generations[a.ID] = append(s.generations[a.ID], &rec)

	out := *a
	return &out, nil
}

// ApplyPlanGrant resets the account to the plan's grant.
func (s *Store) ApplyPlanGrant(_ context.Context, accountID string, plan model.PlanID, credits int64) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	a.Plan = plan
	a.CreditBalance = credits
	a.CreditCeiling = credits
	a.UpdatedAt = s.now()

	out := *a
	return &out, nil
}

// ApplyPayment records the payment and resets the account under one lock.
func (s *Store) ApplyPayment(_ context.Context, payment *model.Payment) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[payment.AccountID]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	if _, applied := s.payments[payment.OrderID]; applied {
		return nil, repository.ErrPaymentApplied
	}
	p := *payment
	s.payments[p.OrderID] = &p

	a.Plan = payment.PlanID
	a.CreditBalance = payment.Credits
	a.CreditCeiling = payment.Credits
	a.UpdatedAt = s.now()

	out := *a
	return &out, nil
}

// CreateAccessToken stores a copy of token.
func (s *Store) CreateAccessToken(_ context.Context, token *model.AccessToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := *token
	t.Scopes = append([]string(nil), token.Scopes...)
	s.tokens[t.ID] = &t
	return nil
}

// GetAccessTokensByPrefix returns unrevoked tokens sharing prefix.
func (s *Store) GetAccessTokensByPrefix(_ context.Context, prefix string) ([]*model.AccessToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.AccessToken
	for _, t := range s.tokens {
		if t.TokenPrefix == prefix && !t.IsRevoked() {
			c := *t
			c.Scopes = append([]string(nil), t.Scopes...)
			out = append(out, &c)
		}
	}
	return out, nil
}

// RevokeAccessToken marks the token revoked.
func (s *Store) RevokeAccessToken(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[id]
	if !ok || t.IsRevoked() {
		return repository.ErrTokenNotFound
	}
	now := s.now()
	t.RevokedAt = &now
	return nil
}

// UpdateAccessTokenLastUsed stamps the token's last use.
func (s *Store) UpdateAccessTokenLastUsed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tokens[id]; ok {
		now := s.now()
		t.LastUsedAt = &now
	}
	return nil
}

// ListGenerations returns a newest-first page.
func (s *Store) ListGenerations(_ context.Context, accountID string, page repository.Page) ([]*model.GenerationRecord, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.generations[accountID]
	sorted := make([]*model.GenerationRecord, len(all))
	for i, r := range all {
		sorted[len(all)-1-i] = r
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	total := int64(len(sorted))
	if page.Offset >= len(sorted) {
		return []*model.GenerationRecord{}, total, nil
	}
	end := len(sorted)
	if page.Limit > 0 && page.Offset+page.Limit < end {
		end = page.Offset + page.Limit
	}

	out := make([]*model.GenerationRecord, 0, end-page.Offset)
	for _, r := range sorted[page.Offset:end] {
		c := *r
		out = append(out, &c)
	}
	return out, total, nil
}

// GetGeneration returns the record if accountID owns it.
func (s *Store) GetGeneration(_ context.Context, accountID, id string) (*model.GenerationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.generations[accountID] {
		if r.ID == id {
			c := *r
			return &c, nil
		}
	}
	return nil, repository.ErrGenerationNotFound
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close(context.Context) error { return nil }

// GenerationCount returns the number of records stored for accountID.
func (s *Store) GenerationCount(accountID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.generations[accountID])
}
