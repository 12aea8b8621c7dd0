// Package storetest holds behavioural tests shared by every repository.Store
// implementation.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/inkwell/inkwell/internal/model"
	"github.com/inkwell/inkwell/internal/repository"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) repository.Store

// Run executes the contract suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("AccountLifecycle", func(t *testing.T) { testAccountLifecycle(t, newStore(t)) })
	t.Run("DuplicateEmail", func(t *testing.T) { testDuplicateEmail(t, newStore(t)) })
	t.Run("ProfileUpdate", func(t *testing.T) { testProfileUpdate(t, newStore(t)) })
	t.Run("DebitAllowsOvershoot", func(t *testing.T) { testDebitOvershoot(t, newStore(t)) })
	t.Run("ConcurrentDebits", func(t *testing.T) { testConcurrentDebits(t, newStore(t)) })
	t.Run("PlanGrantResets", func(t *testing.T) { testPlanGrant(t, newStore(t)) })
	t.Run("PaymentAppliesOnce", func(t *testing.T) { testPaymentAppliesOnce(t, newStore(t)) })
	t.Run("GenerationHistory", func(t *testing.T) { testGenerationHistory(t, newStore(t)) })
	t.Run("AccessTokens", func(t *testing.T) { testAccessTokens(t, newStore(t)) })
}

// NewAccount returns an account with a fresh ID and the given balance.
func NewAccount(balance int64) *model.Account {
	now := time.Now().UTC().Truncate(time.Millisecond)
	id := ulid.Make().String()
	return &model.Account{
		ID:            id,
		Name:          "Test " + id[len(id)-4:],
		Email:         fmt.Sprintf("%s@example.com", id),
		PasswordHash:  "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		Plan:          model.PlanFree,
		CreditBalance: balance,
		CreditCeiling: balance,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// NewRecord returns a generation record for accountID with output of n runes.
func NewRecord(accountID string, n int, createdAt time.Time) *model.GenerationRecord {
	out := make([]rune, n)
	for i := range out {
		out[i] = 'x'
	}
	fields := model.NewFields(
		model.Field{Key: "topic", Value: "databases"},
		model.Field{Key: "audience", Value: "engineers"},
	)
	return model.NewGenerationRecord(ulid.Make().String(), accountID, "blog-title", "Blog Title", fields, string(out), createdAt)
}

func mustCreate(t *testing.T, s repository.Store, a *model.Account) {
	t.Helper()
	if err := s.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
}

func testAccountLifecycle(t *testing.T, s repository.Store) {
	ctx := context.Background()
	a := NewAccount(10000)
	mustCreate(t, s, a)

	byID, err := s.GetAccountByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAccountByID failed: %v", err)
	}
	if byID.Email != a.Email || byID.CreditBalance != 10000 || byID.Plan != model.PlanFree {
		t.Errorf("unexpected account: %+v", byID)
	}
	if byID.PasswordHash != a.PasswordHash {
		t.Error("password hash not persisted")
	}

	byEmail, err := s.GetAccountByEmail(ctx, a.Email)
	if err != nil || byEmail.ID != a.ID {
		t.Errorf("GetAccountByEmail = %+v, %v", byEmail, err)
	}

	if _, err := s.GetAccountByID(ctx, "missing"); !errors.Is(err, repository.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
	if _, err := s.GetAccountByEmail(ctx, "nobody@example.com"); !errors.Is(err, repository.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func testDuplicateEmail(t *testing.T, s repository.Store) {
	a := NewAccount(1)
	mustCreate(t, s, a)

	b := NewAccount(1)
	b.Email = a.Email
	if err := s.CreateAccount(context.Background(), b); !errors.Is(err, repository.ErrEmailExists) {
		t.Errorf("expected ErrEmailExists, got %v", err)
	}
}

func testProfileUpdate(t *testing.T, s repository.Store) {
	ctx := context.Background()
	a := NewAccount(5)
	other := NewAccount(5)
	mustCreate(t, s, a)
	mustCreate(t, s, other)

	name := "Renamed"
	updated, err := s.UpdateAccountProfile(ctx, a.ID, repository.ProfileUpdate{Name: &name})
	if err != nil {
		t.Fatalf("UpdateAccountProfile failed: %v", err)
	}
	if updated.Name != name || updated.Email != a.Email || updated.CreditBalance != 5 {
		t.Errorf("unexpected update result: %+v", updated)
	}

	taken := other.Email
	if _, err := s.UpdateAccountProfile(ctx, a.ID, repository.ProfileUpdate{Email: &taken}); !errors.Is(err, repository.ErrEmailExists) {
		t.Errorf("expected ErrEmailExists, got %v", err)
	}

	fresh := "fresh-" + a.Email
	if _, err := s.UpdateAccountProfile(ctx, a.ID, repository.ProfileUpdate{Email: &fresh}); err != nil {
		t.Fatalf("email change failed: %v", err)
	}
	if got, err := s.GetAccountByEmail(ctx, fresh); err != nil || got.ID != a.ID {
		t.Errorf("lookup by new email = %+v, %v", got, err)
	}

	if _, err := s.UpdateAccountProfile(ctx, "missing", repository.ProfileUpdate{Name: &name}); !errors.Is(err, repository.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func testDebitOvershoot(t *testing.T, s repository.Store) {
	ctx := context.Background()
	a := NewAccount(10)
	mustCreate(t, s, a)

	rec := NewRecord(a.ID, 15, time.Now().UTC())
	updated, err := s.DebitCredits(ctx, rec)
	if err != nil {
		t.Fatalf("DebitCredits failed: %v", err)
	}
	if updated.CreditBalance != -5 {
		t.Errorf("balance = %d, want -5", updated.CreditBalance)
	}
	if updated.CreditCeiling != 10 {
		t.Errorf("ceiling changed to %d", updated.CreditCeiling)
	}

	got, err := s.GetGeneration(ctx, a.ID, rec.ID)
	if err != nil {
		t.Fatalf("GetGeneration failed: %v", err)
	}
	if got.OutputLength != 15 || got.OutputLength != model.CharacterCount(got.OutputText) {
		t.Errorf("record length mismatch: %+v", got)
	}
	keys, _ := got.InputFields.Columns()
	if len(keys) != 2 || keys[0] != "topic" || keys[1] != "audience" {
		t.Errorf("field order not preserved: %v", keys)
	}

	if _, err := s.DebitCredits(ctx, NewRecord("missing", 1, time.Now())); !errors.Is(err, repository.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func testConcurrentDebits(t *testing.T, s repository.Store) {
	ctx := context.Background()
	a := NewAccount(1000)
	mustCreate(t, s, a)

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.DebitCredits(ctx, NewRecord(a.ID, 7, time.Now().UTC())); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent DebitCredits failed: %v", err)
	}

	got, err := s.GetAccountByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAccountByID failed: %v", err)
	}
	if want := int64(1000 - workers*7); got.CreditBalance != want {
		t.Errorf("balance = %d, want %d (lost update)", got.CreditBalance, want)
	}

	_, total, err := s.ListGenerations(ctx, a.ID, repository.Page{Limit: 100})
	if err != nil {
		t.Fatalf("ListGenerations failed: %v", err)
	}
	if total != workers {
		t.Errorf("records = %d, want %d", total, workers)
	}
}

func testPlanGrant(t *testing.T, s repository.Store) {
	ctx := context.Background()

	tests := []struct {
		name    string
		balance int64
	}{
		{"below grant", 3},
		{"above grant", 9_000_000},
		{"negative", -42},
	}

	for _, tt := range tests {
		a := NewAccount(tt.balance)
		mustCreate(t, s, a)

		updated, err := s.ApplyPlanGrant(ctx, a.ID, model.PlanPremium, 2_000_000)
		if err != nil {
			t.Fatalf("%s: ApplyPlanGrant failed: %v", tt.name, err)
		}
		if updated.Plan != model.PlanPremium || updated.CreditBalance != 2_000_000 || updated.CreditCeiling != 2_000_000 {
			t.Errorf("%s: grant not a hard reset: %+v", tt.name, updated)
		}
	}

	if _, err := s.ApplyPlanGrant(ctx, "missing", model.PlanPremium, 1); !errors.Is(err, repository.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func testPaymentAppliesOnce(t *testing.T, s repository.Store) {
	ctx := context.Background()
	a := NewAccount(7)
	mustCreate(t, s, a)

	payment := &model.Payment{
		OrderID:   "order_" + a.ID,
		PaymentID: "pay_" + a.ID,
		AccountID: a.ID,
		PlanID:    model.PlanPremium,
		Credits:   2_000_000,
		AppliedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	updated, err := s.ApplyPayment(ctx, payment)
	if err != nil {
		t.Fatalf("ApplyPayment failed: %v", err)
	}
	if updated.Plan != model.PlanPremium || updated.CreditBalance != 2_000_000 || updated.CreditCeiling != 2_000_000 {
		t.Errorf("payment not a hard reset: %+v", updated)
	}

	if _, err := s.DebitCredits(ctx, NewRecord(a.ID, 100, time.Now().UTC())); err != nil {
		t.Fatalf("DebitCredits failed: %v", err)
	}

	replay := *payment
	replay.PaymentID = "pay_other"
	if _, err := s.ApplyPayment(ctx, &replay); !errors.Is(err, repository.ErrPaymentApplied) {
		t.Fatalf("expected ErrPaymentApplied, got %v", err)
	}
	got, err := s.GetAccountByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAccountByID failed: %v", err)
	}
	if got.CreditBalance != 2_000_000-100 {
		t.Errorf("replay changed balance to %d, want %d", got.CreditBalance, 2_000_000-100)
	}

	missing := *payment
	missing.OrderID = "order_missing_" + a.ID
	missing.AccountID = "missing"
	if _, err := s.ApplyPayment(ctx, &missing); !errors.Is(err, repository.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func testGenerationHistory(t *testing.T, s repository.Store) {
	ctx := context.Background()
	a := NewAccount(1000)
	other := NewAccount(1000)
	mustCreate(t, s, a)
	mustCreate(t, s, other)

	base := time.Now().UTC().Truncate(time.Millisecond)
	var ids []string
	for i := 0; i < 5; i++ {
		rec := NewRecord(a.ID, i+1, base.Add(time.Duration(i)*time.Second))
		if _, err := s.DebitCredits(ctx, rec); err != nil {
			t.Fatalf("DebitCredits failed: %v", err)
		}
		ids = append(ids, rec.ID)
	}
	foreign := NewRecord(other.ID, 1, base)
	if _, err := s.DebitCredits(ctx, foreign); err != nil {
		t.Fatalf("DebitCredits failed: %v", err)
	}

	page, total, err := s.ListGenerations(ctx, a.ID, repository.Page{Offset: 0, Limit: 2})
	if err != nil {
		t.Fatalf("ListGenerations failed: %v", err)
	}
	if total != 5 || len(page) != 2 {
		t.Fatalf("total=%d len=%d, want 5 and 2", total, len(page))
	}
	if page[0].ID != ids[4] || page[1].ID != ids[3] {
		t.Errorf("expected newest first, got %s, %s", page[0].ID, page[1].ID)
	}

	tail, _, err := s.ListGenerations(ctx, a.ID, repository.Page{Offset: 4, Limit: 2})
	if err != nil || len(tail) != 1 || tail[0].ID != ids[0] {
		t.Errorf("last page = %v, %v", tail, err)
	}

	if _, err := s.GetGeneration(ctx, a.ID, foreign.ID); !errors.Is(err, repository.ErrGenerationNotFound) {
		t.Errorf("foreign record should be not found, got %v", err)
	}

	acct, err := s.GetAccountByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAccountByID failed: %v", err)
	}
	if acct.CreditBalance != 1000-15 {
		t.Errorf("ledger mismatch: balance %d, want %d", acct.CreditBalance, 1000-15)
	}
}

func testAccessTokens(t *testing.T, s repository.Store) {
	ctx := context.Background()
	a := NewAccount(1)
	mustCreate(t, s, a)

	expires := time.Now().UTC().Add(time.Hour).Truncate(time.Millisecond)
	tok := &model.AccessToken{
		ID:          ulid.Make().String(),
		AccountID:   a.ID,
		TokenHash:   "$argon2id$hash",
		TokenPrefix: "abc123",
		Scopes:      []string{model.ScopeContentRead, model.ScopeBilling},
		Name:        "login",
		ExpiresAt:   &expires,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := s.CreateAccessToken(ctx, tok); err != nil {
		t.Fatalf("CreateAccessToken failed: %v", err)
	}

	found, err := s.GetAccessTokensByPrefix(ctx, "abc123")
	if err != nil {
		t.Fatalf("GetAccessTokensByPrefix failed: %v", err)
	}
	if len(found) != 1 || found[0].ID != tok.ID || len(found[0].Scopes) != 2 {
		t.Fatalf("unexpected tokens: %+v", found)
	}
	if found[0].ExpiresAt == nil || !found[0].ExpiresAt.Equal(expires) {
		t.Errorf("expiry not persisted: %v", found[0].ExpiresAt)
	}

	if err := s.UpdateAccessTokenLastUsed(ctx, tok.ID); err != nil {
		t.Errorf("UpdateAccessTokenLastUsed failed: %v", err)
	}

	if err := s.RevokeAccessToken(ctx, tok.ID); err != nil {
		t.Fatalf("RevokeAccessToken failed: %v", err)
	}
	if err := s.RevokeAccessToken(ctx, tok.ID); !errors.Is(err, repository.ErrTokenNotFound) {
		t.Errorf("second revoke should be not found, got %v", err)
	}

	found, err = s.GetAccessTokensByPrefix(ctx, "abc123")
	if err != nil || len(found) != 0 {
		t.Errorf("revoked token still returned: %v, %v", found, err)
	}
}
