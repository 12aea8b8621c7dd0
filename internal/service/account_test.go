package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/model"
	"github.com/inkwell/inkwell/internal/repository/memory"
)

func newAccountFixture() (*AccountService, *memory.Store, *fakeAuthCache) {
	store := memory.New()
	cache := &fakeAuthCache{}
	svc := NewAccountService(store, testPlans(), cache, AccountConfig{TokenTTL: time.Hour, TokenEnv: auth.EnvTest}, discardLogger())
	return svc, store, cache
}

func TestRegister(t *testing.T) {
	svc, store, _ := newAccountFixture()

	session, err := svc.Register(context.Background(), RegisterInput{
		Name:     "  Ada Lovelace ",
		Email:    " Ada@Example.COM ",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	acct := session.Account
	if acct.Name != "Ada Lovelace" || acct.Email != "ada@example.com" {
		t.Errorf("profile not normalized: %+v", acct)
	}
	if acct.Plan != model.PlanFree || acct.CreditBalance != 10000 || acct.CreditCeiling != 10000 {
		t.Errorf("unexpected free grant: %+v", acct)
	}

	parsed, err := auth.ParseAccessToken(session.Token.Token)
	if err != nil {
		t.Fatalf("issued token is malformed: %v", err)
	}
	if parsed.Env != auth.EnvTest || parsed.Prefix != session.Token.Prefix {
		t.Errorf("unexpected token parts: %+v", parsed)
	}
	if session.Token.ExpiresAt == nil {
		t.Error("token should carry an expiry")
	}

	tokens, err := store.GetAccessTokensByPrefix(context.Background(), session.Token.Prefix)
	if err != nil || len(tokens) != 1 {
		t.Fatalf("stored tokens = %v, %v", tokens, err)
	}
	if ok, _ := auth.VerifyPassword(session.Token.Token, tokens[0].TokenHash); !ok {
		t.Error("stored hash does not verify against the issued token")
	}
}

func TestRegister_Errors(t *testing.T) {
	svc, _, _ := newAccountFixture()

	if _, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@example.com", Password: "short"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("short password: expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Register(context.Background(), RegisterInput{Name: " ", Email: "a@example.com", Password: "long enough"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank name: expected ErrInvalidInput, got %v", err)
	}

	if _, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@example.com", Password: "long enough"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := svc.Register(context.Background(), RegisterInput{Name: "B", Email: "A@EXAMPLE.com", Password: "long enough"}); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate email: expected ErrEmailTaken, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _, _ := newAccountFixture()

	if _, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@example.com", Password: "long enough"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	session, err := svc.Login(context.Background(), "A@example.com", "long enough")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if session.Account.Email != "a@example.com" || session.Token.Token == "" {
		t.Errorf("unexpected session: %+v", session)
	}

	if _, err := svc.Login(context.Background(), "a@example.com", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "nobody@example.com", "long enough"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	svc, store, cache := newAccountFixture()

	session, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@example.com", Password: "long enough"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	authCtx := &model.AuthContext{
		TokenID:   session.Token.ID,
		AccountID: session.Account.ID,
		CacheKey:  auth.QuickHash(session.Token.Token),
	}
	if err := svc.Logout(context.Background(), authCtx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	tokens, _ := store.GetAccessTokensByPrefix(context.Background(), session.Token.Prefix)
	if len(tokens) != 0 {
		t.Error("revoked token is still returned for lookup")
	}
	if len(cache.deleted) != 1 || cache.deleted[0] != authCtx.CacheKey {
		t.Errorf("cache deletions = %v", cache.deleted)
	}

	if err := svc.Logout(context.Background(), authCtx); !errors.Is(err, ErrNotFound) {
		t.Errorf("second logout: expected ErrNotFound, got %v", err)
	}
}

func TestMeAndUsage(t *testing.T) {
	svc, store, _ := newAccountFixture()
	account := seedAccount(t, store, 2500)

	me, err := svc.Me(context.Background(), account.ID)
	if err != nil || me.ID != account.ID {
		t.Fatalf("Me = %+v, %v", me, err)
	}

	if _, err := store.ApplyPlanGrant(context.Background(), account.ID, model.PlanFree, 10000); err != nil {
		t.Fatalf("ApplyPlanGrant failed: %v", err)
	}
	usage, err := svc.Usage(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("Usage failed: %v", err)
	}
	if usage.PercentageUsed != 0 || usage.CreditBalance != 10000 {
		t.Errorf("unexpected usage: %+v", usage)
	}

	if _, err := svc.Me(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, store, _ := newAccountFixture()
	first := seedAccount(t, store, 10)
	second := seedAccount(t, store, 10)

	name := "Renamed"
	email := " NEW@example.com"
	view, err := svc.UpdateProfile(context.Background(), first.ID, ProfileInput{Name: &name, Email: &email})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if view.Name != "Renamed" || view.Email != "new@example.com" {
		t.Errorf("unexpected view: %+v", view)
	}

	taken := "new@example.com"
	if _, err := svc.UpdateProfile(context.Background(), second.ID, ProfileInput{Email: &taken}); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}

	short := "short"
	if _, err := svc.UpdateProfile(context.Background(), first.ID, ProfileInput{Password: &short}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for short password, got %v", err)
	}
	if _, err := svc.UpdateProfile(context.Background(), first.ID, ProfileInput{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty update, got %v", err)
	}

	password := "brand new secret"
	if _, err := svc.UpdateProfile(context.Background(), first.ID, ProfileInput{Password: &password}); err != nil {
		t.Fatalf("password change failed: %v", err)
	}
	if _, err := svc.Login(context.Background(), "new@example.com", password); err != nil {
		t.Errorf("login with new password failed: %v", err)
	}
}

func TestIssueToken_Scopes(t *testing.T) {
	svc, store, _ := newAccountFixture()
	account := seedAccount(t, store, 10)

	if _, err := svc.IssueToken(context.Background(), account.ID, "ci", []string{"write"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown scope, got %v", err)
	}

	token, err := svc.IssueToken(context.Background(), account.ID, "ci", nil)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	if len(token.Scopes) != len(model.DefaultScopes) {
		t.Errorf("scopes = %v, want defaults", token.Scopes)
	}
}
