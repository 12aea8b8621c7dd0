package handler

import (
	"net/http"
	"testing"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/handler/dto"
	"github.com/inkwell/inkwell/internal/model"
)

func TestAccountHandler_RegisterAndLogin(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/register", map[string]string{
		"name": "Grace", "email": "grace@example.com", "password": "hopper1906",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var session dto.SessionResponse
	decodeBody(t, rec, &session)
	if session.Account.Plan != model.PlanFree || session.Account.CreditBalance != 10000 {
		t.Errorf("unexpected account: %+v", session.Account)
	}
	if _, err := auth.ParseAccessToken(session.Token.Token); err != nil {
		t.Errorf("issued token is malformed: %v", err)
	}

	rec = f.do(t, http.MethodPost, "/auth/register", map[string]string{
		"name": "Other", "email": "GRACE@example.com", "password": "hopper1906",
	}, nil)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "EMAIL_TAKEN" {
		t.Errorf("duplicate: expected 409 EMAIL_TAKEN, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "grace@example.com", "password": "hopper1906",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("login: expected status 200, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "grace@example.com", "password": "wrong-password",
	}, nil)
	if rec.Code != http.StatusUnauthorized || errorCode(t, rec) != "INVALID_CREDENTIALS" {
		t.Errorf("bad password: expected 401 INVALID_CREDENTIALS, got %d", rec.Code)
	}
}

func TestAccountHandler_RegisterValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing name", map[string]string{"email": "a@example.com", "password": "long enough"}},
		{"bad email", map[string]string{"name": "A", "email": "not-an-email", "password": "long enough"}},
		{"short password", map[string]string{"name": "A", "email": "a@example.com", "password": "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/auth/register", tt.body, nil)
			if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "INVALID_INPUT" {
				t.Errorf("expected 400 INVALID_INPUT, got %d", rec.Code)
			}
		})
	}
}

func TestAccountHandler_Profile(t *testing.T) {
	f := newFixture(t)
	account := f.seedAccount(t, 2500)
	authCtx := asAccount(account)

	rec := f.do(t, http.MethodGet, "/users/me", nil, authCtx)
	var me model.AccountView
	decodeBody(t, rec, &me)
	if me.ID != account.ID || me.CreditBalance != 2500 {
		t.Errorf("unexpected view: %+v", me)
	}

	rec = f.do(t, http.MethodGet, "/users/usage", nil, authCtx)
	var usage model.Usage
	decodeBody(t, rec, &usage)
	if usage.PercentageUsed != 0 || usage.Plan != model.PlanFree {
		t.Errorf("unexpected usage: %+v", usage)
	}

	rec = f.do(t, http.MethodPut, "/users/profile", map[string]string{"name": "Renamed"}, authCtx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated model.AccountView
	decodeBody(t, rec, &updated)
	if updated.Name != "Renamed" || updated.Email != account.Email {
		t.Errorf("unexpected update: %+v", updated)
	}

	rec = f.do(t, http.MethodPut, "/users/profile", map[string]string{}, authCtx)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty update: expected status 400, got %d", rec.Code)
	}

	if rec := f.do(t, http.MethodGet, "/users/me", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: expected status 401, got %d", rec.Code)
	}
}

func TestAccountHandler_Logout(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/register", map[string]string{
		"name": "Linus", "email": "linus@example.com", "password": "penguins!",
	}, nil)
	var session dto.SessionResponse
	decodeBody(t, rec, &session)

	authCtx := &model.AuthContext{
		TokenID:   session.Token.ID,
		AccountID: session.Account.ID,
		CacheKey:  auth.QuickHash(session.Token.Token),
	}
	if rec := f.do(t, http.MethodPost, "/auth/logout", nil, authCtx); rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if len(f.authCache.deleted) != 1 {
		t.Errorf("cache deletions = %v", f.authCache.deleted)
	}
	if rec := f.do(t, http.MethodPost, "/auth/logout", nil, authCtx); rec.Code != http.StatusNotFound {
		t.Errorf("second logout: expected status 404, got %d", rec.Code)
	}
}
