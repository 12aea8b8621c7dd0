package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/model"
	"github.com/inkwell/inkwell/internal/repository"
)

const minPasswordLength = 8

// AccountStore is the persistence surface AccountService needs.
type AccountStore interface {
	repository.AccountStore
	repository.TokenStore
}

// AuthCache drops cached auth contexts when a token is revoked.
type AuthCache interface {
	DeleteAuthContext(ctx context.Context, cacheKey string) error
}

// AccountConfig holds token issuance settings.
type AccountConfig struct {
	TokenTTL time.Duration // zero means tokens do not expire
	TokenEnv string
}

// AccountService handles registration, login and profile management.
type AccountService struct {
	store  AccountStore
	plans  model.PlanCatalog
	cache  AuthCache
	cfg    AccountConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewAccountService creates an AccountService. cache may be nil.
func NewAccountService(store AccountStore, plans model.PlanCatalog, cache AuthCache, cfg AccountConfig, logger *slog.Logger) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		store:  store,
		plans:  plans,
		cache:  cache,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// RegisterInput defines input for creating an account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Session is an account plus a freshly issued access token.
type Session struct {
	Account model.AccountView `json:"account"`
	Token   model.IssuedToken `json:"token"`
}

// Register creates an account on the free plan and issues its first token.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)
	if name == "" || email == "" {
		return nil, invalidInput("name and email are required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, invalidInput("password must be at least %d characters", minPasswordLength)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, internal("failed to hash password", err)
	}

	free := s.plans.Free()
	now := s.now().UTC()
	account := &model.Account{
		ID:            ulid.Make().String(),
		Name:          name,
		Email:         email,
		PasswordHash:  hash,
		Plan:          free.ID,
		CreditBalance: free.Credits,
		CreditCeiling: free.Credits,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailTaken
		}
		return nil, internal("failed to create account", err)
	}

	token, err := s.IssueToken(ctx, account.ID, "session", model.DefaultScopes)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account registered",
		slog.String("account_id", account.ID),
		slog.String("plan", string(account.Plan)),
	)
	return &Session{Account: account.View(), Token: *token}, nil
}

// Login checks credentials and issues a new token. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *AccountService) Login(ctx context.Context, email, password string) (*Session, error) {
	account, err := s.store.GetAccountByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			auth.BurnVerify(password)
			return nil, ErrInvalidCredentials
		}
		return nil, internal("failed to load account", err)
	}

	ok, err := auth.VerifyPassword(password, account.PasswordHash)
	if err != nil || !ok {
		s.logger.Warn("login failed",
			slog.String("account_id", account.ID),
			slog.String("reason", "invalid_password"),
		)
		return nil, ErrInvalidCredentials
	}

	token, err := s.IssueToken(ctx, account.ID, "session", model.DefaultScopes)
	if err != nil {
		return nil, err
	}
	return &Session{Account: account.View(), Token: *token}, nil
}

// Logout revokes the caller's token and drops its cached auth context.
func (s *AccountService) Logout(ctx context.Context, authCtx *model.AuthContext) error {
	if err := s.store.RevokeAccessToken(ctx, authCtx.TokenID); err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return newError(KindNotFound, "token not found", err)
		}
		return internal("failed to revoke token", err)
	}
	s.forgetAuth(ctx, authCtx.CacheKey)
	return nil
}

// Me returns the caller's account.
func (s *AccountService) Me(ctx context.Context, accountID string) (*model.AccountView, error) {
	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	view := account.View()
	return &view, nil
}

// Usage returns the caller's quota summary.
func (s *AccountService) Usage(ctx context.Context, accountID string) (*model.Usage, error) {
	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	usage := account.Usage()
	return &usage, nil
}

// ProfileInput carries optional profile changes. Nil fields are kept.
type ProfileInput struct {
	Name     *string
	Email    *string
	Password *string
}

// UpdateProfile changes name, email or password.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID string, input ProfileInput) (*model.AccountView, error) {
	var update repository.ProfileUpdate

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, invalidInput("name must not be empty")
		}
		update.Name = &name
	}
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if email == "" {
			return nil, invalidInput("email must not be empty")
		}
		update.Email = &email
	}
	if input.Password != nil {
		if len(*input.Password) < minPasswordLength {
			return nil, invalidInput("password must be at least %d characters", minPasswordLength)
		}
		hash, err := auth.HashPassword(*input.Password)
		if err != nil {
			return nil, internal("failed to hash password", err)
		}
		update.PasswordHash = &hash
	}
	if update.IsEmpty() {
		return nil, invalidInput("no profile changes supplied")
	}

	account, err := s.store.UpdateAccountProfile(ctx, accountID, update)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAccountNotFound):
			return nil, newError(KindNotFound, "account not found", err)
		case errors.Is(err, repository.ErrEmailExists):
			return nil, ErrEmailTaken
		}
		return nil, internal("failed to update profile", err)
	}

	view := account.View()
	return &view, nil
}

// IssueToken mints and stores a new access token for accountID.
func (s *AccountService) IssueToken(ctx context.Context, accountID, name string, scopes []string) (*model.IssuedToken, error) {
	for _, scope := range scopes {
		if !model.IsValidScope(scope) {
			return nil, invalidInput("invalid scope: %s", scope)
		}
	}
	if len(scopes) == 0 {
		scopes = model.DefaultScopes
	}

	generated, err := auth.GenerateAccessToken(s.cfg.TokenEnv)
	if err != nil {
		return nil, internal("failed to generate token", err)
	}

	now := s.now().UTC()
	var expiresAt *time.Time
	if s.cfg.TokenTTL > 0 {
		t := now.Add(s.cfg.TokenTTL)
		expiresAt = &t
	}

	token := &model.AccessToken{
		ID:          ulid.Make().String(),
		AccountID:   accountID,
		TokenHash:   generated.Hash,
		TokenPrefix: generated.Prefix,
		Scopes:      append([]string(nil), scopes...),
		Name:        name,
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
	}
	if err := s.store.CreateAccessToken(ctx, token); err != nil {
		return nil, internal("failed to store token", err)
	}

	return &model.IssuedToken{
		ID:        token.ID,
		Token:     generated.Plaintext,
		Prefix:    token.TokenPrefix,
		Scopes:    token.Scopes,
		ExpiresAt: token.ExpiresAt,
	}, nil
}

// ForgetAuth drops a cached auth context so the next request reloads the
// account's plan.
func (s *AccountService) ForgetAuth(ctx context.Context, authCtx *model.AuthContext) {
	if authCtx != nil {
		s.forgetAuth(ctx, authCtx.CacheKey)
	}
}

func (s *AccountService) forgetAuth(ctx context.Context, cacheKey string) {
	if s.cache == nil || cacheKey == "" {
		return
	}
	if err := s.cache.DeleteAuthContext(ctx, cacheKey); err != nil {
		s.logger.Warn("failed to drop cached auth context", slog.String("error", err.Error()))
	}
}

func (s *AccountService) getAccount(ctx context.Context, accountID string) (*model.Account, error) {
	account, err := s.store.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, newError(KindNotFound, "account not found", err)
		}
		return nil, internal("failed to load account", err)
	}
	return account, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
