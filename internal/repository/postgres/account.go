package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/inkwell/inkwell/internal/model"
	"github.com/inkwell/inkwell/internal/repository"
)

const accountColumns = `id, name, email, password_hash, plan, credit_balance, credit_ceiling, created_at, updated_at`

// CreateAccount inserts a new account.
func (s *Store) CreateAccount(ctx context.Context, a *model.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		a.ID,
		a.Name,
		a.Email,
		a.PasswordHash,
		string(a.Plan),
		a.CreditBalance,
		a.CreditCeiling,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrEmailExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccountByID retrieves an account by ID.
func (s *Store) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(s.pool.QueryRow(ctx, query, id))
}

// GetAccountByEmail retrieves an account by email address.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return scanAccount(s.pool.QueryRow(ctx, query, email))
}

// UpdateAccountProfile applies the non-nil fields of update.
func (s *Store) UpdateAccountProfile(ctx context.Context, id string, update repository.ProfileUpdate) (*model.Account, error) {
	query := `
		UPDATE accounts
		SET name          = COALESCE($2, name),
		    email         = COALESCE($3, email),
		    password_hash = COALESCE($4, password_hash),
		    updated_at    = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns

	a, err := scanAccount(s.pool.QueryRow(ctx, query, id, update.Name, update.Email, update.PasswordHash))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrEmailExists
		}
		return nil, err
	}
	return a, nil
}

// DebitCredits subtracts the record's length and inserts the record in one
// transaction.
func (s *Store) DebitCredits(ctx context.Context, rec *model.GenerationRecord) (*model.Account, error) {
	var account *model.Account

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		debit := `
			UPDATE accounts
			SET credit_balance = credit_balance - $2,
			    updated_at     = NOW()
			WHERE id = $1
			RETURNING ` + accountColumns

		a, err := scanAccount(tx.QueryRow(ctx, debit, rec.AccountID, rec.OutputLength))
		if err != nil {
			return err
		}

		if err := insertGeneration(ctx, tx, rec); err != nil {
			return err
		}

		account = a
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to debit credits: %w", err)
	}

	return account, nil
}

// ApplyPlanGrant sets the plan and resets balance and ceiling.
func (s *Store) ApplyPlanGrant(ctx context.Context, accountID string, plan model.PlanID, credits int64) (*model.Account, error) {
	query := `
		UPDATE accounts
		SET plan           = $2,
		    credit_balance = $3,
		    credit_ceiling = $3,
		    updated_at     = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns

	return scanAccount(s.pool.QueryRow(ctx, query, accountID, string(plan), credits))
}

// ApplyPayment resets the account and inserts the payment in one
// transaction. A conflicting order id rolls the reset back.
func (s *Store) ApplyPayment(ctx context.Context, p *model.Payment) (*model.Account, error) {
	var account *model.Account

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		grant := `
			UPDATE accounts
			SET plan           = $2,
			    credit_balance = $3,
			    credit_ceiling = $3,
			    updated_at     = NOW()
			WHERE id = $1
			RETURNING ` + accountColumns

		a, err := scanAccount(tx.QueryRow(ctx, grant, p.AccountID, string(p.PlanID), p.Credits))
		if err != nil {
			return err
		}

		insert := `
			INSERT INTO payments (order_id, payment_id, account_id, plan_id, credits, applied_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (order_id) DO NOTHING
		`
		tag, err := tx.Exec(ctx, insert, p.OrderID, p.PaymentID, p.AccountID, string(p.PlanID), p.Credits, p.AppliedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrPaymentApplied
		}

		account = a
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) || errors.Is(err, repository.ErrPaymentApplied) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to apply payment: %w", err)
	}

	return account, nil
}

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	var plan string

	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Email,
		&a.PasswordHash,
		&plan,
		&a.CreditBalance,
		&a.CreditCeiling,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrAccountNotFound
		}
		if isUniqueViolation(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	a.Plan = model.PlanID(plan)
	return &a, nil
}
