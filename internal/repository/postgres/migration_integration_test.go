//go:build integration

package postgres

import (
	"context"
	"io/fs"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell/inkwell/migrations"
)

// ============================================================================
// Migration Integration Tests
// ============================================================================

func TestIntegrationMigration_TableSchemas(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	expected := map[string][]string{
		"accounts": {
			"id", "name", "email", "password_hash", "plan",
			"credit_balance", "credit_ceiling", "created_at", "updated_at",
		},
		"access_tokens": {
			"id", "account_id", "token_hash", "token_prefix", "scopes",
			"name", "expires_at", "revoked_at", "last_used_at", "created_at",
		},
		"generations": {
			"id", "account_id", "template_slug", "template_name", "field_keys",
			"field_values", "output_text", "output_length", "created_at",
		},
		"payments": {
			"order_id", "payment_id", "account_id", "plan_id", "credits", "applied_at",
		},
	}

	for table, columns := range expected {
		t.Run(table, func(t *testing.T) {
			for _, col := range columns {
				exists, err := columnExists(ctx, pool, table, col)
				if err != nil {
					t.Fatalf("columnExists failed: %v", err)
				}
				if !exists {
					t.Errorf("Column %q should exist in %s table", col, table)
				}
			}
		})
	}
}

func TestIntegrationMigration_Constraints(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	insertAccount := `
		INSERT INTO accounts (id, name, email, password_hash, plan, credit_balance, credit_ceiling)
		VALUES ($1, 'Test', $2, 'hash', $3, 10, 10)
	`

	if _, err := pool.Exec(ctx, insertAccount, "acct-gold", "gold@example.com", "gold"); err == nil {
		t.Error("Expected check constraint violation for unknown plan")
	}

	if _, err := pool.Exec(ctx, insertAccount, "acct-1", "dup@example.com", "free"); err != nil {
		t.Fatalf("insert account: %v", err)
	}
	if _, err := pool.Exec(ctx, insertAccount, "acct-2", "dup@example.com", "free"); err == nil {
		t.Error("Expected unique violation for duplicate email")
	}

	if _, err := pool.Exec(ctx, `
		INSERT INTO generations (id, account_id, template_slug, template_name, field_keys, field_values, output_text, output_length)
		VALUES ('gen-1', 'acct-1', 'blog', 'Blog', '{topic}', '{}', 'out', 3)
	`); err == nil {
		t.Error("Expected check constraint violation for mismatched field arrays")
	}

	if _, err := pool.Exec(ctx, `
		INSERT INTO generations (id, account_id, template_slug, template_name, output_text, output_length)
		VALUES ('gen-2', 'acct-1', 'blog', 'Blog', 'out', -1)
	`); err == nil {
		t.Error("Expected check constraint violation for negative output_length")
	}

	if _, err := pool.Exec(ctx, `
		INSERT INTO access_tokens (id, account_id, token_hash, token_prefix)
		VALUES ('tok-1', 'missing', 'hash', 'prefix')
	`); err == nil {
		t.Error("Expected foreign key violation for unknown account")
	}

	insertPayment := `
		INSERT INTO payments (order_id, payment_id, account_id, plan_id, credits)
		VALUES ($1, 'pay_1', 'acct-1', 'premium', $2)
	`
	if _, err := pool.Exec(ctx, insertPayment, "order_1", 100); err != nil {
		t.Fatalf("insert payment: %v", err)
	}
	if _, err := pool.Exec(ctx, insertPayment, "order_1", 100); err == nil {
		t.Error("Expected primary key violation for a reused order id")
	}
	if _, err := pool.Exec(ctx, insertPayment, "order_2", 0); err == nil {
		t.Error("Expected check constraint violation for zero credits")
	}
}

func TestIntegrationMigration_RollbackGenerations(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	downSQL, err := fs.ReadFile(migrations.FS, "000003_generations.down.sql")
	if err != nil {
		t.Fatalf("read down migration: %v", err)
	}
	if _, err := pool.Exec(ctx, string(downSQL)); err != nil {
		t.Fatalf("apply down migration: %v", err)
	}

	exists, err := tableExists(ctx, pool, "generations")
	if err != nil {
		t.Fatalf("tableExists failed: %v", err)
	}
	if exists {
		t.Error("generations table should not exist after rollback")
	}

	// Re-apply up migration for cleanup
	upSQL, err := fs.ReadFile(migrations.FS, "000003_generations.up.sql")
	if err != nil {
		t.Fatalf("read up migration: %v", err)
	}
	if _, err := pool.Exec(ctx, string(upSQL)); err != nil {
		t.Fatalf("reapply up migration: %v", err)
	}
}

func TestIntegrationMigration_UpFilesAreRerunnable(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	names, err := fs.Glob(migrations.FS, "*.up.sql")
	if err != nil {
		t.Fatalf("list migrations: %v", err)
	}
	for _, name := range names {
		body, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if _, err := pool.Exec(ctx, string(body)); err != nil {
			t.Errorf("second apply of %s should not fail: %v", name, err)
		}
	}
}

// ============================================================================
// Helper Functions
// ============================================================================

func tableExists(ctx context.Context, pool *pgxpool.Pool, tableName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`, tableName).Scan(&exists)
	return exists, err
}

func columnExists(ctx context.Context, pool *pgxpool.Pool, tableName, columnName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.columns
			WHERE table_schema = 'public'
			AND table_name = $1
			AND column_name = $2
		)
	`, tableName, columnName).Scan(&exists)
	return exists, err
}
