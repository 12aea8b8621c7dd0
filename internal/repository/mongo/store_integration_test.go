//go:build integration

package mongo

import (
	"context"
	"testing"

	"github.com/inkwell/inkwell/internal/repository"
	"github.com/inkwell/inkwell/internal/repository/storetest"
	"github.com/inkwell/inkwell/internal/testutil"
)

func TestIntegrationStoreContract(t *testing.T) {
	uri := testutil.RequireEnv(t, "MONGODB_URI")
	ctx := context.Background()

	storetest.Run(t, func(t *testing.T) repository.Store {
		s, err := Connect(ctx, uri, "inkwell_test")
		if err != nil {
			t.Fatalf("Connect failed: %v", err)
		}
		t.Cleanup(func() { _ = s.Close(ctx) })
		return s
	})
}
