package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServer_ShutdownOrder(t *testing.T) {
	srv := New(http.NotFoundHandler(), Options{ReadTimeout: time.Second, WriteTimeout: time.Second, ShutdownTimeout: time.Second}, quietLogger())

	var order []string
	for _, name := range []string{"store", "cache", "gateway"} {
		name := name
		srv.OnShutdown(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}
	boom := errors.New("flush failed")
	srv.OnShutdown("failing", func(context.Context) error {
		order = append(order, "failing")
		return boom
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := srv.Run(ctx)
	if !errors.Is(err, boom) {
		t.Errorf("expected shutdown error to surface, got %v", err)
	}
	if err != nil && err.Error() != "failing: flush failed" {
		t.Errorf("shutdown error should name the component, got %q", err)
	}

	want := []string{"failing", "gateway", "cache", "store"}
	if len(order) != len(want) {
		t.Fatalf("shutdown order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("shutdown order = %v, want %v", order, want)
		}
	}
}
