// Package bootstrap builds the process-level dependencies shared by the API
// server and the admin CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/inkwell/inkwell/internal/config"
	"github.com/inkwell/inkwell/internal/repository"
	"github.com/inkwell/inkwell/internal/repository/memory"
	"github.com/inkwell/inkwell/internal/repository/mongo"
	"github.com/inkwell/inkwell/internal/repository/postgres"
	"github.com/inkwell/inkwell/migrations"
)

// ErrUnknownDriver is returned for a STORE_DRIVER no backend serves.
var ErrUnknownDriver = errors.New("unknown store driver")

// NewLogger builds the slog logger described by level and format.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}

	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// OpenStore connects the backend selected by cfg.StoreDriver.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		store, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.New(SanitizeError(err, cfg.DatabaseURL))
		}
		return store, nil
	case config.StoreDriverMongo:
		store, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, errors.New(SanitizeError(err, cfg.MongoURI))
		}
		return store, nil
	case config.StoreDriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.StoreDriver)
	}
}

// StoreURL returns the redacted connection string of the configured store.
func StoreURL(cfg *config.Config) string {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		return RedactURL(cfg.DatabaseURL)
	case config.StoreDriverMongo:
		return RedactURL(cfg.MongoURI)
	default:
		return ""
	}
}

// Migrate brings the store's schema up to date and returns what it applied.
// Postgres runs the embedded SQL migrations; Mongo ensures its indexes.
func Migrate(ctx context.Context, store repository.Store, logger *slog.Logger) ([]string, error) {
	switch s := store.(type) {
	case *postgres.Store:
		return postgres.Migrate(ctx, s.Pool(), migrations.FS, logger)
	case *mongo.Store:
		if err := s.Migrate(ctx); err != nil {
			return nil, err
		}
		return []string{"indexes"}, nil
	default:
		return nil, nil
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s&]+`)

// RedactURL strips the password from a connection URL.
func RedactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

// SanitizeError renders err with every secret replaced by its redacted form.
func SanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := RedactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
