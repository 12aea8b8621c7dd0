package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
)

// Token format: iw_{env}_{prefix}_{secret}
// Example: iw_live_7a9x3k_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b
const (
	TokenPrefixLen = 6  // hex of 3 random bytes
	TokenSecretLen = 32 // hex of 16 random bytes
)

// Environment markers embedded in a token.
const (
	EnvLive = "live"
	EnvTest = "test"
)

// ErrInvalidTokenFormat indicates a bearer token is not an Inkwell token.
var ErrInvalidTokenFormat = errors.New("invalid access token format")

var tokenFormat = regexp.MustCompile(`^iw_(live|test)_([a-f0-9]{6})_([a-f0-9]{32})$`)

// GeneratedToken holds a freshly minted access token.
type GeneratedToken struct {
	Plaintext string // returned to the caller once
	Hash      string // Argon2id hash for storage
	Prefix    string // lookup prefix
}

// GenerateAccessToken mints a token for env. Unknown envs fall back to live.
func GenerateAccessToken(env string) (*GeneratedToken, error) {
	if env != EnvTest {
		env = EnvLive
	}

	prefix, err := randomHex(TokenPrefixLen / 2)
	if err != nil {
		return nil, fmt.Errorf("generate prefix: %w", err)
	}
	secret, err := randomHex(TokenSecretLen / 2)
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	plaintext := "iw_" + env + "_" + prefix + "_" + secret
	hash, err := HashPassword(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash token: %w", err)
	}

	return &GeneratedToken{Plaintext: plaintext, Hash: hash, Prefix: prefix}, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ParsedToken is the decomposed form of a plaintext token.
type ParsedToken struct {
	Env    string
	Prefix string
	Secret string
}

// ParseAccessToken splits a plaintext token into its parts.
func ParseAccessToken(token string) (*ParsedToken, error) {
	m := tokenFormat.FindStringSubmatch(token)
	if m == nil {
		return nil, ErrInvalidTokenFormat
	}
	return &ParsedToken{Env: m[1], Prefix: m[2], Secret: m[3]}, nil
}

// ValidTokenFormat reports whether token has the expected shape.
func ValidTokenFormat(token string) bool {
	return tokenFormat.MatchString(token)
}
