package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nitro-repo/nitro-repo/pkg/catalog"
)

// TokenPrefix identifies nitro-repo personal access tokens on sight.
const TokenPrefix = "nitro_"

// tokenRandomBytes is the size of the random payload before prefixing.
const tokenRandomBytes = 32

// ErrInvalidTokenFormat is returned when a bearer credential doesn't look
// like one of our tokens at all; callers should fall through to other auth
// schemes rather than treat it as a revoked/expired token.
var ErrInvalidTokenFormat = errors.New("identity: not a recognizable token")

// ErrTokenRejected covers every reason a well-formed token is refused:
// unknown hash, inactive, or past expiry. It deliberately carries no detail
// so a timing or enumeration attacker can't distinguish the cases.
var ErrTokenRejected = errors.New("identity: token rejected")

// TokenIssuer mints and validates personal access tokens against the
// catalog: a generate/hash/prefix scheme with full create, validate, and
// revoke operations.
type TokenIssuer struct {
	catalog *catalog.Catalog
}

func NewTokenIssuer(c *catalog.Catalog) *TokenIssuer {
	return &TokenIssuer{catalog: c}
}

// Issue creates a new token row and returns the plaintext once. The
// plaintext is never persisted; only its SHA-256 hash is stored.
func (ti *TokenIssuer) Issue(ctx context.Context, userID int64, description string, scopes []catalog.Scope, repoScopes []catalog.TokenRepositoryScope, expiresAt *time.Time) (plaintext string, token *catalog.AuthToken, err error) {
	plaintext, hash, prefix, err := generateToken()
	if err != nil {
		return "", nil, err
	}

	token = &catalog.AuthToken{
		UserID:           userID,
		Description:      description,
		TokenHash:        hash,
		TokenPrefix:      prefix,
		Active:           true,
		ExpiresAt:        expiresAt,
		Scopes:           scopes,
		RepositoryScopes: repoScopes,
	}
	if err := ti.catalog.CreateAuthToken(ctx, token); err != nil {
		return "", nil, err
	}
	return plaintext, token, nil
}

// Validate looks up a bearer credential by its hash and enforces activity
// and expiry. On success it records the token as used.
func (ti *TokenIssuer) Validate(ctx context.Context, presented string) (*catalog.AuthToken, error) {
	if !strings.HasPrefix(presented, TokenPrefix) {
		return nil, ErrInvalidTokenFormat
	}
	if _, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(presented, TokenPrefix)); err != nil {
		return nil, ErrInvalidTokenFormat
	}

	hash := hashToken(presented)
	token, err := ti.catalog.GetAuthTokenByHash(ctx, hash)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, ErrTokenRejected
	}
	if err != nil {
		return nil, err
	}
	if !token.Active {
		return nil, ErrTokenRejected
	}
	if token.ExpiresAt != nil && token.ExpiresAt.Before(time.Now()) {
		return nil, ErrTokenRejected
	}

	_ = ti.catalog.TouchAuthToken(ctx, token.ID)
	return token, nil
}

func (ti *TokenIssuer) Revoke(ctx context.Context, userID, tokenID int64) error {
	return ti.catalog.RevokeAuthToken(ctx, userID, tokenID)
}

func generateToken() (plaintext, hash, prefix string, err error) {
	raw := make([]byte, tokenRandomBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", "", fmt.Errorf("identity: generating token: %w", err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(raw)
	plaintext = TokenPrefix + encoded
	hash = hashToken(plaintext)

	prefix = TokenPrefix
	if len(encoded) >= 8 {
		prefix = TokenPrefix + encoded[:8]
	}
	return plaintext, hash, prefix, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
