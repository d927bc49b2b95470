package identity

import (
	"context"
	"errors"
	"net/http"

	"github.com/nitro-repo/nitro-repo/pkg/catalog"
)

// ErrUnauthenticated is returned when no credential was presented.
var ErrUnauthenticated = errors.New("identity: no credential presented")

// ErrInvalidCredential is returned when a credential was presented but
// failed validation: bad password, rejected token, or unknown/expired
// session. Callers must not distinguish the underlying reason to the
// client.
var ErrInvalidCredential = errors.New("identity: invalid credential")

// Authenticator turns a request's credential into a Principal. It checks
// the one credential ExtractCredential picks (the Authorization header
// before the session cookie) by its scheme: bearer token, session or HTTP
// basic. A failed check does not fall through to another scheme.
type Authenticator struct {
	catalog  *catalog.Catalog
	tokens   *TokenIssuer
	sessions *SessionStore
}

func NewAuthenticator(c *catalog.Catalog, tokens *TokenIssuer, sessions *SessionStore) *Authenticator {
	return &Authenticator{catalog: c, tokens: tokens, sessions: sessions}
}

// Authenticate resolves the request's credential to a Principal. A missing
// credential is reported as ErrUnauthenticated so callers can decide
// whether anonymous access is acceptable for the requested action.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) (Principal, error) {
	cred, ok := ExtractCredential(r)
	if !ok {
		return Principal{}, ErrUnauthenticated
	}

	switch cred.Scheme {
	case SchemeBearer:
		token, err := a.tokens.Validate(ctx, cred.Token)
		if err != nil {
			return Principal{}, ErrInvalidCredential
		}
		user, err := a.catalog.GetUserByID(ctx, token.UserID)
		if err != nil {
			return Principal{}, ErrInvalidCredential
		}
		return Principal{User: user, Token: token}, nil

	case SchemeSession:
		sess, err := a.sessions.Get(ctx, cred.Token)
		if err != nil {
			return Principal{}, ErrInvalidCredential
		}
		user, err := a.catalog.GetUserByID(ctx, sess.UserID)
		if err != nil {
			return Principal{}, ErrInvalidCredential
		}
		return Principal{User: user}, nil

	case SchemeBasic:
		// A Basic password may itself be a personal access token, which
		// registries like npm commonly send this way.
		if a.tokens != nil {
			if token, err := a.tokens.Validate(ctx, cred.Token); err == nil {
				user, err := a.catalog.GetUserByID(ctx, token.UserID)
				if err == nil {
					return Principal{User: user, Token: token}, nil
				}
			}
		}
		user, err := a.catalog.GetUserByUsernameOrEmail(ctx, cred.Username)
		if err != nil {
			return Principal{}, ErrInvalidCredential
		}
		ok, err := VerifyPassword(cred.Token, user.PasswordHash)
		if err != nil || !ok {
			return Principal{}, ErrInvalidCredential
		}
		return Principal{User: user}, nil

	default:
		return Principal{}, ErrInvalidCredential
	}
}
