package identity

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// Scheme identifies how a credential was carried on the request, per the
// multi-scheme header contract.
type Scheme string

const (
	SchemeBearer  Scheme = "bearer"
	SchemeBasic   Scheme = "basic"
	SchemeSession Scheme = "session"
	SchemeCookie  Scheme = "cookie"
	SchemeUnknown Scheme = "unknown"
)

// SessionCookieName is the cookie carrying a browser session id.
const SessionCookieName = "nitro_session"

// Credential is the opaque (scheme, value) pair extracted from a request,
// before any validation against the catalog or session store happens.
type Credential struct {
	Scheme   Scheme
	Token    string // Bearer token or Basic-decoded password
	Username string // set only for Basic
	Raw      string // the header/cookie value verbatim, for unknown schemes
}

// ExtractCredential inspects Authorization and cookie headers in priority
// order: Authorization wins over the session cookie when both are present,
// since an explicit header is a deliberate choice by the caller.
func ExtractCredential(r *http.Request) (Credential, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		return parseAuthorizationHeader(header)
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if id, err := decodeCookieValue(cookie.Value); err == nil {
			return Credential{Scheme: SchemeSession, Token: id}, true
		}
	}
	return Credential{}, false
}

func parseAuthorizationHeader(header string) (Credential, bool) {
	scheme, value, found := strings.Cut(header, " ")
	if !found {
		return Credential{Scheme: SchemeUnknown, Raw: header}, true
	}

	switch strings.ToLower(scheme) {
	case "bearer":
		return Credential{Scheme: SchemeBearer, Token: value}, true
	case "basic":
		decoded, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return Credential{Scheme: SchemeUnknown, Raw: header}, true
		}
		username, password, ok := strings.Cut(string(decoded), ":")
		if !ok {
			return Credential{Scheme: SchemeUnknown, Raw: header}, true
		}
		return Credential{Scheme: SchemeBasic, Username: username, Token: password}, true
	case "session":
		return Credential{Scheme: SchemeSession, Token: value}, true
	default:
		return Credential{Scheme: SchemeUnknown, Raw: header}, true
	}
}

// BasicChallenge is the WWW-Authenticate value sent on an anonymous read of
// a private repository, per the 401 requirement.
func BasicChallenge(realm string) string {
	return `Basic realm="` + realm + `"`
}
