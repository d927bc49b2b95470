package protocol

import (
	"net/http"

	"github.com/nitro-repo/nitro-repo/pkg/httputil"
)

// Kind is one of the client-facing error kinds.
type Kind int

const (
	KindAuthenticationRequired Kind = iota
	KindForbidden
	KindNotFound
	KindConflict
	KindBadRequest
	KindUnsupportedMethod
	KindUpstreamUnavailable
	KindInternal
)

func (k Kind) status() int {
	switch k {
	case KindAuthenticationRequired:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnsupportedMethod:
		return http.StatusMethodNotAllowed
	case KindUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is the typed result every handler returns internally before it is
// translated to a wire response, per the "handlers return a typed result"
// propagation policy.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func NewError(kind Kind, message string) *Error { return &Error{Kind: kind, Message: message} }

func WrapError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WriteError renders a protocol Error onto the wire. Internal faults never
// leak their cause to the client, only to the server log (the caller is
// expected to have logged e.Cause already).
func WriteError(w http.ResponseWriter, err *Error) {
	if err.Kind == KindAuthenticationRequired {
		w.Header().Set("WWW-Authenticate", `Basic realm="nitro-repo"`)
	}
	status := err.Kind.status()
	if status == http.StatusInternalServerError {
		httputil.WriteErrorMessage(w, status, "internal error")
		return
	}
	httputil.WriteErrorMessage(w, status, err.Message)
}
