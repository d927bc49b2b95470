package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/nitro-repo/nitro-repo/pkg/contextkeys"
	"github.com/nitro-repo/nitro-repo/pkg/observability"
)

func newRequestID() string {
	raw := make([]byte, 8)
	if _, err := rand.Read(raw); err != nil {
		return "unavailable"
	}
	return hex.EncodeToString(raw)
}

func contextWithRequestID(ctx context.Context, id string) context.Context {
	return contextkeys.WithRequestID(ctx, id)
}

// requestLogger returns a logger tagged with the request's id, falling
// back to the server's base logger untagged if the id was never attached
// (only possible when a handler is invoked outside the request-id
// middleware, e.g. directly from a test).
func (s *Server) requestLogger(ctx context.Context) *observability.Logger {
	if s.log == nil {
		return observability.NewLogger(observability.InfoLevel, nil)
	}
	if id := contextkeys.GetRequestID(ctx); id != "" {
		return s.log.WithField("request_id", id)
	}
	return s.log
}
