package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// TokenVerifier verifies a raw bearer token.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Gate rejects requests that do not carry a valid identity token and hands
// the rest to the wrapped handler with their Identity attached.
type Gate struct {
	v      TokenVerifier
	l      log.Logger
	parser *jwt.Parser
}

// NewGate returns a Gate that verifies tokens with v.
func NewGate(v TokenVerifier, l log.Logger) *Gate {
	if l == nil {
		l = log.NewNopLogger()
	}
	return &Gate{v: v, l: l, parser: jwt.NewParser()}
}

// Wrap returns next guarded by the gate. Its signature matches
// mux.MiddlewareFunc.
func (g *Gate) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			g.l.Log("level", "warn", "msg", "authorization header didn't start with Bearer", "path", r.URL.Path)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		// Reject anything that is not a JWT before touching the provider.
		if _, _, err := g.parser.ParseUnverified(token, jwt.MapClaims{}); err != nil {
			g.l.Log("level", "warn", "msg", "token couldn't be parsed", "err", err.Error())
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		id, err := g.v.Verify(r.Context(), token)
		if errors.Is(err, ErrBootstrap) {
			g.l.Log("level", "error", "msg", "could not verify token", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if err != nil {
			g.l.Log("level", "warn", "msg", "couldn't verify token", "err", err.Error())
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func bearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
