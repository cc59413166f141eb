/*
auth.go - Actor authentication

PURPOSE:
  Resolves the caller of every /api request from a bearer token and hands
  it to the handlers as a generic.Actor. The engine never reads session or
  cookie state; the actor in the request context is the only identity.

TOKEN:
  HS256 JWT issued by the identity service that owns login. Claims:
    user_id      caller's user id (required)
    role         employee | manager | hr | admin (required)
    employee_id  linked employee record (optional for pure admins)
  Standard exp/iat/jti claims are honored when present.

SEE ALSO:
  - server.go: where the middleware is mounted
  - generic/types.go: Actor and roles
*/
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/warp/hr-engine/generic"
)

var (
	ErrTokenMissing = errors.New("missing bearer token")
	ErrTokenInvalid = errors.New("invalid or expired token")
)

// Claims are the JWT claims carried by access tokens.
type Claims struct {
	UserID     string `json:"user_id"`
	Role       string `json:"role"`
	EmployeeID string `json:"employee_id,omitempty"`
	jwtv5.RegisteredClaims
}

// Authenticator verifies and issues actor tokens.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// IssueToken signs a token for actor valid for ttl. The engine does not
// log anyone in; this serves provisioning scripts and tests.
func (a *Authenticator) IssueToken(actor generic.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:     string(actor.UserID),
		Role:       string(actor.Role),
		EmployeeID: string(actor.EmployeeID),
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(ttl)),
			Issuer:    "hr-engine",
		},
	}
	return jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse verifies a token and returns the actor it names.
func (a *Authenticator) Parse(token string) (generic.Actor, error) {
	parsed, err := jwtv5.ParseWithClaims(token, &Claims{}, func(t *jwtv5.Token) (any, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return a.secret, nil
	})
	if err != nil {
		return generic.Actor{}, ErrTokenInvalid
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == "" || !generic.Role(claims.Role).Valid() {
		return generic.Actor{}, ErrTokenInvalid
	}
	return generic.Actor{
		UserID:     generic.UserID(claims.UserID),
		Role:       generic.Role(claims.Role),
		EmployeeID: generic.EmployeeID(claims.EmployeeID),
	}, nil
}

// Middleware rejects requests without a valid bearer token with 401 and
// stores the actor in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			writeError(w, http.StatusUnauthorized, "Authentication required", ErrTokenMissing)
			return
		}
		actor, err := a.Parse(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Authentication required", err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

type actorKey struct{}

// WithActor returns ctx carrying actor.
func WithActor(ctx context.Context, actor generic.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored by Middleware.
func ActorFrom(ctx context.Context) (generic.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(generic.Actor)
	return actor, ok
}
