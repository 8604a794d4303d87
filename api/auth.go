/*
auth.go - Bearer-token identity for the two participants

PURPOSE:
  Maps a participant name to a signed bearer token and resolves that token
  back to a stable account identity on every request. This is the
  authenticate(credential) -> accountID collaborator the workflow engines
  assume; authorization beyond "any authenticated participant may act" is
  enforced inside the engines (partner-only approval).

TOKENS:
  HS256 JWTs (golang-jwt/jwt/v5) with the account ID as subject and the
  participant name as a claim. No refresh flow - tokens simply expire and
  the client logs in again by name.

SEE ALSO:
  - handlers.go: the /token endpoint issuing these
  - server.go: middleware wiring
*/
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/warp/pairledger/ledger"
)

// ErrUnauthorized is returned when a credential cannot be resolved to an
// account identity.
var ErrUnauthorized = errors.New("unauthorized")

type ctxKey int

const ctxKeyAccountID ctxKey = iota

// accountClaims carries the participant name alongside the registered set.
type accountClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
}

// =============================================================================
// TOKEN ISSUER
// =============================================================================

// TokenIssuer signs and verifies bearer tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, ttl: ttl, now: time.Now}
}

// Issue signs a token for the account.
func (ti *TokenIssuer) Issue(account ledger.Account) (string, error) {
	now := ti.now()
	claims := accountClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(account.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
		Name: account.Name,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
}

// Verify resolves a token to the account ID it was issued for.
func (ti *TokenIssuer) Verify(token string) (ledger.AccountID, error) {
	var claims accountClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return ti.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil {
		return "", ErrUnauthorized
	}
	if claims.Subject == "" {
		return "", ErrUnauthorized
	}
	return ledger.AccountID(claims.Subject), nil
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

// Middleware rejects requests without a valid bearer token and stores the
// caller's account ID in the request context.
func (ti *TokenIssuer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "Missing bearer token", nil)
			return
		}
		accountID, err := ti.Verify(token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "Invalid bearer token", nil)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyAccountID, accountID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// callerID returns the authenticated account ID placed by Middleware.
func callerID(r *http.Request) (ledger.AccountID, bool) {
	id, ok := r.Context().Value(ctxKeyAccountID).(ledger.AccountID)
	return id, ok
}
