/**
 * @description
 * This file contains custom middleware for the HTTP router: bearer token
 * authentication against Clerk's JWKS endpoint and resolution of the caller's
 * identity through the configured admin allow-list.
 *
 * @dependencies
 * - github.com/golang-jwt/jwt/v5: For parsing and verifying Clerk session tokens.
 * - internal/app: For the admin allow-list.
 */

package api

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/elllyers/ineza/internal/app"
	"github.com/elllyers/ineza/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// IdentityContextKey is a custom type for the context key to avoid collisions.
type IdentityContextKey string

const identityKey IdentityContextKey = "identity"

var errMissingBearer = errors.New("authorization header must use the Bearer scheme")

// IdentityResolver verifies an opaque bearer token and returns the user id it belongs to.
type IdentityResolver interface {
	ResolveUserID(ctx context.Context, token string) (string, error)
}

// ClerkVerifier verifies Clerk session JWTs with keys from the instance JWKS endpoint.
// Keys are cached and refetched when a token names an unknown kid.
type ClerkVerifier struct {
	jwksURL    string
	issuer     string
	audience   string
	client     *http.Client
	minRefresh time.Duration

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewClerkVerifier creates a verifier. issuer and audience are enforced only when set.
func NewClerkVerifier(jwksURL, issuer, audience string) *ClerkVerifier {
	return &ClerkVerifier{
		jwksURL:    jwksURL,
		issuer:     issuer,
		audience:   audience,
		client:     &http.Client{Timeout: 10 * time.Second},
		minRefresh: time.Minute,
		keys:       map[string]*rsa.PublicKey{},
	}
}

// ResolveUserID validates the token signature and claims and returns its subject.
func (v *ClerkVerifier) ResolveUserID(ctx context.Context, tokenString string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5 * time.Second),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.NewParser(opts...).Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("kid not found in token header")
		}
		return v.publicKey(ctx, kid)
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}

	userID, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if userID == "" {
		return "", errors.New("user id not found in token")
	}
	return userID, nil
}

func (v *ClerkVerifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	v.mu.RUnlock()
	if ok {
		return key, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if key, ok := v.keys[kid]; ok {
		return key, nil
	}
	if !v.fetchedAt.IsZero() && time.Since(v.fetchedAt) < v.minRefresh {
		return nil, fmt.Errorf("key with kid %s not found", kid)
	}

	// A failed attempt also starts the refresh window.
	v.fetchedAt = time.Now()
	keys, err := fetchJWKS(ctx, v.client, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get public key: %w", err)
	}
	v.keys = keys

	if key, ok := keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("key with kid %s not found", kid)
}

// fetchJWKS downloads the key set and returns its RSA keys by kid.
func fetchJWKS(ctx context.Context, client *http.Client, jwksURL string) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks endpoint returned status %d", resp.StatusCode)
	}

	var jwks struct {
		Keys []struct {
			Kid string `json:"kid"`
			Kty string `json:"kty"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, err
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, key := range jwks.Keys {
		if key.Kty != "RSA" || key.Kid == "" {
			continue
		}
		pub, err := parseRSAPublicKey(key.N, key.E)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", key.Kid, err)
		}
		keys[key.Kid] = pub
	}
	return keys, nil
}

// parseRSAPublicKey parses RSA public key from modulus and exponent
func parseRSAPublicKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}
	if len(nb) == 0 || len(eb) == 0 || len(eb) > 4 {
		return nil, errors.New("malformed RSA key")
	}

	var exp int
	for _, b := range eb {
		exp = exp<<8 | int(b)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: exp}, nil
}

// Authenticator turns bearer tokens into caller identities.
type Authenticator struct {
	resolver IdentityResolver
	admins   app.AdminList
	logger   *slog.Logger
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(resolver IdentityResolver, admins app.AdminList, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{resolver: resolver, admins: admins, logger: logger}
}

// Optional attaches the caller's identity when a bearer token is sent and lets
// anonymous requests through. A token that fails verification is rejected.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}
		identity, err := a.identify(r)
		if err != nil {
			a.reject(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// Required rejects requests that do not carry a valid bearer token.
func (a *Authenticator) Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := a.identify(r)
		if err != nil {
			a.reject(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

func (a *Authenticator) identify(r *http.Request) (*domain.Identity, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, app.ErrUnauthenticated
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader || strings.TrimSpace(tokenString) == "" {
		return nil, errMissingBearer
	}

	userID, err := a.resolver.ResolveUserID(r.Context(), strings.TrimSpace(tokenString))
	if err != nil {
		return nil, err
	}
	identity := a.admins.Identify(userID)
	if identity == nil {
		return nil, app.ErrUnauthenticated
	}
	return identity, nil
}

func (a *Authenticator) reject(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, app.ErrUnauthenticated) {
		a.logger.Info("bearer token rejected", "path", r.URL.Path, "reason", err.Error())
	}
	writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized", Code: codeUnauthorized})
}

// WithIdentity returns a copy of ctx carrying the caller identity.
func WithIdentity(ctx context.Context, identity *domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext retrieves the caller identity, or nil for anonymous requests.
func IdentityFromContext(ctx context.Context) *domain.Identity {
	identity, _ := ctx.Value(identityKey).(*domain.Identity)
	return identity
}
