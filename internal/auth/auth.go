// Package auth implements the bearer-token auth + scope gate (C7): token
// shape recognition, SHA-256 hash lookup against a TokenStore collaborator,
// AuthContext/TenantContext derivation, and AND/OR scope gating.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"

	"github.com/rawcontext/engram-sub001/internal/apierr"
	"github.com/rawcontext/engram-sub001/internal/bitemporal"
	"github.com/rawcontext/engram-sub001/internal/taskpool"
	"github.com/rawcontext/engram-sub001/internal/tenant"
)

// Token shapes recognized at the wire boundary (§6.1).
var (
	apiKeyPattern = regexp.MustCompile(`^engram_(live|test)_[0-9a-f]{32}$`)
	oauthPattern  = regexp.MustCompile(`^egm_oauth_[A-Za-z0-9]{32}_[A-Za-z0-9]{6}$`)
	clientPattern = regexp.MustCompile(`^egm_client_[A-Za-z0-9]{32}_[A-Za-z0-9]{6}$`)
)

// Token types derived from the recognized shape.
const (
	TypeAPIKey            = "api_key"
	TypeOAuthUser         = "oauth_user"
	TypeClientCredentials = "client_credentials"
)

// ErrTokenNotFound is returned by a TokenStore when no record matches a
// token hash.
var ErrTokenNotFound = errors.New("auth: token not found")

// TokenRecord is the stored shape of one token (§4.7/§6.3). Plaintext is
// never stored; Hash is the SHA-256 hex digest of the plaintext token.
type TokenRecord struct {
	ID         string
	Prefix     string
	Type       string
	UserID     string
	OrgID      string
	OrgSlug    string
	Scopes     []string
	RateLimit  int
	GrantType  string
	ClientID   string
	IsActive   bool
	RevokedAt  *bitemporal.Instant
	ExpiresAt  *bitemporal.Instant
	LastUsedAt bitemporal.Instant
}

// TokenStore is the external collaborator (§6.3) resolving a token hash to
// its record and recording last-used timestamps.
type TokenStore interface {
	Lookup(ctx context.Context, tokenHash string) (*TokenRecord, error)
	RecordLastUsed(ctx context.Context, id string, at bitemporal.Instant) error
}

// AuthContext is the principal derived from a validated request (§4.7 step 6).
type AuthContext struct {
	ID        string
	Prefix    string
	Method    string // always "sha256" for this core
	Type      string
	UserID    string
	OrgID     string
	OrgSlug   string
	Scopes    []string
	RateLimit int
	GrantType string
	ClientID  string
}

// contextKey is unexported so only this package can mint the key used to
// carry an AuthContext across middleware boundaries.
type contextKey struct{}

// WithContext returns a copy of ctx carrying ac, for the auth middleware to
// attach the derived principal to the request context.
func WithContext(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

// FromContext retrieves the AuthContext attached by the auth middleware, if
// any. Downstream middleware (C8 rate limiting) and handlers use this
// instead of re-deriving the principal.
func FromContext(ctx context.Context) (*AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(*AuthContext)
	return ac, ok
}

// HasScope reports whether ac was granted scope.
func (ac *AuthContext) HasScope(scope string) bool {
	for _, s := range ac.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// TenantContext derives a tenant.TenantContext from the authenticated
// principal.
func (ac *AuthContext) TenantContext() tenant.TenantContext {
	return tenant.TenantContext{
		OrgID:   ac.OrgID,
		OrgSlug: ac.OrgSlug,
		UserID:  ac.UserID,
		Scopes:  ac.Scopes,
	}
}

func classify(token string) (string, bool) {
	switch {
	case apiKeyPattern.MatchString(token):
		return TypeAPIKey, true
	case oauthPattern.MatchString(token):
		return TypeOAuthUser, true
	case clientPattern.MatchString(token):
		return TypeClientCredentials, true
	default:
		return "", false
	}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// HashToken exposes the lookup-key digest for callers that seed a
// TokenStore directly (tests, cmd/tokenctl) — it must match what
// Authenticate hashes internally.
func HashToken(token string) string {
	return hashToken(token)
}

func displayPrefix(token string) string {
	if len(token) <= 20 {
		return token
	}
	return token[:20]
}

// Authenticate runs the full §4.7 algorithm against header (the raw
// Authorization header value). On success it returns the derived
// AuthContext; the caller derives a tenant.TenantContext via
// AuthContext.TenantContext(). The last-used-at update is fired onto pool
// and never blocks the caller (§4.7 step 5).
func Authenticate(ctx context.Context, header string, store TokenStore, pool *taskpool.Pool, now func() bitemporal.Instant) (*AuthContext, error) {
	if header == "" {
		return nil, apierr.Unauthorized("Missing Authorization header")
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return nil, apierr.Unauthorized("Invalid Authorization header format, expected 'Bearer <token>'")
	}
	token := strings.TrimSpace(header[len(prefix):])

	tokenType, recognized := classify(token)
	if !recognized {
		return nil, apierr.Unauthorized("Invalid or expired Authorization token")
	}

	record, err := store.Lookup(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, apierr.Unauthorized("Invalid or expired Authorization token")
		}
		return nil, apierr.Wrap(apierr.CodeInternal, "token lookup failed", err)
	}

	nowAt := now()
	if !record.IsActive || record.RevokedAt != nil || (record.ExpiresAt != nil && *record.ExpiresAt < nowAt) {
		return nil, apierr.Unauthorized("Invalid or expired Authorization token")
	}

	if pool != nil {
		id := record.ID
		pool.Submit(func(taskCtx context.Context) {
			_ = store.RecordLastUsed(taskCtx, id, nowAt)
		})
	}

	return &AuthContext{
		ID:        record.ID,
		Prefix:    displayPrefix(token),
		Method:    "sha256",
		Type:      tokenType,
		UserID:    record.UserID,
		OrgID:     record.OrgID,
		OrgSlug:   record.OrgSlug,
		Scopes:    record.Scopes,
		RateLimit: record.RateLimit,
		GrantType: record.GrantType,
		ClientID:  record.ClientID,
	}, nil
}

// RequireScopes enforces AND semantics: every scope in required must be
// granted, or a 403 Forbidden is returned listing required/missing/granted
// (§4.7 step 7).
func RequireScopes(ac *AuthContext, required []string) error {
	var missing []string
	for _, s := range required {
		if !ac.HasScope(s) {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		return apierr.Forbidden(required, missing, ac.Scopes)
	}
	return nil
}

// RequireAnyScope enforces OR semantics: at least one scope in allowed must
// be granted. It does not populate `missing` on failure (§4.7 step 7).
func RequireAnyScope(ac *AuthContext, allowed []string) error {
	for _, s := range allowed {
		if ac.HasScope(s) {
			return nil
		}
	}
	return apierr.Forbidden(allowed, nil, ac.Scopes)
}
