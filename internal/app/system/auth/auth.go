package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session constants                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	DefaultSessionName = "stratadrive-session"

	isAuthKey  = "is_authenticated"
	tokenIDKey = "token_identifier"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is the resolved caller injected into r.Context().
// It is rebuilt from the user store on every request, so role changes and
// disabled accounts take effect immediately.
type SessionUser struct {
	ID              string
	TokenIdentifier string
	Name            string
	Email           string
	Role            string
	TenantID        string
}

// UserFetcher resolves an identity token to a current, active user.
// It returns nil when the token is unknown or the user is disabled.
type UserFetcher interface {
	FetchUser(ctx context.Context, tokenIdentifier string) *SessionUser
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// WithTestUser injects u into the request context. Tests use it to skip
// token resolution.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Session manager                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionManager resolves the caller from either a bearer token issued by
// the identity provider or a cookie session established with
// EstablishSession.
type SessionManager struct {
	store   *sessions.CookieStore
	name    string
	fetcher UserFetcher
	log     *zap.Logger

	jwtSecret []byte
	jwtIssuer string
}

// NewSessionManager builds the cookie store. In production (secure=true)
// cookies are Secure + SameSite=None; in local dev SameSite=Lax.
func NewSessionManager(sessionKey, sessionName, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if sessionName == "" {
		sessionName = DefaultSessionName
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	return &SessionManager{store: store, name: sessionName, log: logger}, nil
}

// SetUserFetcher sets the resolver used by LoadSessionUser. Without one,
// no request is ever authenticated.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) {
	sm.fetcher = f
}

// SetTokenVerifier enables bearer tokens signed with HS256 using secret.
// When issuer is non-empty the iss claim must match it.
func (sm *SessionManager) SetTokenVerifier(secret, issuer string) {
	sm.jwtSecret = []byte(secret)
	sm.jwtIssuer = issuer
}

// identityClaims is the token shape issued by the identity provider. The
// subject is the opaque token identifier. Metadata.Role is informational;
// the stored role is authoritative.
type identityClaims struct {
	Metadata struct {
		Role string `json:"role,omitempty"`
	} `json:"metadata,omitempty"`
	jwt.RegisteredClaims
}

// ErrNoTokenVerifier is returned by ParseToken when bearer tokens are not
// configured.
var ErrNoTokenVerifier = errors.New("bearer tokens are not configured")

// ParseToken verifies a bearer token and returns its subject.
func (sm *SessionManager) ParseToken(raw string) (string, error) {
	if len(sm.jwtSecret) == 0 {
		return "", ErrNoTokenVerifier
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if sm.jwtIssuer != "" {
		opts = append(opts, jwt.WithIssuer(sm.jwtIssuer))
	}
	var claims identityClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return sm.jwtSecret, nil
	}, opts...)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// IssueToken signs a token for tokenIdentifier. Used by the operator CLI
// and tests; production tokens come from the identity provider.
func IssueToken(secret, issuer, tokenIdentifier string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := identityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   tokenIdentifier,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// tokenIdentifier extracts the caller's identity token from the request:
// a verified bearer token first, then the cookie session.
func (sm *SessionManager) tokenIdentifier(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		raw, ok := strings.CutPrefix(h, "Bearer ")
		if !ok {
			return ""
		}
		sub, err := sm.ParseToken(strings.TrimSpace(raw))
		if err != nil {
			sm.log.Debug("bearer token rejected", zap.Error(err))
			return ""
		}
		return sub
	}

	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		if scErr, ok := err.(securecookie.Error); ok && scErr.IsDecode() {
			sm.log.Debug("session cookie invalid, ignoring", zap.Error(err))
		} else {
			sm.log.Warn("session store error", zap.Error(err))
		}
		return ""
	}
	if isAuth, _ := sess.Values[isAuthKey].(bool); !isAuth {
		return ""
	}
	tok, _ := sess.Values[tokenIDKey].(string)
	return tok
}

// LoadSessionUser injects the resolved user into context when the request
// carries a valid identity. Anonymous requests pass through untouched.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sm.fetcher == nil {
			next.ServeHTTP(w, r)
			return
		}
		if tok := sm.tokenIdentifier(r); tok != "" {
			if u := sm.fetcher.FetchUser(r.Context(), tok); u != nil {
				r = withUser(r, u)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// EstablishSession stores tokenIdentifier in the cookie session.
func (sm *SessionManager) EstablishSession(w http.ResponseWriter, r *http.Request, tokenIdentifier string) error {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		// A stale cookie still yields a usable fresh session.
		sm.log.Debug("replacing unreadable session", zap.Error(err))
	}
	sess.Values[isAuthKey] = true
	sess.Values[tokenIDKey] = tokenIdentifier
	return sess.Save(r, w)
}

// ClearSession expires the cookie session.
func (sm *SessionManager) ClearSession(w http.ResponseWriter, r *http.Request) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// RequireSignedIn answers 401 unless a user is in context.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "sign in required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole answers 401 when nobody is signed in and 403 when the user's
// role is below min. Roles are ordered member < admin < super-admin.
func (sm *SessionManager) RequireRole(min string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "sign in required")
				return
			}
			if !models.RoleAtLeast(strings.ToLower(u.Role), min) {
				writeJSONError(w, http.StatusForbidden, "forbidden", "requires role "+min)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// helpers

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

func writeJSONError(w http.ResponseWriter, status int, kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": kind, "message": msg})
}
