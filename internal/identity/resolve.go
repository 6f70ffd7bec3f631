package identity

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const anonCookieName = "gc_anon_id"

// Resolver resolves an identity Context for a request. Constructed once at
// startup and held by the GovernanceRuntime; safe for concurrent use since
// the underlying JWKSCache is itself guarded.
type Resolver struct {
	JWKS           *JWKSCache
	Audience       string
	Issuer         string
	Salt           string
	AnonCookieTTL  time.Duration
	CookieSecure   bool
}

// Resolve never fails: JWKS errors, invalid signatures, and malformed
// tokens all collapse to an anonymous identity rather than raising.
// When a new anon cookie must be issued, setCookie writes
// it onto the response.
func (r *Resolver) Resolve(req *http.Request, setCookie func(*http.Cookie)) *Context {
	ip := clientIP(req)
	ua := req.Header.Get("User-Agent")

	ctx := &Context{
		IPHash:        saltedHash(r.Salt, ip),
		UserAgentHash: saltedHash(r.Salt, ua),
	}

	if userID, ok := r.verifyBearer(req); ok {
		ctx.IsAuthenticated = true
		ctx.UserID = userID
		ctx.SubjectType = SubjectUser
		ctx.SubjectID = userID
		return ctx
	}

	anonID := r.anonID(req, setCookie)
	ctx.AnonID = anonID
	ctx.SubjectType = SubjectAnon
	ctx.SubjectID = anonID
	return ctx
}

func (r *Resolver) verifyBearer(req *http.Request) (string, bool) {
	if r.JWKS == nil || r.Issuer == "" {
		return "", false
	}
	auth := req.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}
	raw := strings.TrimPrefix(auth, prefix)
	if raw == "" {
		return "", false
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, r.JWKS.KeyFunc(req.Context()),
		jwt.WithAudience(r.Audience), jwt.WithIssuer(r.Issuer), jwt.WithValidMethods([]string{"RS256"}))
	if err != nil || !token.Valid {
		return "", false
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", false
	}
	return sub, true
}

func (r *Resolver) anonID(req *http.Request, setCookie func(*http.Cookie)) string {
	if c, err := req.Cookie(anonCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.New().String()
	if setCookie != nil {
		setCookie(&http.Cookie{
			Name:     anonCookieName,
			Value:    id,
			HttpOnly: true,
			Secure:   r.CookieSecure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int(r.AnonCookieTTL.Seconds()),
			Path:     "/",
		})
	}
	return id
}

func clientIP(req *http.Request) string {
	if fwd := req.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host := req.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		return host[:idx]
	}
	return host
}
