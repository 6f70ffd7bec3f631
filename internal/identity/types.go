// Package identity implements the identity resolver:
// producing an IdentityContext from request headers/cookies, verifying a
// bearer token against a JWKS when present, and otherwise issuing or
// reusing an anonymous session cookie. Grounded on agent/auth.go's
// guarded-map client-state idiom and on the JWKS keyfunc shape in
// Mindburn-Labs-helm/core/pkg/identity/keyset.go, adapted from a signing
// keyset to a verify-only fetched-and-cached remote keyset.
package identity

type SubjectType string

const (
	SubjectUser SubjectType = "user"
	SubjectAnon SubjectType = "anon"
	SubjectIP   SubjectType = "ip"
)

// Context is the immutable, per-request identity value. Built once at
// request entry and read-only thereafter.
type Context struct {
	IsAuthenticated bool
	UserID          string
	AnonID          string
	SubjectType     SubjectType
	SubjectID       string
	IPHash          string
	UserAgentHash   string
}
