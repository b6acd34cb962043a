// Package auth verifies the bearer tokens that identify a tenant.
//
// # Tokens
//
// Tokens are Supabase-style JWTs signed with HS256 using a single shared
// secret (auth.jwt_secret). The "sub" claim is the tenant id (auth.uid() on
// the database side) and "exp" is required:
//
//	v := auth.NewJWTVerifier([]byte(secret))
//	tenantID, err := v.Authenticate(r.Header.Get("Authorization"))
//
// Only one algorithm and one key are accepted for the life of the process.
//
// # Errors
//
// Every failure wraps ErrUnauthenticated:
//
//   - ErrAuthFormat: header is not "Bearer <token>" (no signature check is attempted)
//   - ErrAuthSignature: bad signature, wrong algorithm, or undecodable token
//   - ErrAuthExpired: the exp claim is in the past
//   - ErrAuthClaimMissing: sub or exp is absent
//
// None of these are retryable; the caller has to obtain a new token.
//
// # HTTP
//
// HTTPAuthMiddleware rejects unauthenticated requests with 401 and stores the
// tenant id in the request context, retrievable with TenantFromContext. The
// tenant id is never taken from request bodies or tool arguments.
package auth
