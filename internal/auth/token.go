// ABOUTME: JWT verification that turns an Authorization header into a tenant id
// ABOUTME: Uses a single HS256 shared secret, no key rotation

package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthenticated is the parent of every credential failure. Callers map it
// to an HTTP 401; none of these errors are worth retrying with the same token.
var ErrUnauthenticated = errors.New("unauthenticated")

// Token errors
var (
	ErrAuthFormat       = fmt.Errorf("%w: authorization header must be 'Bearer <token>'", ErrUnauthenticated)
	ErrAuthSignature    = fmt.Errorf("%w: invalid token signature", ErrUnauthenticated)
	ErrAuthExpired      = fmt.Errorf("%w: token expired", ErrUnauthenticated)
	ErrAuthClaimMissing = fmt.Errorf("%w: missing required claim", ErrUnauthenticated)
)

// signingAlg is the only algorithm accepted. Supabase issues HS256 tokens.
const signingAlg = "HS256"

// TokenVerifier defines the interface for token verification
type TokenVerifier interface {
	Verify(tokenString string) (tenantID string, err error)
}

// JWTVerifier implements TokenVerifier using HS256 signed JWTs
type JWTVerifier struct {
	secret []byte
	now    func() time.Time
}

// NewJWTVerifier creates a new JWT verifier with the given secret
func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret, now: time.Now}
}

// ExtractBearerToken pulls the token out of an Authorization header value.
// The scheme is matched case-insensitively and must be followed by exactly one token.
func ExtractBearerToken(header string) (string, error) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", ErrAuthFormat
	}
	return parts[1], nil
}

// Authenticate validates a raw Authorization header and returns the tenant id.
// A header without the Bearer scheme fails before any signature work is done.
func (v *JWTVerifier) Authenticate(header string) (string, error) {
	token, err := ExtractBearerToken(header)
	if err != nil {
		return "", err
	}
	return v.Verify(token)
}

// Verify validates the token and extracts the tenant id from the "sub" claim
func (v *JWTVerifier) Verify(tokenString string) (tenantID string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if len(v.secret) == 0 {
			return nil, errors.New("no signing secret configured")
		}
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{signingAlg}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return "", classifyParseError(err)
	}

	if !token.Valid {
		return "", ErrAuthSignature
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrAuthSignature
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: sub", ErrAuthClaimMissing)
	}

	return sub, nil
}

// classifyParseError maps jwt library failures onto the auth error family.
// Signature problems are checked first so a forged token never reports as merely expired.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrAuthSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrAuthExpired
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return fmt.Errorf("%w: exp", ErrAuthClaimMissing)
	default:
		// nbf / iat in the future and other claim validation failures
		return fmt.Errorf("%w: %v", ErrAuthSignature, err)
	}
}

// Generate creates a new JWT token for the given tenant id with expiration
func (v *JWTVerifier) Generate(tenantID string, expiresIn time.Duration) (string, error) {
	now := v.now()
	claims := jwt.MapClaims{
		"sub":  tenantID,
		"role": "authenticated",
		"iat":  now.Unix(),
		"exp":  now.Add(expiresIn).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
