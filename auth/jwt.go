/*
Package auth issues and verifies bearer tokens and maps them to a fuel.Caller.

TOKENS:
  HS256 JWTs carrying the user id, username and role. The subject is the
  user id as a decimal string.

STATUS CODES:
  - No Authorization header           -> 401
  - Malformed, forged or expired token -> 403
  - Valid token, insufficient role    -> 403

SEE ALSO:
  - middleware.go: HTTP wiring
  - password.go: bcrypt hashing for stored credentials
*/
package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/warp/fuel-engine/fuel"
)

var (
	// ErrMissingToken is returned when a request carries no bearer token.
	ErrMissingToken = errors.New("auth: missing token")

	// ErrInvalidToken covers bad signatures, bad claims and expiry.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Claims represents JWT claims used by this service.
type Claims struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Caller converts validated claims into the identity the core understands.
func (c *Claims) Caller() fuel.Caller {
	role, _ := fuel.ParseRole(c.Role)
	return fuel.Caller{ID: fuel.UserID(c.UserID), Role: role}
}

// IssueToken signs a token for u valid for ttl from now.
func IssueToken(secret []byte, u fuel.User, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("auth: empty secret")
	}
	role := u.Role
	if role == "" {
		role = fuel.RoleUser
	}
	claims := Claims{
		UserID:   int64(u.ID),
		Username: u.Username,
		Role:     string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(int64(u.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken validates a token and returns its claims.
func ParseToken(tokenString string, secret []byte) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	if len(secret) == 0 {
		return nil, errors.New("auth: empty secret")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("auth: invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID <= 0 {
		return nil, errors.Join(ErrInvalidToken, errors.New("auth: missing user id"))
	}
	if _, ok := fuel.ParseRole(claims.Role); !ok {
		return nil, errors.Join(ErrInvalidToken, errors.New("auth: invalid role"))
	}
	return claims, nil
}
