package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrEmptySubject is returned when a structurally valid token carries no
// "sub" claim to identify the user.
var ErrEmptySubject = errors.New("token subject is empty")

// ValidateToken verifies the signature, expiry and issuer of a bearer token
// and returns the user id carried in its "sub" claim.
//
// Token issuance happens outside this application; the server only needs to
// establish which user a request belongs to.
func ValidateToken(tokenString, signKey, issuer string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
		}
		return []byte(signKey), nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return 0, fmt.Errorf("error occurred validating and parsing token: %w", err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return 0, fmt.Errorf("error occurred during getting subject from token: %w", err)
	}
	if sub == "" {
		return 0, ErrEmptySubject
	}

	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("error occurred during converting subject to user id: %w", err)
	}

	return userID, nil
}

// ParseBearerToken extracts the token part from an Authorization header
// value of the form "Bearer <token>".
func ParseBearerToken(authorizationHeader string) (string, error) {
	parts := strings.Split(strings.TrimSpace(authorizationHeader), " ")
	if len(parts) != 2 || parts[1] == "" {
		return "", errors.New("invalid authorization header")
	}
	return parts[1], nil
}
