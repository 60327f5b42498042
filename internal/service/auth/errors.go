package auth

import (
	"fmt"

	"github.com/phrazzld/bankcards-api/internal/domain"
)

// Authentication errors. All of them are domain.ErrUnauthorized, so callers
// that only care about the kind can match on that.
var (
	// ErrMissingToken indicates the Authorization header is absent or does
	// not carry a Bearer credential.
	ErrMissingToken = fmt.Errorf("%w: missing bearer token", domain.ErrUnauthorized)

	// ErrTokenMalformed indicates a bad signature, structure or claim set.
	ErrTokenMalformed = fmt.Errorf("%w: malformed token", domain.ErrUnauthorized)

	// ErrTokenExpired indicates the token is past its exp claim.
	ErrTokenExpired = fmt.Errorf("%w: token expired", domain.ErrUnauthorized)

	// ErrInvalidCredentials indicates a password mismatch.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)

	// ErrTokenRejected indicates a well-formed token that is revoked, of the
	// wrong kind, or not issued to the resolved user.
	ErrTokenRejected = fmt.Errorf("%w: token is not valid", domain.ErrUnauthorized)
)
