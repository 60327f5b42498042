package auth

import "strings"

const bearerPrefix = "Bearer "

// ExtractBearerToken returns the credential from an Authorization header
// value. A missing header, a different scheme or an empty credential all
// yield ErrMissingToken.
func ExtractBearerToken(header string) (string, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
