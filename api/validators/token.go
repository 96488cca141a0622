package validators

import "strings"

// BearerToken extracts the opaque session token from an Authorization
// header value. A missing or bare "Bearer" header yields "".
func BearerToken(raw string) string {
	token := strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
