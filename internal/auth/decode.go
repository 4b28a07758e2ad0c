package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken is returned when a credential is not three dot-separated segments
// or its payload segment is not base64url JSON.
var ErrMalformedToken = errors.New("malformed token")

// DecodeRole reads the role claim from the payload segment of a credential.
//
// The signature is not checked and the header is never decoded. The client only uses the
// role to pick which panels to show; the backend re-checks the token on every call and is
// the sole authority on what the bearer may do.
func DecodeRole(token string) (Role, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: want 3 segments, got %d", ErrMalformedToken, len(parts))
	}

	raw, err := jwt.NewParser().DecodeSegment(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	var payload struct {
		Role Role `json:"role"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return payload.Role, nil
}
