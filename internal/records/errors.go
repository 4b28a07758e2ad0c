package records

import "errors"

var (
	ErrInvalidRole        = errors.New("invalid role")
	ErrUsernameTaken      = errors.New("username already registered")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrForbidden          = errors.New("not permitted")
)
