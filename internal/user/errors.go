package user

import "errors"

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email is already in use")
	ErrInvalidCredentials = errors.New("incorrect email or password")
)
