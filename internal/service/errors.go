package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidUsername = errors.New("invalid username")
	ErrUsernameTaken   = errors.New("username already exists")
	ErrInvalidMessage  = errors.New("invalid message")
	ErrNotJoined       = errors.New("connection is not joined as sender")
	ErrStore           = errors.New("store error")
)

var (
	ErrUsernameRequired = fmt.Errorf("%w: username is required", ErrInvalidUsername)
	ErrUsernameTooLong  = fmt.Errorf("%w: username is too long", ErrInvalidUsername)
)
