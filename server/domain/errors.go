package domain

import "errors"

var (
	ErrDuplicateSession  = errors.New("session already exists")
	ErrSessionNotFound   = errors.New("session not found")
	ErrAlreadyRegistered = errors.New("connection already registered")
	ErrNotRegistered     = errors.New("connection not registered")
	ErrOutboxFull        = errors.New("connection outbox is full")
	ErrInvalidQuery      = errors.New("invalid query")
)
