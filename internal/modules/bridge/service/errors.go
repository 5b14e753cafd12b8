package service

import "github.com/pkg/errors"

var (
	ErrPayloadTooLarge = errors.New("bridge payload exceeds limit")
	ErrBadStatus       = errors.New("bridge returned non-2xx status")
)
