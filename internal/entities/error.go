package entities

import "errors"

var (
	ErrNotFound        = errors.New("entity not found")
	ErrNetwork         = errors.New("network error")
	ErrParse           = errors.New("parse error")
	ErrUnknownCurrency = errors.New("unknown currency")
	ErrPersistence     = errors.New("persistence error")
	ErrRedisTimeout    = errors.New("timeout waiting for Redis message")
	ErrRedisCanceled   = errors.New("redis subscription canceled")
)
