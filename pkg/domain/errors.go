package domain

import "errors"

const HistoryClearedMessage = "Chat history cleared"

var (
	ErrEmptyMessage = errors.New("no message provided")
	ErrInvalidRole  = errors.New("invalid message role")
)
