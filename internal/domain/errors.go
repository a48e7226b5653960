package domain

import "errors"

var (
	ErrKeyNotFound     = errors.New("key not found")
	ErrNoAbortTarget   = errors.New("no abortable session")
	ErrNoCatalog       = errors.New("no command catalog configured")
	ErrNotAnImage      = errors.New("not an image")
	ErrNotConnected    = errors.New("channel not connected")
	ErrUnknownProvider = errors.New("unknown provider")
	ErrUploadFailed    = errors.New("image upload failed")
)
