package session

import "errors"

var ErrSessionNotFound = errors.New("upload session not found")
