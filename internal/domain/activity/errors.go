package activity

import "errors"

// ErrInvalidInput indicates an entry that cannot be logged.
var ErrInvalidInput = errors.New("invalid activity input")
