package applications

import "errors"

var ErrNotFound = errors.New("application not found")

var ErrProfileNotFound = errors.New("profile not found")
