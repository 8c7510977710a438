package usage

import "errors"

// ErrInvalidMonth indicates a month filter that is not YYYY-MM.
var ErrInvalidMonth = errors.New("invalid month")
