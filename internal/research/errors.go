package research

import "errors"

var ErrNotFound = errors.New("research not found")
