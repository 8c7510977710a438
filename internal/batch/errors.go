package batch

import "errors"

var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrUnknownDocumentType = errors.New("unknown document type")
)
