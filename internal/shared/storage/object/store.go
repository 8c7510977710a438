// Package object stores full artifact bodies outside the database.
package object

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no object exists under the key.
var ErrNotFound = errors.New("object not found")

// Object is one stored document body plus the metadata written with it.
type Object struct {
	Key         string
	ContentType string
	Body        []byte
	Metadata    map[string]string
}

// ObjectStore saves and loads document bodies by key. Put replaces any
// existing object under the same key.
type ObjectStore interface {
	Put(ctx context.Context, obj Object) (sizeBytes int64, err error)
	Get(ctx context.Context, key string) ([]byte, error)
}
