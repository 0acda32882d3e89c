package model

import (
	"github.com/oklog/ulid/v2"
)

// NewID returns a ULID: lexicographically sortable, time ordered.
// Report, audit and user ids share this format.
func NewID() string {
	return ulid.Make().String()
}
