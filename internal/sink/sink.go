// Package sink defines the contract for the external value writer and the
// typed-value coercion applied just before a write.
package sink

import (
	"context"
	"errors"
	"time"

	"github.com/example/industrial-scheduler/internal/persistence"
)

var (
	// ErrTransient marks a write failure worth retrying while the
	// occurrence is still live.
	ErrTransient = errors.New("sink: transient failure")
	// ErrFatal marks a write failure that terminates retries for the
	// occurrence.
	ErrFatal = errors.New("sink: fatal failure")
)

// Request carries everything one wire write needs. Credentials are opaque
// to the core and forwarded untouched.
type Request struct {
	Endpoint    string
	NodeID      string
	Value       Value
	Credentials *persistence.SinkCredentials
	Timeout     time.Duration
}

// Sink is the external collaborator performing the actual wire write.
// Implementations classify failures as ErrTransient or ErrFatal.
type Sink interface {
	Write(ctx context.Context, req Request) error
}
