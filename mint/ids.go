package mint

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces entry ids. Implementations must be safe for
// concurrent use.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator generates random version 4 UUIDs.
type UUIDGenerator struct{}

// NewID implements IDGenerator.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// SequentialGenerator generates "{prefix}-{n}" ids with n counting from 1.
type SequentialGenerator struct {
	Prefix string
	next   atomic.Int64
}

// NewID implements IDGenerator.
func (g *SequentialGenerator) NewID() string {
	return fmt.Sprintf("%s-%d", g.Prefix, g.next.Add(1))
}
