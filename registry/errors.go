package registry

import (
	"errors"
	"fmt"
)

// ErrMintingInvariant is matched by every *MintingInvariantError via errors.Is.
var ErrMintingInvariant = errors.New("minting invariant violated")

// MintingInvariantError reports an identifier that would break uniqueness,
// such as a campaign id that is already taken or a composite key minted twice.
type MintingInvariantError struct {
	Key    string
	Reason string
}

func (e *MintingInvariantError) Error() string {
	return fmt.Sprintf("minting invariant violated for %s: %s", e.Key, e.Reason)
}

// Is makes errors.Is(err, ErrMintingInvariant) true for invariant errors.
func (e *MintingInvariantError) Is(target error) bool {
	return target == ErrMintingInvariant
}
