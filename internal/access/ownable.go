// Package access implements single-owner authorization for privileged
// operations. The owner is a field of each component, not a global.
package access

import (
	"errors"
	"fmt"

	"github.com/Mohsinsiddi/h2o/internal/state"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrNotOwner  = errors.New("caller is not the owner")
	ErrZeroOwner = errors.New("new owner is the zero address")
)

// Ownable guards privileged operations behind a single owner address.
type Ownable struct {
	journal *state.Journal
	owner   common.Address
}

// NewOwnable sets owner as the initial owner.
func NewOwnable(j *state.Journal, owner common.Address) Ownable {
	return Ownable{journal: j, owner: owner}
}

// Owner returns the current owner.
func (o *Ownable) Owner() common.Address { return o.owner }

// IsOwner reports whether caller owns the component.
func (o *Ownable) IsOwner(caller common.Address) bool {
	return caller == o.owner && caller != (common.Address{})
}

// OnlyOwner returns ErrNotOwner unless caller is the owner.
func (o *Ownable) OnlyOwner(caller common.Address) error {
	if !o.IsOwner(caller) {
		return fmt.Errorf("%w: %s", ErrNotOwner, caller.Hex())
	}
	return nil
}

// TransferOwnership hands the component to next.
func (o *Ownable) TransferOwnership(caller, next common.Address) error {
	if err := o.OnlyOwner(caller); err != nil {
		return err
	}
	if next == (common.Address{}) {
		return ErrZeroOwner
	}
	state.Set(o.journal, &o.owner, next)
	return nil
}

// RenounceOwnership leaves the component without an owner. Every privileged
// operation fails afterwards.
func (o *Ownable) RenounceOwnership(caller common.Address) error {
	if err := o.OnlyOwner(caller); err != nil {
		return err
	}
	state.Set(o.journal, &o.owner, common.Address{})
	return nil
}
