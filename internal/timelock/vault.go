package timelock

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Mohsinsiddi/h2o/internal/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"
)

var (
	ErrNotReleasable    = errors.New("current time is before release time")
	ErrNothingToRelease = errors.New("no tokens to release")
)

// Vault holds a token balance for a beneficiary until a fixed release time.
// Anyone may trigger the release; the funds only ever go to the beneficiary.
type Vault struct {
	address     common.Address
	token       ledger.Token
	beneficiary common.Address
	releaseAt   time.Time
	clock       clockwork.Clock
	log         *slog.Logger
}

func NewVault(address common.Address, token ledger.Token, beneficiary common.Address, releaseAt time.Time, clock clockwork.Clock, log *slog.Logger) (*Vault, error) {
	if beneficiary == (common.Address{}) {
		return nil, errors.New("beneficiary is required")
	}
	if !releaseAt.After(clock.Now()) {
		return nil, fmt.Errorf("release time %s is not in the future", releaseAt.UTC().Format(time.RFC3339))
	}
	if log == nil {
		log = slog.Default()
	}
	return &Vault{
		address:     address,
		token:       token,
		beneficiary: beneficiary,
		releaseAt:   releaseAt,
		clock:       clock,
		log:         log.With("component", "vault", "address", address.Hex()),
	}, nil
}

func (v *Vault) Address() common.Address     { return v.address }
func (v *Vault) Beneficiary() common.Address { return v.beneficiary }
func (v *Vault) ReleaseTime() time.Time      { return v.releaseAt }

// Balance is what Release would pay out.
func (v *Vault) Balance() *uint256.Int { return v.token.BalanceOf(v.address) }

// Release sends the whole balance to the beneficiary once the release time
// has been reached.
func (v *Vault) Release() (*uint256.Int, error) {
	if v.clock.Now().Before(v.releaseAt) {
		return nil, fmt.Errorf("%w: %s", ErrNotReleasable, v.releaseAt.UTC().Format(time.RFC3339))
	}
	amount := v.Balance()
	if amount.IsZero() {
		return nil, ErrNothingToRelease
	}
	if err := v.token.Transfer(v.address, v.beneficiary, amount); err != nil {
		return nil, err
	}
	v.log.Info("released", "beneficiary", v.beneficiary.Hex(), "amount", amount.ToBig())
	return amount, nil
}
