package token

import "errors"

var (
	ErrAlreadySetUp       = errors.New("already set up")
	ErrNotSetUp           = errors.New("distributor not set up")
	ErrGasTooHigh         = errors.New("distributor gas must be below 750000")
	ErrCannotExempt       = errors.New("token and pair cannot be dividend exempt")
	ErrUnknownPair        = errors.New("pair does not belong to router")
	ErrInvalidTarget      = errors.New("invalid target liquidity")
	ErrPluginAlreadySetup = errors.New("plugin already setup")
	ErrInvalidPlugin      = errors.New("plugin not valid")
	ErrPluginNotSet       = errors.New("plugin not set")
	ErrZeroReceiver       = errors.New("fee receiver is the zero address")
)
