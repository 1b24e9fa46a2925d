package auction

import "errors"

// Error kinds are exhaustive (spec §7). Command handlers return one of
// these when a precondition fails; ledger failures (such as
// ledger.ErrInsufficientBalance) and storage errors are returned as
// their own errors, so callers should compare with errors.Is.
var (
	ErrAuctionKeyNotFound  = errors.New("auction: key not found")
	ErrAuctionAssigned     = errors.New("auction: already assigned")
	ErrAuctionNotAssigned  = errors.New("auction: not yet assigned")
	ErrAuctionDisputed     = errors.New("auction: disputed")
	ErrAuctionNotDisputed  = errors.New("auction: not disputed")
	ErrMinBountyRequired   = errors.New("auction: bounty below minimum")
	ErrMinDepositRequired  = errors.New("auction: deposit below minimum")
	ErrMinBidRatioRequired = errors.New("auction: bid does not satisfy the required decrease")
	ErrMaxDataSizeExceeded = errors.New("auction: data exceeds maximum size")
	ErrTopBidRequired      = errors.New("auction: caller is not the top bidder, or no bids exist")
	ErrOwnerRequired       = errors.New("auction: caller is not the auction owner")
	ErrOriginProhibited    = errors.New("auction: caller is not permitted to perform this action")
)
