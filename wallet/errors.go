package wallet

import "errors"

// ErrNetworkError indicates the mint client's transport failed before
// any application-level response was received (spec §7). The wallet
// engine never constructs this directly - it's what a MintClient
// implementation is expected to return on a transport failure.
var ErrNetworkError = errors.New("network error reaching mint")
