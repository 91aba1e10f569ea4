package wallet

import (
	"context"

	"github.com/cashukit/walletcore/cashu"
	"github.com/cashukit/walletcore/crypto"
)

// MintClient is the typed RPC surface the wallet engine depends on
// (spec §4.5). It is a capability the wallet receives at construction,
// not a concrete transport the engine imports back - the same pattern
// the teacher uses for its Lightning backend interface and that
// lescuer97/nutmix's signer.Signer uses for the mint/signer boundary.
// This resolves the wallet/mint-client cyclic dependency (spec §9).
type MintClient interface {
	// GetKeys fetches the mint's current active keyset.
	GetKeys(ctx context.Context) (*crypto.Keyset, error)

	// RequestMint asks the mint for a Lightning invoice to fund amount
	// sats, returning the invoice and the hash used to redeem it.
	RequestMint(ctx context.Context, amount uint64) (RequestMintResponse, error)

	// Mint exchanges blinded outputs for signatures once the invoice
	// named by hash has been paid.
	Mint(ctx context.Context, outputs cashu.BlindedMessages, hash string) (cashu.BlindedSignatures, error)

	// Split exchanges proofs for two freshly blinded output bundles,
	// amount2 worth in the second bundle and the remainder in the
	// first. outputs must already be ordered [amount1-outputs...,
	// amount2-outputs...] (spec §4.6 split sub-protocol).
	Split(ctx context.Context, req SplitRequest) (SplitResponse, error)

	// Melt pays a Lightning invoice by consuming proofs, optionally
	// returning change against blank outputs.
	Melt(ctx context.Context, req MeltRequest) (MeltResponse, error)

	// CheckFees asks the mint what fee reserve an invoice payment
	// would require.
	CheckFees(ctx context.Context, invoice string) (uint64, error)

	// Check reports, positionally, which of the given secrets are
	// still spendable (i.e. not yet redeemed).
	Check(ctx context.Context, secrets []string) ([]bool, error)
}

// RequestMintResponse is the mint's reply to a request-mint call: a
// Lightning invoice to pay and the hash that redeems it.
type RequestMintResponse struct {
	Invoice string
	Hash    string
}

// SplitRequest is the input to the mint's split endpoint (spec §4.5).
type SplitRequest struct {
	Proofs  cashu.Proofs
	Amount  uint64
	Outputs cashu.BlindedMessages
}

// SplitResponse carries the two signature bundles a split produces:
// Fst sums to the kept amount (amount1), Snd to the sent amount
// (amount2), in positional correspondence with the outputs sent.
type SplitResponse struct {
	Fst cashu.BlindedSignatures
	Snd cashu.BlindedSignatures
}

// MeltRequest is the input to the mint's melt endpoint.
type MeltRequest struct {
	Invoice string
	Proofs  cashu.Proofs
	Outputs cashu.BlindedMessages
}

// MeltResponse is the mint's reply to a melt call. Change is only
// present when Outputs in the request were non-empty and the mint had
// change to return.
type MeltResponse struct {
	Paid     bool
	Preimage string
	Change   cashu.BlindedSignatures
}
